package services

import "github.com/shopspring/decimal"

// Money is rounded to cents after every multiplication.
const centPlaces = 2

func lineSubtotal(unitPrice float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).Round(centPlaces)
}

func taxOn(amount decimal.Decimal, rate float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(rate)).Round(centPlaces)
}
