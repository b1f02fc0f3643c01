package reports

import (
	"fmt"
	"io"

	"bikeshop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

// XLSXContentType is the MIME type of the sales workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SalesHeaders are the column titles of the sales sheet.
var SalesHeaders = []string{
	"Order ID", "Order Date", "Customer", "Product", "Unit Price",
	"Quantity", "Line Total", "Subtotal", "Tax", "Order Total",
}

// WriteSales renders one row per order item to w as an xlsx workbook.
func WriteSales(w io.Writer, orders []models.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return fmt.Errorf("failed to create sales sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range SalesHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range orders {
		customer := o.UserID
		if o.User != nil {
			customer = o.User.Username
		}
		for _, it := range o.Items {
			lineTotal := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)

			row := sheet.AddRow()
			row.AddCell().SetValue(o.ID)
			row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
			row.AddCell().SetValue(customer)
			row.AddCell().SetValue(it.ProductName)
			row.AddCell().SetFloat(it.Price)
			row.AddCell().SetInt(it.Quantity)
			row.AddCell().SetFloat(lineTotal.InexactFloat64())
			row.AddCell().SetFloat(o.Subtotal)
			row.AddCell().SetFloat(o.Tax)
			row.AddCell().SetFloat(o.TotalPrice)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write sales workbook: %w", err)
	}
	return nil
}
