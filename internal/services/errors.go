package services

import "errors"

// Domain errors. All are recoverable user conditions; handlers turn them
// into a redirect with a notice.
var (
	ErrDuplicateUsername     = errors.New("username already exists")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrProductNotFound       = errors.New("product not found")
	ErrCartLineNotFound      = errors.New("cart line not found")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrIncompletePaymentInfo = errors.New("incomplete payment information")
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrNotAuthorized         = errors.New("not authorized")
)
