package cart

import "marketplace-be/internal/apperror"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = apperror.InvalidRequest("quantity must be greater than zero")
	ErrUserRequired    = apperror.Unauthorized("user not authenticated")

	// -- Availability --
	ErrVariantUnavailable = apperror.InvalidRequest("product is not available")
	ErrInsufficientStock  = apperror.InvalidRequest("insufficient stock")

	// -- Resource State --
	ErrCartItemNotFound  = apperror.NotFound("cart item not found")
	ErrVendorMismatch    = apperror.Conflict("cart already contains items from another vendor")
	ErrCartAlreadyExists = apperror.Conflict("cart was created concurrently, retry the request")
)

// -- Constants (External Systems) --
const PgUniqueViolation = "23505"
