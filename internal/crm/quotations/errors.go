package quotations

import "errors"

var (
	// ErrNotFound indicates the quotation does not exist or is deleted.
	ErrNotFound = errors.New("quotation not found")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidPrice indicates a negative monetary input.
	ErrInvalidPrice = errors.New("price must not be negative")
	// ErrInvalidRate indicates a tax or discount rate outside [0,100].
	ErrInvalidRate = errors.New("rate must be between 0 and 100")
	// ErrDiscountExceedsTotal indicates the document-level discount
	// would drive the total negative.
	ErrDiscountExceedsTotal = errors.New("discount exceeds document total")
	// ErrInvalidTransition indicates a status transition not permitted
	// by the lifecycle table, including losing a concurrent
	// check-and-set race.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrQuotationLocked indicates an item edit on a non-DRAFT quotation.
	ErrQuotationLocked = errors.New("quotation is not editable")
	// ErrNumberingUnavailable indicates the sequence counter could not
	// be read; the surrounding create must abort.
	ErrNumberingUnavailable = errors.New("quotation numbering unavailable")
)
