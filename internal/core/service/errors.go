package service

import "errors"

var (
	// ErrValidation marks input rejected before any store call is made.
	ErrValidation = errors.New("validation failed")

	ErrNotFound             = errors.New("not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrDuplicateEntry       = errors.New("availability entry already exists")
	ErrDuplicateRequest     = errors.New("duplicate request")
	ErrReferenced           = errors.New("entity is referenced by ledger entries")
	ErrInvalidTransition    = errors.New("shipment status cannot move backward")
	ErrBadCredentials       = errors.New("password does not match")

	// ErrShipmentCreateFailed means the composite shipment write failed and
	// the pre-operation state was restored.
	ErrShipmentCreateFailed = errors.New("shipment create failed")

	// ErrPartialShipment means a line write failed and the compensating
	// header delete also failed: the header is persisted with fewer lines
	// than intended and needs manual reconciliation.
	ErrPartialShipment = errors.New("partial shipment persisted")
)

func isInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientQuantity)
}
