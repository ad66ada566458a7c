package entity

import "errors"

var (
	// Allocation errors
	ErrInsufficientShopCapacity = errors.New("insufficient shop capacity")
	ErrNoMatchingTables         = errors.New("no matching tables available")
	ErrNoFeasibleCombination    = errors.New("no feasible table combination")
	ErrMappingExhausted         = errors.New("table mapping exhausted")
	ErrCodeAllocationExhausted  = errors.New("booking code allocation exhausted")
	ErrConcurrentConflict       = errors.New("concurrent booking conflict")
	ErrPersistenceFailure       = errors.New("persistence failure")

	// Shop errors
	ErrShopNotFound      = errors.New("shop not found")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrTableTypeNotFound = errors.New("table type not found")
	ErrShopHasBookings   = errors.New("shop has live bookings")

	// Booking errors
	ErrBookingNotFound      = errors.New("booking not found")
	ErrInvalidBookingStatus = errors.New("invalid booking status")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)

// IsAllocationFailure reports errors that describe an unsatisfiable request
// rather than a broken system.
func IsAllocationFailure(err error) bool {
	return errors.Is(err, ErrInsufficientShopCapacity) ||
		errors.Is(err, ErrNoMatchingTables) ||
		errors.Is(err, ErrNoFeasibleCombination) ||
		errors.Is(err, ErrMappingExhausted)
}
