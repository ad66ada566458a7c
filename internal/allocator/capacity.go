package allocator

import (
	"fmt"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

// CheckCapacity compares the shop capacity with the guests already booked
// for the slot and returns the seats left before this request.
func CheckCapacity(shopCapacity int, existing []*entity.Booking, guests int) (int, error) {
	booked := 0
	for _, b := range existing {
		if b.Status.IsLive() {
			booked += b.Guests
		}
	}

	remaining := shopCapacity - booked
	if remaining < guests {
		return remaining, fmt.Errorf("%w: requested %d, remaining %d",
			entity.ErrInsufficientShopCapacity, guests, remaining)
	}
	return remaining, nil
}
