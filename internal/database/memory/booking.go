package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

type bookingRepository struct {
	s *Store
}

func (r *bookingRepository) GetByID(_ context.Context, id int64) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *bookingRepository) GetByCode(_ context.Context, code string) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *entity.Booking
	for _, b := range r.s.bookings {
		if b.BookingCode != code {
			continue
		}
		if found == nil || preferForCode(b, found) {
			found = b
		}
	}
	if found == nil {
		return nil, entity.ErrBookingNotFound
	}
	return cloneBooking(found), nil
}

// preferForCode puts the pending holder first, then the newest booking
func preferForCode(a, b *entity.Booking) bool {
	aPending := a.Status == entity.BookingStatusPending
	bPending := b.Status == entity.BookingStatusPending
	if aPending != bPending {
		return aPending
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *bookingRepository) GetForSlot(_ context.Context, shopID int64, date entity.Date, slotID int64) ([]*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.slotBookings(slotKey{shopID: shopID, date: date.String(), slotID: slotID}, nil), nil
}

// slotBookings returns copies ordered by id, nil statuses means all; mu must be held
func (s *Store) slotBookings(key slotKey, statuses []entity.BookingStatus) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range s.bookings {
		if keyOf(b) != key {
			continue
		}
		if statuses != nil && !slices.Contains(statuses, b.Status) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	slices.SortFunc(out, func(a, b *entity.Booking) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *bookingRepository) Transition(_ context.Context, id int64, from []entity.BookingStatus, to entity.BookingStatus) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	if !slices.Contains(from, b.Status) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", entity.ErrInvalidBookingStatus, b.Status, to)
	}

	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	r.s.slotVersions[keyOf(b)]++
	return cloneBooking(b), nil
}

func (r *bookingRepository) ExpirePending(_ context.Context, before time.Time) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	var expired []*entity.Booking
	for _, b := range r.s.bookings {
		if b.Status != entity.BookingStatusPending || !b.CreatedAt.Before(before) {
			continue
		}
		b.Status = entity.BookingStatusCancelled
		b.UpdatedAt = now
		r.s.slotVersions[keyOf(b)]++
		expired = append(expired, cloneBooking(b))
	}
	slices.SortFunc(expired, func(a, b *entity.Booking) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return expired, nil
}
