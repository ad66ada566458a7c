package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/allocator"
	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	"github.com/ds124wfegd/tablebooker/internal/entity"
)

type allocationStore struct {
	s *Store
}

func (a *allocationStore) begin(shopID int64, date entity.Date, slotID int64) (*allocationTx, error) {
	key := slotKey{shopID: shopID, date: date.String(), slotID: slotID}

	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	if err := a.s.requireShop(shopID); err != nil {
		return nil, err
	}
	if slot, ok := a.s.slots[slotID]; !ok || slot.ShopID != shopID {
		return nil, entity.ErrSlotNotFound
	}
	return &allocationTx{
		s:           a.s,
		key:         key,
		slotVersion: a.s.slotVersions[key],
		shopVersion: a.s.shopVersions[shopID],
	}, nil
}

func (a *allocationStore) InSlotTx(ctx context.Context, shopID int64, date entity.Date, slotID int64, fn func(ctx context.Context, tx repository.AllocationTx) error) error {
	tx, err := a.begin(shopID, date, slotID)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

// ReadSlot reports a conflict when a writer touched the slot while fn was
// reading, the caller retries for a consistent view.
func (a *allocationStore) ReadSlot(ctx context.Context, shopID int64, date entity.Date, slotID int64, fn func(ctx context.Context, src allocator.Source) error) error {
	tx, err := a.begin(shopID, date, slotID)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if !tx.unchanged() {
		return fmt.Errorf("%w: slot changed during read", entity.ErrConcurrentConflict)
	}
	return nil
}

type allocationTx struct {
	s           *Store
	key         slotKey
	slotVersion uint64
	shopVersion uint64

	pending []*entity.Booking
}

func (t *allocationTx) GetShop(_ context.Context, shopID int64) (*entity.Shop, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	shop, ok := t.s.shops[shopID]
	if !ok {
		return nil, entity.ErrShopNotFound
	}
	return cloneShop(shop), nil
}

func (t *allocationTx) GetBookingsForSlot(_ context.Context, shopID int64, date entity.Date, slotID int64, statuses []entity.BookingStatus) ([]*entity.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	key := slotKey{shopID: shopID, date: date.String(), slotID: slotID}
	if statuses == nil {
		statuses = []entity.BookingStatus{}
	}
	return t.s.slotBookings(key, statuses), nil
}

func (t *allocationTx) GetTableTypesForShop(_ context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	return t.s.tableTypesFor(shopID, filter), nil
}

func (t *allocationTx) GetBookedTablesForBookings(_ context.Context, bookingIDs []int64) ([]*entity.BookedTable, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	var rows []*entity.BookedTable
	for _, id := range bookingIDs {
		b, ok := t.s.bookings[id]
		if !ok {
			continue
		}
		for _, row := range b.Tables {
			c := *row
			rows = append(rows, &c)
		}
	}
	return rows, nil
}

func (t *allocationTx) CodeExistsAmongPending(_ context.Context, code string) (bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	return t.s.pendingCodeTaken(code), nil
}

// pendingCodeTaken must be called with mu held
func (s *Store) pendingCodeTaken(code string) bool {
	for _, b := range s.bookings {
		if b.Status == entity.BookingStatusPending && b.BookingCode == code {
			return true
		}
	}
	return false
}

// Insert buffers the booking until commit
func (t *allocationTx) Insert(_ context.Context, booking *entity.Booking) error {
	if keyOf(booking) != t.key {
		return fmt.Errorf("%w: booking is outside the locked slot", entity.ErrInvalidInput)
	}
	t.pending = append(t.pending, booking)
	return nil
}

// unchanged must be called with mu held
func (t *allocationTx) unchanged() bool {
	return t.s.slotVersions[t.key] == t.slotVersion && t.s.shopVersions[t.key.shopID] == t.shopVersion
}

func (t *allocationTx) commit() error {
	if len(t.pending) == 0 {
		return nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if !t.unchanged() {
		return fmt.Errorf("%w: slot changed during allocation", entity.ErrConcurrentConflict)
	}
	for _, b := range t.pending {
		if b.Status == entity.BookingStatusPending && t.s.pendingCodeTaken(b.BookingCode) {
			return fmt.Errorf("%w: booking code %s already pending", entity.ErrConcurrentConflict, b.BookingCode)
		}
	}

	now := time.Now().UTC()
	for _, b := range t.pending {
		b.ID = t.s.nextID()
		b.CreatedAt = now
		b.UpdatedAt = now
		for _, row := range b.Tables {
			row.ID = t.s.nextID()
			row.BookingID = b.ID
		}
		t.s.bookings[b.ID] = cloneBooking(b)
	}
	t.s.slotVersions[t.key]++
	return nil
}
