package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/allocator"
	"github.com/ds124wfegd/tablebooker/internal/entity"
)

type ShopRepository interface {
	// Shop and its slots are written together
	CreateWithSlots(ctx context.Context, shop *entity.Shop, slots []*entity.AvailableSlot) error
	GetByID(ctx context.Context, id int64) (*entity.Shop, error)
	// ReplaceHours swaps the slot set, ErrShopHasBookings while live bookings exist
	ReplaceHours(ctx context.Context, shop *entity.Shop, slots []*entity.AvailableSlot) error

	GetSlots(ctx context.Context, shopID int64) ([]*entity.AvailableSlot, error)
	GetSlot(ctx context.Context, shopID, slotID int64) (*entity.AvailableSlot, error)
}

type TableTypeRepository interface {
	Create(ctx context.Context, tableType *entity.TableType) error
	GetByShop(ctx context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error)
}

type BookingRepository interface {
	// Bookings come back with their BookedTable rows
	GetByID(ctx context.Context, id int64) (*entity.Booking, error)
	GetByCode(ctx context.Context, code string) (*entity.Booking, error)
	GetForSlot(ctx context.Context, shopID int64, date entity.Date, slotID int64) ([]*entity.Booking, error)

	// Transition moves a booking to status `to` when its current status is one of `from`
	Transition(ctx context.Context, id int64, from []entity.BookingStatus, to entity.BookingStatus) (*entity.Booking, error)
	// ExpirePending cancels pending bookings created before the cutoff and returns them
	ExpirePending(ctx context.Context, before time.Time) ([]*entity.Booking, error)
}

// AllocationTx is the view of one slot transaction: the engine reads through
// it and Insert writes the booking with its table rows.
type AllocationTx interface {
	allocator.Source
	allocator.CodeChecker

	Insert(ctx context.Context, booking *entity.Booking) error
}

// AllocationStore runs fn in a transaction scoped to one (shop, date, slot).
// Nothing fn wrote is visible unless it returns nil. A concurrent writer on
// the same slot makes InSlotTx fail with entity.ErrConcurrentConflict.
type AllocationStore interface {
	InSlotTx(ctx context.Context, shopID int64, date entity.Date, slotID int64, fn func(ctx context.Context, tx AllocationTx) error) error
	// ReadSlot gives fn a consistent read-only snapshot of the slot without
	// taking row locks, so it never waits for or blocks InSlotTx.
	ReadSlot(ctx context.Context, shopID int64, date entity.Date, slotID int64, fn func(ctx context.Context, src allocator.Source) error) error
}

// Repository bundles the stores the services need.
type Repository struct {
	Shops      ShopRepository
	TableTypes TableTypeRepository
	Bookings   BookingRepository
	Allocation AllocationStore
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Shops:      NewShopRepository(db),
		TableTypes: NewTableTypeRepository(db),
		Bookings:   NewBookingRepository(db),
		Allocation: NewAllocationStore(db),
	}
}
