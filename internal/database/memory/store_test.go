package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/allocator"
	repository "github.com/ds124wfegd/tablebooker/internal/database/postgres"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo *repository.Repository
	shop *entity.Shop
	slot *entity.AvailableSlot
	date entity.Date
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := NewStore().Repository()

	shop := &entity.Shop{Name: "Corner", Capacity: 20, OpensAt: "10:00", ClosesAt: "12:00", AverageStayMinutes: 120}
	slot := &entity.AvailableSlot{StartTime: "10:00", EndTime: "12:00", Capacity: 20}
	require.NoError(t, repo.Shops.CreateWithSlots(ctx, shop, []*entity.AvailableSlot{slot}))
	require.NoError(t, repo.TableTypes.Create(ctx, &entity.TableType{ShopID: shop.ID, Capacity: 4, Quantity: 2}))

	date, err := entity.ParseDate("2026-11-02")
	require.NoError(t, err)

	return &fixture{repo: repo, shop: shop, slot: slot, date: date}
}

func (f *fixture) booking(code string, guests int) *entity.Booking {
	return &entity.Booking{
		ShopID:      f.shop.ID,
		SlotID:      f.slot.ID,
		Date:        f.date,
		Guests:      guests,
		Status:      entity.BookingStatusPending,
		BookingCode: code,
		Tables:      []*entity.BookedTable{{TableTypeID: 1, TablesBooked: 1, Guests: guests}},
	}
}

func (f *fixture) insert(ctx context.Context, b *entity.Booking) error {
	return f.repo.Allocation.InSlotTx(ctx, f.shop.ID, f.date, f.slot.ID, func(ctx context.Context, tx repository.AllocationTx) error {
		return tx.Insert(ctx, b)
	})
}

func TestInSlotTxCommitsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.booking("AAAA1111", 4)
	require.NoError(t, f.insert(ctx, b))
	require.NotZero(t, b.ID)

	stored, err := f.repo.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Guests)
	require.Len(t, stored.Tables, 1)
	assert.Equal(t, b.ID, stored.Tables[0].BookingID)

	// изменение копии не затрагивает хранилище
	stored.Guests = 100
	again, err := f.repo.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, again.Guests)
}

func TestInSlotTxNothingVisibleOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.repo.Allocation.InSlotTx(ctx, f.shop.ID, f.date, f.slot.ID, func(ctx context.Context, tx repository.AllocationTx) error {
		require.NoError(t, tx.Insert(ctx, f.booking("AAAA1111", 4)))
		return entity.ErrMappingExhausted
	})
	require.ErrorIs(t, err, entity.ErrMappingExhausted)

	bookings, err := f.repo.Bookings.GetForSlot(ctx, f.shop.ID, f.date, f.slot.ID)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestInSlotTxDetectsConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.repo.Allocation.InSlotTx(ctx, f.shop.ID, f.date, f.slot.ID, func(ctx context.Context, tx repository.AllocationTx) error {
		_, err := tx.GetBookingsForSlot(ctx, f.shop.ID, f.date, f.slot.ID, entity.LiveStatuses)
		require.NoError(t, err)

		// другой запрос успевает записать бронь в тот же слот
		require.NoError(t, f.insert(ctx, f.booking("BBBB2222", 2)))

		return tx.Insert(ctx, f.booking("AAAA1111", 4))
	})

	assert.ErrorIs(t, err, entity.ErrConcurrentConflict)
}

func TestInSlotTxOtherDateDoesNotConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := entity.ParseDate("2026-11-03")
	require.NoError(t, err)

	err = f.repo.Allocation.InSlotTx(ctx, f.shop.ID, f.date, f.slot.ID, func(ctx context.Context, tx repository.AllocationTx) error {
		b := f.booking("BBBB2222", 2)
		b.Date = other
		require.NoError(t, f.repo.Allocation.InSlotTx(ctx, f.shop.ID, other, f.slot.ID, func(ctx context.Context, tx repository.AllocationTx) error {
			return tx.Insert(ctx, b)
		}))
		return tx.Insert(ctx, f.booking("AAAA1111", 4))
	})

	assert.NoError(t, err)
}

func TestInSlotTxDuplicatePendingCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.insert(ctx, f.booking("SAME0000", 2)))

	err := f.insert(ctx, f.booking("SAME0000", 2))
	assert.ErrorIs(t, err, entity.ErrConcurrentConflict)

	taken := false
	err = f.repo.Allocation.InSlotTx(ctx, f.shop.ID, f.date, f.slot.ID, func(ctx context.Context, tx repository.AllocationTx) error {
		var err error
		taken, err = tx.CodeExistsAmongPending(ctx, "SAME0000")
		return err
	})
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestInSlotTxUnknownShopOrSlot(t *testing.T) {
	f := newFixture(t)
	noop := func(context.Context, repository.AllocationTx) error { return nil }

	err := f.repo.Allocation.InSlotTx(context.Background(), 999, f.date, f.slot.ID, noop)
	assert.ErrorIs(t, err, entity.ErrShopNotFound)

	err = f.repo.Allocation.InSlotTx(context.Background(), f.shop.ID, f.date, 999, noop)
	assert.ErrorIs(t, err, entity.ErrSlotNotFound)
}

func TestReadSlotSeesCommittedBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.insert(ctx, f.booking("READ0001", 3)))

	var live []*entity.Booking
	err := f.repo.Allocation.ReadSlot(ctx, f.shop.ID, f.date, f.slot.ID, func(ctx context.Context, src allocator.Source) error {
		var err error
		live, err = src.GetBookingsForSlot(ctx, f.shop.ID, f.date, f.slot.ID, entity.LiveStatuses)
		return err
	})

	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "READ0001", live[0].BookingCode)
}

func TestReadSlotWriterDuringReadIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.repo.Allocation.ReadSlot(ctx, f.shop.ID, f.date, f.slot.ID, func(ctx context.Context, src allocator.Source) error {
		return f.insert(ctx, f.booking("LATE0001", 2))
	})
	assert.ErrorIs(t, err, entity.ErrConcurrentConflict)

	// следующая попытка видит уже закоммиченное состояние
	err = f.repo.Allocation.ReadSlot(ctx, f.shop.ID, f.date, f.slot.ID, func(context.Context, allocator.Source) error { return nil })
	assert.NoError(t, err)
}

func TestReadSlotUnknownShopOrSlot(t *testing.T) {
	f := newFixture(t)
	noop := func(context.Context, allocator.Source) error { return nil }

	err := f.repo.Allocation.ReadSlot(context.Background(), 999, f.date, f.slot.ID, noop)
	assert.ErrorIs(t, err, entity.ErrShopNotFound)

	err = f.repo.Allocation.ReadSlot(context.Background(), f.shop.ID, f.date, 999, noop)
	assert.ErrorIs(t, err, entity.ErrSlotNotFound)
}

func TestTransitionAndCodeLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.booking("CODE0001", 2)
	require.NoError(t, f.insert(ctx, first))

	cancelled, err := f.repo.Bookings.Transition(ctx, first.ID,
		[]entity.BookingStatus{entity.BookingStatusPending}, entity.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)

	_, err = f.repo.Bookings.Transition(ctx, first.ID,
		[]entity.BookingStatus{entity.BookingStatusPending}, entity.BookingStatusConfirmed)
	assert.ErrorIs(t, err, entity.ErrInvalidBookingStatus)

	// освободившийся код можно выдать снова
	second := f.booking("CODE0001", 3)
	require.NoError(t, f.insert(ctx, second))

	found, err := f.repo.Bookings.GetByCode(ctx, "CODE0001")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	_, err = f.repo.Bookings.GetByCode(ctx, "NOPE0000")
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)
}

func TestExpirePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.booking("PEND0001", 2)
	confirmed := f.booking("CONF0001", 2)
	require.NoError(t, f.insert(ctx, pending))
	require.NoError(t, f.insert(ctx, confirmed))
	_, err := f.repo.Bookings.Transition(ctx, confirmed.ID,
		[]entity.BookingStatus{entity.BookingStatusPending}, entity.BookingStatusConfirmed)
	require.NoError(t, err)

	none, err := f.repo.Bookings.ExpirePending(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	expired, err := f.repo.Bookings.ExpirePending(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, pending.ID, expired[0].ID)
	assert.Equal(t, entity.BookingStatusCancelled, expired[0].Status)
}

func TestReplaceHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.booking("LIVE0001", 2)
	require.NoError(t, f.insert(ctx, b))

	update := *f.shop
	update.OpensAt = "09:00"
	err := f.repo.Shops.ReplaceHours(ctx, &update, []*entity.AvailableSlot{{StartTime: "09:00", EndTime: "11:00", Capacity: 20}})
	require.ErrorIs(t, err, entity.ErrShopHasBookings)

	_, err = f.repo.Bookings.Transition(ctx, b.ID, entity.LiveStatuses, entity.BookingStatusCancelled)
	require.NoError(t, err)

	err = f.repo.Shops.ReplaceHours(ctx, &update, []*entity.AvailableSlot{
		{StartTime: "09:00", EndTime: "11:00", Capacity: 20},
		{StartTime: "11:00", EndTime: "13:00", Capacity: 20},
	})
	require.NoError(t, err)

	slots, err := f.repo.Shops.GetSlots(ctx, f.shop.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)

	_, err = f.repo.Shops.GetSlot(ctx, f.shop.ID, f.slot.ID)
	assert.ErrorIs(t, err, entity.ErrSlotNotFound)
}

func TestKeyedLockerSerialises(t *testing.T) {
	locker := NewKeyedLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "slot:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, locker.locks)
}

func TestKeyedLockerRespectsContext(t *testing.T) {
	locker := NewKeyedLocker()
	unlock, err := locker.Lock(context.Background(), "slot:1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "slot:1")
	assert.ErrorIs(t, err, entity.ErrConcurrentConflict)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Lock(context.Background(), "slot:2")
	require.NoError(t, err)
	other()
}
