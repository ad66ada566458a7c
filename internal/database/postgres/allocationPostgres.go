package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/allocator"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/lib/pq"
)

type allocationStore struct {
	db *sql.DB
}

func NewAllocationStore(db *sql.DB) AllocationStore {
	return &allocationStore{db: db}
}

// InSlotTx opens a SERIALIZABLE transaction, takes the shop row FOR SHARE and
// the slot row FOR UPDATE, then hands the transaction to fn.
func (s *allocationStore) InSlotTx(ctx context.Context, shopID int64, date entity.Date, slotID int64, fn func(ctx context.Context, tx AllocationTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM shops WHERE id = $1 FOR SHARE`, shopID).Scan(&id)
	if err == sql.ErrNoRows {
		return entity.ErrShopNotFound
	}
	if err != nil {
		return classify("lock shop", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT id FROM available_slots WHERE id = $1 AND shop_id = $2 FOR UPDATE`, slotID, shopID).Scan(&id)
	if err == sql.ErrNoRows {
		return entity.ErrSlotNotFound
	}
	if err != nil {
		return classify("lock slot", err)
	}

	if err := fn(ctx, &allocationTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// ReadSlot runs fn in a READ ONLY REPEATABLE READ transaction: one snapshot
// for every read and no row locks.
func (s *allocationStore) ReadSlot(ctx context.Context, shopID int64, date entity.Date, slotID int64, fn func(ctx context.Context, src allocator.Source) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return classify("begin read transaction", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM available_slots WHERE id = $1 AND shop_id = $2`, slotID, shopID).Scan(&id)
	if err == sql.ErrNoRows {
		// different error for a missing shop and a missing slot
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM shops WHERE id = $1)`, shopID).Scan(&exists); err != nil {
			return classify("check shop", err)
		}
		if !exists {
			return entity.ErrShopNotFound
		}
		return entity.ErrSlotNotFound
	}
	if err != nil {
		return classify("read slot", err)
	}

	if err := fn(ctx, &allocationTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("commit read transaction", err)
	}
	return nil
}

type allocationTx struct {
	tx *sql.Tx
}

func (a *allocationTx) GetShop(ctx context.Context, shopID int64) (*entity.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops WHERE id = $1`
	return scanShop(a.tx.QueryRowContext(ctx, query, shopID))
}

func (a *allocationTx) GetBookingsForSlot(ctx context.Context, shopID int64, date entity.Date, slotID int64, statuses []entity.BookingStatus) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE shop_id = $1 AND booking_date = $2 AND slot_id = $3 AND status = ANY($4)
		ORDER BY id
	`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := a.tx.QueryContext(ctx, query, shopID, date, slotID, pq.Array(names))
	if err != nil {
		return nil, classify("query slot bookings", err)
	}
	return scanBookings(rows)
}

func (a *allocationTx) GetTableTypesForShop(ctx context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error) {
	return queryTableTypes(ctx, a.tx, shopID, filter)
}

func (a *allocationTx) GetBookedTablesForBookings(ctx context.Context, bookingIDs []int64) ([]*entity.BookedTable, error) {
	return queryBookedTables(ctx, a.tx, bookingIDs)
}

func (a *allocationTx) CodeExistsAmongPending(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_code = $1 AND status = 'pending')`
	if err := a.tx.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, classify("check booking code", err)
	}
	return exists, nil
}

// Insert writes the booking and its table rows. The partial unique index on
// pending codes turns a racing duplicate into ErrConcurrentConflict.
func (a *allocationTx) Insert(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (
			shop_id, slot_id, booking_date, guests, status, booking_code,
			customer_name, customer_email, customer_phone, note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now().UTC()
	err := a.tx.QueryRowContext(ctx, query,
		booking.ShopID,
		booking.SlotID,
		booking.Date,
		booking.Guests,
		booking.Status,
		booking.BookingCode,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		booking.Note,
		now,
		now,
	).Scan(&booking.ID)
	if err != nil {
		return classify("create booking", err)
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now

	query = `
		INSERT INTO booked_tables (booking_id, table_type_id, tables_booked, guests)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for _, t := range booking.Tables {
		t.BookingID = booking.ID
		err := a.tx.QueryRowContext(ctx, query, t.BookingID, t.TableTypeID, t.TablesBooked, t.Guests).Scan(&t.ID)
		if err != nil {
			return classify("create booked table", err)
		}
	}

	return nil
}
