package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/lib/pq"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, shop_id, slot_id, booking_date, guests, status, booking_code,
	customer_name, customer_email, customer_phone, note, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.ShopID,
		&booking.SlotID,
		&booking.Date,
		&booking.Guests,
		&booking.Status,
		&booking.BookingCode,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&booking.CustomerPhone,
		&booking.Note,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func scanBookings(rows *sql.Rows) ([]*entity.Booking, error) {
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, classify("scan booking", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate bookings", err)
	}
	return bookings, nil
}

// queryBookedTables loads table rows for the given bookings
func queryBookedTables(ctx context.Context, q queryer, bookingIDs []int64) ([]*entity.BookedTable, error) {
	query := `
		SELECT id, booking_id, table_type_id, tables_booked, guests
		FROM booked_tables
		WHERE booking_id = ANY($1)
		ORDER BY id
	`

	rows, err := q.QueryContext(ctx, query, pq.Array(bookingIDs))
	if err != nil {
		return nil, classify("query booked tables", err)
	}
	defer rows.Close()

	var tables []*entity.BookedTable
	for rows.Next() {
		var t entity.BookedTable
		if err := rows.Scan(&t.ID, &t.BookingID, &t.TableTypeID, &t.TablesBooked, &t.Guests); err != nil {
			return nil, classify("scan booked table", err)
		}
		tables = append(tables, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate booked tables", err)
	}

	return tables, nil
}

func attachTables(ctx context.Context, q queryer, bookings []*entity.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(bookings))
	byID := make(map[int64]*entity.Booking, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
		byID[b.ID] = b
	}

	tables, err := queryBookedTables(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if b, ok := byID[t.BookingID]; ok {
			b.Tables = append(b.Tables, t)
		}
	}
	return nil
}

// GetByID retrieves a booking by its ID
func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, classify("get booking", err)
	}

	if err := attachTables(ctx, r.db, []*entity.Booking{booking}); err != nil {
		return nil, err
	}
	return booking, nil
}

// GetByCode prefers the pending holder of a code, codes are reused once released
func (r *bookingRepository) GetByCode(ctx context.Context, code string) (*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_code = $1
		ORDER BY (status = 'pending') DESC, created_at DESC
		LIMIT 1
	`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, classify("get booking by code", err)
	}

	if err := attachTables(ctx, r.db, []*entity.Booking{booking}); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *bookingRepository) GetForSlot(ctx context.Context, shopID int64, date entity.Date, slotID int64) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE shop_id = $1 AND booking_date = $2 AND slot_id = $3
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, shopID, date, slotID)
	if err != nil {
		return nil, classify("query bookings by slot", err)
	}
	bookings, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}

	if err := attachTables(ctx, r.db, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// Transition changes the status under a row lock so two callers cannot both
// move the same booking.
func (r *bookingRepository) Transition(ctx context.Context, id int64, from []entity.BookingStatus, to entity.BookingStatus) (*entity.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin transaction", err)
	}
	defer tx.Rollback()

	var current entity.BookingStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, classify("get current booking", err)
	}

	if !slices.Contains(from, current) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", entity.ErrInvalidBookingStatus, current, to)
	}

	_, err = tx.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
		to, time.Now().UTC(), id)
	if err != nil {
		return nil, classify("update booking status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit transaction", err)
	}

	return r.GetByID(ctx, id)
}

func (r *bookingRepository) ExpirePending(ctx context.Context, before time.Time) ([]*entity.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = $2
		WHERE status = 'pending' AND created_at < $1
		RETURNING ` + bookingColumns

	rows, err := r.db.QueryContext(ctx, query, before, time.Now().UTC())
	if err != nil {
		return nil, classify("expire pending bookings", err)
	}
	bookings, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}

	if err := attachTables(ctx, r.db, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}
