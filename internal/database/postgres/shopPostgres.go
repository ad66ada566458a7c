package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

type shopRepository struct {
	db *sql.DB
}

func NewShopRepository(db *sql.DB) ShopRepository {
	return &shopRepository{db: db}
}

const shopColumns = `id, merchant_id, name, address, city, capacity, opens_at, closes_at,
	average_stay_minutes, created_at, updated_at`

// CreateWithSlots inserts the shop and its generated slots in one transaction
func (r *shopRepository) CreateWithSlots(ctx context.Context, shop *entity.Shop, slots []*entity.AvailableSlot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO shops (
			merchant_id, name, address, city, capacity, opens_at, closes_at,
			average_stay_minutes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx, query,
		shop.MerchantID,
		shop.Name,
		shop.Address,
		shop.City,
		shop.Capacity,
		shop.OpensAt,
		shop.ClosesAt,
		shop.AverageStayMinutes,
		now,
		now,
	).Scan(&shop.ID)
	if err != nil {
		return classify("create shop", err)
	}
	shop.CreatedAt = now
	shop.UpdatedAt = now

	if err := insertSlots(ctx, tx, shop.ID, slots); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

func insertSlots(ctx context.Context, tx *sql.Tx, shopID int64, slots []*entity.AvailableSlot) error {
	query := `
		INSERT INTO available_slots (shop_id, start_time, end_time, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for _, slot := range slots {
		slot.ShopID = shopID
		err := tx.QueryRowContext(ctx, query, shopID, slot.StartTime, slot.EndTime, slot.Capacity).Scan(&slot.ID)
		if err != nil {
			return classify("create slot", err)
		}
	}
	return nil
}

func (r *shopRepository) GetByID(ctx context.Context, id int64) (*entity.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops WHERE id = $1`
	return scanShop(r.db.QueryRowContext(ctx, query, id))
}

func scanShop(row *sql.Row) (*entity.Shop, error) {
	var shop entity.Shop
	err := row.Scan(
		&shop.ID,
		&shop.MerchantID,
		&shop.Name,
		&shop.Address,
		&shop.City,
		&shop.Capacity,
		&shop.OpensAt,
		&shop.ClosesAt,
		&shop.AverageStayMinutes,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrShopNotFound
	}
	if err != nil {
		return nil, classify("get shop", err)
	}
	return &shop, nil
}

// ReplaceHours updates opening hours and regenerates the slots.
// Old slot ids stay on historic bookings, so slots carry no foreign key from bookings.
func (r *shopRepository) ReplaceHours(ctx context.Context, shop *entity.Shop, slots []*entity.AvailableSlot) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback()

	var live int
	query := `SELECT COUNT(*) FROM bookings WHERE shop_id = $1 AND status IN ('pending', 'confirmed')`
	if err := tx.QueryRowContext(ctx, query, shop.ID).Scan(&live); err != nil {
		return classify("count live bookings", err)
	}
	if live > 0 {
		return fmt.Errorf("%w: %d live bookings", entity.ErrShopHasBookings, live)
	}

	query = `
		UPDATE shops
		SET capacity = $1, opens_at = $2, closes_at = $3, average_stay_minutes = $4, updated_at = $5
		WHERE id = $6
	`
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, query,
		shop.Capacity, shop.OpensAt, shop.ClosesAt, shop.AverageStayMinutes, now, shop.ID)
	if err != nil {
		return classify("update shop hours", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify("get rows affected", err)
	}
	if rowsAffected == 0 {
		return entity.ErrShopNotFound
	}
	shop.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, `DELETE FROM available_slots WHERE shop_id = $1`, shop.ID); err != nil {
		return classify("delete slots", err)
	}
	if err := insertSlots(ctx, tx, shop.ID, slots); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

func (r *shopRepository) GetSlots(ctx context.Context, shopID int64) ([]*entity.AvailableSlot, error) {
	query := `
		SELECT id, shop_id, start_time, end_time, capacity
		FROM available_slots
		WHERE shop_id = $1
		ORDER BY start_time
	`

	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, classify("query slots", err)
	}
	defer rows.Close()

	var slots []*entity.AvailableSlot
	for rows.Next() {
		var slot entity.AvailableSlot
		if err := rows.Scan(&slot.ID, &slot.ShopID, &slot.StartTime, &slot.EndTime, &slot.Capacity); err != nil {
			return nil, classify("scan slot", err)
		}
		slots = append(slots, &slot)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate slots", err)
	}

	return slots, nil
}

func (r *shopRepository) GetSlot(ctx context.Context, shopID, slotID int64) (*entity.AvailableSlot, error) {
	query := `
		SELECT id, shop_id, start_time, end_time, capacity
		FROM available_slots
		WHERE id = $1 AND shop_id = $2
	`

	var slot entity.AvailableSlot
	err := r.db.QueryRowContext(ctx, query, slotID, shopID).Scan(
		&slot.ID, &slot.ShopID, &slot.StartTime, &slot.EndTime, &slot.Capacity)
	if err == sql.ErrNoRows {
		return nil, entity.ErrSlotNotFound
	}
	if err != nil {
		return nil, classify("get slot", err)
	}
	return &slot, nil
}
