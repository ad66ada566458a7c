package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

type tableTypeRepository struct {
	db *sql.DB
}

func NewTableTypeRepository(db *sql.DB) TableTypeRepository {
	return &tableTypeRepository{db: db}
}

func (r *tableTypeRepository) Create(ctx context.Context, tableType *entity.TableType) error {
	query := `
		INSERT INTO table_types (
			shop_id, name, capacity, quantity, location_type, floor, roof_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		tableType.ShopID,
		tableType.Name,
		tableType.Capacity,
		tableType.Quantity,
		tableType.LocationType,
		tableType.Floor,
		tableType.RoofType,
		now,
	).Scan(&tableType.ID)
	if err != nil {
		return classify("create table type", err)
	}

	tableType.CreatedAt = now
	return nil
}

func (r *tableTypeRepository) GetByShop(ctx context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error) {
	return queryTableTypes(ctx, r.db, shopID, filter)
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryTableTypes(ctx context.Context, q queryer, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error) {
	query := `
		SELECT id, shop_id, name, capacity, quantity, location_type, floor, roof_type, created_at
		FROM table_types
		WHERE shop_id = $1
			AND ($2 = '' OR location_type = $2)
			AND ($3::INTEGER IS NULL OR floor = $3)
			AND ($4 = '' OR roof_type = $4)
		ORDER BY id
	`

	var floor sql.NullInt64
	if filter.Floor != nil {
		floor = sql.NullInt64{Int64: int64(*filter.Floor), Valid: true}
	}

	rows, err := q.QueryContext(ctx, query, shopID, filter.LocationType, floor, filter.RoofType)
	if err != nil {
		return nil, classify("query table types", err)
	}
	defer rows.Close()

	var types []*entity.TableType
	for rows.Next() {
		var t entity.TableType
		err := rows.Scan(
			&t.ID,
			&t.ShopID,
			&t.Name,
			&t.Capacity,
			&t.Quantity,
			&t.LocationType,
			&t.Floor,
			&t.RoofType,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, classify("scan table type", err)
		}
		types = append(types, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate table types", err)
	}

	return types, nil
}
