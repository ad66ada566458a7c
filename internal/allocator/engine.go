package allocator

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/sirupsen/logrus"
)

const DefaultMaxBruteForceTables = 16

// Source is the read side the engine needs from storage. Implementations are
// expected to serve all reads from one consistent snapshot.
type Source interface {
	GetShop(ctx context.Context, shopID int64) (*entity.Shop, error)
	GetBookingsForSlot(ctx context.Context, shopID int64, date entity.Date, slotID int64, statuses []entity.BookingStatus) ([]*entity.Booking, error)
	GetTableTypesForShop(ctx context.Context, shopID int64, filter entity.TableFilter) ([]*entity.TableType, error)
	GetBookedTablesForBookings(ctx context.Context, bookingIDs []int64) ([]*entity.BookedTable, error)
}

type Request struct {
	ShopID int64
	SlotID int64
	Date   entity.Date
	Guests int
	Filter entity.TableFilter
}

// Plan is the outcome of one allocation pass, nothing is persisted yet.
type Plan struct {
	RemainingSeats int                   `json:"remaining_seats"`
	Available      []Availability        `json:"available"`
	Combination    []int                 `json:"combination"`
	Waste          int                   `json:"waste"`
	Assignments    []Assignment          `json:"assignments"`
	Tables         []*entity.BookedTable `json:"tables"`
	Fallback       bool                  `json:"fallback"`
}

type Engine struct {
	maxBruteForce int
	log           *logrus.Entry
}

func NewEngine(maxBruteForce int) *Engine {
	if maxBruteForce <= 0 || maxBruteForce > MaxEnumerableTables {
		maxBruteForce = DefaultMaxBruteForceTables
	}
	return &Engine{
		maxBruteForce: maxBruteForce,
		log:           logrus.WithField("component", "allocator"),
	}
}

// Plan runs capacity gate, catalog filter, availability, combination search
// and table mapping. The first failing stage ends the pass.
func (e *Engine) Plan(ctx context.Context, src Source, req Request) (*Plan, error) {
	if req.Guests <= 0 {
		return nil, fmt.Errorf("%w: guests must be positive", entity.ErrInvalidInput)
	}

	shop, err := src.GetShop(ctx, req.ShopID)
	if err != nil {
		return nil, err
	}

	existing, err := src.GetBookingsForSlot(ctx, req.ShopID, req.Date, req.SlotID, entity.LiveStatuses)
	if err != nil {
		return nil, err
	}

	remaining, err := CheckCapacity(shop.Capacity, existing, req.Guests)
	if err != nil {
		return nil, err
	}

	types, err := src.GetTableTypesForShop(ctx, req.ShopID, req.Filter)
	if err != nil {
		return nil, err
	}
	types = FilterCatalog(types, req.Filter)

	ids := make([]int64, 0, len(existing))
	for _, b := range existing {
		ids = append(ids, b.ID)
	}

	var booked []*entity.BookedTable
	if len(ids) > 0 {
		booked, err = src.GetBookedTablesForBookings(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	available, err := Aggregate(types, booked)
	if err != nil {
		return nil, err
	}

	combination, fallback, err := e.search(Flatten(Bounded(available, req.Guests)), req.Guests)
	if err != nil {
		return nil, err
	}

	assignments, err := MapTables(combination, available)
	if err != nil {
		return nil, err
	}

	return &Plan{
		RemainingSeats: remaining,
		Available:      available,
		Combination:    combination,
		Waste:          Waste(combination, req.Guests),
		Assignments:    assignments,
		Tables:         BookedTables(assignments),
		Fallback:       fallback,
	}, nil
}

func (e *Engine) search(seats []int, guests int) ([]int, bool, error) {
	if len(seats) <= e.maxBruteForce {
		best, err := SelectBest(Combinations(seats), guests)
		return best, false, err
	}

	e.log.WithFields(logrus.Fields{
		"tables": len(seats),
		"limit":  e.maxBruteForce,
		"guests": guests,
	}).Warn("Table catalog too large for brute force, using subset-sum search")

	best, err := MinimalCover(seats, guests)
	return best, true, err
}
