package allocator

import (
	"github.com/ds124wfegd/tablebooker/internal/entity"
)

// Availability is the remaining stock of one table type for a slot.
type Availability struct {
	TableTypeID      int64 `json:"table_type_id"`
	CapacityPerTable int   `json:"capacity_per_table"`
	Remaining        int   `json:"remaining"`
}

// Aggregate subtracts the tables already committed for the slot from each
// type's quantity. Types with nothing left are dropped.
func Aggregate(types []*entity.TableType, booked []*entity.BookedTable) ([]Availability, error) {
	used := make(map[int64]int, len(booked))
	for _, row := range booked {
		used[row.TableTypeID] += row.TablesBooked
	}

	available := make([]Availability, 0, len(types))
	for _, t := range types {
		remaining := t.Quantity - used[t.ID]
		if remaining <= 0 {
			continue
		}
		available = append(available, Availability{
			TableTypeID:      t.ID,
			CapacityPerTable: t.Capacity,
			Remaining:        remaining,
		})
	}

	if len(available) == 0 {
		return nil, entity.ErrNoMatchingTables
	}
	return available, nil
}

// Bounded caps each type at the number of its tables that seat guests on
// their own. A cover with more tables of one type than that is never optimal,
// so the search space stays proportional to the party size and not to stock.
func Bounded(available []Availability, guests int) []Availability {
	out := make([]Availability, len(available))
	for i, a := range available {
		out[i] = a
		if a.CapacityPerTable <= 0 || guests <= 0 {
			continue
		}
		if need := (guests + a.CapacityPerTable - 1) / a.CapacityPerTable; a.Remaining > need {
			out[i].Remaining = need
		}
	}
	return out
}

// Flatten expands availability into one seat-capacity entry per physical table.
func Flatten(available []Availability) []int {
	total := 0
	for _, a := range available {
		total += a.Remaining
	}

	seats := make([]int, 0, total)
	for _, a := range available {
		for i := 0; i < a.Remaining; i++ {
			seats = append(seats, a.CapacityPerTable)
		}
	}
	return seats
}
