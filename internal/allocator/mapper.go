package allocator

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

// Assignment is one physical table given to the party.
type Assignment struct {
	TableTypeID    int64 `json:"table_type_id"`
	GuestsAssigned int   `json:"guests_assigned"`
}

// MapTables turns a combination of capacities back into table types.
// It works on a private copy of available, so the snapshot is never touched.
// Within a capacity, the type with the most remaining tables is used first.
func MapTables(combination []int, available []Availability) ([]Assignment, error) {
	working := slices.Clone(available)

	groups := make(map[int][]int)
	for i, a := range working {
		groups[a.CapacityPerTable] = append(groups[a.CapacityPerTable], i)
	}
	for _, members := range groups {
		slices.SortStableFunc(members, func(a, b int) int {
			return cmp.Compare(working[b].Remaining, working[a].Remaining)
		})
	}

	assignments := make([]Assignment, 0, len(combination))
	for _, capacity := range combination {
		picked := -1
		for _, i := range groups[capacity] {
			if working[i].Remaining > 0 {
				picked = i
				break
			}
		}
		if picked == -1 {
			return nil, fmt.Errorf("%w: no table left with %d seats", entity.ErrMappingExhausted, capacity)
		}

		working[picked].Remaining--
		assignments = append(assignments, Assignment{
			TableTypeID:    working[picked].TableTypeID,
			GuestsAssigned: capacity,
		})
	}

	return assignments, nil
}

// BookedTables folds assignments into one row per table type, in first-use order.
func BookedTables(assignments []Assignment) []*entity.BookedTable {
	rows := make([]*entity.BookedTable, 0, len(assignments))
	byType := make(map[int64]*entity.BookedTable, len(assignments))

	for _, a := range assignments {
		row, ok := byType[a.TableTypeID]
		if !ok {
			row = &entity.BookedTable{TableTypeID: a.TableTypeID}
			byType[a.TableTypeID] = row
			rows = append(rows, row)
		}
		row.TablesBooked++
		row.Guests += a.GuestsAssigned
	}

	return rows
}
