package allocator

import (
	"testing"

	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapTables(t *testing.T) {
	available := []Availability{
		{TableTypeID: 1, CapacityPerTable: 4, Remaining: 2},
		{TableTypeID: 2, CapacityPerTable: 5, Remaining: 3},
	}

	assignments, err := MapTables([]int{4, 5}, available)

	require.NoError(t, err)
	assert.Equal(t, []Assignment{
		{TableTypeID: 1, GuestsAssigned: 4},
		{TableTypeID: 2, GuestsAssigned: 5},
	}, assignments)

	rows := BookedTables(assignments)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].TablesBooked)
	assert.Equal(t, 1, rows[1].TablesBooked)

	// снимок доступности не меняется
	assert.Equal(t, 2, available[0].Remaining)
	assert.Equal(t, 3, available[1].Remaining)
}

func TestMapTablesPrefersMostRemaining(t *testing.T) {
	available := []Availability{
		{TableTypeID: 10, CapacityPerTable: 4, Remaining: 1},
		{TableTypeID: 11, CapacityPerTable: 4, Remaining: 3},
	}

	assignments, err := MapTables([]int{4, 4, 4, 4}, available)

	require.NoError(t, err)
	ids := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.TableTypeID)
	}
	assert.Equal(t, []int64{11, 11, 11, 10}, ids)

	rows := BookedTables(assignments)
	assert.Equal(t, []*entity.BookedTable{
		{TableTypeID: 11, TablesBooked: 3, Guests: 12},
		{TableTypeID: 10, TablesBooked: 1, Guests: 4},
	}, rows)
}

func TestMapTablesExhausted(t *testing.T) {
	tests := []struct {
		name        string
		combination []int
		available   []Availability
	}{
		{
			name:        "more tables than remaining",
			combination: []int{4, 4, 4},
			available:   []Availability{{TableTypeID: 1, CapacityPerTable: 4, Remaining: 2}},
		},
		{
			name:        "capacity not in catalog",
			combination: []int{6},
			available:   []Availability{{TableTypeID: 1, CapacityPerTable: 4, Remaining: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapTables(tt.combination, tt.available)

			assert.ErrorIs(t, err, entity.ErrMappingExhausted)
		})
	}
}

func TestMapTablesNeverExceedsRemaining(t *testing.T) {
	available := []Availability{
		{TableTypeID: 1, CapacityPerTable: 2, Remaining: 2},
		{TableTypeID: 2, CapacityPerTable: 2, Remaining: 1},
		{TableTypeID: 3, CapacityPerTable: 6, Remaining: 1},
	}

	for subset := range Combinations(Flatten(available)) {
		assignments, err := MapTables(subset, available)
		require.NoError(t, err, "subset=%v", subset)

		used := map[int64]int{}
		for _, row := range BookedTables(assignments) {
			used[row.TableTypeID] += row.TablesBooked
		}
		for _, a := range available {
			assert.LessOrEqual(t, used[a.TableTypeID], a.Remaining)
		}
	}
}
