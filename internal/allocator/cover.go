package allocator

import (
	"fmt"
	"math"
	"slices"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

// MinimalCover finds a subset with the fewest tables and, among those, the
// least waste, without enumerating the power set. It runs a 0/1 subset-sum
// over sums below guests+max(seats): a cover reaching that far always has a
// table that can be dropped, so it is never optimal.
//
// The chosen subset has the same (tables, waste) score as SelectBest over
// Combinations, though it may be a different subset when several tie.
func MinimalCover(seats []int, guests int) ([]int, error) {
	if guests <= 0 {
		return nil, fmt.Errorf("%w: guests must be positive", entity.ErrInvalidInput)
	}

	total := sum(seats)
	if len(seats) == 0 || total < guests {
		return nil, fmt.Errorf("%w: %d seats cannot hold %d guests",
			entity.ErrNoFeasibleCombination, total, guests)
	}

	// one table seating everybody beats any multi-table cover
	single := -1
	for _, c := range seats {
		if c >= guests && (single == -1 || c < single) {
			single = c
		}
	}
	if single != -1 {
		return []int{single}, nil
	}

	limit := guests + slices.Max(seats) - 1
	if limit > total {
		limit = total
	}

	const unreachable = math.MaxInt
	tables := make([]int, limit+1)
	for s := 1; s <= limit; s++ {
		tables[s] = unreachable
	}

	taken := make([][]bool, len(seats))
	for i, c := range seats {
		taken[i] = make([]bool, limit+1)
		if c <= 0 {
			continue
		}
		for s := limit; s >= c; s-- {
			if tables[s-c] == unreachable {
				continue
			}
			if tables[s-c]+1 < tables[s] {
				tables[s] = tables[s-c] + 1
				taken[i][s] = true
			}
		}
	}

	target := -1
	for s := guests; s <= limit; s++ {
		if tables[s] == unreachable {
			continue
		}
		if target == -1 || tables[s] < tables[target] {
			target = s
		}
	}
	if target == -1 {
		return nil, fmt.Errorf("%w: no subset seats %d guests", entity.ErrNoFeasibleCombination, guests)
	}

	picked := make([]int, 0, tables[target])
	for i, s := len(seats)-1, target; i >= 0 && s > 0; i-- {
		if taken[i][s] {
			picked = append(picked, i)
			s -= seats[i]
		}
	}
	slices.Reverse(picked)

	cover := make([]int, len(picked))
	for j, i := range picked {
		cover[j] = seats[i]
	}
	return cover, nil
}
