package allocator

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

func sum(seats []int) int {
	total := 0
	for _, s := range seats {
		total += s
	}
	return total
}

// Waste is the number of seats a combination leaves empty.
func Waste(combination []int, guests int) int {
	return sum(combination) - guests
}

// Feasible keeps the subsets that seat the whole party.
func Feasible(subsets iter.Seq[[]int], guests int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		for subset := range subsets {
			if sum(subset) < guests {
				continue
			}
			if !yield(subset) {
				return
			}
		}
	}
}

// better orders combinations by table count, then by waste.
func better(a, b []int, guests int) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return cmp.Compare(Waste(a, guests), Waste(b, guests))
}

// Rank returns the feasible subsets, best first. Ties keep generator order.
func Rank(subsets iter.Seq[[]int], guests int) [][]int {
	ranked := slices.Collect(Feasible(subsets, guests))
	slices.SortStableFunc(ranked, func(a, b []int) int {
		return better(a, b, guests)
	})
	return ranked
}

// SelectBest streams the subsets and keeps the first one that no later subset beats.
// It picks the same combination as Rank(...)[0] without holding the whole set.
func SelectBest(subsets iter.Seq[[]int], guests int) ([]int, error) {
	var best []int
	for subset := range Feasible(subsets, guests) {
		if best == nil || better(subset, best, guests) < 0 {
			best = subset
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no subset seats %d guests", entity.ErrNoFeasibleCombination, guests)
	}
	return best, nil
}
