package allocator

import (
	"fmt"
	"iter"
	"math/bits"
)

// MaxEnumerableTables is the hard ceiling of the subset generator.
const MaxEnumerableTables = 62

// Combinations yields every non-empty subset of seats, 2^n-1 in total.
// Subsets come in bitmask order: element i is in subset m when bit i of m is set.
// The sequence is single pass and allocates one slice per subset.
func Combinations(seats []int) iter.Seq[[]int] {
	n := len(seats)
	if n > MaxEnumerableTables {
		panic(fmt.Sprintf("allocator: %d tables cannot be enumerated, use MinimalCover", n))
	}

	return func(yield func([]int) bool) {
		if n == 0 {
			return
		}
		last := uint64(1)<<uint(n) - 1
		for mask := uint64(1); mask <= last; mask++ {
			subset := make([]int, 0, bits.OnesCount64(mask))
			for i := 0; i < n; i++ {
				if mask&(1<<uint(i)) != 0 {
					subset = append(subset, seats[i])
				}
			}
			if !yield(subset) {
				return
			}
		}
	}
}
