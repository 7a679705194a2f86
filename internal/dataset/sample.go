package dataset

import (
	"math/rand/v2"
	"slices"

	"tradedash/internal/core"
)

// Sample picks n records with a generator seeded by seed and returns them in
// their original relative order. The same seed always picks the same rows.
// n <= 0 or n >= len(records) returns records unchanged.
func Sample(records []core.Transaction, n int, seed uint64) []core.Transaction {
	if n <= 0 || n >= len(records) {
		return records
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	picked := rng.Perm(len(records))[:n]
	slices.Sort(picked)

	out := make([]core.Transaction, n)
	for i, idx := range picked {
		out[i] = records[idx]
	}
	return out
}
