package dataset

import (
	"slices"

	"tradedash/internal/core"
)

// YearsAvailable returns the distinct years with a defined date, most recent first.
func YearsAvailable(records []core.Transaction) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, r := range records {
		if !r.Date.Valid() {
			continue
		}
		y := r.Date.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years
}

// MinYear returns the earliest year with a defined date.
func MinYear(records []core.Transaction) (int, bool) {
	earliest, found := 0, false
	for _, r := range records {
		if !r.Date.Valid() {
			continue
		}
		if y := r.Date.Year(); !found || y < earliest {
			earliest, found = y, true
		}
	}
	return earliest, found
}

// FilterByYear returns the records dated in year, in their original order.
func FilterByYear(records []core.Transaction, year int) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, r := range records {
		if r.HasYear(year) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByCountries returns the records whose country is selected. An empty
// selection applies no filter and returns records as given.
func FilterByCountries(records []core.Transaction, countries []string) []core.Transaction {
	if len(countries) == 0 {
		return records
	}
	want := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		want[c] = struct{}{}
	}
	out := make([]core.Transaction, 0)
	for _, r := range records {
		if _, ok := want[r.Country]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Countries lists the distinct countries in order of first appearance.
func Countries(records []core.Transaction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if _, ok := seen[r.Country]; ok {
			continue
		}
		seen[r.Country] = struct{}{}
		out = append(out, r.Country)
	}
	return out
}
