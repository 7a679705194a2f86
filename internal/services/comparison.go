package services

import (
	"slices"

	"github.com/shopspring/decimal"

	"tradedash/internal/core"
	"tradedash/internal/dataset"
)

// countryTotals sums values per country, remembering first-seen order.
type countryTotals struct {
	order  []string
	totals map[string]decimal.Decimal
}

func sumByCountry(records []core.Transaction) countryTotals {
	ct := countryTotals{totals: make(map[string]decimal.Decimal)}
	for _, r := range records {
		cur, ok := ct.totals[r.Country]
		if !ok {
			ct.order = append(ct.order, r.Country)
		}
		ct.totals[r.Country] = cur.Add(r.Value)
	}
	return ct
}

// Compare returns one row per country present in year with its total value
// and the change from year-1, ranked by change, largest gain first.
//
// Prior-year totals are matched by country; a country absent from year-1
// counts as zero. When year is the earliest year in records every change
// is zero. Ties keep the order in which countries first appear in year.
func Compare(records []core.Transaction, year int) []core.YearlyRow {
	current := sumByCountry(dataset.FilterByYear(records, year))

	var previous countryTotals
	minYear, _ := dataset.MinYear(records)
	hasPrior := year > minYear
	if hasPrior {
		previous = sumByCountry(dataset.FilterByYear(records, year-1))
	}

	rows := make([]core.YearlyRow, 0, len(current.order))
	for _, country := range current.order {
		value := current.totals[country]
		diff := decimal.Zero
		if hasPrior {
			diff = value.Sub(previous.totals[country])
		}
		rows = append(rows, core.YearlyRow{
			Country:         country,
			Value:           value,
			ValueDifference: diff,
		})
	}

	slices.SortStableFunc(rows, func(a, b core.YearlyRow) int {
		return b.ValueDifference.Cmp(a.ValueDifference)
	})
	return rows
}

// ExtractMetrics picks the first and last rows of a ranked comparison.
// It reports false for an empty table.
func ExtractMetrics(rows []core.YearlyRow) (core.Metrics, bool) {
	if len(rows) == 0 {
		return core.Metrics{}, false
	}
	return core.Metrics{Top: rows[0], Bottom: rows[len(rows)-1]}, true
}
