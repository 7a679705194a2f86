package services

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"tradedash/internal/core"
)

// BuildCharts aggregates the series drawn by the dashboard front end.
// Categorical series keep first-seen order; the monthly trend is
// chronological and skips rows with an undefined date.
func BuildCharts(records []core.Transaction) core.Charts {
	return core.Charts{
		ByCategory:       sumBy(records, func(t core.Transaction) string { return t.Category }),
		ByShippingMethod: sumBy(records, func(t core.Transaction) string { return t.ShippingMethod }),
		ByCountry:        sumBy(records, func(t core.Transaction) string { return t.Country }),
		ByDirection:      sumBy(records, func(t core.Transaction) string { return string(t.Direction) }),
		MonthlyTrend:     monthlyTrend(records),
		Heatmap:          heatmap(records),
	}
}

// TotalValue sums every record's value.
func TotalValue(records []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value)
	}
	return total
}

func sumBy(records []core.Transaction, key func(core.Transaction) string) []core.SeriesPoint {
	index := make(map[string]int)
	var out []core.SeriesPoint
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, core.SeriesPoint{Label: k, Value: decimal.Zero})
		}
		out[i].Value = out[i].Value.Add(r.Value)
	}
	return out
}

func monthlyTrend(records []core.Transaction) []core.SeriesPoint {
	dated := make([]core.Transaction, 0, len(records))
	for _, r := range records {
		if r.Date.Valid() {
			dated = append(dated, r)
		}
	}
	points := sumBy(dated, func(t core.Transaction) string {
		return fmt.Sprintf("%04d-%02d", t.Date.Year(), t.Date.Month())
	})
	slices.SortFunc(points, func(a, b core.SeriesPoint) int {
		switch {
		case a.Label < b.Label:
			return -1
		case a.Label > b.Label:
			return 1
		}
		return 0
	})
	return points
}

func heatmap(records []core.Transaction) []core.HeatmapCell {
	type cellKey struct{ country, category string }
	index := make(map[cellKey]int)
	var out []core.HeatmapCell
	for _, r := range records {
		k := cellKey{r.Country, r.Category}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, core.HeatmapCell{Country: r.Country, Category: r.Category, Value: decimal.Zero})
		}
		out[i].Value = out[i].Value.Add(r.Value)
	}
	return out
}
