package core

import "github.com/shopspring/decimal"

// YearlyRow is one country's total for a year and its change from the prior year.
type YearlyRow struct {
	Country         string
	Value           decimal.Decimal
	ValueDifference decimal.Decimal
}

// Metrics holds the best and worst performing rows of a ranked comparison.
type Metrics struct {
	Top    YearlyRow
	Bottom YearlyRow
}

// SeriesPoint is a labelled value in a chart series.
type SeriesPoint struct {
	Label string
	Value decimal.Decimal
}

// HeatmapCell is one country x category total.
type HeatmapCell struct {
	Country  string
	Category string
	Value    decimal.Decimal
}

// Charts groups every series the dashboard front end draws.
type Charts struct {
	ByCategory       []SeriesPoint
	ByShippingMethod []SeriesPoint
	ByCountry        []SeriesPoint
	ByDirection      []SeriesPoint
	MonthlyTrend     []SeriesPoint
	Heatmap          []HeatmapCell
}

// DashboardView is everything computed for one selection.
type DashboardView struct {
	Selection  Selection
	Rows       int
	TotalValue decimal.Decimal
	Comparison []YearlyRow
	Metrics    Metrics
	HasMetrics bool
	Charts     Charts
}
