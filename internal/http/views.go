package http

import (
	"time"

	"github.com/shopspring/decimal"

	"tradedash/internal/core"
)

type selectionResponse struct {
	Year      int      `json:"year"`
	Countries []string `json:"countries"`
	Theme     string   `json:"theme"`
}

type rowResponse struct {
	Country                  string          `json:"country"`
	Value                    decimal.Decimal `json:"value"`
	ValueDifference          decimal.Decimal `json:"value_difference"`
	ValueFormatted           string          `json:"value_formatted"`
	ValueDifferenceFormatted string          `json:"value_difference_formatted"`
}

type metricsResponse struct {
	Top    rowResponse `json:"top"`
	Bottom rowResponse `json:"bottom"`
}

type pointResponse struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

type heatmapResponse struct {
	Country  string          `json:"country"`
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
}

type chartsResponse struct {
	ByCategory       []pointResponse   `json:"by_category"`
	ByShippingMethod []pointResponse   `json:"by_shipping_method"`
	ByCountry        []pointResponse   `json:"by_country"`
	ByDirection      []pointResponse   `json:"by_direction"`
	MonthlyTrend     []pointResponse   `json:"monthly_trend"`
	Heatmap          []heatmapResponse `json:"heatmap"`
}

type dashboardResponse struct {
	Selection           selectionResponse `json:"selection"`
	Rows                int               `json:"rows"`
	TotalValue          decimal.Decimal   `json:"total_value"`
	TotalValueFormatted string            `json:"total_value_formatted"`
	Comparison          []rowResponse     `json:"comparison"`
	HasMetrics          bool              `json:"has_metrics"`
	Metrics             *metricsResponse  `json:"metrics,omitempty"`
	Charts              chartsResponse    `json:"charts"`
	GeneratedAt         time.Time         `json:"generated_at"`
}

type comparisonResponse struct {
	Year       int              `json:"year"`
	Comparison []rowResponse    `json:"comparison"`
	HasMetrics bool             `json:"has_metrics"`
	Metrics    *metricsResponse `json:"metrics,omitempty"`
}

func toSelection(s core.Selection) selectionResponse {
	return selectionResponse{Year: s.Year, Countries: s.Countries(), Theme: s.Theme}
}

func toRow(r core.YearlyRow) rowResponse {
	return rowResponse{
		Country:                  r.Country,
		Value:                    r.Value,
		ValueDifference:          r.ValueDifference,
		ValueFormatted:           core.FormatValue(r.Value),
		ValueDifferenceFormatted: core.FormatValue(r.ValueDifference),
	}
}

// toRows never returns nil so the JSON carries [] for an empty table.
func toRows(rows []core.YearlyRow) []rowResponse {
	out := make([]rowResponse, len(rows))
	for i, r := range rows {
		out[i] = toRow(r)
	}
	return out
}

func toMetrics(m core.Metrics, ok bool) *metricsResponse {
	if !ok {
		return nil
	}
	return &metricsResponse{Top: toRow(m.Top), Bottom: toRow(m.Bottom)}
}

func toPoints(points []core.SeriesPoint) []pointResponse {
	out := make([]pointResponse, len(points))
	for i, p := range points {
		out[i] = pointResponse{Label: p.Label, Value: p.Value}
	}
	return out
}

func toCharts(c core.Charts) chartsResponse {
	heat := make([]heatmapResponse, len(c.Heatmap))
	for i, h := range c.Heatmap {
		heat[i] = heatmapResponse{Country: h.Country, Category: h.Category, Value: h.Value}
	}
	return chartsResponse{
		ByCategory:       toPoints(c.ByCategory),
		ByShippingMethod: toPoints(c.ByShippingMethod),
		ByCountry:        toPoints(c.ByCountry),
		ByDirection:      toPoints(c.ByDirection),
		MonthlyTrend:     toPoints(c.MonthlyTrend),
		Heatmap:          heat,
	}
}

func toDashboard(v core.DashboardView, now time.Time) dashboardResponse {
	return dashboardResponse{
		Selection:           toSelection(v.Selection),
		Rows:                v.Rows,
		TotalValue:          v.TotalValue,
		TotalValueFormatted: core.FormatValue(v.TotalValue),
		Comparison:          toRows(v.Comparison),
		HasMetrics:          v.HasMetrics,
		Metrics:             toMetrics(v.Metrics, v.HasMetrics),
		Charts:              toCharts(v.Charts),
		GeneratedAt:         now,
	}
}
