// Package report renders a year-over-year comparison as a terminal table.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"tradedash/internal/core"
)

// Report is the input of Render.
type Report struct {
	Year       int
	Rows       []core.YearlyRow
	Metrics    core.Metrics
	HasMetrics bool
	// Limit caps the number of table rows printed. 0 prints all of them.
	Limit      int
}

var (
	heading = color.New(color.FgYellow, color.Bold)
	gain    = color.New(color.FgGreen)
	loss    = color.New(color.FgRed)
)

// Render writes the heading, the ranked table and the metrics summary to w.
func Render(w io.Writer, r Report) error {
	if _, err := heading.Fprintf(w, "Year-over-year comparison for %d\n", r.Year); err != nil {
		return fmt.Errorf("write heading: %w", err)
	}

	if len(r.Rows) == 0 {
		_, err := fmt.Fprintf(w, "No transactions recorded in %d\n", r.Year)
		return err
	}

	rows := r.Rows
	if r.Limit > 0 && r.Limit < len(rows) {
		rows = rows[:r.Limit]
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Country", "Value", "Change"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	table.SetAutoWrapText(false)

	total := decimal.Zero
	for i, row := range r.Rows {
		total = total.Add(row.Value)
		if i >= len(rows) {
			continue
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			row.Country,
			core.FormatValue(row.Value),
			signed(row.ValueDifference),
		})
	}
	table.SetFooter([]string{"", "Total", core.FormatValue(total), ""})
	table.Render()

	if !r.HasMetrics {
		return nil
	}
	if _, err := heading.Fprintln(w, "\nHighlights"); err != nil {
		return fmt.Errorf("write highlights: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Top:    %s %s (%s)\n", r.Metrics.Top.Country,
		core.FormatValue(r.Metrics.Top.Value), signed(r.Metrics.Top.ValueDifference)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Bottom: %s %s (%s)\n", r.Metrics.Bottom.Country,
		core.FormatValue(r.Metrics.Bottom.Value), signed(r.Metrics.Bottom.ValueDifference))
	return err
}

// signed formats a change with an explicit sign, green for gains and red for losses.
func signed(d decimal.Decimal) string {
	s := core.FormatValue(d)
	switch d.Sign() {
	case 1:
		return gain.Sprint("+" + s)
	case -1:
		return loss.Sprint(s)
	default:
		return s
	}
}
