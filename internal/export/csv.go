// Package export renders breakdown summaries to external formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"ledgerview/internal/core"
)

var csvHeader = []string{"rank", "key", "name", "total", "percentage"}

// WriteSummaryCSV writes a breakdown summary as CSV, one row per bucket in
// display order, followed by a grand-total row. Totals keep their full
// decimal precision; percentages are rounded to two places like the UI.
func WriteSummaryCSV(w io.Writer, summary core.BreakdownSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, b := range summary.Buckets {
		row := []string{
			strconv.Itoa(i + 1),
			b.Key,
			b.Name,
			b.Total.String(),
			strconv.FormatFloat(b.Percentage, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write bucket %s: %w", b.Key, err)
		}
	}

	total := []string{"", "", "total", summary.GrandTotal.String(), ""}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("write total row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
