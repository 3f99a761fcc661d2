// Package aggregate turns per-statement records into the sorted, grouped
// sequence the report is rendered from. Grouping is computed once as
// contiguous index ranges over the sorted rows, at three shrinking key
// prefixes: (person, period, phone), (person, period), (person).
package aggregate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/sccotte/minvoice/internal/domain/extract"
	"github.com/sccotte/minvoice/pkg/money"
)

// Row is one record of the sorted report sequence.
type Row struct {
	extract.Record
	// PeriodLabel is the quarter display label, e.g. "2023年第1季度".
	PeriodLabel string
	Year        int
	Quarter     int
}

// Run is a maximal contiguous range of rows sharing one group key.
// End is exclusive. Subtotal is the sum of amounts over the range.
type Run struct {
	Start    int
	End      int
	Subtotal *money.Amount
}

// Result is the grouped view of the full sorted sequence. The three run
// levels partition the same row slice; coarser runs span unions of finer
// ones with no gaps or overlaps.
type Result struct {
	Rows []Row
	// PhoneRuns groups by (person, period label, phone).
	PhoneRuns []Run
	// PeriodRuns groups by (person, period label).
	PeriodRuns []Run
	// PersonRuns groups by person only; its subtotal is not rendered,
	// the run exists for the merged name column.
	PersonRuns []Run
}

// YearQuarter derives the calendar year and quarter from a yyyymm billing
// period.
func YearQuarter(period string) (year, quarter int, err error) {
	if len(period) != 6 {
		return 0, 0, fmt.Errorf("billing period %q is not yyyymm", period)
	}
	year, err = strconv.Atoi(period[:4])
	if err != nil {
		return 0, 0, fmt.Errorf("billing period %q is not yyyymm", period)
	}
	month, err := strconv.Atoi(period[4:])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("billing period %q has invalid month", period)
	}
	return year, (month-1)/3 + 1, nil
}

// QuarterLabel builds the display label for a year and quarter.
func QuarterLabel(year, quarter int) string {
	return fmt.Sprintf("%d年第%d季度", year, quarter)
}

// Aggregate derives period labels, sorts by (person, period label, phone)
// and computes the three group levels. An empty input yields an empty
// Result, not an error.
func Aggregate(records []extract.Record) (*Result, error) {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		year, quarter, err := YearQuarter(rec.Period)
		if err != nil {
			return nil, fmt.Errorf("record from %s: %w", rec.Source, err)
		}
		rows = append(rows, Row{
			Record:      rec,
			PeriodLabel: QuarterLabel(year, quarter),
			Year:        year,
			Quarter:     quarter,
		})
	}

	// Stable: equal keys keep input order. This sort is the precondition
	// for every contiguous-run computation below.
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.PeriodLabel != b.PeriodLabel {
			return a.PeriodLabel < b.PeriodLabel
		}
		return a.Phone < b.Phone
	})

	return &Result{
		Rows: rows,
		PhoneRuns: contiguousRuns(rows, func(r Row) string {
			return r.Name + "\x00" + r.PeriodLabel + "\x00" + r.Phone
		}),
		PeriodRuns: contiguousRuns(rows, func(r Row) string {
			return r.Name + "\x00" + r.PeriodLabel
		}),
		PersonRuns: contiguousRuns(rows, func(r Row) string {
			return r.Name
		}),
	}, nil
}

// contiguousRuns partitions already-sorted rows into maximal adjacent
// ranges sharing the key, each carrying its amount subtotal.
func contiguousRuns(rows []Row, key func(Row) string) []Run {
	var out []Run
	for start := 0; start < len(rows); {
		end := start + 1
		k := key(rows[start])
		for end < len(rows) && key(rows[end]) == k {
			end++
		}
		subtotal := money.Zero()
		for i := start; i < end; i++ {
			subtotal = subtotal.Add(rows[i].Amount)
		}
		out = append(out, Run{Start: start, End: end, Subtotal: subtotal})
		start = end
	}
	return out
}
