// Package report renders the aggregated billing rows into the statistics
// spreadsheet: one row per statement, merged ranges for repeated group keys,
// quarter subtotals, and the bordering and alignment of the original report.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/sccotte/minvoice/internal/domain/aggregate"
)

// SheetTitle names the single worksheet.
const SheetTitle = "高性能计算应用中心"

var headers = []string{"姓名", "年份季度", "手机号", "账单月", "账单金额", "季度/号码", "季度/人"}

// Column roles, 1-based.
const (
	colName = iota + 1
	colPeriodLabel
	colPhone
	colBillMonth
	colBillAmount
	colQuarterPerPhone
	colQuarterPerPerson
	numCols = colQuarterPerPerson
)

type borderWeight int

const (
	borderNone borderWeight = iota
	borderThin
	borderMedium
)

// excelize border style codes: 1 = thin continuous, 2 = medium continuous.
var borderStyleCode = map[borderWeight]int{borderThin: 1, borderMedium: 2}

// box is an outlined rectangle of cells, rows and cols 1-based inclusive.
type box struct {
	r1, c1, r2, c2 int
	weight         borderWeight
}

// cellStyle is the full formatting role of one cell. Styles are pure values
// derived from row/column position; nothing is mutated per cell.
type cellStyle struct {
	top, right, bottom, left borderWeight
	hAlign                   string
	numFmt                   bool
	bold                     bool
}

// Renderer writes the statistics workbook.
type Renderer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Write renders the grouped rows and atomically publishes the workbook at
// path. On any failure no partial file is left behind.
func (r *Renderer) Write(result *aggregate.Result, path string) error {
	f, err := r.build(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := publish(f, path); err != nil {
		return err
	}
	r.logger.Info("wrote statistics spreadsheet", "path", path, "rows", len(result.Rows))
	return nil
}

func (r *Renderer) build(result *aggregate.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetTitle); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(SheetTitle, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, row := range result.Rows {
		excelRow := i + 2
		values := map[int]interface{}{
			colName:        row.Name,
			colPeriodLabel: row.PeriodLabel,
			colPhone:       row.Phone,
			colBillMonth:   row.Period,
			colBillAmount:  row.Amount.Float64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col, excelRow)
			if err := f.SetCellValue(SheetTitle, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", excelRow, err)
			}
		}
	}

	merges := mergePlan(result)
	for _, m := range merges {
		start, _ := excelize.CoordinatesToCellName(m.col, m.r1)
		end, _ := excelize.CoordinatesToCellName(m.col, m.r2)
		// merging a single cell is a visual no-op but keeps the
		// formatting path identical
		if m.r1 != m.r2 {
			if err := f.MergeCell(SheetTitle, start, end); err != nil {
				return nil, fmt.Errorf("merge %s:%s: %w", start, end, err)
			}
		}
		if m.value != nil {
			if err := f.SetCellValue(SheetTitle, start, m.value); err != nil {
				return nil, fmt.Errorf("write subtotal %s: %w", start, err)
			}
		}
	}

	if err := applyStyles(f, boxes(result, merges), len(result.Rows)); err != nil {
		return nil, err
	}

	widths := map[string]float64{"B": 15, "C": 12, "F": 10, "G": 10}
	for col, w := range widths {
		if err := f.SetColWidth(SheetTitle, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetRowHeight(SheetTitle, 1, 32); err != nil {
		return nil, fmt.Errorf("set header height: %w", err)
	}
	return f, nil
}

// merge is one vertical merged range in a single column, rows inclusive.
type merge struct {
	col    int
	r1, r2 int
	value  interface{}
}

// mergePlan translates the three run levels into merged ranges:
// phone runs merge the phone column and carry the per-phone subtotal;
// period runs merge the period-label column and carry the per-person
// quarter subtotal; person runs merge the name column with no value.
func mergePlan(result *aggregate.Result) []merge {
	var merges []merge
	for _, run := range result.PhoneRuns {
		r1, r2 := run.Start+2, run.End+1
		merges = append(merges,
			merge{col: colQuarterPerPhone, r1: r1, r2: r2, value: run.Subtotal.Float64()},
			merge{col: colPhone, r1: r1, r2: r2},
		)
	}
	for _, run := range result.PeriodRuns {
		r1, r2 := run.Start+2, run.End+1
		merges = append(merges,
			merge{col: colQuarterPerPerson, r1: r1, r2: r2, value: run.Subtotal.Float64()},
			merge{col: colPeriodLabel, r1: r1, r2: r2},
		)
	}
	for _, run := range result.PersonRuns {
		merges = append(merges, merge{col: colName, r1: run.Start + 2, r2: run.End + 1})
	}
	return merges
}

// boxes lists every outlined rectangle: a thin box per merged block, a
// full-width thin box per (person, period) group, a medium box around the
// header row and around the whole table.
func boxes(result *aggregate.Result, merges []merge) []box {
	out := make([]box, 0, len(merges)+len(result.PeriodRuns)+2)
	for _, m := range merges {
		out = append(out, box{r1: m.r1, c1: m.col, r2: m.r2, c2: m.col, weight: borderThin})
	}
	for _, run := range result.PeriodRuns {
		out = append(out, box{r1: run.Start + 2, c1: 1, r2: run.End + 1, c2: numCols, weight: borderThin})
	}
	lastRow := len(result.Rows) + 1
	out = append(out,
		box{r1: 1, c1: 1, r2: 1, c2: numCols, weight: borderMedium},
		box{r1: 1, c1: 1, r2: lastRow, c2: numCols, weight: borderMedium},
	)
	return out
}

// styleFor computes the formatting role of one cell from its position.
// Header cells are bold and centered; the left four columns center, the
// right three right-align; money columns carry the 0.00 display format.
func styleFor(row, col int, outlines []box) cellStyle {
	s := cellStyle{hAlign: "center"}
	if row == 1 {
		s.bold = true
	} else {
		if col >= colBillAmount {
			s.hAlign = "right"
			s.numFmt = true
		}
	}
	for _, b := range outlines {
		if row < b.r1 || row > b.r2 || col < b.c1 || col > b.c2 {
			continue
		}
		if row == b.r1 && b.weight > s.top {
			s.top = b.weight
		}
		if row == b.r2 && b.weight > s.bottom {
			s.bottom = b.weight
		}
		if col == b.c1 && b.weight > s.left {
			s.left = b.weight
		}
		if col == b.c2 && b.weight > s.right {
			s.right = b.weight
		}
	}
	return s
}

func applyStyles(f *excelize.File, outlines []box, dataRows int) error {
	cache := map[cellStyle]int{}
	for row := 1; row <= dataRows+1; row++ {
		for col := 1; col <= numCols; col++ {
			role := styleFor(row, col, outlines)
			id, ok := cache[role]
			if !ok {
				var err error
				id, err = f.NewStyle(role.toExcelize())
				if err != nil {
					return fmt.Errorf("create style: %w", err)
				}
				cache[role] = id
			}
			cell, _ := excelize.CoordinatesToCellName(col, row)
			if err := f.SetCellStyle(SheetTitle, cell, cell, id); err != nil {
				return fmt.Errorf("style cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

func (s cellStyle) toExcelize() *excelize.Style {
	style := &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: s.hAlign, Vertical: "center"},
	}
	sides := []struct {
		name   string
		weight borderWeight
	}{
		{"top", s.top}, {"right", s.right}, {"bottom", s.bottom}, {"left", s.left},
	}
	for _, side := range sides {
		if side.weight == borderNone {
			continue
		}
		style.Border = append(style.Border, excelize.Border{
			Type:  side.name,
			Color: "000000",
			Style: borderStyleCode[side.weight],
		})
	}
	if s.numFmt {
		style.NumFmt = 2 // built-in 0.00
	}
	if s.bold {
		style.Font = &excelize.Font{Bold: true, Size: 11}
	}
	return style
}

// publish writes the workbook to a temp file in the target directory and
// renames it into place, so a failed render never leaves a half-written
// spreadsheet.
func publish(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".minvoice-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp spreadsheet: %w", err)
	}
	tmpName := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write spreadsheet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp spreadsheet: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish spreadsheet: %w", err)
	}
	return nil
}
