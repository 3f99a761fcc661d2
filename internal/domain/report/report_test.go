package report

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sccotte/minvoice/internal/domain/aggregate"
	"github.com/sccotte/minvoice/internal/domain/extract"
	"github.com/sccotte/minvoice/pkg/money"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quarterScenario(t *testing.T) *aggregate.Result {
	t.Helper()
	records := []extract.Record{
		{Name: "张三", Phone: "13812345678", Period: "202301", Amount: money.New(10000)},
		{Name: "张三", Phone: "13812345678", Period: "202302", Amount: money.New(5000)},
		{Name: "张三", Phone: "13812345678", Period: "202304", Amount: money.New(3000)},
	}
	result, err := aggregate.Aggregate(records)
	require.NoError(t, err)
	return result
}

func TestWriteScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output-results.xlsx")
	require.NoError(t, New(discardLogger()).Write(quarterScenario(t), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	raw := excelize.Options{RawCellValue: true}
	get := func(cell string) string {
		v, err := f.GetCellValue(SheetTitle, cell, raw)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "姓名", get("A1"))
	assert.Equal(t, "季度/人", get("G1"))

	assert.Equal(t, "张三", get("A2"))
	assert.Equal(t, "2023年第1季度", get("B2"))
	assert.Equal(t, "13812345678", get("C2"))
	assert.Equal(t, "202301", get("D2"))
	assert.Equal(t, "100", get("E2"))

	// quarter 1 per-phone subtotal and single-quarter person subtotal
	assert.Equal(t, "150", get("F2"))
	assert.Equal(t, "150", get("G2"))
	// quarter 2 row
	assert.Equal(t, "30", get("E4"))
	assert.Equal(t, "30", get("F4"))

	merged, err := f.GetMergeCells(SheetTitle)
	require.NoError(t, err)
	var refs []string
	for _, m := range merged {
		refs = append(refs, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	// the two quarter-1 rows merge at phone and period level, the person
	// block spans all three rows
	assert.Contains(t, refs, "F2:F3")
	assert.Contains(t, refs, "C2:C3")
	assert.Contains(t, refs, "G2:G3")
	assert.Contains(t, refs, "B2:B3")
	assert.Contains(t, refs, "A2:A4")
}

func TestWriteEmptyProducesHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output-results.xlsx")
	result, err := aggregate.Aggregate(nil)
	require.NoError(t, err)
	require.NoError(t, New(discardLogger()).Write(result, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetTitle)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, headers, rows[0])
}

func TestWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output-results.xlsx")
	require.NoError(t, New(discardLogger()).Write(quarterScenario(t), path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "output-results.xlsx", entries[0].Name())
}

func TestMergePlanBlockCounts(t *testing.T) {
	merges := mergePlan(quarterScenario(t))

	count := func(col int) int {
		n := 0
		for _, m := range merges {
			if m.col == col {
				n++
			}
		}
		return n
	}
	// two distinct period blocks, one person block
	assert.Equal(t, 2, count(colPeriodLabel))
	assert.Equal(t, 2, count(colQuarterPerPerson))
	assert.Equal(t, 1, count(colName))

	// the single-row quarter-2 block still appears, formatting applies
	// to it like any other block
	var single merge
	for _, m := range merges {
		if m.col == colPeriodLabel && m.r1 == 4 {
			single = m
		}
	}
	assert.Equal(t, 4, single.r2)
}

func TestStyleFor(t *testing.T) {
	result := quarterScenario(t)
	outlines := boxes(result, mergePlan(result))

	header := styleFor(1, 1, outlines)
	assert.True(t, header.bold)
	assert.Equal(t, "center", header.hAlign)
	assert.Equal(t, borderMedium, header.top)
	assert.Equal(t, borderMedium, header.left)

	moneyCell := styleFor(2, colBillAmount, outlines)
	assert.Equal(t, "right", moneyCell.hAlign)
	assert.True(t, moneyCell.numFmt)
	assert.False(t, moneyCell.bold)

	nameCell := styleFor(2, colName, outlines)
	assert.Equal(t, "center", nameCell.hAlign)
	assert.False(t, nameCell.numFmt)
	// name column sits on the table's left edge: medium beats the thin
	// merge outline
	assert.Equal(t, borderMedium, nameCell.left)
	assert.Equal(t, borderThin, nameCell.top)

	lastRight := styleFor(4, colQuarterPerPerson, outlines)
	assert.Equal(t, borderMedium, lastRight.bottom)
	assert.Equal(t, borderMedium, lastRight.right)
}

func TestStyleForPeriodGroupRules(t *testing.T) {
	result := quarterScenario(t)
	outlines := boxes(result, mergePlan(result))

	// the bill-month column carries no merged block, but each period
	// group is ruled across the full row width, so its cells pick up
	// thin rules at group boundaries
	firstRow := styleFor(2, colBillMonth, outlines)
	assert.Equal(t, borderThin, firstRow.top)
	assert.Equal(t, borderNone, firstRow.bottom)

	lastRow := styleFor(3, colBillMonth, outlines)
	assert.Equal(t, borderThin, lastRow.bottom)

	// single-row group: thin top, table edge medium wins at the bottom
	q2 := styleFor(4, colBillAmount, outlines)
	assert.Equal(t, borderThin, q2.top)
	assert.Equal(t, borderMedium, q2.bottom)
}
