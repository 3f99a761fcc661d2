package extract

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = `中国移动通信客户充值发票
客户名 称: 张三
手机号码: 13812345678
账期: 202301
合计金额(小写): ￥100.00
`

func newExtractor() *Extractor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParse(t *testing.T) {
	rec, err := newExtractor().Parse(sampleText)
	require.NoError(t, err)

	assert.Equal(t, "张三", rec.Name)
	assert.Equal(t, "13812345678", rec.Phone)
	assert.Equal(t, "202301", rec.Period)
	assert.Equal(t, "100.00", rec.Amount.String())
}

func TestParseAlternatePeriodSpelling(t *testing.T) {
	text := `名 称: 李四
号码: 13900000000
帐期: 202312
(小写): 88.50
`
	rec, err := newExtractor().Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "202312", rec.Period)
	assert.Equal(t, "88.50", rec.Amount.String())
}

func TestParseTruncatesLongName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"four chars keeps trailing three", "山东张小三", "张小三"},
		{"exactly three unchanged", "王麻子", "王麻子"},
		{"two unchanged", "张三", "张三"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "名称: " + tt.raw + " \n号码: 13812345678\n账期: 202301\n(小写): 1.00\n"
			rec, err := newExtractor().Parse(text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Name)
		})
	}
}

func TestParseFourCharValue(t *testing.T) {
	// a matched value of length 4 yields its last 3 characters
	text := "名称: 欧阳小三 \n号码: 13812345678\n账期: 202301\n(小写): 1.00\n"
	rec, err := newExtractor().Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "阳小三", rec.Name)
}

func TestParseCollectsAllMissingFields(t *testing.T) {
	_, err := newExtractor().Parse("nothing to see here\n")

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.ElementsMatch(t,
		[]string{FieldName, FieldPhone, FieldPeriod, FieldAmount},
		extErr.Missing)
	assert.Equal(t, "nothing to see here\n", extErr.Text)
}

func TestParseReportsOnlyUnmatchedFields(t *testing.T) {
	text := `名称: 张三
号码: 13812345678
`
	_, err := newExtractor().Parse(text)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.ElementsMatch(t, []string{FieldPeriod, FieldAmount}, extErr.Missing)
}

func TestParseNeverReturnsPartialRecord(t *testing.T) {
	text := `名称: 张三
号码: 13812345678
`
	rec, err := newExtractor().Parse(text)
	require.Error(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestParseRejectsShortPhone(t *testing.T) {
	text := "名称: 张三 \n号码: 555\n账期: 202301\n(小写): 1.00\n"
	_, err := newExtractor().Parse(text)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, []string{FieldPhone}, extErr.Missing)
}
