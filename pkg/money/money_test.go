package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		fen  int64
	}{
		{"positive fen", 1234},
		{"zero", 0},
		{"negative fen", -5000},
		{"large amount", 999999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.fen)
			assert.Equal(t, tt.fen, a.Fen())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantFen int64
		wantErr bool
	}{
		{"statement amount", "123.45", 12345, false},
		{"whole yuan", "100.00", 10000, false},
		{"small amount", "0.01", 1, false},
		{"zero", "0.00", 0, false},
		{"no fraction", "37", 3700, false},
		{"garbage", "12,34", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFen, a.Fen())
		})
	}
}

func TestAdd(t *testing.T) {
	a := New(10000)
	b := New(5000)

	sum := a.Add(b)
	assert.Equal(t, int64(15000), sum.Fen())

	// operands unchanged
	assert.Equal(t, int64(10000), a.Fen())
	assert.Equal(t, int64(5000), b.Fen())
}

func TestAddNil(t *testing.T) {
	var a *Amount
	b := New(123)

	assert.Equal(t, int64(123), a.Add(b).Fen())
	assert.Equal(t, int64(123), b.Add(a).Fen())
}

func TestSum(t *testing.T) {
	total := Sum(New(10000), New(5000), New(3000))
	assert.Equal(t, int64(18000), total.Fen())

	assert.Equal(t, int64(0), Sum().Fen())
}

func TestString(t *testing.T) {
	tests := []struct {
		fen  int64
		want string
	}{
		{12345, "123.45"},
		{10000, "100.00"},
		{1, "0.01"},
		{0, "0.00"},
		{15000, "150.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.fen).String())
	}
}

func TestToDecimal(t *testing.T) {
	a := New(12345)
	assert.True(t, a.ToDecimal().Equal(decimal.RequireFromString("123.45")))
}

func TestFloat64(t *testing.T) {
	assert.InDelta(t, 150.0, New(15000).Float64(), 1e-9)
}
