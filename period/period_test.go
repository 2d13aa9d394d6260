package period_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dues/period"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2025-01", false},
		{"1999-12", false},
		{"2025-13", true},
		{"2025-00", true},
		{"2025-1", true},
		{"25-01", true},
		{"2025/01", true},
		{"abcd-01", true},
		{"2025-01 ", true},
		{"2025-+1", true},
		{"0000-00", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := period.Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, p.String())
		})
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2025-11", 2, "2026-01"},
		{"2025-01", 0, "2025-01"},
		{"2025-01", -1, "2024-12"},
		{"2025-03", -15, "2023-12"},
		{"2024-12", 1, "2025-01"},
		{"2024-06", 24, "2026-06"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got := period.MustParse(tt.from).AddMonths(tt.n)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 2, period.MonthsBetween(period.MustParse("2025-11"), period.MustParse("2026-01")))
	assert.Equal(t, -2, period.MonthsBetween(period.MustParse("2026-01"), period.MustParse("2025-11")))
	assert.Equal(t, 0, period.MonthsBetween(period.MustParse("2025-05"), period.MustParse("2025-05")))
	assert.Equal(t, 25, period.MonthsBetween(period.MustParse("2023-12"), period.MustParse("2026-01")))
}

// AddMonths(p1, MonthsBetween(p1, p2)) == p2 for every ordered pair in a
// window spanning several year boundaries.
func TestAddMonthsInvertsMonthsBetween(t *testing.T) {
	start := period.MustParse("2022-07")
	window := period.Range(start, start.AddMonths(40))
	require.Len(t, window, 41)

	for i, p1 := range window {
		for _, p2 := range window[i:] {
			got := p1.AddMonths(period.MonthsBetween(p1, p2))
			if got != p2 {
				t.Fatalf("AddMonths(%s, MonthsBetween(%s, %s)) = %s", p1, p1, p2, got)
			}
		}
	}
}

func TestOrdering(t *testing.T) {
	a := period.MustParse("2024-12")
	b := period.MustParse("2025-01")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(period.New(2024, time.December)))
	assert.Equal(t, period.MustParse("2026-01"), period.New(2025, 13))
}

func TestOfAndBounds(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2025, time.January, 31, 23, 30, 0, 0, loc)

	p := period.Of(ts)
	assert.Equal(t, "2025-01", p.String())
	assert.True(t, p.Contains(ts))
	assert.Equal(t, "2025-02", period.Of(ts.UTC()).String())

	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, loc), p.Start(loc))
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, loc), p.End(loc))
}

func TestRange(t *testing.T) {
	got := period.Range(period.MustParse("2024-11"), period.MustParse("2025-02"))
	require.Len(t, got, 4)
	assert.Equal(t, "2024-11", got[0].String())
	assert.Equal(t, "2025-02", got[3].String())

	assert.Nil(t, period.Range(period.MustParse("2025-02"), period.MustParse("2025-01")))
}

func TestCurrent(t *testing.T) {
	clock := period.Fixed(time.Date(2025, time.March, 16, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-03", period.Current(clock).String())
}

func TestTextAndSQL(t *testing.T) {
	type doc struct {
		P period.Period `json:"p"`
	}

	data, err := json.Marshal(doc{P: period.MustParse("2025-07")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"2025-07"}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "2025-07", out.P.String())

	var scanned period.Period
	require.NoError(t, scanned.Scan([]byte("2030-02")))
	assert.Equal(t, period.New(2030, time.February), scanned)
	assert.Error(t, scanned.Scan(12))

	v, err := scanned.Value()
	require.NoError(t, err)
	assert.Equal(t, "2030-02", v)
}
