package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surtidora/api/internal/apperr"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultTiers() []Tier {
	return []Tier{
		{MinQuantity: 6, Rate: d("0.05")},
		{MinQuantity: 12, Rate: d("0.10")},
	}
}

func TestBestDiscount(t *testing.T) {
	tiers := defaultTiers()

	cases := []struct {
		name    string
		qty     int
		wantMin int
		wantOK  bool
	}{
		{"zero", 0, 0, false},
		{"negative", -3, 0, false},
		{"below first tier", 5, 0, false},
		{"at first boundary", 6, 6, true},
		{"between tiers", 11, 6, true},
		{"at second boundary", 12, 12, true},
		{"above all", 500, 12, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := BestDiscount(tc.qty, tiers)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantMin, got.MinQuantity)
		})
	}
}

func TestBestDiscount_UnsortedInput(t *testing.T) {
	tiers := []Tier{
		{MinQuantity: 12, Rate: d("0.10")},
		{MinQuantity: 6, Rate: d("0.05")},
	}
	got, ok := BestDiscount(13, tiers)
	require.True(t, ok)
	assert.Equal(t, 12, got.MinQuantity)
}

func TestBestDiscount_DuplicateMinQuantityHighestRateWins(t *testing.T) {
	tiers := []Tier{
		{MinQuantity: 6, Rate: d("0.07")},
		{MinQuantity: 6, Rate: d("0.05")},
		{MinQuantity: 6, Rate: d("0.06")},
	}
	got, ok := BestDiscount(6, tiers)
	require.True(t, ok)
	assert.True(t, got.Rate.Equal(d("0.07")), "rate = %s", got.Rate)
}

func TestBestDiscount_NeverPicksNonQualifyingOrSmallerTier(t *testing.T) {
	tiers := []Tier{
		{MinQuantity: 1, Rate: d("0.01")},
		{MinQuantity: 3, Rate: d("0.02")},
		{MinQuantity: 7, Rate: d("0.03")},
		{MinQuantity: 20, Rate: d("0.04")},
	}
	for q := 0; q <= 40; q++ {
		got, ok := BestDiscount(q, tiers)
		if !ok {
			assert.LessOrEqual(t, q, 0)
			continue
		}
		assert.LessOrEqual(t, got.MinQuantity, q)
		for _, other := range tiers {
			if other.MinQuantity <= q {
				assert.LessOrEqual(t, other.MinQuantity, got.MinQuantity)
			}
		}
	}
}

func TestUnitPrice(t *testing.T) {
	tiers := defaultTiers()

	assert.Equal(t, "10.00", UnitPrice(d("10"), 5, tiers).StringFixed(2))
	assert.Equal(t, "9.50", UnitPrice(d("10"), 6, tiers).StringFixed(2))
	assert.Equal(t, "9.00", UnitPrice(d("10"), 12, tiers).StringFixed(2))
	// 3.33 * 0.95 = 3.1635 -> 3.16
	assert.Equal(t, "3.16", UnitPrice(d("3.33"), 6, tiers).StringFixed(2))
	// 0.45 * 0.90 = 0.405 -> half-up -> 0.41
	assert.Equal(t, "0.41", UnitPrice(d("0.45"), 12, tiers).StringFixed(2))
}

func TestUnitPrice_NonPositiveBase(t *testing.T) {
	assert.True(t, UnitPrice(decimal.Zero, 12, defaultTiers()).IsZero())
	assert.True(t, UnitPrice(d("-4"), 12, defaultTiers()).IsZero())
}

func TestUnitPrice_MonotonicNonIncreasing(t *testing.T) {
	tiers := []Tier{
		{MinQuantity: 2, Rate: d("0.02")},
		{MinQuantity: 6, Rate: d("0.05")},
		{MinQuantity: 12, Rate: d("0.10")},
		{MinQuantity: 24, Rate: d("0.15")},
	}
	base := d("17.90")
	prev := UnitPrice(base, 1, tiers)
	for q := 2; q <= 60; q++ {
		cur := UnitPrice(base, q, tiers)
		assert.True(t, cur.LessThanOrEqual(prev), "q=%d: %s > %s", q, cur, prev)
		prev = cur
	}
}

func TestNormalizeToStep(t *testing.T) {
	cases := []struct {
		qty, step, want int
	}{
		{7, 6, 6},
		{10, 6, 12},
		{9, 6, 12},
		{8, 6, 6},
		{1, 6, 6},
		{0, 6, 6},
		{-4, 6, 6},
		{12, 6, 12},
		{7, 5, 5},
		{8, 5, 10},
		{7, 0, 7},
		{0, 0, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeToStep(tc.qty, tc.step), "NormalizeToStep(%d, %d)", tc.qty, tc.step)
	}
}

func TestCartDiscount_Scenarios(t *testing.T) {
	tiers := defaultTiers()

	// 11 units at 10.00
	amount, tier, ok := CartDiscount(d("110"), 11, tiers)
	require.True(t, ok)
	assert.Equal(t, 6, tier.MinQuantity)
	assert.Equal(t, "5.50", amount.StringFixed(2))

	// 12 units at 10.00
	amount, tier, ok = CartDiscount(d("120"), 12, tiers)
	require.True(t, ok)
	assert.Equal(t, 12, tier.MinQuantity)
	assert.Equal(t, "12.00", amount.StringFixed(2))

	amount, _, ok = CartDiscount(d("50"), 5, tiers)
	assert.False(t, ok)
	assert.True(t, amount.IsZero())
}

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers("12:0.10, 6:0.05")
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, 6, tiers[0].MinQuantity)
	assert.Equal(t, 12, tiers[1].MinQuantity)

	empty, err := ParseTiers("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseTiers_Invalid(t *testing.T) {
	for _, in := range []string{"6", "x:0.1", "6:abc", "0:0.1", "6:1.5", "6:-0.1"} {
		_, err := ParseTiers(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidTier), in)
		assert.True(t, errors.Is(err, apperr.ErrValidation), in)
	}
}
