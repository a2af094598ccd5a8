package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestYearRange(t *testing.T) {
	r := YearRange{Start: 2020, End: 2023}
	assert.True(t, r.Valid())
	assert.Equal(t, []int{2020, 2021, 2022, 2023}, r.Years())
	assert.True(t, r.Contains(2020))
	assert.True(t, r.Contains(2023))
	assert.False(t, r.Contains(2019))
	assert.False(t, r.Contains(2024))

	assert.False(t, YearRange{Start: 2024, End: 2020}.Valid())
	assert.Empty(t, YearRange{Start: 2024, End: 2020}.Years())
	assert.Empty(t, NewArrears(YearRange{Start: 2024, End: 2020}))
}

func TestNewArrears_AllYearsNoData(t *testing.T) {
	a := NewArrears(YearRange{Start: 2018, End: 2020})
	assert.Len(t, a, 3)
	for _, y := range []int{2018, 2019, 2020} {
		v, ok := a[y]
		assert.True(t, ok, "year %d missing", y)
		assert.False(t, v.Valid, "year %d should be no data", y)
	}
}

func TestArrears_PositiveTotal(t *testing.T) {
	a := Arrears{
		2019: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		2020: decimal.NewNullDecimal(decimal.Zero),
		2021: decimal.NullDecimal{},
		2022: decimal.NewNullDecimal(decimal.NewFromInt(-40)),
		2023: decimal.NewNullDecimal(decimal.RequireFromString("25.50")),
	}
	assert.True(t, a.PositiveTotal().Equal(decimal.RequireFromString("125.50")))
}

func TestTaxRecord_Amount(t *testing.T) {
	rec := TaxRecord{ArrearsByYear: Arrears{
		2020: decimal.NullDecimal{},
		2021: decimal.NewNullDecimal(decimal.NewFromInt(500)),
	}}

	_, ok := rec.Amount(2020)
	assert.False(t, ok)

	v, ok := rec.Amount(2021)
	assert.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(500)))

	_, ok = rec.Amount(1999)
	assert.False(t, ok)
}
