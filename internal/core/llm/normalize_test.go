package llm

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalize_FillsEveryYear(t *testing.T) {
	years := entity.YearRange{Start: 2018, End: 2022}
	items := []ExtractedItem{{
		TaxpayerName: "  Budi Santoso ",
		ObjectID:     "35.07.010.001.002-0123.0",
		Arrears: []YearAmount{
			{Year: 2019, Amount: dec("150000")},
			{Year: 2020, Amount: dec("0")},
			{Year: 2022, Amount: dec("75000.50")},
		},
	}}

	recs := Normalize(items, years)
	require.Len(t, recs, 1)
	rec := recs[0]

	assert.Equal(t, "Budi Santoso", rec.TaxpayerName)
	assert.Equal(t, "35.07.010.001.002-0123.0", rec.ObjectID)
	assert.Len(t, rec.ArrearsByYear, 5)

	assert.False(t, rec.ArrearsByYear[2018].Valid, "absent year must be no data, not zero")
	assert.False(t, rec.ArrearsByYear[2021].Valid)

	v2020 := rec.ArrearsByYear[2020]
	assert.True(t, v2020.Valid, "explicit zero must be preserved")
	assert.True(t, v2020.Decimal.IsZero())

	assert.True(t, rec.ArrearsByYear[2019].Decimal.Equal(dec("150000")))
	assert.True(t, rec.Total.Equal(dec("225000.50")))
	assert.NotNil(t, rec.Notes)
	assert.Empty(t, rec.Notes)
}

func TestNormalize_DropsOutOfRangeYears(t *testing.T) {
	years := entity.YearRange{Start: 2020, End: 2021}
	recs := Normalize([]ExtractedItem{{
		TaxpayerName: "Siti",
		ObjectID:     "1",
		Arrears: []YearAmount{
			{Year: 2010, Amount: dec("999")},
			{Year: 2021, Amount: dec("10")},
			{Year: 2030, Amount: dec("999")},
		},
	}}, years)

	require.Len(t, recs, 1)
	assert.Len(t, recs[0].ArrearsByYear, 2)
	_, has2010 := recs[0].ArrearsByYear[2010]
	assert.False(t, has2010)
	assert.True(t, recs[0].Total.Equal(dec("10")))
}

func TestNormalize_TotalIgnoresNonPositive(t *testing.T) {
	tests := []struct {
		name    string
		amounts []YearAmount
		want    string
	}{
		{"all no data", nil, "0"},
		{"zeros only", []YearAmount{{2020, dec("0")}, {2021, dec("0")}}, "0"},
		{"negative ignored", []YearAmount{{2020, dec("-50")}, {2021, dec("80")}}, "80"},
		{"mixed", []YearAmount{{2020, dec("12.25")}, {2021, dec("0")}, {2022, dec("7.75")}}, "20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Normalize([]ExtractedItem{{TaxpayerName: "x", ObjectID: "y", Arrears: tt.amounts}},
				entity.YearRange{Start: 2020, End: 2022})
			require.Len(t, recs, 1)
			assert.True(t, recs[0].Total.Equal(dec(tt.want)), "got %s", recs[0].Total)
			assert.True(t, recs[0].Total.Equal(recs[0].RecomputeTotal()))
		})
	}
}

func TestNormalize_EmptyItems(t *testing.T) {
	recs := Normalize(nil, entity.YearRange{Start: 2020, End: 2021})
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestParseItems(t *testing.T) {
	raw := []byte(`[{"nama":"Budi","nop":"123","tunggakan":[{"tahun":2021,"jumlah":500}]}]`)
	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Budi", items[0].TaxpayerName)
	assert.Equal(t, 2021, items[0].Arrears[0].Year)
	assert.True(t, items[0].Arrears[0].Amount.Equal(dec("500")))
}

func TestParseItems_WholeFloatYear(t *testing.T) {
	raw := []byte(`[{"nama":"Budi","nop":"123","tunggakan":[{"tahun":2020.0,"jumlah":500},{"tahun":2.021e3,"jumlah":1}]}]`)
	items, err := ParseItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, items[0].Arrears, 2)
	assert.Equal(t, 2020, items[0].Arrears[0].Year)
	assert.Equal(t, 2021, items[0].Arrears[1].Year)
}

func TestYearAmount_RejectsFractionalYear(t *testing.T) {
	var ya YearAmount
	err := json.Unmarshal([]byte(`{"tahun":2020.5,"jumlah":1}`), &ya)
	assert.Error(t, err)
}

func TestParseItems_CodeFence(t *testing.T) {
	raw := []byte("```json\n[{\"nama\":\"A\",\"nop\":\"1\",\"tunggakan\":[]}]\n```")
	items, err := ParseItems(raw)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestParseItems_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Sorry, I cannot read this document."},
		{"empty", "   "},
		{"object instead of array", `{"nama":"A","nop":"1","tunggakan":[]}`},
		{"missing nop", `[{"nama":"A","tunggakan":[]}]`},
		{"amount as string", `[{"nama":"A","nop":"1","tunggakan":[{"tahun":2020,"jumlah":"500"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItems([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrMalformedResponse)
		})
	}
}
