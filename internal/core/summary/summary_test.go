package summary

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

func record(nop string, total string, amounts map[int]string) entity.TaxRecord {
	a := entity.Arrears{}
	for y, v := range amounts {
		if v == "" {
			a[y] = decimal.NullDecimal{}
			continue
		}
		a[y] = decimal.NewNullDecimal(decimal.RequireFromString(v))
	}
	return entity.TaxRecord{ObjectID: nop, Total: decimal.RequireFromString(total), ArrearsByYear: a}
}

func TestGenerate_Duplicates(t *testing.T) {
	var recs []entity.TaxRecord
	for _, nop := range []string{"A", "B", "A", "C", "A"} {
		recs = append(recs, record(nop, "0", nil))
	}

	s := Generate(recs)
	assert.Equal(t, 5, s.TotalRecords)
	assert.Equal(t, []string{"A"}, s.DuplicateObjectIDs)
	assert.Empty(t, s.Anomalies)
}

func TestGenerate_DuplicatesFirstSeenOrder(t *testing.T) {
	var recs []entity.TaxRecord
	for _, nop := range []string{"X", "Y", "Y", "X", "Z"} {
		recs = append(recs, record(nop, "0", nil))
	}
	assert.Equal(t, []string{"Y", "X"}, Generate(recs).DuplicateObjectIDs)
}

func TestGenerate_Anomalies(t *testing.T) {
	tests := []struct {
		name    string
		rec     entity.TaxRecord
		flagged bool
	}{
		{
			name:    "stored 100 vs calculated 85 is flagged",
			rec:     record("N1", "100", map[int]string{2020: "50", 2021: "35", 2022: ""}),
			flagged: true,
		},
		{
			name: "exact match not flagged",
			rec:  record("N2", "85", map[int]string{2020: "50", 2021: "35"}),
		},
		{
			name: "within epsilon not flagged",
			rec:  record("N3", "85.005", map[int]string{2020: "50", 2021: "35"}),
		},
		{
			name:    "just beyond epsilon flagged",
			rec:     record("N4", "85.02", map[int]string{2020: "50", 2021: "35"}),
			flagged: true,
		},
		{
			name: "zero and no data contribute nothing",
			rec:  record("N5", "10", map[int]string{2020: "0", 2021: "", 2022: "10", 2023: "-5"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Generate([]entity.TaxRecord{tt.rec})
			if tt.flagged {
				assert.Len(t, s.Anomalies, 1)
				assert.Contains(t, s.Anomalies[0], tt.rec.ObjectID)
			} else {
				assert.Empty(t, s.Anomalies)
			}
		})
	}
}

func TestGenerate_AnomalyMessage(t *testing.T) {
	s := Generate([]entity.TaxRecord{record("N1", "100", map[int]string{2020: "85"})})
	assert.Equal(t, []string{"Total mismatch for NOP N1: stored 100, calculated 85"}, s.Anomalies)
}

func TestGenerate_Empty(t *testing.T) {
	s := Generate(nil)
	assert.Equal(t, 0, s.TotalRecords)
	assert.NotNil(t, s.DuplicateObjectIDs)
	assert.NotNil(t, s.Anomalies)
	assert.True(t, s.Clean())
}
