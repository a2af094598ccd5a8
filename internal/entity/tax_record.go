package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// YearRange is the inclusive window of tax years tracked per record.
type YearRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Valid reports whether the range is non-empty.
func (r YearRange) Valid() bool { return r.Start > 0 && r.End >= r.Start }

// Contains reports whether year falls inside the range.
func (r YearRange) Contains(year int) bool { return year >= r.Start && year <= r.End }

// Years lists every year in the range, ascending.
func (r YearRange) Years() []int {
	if !r.Valid() {
		return nil
	}
	out := make([]int, 0, r.End-r.Start+1)
	for y := r.Start; y <= r.End; y++ {
		out = append(out, y)
	}
	return out
}

func (r YearRange) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// Arrears maps a tax year to the amount due. An invalid NullDecimal is the
// "no data" marker: the source document did not mention that year.
type Arrears map[int]decimal.NullDecimal

// NewArrears returns a mapping with every year of r set to "no data".
func NewArrears(r YearRange) Arrears {
	years := r.Years()
	a := make(Arrears, len(years))
	for _, y := range years {
		a[y] = decimal.NullDecimal{}
	}
	return a
}

// PositiveTotal sums the strictly positive amounts; zero and "no data" contribute nothing.
func (a Arrears) PositiveTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range a {
		if v.Valid && v.Decimal.IsPositive() {
			total = total.Add(v.Decimal)
		}
	}
	return total
}

// TaxRecord is one taxpayer/object row extracted from a PBB-P2 document.
type TaxRecord struct {
	ID            uuid.UUID       `json:"id"`
	TaxpayerName  string          `json:"nama"`
	ObjectID      string          `json:"nop"`
	ArrearsByYear Arrears         `json:"tunggakan"`
	Total         decimal.Decimal `json:"total"`
	Notes         []string        `json:"catatan"`
	SourceFile    string          `json:"source_file,omitempty"`
	BatchID       uuid.UUID       `json:"batch_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Amount returns the amount for year and whether the document carried one.
func (r TaxRecord) Amount(year int) (decimal.Decimal, bool) {
	v, ok := r.ArrearsByYear[year]
	if !ok || !v.Valid {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

// RecomputeTotal derives the total from the arrears mapping.
func (r TaxRecord) RecomputeTotal() decimal.Decimal {
	return r.ArrearsByYear.PositiveTotal()
}
