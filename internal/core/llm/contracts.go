package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// Document is one uploaded file ready for submission to the model.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
	HashHex  string
}

// ExtractedItem is the raw shape the model returns for one taxpayer/object.
type ExtractedItem struct {
	TaxpayerName string       `json:"nama"`
	ObjectID     string       `json:"nop"`
	Arrears      []YearAmount `json:"tunggakan"`
}

// YearAmount is one "Kurang Bayar" entry.
type YearAmount struct {
	Year   int             `json:"tahun"`
	Amount decimal.Decimal `json:"jumlah"`
}

// UnmarshalJSON accepts any whole-valued JSON number for the year, so 2020 and
// 2020.0 decode alike.
func (y *YearAmount) UnmarshalJSON(b []byte) error {
	var raw struct {
		Year   json.Number     `json:"tahun"`
		Amount decimal.Decimal `json:"jumlah"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f, err := raw.Year.Float64()
	if err != nil {
		return fmt.Errorf("tahun %q: %w", raw.Year, err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("tahun %s is not a whole year", raw.Year)
	}
	y.Year = int(f)
	y.Amount = raw.Amount
	return nil
}

// Extractor turns one document into normalized tax records.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]entity.TaxRecord, error)
}
