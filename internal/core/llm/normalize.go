package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// ParseItems decodes the model's JSON array. Anything that is not a JSON array of
// items (including the schema not matching) is ErrMalformedResponse.
func ParseItems(raw []byte) ([]ExtractedItem, error) {
	raw = bytes.TrimSpace(stripCodeFence(raw))
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", common.ErrMalformedResponse)
	}
	if err := ValidateJSONAgainstSchema(BuildResponseJSONSchema(), raw); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	var items []ExtractedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	return items, nil
}

// Normalize maps extracted items onto the fixed-year record shape: every year in
// years starts as "no data", in-range years from the item overwrite it, years
// outside the window are dropped, and Total is the sum of positive amounts.
func Normalize(items []ExtractedItem, years entity.YearRange) []entity.TaxRecord {
	out := make([]entity.TaxRecord, 0, len(items))
	for _, it := range items {
		arrears := entity.NewArrears(years)
		for _, ya := range it.Arrears {
			if !years.Contains(ya.Year) {
				continue
			}
			arrears[ya.Year] = decimal.NewNullDecimal(ya.Amount)
		}
		out = append(out, entity.TaxRecord{
			TaxpayerName:  strings.TrimSpace(it.TaxpayerName),
			ObjectID:      strings.TrimSpace(it.ObjectID),
			ArrearsByYear: arrears,
			Total:         arrears.PositiveTotal(),
			Notes:         []string{},
		})
	}
	return out
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite the MIME type.
func stripCodeFence(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = bytes.TrimPrefix(s, []byte("```"))
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
}
