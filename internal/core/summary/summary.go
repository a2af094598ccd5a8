// Package summary derives the duplicate/anomaly report shown next to the record list.
package summary

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

var epsilon = decimal.RequireFromString(constants.AnomalyEpsilon)

// Generate recomputes the summary from scratch. The first record with a given NOP
// is not a duplicate; every later one is, and each NOP is reported once.
func Generate(records []entity.TaxRecord) entity.ValidationSummary {
	out := entity.ValidationSummary{
		TotalRecords:       len(records),
		DuplicateObjectIDs: []string{},
		Anomalies:          []string{},
	}

	seen := make(map[string]struct{}, len(records))
	reported := make(map[string]struct{})
	for _, r := range records {
		if _, dup := seen[r.ObjectID]; dup {
			if _, done := reported[r.ObjectID]; !done {
				reported[r.ObjectID] = struct{}{}
				out.DuplicateObjectIDs = append(out.DuplicateObjectIDs, r.ObjectID)
			}
		} else {
			seen[r.ObjectID] = struct{}{}
		}

		if calc := r.RecomputeTotal(); r.Total.Sub(calc).Abs().GreaterThan(epsilon) {
			out.Anomalies = append(out.Anomalies, fmt.Sprintf(
				"Total mismatch for NOP %s: stored %s, calculated %s",
				r.ObjectID, r.Total.String(), calc.String(),
			))
		}
	}
	return out
}
