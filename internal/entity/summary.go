package entity

// ValidationSummary is derived from the current record list on every request; never stored.
type ValidationSummary struct {
	TotalRecords       int      `json:"total_records"`
	DuplicateObjectIDs []string `json:"duplicate_nops"`
	Anomalies          []string `json:"anomalies"`
}

// Clean reports whether the summary found neither duplicates nor anomalies.
func (s ValidationSummary) Clean() bool {
	return len(s.DuplicateObjectIDs) == 0 && len(s.Anomalies) == 0
}
