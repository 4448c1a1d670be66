package store

// RecordFailure identifies a single record that could not be written.
type RecordFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Report aggregates the outcome of a bulk upsert. A non-empty Skipped list is
// not an error: the batch is best-effort and the rest of the records proceed.
type Report struct {
	Written int             `json:"written"`
	Skipped []RecordFailure `json:"skipped,omitempty"`
}

// SkippedCount returns the number of records that were not written.
func (r Report) SkippedCount() int {
	return len(r.Skipped)
}
