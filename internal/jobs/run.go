package jobs

import "time"

// Run owns the records accumulated by one pipeline execution.
// It is not safe for concurrent use; a run is driven by a single goroutine.
type Run struct {
	Started time.Time

	records []Record
	next    int
}

// NewRun starts an empty run.
func NewRun() *Run {
	return &Run{Started: time.Now(), next: 1}
}

// Append assigns the next index to each record, in order, and stores them.
// The stored copies are returned.
func (r *Run) Append(recs ...Record) []Record {
	start := len(r.records)
	for _, rec := range recs {
		rec.Index = r.next
		r.next++
		r.records = append(r.records, rec)
	}
	return r.records[start:]
}

// Len reports how many records the run holds.
func (r *Run) Len() int {
	return len(r.records)
}

// Records returns a copy of the accumulated records in extraction order.
func (r *Run) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Elapsed reports the time since the run started.
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.Started)
}
