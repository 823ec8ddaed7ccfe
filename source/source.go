// Package source loads subject records for conversion modelling. A record
// describes one subject: when it was created, when (if ever) it converted,
// and when it was last observed. Sources only load; validation and grouping
// are the pipeline's job.
package source

import "time"

// Record is one subject's conversion history.
type Record struct {
	Group       string
	CreatedAt   time.Time
	ConvertedAt *time.Time
	ObservedAt  time.Time
}

// RecordSource loads subject records from some backing store.
type RecordSource interface {
	Load() ([]Record, error)
}

// MemorySource serves records already held in memory.
type MemorySource struct {
	Records []Record
}

func (s MemorySource) Load() ([]Record, error) {
	return s.Records, nil
}
