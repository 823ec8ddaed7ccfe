package source

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// csvRecord is the on-disk row layout. Timestamps are either RFC 3339 or a
// bare date; an empty converted_at means the subject has not converted and
// an empty observed_at means observed now.
type csvRecord struct {
	Group       string `csv:"group"`
	CreatedAt   string `csv:"created_at"`
	ConvertedAt string `csv:"converted_at"`
	ObservedAt  string `csv:"observed_at"`
}

// CSVSource loads subject records from a CSV file.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load() ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*csvRecord
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "reading %s", s.Path)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		r := Record{Group: row.Group}
		r.CreatedAt, err = parseTime(row.CreatedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d created_at", i+1)
		}
		if row.ConvertedAt != "" {
			t, err := parseTime(row.ConvertedAt)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d converted_at", i+1)
			}
			r.ConvertedAt = &t
		}
		if row.ObservedAt != "" {
			r.ObservedAt, err = parseTime(row.ObservedAt)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d observed_at", i+1)
			}
		} else {
			r.ObservedAt = time.Now()
		}
		records[i] = r
	}
	return records, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
