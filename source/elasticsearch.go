package source

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/pkg/errors"
)

// ElasticsearchSource scrolls subject records out of an index. Field names
// default to group, created_at, converted_at and observed_at; timestamps are
// expected in RFC 3339. An optional Group narrows the scroll to one group
// with a term filter.
type ElasticsearchSource struct {
	Hosts []string
	Index string
	Group string

	GroupField     string
	CreatedField   string
	ConvertedField string
	ObservedField  string

	client *elastic.Client
}

func (s *ElasticsearchSource) Load() ([]Record, error) {
	if s.client == nil {
		var err error
		if len(s.Hosts) == 0 {
			s.client, err = elastic.NewClient(elastic.SetURL("http://localhost:9200"))
		} else {
			s.client, err = elastic.NewClient(elastic.SetURL(s.Hosts...))
		}
		if err != nil {
			return nil, err
		}
	}

	groupField := defaultColumn(s.GroupField, "group")
	createdField := defaultColumn(s.CreatedField, "created_at")
	convertedField := defaultColumn(s.ConvertedField, "converted_at")
	observedField := defaultColumn(s.ObservedField, "observed_at")

	var query elastic.Query = elastic.NewMatchAllQuery()
	if s.Group != "" {
		query = elastic.NewTermQuery(groupField, s.Group)
	}

	svc := s.client.Scroll(s.Index).
		KeepAlive("1h").
		Size(1000).
		Query(query)
	defer svc.Clear(context.Background())

	now := time.Now()
	var records []Record
	for {
		result, err := svc.Do(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, hit := range result.Hits.Hits {
			var doc map[string]interface{}
			if err := json.Unmarshal(hit.Source, &doc); err != nil {
				return nil, errors.Wrapf(err, "document %s", hit.Id)
			}
			r := Record{ObservedAt: now}
			if g, ok := doc[groupField].(string); ok {
				r.Group = g
			}
			created, ok := doc[createdField].(string)
			if !ok {
				return nil, errors.Errorf("document %s has no %s", hit.Id, createdField)
			}
			r.CreatedAt, err = time.Parse(time.RFC3339, created)
			if err != nil {
				return nil, errors.Wrapf(err, "document %s %s", hit.Id, createdField)
			}
			if converted, ok := doc[convertedField].(string); ok && converted != "" {
				t, err := time.Parse(time.RFC3339, converted)
				if err != nil {
					return nil, errors.Wrapf(err, "document %s %s", hit.Id, convertedField)
				}
				r.ConvertedAt = &t
			}
			if observed, ok := doc[observedField].(string); ok && observed != "" {
				r.ObservedAt, err = time.Parse(time.RFC3339, observed)
				if err != nil {
					return nil, errors.Wrapf(err, "document %s %s", hit.Id, observedField)
				}
			}
			records = append(records, r)
		}
	}
	return records, nil
}
