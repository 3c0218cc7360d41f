// Package local reads candidate rows from a YAML or JSON file, such as the
// output of the sermon media pipeline.
package local

import (
	"context"
	"iter"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/churchmedia/pewsync/pkg/errors"
	"github.com/churchmedia/pewsync/pkg/records"
)

// MapFunc turns one file row into a candidate. A row that cannot be keyed
// should return a candidate with an empty key so the run reports it.
type MapFunc func(row records.Fields) records.Candidate

// Source is a feed backed by a file holding either one mapping or a
// sequence of mappings. JSON files are read as YAML.
type Source struct {
	name   string
	path   string
	data   []byte
	mapper MapFunc
}

// Option configures a local source.
type Option func(*Source)

// WithPath reads rows from path.
func WithPath(path string) Option {
	return func(s *Source) {
		s.path = path
	}
}

// WithData reads rows from data instead of a file.
func WithData(data []byte) Option {
	return func(s *Source) {
		s.data = data
	}
}

// New creates a local source named name that maps rows with mapper.
func New(name string, mapper MapFunc, opts ...Option) *Source {
	s := &Source{name: name, mapper: mapper}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the feed name.
func (s *Source) Name() string { return s.name }

// Candidates reads the file and yields one candidate per row, in file order.
func (s *Source) Candidates(ctx context.Context) iter.Seq2[records.Candidate, error] {
	return func(yield func(records.Candidate, error) bool) {
		rows, err := s.Rows()
		if err != nil {
			yield(records.Candidate{}, err)
			return
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				yield(records.Candidate{}, errors.NewResourceError("read", "rows", s.name, err))
				return
			}
			if !yield(s.mapper(row), nil) {
				return
			}
		}
	}
}

// Rows decodes every row of the source.
func (s *Source) Rows() ([]records.Fields, error) {
	data := s.data
	if data == nil {
		if s.path == "" {
			return nil, errors.NewConfigError("local", "no path or data configured", nil)
		}
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return nil, errors.WrapResource("load", "file", s.path, err)
		}
	}
	return Parse(data, s.path)
}

// Parse decodes rows from YAML or JSON, keeping key order.
func Parse(data []byte, source string) ([]records.Fields, error) {
	var many []yaml.MapSlice
	if err := yaml.Unmarshal(data, &many); err != nil {
		var one yaml.MapSlice
		if errOne := yaml.Unmarshal(data, &one); errOne != nil {
			return nil, errors.WrapParse("yaml", source, err)
		}
		many = []yaml.MapSlice{one}
	}
	rows := make([]records.Fields, 0, len(many))
	for _, m := range many {
		row := make(records.Fields, 0, len(m))
		for _, item := range m {
			key, ok := item.Key.(string)
			if !ok {
				continue
			}
			row = row.Set(key, normalize(item.Value))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case uint64:
		return int64(t)
	case int:
		return int64(t)
	}
	return v
}
