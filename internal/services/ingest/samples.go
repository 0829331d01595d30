package ingest

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/tally/internal/models"
)

//go:embed samples.yaml
var samplesYAML []byte

// ErrSampleNotFound is returned for an unknown sample name
var ErrSampleNotFound = errors.New("sample not found")

// Sample is a built-in dataset used for demos and smoke tests
type Sample struct {
	Name        string              `yaml:"name" json:"name"`
	Title       string              `yaml:"title" json:"title"`
	Description string              `yaml:"description" json:"description"`
	Columns     []string            `yaml:"columns" json:"columns"`
	Rows        []map[string]string `yaml:"-" json:"rows"`
}

// RawRows returns the sample rows as analysis input
func (s Sample) RawRows() []models.RawRow {
	t := Table{Columns: s.Columns, Rows: s.Rows}
	return t.RawRows()
}

type sampleDoc struct {
	Name        string           `yaml:"name"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Columns     []string         `yaml:"columns"`
	Rows        []map[string]any `yaml:"rows"`
}

var (
	samplesOnce sync.Once
	samples     []Sample
	samplesErr  error
)

// Samples returns every embedded sample in file order
func Samples() ([]Sample, error) {
	samplesOnce.Do(func() {
		samples, samplesErr = parseSamples(samplesYAML)
	})
	if samplesErr != nil {
		return nil, samplesErr
	}
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out, nil
}

// LookupSample returns the named sample
func LookupSample(name string) (Sample, error) {
	all, err := Samples()
	if err != nil {
		return Sample{}, err
	}
	for _, s := range all {
		if s.Name == name {
			return s, nil
		}
	}
	return Sample{}, fmt.Errorf("%w: %s", ErrSampleNotFound, name)
}

func parseSamples(data []byte) ([]Sample, error) {
	var docs []sampleDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse samples: %w", err)
	}

	out := make([]Sample, 0, len(docs))
	for _, d := range docs {
		s := Sample{
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			Columns:     d.Columns,
			Rows:        make([]map[string]string, 0, len(d.Rows)),
		}
		for _, r := range d.Rows {
			row := make(map[string]string, len(r))
			for k, v := range r {
				row[k] = cellString(v)
			}
			s.Rows = append(s.Rows, row)
		}
		out = append(out, s)
	}
	return out, nil
}

// cellString renders a YAML scalar the way it would appear in a CSV cell
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
