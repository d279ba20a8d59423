package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// MissingCategory replaces absent or empty categorical values before encoding.
const MissingCategory = "Missing"

type Column struct {
	Name string
	Kind Kind
}

// Schema is the ordered input and output contract of a trained artifact. It
// is fixed at load time and never changes afterwards.
type Schema struct {
	inputs  []Column
	columns []string
	index   map[string]int

	// field -> category -> output column index, for indicator columns present
	// in the trained column list.
	indicators map[string]map[string]int
}

func NewSchema(numeric, categorical, columns []string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, errors.New("schema: final column list is empty")
	}
	if len(numeric)+len(categorical) == 0 {
		return nil, errors.New("schema: no input features declared")
	}

	s := &Schema{
		inputs:     make([]Column, 0, len(numeric)+len(categorical)),
		columns:    append([]string(nil), columns...),
		index:      make(map[string]int, len(columns)),
		indicators: make(map[string]map[string]int, len(categorical)),
	}

	seen := map[string]bool{}
	for _, n := range numeric {
		if err := checkName(seen, n); err != nil {
			return nil, err
		}
		s.inputs = append(s.inputs, Column{Name: n, Kind: KindNumeric})
	}
	for _, n := range categorical {
		if err := checkName(seen, n); err != nil {
			return nil, err
		}
		s.inputs = append(s.inputs, Column{Name: n, Kind: KindCategorical})
		s.indicators[n] = map[string]int{}
	}

	for i, c := range s.columns {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("schema: empty column name at position %d", i)
		}
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("schema: duplicate column %q", c)
		}
		s.index[c] = i
	}

	// Longest field name wins when one categorical field name prefixes another.
	cats := append([]string(nil), categorical...)
	sort.Slice(cats, func(i, j int) bool { return len(cats[i]) > len(cats[j]) })
	numericSet := make(map[string]struct{}, len(numeric))
	for _, n := range numeric {
		numericSet[n] = struct{}{}
	}
	for i, c := range s.columns {
		if _, ok := numericSet[c]; ok {
			continue
		}
		for _, field := range cats {
			prefix := field + "_"
			if strings.HasPrefix(c, prefix) && len(c) > len(prefix) {
				s.indicators[field][c[len(prefix):]] = i
				break
			}
		}
	}
	return s, nil
}

func checkName(seen map[string]bool, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("schema: empty feature name")
	}
	if seen[name] {
		return fmt.Errorf("schema: feature %q declared twice", name)
	}
	seen[name] = true
	return nil
}

// Inputs returns the declared input columns, numeric first.
func (s *Schema) Inputs() []Column { return append([]Column(nil), s.inputs...) }

// Columns returns the ordered final column list the scoring model expects.
func (s *Schema) Columns() []string { return append([]string(nil), s.columns...) }

func (s *Schema) Numeric() []string { return s.names(KindNumeric) }

func (s *Schema) Categorical() []string { return s.names(KindCategorical) }

func (s *Schema) names(kind Kind) []string {
	var out []string
	for _, c := range s.inputs {
		if c.Kind == kind {
			out = append(out, c.Name)
		}
	}
	return out
}

// ColumnIndex reports the position of a final column.
func (s *Schema) ColumnIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// TrainedCategories lists the non-reference categories of a field as seen in
// the trained column list, sorted.
func (s *Schema) TrainedCategories(field string) []string {
	m := s.indicators[field]
	out := make([]string, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IndicatorName is the one-hot column name for a field value.
func IndicatorName(field, value string) string {
	return field + "_" + value
}
