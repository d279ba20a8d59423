package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyBatch    = errors.New("features: empty batch")
	ErrMissingColumn = errors.New("features: missing required column")
	ErrInvalidValue  = errors.New("features: invalid value")
	ErrScalerShape   = errors.New("features: scaler output shape mismatch")
)

// Row is one loosely-typed employee record keyed by raw field name.
type Row map[string]any

// Scaler is a fitted numeric transform. Implementations must not refit.
type Scaler interface {
	Transform(X *mat.Dense) (*mat.Dense, error)
}

// Mode selects the category universe used for one-hot encoding.
type Mode string

const (
	// ModeBatch encodes against the categories present in the batch and drops
	// the lexically first one per field.
	ModeBatch Mode = "batch"
	// ModeSchema encodes against the indicator columns of the trained schema,
	// so a row encodes the same way regardless of its batch.
	ModeSchema Mode = "schema"
)

// Matrix is an aligned feature matrix; Columns matches the trained order.
type Matrix struct {
	Columns []string
	Data    *mat.Dense
}

func (m *Matrix) Rows() int {
	if m == nil || m.Data == nil {
		return 0
	}
	r, _ := m.Data.Dims()
	return r
}

func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Data)
}

type Aligner struct {
	schema *Schema
	scaler Scaler
	mode   Mode
	chunk  int
}

type Option func(*Aligner)

// WithParallelChunk splits schema-mode batches larger than n rows into chunks
// aligned concurrently. Batch mode always aligns as one unit.
func WithParallelChunk(n int) Option {
	return func(a *Aligner) {
		if n > 0 {
			a.chunk = n
		}
	}
}

func NewAligner(schema *Schema, scaler Scaler, mode Mode, opts ...Option) *Aligner {
	if mode != ModeSchema {
		mode = ModeBatch
	}
	a := &Aligner{schema: schema, scaler: scaler, mode: mode}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aligner) Schema() *Schema { return a.schema }

func (a *Aligner) Mode() Mode { return a.mode }

// Align converts rows into the matrix the scoring model expects: declared
// columns only, "Missing" for absent categories, one-hot with a dropped
// reference level, scaled numerics, zero-filled absent indicators, trained
// column order. It never guesses: any unusable input is an error.
func (a *Aligner) Align(ctx context.Context, rows []Row) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyBatch
	}
	if err := a.checkColumns(rows); err != nil {
		return nil, err
	}

	var (
		data *mat.Dense
		err  error
	)
	if a.mode == ModeSchema && a.chunk > 0 && len(rows) > a.chunk {
		data, err = a.alignChunked(ctx, rows)
	} else {
		data, err = a.alignBlock(rows, 0)
	}
	if err != nil {
		return nil, err
	}
	return &Matrix{Columns: a.schema.Columns(), Data: data}, nil
}

// checkColumns fails when a declared feature is absent from every row. A key
// missing from only some rows is a missing value, not a missing column.
func (a *Aligner) checkColumns(rows []Row) error {
	for _, c := range a.schema.inputs {
		found := false
		for _, r := range rows {
			if _, ok := r[c.Name]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrMissingColumn, c.Name)
		}
	}
	return nil
}

func (a *Aligner) alignChunked(ctx context.Context, rows []Row) (*mat.Dense, error) {
	n := len(rows)
	parts := make([]*mat.Dense, (n+a.chunk-1)/a.chunk)

	g, gctx := errgroup.WithContext(ctx)
	for p := range parts {
		lo := p * a.chunk
		hi := min(lo+a.chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := a.alignBlock(rows[lo:hi], lo)
			if err != nil {
				return err
			}
			parts[p] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := mat.NewDense(n, len(a.schema.columns), nil)
	for p, d := range parts {
		lo := p * a.chunk
		r, c := d.Dims()
		out.Slice(lo, lo+r, 0, c).(*mat.Dense).Copy(d)
	}
	return out, nil
}

// alignBlock aligns rows as one encoding unit; offset only shifts row numbers
// in error messages.
func (a *Aligner) alignBlock(rows []Row, offset int) (*mat.Dense, error) {
	n := len(rows)
	numeric := a.schema.Numeric()
	categorical := a.schema.Categorical()
	out := mat.NewDense(n, len(a.schema.columns), nil)

	if len(numeric) > 0 {
		raw := mat.NewDense(n, len(numeric), nil)
		for i, row := range rows {
			for j, name := range numeric {
				v, err := numericValue(row[name])
				if err != nil {
					return nil, fmt.Errorf("%w: row %d column %s: %v", ErrInvalidValue, offset+i, name, err)
				}
				raw.Set(i, j, v)
			}
		}
		scaled, err := a.scaler.Transform(raw)
		if err != nil {
			return nil, fmt.Errorf("scale numeric features: %w", err)
		}
		if r, c := scaled.Dims(); r != n || c != len(numeric) {
			return nil, fmt.Errorf("%w: got %dx%d want %dx%d", ErrScalerShape, r, c, n, len(numeric))
		}
		for j, name := range numeric {
			idx, ok := a.schema.ColumnIndex(name)
			if !ok {
				continue
			}
			for i := 0; i < n; i++ {
				out.Set(i, idx, scaled.At(i, j))
			}
		}
	}

	for _, field := range categorical {
		values := make([]string, n)
		for i, row := range rows {
			values[i] = categoryValue(row[field])
		}
		indicators := a.indicatorColumns(field, values)
		for i, v := range values {
			if idx, ok := indicators[v]; ok {
				out.Set(i, idx, 1)
			}
		}
	}
	return out, nil
}

// indicatorColumns maps each encodable value of field to its output column.
// Values whose indicator is not a trained column are never populated.
func (a *Aligner) indicatorColumns(field string, values []string) map[string]int {
	levels := uniqueSorted(values)
	if a.mode == ModeBatch && len(levels) > 0 {
		levels = levels[1:]
	}
	out := make(map[string]int, len(levels))
	for _, v := range levels {
		if idx, ok := a.schema.ColumnIndex(IndicatorName(field, v)); ok {
			out[v] = idx
		}
	}
	return out
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func categoryValue(v any) string {
	switch t := v.(type) {
	case nil:
		return MissingCategory
	case string:
		if strings.TrimSpace(t) == "" {
			return MissingCategory
		}
		return t
	case *string:
		if t == nil {
			return MissingCategory
		}
		return categoryValue(*t)
	default:
		return fmt.Sprint(t)
	}
}

func numericValue(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, errors.New("value is missing")
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, errors.New("value is missing")
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("value is not finite")
	}
	return f, nil
}
