package artifact

import (
	"errors"
	"time"

	"github.com/yungbote/attrition-backend/internal/prediction/features"
)

var ErrUnavailable = errors.New("artifact: unavailable")

type Status string

const (
	StatusLoaded   Status = "loaded"
	StatusDegraded Status = "degraded"
)

type Info struct {
	Status        Status    `json:"status"`
	Source        string    `json:"source,omitempty"`
	Version       string    `json:"version,omitempty"`
	FormatVersion int       `json:"format_version,omitempty"`
	Checksum      string    `json:"checksum,omitempty"`
	ModelKind     string    `json:"model_kind,omitempty"`
	NumCols       []string  `json:"num_cols,omitempty"`
	CatCols       []string  `json:"cat_cols,omitempty"`
	Columns       []string  `json:"columns,omitempty"`
	LoadedAt      time.Time `json:"loaded_at"`
	Error         string    `json:"error,omitempty"`
}

// Handle is the process-wide, read-only view of a loaded artifact. A degraded
// handle carries the load error and no model; it never becomes available later.
type Handle struct {
	bundle *Bundle
	schema *features.Schema
	model  Model
	info   Info
	err    error
}

// NewHandle validates b and compiles its model.
func NewHandle(b *Bundle, source, checksum string) (*Handle, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	m, err := b.Model.Build()
	if err != nil {
		return nil, err
	}
	return newHandle(b, m, source, checksum)
}

// NewHandleWithModel pairs the layout of b with an externally supplied model;
// b.Model is ignored.
func NewHandleWithModel(b *Bundle, m Model) (*Handle, error) {
	if err := b.validateLayout(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("artifact: nil model")
	}
	return newHandle(b, m, "", "")
}

func newHandle(b *Bundle, m Model, source, checksum string) (*Handle, error) {
	schema, err := b.Schema()
	if err != nil {
		return nil, err
	}
	return &Handle{
		bundle: b,
		schema: schema,
		model:  m,
		info: Info{
			Status:        StatusLoaded,
			Source:        source,
			Version:       b.Version,
			FormatVersion: b.FormatVersion,
			Checksum:      checksum,
			ModelKind:     m.Kind(),
			NumCols:       append([]string(nil), b.NumCols...),
			CatCols:       append([]string(nil), b.CatCols...),
			Columns:       append([]string(nil), b.Columns...),
			LoadedAt:      time.Now().UTC(),
		},
	}, nil
}

// Degraded returns a handle that records why no artifact is available.
func Degraded(source string, err error) *Handle {
	if err == nil {
		err = ErrUnavailable
	}
	return &Handle{
		err: err,
		info: Info{
			Status:   StatusDegraded,
			Source:   source,
			LoadedAt: time.Now().UTC(),
			Error:    err.Error(),
		},
	}
}

func (h *Handle) Available() bool {
	return h != nil && h.err == nil && h.model != nil && h.schema != nil
}

// Err is the load failure of a degraded handle, nil otherwise.
func (h *Handle) Err() error {
	if h == nil {
		return ErrUnavailable
	}
	return h.err
}

func (h *Handle) Bundle() *Bundle { return h.bundle }

func (h *Handle) Schema() *features.Schema { return h.schema }

func (h *Handle) Model() Model { return h.model }

// Scaler is the fitted numeric scaler of the bundle.
func (h *Handle) Scaler() features.Scaler {
	if h == nil || h.bundle == nil {
		return nil
	}
	return h.bundle.Scaler
}

func (h *Handle) Info() Info {
	if h == nil {
		return Info{Status: StatusDegraded, Error: ErrUnavailable.Error()}
	}
	return h.info
}
