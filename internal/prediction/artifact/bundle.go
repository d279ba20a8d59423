package artifact

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yungbote/attrition-backend/internal/prediction/features"
)

// FormatVersion is the bundle layout this build understands.
const FormatVersion = 1

var (
	ErrUnsupportedFormat = errors.New("artifact: unsupported format version")
	ErrInvalidBundle     = errors.New("artifact: invalid bundle")
)

// Bundle is the serialized trained artifact: scoring model, fitted scaler and
// the feature lists recorded at training time.
type Bundle struct {
	FormatVersion int       `json:"format_version"`
	Version       string    `json:"version"`
	CreatedAt     time.Time `json:"created_at,omitempty"`

	NumCols []string `json:"num_cols"`
	CatCols []string `json:"cat_cols"`
	Columns []string `json:"columns"`

	Scaler ScalerSpec `json:"scaler"`
	Model  ModelSpec  `json:"model"`
}

// Decode reads a bundle (plain or gzip JSON) and returns it with the sha256 of
// the raw bytes.
func Decode(r io.Reader) (*Bundle, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read artifact: %w", err)
	}
	sum := sha256.Sum256(raw)
	checksum := hex.EncodeToString(sum[:])

	body := raw
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, checksum, fmt.Errorf("open gzip artifact: %w", err)
		}
		defer zr.Close()
		body, err = io.ReadAll(zr)
		if err != nil {
			return nil, checksum, fmt.Errorf("decompress artifact: %w", err)
		}
	}

	var b Bundle
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, checksum, fmt.Errorf("%w: decode: %v", ErrInvalidBundle, err)
	}
	return &b, checksum, nil
}

// Validate checks that every piece of the bundle agrees on the column layout.
func (b *Bundle) Validate() error {
	if err := b.validateLayout(); err != nil {
		return err
	}
	if err := b.Model.validate(len(b.Columns)); err != nil {
		return fmt.Errorf("%w: model: %v", ErrInvalidBundle, err)
	}
	return nil
}

func (b *Bundle) validateLayout() error {
	if b == nil {
		return fmt.Errorf("%w: nil bundle", ErrInvalidBundle)
	}
	if b.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: got %d want %d", ErrUnsupportedFormat, b.FormatVersion, FormatVersion)
	}
	if _, err := b.Schema(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if err := b.Scaler.validate(len(b.NumCols)); err != nil {
		return fmt.Errorf("%w: scaler: %v", ErrInvalidBundle, err)
	}
	return nil
}

func (b *Bundle) Schema() (*features.Schema, error) {
	return features.NewSchema(b.NumCols, b.CatCols, b.Columns)
}
