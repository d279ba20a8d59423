package artifact

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
	ScalerIdentity = "identity"
)

// ScalerSpec is a fitted numeric scaler.
//   - standard: (x - mean) / scale
//   - minmax:   x * scale + min
//   - identity: x
type ScalerSpec struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`
	Min   []float64 `json:"min,omitempty"`
}

func (s ScalerSpec) validate(nFeatures int) error {
	switch s.Kind {
	case ScalerStandard:
		if len(s.Mean) != nFeatures || len(s.Scale) != nFeatures {
			return fmt.Errorf("standard scaler has %d means and %d scales for %d features", len(s.Mean), len(s.Scale), nFeatures)
		}
	case ScalerMinMax:
		if len(s.Min) != nFeatures || len(s.Scale) != nFeatures {
			return fmt.Errorf("minmax scaler has %d mins and %d scales for %d features", len(s.Min), len(s.Scale), nFeatures)
		}
	case ScalerIdentity:
	default:
		return fmt.Errorf("unknown scaler kind %q", s.Kind)
	}
	return nil
}

// Transform applies the fitted parameters; it never refits.
func (s ScalerSpec) Transform(X *mat.Dense) (*mat.Dense, error) {
	if X == nil {
		return nil, errors.New("scaler: nil input")
	}
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	switch s.Kind {
	case ScalerStandard:
		if c != len(s.Mean) {
			return nil, fmt.Errorf("scaler: got %d columns, fitted on %d", c, len(s.Mean))
		}
		out.Apply(func(_, j int, v float64) float64 {
			scale := s.Scale[j]
			if scale == 0 {
				scale = 1
			}
			return (v - s.Mean[j]) / scale
		}, X)
	case ScalerMinMax:
		if c != len(s.Min) {
			return nil, fmt.Errorf("scaler: got %d columns, fitted on %d", c, len(s.Min))
		}
		out.Apply(func(_, j int, v float64) float64 {
			return v*s.Scale[j] + s.Min[j]
		}, X)
	case ScalerIdentity:
		out.Copy(X)
	default:
		return nil, fmt.Errorf("scaler: unknown kind %q", s.Kind)
	}
	return out, nil
}
