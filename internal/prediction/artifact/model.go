package artifact

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	ModelLogistic = "logistic"
	ModelForest   = "forest"
)

// Model is the opaque scoring function of an artifact. PredictProba returns
// the positive-class probability in [0,1] per row; Predict returns 0|1 labels.
type Model interface {
	Kind() string
	PredictProba(X *mat.Dense) ([]float64, error)
	Predict(X *mat.Dense) ([]int, error)
}

type ModelSpec struct {
	Kind string `json:"kind"`

	// logistic
	Weights   []float64 `json:"weights,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	// forest
	Trees []TreeSpec `json:"trees,omitempty"`

	// Threshold is the probability above which Predict returns 1. Zero means 0.5.
	Threshold float64 `json:"threshold,omitempty"`
}

// TreeSpec is a flattened binary tree. Node 0 is the root; a node with
// Left == -1 is a leaf whose Value is the positive-class probability.
// Samples go left when x[Feature] <= Threshold.
type TreeSpec struct {
	Nodes []NodeSpec `json:"nodes"`
}

type NodeSpec struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (s ModelSpec) validate(nColumns int) error {
	if s.Threshold < 0 || s.Threshold >= 1 {
		return fmt.Errorf("threshold %v outside [0,1)", s.Threshold)
	}
	switch s.Kind {
	case ModelLogistic:
		if len(s.Weights) != nColumns {
			return fmt.Errorf("logistic model has %d weights for %d columns", len(s.Weights), nColumns)
		}
		for i, w := range s.Weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return fmt.Errorf("weight %d is not finite", i)
			}
		}
	case ModelForest:
		if len(s.Trees) == 0 {
			return errors.New("forest has no trees")
		}
		for t, tree := range s.Trees {
			if err := tree.validate(nColumns); err != nil {
				return fmt.Errorf("tree %d: %w", t, err)
			}
		}
	default:
		return fmt.Errorf("unknown model kind %q", s.Kind)
	}
	return nil
}

// Children must point forward so traversal always terminates.
func (t TreeSpec) validate(nColumns int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left == -1 {
			if n.Value < 0 || n.Value > 1 || math.IsNaN(n.Value) {
				return fmt.Errorf("node %d leaf value %v outside [0,1]", i, n.Value)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nColumns {
			return fmt.Errorf("node %d feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children (%d,%d)", i, n.Left, n.Right)
		}
	}
	return nil
}

// Build compiles the spec into a Model. The spec must already be validated.
func (s ModelSpec) Build() (Model, error) {
	threshold := s.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	switch s.Kind {
	case ModelLogistic:
		return &logisticModel{
			weights:   mat.NewVecDense(len(s.Weights), append([]float64(nil), s.Weights...)),
			intercept: s.Intercept,
			threshold: threshold,
		}, nil
	case ModelForest:
		trees := make([]TreeSpec, len(s.Trees))
		copy(trees, s.Trees)
		return &forestModel{trees: trees, threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", s.Kind)
	}
}

type logisticModel struct {
	weights   *mat.VecDense
	intercept float64
	threshold float64
}

func (m *logisticModel) Kind() string { return ModelLogistic }

func (m *logisticModel) PredictProba(X *mat.Dense) ([]float64, error) {
	r, c := X.Dims()
	if c != m.weights.Len() {
		return nil, fmt.Errorf("logistic: got %d columns, trained on %d", c, m.weights.Len())
	}
	var z mat.VecDense
	z.MulVec(X, m.weights)
	out := make([]float64, r)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.intercept)
	}
	return out, nil
}

func (m *logisticModel) Predict(X *mat.Dense) ([]int, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labels(p, m.threshold), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

type forestModel struct {
	trees     []TreeSpec
	threshold float64
}

func (m *forestModel) Kind() string { return ModelForest }

// PredictProba averages the leaf probabilities across trees.
func (m *forestModel) PredictProba(X *mat.Dense) ([]float64, error) {
	r, c := X.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		row := X.RawRowView(i)
		sum := 0.0
		for _, t := range m.trees {
			p, err := t.leaf(row, c)
			if err != nil {
				return nil, err
			}
			sum += p
		}
		out[i] = sum / float64(len(m.trees))
	}
	return out, nil
}

func (m *forestModel) Predict(X *mat.Dense) ([]int, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labels(p, m.threshold), nil
}

func (t TreeSpec) leaf(row []float64, nColumns int) (float64, error) {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == -1 {
			return n.Value, nil
		}
		if n.Feature >= nColumns {
			return 0, fmt.Errorf("forest: feature %d outside %d columns", n.Feature, nColumns)
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// labels mirrors argmax over two classes: ties resolve to 0.
func labels(p []float64, threshold float64) []int {
	out := make([]int, len(p))
	for i, v := range p {
		if v > threshold {
			out[i] = 1
		}
	}
	return out
}
