package predictor

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/attrition-backend/internal/platform/logger"
	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
	"github.com/yungbote/attrition-backend/internal/prediction/features"
)

type constModel struct {
	p float64
}

func (m constModel) Kind() string { return "const" }

func (m constModel) PredictProba(X *mat.Dense) ([]float64, error) {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = m.p
	}
	return out, nil
}

func (m constModel) Predict(X *mat.Dense) ([]int, error) {
	r, _ := X.Dims()
	out := make([]int, r)
	if m.p > 0.5 {
		for i := range out {
			out[i] = 1
		}
	}
	return out, nil
}

// seqModel echoes the first column back so row order is observable.
type seqModel struct{}

func (seqModel) Kind() string { return "seq" }

func (seqModel) PredictProba(X *mat.Dense) ([]float64, error) {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = X.At(i, 0) / 1000
	}
	return out, nil
}

func (seqModel) Predict(X *mat.Dense) ([]int, error) {
	r, _ := X.Dims()
	out := make([]int, r)
	for i := range out {
		out[i] = int(X.At(i, 0)) % 2
	}
	return out, nil
}

type failingModel struct {
	err error
}

func (failingModel) Kind() string { return "failing" }

func (m failingModel) PredictProba(*mat.Dense) ([]float64, error) { return nil, m.err }

func (m failingModel) Predict(*mat.Dense) ([]int, error) { return nil, m.err }

func testBundle() *artifact.Bundle {
	return &artifact.Bundle{
		FormatVersion: artifact.FormatVersion,
		Version:       "test",
		NumCols:       []string{"Seq"},
		CatCols:       []string{"Dept"},
		Columns:       []string{"Seq", "Dept_Sales"},
		Scaler:        artifact.ScalerSpec{Kind: artifact.ScalerIdentity},
	}
}

func newTestPredictor(t *testing.T, m artifact.Model, mode features.Mode) *Predictor {
	t.Helper()
	h, err := artifact.NewHandleWithModel(testBundle(), m)
	if err != nil {
		t.Fatalf("NewHandleWithModel: %v", err)
	}
	return New(logger.Nop(), h, mode, WithFallback(NewSeededFallback(1)))
}

func TestPredictOneHighRiskScenario(t *testing.T) {
	p := newTestPredictor(t, constModel{p: 0.813}, features.ModeBatch)

	got := p.PredictOne(context.Background(), features.Row{"Seq": 1, "Dept": "Sales"})
	if got.Status != StatusScored || got.Reason != "" {
		t.Fatalf("status=%s reason=%q", got.Status, got.Reason)
	}
	if got.Label != 1 {
		t.Fatalf("label=%d", got.Label)
	}
	if math.Abs(got.Probability-81.3) > 1e-9 {
		t.Fatalf("probability=%v", got.Probability)
	}
	if got.RiskCategory() != RiskHigh {
		t.Fatalf("category=%s", got.RiskCategory())
	}
	if got.IsRetained() {
		t.Fatalf("81.3%% must not be retained")
	}
}

func TestPredictManyConstantLowRisk(t *testing.T) {
	p := newTestPredictor(t, constModel{p: 0.10}, features.ModeBatch)

	rows := make([]features.Row, 100)
	for i := range rows {
		rows[i] = features.Row{"Seq": i, "Dept": "Ops"}
	}
	b := p.PredictMany(context.Background(), rows)
	if b.Len() != 100 || b.Status != StatusScored {
		t.Fatalf("len=%d status=%s", b.Len(), b.Status)
	}
	retained, low := 0, 0
	for i := 0; i < b.Len(); i++ {
		pr := b.At(i)
		if math.Abs(pr.Probability-10) > 1e-9 {
			t.Fatalf("row %d probability=%v", i, pr.Probability)
		}
		if pr.IsRetained() {
			retained++
		}
		if pr.RiskCategory() == RiskLow {
			low++
		}
	}
	if retained != 100 || low != 100 {
		t.Fatalf("retained=%d low=%d", retained, low)
	}
}

func TestPredictManyPreservesOrder(t *testing.T) {
	for _, mode := range []features.Mode{features.ModeBatch, features.ModeSchema} {
		t.Run(string(mode), func(t *testing.T) {
			h, err := artifact.NewHandleWithModel(testBundle(), seqModel{})
			if err != nil {
				t.Fatalf("NewHandleWithModel: %v", err)
			}
			p := New(logger.Nop(), h, mode, WithParallelChunk(7))

			rows := make([]features.Row, 50)
			for i := range rows {
				rows[len(rows)-1-i] = features.Row{"Seq": i, "Dept": "Sales"}
			}
			b := p.PredictMany(context.Background(), rows)
			if b.Status != StatusScored {
				t.Fatalf("status=%s reason=%s", b.Status, b.Reason)
			}
			for i := range rows {
				seq := float64(len(rows) - 1 - i)
				if want := seq / 10; math.Abs(b.Probabilities[i]-want) > 1e-9 {
					t.Fatalf("row %d probability=%v want %v", i, b.Probabilities[i], want)
				}
				if want := int(seq) % 2; b.Labels[i] != want {
					t.Fatalf("row %d label=%d want %d", i, b.Labels[i], want)
				}
			}
		})
	}
}

func TestPredictManyEmpty(t *testing.T) {
	p := newTestPredictor(t, constModel{p: 0.5}, features.ModeBatch)
	b := p.PredictMany(context.Background(), nil)
	if b.Len() != 0 || len(b.Probabilities) != 0 {
		t.Fatalf("expected empty batch, got %+v", b)
	}
}

func TestDegradedHandleFallsBack(t *testing.T) {
	h := artifact.Degraded("models/missing.json", errors.New("open: no such file"))
	p := New(logger.Nop(), h, features.ModeBatch)
	if p.Available() {
		t.Fatalf("predictor should not be available")
	}

	rows := make([]features.Row, 200)
	for i := range rows {
		rows[i] = features.Row{"Seq": i}
	}
	b := p.PredictMany(context.Background(), rows)
	if b.Status != StatusFallback || b.Reason != ReasonArtifactUnavailable {
		t.Fatalf("status=%s reason=%s", b.Status, b.Reason)
	}
	distinct := map[float64]struct{}{}
	for i := 0; i < b.Len(); i++ {
		pr := b.At(i)
		if pr.Probability < 10 || pr.Probability > 90 {
			t.Fatalf("row %d probability %v outside [10,90]", i, pr.Probability)
		}
		if pr.Label != 0 && pr.Label != 1 {
			t.Fatalf("row %d label %d", i, pr.Label)
		}
		distinct[pr.Probability] = struct{}{}
	}
	if len(distinct) < 2 {
		t.Fatalf("fallback draws are constant")
	}

	one := p.PredictOne(context.Background(), features.Row{})
	if one.Status != StatusFallback {
		t.Fatalf("single status=%s", one.Status)
	}
}

func TestUnseededFallbacksDiffer(t *testing.T) {
	a := New(logger.Nop(), artifact.Degraded("", nil), features.ModeBatch)
	b := New(logger.Nop(), artifact.Degraded("", nil), features.ModeBatch)
	rows := make([]features.Row, 20)
	pa := a.PredictMany(context.Background(), rows).Probabilities
	pb := b.PredictMany(context.Background(), rows).Probabilities
	for i := range pa {
		if pa[i] != pb[i] {
			return
		}
	}
	t.Fatalf("two unseeded predictors produced identical fallback sequences")
}

func TestAlignmentFailureFallsBack(t *testing.T) {
	p := newTestPredictor(t, constModel{p: 0.9}, features.ModeBatch)

	b := p.PredictMany(context.Background(), []features.Row{{"Dept": "Sales"}, {"Dept": "Ops"}})
	if b.Status != StatusFallback || b.Reason != ReasonAlignmentFailed {
		t.Fatalf("status=%s reason=%s", b.Status, b.Reason)
	}
	if b.Len() != 2 {
		t.Fatalf("len=%d", b.Len())
	}

	b = p.PredictMany(context.Background(), []features.Row{{"Seq": "not a number", "Dept": "Sales"}})
	if b.Reason != ReasonAlignmentFailed {
		t.Fatalf("reason=%s", b.Reason)
	}
}

func TestScoringFailureFallsBack(t *testing.T) {
	cases := map[string]artifact.Model{
		"model error":       failingModel{err: errors.New("boom")},
		"probability > 1":   constModel{p: 1.7},
		"probability < 0":   constModel{p: -0.1},
		"probability = NaN": constModel{p: math.NaN()},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestPredictor(t, m, features.ModeBatch)
			got := p.PredictOne(context.Background(), features.Row{"Seq": 3, "Dept": "Sales"})
			if got.Status != StatusFallback || got.Reason != ReasonScoringFailed {
				t.Fatalf("status=%s reason=%s", got.Status, got.Reason)
			}
			if got.Probability < 10 || got.Probability > 90 {
				t.Fatalf("probability=%v", got.Probability)
			}
		})
	}
}

func TestPredictWithSampleArtifact(t *testing.T) {
	h := artifact.NewLoader(logger.Nop(), nil).Load(context.Background(),
		filepath.Join("..", "artifact", "testdata", "attrition_model.json"))
	if !h.Available() {
		t.Fatalf("sample artifact unavailable: %v", h.Err())
	}
	row := features.Row{
		"Age": 29, "Gender": "Male", "MaritalStatus": "Single", "Education": "Master",
		"JobSatisfaction": 2, "WorkingHours": 55, "YearsAtCompany": 1,
		"DistanceFromHome": 30, "EnvironmentSatisfaction": 2,
		"HealthCondition": "Poor", "ExpectationsFromCompany": "Promotion",
		"JoiningSalary": 30000, "CurrentSalary": 32000,
	}
	for _, mode := range []features.Mode{features.ModeBatch, features.ModeSchema} {
		p := New(logger.Nop(), h, mode)
		got := p.PredictOne(context.Background(), row)
		if got.Status != StatusScored {
			t.Fatalf("%s: status=%s reason=%s", mode, got.Status, got.Reason)
		}
		if got.Probability < 0 || got.Probability > 100 || (got.Label != 0 && got.Label != 1) {
			t.Fatalf("%s: prediction out of range: %+v", mode, got)
		}
	}
}
