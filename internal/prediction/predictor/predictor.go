package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/attrition-backend/internal/platform/logger"
	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
	"github.com/yungbote/attrition-backend/internal/prediction/features"
)

// Status says whether a prediction came from the trained model.
type Status string

const (
	StatusScored   Status = "scored"
	StatusFallback Status = "fallback"
)

const (
	ReasonArtifactUnavailable = "artifact_unavailable"
	ReasonAlignmentFailed     = "alignment_failed"
	ReasonScoringFailed       = "scoring_failed"
)

var errScoreRange = errors.New("model returned a probability outside [0,1]")

// Prediction is one scored record. Probability is a percentage in [0, 100].
type Prediction struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
	Status      Status  `json:"status"`
	Reason      string  `json:"reason,omitempty"`
}

func (p Prediction) IsRetained() bool { return IsRetained(p.Probability) }

func (p Prediction) RiskCategory() RiskCategory { return CategoryFor(p.Probability) }

// Batch holds index-aligned results for a batch. A batch either scores or
// falls back as a whole.
type Batch struct {
	Labels        []int
	Probabilities []float64
	Status        Status
	Reason        string
}

func (b Batch) Len() int { return len(b.Labels) }

func (b Batch) At(i int) Prediction {
	return Prediction{
		Label:       b.Labels[i],
		Probability: b.Probabilities[i],
		Status:      b.Status,
		Reason:      b.Reason,
	}
}

type Option func(*Predictor)

func WithFallback(f *Fallback) Option {
	return func(p *Predictor) {
		if f != nil {
			p.fallback = f
		}
	}
}

// WithParallelChunk aligns schema-mode batches larger than n in parallel chunks.
func WithParallelChunk(n int) Option {
	return func(p *Predictor) { p.chunk = n }
}

type Predictor struct {
	log      *logger.Logger
	handle   *artifact.Handle
	aligner  *features.Aligner
	fallback *Fallback
	mode     features.Mode
	chunk    int
	tracer   trace.Tracer
}

// New binds a predictor to handle. A degraded handle is accepted; every call
// then returns fallback predictions.
func New(log *logger.Logger, handle *artifact.Handle, mode features.Mode, opts ...Option) *Predictor {
	p := &Predictor{
		log:    log.With("component", "Predictor"),
		handle: handle,
		mode:   mode,
		tracer: otel.Tracer("attrition/predictor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fallback == nil {
		p.fallback = NewFallback(nil)
	}
	if handle.Available() {
		var aopts []features.Option
		if p.chunk > 0 {
			aopts = append(aopts, features.WithParallelChunk(p.chunk))
		}
		p.aligner = features.NewAligner(handle.Schema(), handle.Scaler(), mode, aopts...)
	}
	return p
}

func (p *Predictor) Handle() *artifact.Handle { return p.handle }

func (p *Predictor) Available() bool { return p.aligner != nil }

func (p *Predictor) PredictOne(ctx context.Context, row features.Row) Prediction {
	b := p.PredictMany(ctx, []features.Row{row})
	return b.At(0)
}

// PredictMany scores rows in order. It never returns an error: any failure
// yields fallback draws for the whole batch, tagged with the reason.
func (p *Predictor) PredictMany(ctx context.Context, rows []features.Row) Batch {
	if len(rows) == 0 {
		return Batch{Labels: []int{}, Probabilities: []float64{}, Status: StatusScored}
	}
	ctx, span := p.tracer.Start(ctx, "predictor.PredictMany",
		trace.WithAttributes(attribute.Int("rows", len(rows))))
	defer span.End()

	b, err := p.score(ctx, rows)
	span.SetAttributes(attribute.String("status", string(b.Status)))
	if b.Status == StatusFallback {
		span.SetAttributes(attribute.String("reason", b.Reason))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, b.Reason)
		}
	}
	return b
}

func (p *Predictor) score(ctx context.Context, rows []features.Row) (Batch, error) {
	n := len(rows)
	if !p.Available() {
		p.log.Debug("artifact unavailable, using fallback", "rows", n)
		return p.fallbackBatch(n, ReasonArtifactUnavailable), p.handle.Err()
	}

	_, alignSpan := p.tracer.Start(ctx, "predictor.align")
	X, err := p.aligner.Align(ctx, rows)
	alignSpan.End()
	if err != nil {
		p.log.Warn("feature alignment failed, using fallback", "rows", n, "error", err)
		return p.fallbackBatch(n, ReasonAlignmentFailed), err
	}

	_, scoreSpan := p.tracer.Start(ctx, "predictor.score")
	labels, probs, err := p.runModel(X.Data, n)
	scoreSpan.End()
	if err != nil {
		p.log.Warn("model scoring failed, using fallback", "rows", n, "error", err)
		return p.fallbackBatch(n, ReasonScoringFailed), err
	}
	return Batch{Labels: labels, Probabilities: probs, Status: StatusScored}, nil
}

func (p *Predictor) runModel(X *mat.Dense, n int) ([]int, []float64, error) {
	m := p.handle.Model()
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, nil, err
	}
	labels, err := m.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	if len(proba) != n || len(labels) != n {
		return nil, nil, fmt.Errorf("model returned %d probabilities and %d labels for %d rows", len(proba), len(labels), n)
	}
	out := make([]float64, n)
	for i, v := range proba {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, nil, fmt.Errorf("row %d: %w: %v", i, errScoreRange, v)
		}
		if labels[i] != 0 && labels[i] != 1 {
			return nil, nil, fmt.Errorf("row %d: model returned label %d", i, labels[i])
		}
		out[i] = v * 100
	}
	return labels, out, nil
}

func (p *Predictor) fallbackBatch(n int, reason string) Batch {
	labels, probs := p.fallback.DrawN(n)
	return Batch{Labels: labels, Probabilities: probs, Status: StatusFallback, Reason: reason}
}
