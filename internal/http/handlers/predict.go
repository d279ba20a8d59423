package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/attrition-backend/internal/http/response"
	"github.com/yungbote/attrition-backend/internal/prediction/features"
	"github.com/yungbote/attrition-backend/internal/prediction/predictor"
	"github.com/yungbote/attrition-backend/internal/services"
)

const maxPredictBatch = 10_000

type PredictHandler struct {
	scorer services.Scorer
}

func NewPredictHandler(scorer services.Scorer) *PredictHandler {
	return &PredictHandler{scorer: scorer}
}

type PredictionView struct {
	Label        int                    `json:"label"`
	Probability  float64                `json:"probability"`
	RiskCategory predictor.RiskCategory `json:"risk_category"`
	IsRetained   bool                   `json:"is_retained"`
	Status       predictor.Status       `json:"status"`
	Reason       string                 `json:"reason,omitempty"`
}

func viewOf(p predictor.Prediction) PredictionView {
	return PredictionView{
		Label:        p.Label,
		Probability:  p.Probability,
		RiskCategory: p.RiskCategory(),
		IsRetained:   p.IsRetained(),
		Status:       p.Status,
		Reason:       p.Reason,
	}
}

// POST /api/predict
// body: one raw record keyed by trained field name, e.g. {"Age": 30, "Gender": "Male", ...}
func (h *PredictHandler) Predict(c *gin.Context) {
	var row map[string]any
	if err := c.ShouldBindJSON(&row); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p := h.scorer.PredictOne(c.Request.Context(), features.Row(row))
	response.RespondOK(c, gin.H{"prediction": viewOf(p)})
}

// POST /api/predict/batch
// body: { "records": [ {...}, ... ] }
func (h *PredictHandler) PredictBatch(c *gin.Context) {
	var req struct {
		Records []map[string]any `json:"records"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Records) > maxPredictBatch {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "batch_too_large", errors.New("too many records in one batch"))
		return
	}
	rows := make([]features.Row, len(req.Records))
	for i, r := range req.Records {
		rows[i] = features.Row(r)
	}
	b := h.scorer.PredictMany(c.Request.Context(), rows)
	out := make([]PredictionView, b.Len())
	for i := range out {
		out[i] = viewOf(b.At(i))
	}
	response.RespondOK(c, gin.H{
		"predictions": out,
		"status":      b.Status,
		"reason":      b.Reason,
	})
}
