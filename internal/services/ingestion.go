package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/attrition-backend/internal/data/cache"
	"github.com/yungbote/attrition-backend/internal/data/repos"
	types "github.com/yungbote/attrition-backend/internal/domain"
	"github.com/yungbote/attrition-backend/internal/domain/employee"
	"github.com/yungbote/attrition-backend/internal/ingestion/csvparse"
	"github.com/yungbote/attrition-backend/internal/platform/apierr"
	"github.com/yungbote/attrition-backend/internal/platform/dbctx"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
	"github.com/yungbote/attrition-backend/internal/prediction/features"
	"github.com/yungbote/attrition-backend/internal/prediction/predictor"
)

// maxRowErrors bounds the row errors reported for a rejected upload.
const maxRowErrors = 25

// Scorer is the prediction surface the services depend on.
type Scorer interface {
	PredictOne(ctx context.Context, row features.Row) predictor.Prediction
	PredictMany(ctx context.Context, rows []features.Row) predictor.Batch
	Handle() *artifact.Handle
}

type RiskCounts struct {
	Retained int `json:"retained"`
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
}

func (c *RiskCounts) add(p predictor.Prediction) {
	if p.IsRetained() {
		c.Retained++
	}
	switch p.RiskCategory() {
	case predictor.RiskHigh:
		c.High++
	case predictor.RiskMedium:
		c.Medium++
	default:
		c.Low++
	}
}

type FeedbackResult struct {
	Employee *types.Employee `json:"employee"`
	Message  string          `json:"message"`
}

type UploadResult struct {
	Employees []*types.Employee  `json:"employees"`
	Processed int                `json:"processed"`
	Counts    RiskCounts         `json:"counts"`
	Status    predictor.Status   `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	Encoding  string             `json:"encoding"`
	Warnings  []csvparse.Warning `json:"warnings,omitempty"`
	Message   string             `json:"message"`
}

type IngestionService interface {
	SubmitFeedback(dbc dbctx.Context, in types.EmployeeAttributes) (*FeedbackResult, error)
	UploadCSV(dbc dbctx.Context, r io.Reader) (*UploadResult, error)
}

type ingestionService struct {
	db        *gorm.DB
	log       *logger.Logger
	scorer    Scorer
	employees repos.EmployeeRepo
	cache     cache.SummaryCache
	validate  *validator.Validate
}

func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scorer Scorer,
	employees repos.EmployeeRepo,
	summaryCache cache.SummaryCache,
) IngestionService {
	if summaryCache == nil {
		summaryCache = cache.Noop{}
	}
	return &ingestionService{
		db:        db,
		log:       baseLog.With("service", "IngestionService"),
		scorer:    scorer,
		employees: employees,
		cache:     summaryCache,
		validate:  newValidator(),
	}
}

func (s *ingestionService) SubmitFeedback(dbc dbctx.Context, in types.EmployeeAttributes) (*FeedbackResult, error) {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, apierr.BadRequest("invalid_input", errors.New(strings.Join(validationMessages(err), "; ")))
	}

	row := features.Row(in.Features())
	pred := s.scorer.PredictOne(dbc.Ctx, row)

	rec := in.Record(types.SourceFeedbackForm)
	s.applyPrediction(rec, pred, row)

	stored, err := s.employees.Upsert(dbc, rec)
	if err != nil {
		return nil, fmt.Errorf("save employee: %w", err)
	}
	s.invalidate(dbc.Ctx)

	s.log.Info("feedback scored",
		"employee_id", stored.EmployeeID,
		"probability", stored.AttritionProbability,
		"status", stored.ScoringStatus,
	)
	return &FeedbackResult{Employee: stored, Message: feedbackMessage(pred)}, nil
}

func (s *ingestionService) UploadCSV(dbc dbctx.Context, r io.Reader) (*UploadResult, error) {
	required := append([]string{employee.FieldEmployeeID}, employee.FeatureFields...)
	parsed, err := csvparse.Parse(r, required...)
	if err != nil {
		return nil, apierr.BadRequest("invalid_csv", err)
	}

	inputs := make([]types.EmployeeAttributes, 0, len(parsed.Records))
	rowErrs := parseErrorMessages(parsed.Errors)
	for _, rec := range parsed.Records {
		in, errs := s.attributesFromRecord(rec)
		if len(errs) > 0 {
			for _, e := range errs {
				rowErrs = append(rowErrs, fmt.Sprintf("row %d: %s", rec.Line, e))
			}
			continue
		}
		inputs = append(inputs, in)
	}
	if len(rowErrs) > 0 {
		total := len(rowErrs)
		if total > maxRowErrors {
			rowErrs = append(rowErrs[:maxRowErrors], fmt.Sprintf("and %d more", total-maxRowErrors))
		}
		return nil, apierr.BadRequest("invalid_rows", errors.New(strings.Join(rowErrs, "; ")))
	}

	rows := make([]features.Row, len(inputs))
	for i, in := range inputs {
		rows[i] = features.Row(in.Features())
	}
	batch := s.scorer.PredictMany(dbc.Ctx, rows)

	records := make([]*types.Employee, len(inputs))
	var counts RiskCounts
	for i, in := range inputs {
		pred := batch.At(i)
		rec := in.Record(types.SourceCSV)
		s.applyPrediction(rec, pred, rows[i])
		records[i] = rec
		counts.add(pred)
	}

	var stored []*types.Employee
	save := func(tx *gorm.DB) error {
		var err error
		stored, err = s.employees.UpsertMany(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, records)
		return err
	}
	if dbc.Tx != nil {
		err = save(dbc.Tx)
	} else {
		err = s.db.WithContext(dbc.Ctx).Transaction(save)
	}
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	s.invalidate(dbc.Ctx)

	s.log.Info("csv upload scored",
		"rows", len(records),
		"stored", len(stored),
		"status", batch.Status,
		"encoding", parsed.Encoding,
	)
	return &UploadResult{
		Employees: stored,
		Processed: len(records),
		Counts:    counts,
		Status:    batch.Status,
		Reason:    batch.Reason,
		Encoding:  parsed.Encoding,
		Warnings:  parsed.Warnings,
		Message:   uploadMessage(len(records), counts),
	}, nil
}

func (s *ingestionService) attributesFromRecord(rec csvparse.Record) (types.EmployeeAttributes, []string) {
	v := rec.Values
	var errs []string
	num := func(field string) int {
		n, err := parseWholeNumber(v[field])
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", field, err))
		}
		return n
	}
	in := types.EmployeeAttributes{
		EmployeeID:              v[employee.FieldEmployeeID],
		Name:                    v[employee.FieldName],
		Age:                     num(employee.FieldAge),
		Gender:                  v[employee.FieldGender],
		MaritalStatus:           v[employee.FieldMaritalStatus],
		Education:               v[employee.FieldEducation],
		JobSatisfaction:         num(employee.FieldJobSatisfaction),
		WorkingHours:            num(employee.FieldWorkingHours),
		YearsAtCompany:          num(employee.FieldYearsAtCompany),
		DistanceFromHome:        num(employee.FieldDistanceFromHome),
		EnvironmentSatisfaction: num(employee.FieldEnvironmentSatisfaction),
		HealthCondition:         v[employee.FieldHealthCondition],
		ExpectationsFromCompany: v[employee.FieldExpectationsFromCompany],
		JoiningSalary:           num(employee.FieldJoiningSalary),
		CurrentSalary:           num(employee.FieldCurrentSalary),
	}
	if len(errs) > 0 {
		return in, errs
	}
	if err := s.validate.Struct(in); err != nil {
		return in, validationMessages(err)
	}
	return in, nil
}

// parseErrorMessages reports unreadable rows; any of them rejects the upload.
func parseErrorMessages(errs []csvparse.Warning) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, fmt.Sprintf("row %d: %s", e.Row, e.Message))
	}
	return out
}

// parseWholeNumber accepts "42" and spreadsheet exports such as "42.0".
func parseWholeNumber(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("value is empty")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	return int(f), nil
}

func (s *ingestionService) applyPrediction(rec *types.Employee, pred predictor.Prediction, row features.Row) {
	rec.Attrition = pred.Label
	rec.AttritionProbability = pred.Probability
	rec.IsRetained = pred.IsRetained()
	rec.RiskCategory = string(pred.RiskCategory())
	rec.ScoringStatus = string(pred.Status)
	rec.FallbackReason = pred.Reason
	rec.ArtifactVersion = ""
	if pred.Status == predictor.StatusScored {
		rec.ArtifactVersion = s.scorer.Handle().Info().Version
	}
	if raw, err := json.Marshal(row); err == nil {
		rec.Features = datatypes.JSON(raw)
	}
}

func (s *ingestionService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("summary cache invalidation failed", "error", err)
	}
}

func feedbackMessage(p predictor.Prediction) string {
	status := "AT-RISK"
	if p.IsRetained() {
		status = "RETAINED"
	}
	return fmt.Sprintf("Attrition Risk: %s (%.1f%%) - Status: %s", p.RiskCategory(), p.Probability, status)
}

func uploadMessage(n int, c RiskCounts) string {
	return fmt.Sprintf("CSV uploaded successfully! %d employees processed. %d RETAINED (<25%% risk) | Risk Distribution: %d High, %d Medium, %d Low",
		n, c.Retained, c.High, c.Medium, c.Low)
}
