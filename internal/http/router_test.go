package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/attrition-backend/internal/data/repos"
	"github.com/yungbote/attrition-backend/internal/data/repos/testutil"
	"github.com/yungbote/attrition-backend/internal/domain/employee"
	httpH "github.com/yungbote/attrition-backend/internal/http/handlers"
	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
	"github.com/yungbote/attrition-backend/internal/prediction/features"
	"github.com/yungbote/attrition-backend/internal/prediction/predictor"
	"github.com/yungbote/attrition-backend/internal/services"
)

var errMissing = errors.New("no such file")

type constModel struct{ p float64 }

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

func testHandle(t *testing.T, p float64) *artifact.Handle {
	t.Helper()
	numeric := []string{
		employee.FieldAge, employee.FieldJobSatisfaction, employee.FieldWorkingHours,
		employee.FieldYearsAtCompany, employee.FieldDistanceFromHome,
		employee.FieldEnvironmentSatisfaction, employee.FieldJoiningSalary, employee.FieldCurrentSalary,
	}
	h, err := artifact.NewHandleWithModel(&artifact.Bundle{
		FormatVersion: artifact.FormatVersion,
		Version:       "router-test",
		NumCols:       numeric,
		CatCols: []string{
			employee.FieldGender, employee.FieldMaritalStatus, employee.FieldHealthCondition,
			employee.FieldExpectationsFromCompany, employee.FieldEducation,
		},
		Columns: append(append([]string(nil), numeric...), "Gender_Male"),
		Scaler:  artifact.ScalerSpec{Kind: artifact.ScalerIdentity},
	}, constModel{p: p})
	if err != nil {
		t.Fatalf("NewHandleWithModel: %v", err)
	}
	return h
}

func testRouter(t *testing.T, handle *artifact.Handle) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := testutil.Logger(t)
	tx := testutil.Tx(t, testutil.DB(t))
	pred := predictor.New(log, handle, features.ModeBatch)
	employees := repos.NewEmployeeRepo(tx, log)
	ingestion := services.NewIngestionService(tx, log, pred, employees, nil)
	reporting := services.NewReportingService(log, employees, nil)

	return NewRouter(RouterConfig{
		Log:             log,
		MaxUploadBytes:  1 << 20,
		HealthHandler:   httpH.NewHealthHandler(handle),
		PredictHandler:  httpH.NewPredictHandler(pred),
		EmployeeHandler: httpH.NewEmployeeHandler(ingestion, reporting),
	})
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v body=%s", err, rr.Body.String())
	}
}

func feedbackBody(id string) string {
	return `{"employee_id":"` + id + `","name":"Ada","age":41,"gender":"Female","marital_status":"Married",` +
		`"education":"Master","job_satisfaction":2,"working_hours":55,"years_at_company":3,` +
		`"distance_from_home":30,"environment_satisfaction":2,"health_condition":"Average",` +
		`"expectations_from_company":"Promotion","joining_salary":50000,"current_salary":52000}`
}

func TestHealthAndReadiness(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.2))

	rr := do(t, r, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthcheck status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var ready struct {
		Artifact string `json:"artifact"`
		Degraded bool   `json:"degraded"`
	}
	decode(t, rr, &ready)
	if ready.Artifact != "loaded" || ready.Degraded {
		t.Fatalf("unexpected readiness: %+v", ready)
	}
}

func TestReadinessDegradedStillOK(t *testing.T) {
	r := testRouter(t, artifact.Degraded("models/missing.json", errMissing))
	rr := do(t, r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var ready struct {
		Degraded bool `json:"degraded"`
	}
	decode(t, rr, &ready)
	if !ready.Degraded {
		t.Fatalf("expected degraded")
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/api/model", nil))
	var out struct {
		Model artifact.Info `json:"model"`
	}
	decode(t, rr, &out)
	if out.Model.Status != artifact.StatusDegraded || out.Model.Error == "" {
		t.Fatalf("unexpected model info: %+v", out.Model)
	}
}

func TestPredictSingleAndBatch(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.813))

	body := `{"Age":30,"Gender":"Male","MaritalStatus":"Single","Education":"Master","JobSatisfaction":2,` +
		`"WorkingHours":60,"YearsAtCompany":1,"DistanceFromHome":25,"EnvironmentSatisfaction":2,` +
		`"HealthCondition":"Poor","ExpectationsFromCompany":"Promotion","JoiningSalary":30000,"CurrentSalary":31000}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, r, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var one struct {
		Prediction httpH.PredictionView `json:"prediction"`
	}
	decode(t, rr, &one)
	p := one.Prediction
	if p.Label != 1 || p.RiskCategory != predictor.RiskHigh || p.IsRetained || p.Status != predictor.StatusScored {
		t.Fatalf("unexpected prediction: %+v", p)
	}
	if p.Probability < 81.29 || p.Probability > 81.31 {
		t.Fatalf("probability=%v", p.Probability)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/predict/batch", strings.NewReader(`{"records":[`+body+`,`+body+`]}`))
	req.Header.Set("Content-Type", "application/json")
	rr = do(t, r, req)
	var many struct {
		Predictions []httpH.PredictionView `json:"predictions"`
		Status      predictor.Status       `json:"status"`
	}
	decode(t, rr, &many)
	if len(many.Predictions) != 2 || many.Status != predictor.StatusScored {
		t.Fatalf("unexpected batch: %+v", many)
	}
}

func TestPredictRejectsMalformedJSON(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.5))
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"Age":`))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, r, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestFeedbackThenGetAndSummary(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.8))

	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(feedbackBody("EMP-77")))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, r, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var fb services.FeedbackResult
	decode(t, rr, &fb)
	if !strings.Contains(fb.Message, "AT-RISK") || fb.Employee.RiskCategory != string(predictor.RiskHigh) {
		t.Fatalf("unexpected feedback result: %+v", fb)
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/api/employees/EMP-77", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/api/employees/NOPE", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing employee status=%d", rr.Code)
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil))
	var sum struct {
		Summary repos.EmployeeSummary `json:"summary"`
	}
	decode(t, rr, &sum)
	if sum.Summary.Total != 1 || sum.Summary.High != 1 || sum.Summary.Retained != 0 {
		t.Fatalf("unexpected summary: %+v", sum.Summary)
	}
}

func TestFeedbackValidationError(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.8))
	body := strings.Replace(feedbackBody("EMP-1"), `"age":41`, `"age":70`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, r, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "invalid_input") {
		t.Fatalf("expected invalid_input code, got %s", rr.Body.String())
	}
}

func TestFeedbackRejectsOmittedNumericFields(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.8))
	body := feedbackBody("EMP-2")
	for _, field := range []string{`"years_at_company":3,`, `"distance_from_home":30,`, `"joining_salary":50000,`} {
		body = strings.Replace(body, field, "", 1)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, r, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	for _, want := range []string{"years_at_company is required", "distance_from_home is required", "joining_salary is required"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Fatalf("missing %q in %s", want, rr.Body.String())
		}
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/api/employees/EMP-2", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("rejected feedback was stored: status=%d", rr.Code)
	}
}

func TestFeedbackAcceptsExplicitZero(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.1))
	body := strings.Replace(feedbackBody("EMP-3"), `"years_at_company":3`, `"years_at_company":0`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, r, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var fb services.FeedbackResult
	decode(t, rr, &fb)
	if fb.Employee.YearsAtCompany != 0 || fb.Employee.DistanceFromHome != 30 {
		t.Fatalf("unexpected stored values: %+v", fb.Employee)
	}
}

func csvUpload(t *testing.T, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "employees.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const uploadCSV = "EmployeeID,Name,Age,Gender,MaritalStatus,JobSatisfaction,WorkingHours,YearsAtCompany,DistanceFromHome,EnvironmentSatisfaction,HealthCondition,ExpectationsFromCompany,JoiningSalary,CurrentSalary,Education\n" +
	"E1,One,30,Male,Single,3,45,4,10,3,Good,Promotion,40000,48000,Master\n" +
	"E2,Two,44,Female,Married,4,40,9,5,4,Excellent,Training,50000,65000,PhD\n"

func TestUploadCSVThenListAndExport(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.1))

	rr := do(t, r, csvUpload(t, uploadCSV))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	var up services.UploadResult
	decode(t, rr, &up)
	if up.Processed != 2 || up.Counts.Retained != 2 || up.Counts.Low != 2 {
		t.Fatalf("unexpected upload result: %+v", up)
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/api/employees?gender=Female&limit=10", nil))
	var page services.EmployeePage
	decode(t, rr, &page)
	if page.Total != 1 || len(page.Employees) != 1 || page.Employees[0].EmployeeID != "E2" {
		t.Fatalf("unexpected page: %+v", page)
	}

	rr = do(t, r, httptest.NewRequest(http.MethodGet, "/api/employees/export", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("missing attachment disposition")
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(lines))
	}
}

func TestUploadRequiresFile(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.1))
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/csv", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rr := do(t, r, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestListRejectsBadQuery(t *testing.T) {
	r := testRouter(t, testHandle(t, 0.1))
	for _, q := range []string{"limit=abc", "attrition=2", "retained=maybe", "offset=-1"} {
		rr := do(t, r, httptest.NewRequest(http.MethodGet, "/api/employees?"+q, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", q, rr.Code)
		}
	}
}
