package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gorm.io/gorm"

	"github.com/yungbote/attrition-backend/internal/data/repos"
	"github.com/yungbote/attrition-backend/internal/data/repos/testutil"
	"github.com/yungbote/attrition-backend/internal/domain/employee"
	"github.com/yungbote/attrition-backend/internal/platform/dbctx"
	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
	"github.com/yungbote/attrition-backend/internal/prediction/features"
	"github.com/yungbote/attrition-backend/internal/prediction/predictor"
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

func testBundle() *artifact.Bundle {
	numeric := []string{
		employee.FieldAge, employee.FieldJobSatisfaction, employee.FieldWorkingHours,
		employee.FieldYearsAtCompany, employee.FieldDistanceFromHome,
		employee.FieldEnvironmentSatisfaction, employee.FieldJoiningSalary, employee.FieldCurrentSalary,
	}
	categorical := []string{
		employee.FieldGender, employee.FieldMaritalStatus, employee.FieldHealthCondition,
		employee.FieldExpectationsFromCompany, employee.FieldEducation,
	}
	return &artifact.Bundle{
		FormatVersion: artifact.FormatVersion,
		Version:       "test-v1",
		NumCols:       numeric,
		CatCols:       categorical,
		Columns:       append(append([]string(nil), numeric...), "Gender_Male", "Education_PhD"),
		Scaler:        artifact.ScalerSpec{Kind: artifact.ScalerIdentity},
	}
}

func scorerWithProbability(t *testing.T, p float64) *predictor.Predictor {
	t.Helper()
	h, err := artifact.NewHandleWithModel(testBundle(), constModel{p: p})
	if err != nil {
		t.Fatalf("NewHandleWithModel: %v", err)
	}
	return predictor.New(testutil.Logger(t), h, features.ModeBatch)
}

func degradedScorer(t *testing.T) *predictor.Predictor {
	t.Helper()
	h := artifact.Degraded("models/missing.json", fmt.Errorf("no such file"))
	return predictor.New(testutil.Logger(t), h, features.ModeBatch)
}

// memCache is an in-process, generation-keyed SummaryCache that counts its
// traffic. afterMiss, when set, runs between a miss and the caller's Set.
type memCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[string]any
	hits        int
	invalidated int
	afterMiss   func()
}

func newMemCache() *memCache { return &memCache{entries: map[string]any{}} }

func (c *memCache) entryKey(gen int64, key string) string { return fmt.Sprintf("%d:%s", gen, key) }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, int64, error) {
	c.mu.Lock()
	gen := c.gen
	v, ok := c.entries[c.entryKey(gen, key)]
	if ok {
		c.hits++
		*(dst.(*repos.EmployeeSummary)) = v.(repos.EmployeeSummary)
	}
	hook := c.afterMiss
	c.mu.Unlock()
	if !ok && hook != nil {
		hook()
	}
	return ok, gen, nil
}

func (c *memCache) Set(_ context.Context, gen int64, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.entryKey(gen, key)] = v
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidated++
	return nil
}

func (c *memCache) Close() error { return nil }

type fixture struct {
	tx        *gorm.DB
	dbc       dbctx.Context
	employees repos.EmployeeRepo
	cache     *memCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	return &fixture{
		tx:        tx,
		dbc:       dbctx.Context{Ctx: context.Background(), Tx: tx},
		employees: repos.NewEmployeeRepo(db, testutil.Logger(t)),
		cache:     newMemCache(),
	}
}

func (f *fixture) ingestion(t *testing.T, scorer Scorer) IngestionService {
	return NewIngestionService(f.tx, testutil.Logger(t), scorer, f.employees, f.cache)
}

func (f *fixture) reporting(t *testing.T) ReportingService {
	return NewReportingService(testutil.Logger(t), f.employees, f.cache)
}

var csvHeader = "EmployeeID,Name,Age,Gender,MaritalStatus,JobSatisfaction,WorkingHours,YearsAtCompany,DistanceFromHome,EnvironmentSatisfaction,HealthCondition,ExpectationsFromCompany,JoiningSalary,CurrentSalary,Education"

func csvRow(id string, age int) string {
	return fmt.Sprintf("%s,Name %s,%d,Male,Single,3,45,4,10,3,Good,Promotion,40000,48000,Master", id, id, age)
}

func csvDoc(rows ...string) string {
	return csvHeader + "\n" + strings.Join(rows, "\n") + "\n"
}
