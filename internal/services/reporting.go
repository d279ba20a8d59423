package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/attrition-backend/internal/data/cache"
	"github.com/yungbote/attrition-backend/internal/data/repos"
	"github.com/yungbote/attrition-backend/internal/data/repos/employees"
	types "github.com/yungbote/attrition-backend/internal/domain"
	"github.com/yungbote/attrition-backend/internal/platform/apierr"
	"github.com/yungbote/attrition-backend/internal/platform/dbctx"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

type EmployeePage struct {
	Employees []*types.Employee `json:"employees"`
	Total     int64             `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

type ReportingService interface {
	Summary(dbc dbctx.Context, f repos.EmployeeFilter) (*repos.EmployeeSummary, error)
	List(dbc dbctx.Context, f repos.EmployeeFilter) (*EmployeePage, error)
	Get(dbc dbctx.Context, employeeID string) (*types.Employee, error)
	ExportCSV(dbc dbctx.Context, f repos.EmployeeFilter, w io.Writer) (int, error)
}

type reportingService struct {
	log       *logger.Logger
	employees repos.EmployeeRepo
	cache     cache.SummaryCache
}

func NewReportingService(baseLog *logger.Logger, employeeRepo repos.EmployeeRepo, summaryCache cache.SummaryCache) ReportingService {
	if summaryCache == nil {
		summaryCache = cache.Noop{}
	}
	return &reportingService{
		log:       baseLog.With("service", "ReportingService"),
		employees: employeeRepo,
		cache:     summaryCache,
	}
}

func (s *reportingService) Summary(dbc dbctx.Context, f repos.EmployeeFilter) (*repos.EmployeeSummary, error) {
	key := summaryKey(f)
	var cached repos.EmployeeSummary
	hit, gen, readErr := s.cache.Get(dbc.Ctx, key, &cached)
	if readErr != nil {
		s.log.Warn("summary cache read failed", "key", key, "error", readErr)
	}
	if hit {
		return &cached, nil
	}

	sum, err := s.employees.Summary(dbc, f)
	if err != nil {
		return nil, fmt.Errorf("summarize employees: %w", err)
	}
	// Without a generation from the read there is nothing safe to write under.
	if readErr != nil {
		return &sum, nil
	}
	if err := s.cache.Set(dbc.Ctx, gen, key, sum); err != nil {
		s.log.Warn("summary cache write failed", "key", key, "error", err)
	}
	return &sum, nil
}

func (s *reportingService) List(dbc dbctx.Context, f repos.EmployeeFilter) (*EmployeePage, error) {
	rows, total, err := s.employees.List(dbc, f)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = employees.DefaultListLimit
	}
	if limit > employees.MaxListLimit {
		limit = employees.MaxListLimit
	}
	if rows == nil {
		rows = []*types.Employee{}
	}
	return &EmployeePage{Employees: rows, Total: total, Limit: limit, Offset: max(f.Offset, 0)}, nil
}

func (s *reportingService) Get(dbc dbctx.Context, employeeID string) (*types.Employee, error) {
	e, err := s.employees.GetByEmployeeID(dbc, employeeID)
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	if e == nil {
		return nil, apierr.NotFound("employee_not_found", fmt.Errorf("employee %q not found", strings.TrimSpace(employeeID)))
	}
	return e, nil
}

var exportHeader = []string{
	"EmployeeID", "Name", "Age", "Gender", "MaritalStatus", "JobSatisfaction", "WorkingHours",
	"YearsAtCompany", "DistanceFromHome", "EnvironmentSatisfaction", "HealthCondition",
	"ExpectationsFromCompany", "JoiningSalary", "CurrentSalary", "Education",
	"Attrition", "AttritionProbability", "IsRetained", "RiskCategory", "DataSource",
	"ScoringStatus", "UpdatedAt",
}

// ExportCSV writes every record matching f, ignoring its paging fields, and
// returns the number of data rows written.
func (s *reportingService) ExportCSV(dbc dbctx.Context, f repos.EmployeeFilter, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	f.Limit = employees.MaxListLimit
	f.Offset = 0
	written := 0
	for {
		if err := dbc.Ctx.Err(); err != nil {
			return written, err
		}
		rows, _, err := s.employees.List(dbc, f)
		if err != nil {
			return written, fmt.Errorf("export employees: %w", err)
		}
		for _, e := range rows {
			if err := cw.Write(exportRow(e)); err != nil {
				return written, err
			}
			written++
		}
		if len(rows) < f.Limit {
			break
		}
		f.Offset += len(rows)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, err
	}
	if written == 0 {
		s.log.Debug("export matched no employees")
	}
	return written, nil
}

func exportRow(e *types.Employee) []string {
	itoa := strconv.Itoa
	return []string{
		e.EmployeeID, e.Name, itoa(e.Age), e.Gender, e.MaritalStatus, itoa(e.JobSatisfaction),
		itoa(e.WorkingHours), itoa(e.YearsAtCompany), itoa(e.DistanceFromHome),
		itoa(e.EnvironmentSatisfaction), e.HealthCondition, e.ExpectationsFromCompany,
		itoa(e.JoiningSalary), itoa(e.CurrentSalary), e.Education,
		itoa(e.Attrition), strconv.FormatFloat(e.AttritionProbability, 'f', 2, 64),
		strconv.FormatBool(e.IsRetained), e.RiskCategory, e.DataSource, e.ScoringStatus,
		e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func summaryKey(f repos.EmployeeFilter) string {
	opt := func(p any) string {
		switch v := p.(type) {
		case *int:
			if v != nil {
				return strconv.Itoa(*v)
			}
		case *bool:
			if v != nil {
				return strconv.FormatBool(*v)
			}
		}
		return ""
	}
	parts := []string{
		f.Gender, f.MaritalStatus, f.DataSource, f.RiskCategory,
		opt(f.Attrition), opt(f.Retained), strings.ToLower(strings.TrimSpace(f.Search)),
	}
	return strings.Join(parts, "|")
}
