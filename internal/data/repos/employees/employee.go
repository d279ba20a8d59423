package employees

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/attrition-backend/internal/domain"
	"github.com/yungbote/attrition-backend/internal/platform/dbctx"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	upsertBatchSize  = 200

	// lookupChunkSize bounds the bind variables of one IN query; sqlite caps a
	// statement at 32766 and postgres at 65535.
	lookupChunkSize = 1000
)

// Filter narrows List, Summary and export queries. Zero values match everything.
type Filter struct {
	Gender        string
	MaritalStatus string
	DataSource    string
	RiskCategory  string
	Attrition     *int
	Retained      *bool

	// Search matches employee_id or name, case-insensitively.
	Search string

	Limit  int
	Offset int
}

type Summary struct {
	Total              int64   `gorm:"column:total" json:"total"`
	Retained           int64   `gorm:"column:retained" json:"retained"`
	Low                int64   `gorm:"column:low" json:"low"`
	Medium             int64   `gorm:"column:medium" json:"medium"`
	High               int64   `gorm:"column:high" json:"high"`
	Scored             int64   `gorm:"column:scored" json:"scored"`
	Fallback           int64   `gorm:"column:fallback" json:"fallback"`
	AverageProbability float64 `gorm:"column:average_probability" json:"average_probability"`
}

type EmployeeRepo interface {
	Upsert(dbc dbctx.Context, row *types.Employee) (*types.Employee, error)
	UpsertMany(dbc dbctx.Context, rows []*types.Employee) ([]*types.Employee, error)
	GetByEmployeeID(dbc dbctx.Context, employeeID string) (*types.Employee, error)
	GetByEmployeeIDs(dbc dbctx.Context, employeeIDs []string) ([]*types.Employee, error)
	List(dbc dbctx.Context, f Filter) ([]*types.Employee, int64, error)
	Summary(dbc dbctx.Context, f Filter) (Summary, error)
}

type employeeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmployeeRepo(db *gorm.DB, baseLog *logger.Logger) EmployeeRepo {
	return &employeeRepo{
		db:  db,
		log: baseLog.With("repo", "EmployeeRepo"),
	}
}

var upsertColumns = []string{
	"name",
	"age",
	"gender",
	"marital_status",
	"education",
	"job_satisfaction",
	"working_hours",
	"years_at_company",
	"distance_from_home",
	"environment_satisfaction",
	"health_condition",
	"expectations_from_company",
	"joining_salary",
	"current_salary",
	"attrition",
	"attrition_probability",
	"is_retained",
	"risk_category",
	"data_source",
	"scoring_status",
	"fallback_reason",
	"artifact_version",
	"features",
	"updated_at",
}

func (r *employeeRepo) Upsert(dbc dbctx.Context, row *types.Employee) (*types.Employee, error) {
	if row == nil {
		return nil, errors.New("nil employee")
	}
	out, err := r.UpsertMany(dbc, []*types.Employee{row})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("upserted employee not found")
	}
	return out[0], nil
}

// UpsertMany writes rows keyed by employee_id; an existing record is
// overwritten. When rows repeats an employee_id the last occurrence wins.
// It returns the stored records in the order of their last occurrence.
func (r *employeeRepo) UpsertMany(dbc dbctx.Context, rows []*types.Employee) ([]*types.Employee, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	rows = dedupeByEmployeeID(rows)
	if len(rows) == 0 {
		return []*types.Employee{}, nil
	}

	now := time.Now().UTC()
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		ids = append(ids, row.EmployeeID)
	}

	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		CreateInBatches(rows, upsertBatchSize).Error; err != nil {
		return nil, err
	}

	stored, err := r.GetByEmployeeIDs(dbctx.Context{Ctx: dbc.Ctx, Tx: t}, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*types.Employee, len(stored))
	for _, e := range stored {
		byID[e.EmployeeID] = e
	}
	out := make([]*types.Employee, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *employeeRepo) GetByEmployeeID(dbc dbctx.Context, employeeID string) (*types.Employee, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, nil
	}
	var out types.Employee
	err := t.WithContext(dbc.Ctx).
		Where("employee_id = ?", employeeID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *employeeRepo) GetByEmployeeIDs(dbc dbctx.Context, employeeIDs []string) ([]*types.Employee, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Employee
	for start := 0; start < len(employeeIDs); start += lookupChunkSize {
		end := min(start+lookupChunkSize, len(employeeIDs))
		var chunk []*types.Employee
		if err := t.WithContext(dbc.Ctx).
			Where("employee_id IN ?", employeeIDs[start:end]).
			Find(&chunk).Error; err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// List returns one page of matching records ordered by employee_id, plus the
// total match count.
func (r *employeeRepo) List(dbc dbctx.Context, f Filter) ([]*types.Employee, int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := applyFilter(t.WithContext(dbc.Ctx).Model(&types.Employee{}), f)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var out []*types.Employee
	if err := q.Order("employee_id ASC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *employeeRepo) Summary(dbc dbctx.Context, f Filter) (Summary, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var s Summary
	err := applyFilter(t.WithContext(dbc.Ctx).Model(&types.Employee{}), f).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_retained THEN 1 ELSE 0 END), 0) AS retained,
			COALESCE(SUM(CASE WHEN risk_category = 'Low' THEN 1 ELSE 0 END), 0) AS low,
			COALESCE(SUM(CASE WHEN risk_category = 'Medium' THEN 1 ELSE 0 END), 0) AS medium,
			COALESCE(SUM(CASE WHEN risk_category = 'High' THEN 1 ELSE 0 END), 0) AS high,
			COALESCE(SUM(CASE WHEN scoring_status = 'scored' THEN 1 ELSE 0 END), 0) AS scored,
			COALESCE(SUM(CASE WHEN scoring_status = 'fallback' THEN 1 ELSE 0 END), 0) AS fallback,
			COALESCE(AVG(attrition_probability), 0) AS average_probability`).
		Scan(&s).Error
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

func applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if v := strings.TrimSpace(f.Gender); v != "" {
		q = q.Where("gender = ?", v)
	}
	if v := strings.TrimSpace(f.MaritalStatus); v != "" {
		q = q.Where("marital_status = ?", v)
	}
	if v := strings.TrimSpace(f.DataSource); v != "" {
		q = q.Where("data_source = ?", v)
	}
	if v := strings.TrimSpace(f.RiskCategory); v != "" {
		q = q.Where("risk_category = ?", v)
	}
	if f.Attrition != nil {
		q = q.Where("attrition = ?", *f.Attrition)
	}
	if f.Retained != nil {
		q = q.Where("is_retained = ?", *f.Retained)
	}
	if v := strings.ToLower(strings.TrimSpace(f.Search)); v != "" {
		like := "%" + v + "%"
		q = q.Where("(LOWER(employee_id) LIKE ? OR LOWER(name) LIKE ?)", like, like)
	}
	return q
}

func dedupeByEmployeeID(rows []*types.Employee) []*types.Employee {
	last := make(map[string]int, len(rows))
	for i, row := range rows {
		if row == nil || row.EmployeeID == "" {
			continue
		}
		last[row.EmployeeID] = i
	}
	out := make([]*types.Employee, 0, len(last))
	for i, row := range rows {
		if row == nil || row.EmployeeID == "" {
			continue
		}
		if last[row.EmployeeID] == i {
			out = append(out, row)
		}
	}
	return out
}
