package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/attrition-backend/internal/data/repos/employees"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

type EmployeeRepo = employees.EmployeeRepo
type EmployeeFilter = employees.Filter
type EmployeeSummary = employees.Summary

func NewEmployeeRepo(db *gorm.DB, baseLog *logger.Logger) EmployeeRepo {
	return employees.NewEmployeeRepo(db, baseLog)
}
