package domain

import (
	"github.com/yungbote/attrition-backend/internal/domain/employee"
)

type (
	Employee           = employee.Employee
	EmployeeAttributes = employee.Attributes
	FeedbackRequest    = employee.FeedbackRequest
)

const (
	SourceFeedbackForm = employee.SourceFeedbackForm
	SourceCSV          = employee.SourceCSV
)
