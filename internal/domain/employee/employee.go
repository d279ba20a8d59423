package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SourceFeedbackForm = "Feedback Form"
	SourceCSV          = "CSV"
)

const UnknownName = "Unknown"

// Raw feature field names as they appear in uploads and in the trained artifact.
const (
	FieldAge                     = "Age"
	FieldGender                  = "Gender"
	FieldMaritalStatus           = "MaritalStatus"
	FieldEducation               = "Education"
	FieldJobSatisfaction         = "JobSatisfaction"
	FieldWorkingHours            = "WorkingHours"
	FieldYearsAtCompany          = "YearsAtCompany"
	FieldDistanceFromHome        = "DistanceFromHome"
	FieldEnvironmentSatisfaction = "EnvironmentSatisfaction"
	FieldHealthCondition         = "HealthCondition"
	FieldExpectationsFromCompany = "ExpectationsFromCompany"
	FieldJoiningSalary           = "JoiningSalary"
	FieldCurrentSalary           = "CurrentSalary"

	FieldEmployeeID = "EmployeeID"
	FieldName       = "Name"
)

// FeatureFields lists the 13 raw fields fed to the model, in upload order.
var FeatureFields = []string{
	FieldAge, FieldGender, FieldMaritalStatus, FieldJobSatisfaction, FieldWorkingHours,
	FieldYearsAtCompany, FieldDistanceFromHome, FieldEnvironmentSatisfaction,
	FieldHealthCondition, FieldExpectationsFromCompany, FieldJoiningSalary,
	FieldCurrentSalary, FieldEducation,
}

type Employee struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID string    `gorm:"uniqueIndex;not null;size:20;column:employee_id" json:"employee_id"`
	Name       string    `gorm:"not null;column:name" json:"name"`

	Age                     int    `gorm:"not null;column:age" json:"age"`
	Gender                  string `gorm:"not null;size:6;index;column:gender" json:"gender"`
	MaritalStatus           string `gorm:"not null;size:8;index;column:marital_status" json:"marital_status"`
	Education               string `gorm:"not null;size:12;column:education" json:"education"`
	JobSatisfaction         int    `gorm:"not null;column:job_satisfaction" json:"job_satisfaction"`
	WorkingHours            int    `gorm:"not null;column:working_hours" json:"working_hours"`
	YearsAtCompany          int    `gorm:"not null;column:years_at_company" json:"years_at_company"`
	DistanceFromHome        int    `gorm:"not null;column:distance_from_home" json:"distance_from_home"`
	EnvironmentSatisfaction int    `gorm:"not null;column:environment_satisfaction" json:"environment_satisfaction"`
	HealthCondition         string `gorm:"not null;size:10;column:health_condition" json:"health_condition"`
	ExpectationsFromCompany string `gorm:"not null;size:20;column:expectations_from_company" json:"expectations_from_company"`
	JoiningSalary           int    `gorm:"not null;column:joining_salary" json:"joining_salary"`
	CurrentSalary           int    `gorm:"not null;column:current_salary" json:"current_salary"`

	// Model outcome. AttritionProbability is a percentage.
	Attrition            int     `gorm:"not null;index;column:attrition" json:"attrition"`
	AttritionProbability float64 `gorm:"not null;column:attrition_probability" json:"attrition_probability"`
	IsRetained           bool    `gorm:"not null;index;column:is_retained" json:"is_retained"`
	RiskCategory         string  `gorm:"not null;size:6;index;column:risk_category" json:"risk_category"`

	DataSource      string `gorm:"not null;size:20;index;column:data_source" json:"data_source"`
	ScoringStatus   string `gorm:"not null;size:10;column:scoring_status" json:"scoring_status"`
	FallbackReason  string `gorm:"column:fallback_reason" json:"fallback_reason,omitempty"`
	ArtifactVersion string `gorm:"column:artifact_version" json:"artifact_version,omitempty"`

	// Features is the raw feature row as scored.
	Features datatypes.JSON `gorm:"column:features" json:"features,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Employee) TableName() string { return "employee" }
