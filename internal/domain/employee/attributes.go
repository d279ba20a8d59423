package employee

// Attributes is the validated input for one employee, shared by the feedback
// form and each CSV row.
type Attributes struct {
	EmployeeID string `json:"employee_id" validate:"required,max=20"`
	Name       string `json:"name" validate:"max=200"`

	Age                     int    `json:"age" validate:"gte=18,lte=65"`
	Gender                  string `json:"gender" validate:"oneof=Male Female"`
	MaritalStatus           string `json:"marital_status" validate:"oneof=Single Married Divorced"`
	Education               string `json:"education" validate:"oneof='High School' Bachelor Master PhD"`
	JobSatisfaction         int    `json:"job_satisfaction" validate:"gte=1,lte=5"`
	WorkingHours            int    `json:"working_hours" validate:"gte=1"`
	YearsAtCompany          int    `json:"years_at_company" validate:"gte=0"`
	DistanceFromHome        int    `json:"distance_from_home" validate:"gte=0"`
	EnvironmentSatisfaction int    `json:"environment_satisfaction" validate:"gte=1,lte=5"`
	HealthCondition         string `json:"health_condition" validate:"oneof=Poor Average Good Excellent"`
	ExpectationsFromCompany string `json:"expectations_from_company" validate:"oneof='Health Benefits' Promotion 'Flexible Work' Training 'Work-Life Balance'"`
	JoiningSalary           int    `json:"joining_salary" validate:"gte=0"`
	CurrentSalary           int    `json:"current_salary" validate:"gte=0"`
}

// Features returns the raw feature row keyed by trained field name.
func (a Attributes) Features() map[string]any {
	return map[string]any{
		FieldAge:                     a.Age,
		FieldGender:                  a.Gender,
		FieldMaritalStatus:           a.MaritalStatus,
		FieldEducation:               a.Education,
		FieldJobSatisfaction:         a.JobSatisfaction,
		FieldWorkingHours:            a.WorkingHours,
		FieldYearsAtCompany:          a.YearsAtCompany,
		FieldDistanceFromHome:        a.DistanceFromHome,
		FieldEnvironmentSatisfaction: a.EnvironmentSatisfaction,
		FieldHealthCondition:         a.HealthCondition,
		FieldExpectationsFromCompany: a.ExpectationsFromCompany,
		FieldJoiningSalary:           a.JoiningSalary,
		FieldCurrentSalary:           a.CurrentSalary,
	}
}

// Record copies the raw attributes into a new, unscored Employee.
func (a Attributes) Record(source string) *Employee {
	name := a.Name
	if name == "" {
		name = UnknownName
	}
	return &Employee{
		EmployeeID:              a.EmployeeID,
		Name:                    name,
		Age:                     a.Age,
		Gender:                  a.Gender,
		MaritalStatus:           a.MaritalStatus,
		Education:               a.Education,
		JobSatisfaction:         a.JobSatisfaction,
		WorkingHours:            a.WorkingHours,
		YearsAtCompany:          a.YearsAtCompany,
		DistanceFromHome:        a.DistanceFromHome,
		EnvironmentSatisfaction: a.EnvironmentSatisfaction,
		HealthCondition:         a.HealthCondition,
		ExpectationsFromCompany: a.ExpectationsFromCompany,
		JoiningSalary:           a.JoiningSalary,
		CurrentSalary:           a.CurrentSalary,
		DataSource:              source,
	}
}

// FeedbackRequest is the JSON body of the feedback form. Numeric fields are
// pointers so an omitted field can be told apart from an explicit zero; ranges
// are checked on the Attributes it converts to.
type FeedbackRequest struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`

	Age                     *int   `json:"age" validate:"required"`
	Gender                  string `json:"gender"`
	MaritalStatus           string `json:"marital_status"`
	Education               string `json:"education"`
	JobSatisfaction         *int   `json:"job_satisfaction" validate:"required"`
	WorkingHours            *int   `json:"working_hours" validate:"required"`
	YearsAtCompany          *int   `json:"years_at_company" validate:"required"`
	DistanceFromHome        *int   `json:"distance_from_home" validate:"required"`
	EnvironmentSatisfaction *int   `json:"environment_satisfaction" validate:"required"`
	HealthCondition         string `json:"health_condition"`
	ExpectationsFromCompany string `json:"expectations_from_company"`
	JoiningSalary           *int   `json:"joining_salary" validate:"required"`
	CurrentSalary           *int   `json:"current_salary" validate:"required"`
}

// Attributes copies the request; absent numeric fields become zero.
func (r FeedbackRequest) Attributes() Attributes {
	val := func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	}
	return Attributes{
		EmployeeID:              r.EmployeeID,
		Name:                    r.Name,
		Age:                     val(r.Age),
		Gender:                  r.Gender,
		MaritalStatus:           r.MaritalStatus,
		Education:               r.Education,
		JobSatisfaction:         val(r.JobSatisfaction),
		WorkingHours:            val(r.WorkingHours),
		YearsAtCompany:          val(r.YearsAtCompany),
		DistanceFromHome:        val(r.DistanceFromHome),
		EnvironmentSatisfaction: val(r.EnvironmentSatisfaction),
		HealthCondition:         r.HealthCondition,
		ExpectationsFromCompany: r.ExpectationsFromCompany,
		JoiningSalary:           val(r.JoiningSalary),
		CurrentSalary:           val(r.CurrentSalary),
	}
}
