package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/attrition-backend/internal/domain"
)

// Attributes returns a valid feedback input for employeeID.
func Attributes(employeeID string) types.EmployeeAttributes {
	return types.EmployeeAttributes{
		EmployeeID:              employeeID,
		Name:                    "Test Employee",
		Age:                     34,
		Gender:                  "Female",
		MaritalStatus:           "Married",
		Education:               "Bachelor",
		JobSatisfaction:         4,
		WorkingHours:            40,
		YearsAtCompany:          5,
		DistanceFromHome:        12,
		EnvironmentSatisfaction: 3,
		HealthCondition:         "Good",
		ExpectationsFromCompany: "Training",
		JoiningSalary:           42000,
		CurrentSalary:           51000,
	}
}

// SeedEmployee stores a scored record with the given probability.
func SeedEmployee(tb testing.TB, ctx context.Context, tx *gorm.DB, employeeID, source string, probability float64) *types.Employee {
	tb.Helper()
	e := Attributes(employeeID).Record(source)
	e.ID = uuid.New()
	e.AttritionProbability = probability
	e.IsRetained = probability < 25
	switch {
	case probability >= 75:
		e.RiskCategory = "High"
		e.Attrition = 1
	case probability >= 50:
		e.RiskCategory = "Medium"
		e.Attrition = 1
	default:
		e.RiskCategory = "Low"
	}
	e.ScoringStatus = "scored"
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed employee: %v", err)
	}
	return e
}
