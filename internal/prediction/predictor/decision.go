package predictor

// Probability thresholds, in percent.
const (
	RetentionThreshold = 25.0
	MediumRiskFloor    = 50.0
	HighRiskFloor      = 75.0
)

type RiskCategory string

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

func (c RiskCategory) Valid() bool {
	switch c {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// IsRetained reports whether an employee at probability p (0..100) is
// expected to stay.
func IsRetained(p float64) bool {
	return p < RetentionThreshold
}

func CategoryFor(p float64) RiskCategory {
	switch {
	case p >= HighRiskFloor:
		return RiskHigh
	case p >= MediumRiskFloor:
		return RiskMedium
	default:
		return RiskLow
	}
}
