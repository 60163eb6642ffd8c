package workflow

import (
	"math"

	"deedflow/internal/domain"
)

const (
	maxScore = 100

	missingDocCompliance  = -15
	missingDocRisk        = 20
	riskSurgeRisk         = 30
	docVerifiedCompliance = 10
	approvalDelayRisk     = 5
	approvalDelayDays     = 3
	nocDelayDays          = 7
	stepCompletedDays     = -2
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampMetrics saturates every metric into its range.
func clampMetrics(m *domain.Metrics) {
	m.ComplianceScore = clamp(m.ComplianceScore, 0, maxScore)
	m.RiskScore = clamp(m.RiskScore, 0, maxScore)
	if m.EstTimeToCloseDays < 0 {
		m.EstTimeToCloseDays = 0
	}
}

// ComplianceFor is round(100 * done / total) over the deal's steps.
func ComplianceFor(d domain.Deal) int {
	if len(d.Steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range d.Steps {
		if s.Status == domain.StepDone {
			done++
		}
	}
	return int(math.Round(float64(maxScore*done) / float64(len(d.Steps))))
}

func onStepCompleted(d *domain.Deal) {
	d.Metrics.ComplianceScore = ComplianceFor(*d)
	d.Metrics.EstTimeToCloseDays += stepCompletedDays
	clampMetrics(&d.Metrics)
}

func adjust(m *domain.Metrics, compliance, risk, days int) {
	m.ComplianceScore += compliance
	m.RiskScore += risk
	m.EstTimeToCloseDays += days
	clampMetrics(m)
}
