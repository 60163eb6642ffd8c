// Package workflow is the compliance workflow engine: the per-deal step state
// machine, document gating, metrics and the copilot recommendation rules.
//
// Every function here works on an in-memory domain.Deal and performs no I/O.
// Mutating methods stage their changes on a clone and commit only when the
// whole operation succeeds, so a failed call leaves the deal untouched.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"deedflow/internal/domain"
)

// Engine applies workflow transitions. The zero value is usable and falls
// back to time.Now and random UUIDs.
type Engine struct {
	Now   func() time.Time
	NewID func() string
}

func New() *Engine { return &Engine{} }

func (e *Engine) now() time.Time {
	if e == nil || e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

func (e *Engine) id() string {
	if e == nil || e.NewID == nil {
		return uuid.NewString()
	}
	return e.NewID()
}

// mutate runs fn on a clone of d and commits it back on success.
func (e *Engine) mutate(d *domain.Deal, fn func(stage *domain.Deal) error) error {
	stage := d.Clone()
	if err := fn(&stage); err != nil {
		return err
	}
	clampMetrics(&stage.Metrics)
	syncDealStatus(&stage)
	stage.UpdatedAt = e.now()
	*d = stage
	return nil
}

func (e *Engine) audit(d *domain.Deal, actor, action, detail, icon string) {
	d.Audit = append(d.Audit, domain.AuditEntry{
		ID:     e.id(),
		At:     e.now(),
		Actor:  actor,
		Action: action,
		Detail: detail,
		Icon:   icon,
	})
}

// syncDealStatus derives the lifecycle status from the step graph. A deal
// stays draft until its first mutation after creation.
func syncDealStatus(d *domain.Deal) {
	done, blocked := 0, 0
	for _, s := range d.Steps {
		switch s.Status {
		case domain.StepDone:
			done++
		case domain.StepBlocked:
			blocked++
		}
	}
	switch {
	case len(d.Steps) > 0 && done == len(d.Steps):
		d.Status = domain.DealCompleted
	case blocked > 0:
		d.Status = domain.DealOnHold
	default:
		d.Status = domain.DealActive
	}
}

// AuditLog returns the audit entries newest first.
func AuditLog(d domain.Deal) []domain.AuditEntry {
	out := make([]domain.AuditEntry, len(d.Audit))
	for i, a := range d.Audit {
		out[len(d.Audit)-1-i] = a
	}
	return out
}

// Summarize builds the list view of a deal.
func Summarize(d domain.Deal) domain.DealSummary {
	done := 0
	for _, s := range d.Steps {
		if s.Status == domain.StepDone {
			done++
		}
	}
	return domain.DealSummary{
		ID:              d.ID,
		Name:            d.Name,
		City:            d.City,
		Status:          d.Status,
		TotalValue:      d.TotalValue,
		ComplianceScore: d.Metrics.ComplianceScore,
		RiskScore:       d.Metrics.RiskScore,
		StepsDone:       done,
		TotalSteps:      len(d.Steps),
		UpdatedAt:       d.UpdatedAt,
	}
}
