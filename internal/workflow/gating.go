package workflow

import (
	"deedflow/internal/domain"
)

// MissingRequiredDocs returns, in step order, every required type of a
// non-done step that has no verified document. Each type appears once.
func MissingRequiredDocs(d domain.Deal) []domain.DocType {
	var required []domain.DocType
	for _, s := range orderedSteps(d) {
		if s.Status == domain.StepDone {
			continue
		}
		required = append(required, s.RequiredDocs...)
	}
	return MissingRequiredTypes(d, required)
}

// BlockerCount is the number of blocked steps plus missing required docs.
func BlockerCount(d domain.Deal) int {
	return len(BlockedSteps(d)) + len(MissingRequiredDocs(d))
}

// CanAdvance reports whether every required type of the step is satisfied.
// It never changes state.
func CanAdvance(s domain.Step, d domain.Deal) bool {
	return len(MissingDocsForStep(s, d)) == 0
}

type StepGate struct {
	StepID      string
	Key         string
	Title       string
	Status      domain.StepStatus
	MissingDocs []domain.DocType
	CanAdvance  bool
}

// Gate is the derived gating view of a deal.
type Gate struct {
	Steps        []StepGate
	BlockedSteps []string
	MissingDocs  []domain.DocType
	BlockerCount int
	Current      string
}

// EvaluateGate computes the gating view from a consistent snapshot.
func EvaluateGate(d domain.Deal) Gate {
	g := Gate{
		BlockedSteps: []string{},
		MissingDocs:  MissingRequiredDocs(d),
	}
	for _, s := range orderedSteps(d) {
		missing := MissingDocsForStep(s, d)
		g.Steps = append(g.Steps, StepGate{
			StepID:      s.ID,
			Key:         s.Key,
			Title:       s.Title,
			Status:      s.Status,
			MissingDocs: missing,
			CanAdvance:  len(missing) == 0,
		})
		if s.Status == domain.StepBlocked {
			g.BlockedSteps = append(g.BlockedSteps, s.ID)
		}
	}
	g.BlockerCount = len(g.BlockedSteps) + len(g.MissingDocs)
	if cur, ok := CurrentStep(d); ok {
		g.Current = cur.ID
	}
	return g
}
