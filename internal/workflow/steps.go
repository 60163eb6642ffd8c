package workflow

import (
	"fmt"
	"sort"
	"strings"

	"deedflow/internal/domain"
)

type stepTemplate struct {
	key        string
	title      string
	localTitle string
	required   []domain.DocType
}

// The fixed compliance workflow, in order.
var stepTemplates = []stepTemplate{
	{"kyc_aml", "KYC/AML Verification", "التحقق من الهوية ومكافحة غسيل الأموال", []domain.DocType{domain.DocKYC, domain.DocPassport}},
	{"title_deed", "Title Deed Verification", "التحقق من سند الملكية", []domain.DocType{domain.DocTitleDeed}},
	{"noc", "NOC Collection", "جمع شهادات عدم الممانعة", []domain.DocType{domain.DocNOC}},
	{"valuation", "Property Valuation", "تقييم العقار", []domain.DocType{domain.DocValuationReport}},
	{"escrow", "Escrow Setup", "إعداد حساب الضمان", []domain.DocType{domain.DocEscrowAgreement}},
	{"settlement", "Settlement", "التسوية", []domain.DocType{domain.DocSPA}},
	{"issuance", "Token/Share Issuance", "إصدار الحصص/الرموز", nil},
	{"post_close", "Post-Close Automation", "أتمتة ما بعد الإغلاق", nil},
}

// StepKeyNOC identifies the NOC collection step targeted by noc_delay.
const StepKeyNOC = "noc"

// TotalSteps is the fixed size of every step graph.
var TotalSteps = len(stepTemplates)

// InitializeSteps creates the fixed step graph. The first step starts
// in_progress; the rest are todo.
func (e *Engine) InitializeSteps() []domain.Step {
	now := e.now()
	steps := make([]domain.Step, len(stepTemplates))
	for i, t := range stepTemplates {
		steps[i] = domain.Step{
			ID:           e.id(),
			Key:          t.key,
			Title:        t.title,
			LocalTitle:   t.localTitle,
			Status:       domain.StepTodo,
			Order:        i + 1,
			RequiredDocs: append([]domain.DocType(nil), t.required...),
		}
	}
	if len(steps) > 0 {
		started := now
		steps[0].Status = domain.StepInProgress
		steps[0].StartedAt = &started
	}
	return steps
}

func stepIndex(d *domain.Deal, stepID string) (int, error) {
	for i := range d.Steps {
		if d.Steps[i].ID == stepID {
			return i, nil
		}
	}
	return -1, domain.WithMeta(domain.KindStepNotFound, fmt.Sprintf("step %s not found", stepID), map[string]string{"step_id": stepID})
}

// FindStep returns the step with the given id.
func FindStep(d domain.Deal, stepID string) (domain.Step, error) {
	i, err := stepIndex(&d, stepID)
	if err != nil {
		return domain.Step{}, err
	}
	return d.Steps[i], nil
}

// CurrentStep returns the first in_progress step by order.
func CurrentStep(d domain.Deal) (domain.Step, bool) {
	i := currentIndex(&d)
	if i < 0 {
		return domain.Step{}, false
	}
	return d.Steps[i], true
}

func currentIndex(d *domain.Deal) int {
	best := -1
	for i := range d.Steps {
		if d.Steps[i].Status != domain.StepInProgress {
			continue
		}
		if best < 0 || d.Steps[i].Order < d.Steps[best].Order {
			best = i
		}
	}
	return best
}

func invalidTransition(s domain.Step, op string) *domain.Error {
	return domain.WithMeta(domain.KindInvalidTransition,
		fmt.Sprintf("cannot %s step %q in status %s", op, s.Title, s.Status),
		map[string]string{"step_id": s.ID, "status": string(s.Status), "operation": op})
}

// AdvanceStep completes a todo or in_progress step, stamps completedAt and
// starts the next todo step by order.
func (e *Engine) AdvanceStep(d *domain.Deal, stepID string, actor domain.Actor) (domain.Step, error) {
	var out domain.Step
	err := e.mutate(d, func(stage *domain.Deal) error {
		i, err := stepIndex(stage, stepID)
		if err != nil {
			return err
		}
		if err := e.completeStep(stage, i); err != nil {
			return err
		}
		out = stage.Steps[i].Clone()
		e.audit(stage, actor.Label(), "Step Completed", fmt.Sprintf("%s marked done", out.Title), "check")
		return nil
	})
	return out, err
}

// completeStep is the shared transition behind AdvanceStep and the
// step_completed event.
func (e *Engine) completeStep(d *domain.Deal, i int) error {
	s := &d.Steps[i]
	switch s.Status {
	case domain.StepTodo, domain.StepInProgress:
	default:
		return invalidTransition(*s, "advance")
	}
	now := e.now()
	if s.StartedAt == nil {
		s.StartedAt = &now
	}
	s.Status = domain.StepDone
	s.CompletedAt = &now
	s.BlockReason = ""

	if next := nextTodo(d, s.Order); next >= 0 {
		started := now
		d.Steps[next].Status = domain.StepInProgress
		d.Steps[next].StartedAt = &started
	}
	onStepCompleted(d)
	return nil
}

// nextTodo finds the lowest-ordered todo step after order.
func nextTodo(d *domain.Deal, order int) int {
	best := -1
	for i := range d.Steps {
		s := d.Steps[i]
		if s.Status != domain.StepTodo || s.Order <= order {
			continue
		}
		if best < 0 || s.Order < d.Steps[best].Order {
			best = i
		}
	}
	return best
}

// BlockStep blocks any step that is not done. Blocking an already blocked
// step replaces its reason.
func (e *Engine) BlockStep(d *domain.Deal, stepID, reason string, actor domain.Actor) (domain.Step, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Step{}, domain.WithMeta(domain.KindValidation, "block reason is required", map[string]string{"field": "reason"})
	}
	if len(reason) > 500 {
		return domain.Step{}, domain.WithMeta(domain.KindValidation, "block reason exceeds 500 characters", map[string]string{"field": "reason"})
	}
	var out domain.Step
	err := e.mutate(d, func(stage *domain.Deal) error {
		i, err := stepIndex(stage, stepID)
		if err != nil {
			return err
		}
		if err := e.blockStep(stage, i, reason); err != nil {
			return err
		}
		out = stage.Steps[i].Clone()
		e.audit(stage, actor.Label(), "Step Blocked", fmt.Sprintf("%s blocked: %s", out.Title, reason), "warning")
		return nil
	})
	return out, err
}

func (e *Engine) blockStep(d *domain.Deal, i int, reason string) error {
	s := &d.Steps[i]
	if s.Status == domain.StepDone {
		return invalidTransition(*s, "block")
	}
	s.Status = domain.StepBlocked
	s.BlockReason = reason
	e.notify(d, domain.SeverityWarning, fmt.Sprintf("%s is blocked.", s.Title), "step-blocked-"+s.ID)
	return nil
}

// UnblockStep returns a blocked step to in_progress when it had started,
// otherwise to todo.
func (e *Engine) UnblockStep(d *domain.Deal, stepID string, actor domain.Actor) (domain.Step, error) {
	var out domain.Step
	err := e.mutate(d, func(stage *domain.Deal) error {
		i, err := stepIndex(stage, stepID)
		if err != nil {
			return err
		}
		s := &stage.Steps[i]
		if s.Status != domain.StepBlocked {
			return invalidTransition(*s, "unblock")
		}
		if s.StartedAt != nil {
			s.Status = domain.StepInProgress
		} else {
			s.Status = domain.StepTodo
		}
		s.BlockReason = ""
		out = s.Clone()
		e.audit(stage, actor.Label(), "Step Unblocked", fmt.Sprintf("%s resumed", out.Title), "unlock")
		return nil
	})
	return out, err
}

// AddStepNote appends a free-text note to a step.
func (e *Engine) AddStepNote(d *domain.Deal, stepID, note string, actor domain.Actor) (domain.Step, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return domain.Step{}, domain.WithMeta(domain.KindValidation, "note is required", map[string]string{"field": "note"})
	}
	var out domain.Step
	err := e.mutate(d, func(stage *domain.Deal) error {
		i, err := stepIndex(stage, stepID)
		if err != nil {
			return err
		}
		stage.Steps[i].Notes = append(stage.Steps[i].Notes, note)
		out = stage.Steps[i].Clone()
		e.audit(stage, actor.Label(), "Note Added", fmt.Sprintf("Note on %s", out.Title), "note")
		return nil
	})
	return out, err
}

// BlockedSteps returns every blocked step in order.
func BlockedSteps(d domain.Deal) []domain.Step {
	var out []domain.Step
	for _, s := range orderedSteps(d) {
		if s.Status == domain.StepBlocked {
			out = append(out, s)
		}
	}
	return out
}

// MissingDocsForStep lists the step's required types that have no verified
// document.
func MissingDocsForStep(s domain.Step, d domain.Deal) []domain.DocType {
	return MissingRequiredTypes(d, s.RequiredDocs)
}

// orderedSteps returns the steps sorted by Order without touching d.
func orderedSteps(d domain.Deal) []domain.Step {
	out := append([]domain.Step(nil), d.Steps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
