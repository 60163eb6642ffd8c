package workflow

import (
	"fmt"
	"strings"

	"deedflow/internal/domain"
)

// EventKind is the closed set of simulated deal events.
type EventKind int

const (
	EventMissingDoc EventKind = iota + 1
	EventNOCDelay
	EventRiskSurge
	EventDocVerified
	EventStepCompleted
	EventApprovalDelay
)

var eventTags = map[EventKind]string{
	EventMissingDoc:    "missing_doc",
	EventNOCDelay:      "noc_delay",
	EventRiskSurge:     "risk_surge",
	EventDocVerified:   "doc_verified",
	EventStepCompleted: "step_completed",
	EventApprovalDelay: "approval_delay",
}

var eventsByTag = func() map[string]EventKind {
	out := make(map[string]EventKind, len(eventTags))
	for k, tag := range eventTags {
		out[tag] = k
	}
	return out
}()

func (k EventKind) String() string {
	if tag, ok := eventTags[k]; ok {
		return tag
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// EventKinds lists every kind in declaration order.
func EventKinds() []EventKind {
	return []EventKind{EventMissingDoc, EventNOCDelay, EventRiskSurge, EventDocVerified, EventStepCompleted, EventApprovalDelay}
}

// ParseEventKind maps a wire tag to its kind.
func ParseEventKind(tag string) (EventKind, error) {
	if k, ok := eventsByTag[strings.TrimSpace(tag)]; ok {
		return k, nil
	}
	return 0, domain.WithMeta(domain.KindUnknownEventType, fmt.Sprintf("unknown event type %q", tag), map[string]string{"event": tag})
}

// Event is one simulated occurrence. Reason overrides the default block
// reason of missing_doc and noc_delay.
type Event struct {
	Kind   EventKind
	Reason string
}

const (
	actorAI        = "DeedFlow AI"
	actorDeveloper = "Developer"
	actorRegulator = "Regulator"

	defaultMissingDocReason = "Required document missing: regulator flagged issue"
	defaultNOCDelayReason   = "Developer NOC delayed: processing backlog"
)

// ApplyEvent applies one event atomically. An event whose target does not
// exist fails without changing the deal.
func (e *Engine) ApplyEvent(d *domain.Deal, ev Event) error {
	if _, ok := eventTags[ev.Kind]; !ok {
		return domain.WithMeta(domain.KindUnknownEventType, fmt.Sprintf("unknown event type %s", ev.Kind), map[string]string{"event": ev.Kind.String()})
	}
	return e.mutate(d, func(stage *domain.Deal) error {
		switch ev.Kind {
		case EventMissingDoc:
			return e.applyMissingDoc(stage, reasonOr(ev.Reason, defaultMissingDocReason))
		case EventNOCDelay:
			return e.applyNOCDelay(stage, reasonOr(ev.Reason, defaultNOCDelayReason))
		case EventRiskSurge:
			adjust(&stage.Metrics, 0, riskSurgeRisk, 0)
			e.audit(stage, actorAI, "Risk Alert", fmt.Sprintf("Risk score raised to %d", stage.Metrics.RiskScore), "alert")
			return nil
		case EventDocVerified:
			return e.applyDocVerified(stage)
		case EventStepCompleted:
			return e.applyStepCompleted(stage)
		case EventApprovalDelay:
			adjust(&stage.Metrics, 0, approvalDelayRisk, approvalDelayDays)
			e.audit(stage, actorRegulator, "Approval Delayed", fmt.Sprintf("Regulator approval delayed by %d days", approvalDelayDays), "clock")
			return nil
		default:
			panic(fmt.Sprintf("workflow: unhandled event kind %s", ev.Kind))
		}
	})
}

func reasonOr(reason, fallback string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return fallback
}

func (e *Engine) applyMissingDoc(d *domain.Deal, reason string) error {
	i := currentIndex(d)
	if i < 0 {
		return domain.Errorf(domain.KindInvalidTransition, "missing_doc requires a step in progress")
	}
	if err := e.blockStep(d, i, reason); err != nil {
		return err
	}
	adjust(&d.Metrics, missingDocCompliance, missingDocRisk, 0)
	e.audit(d, actorAI, "Doc Missing", fmt.Sprintf("%s blocked: %s", d.Steps[i].Title, reason), "warning")
	return nil
}

func (e *Engine) applyNOCDelay(d *domain.Deal, reason string) error {
	i := -1
	for j := range d.Steps {
		if d.Steps[j].Key == StepKeyNOC {
			i = j
			break
		}
	}
	if i < 0 {
		return domain.WithMeta(domain.KindStepNotFound, "deal has no NOC step", map[string]string{"step_key": StepKeyNOC})
	}
	if d.Steps[i].Status == domain.StepDone {
		return invalidTransition(d.Steps[i], "delay")
	}
	if err := e.blockStep(d, i, reason); err != nil {
		return err
	}
	adjust(&d.Metrics, 0, 0, nocDelayDays)
	e.audit(d, actorDeveloper, "NOC Delayed", fmt.Sprintf("%s blocked: %s", d.Steps[i].Title, reason), "clock")
	return nil
}

func (e *Engine) applyDocVerified(d *domain.Deal) error {
	for i := range d.Documents {
		doc := &d.Documents[i]
		if doc.Status != domain.DocPending {
			continue
		}
		doc.Status = domain.DocVerified
		adjust(&d.Metrics, docVerifiedCompliance, 0, 0)
		e.audit(d, actorAI, "Doc Verified", fmt.Sprintf("%s (%s) verified", doc.Filename, doc.Type), "check")
		return nil
	}
	return domain.Errorf(domain.KindDocumentNotFound, "doc_verified requires a pending document")
}

func (e *Engine) applyStepCompleted(d *domain.Deal) error {
	i := currentIndex(d)
	if i < 0 {
		return domain.Errorf(domain.KindInvalidTransition, "step_completed requires a step in progress")
	}
	if err := e.completeStep(d, i); err != nil {
		return err
	}
	e.audit(d, actorAI, "Step Completed", fmt.Sprintf("%s completed", d.Steps[i].Title), "check")
	return nil
}
