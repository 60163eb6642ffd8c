// Package deals is the application service over the workflow engine. It
// loads a deal, applies one engine operation under a per-deal lock and saves
// the result.
package deals

import (
	"context"
	"fmt"
	"log"
	"strings"

	"deedflow/internal/domain"
	"deedflow/internal/ports"
	"deedflow/internal/requestctx"
	"deedflow/internal/workflow"
)

// minValidFieldRatio rejects scans where most expected fields came back empty.
const minValidFieldRatio = 0.3

var systemActor = domain.Actor{ID: "system", Name: "System"}

type Service struct {
	deals     ports.DealRepository
	jobs      ports.JobRepository
	extractor ports.Extractor
	engine    *workflow.Engine
	gating    bool
	locks     keyedMutex
}

type Option func(*Service)

// WithEngine replaces the default engine, e.g. to fix the clock in tests.
func WithEngine(e *workflow.Engine) Option { return func(s *Service) { s.engine = e } }

// WithDocGating controls whether AdvanceStep requires verified documents.
func WithDocGating(on bool) Option { return func(s *Service) { s.gating = on } }

func New(deals ports.DealRepository, jobs ports.JobRepository, extractor ports.Extractor, opts ...Option) *Service {
	s := &Service{deals: deals, jobs: jobs, extractor: extractor, engine: workflow.New(), gating: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.Deals = (*Service)(nil)

func actorFrom(ctx context.Context) domain.Actor {
	if a, ok := requestctx.ActorFromContext(ctx); ok {
		return a
	}
	return systemActor
}

// update runs fn on the freshly loaded deal under the deal's lock and saves
// the deal when fn succeeds.
func (s *Service) update(ctx context.Context, dealID string, fn func(d *domain.Deal) error) (domain.Deal, error) {
	unlock := s.locks.Lock(dealID)
	defer unlock()

	d, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return domain.Deal{}, err
	}
	if err := fn(&d); err != nil {
		return domain.Deal{}, err
	}
	if err := s.deals.Save(ctx, &d); err != nil {
		return domain.Deal{}, fmt.Errorf("save deal %s: %w", dealID, err)
	}
	return d, nil
}

func (s *Service) CreateDeal(ctx context.Context, in workflow.CreateDealInput) (domain.Deal, error) {
	actor := actorFrom(ctx)
	if in.OrgID == "" {
		in.OrgID = actor.OrgID
	}
	d, err := s.engine.CreateDeal(in, actor)
	if err != nil {
		return domain.Deal{}, err
	}
	if err := s.deals.Create(ctx, &d); err != nil {
		return domain.Deal{}, fmt.Errorf("create deal: %w", err)
	}
	return d, nil
}

func (s *Service) GetDeal(ctx context.Context, dealID string) (domain.Deal, error) {
	return s.deals.Get(ctx, dealID)
}

func (s *Service) ListDeals(ctx context.Context, orgID string) ([]domain.DealSummary, error) {
	return s.deals.List(ctx, orgID)
}

func (s *Service) ApplyEvent(ctx context.Context, dealID string, ev workflow.Event) (domain.Deal, error) {
	return s.update(ctx, dealID, func(d *domain.Deal) error {
		return s.engine.ApplyEvent(d, ev)
	})
}

// EnqueueEvents queues events for background playback in the given order.
func (s *Service) EnqueueEvents(ctx context.Context, dealID string, events []workflow.Event) ([]string, error) {
	if len(events) == 0 {
		return nil, domain.Errorf(domain.KindValidation, "at least one event is required")
	}
	if _, err := s.deals.Get(ctx, dealID); err != nil {
		return nil, err
	}
	jobs := make([]ports.EventJob, len(events))
	for i, ev := range events {
		if _, err := workflow.ParseEventKind(ev.Kind.String()); err != nil {
			return nil, err
		}
		jobs[i] = ports.EventJob{Event: ev.Kind.String(), Reason: ev.Reason}
	}
	ids, err := s.jobs.Enqueue(ctx, dealID, jobs)
	if err != nil {
		return nil, fmt.Errorf("enqueue events: %w", err)
	}
	log.Printf("deal %s: queued %d event(s)", dealID, len(ids))
	return ids, nil
}

func (s *Service) GetEventJob(ctx context.Context, jobID string) (ports.EventJob, error) {
	return s.jobs.Get(ctx, jobID)
}

// AdvanceStep completes a step for an operator. With gating on, every
// required document type must have a verified document first.
func (s *Service) AdvanceStep(ctx context.Context, dealID, stepID string) (domain.Step, error) {
	var out domain.Step
	_, err := s.update(ctx, dealID, func(d *domain.Deal) error {
		if s.gating {
			step, err := workflow.FindStep(*d, stepID)
			if err != nil {
				return err
			}
			if missing := workflow.MissingDocsForStep(step, *d); len(missing) > 0 {
				return domain.WithMeta(domain.KindInvalidTransition,
					fmt.Sprintf("%s is missing verified documents: %s", step.Title, joinTypes(missing)),
					map[string]string{"step_id": step.ID, "missing": joinTypes(missing)})
			}
		}
		step, err := s.engine.AdvanceStep(d, stepID, actorFrom(ctx))
		out = step
		return err
	})
	return out, err
}

func (s *Service) BlockStep(ctx context.Context, dealID, stepID, reason string) (domain.Step, error) {
	var out domain.Step
	_, err := s.update(ctx, dealID, func(d *domain.Deal) error {
		step, err := s.engine.BlockStep(d, stepID, reason, actorFrom(ctx))
		out = step
		return err
	})
	return out, err
}

func (s *Service) UnblockStep(ctx context.Context, dealID, stepID string) (domain.Step, error) {
	var out domain.Step
	_, err := s.update(ctx, dealID, func(d *domain.Deal) error {
		step, err := s.engine.UnblockStep(d, stepID, actorFrom(ctx))
		out = step
		return err
	})
	return out, err
}

func (s *Service) AddStepNote(ctx context.Context, dealID, stepID, note string) (domain.Step, error) {
	var out domain.Step
	_, err := s.update(ctx, dealID, func(d *domain.Deal) error {
		step, err := s.engine.AddStepNote(d, stepID, note, actorFrom(ctx))
		out = step
		return err
	})
	return out, err
}

func (s *Service) AddParty(ctx context.Context, dealID string, in workflow.PartyInput) (domain.Party, error) {
	var out domain.Party
	_, err := s.update(ctx, dealID, func(d *domain.Deal) error {
		p, err := s.engine.AddParty(d, in, actorFrom(ctx))
		out = p
		return err
	})
	return out, err
}

func joinTypes(types []domain.DocType) string {
	labels := make([]string, len(types))
	for i, t := range types {
		labels[i] = string(t)
	}
	return strings.Join(labels, ", ")
}
