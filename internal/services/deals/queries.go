package deals

import (
	"context"

	"deedflow/internal/domain"
	"deedflow/internal/workflow"
)

// Reads evaluate a single loaded snapshot and never write.

func (s *Service) GetRecommendation(ctx context.Context, dealID string) (domain.Insight, error) {
	d, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return domain.Insight{}, err
	}
	return workflow.Evaluate(d), nil
}

func (s *Service) GetMissingRequiredDocs(ctx context.Context, dealID string) ([]domain.DocType, error) {
	d, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return workflow.MissingRequiredDocs(d), nil
}

func (s *Service) GetGate(ctx context.Context, dealID string) (workflow.Gate, error) {
	d, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return workflow.Gate{}, err
	}
	return workflow.EvaluateGate(d), nil
}

func (s *Service) GetAuditLog(ctx context.Context, dealID string) ([]domain.AuditEntry, error) {
	d, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return workflow.AuditLog(d), nil
}

func (s *Service) ListNotifications(ctx context.Context, dealID string, unreadOnly bool) ([]domain.Notification, error) {
	d, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return workflow.Notifications(d, unreadOnly), nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, dealID, notificationID string) (domain.Notification, error) {
	var out domain.Notification
	_, err := s.update(ctx, dealID, func(d *domain.Deal) error {
		n, err := s.engine.MarkNotificationRead(d, notificationID)
		out = n
		return err
	})
	return out, err
}
