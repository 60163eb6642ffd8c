package ports

import (
	"context"

	"deedflow/internal/domain"
)

// DealRepository loads and stores whole deal aggregates. Create and Save
// stamp d.Version.
type DealRepository interface {
	Create(ctx context.Context, d *domain.Deal) error
	// Get returns a domain.ErrDealNotFound error for unknown ids.
	Get(ctx context.Context, dealID string) (domain.Deal, error)
	// Save persists d when its Version still matches the stored one and
	// bumps d.Version. A stale version yields domain.ErrConflict.
	Save(ctx context.Context, d *domain.Deal) error
	List(ctx context.Context, orgID string) ([]domain.DealSummary, error)
	DealIDForDocument(ctx context.Context, documentID string) (string, error)
}
