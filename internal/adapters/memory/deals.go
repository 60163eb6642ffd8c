// Package memory holds in-process adapters used when no database is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"deedflow/internal/domain"
	"deedflow/internal/workflow"
)

type DealStore struct {
	mu    sync.RWMutex
	deals map[string]domain.Deal
}

func NewDealStore() *DealStore {
	return &DealStore{deals: make(map[string]domain.Deal)}
}

func (s *DealStore) Create(ctx context.Context, d *domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deals[d.ID]; ok {
		return domain.Errorf(domain.KindConflict, "deal %s already exists", d.ID)
	}
	d.Version = 1
	s.deals[d.ID] = d.Clone()
	return nil
}

func (s *DealStore) Get(ctx context.Context, dealID string) (domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deals[dealID]
	if !ok {
		return domain.Deal{}, notFound(dealID)
	}
	return d.Clone(), nil
}

func (s *DealStore) Save(ctx context.Context, d *domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.deals[d.ID]
	if !ok {
		return notFound(d.ID)
	}
	if cur.Version != d.Version {
		return domain.WithMeta(domain.KindConflict,
			fmt.Sprintf("deal %s is at version %d, not %d", d.ID, cur.Version, d.Version),
			map[string]string{"deal_id": d.ID})
	}
	d.Version++
	s.deals[d.ID] = d.Clone()
	return nil
}

// List returns summaries for one org, most recently updated first. An empty
// org id lists every deal.
func (s *DealStore) List(ctx context.Context, orgID string) ([]domain.DealSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.DealSummary{}
	for _, d := range s.deals {
		if orgID != "" && d.OrgID != orgID {
			continue
		}
		out = append(out, workflow.Summarize(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *DealStore) DealIDForDocument(ctx context.Context, documentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, d := range s.deals {
		if workflow.HasDocument(d, documentID) {
			return id, nil
		}
	}
	return "", domain.WithMeta(domain.KindDocumentNotFound, fmt.Sprintf("document %s not found", documentID), map[string]string{"document_id": documentID})
}

func notFound(dealID string) error {
	return domain.WithMeta(domain.KindDealNotFound, fmt.Sprintf("deal %s not found", dealID), map[string]string{"deal_id": dealID})
}
