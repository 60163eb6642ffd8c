package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedflow/internal/adapters/memory"
	"deedflow/internal/domain"
	"deedflow/internal/workflow"
)

func newDeal(t *testing.T, org, name string) domain.Deal {
	t.Helper()
	d, err := workflow.New().CreateDeal(workflow.CreateDealInput{OrgID: org, Name: name}, domain.Actor{})
	require.NoError(t, err)
	return d
}

func TestDealStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save bumps the version and rejects stale writes", func(t *testing.T) {
		s := memory.NewDealStore()
		d := newDeal(t, "org-1", "Jumeirah Gate")
		require.NoError(t, s.Create(ctx, &d))
		assert.Equal(t, int64(1), d.Version)

		a, err := s.Get(ctx, d.ID)
		require.NoError(t, err)
		b, err := s.Get(ctx, d.ID)
		require.NoError(t, err)

		a.Name = "first"
		require.NoError(t, s.Save(ctx, &a))
		assert.Equal(t, int64(2), a.Version)

		b.Name = "second"
		assert.ErrorIs(t, s.Save(ctx, &b), domain.ErrConflict)

		got, err := s.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
	})

	t.Run("stored deals are isolated from callers", func(t *testing.T) {
		s := memory.NewDealStore()
		d := newDeal(t, "org-1", "Jumeirah Gate")
		require.NoError(t, s.Create(ctx, &d))
		d.Steps[0].Title = "changed"

		got, err := s.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "KYC/AML Verification", got.Steps[0].Title)
	})

	t.Run("unknown ids", func(t *testing.T) {
		s := memory.NewDealStore()
		_, err := s.Get(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrDealNotFound)
		_, err = s.DealIDForDocument(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
		d := newDeal(t, "org-1", "ghost")
		assert.ErrorIs(t, s.Save(ctx, &d), domain.ErrDealNotFound)
	})

	t.Run("list is scoped to the org", func(t *testing.T) {
		s := memory.NewDealStore()
		for _, d := range []domain.Deal{newDeal(t, "org-1", "A"), newDeal(t, "org-1", "B"), newDeal(t, "org-2", "C")} {
			d := d
			require.NoError(t, s.Create(ctx, &d))
		}
		list, err := s.List(ctx, "org-1")
		require.NoError(t, err)
		assert.Len(t, list, 2)
		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("documents resolve to their deal", func(t *testing.T) {
		s := memory.NewDealStore()
		d := newDeal(t, "org-1", "A")
		doc, err := workflow.New().AddDocument(&d, workflow.DocumentInput{Type: domain.DocNOC}, domain.Actor{})
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, &d))

		id, err := s.DealIDForDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, d.ID, id)
	})
}
