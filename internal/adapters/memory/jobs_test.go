package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedflow/internal/adapters/memory"
	"deedflow/internal/domain"
	"deedflow/internal/ports"
)

func TestJobQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("one running job per deal, in order", func(t *testing.T) {
		q := memory.NewJobQueue()
		ids, err := q.Enqueue(ctx, "d1", []ports.EventJob{{Event: "risk_surge"}, {Event: "noc_delay"}})
		require.NoError(t, err)
		_, err = q.Enqueue(ctx, "d2", []ports.EventJob{{Event: "approval_delay"}})
		require.NoError(t, err)

		first, found, err := q.ClaimNext(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ids[0], first.ID)
		assert.Equal(t, ports.JobRunning, first.Status)
		assert.Equal(t, 1, first.Attempts)

		second, found, err := q.ClaimNext(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "d2", second.DealID)

		_, found, err = q.ClaimNext(ctx)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, q.MarkCompleted(ctx, first.ID))
		third, found, err := q.ClaimNext(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ids[1], third.ID)
	})

	t.Run("claim for a single deal", func(t *testing.T) {
		q := memory.NewJobQueue()
		_, err := q.Enqueue(ctx, "d1", []ports.EventJob{{Event: "risk_surge"}})
		require.NoError(t, err)
		ids, err := q.Enqueue(ctx, "d2", []ports.EventJob{{Event: "approval_delay"}})
		require.NoError(t, err)

		job, found, err := q.ClaimNextForDeal(ctx, "d2")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ids[0], job.ID)
	})

	t.Run("failures are recorded", func(t *testing.T) {
		q := memory.NewJobQueue()
		ids, err := q.Enqueue(ctx, "d1", []ports.EventJob{{Event: "doc_verified"}})
		require.NoError(t, err)
		_, _, err = q.ClaimNext(ctx)
		require.NoError(t, err)
		require.NoError(t, q.MarkFailed(ctx, ids[0], "no pending document"))

		job, err := q.Get(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, ports.JobFailed, job.Status)
		assert.Equal(t, "no pending document", job.Error)
		assert.NotNil(t, job.FinishedAt)

		_, err = q.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
		assert.ErrorIs(t, q.MarkCompleted(ctx, "nope"), domain.ErrJobNotFound)
	})
}
