//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedflow/internal/domain"
	"deedflow/internal/ports"
	"deedflow/internal/workflow"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DEEDFLOW_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DEEDFLOW_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, url, PoolOptions{MaxConns: 4, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func newTestDeal(t *testing.T) domain.Deal {
	t.Helper()
	engine := workflow.New()
	d, err := engine.CreateDeal(workflow.CreateDealInput{
		OrgID:      "org-" + uuid.NewString(),
		Name:       "Integration Tower",
		SharePrice: decimal.RequireFromString("12500.50"),
	}, domain.Actor{Name: "tester"})
	require.NoError(t, err)
	return d
}

func TestDealsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDeals(db)
	engine := workflow.New()

	d := newTestDeal(t)
	require.NoError(t, repo.Create(ctx, &d))
	assert.Equal(t, int64(1), d.Version)

	doc, err := engine.AddDocument(&d, workflow.DocumentInput{Type: domain.DocKYC, Fields: map[string]string{"name": "A"}}, domain.Actor{Name: "tester"})
	require.NoError(t, err)
	require.NoError(t, engine.ApplyEvent(&d, workflow.Event{Kind: workflow.EventMissingDoc}))
	require.NoError(t, repo.Save(ctx, &d))
	assert.Equal(t, int64(2), d.Version)

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.True(t, d.SharePrice.Equal(got.SharePrice))
	assert.True(t, d.TotalValue.Equal(got.TotalValue))
	assert.Equal(t, d.Metrics, got.Metrics)
	assert.Equal(t, domain.DealOnHold, got.Status)
	require.Len(t, got.Steps, workflow.TotalSteps)
	assert.Equal(t, domain.StepBlocked, got.Steps[0].Status)
	assert.Equal(t, []domain.DocType{domain.DocKYC, domain.DocPassport}, got.Steps[0].RequiredDocs)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, doc.ID, got.Documents[0].ID)
	assert.Equal(t, "A", got.Documents[0].ExtractedFields["name"])
	assert.Len(t, got.Audit, len(d.Audit))
	assert.Len(t, got.Notifications, 1)

	docDeal, err := repo.DealIDForDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, docDeal)
}

func TestDealsSaveRejectsStaleVersion(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewDeals(db)

	d := newTestDeal(t)
	require.NoError(t, repo.Create(ctx, &d))
	stale := d.Clone()

	require.NoError(t, repo.Save(ctx, &d))
	err := repo.Save(ctx, &stale)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDealsNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewDeals(db)

	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDealNotFound)
	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrDealNotFound)
	_, err = repo.DealIDForDocument(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestJobsClaimInDealOrder(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	deals := NewDeals(db)
	jobs := NewJobs(db)

	d := newTestDeal(t)
	require.NoError(t, deals.Create(ctx, &d))
	ids, err := jobs.Enqueue(ctx, d.ID, []ports.EventJob{{Event: "risk_surge"}, {Event: "doc_verified"}})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	first, found, err := jobs.ClaimNextForDeal(ctx, d.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ids[0], first.ID)
	assert.Equal(t, ports.JobRunning, first.Status)
	assert.Equal(t, 1, first.Attempts)

	_, found, err = jobs.ClaimNextForDeal(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, found, "second job must wait for the running one")

	require.NoError(t, jobs.MarkFailed(ctx, first.ID, "boom"))
	failed, err := jobs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, ports.JobFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)

	second, found, err := jobs.ClaimNextForDeal(ctx, d.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ids[1], second.ID)
	require.NoError(t, jobs.MarkCompleted(ctx, second.ID))

	_, err = jobs.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
