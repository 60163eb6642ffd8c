package workflow_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deedflow/internal/domain"
	"deedflow/internal/workflow"
)

var operator = domain.Actor{ID: "u-1", Name: "Operator One", OrgID: "org-1", Role: "OPERATOR"}

// newEngine returns an engine with a fixed clock and sequential ids.
func newEngine() *workflow.Engine {
	n := 0
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &workflow.Engine{
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
	}
}

func newDeal(t *testing.T, e *workflow.Engine) domain.Deal {
	t.Helper()
	d, err := e.CreateDeal(workflow.CreateDealInput{OrgID: "org-1", Name: "Marina Heights Tower"}, operator)
	require.NoError(t, err)
	return d
}

func stepByKey(t *testing.T, d domain.Deal, key string) domain.Step {
	t.Helper()
	for _, s := range d.Steps {
		if s.Key == key {
			return s
		}
	}
	t.Fatalf("step %s not found", key)
	return domain.Step{}
}

func uploadVerified(t *testing.T, e *workflow.Engine, d *domain.Deal, types ...domain.DocType) {
	t.Helper()
	for _, typ := range types {
		doc, err := e.AddDocument(d, workflow.DocumentInput{Type: typ, Filename: string(typ) + ".pdf"}, operator)
		require.NoError(t, err)
		_, err = e.SetVerificationStatus(d, doc.ID, domain.DocVerified, operator)
		require.NoError(t, err)
	}
}

func apply(t *testing.T, e *workflow.Engine, d *domain.Deal, kinds ...workflow.EventKind) {
	t.Helper()
	for _, k := range kinds {
		require.NoError(t, e.ApplyEvent(d, workflow.Event{Kind: k}))
	}
}
