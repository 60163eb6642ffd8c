package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedflow/internal/domain"
	"deedflow/internal/workflow"
)

func TestMissingRequiredDocs(t *testing.T) {
	t.Run("union in step order", func(t *testing.T) {
		d := newDeal(t, newEngine())
		assert.Equal(t, []domain.DocType{
			domain.DocKYC, domain.DocPassport, domain.DocTitleDeed, domain.DocNOC,
			domain.DocValuationReport, domain.DocEscrowAgreement, domain.DocSPA,
		}, workflow.MissingRequiredDocs(d))
	})

	t.Run("done steps no longer require documents", func(t *testing.T) {
		e := newEngine()
		d := newDeal(t, e)
		_, err := e.AdvanceStep(&d, d.Steps[0].ID, operator)
		require.NoError(t, err)
		missing := workflow.MissingRequiredDocs(d)
		assert.NotContains(t, missing, domain.DocKYC)
		assert.NotContains(t, missing, domain.DocPassport)
		assert.Equal(t, domain.DocTitleDeed, missing[0])
	})

	t.Run("empty iff every open requirement is verified", func(t *testing.T) {
		e := newEngine()
		d := newDeal(t, e)
		uploadVerified(t, e, &d, domain.DocKYC, domain.DocPassport, domain.DocTitleDeed, domain.DocNOC, domain.DocValuationReport, domain.DocEscrowAgreement)
		assert.Equal(t, []domain.DocType{domain.DocSPA}, workflow.MissingRequiredDocs(d))

		uploadVerified(t, e, &d, domain.DocSPA)
		assert.Empty(t, workflow.MissingRequiredDocs(d))
	})

	t.Run("a pending upload does not count", func(t *testing.T) {
		e := newEngine()
		d := newDeal(t, e)
		_, err := e.AddDocument(&d, workflow.DocumentInput{Type: domain.DocKYC}, operator)
		require.NoError(t, err)
		assert.Contains(t, workflow.MissingRequiredDocs(d), domain.DocKYC)
	})
}

func TestCanAdvance(t *testing.T) {
	e := newEngine()
	d := newDeal(t, e)
	kyc := stepByKey(t, d, "kyc_aml")
	assert.False(t, workflow.CanAdvance(kyc, d))

	uploadVerified(t, e, &d, domain.DocKYC)
	assert.False(t, workflow.CanAdvance(kyc, d))
	uploadVerified(t, e, &d, domain.DocPassport)
	assert.True(t, workflow.CanAdvance(kyc, d))

	assert.True(t, workflow.CanAdvance(stepByKey(t, d, "issuance"), d))
	// checking eligibility never moves a step
	assert.Equal(t, domain.StepInProgress, stepByKey(t, d, "kyc_aml").Status)
}

func TestEvaluateGate(t *testing.T) {
	e := newEngine()
	d := newDeal(t, e)
	_, err := e.BlockStep(&d, stepByKey(t, d, "noc").ID, "developer backlog", operator)
	require.NoError(t, err)
	uploadVerified(t, e, &d, domain.DocTitleDeed)

	g := workflow.EvaluateGate(d)
	require.Len(t, g.Steps, 8)
	assert.Equal(t, d.Steps[0].ID, g.Current)
	assert.Equal(t, []string{stepByKey(t, d, "noc").ID}, g.BlockedSteps)
	assert.True(t, g.Steps[1].CanAdvance)
	assert.False(t, g.Steps[2].CanAdvance)
	assert.Equal(t, []domain.DocType{domain.DocNOC}, g.Steps[2].MissingDocs)
	assert.Len(t, g.MissingDocs, 6)
	assert.Equal(t, 7, g.BlockerCount)
	assert.Equal(t, g.BlockerCount, workflow.BlockerCount(d))
}
