package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"deedflow/internal/domain"
)

func TestActorLabel(t *testing.T) {
	assert.Equal(t, "Layla", domain.Actor{ID: "u1", Name: "Layla"}.Label())
	assert.Equal(t, "u1", domain.Actor{ID: "u1"}.Label())
	assert.Equal(t, "System", domain.Actor{}.Label())
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, domain.DocNOC.Valid())
	assert.False(t, domain.DocType("visa").Valid())
	assert.True(t, domain.DocExpired.Valid())
	assert.False(t, domain.VerificationStatus("approved").Valid())
	assert.True(t, domain.RoleEscrowAgent.Valid())
	assert.False(t, domain.PartyRole("lawyer").Valid())
	assert.True(t, domain.ModeTokenized.Valid())
	assert.True(t, domain.PropertyMixedUse.Valid())
}
