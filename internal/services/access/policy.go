// Package access maps roles to permissions and checks org scope.
package access

import (
	"strings"

	"deedflow/internal/domain"
)

type Permission = string

const (
	DealsRead       Permission = "deals:read"
	DealsWrite      Permission = "deals:write"
	StepsUpdate     Permission = "steps:update"
	DocumentsUpload Permission = "documents:upload"
	DocumentsReview Permission = "documents:review"
	AuditRead       Permission = "audit:read"
	ReviewRead      Permission = "review:read"
)

const (
	RoleOperator = "OPERATOR"
	RoleManager  = "MANAGER"
	RoleReviewer = "REVIEWER"
)

// RolePolicy is a static role to permission table.
type RolePolicy struct {
	grants map[string]map[Permission]bool
}

func NewRolePolicy() *RolePolicy {
	return &RolePolicy{grants: map[string]map[Permission]bool{
		RoleOperator: set(DealsRead, DealsWrite, StepsUpdate, DocumentsUpload, AuditRead),
		RoleManager:  set(DealsRead, DealsWrite, StepsUpdate, DocumentsUpload, DocumentsReview, AuditRead, ReviewRead),
		RoleReviewer: set(DealsRead, AuditRead, ReviewRead),
	}}
}

func set(perms ...Permission) map[Permission]bool {
	out := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		out[p] = true
	}
	return out
}

// HasPermission reports whether the actor's role grants permission. Role
// names are matched case-insensitively; unknown roles grant nothing.
func (p *RolePolicy) HasPermission(actor domain.Actor, permission string) bool {
	return p.grants[strings.ToUpper(strings.TrimSpace(actor.Role))][permission]
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case RoleOperator, RoleManager, RoleReviewer:
		return true
	}
	return false
}

// SameOrg reports whether an actor may see a resource owned by orgID.
// Actors without an org see nothing.
func SameOrg(actor domain.Actor, orgID string) bool {
	return actor.OrgID != "" && actor.OrgID == orgID
}
