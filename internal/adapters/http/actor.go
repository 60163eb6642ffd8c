package httpadapter

import (
	"fmt"
	"net/http"
	"strings"

	"deedflow/internal/domain"
	"deedflow/internal/requestctx"
	"deedflow/internal/services/access"
)

// Caller identity headers, set by the gateway in front of the service.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderOrgID     = "X-Org-ID"
	HeaderRole      = "X-Role"
)

// resolveActor reads the caller from the identity headers. Requests without
// an org or a known role are rejected.
func resolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := domain.Actor{
			ID:    strings.TrimSpace(r.Header.Get(HeaderActorID)),
			Name:  strings.TrimSpace(r.Header.Get(HeaderActorName)),
			OrgID: strings.TrimSpace(r.Header.Get(HeaderOrgID)),
			Role:  strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderRole))),
		}
		if actor.OrgID == "" || !access.ValidRole(actor.Role) {
			writeJSON(w, http.StatusUnauthorized, errorResponse("unauthenticated", "missing or invalid caller identity", nil))
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
	})
}

// require rejects callers whose role lacks the permission.
func (s *Server) require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := requestctx.ActorFromContext(r.Context())
			if !s.authz.HasPermission(actor, permission) {
				writeError(w, domain.WithMeta(domain.KindForbidden,
					fmt.Sprintf("role %s lacks %s", actor.Role, permission),
					map[string]string{"permission": permission}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkOrg rejects access to a deal owned by another org.
func checkOrg(r *http.Request, orgID string) error {
	actor, _ := requestctx.ActorFromContext(r.Context())
	if !access.SameOrg(actor, orgID) {
		return domain.Errorf(domain.KindForbidden, "deal belongs to another organisation")
	}
	return nil
}
