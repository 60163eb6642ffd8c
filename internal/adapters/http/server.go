// Package httpadapter exposes the deals service over a JSON HTTP API.
package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"deedflow/internal/api"
	"deedflow/internal/ports"
	"deedflow/internal/services/access"
	"deedflow/internal/workers/eventrunner"
)

const maxScanUpload = 10 << 20

type Server struct {
	deals     ports.Deals
	jobs      ports.JobRepository
	processor eventrunner.EventProcessor
	authz     ports.Authorizer
}

func New(deals ports.Deals, jobs ports.JobRepository, authz ports.Authorizer) *Server {
	return &Server{
		deals:     deals,
		jobs:      jobs,
		processor: eventrunner.DealProcessor{Deals: deals},
		authz:     authz,
	}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(resolveActor)

		r.With(s.require(access.DealsRead)).Get("/deals", s.listDeals)
		r.With(s.require(access.DealsWrite)).Post("/deals", s.createDeal)
		r.With(s.require(access.DealsRead)).Get("/jobs/{jobID}", s.getJob)

		r.Route("/deals/{dealID}", func(r chi.Router) {
			r.With(s.require(access.DealsRead)).Get("/", s.getDeal)
			r.With(s.require(access.DealsWrite)).Post("/events", s.applyEvent)
			r.With(s.require(access.DealsWrite)).Post("/event-jobs", s.enqueueEvents)
			r.With(s.require(access.DealsWrite)).Post("/parties", s.addParty)
			r.With(s.require(access.DealsRead)).Get("/rent", s.rentDistribution)

			r.Route("/steps/{stepID}", func(r chi.Router) {
				r.Use(s.require(access.StepsUpdate))
				r.Post("/advance", s.advanceStep)
				r.Post("/block", s.blockStep)
				r.Post("/unblock", s.unblockStep)
				r.Post("/notes", s.addStepNote)
			})

			r.With(s.require(access.DocumentsUpload)).Post("/documents", s.uploadDocument)
			r.With(s.require(access.DocumentsUpload)).Post("/documents/scan", s.scanDocument)
			r.With(s.require(access.DocumentsReview)).Put("/documents/{documentID}/verification", s.setVerification)

			r.With(s.require(access.DealsRead)).Get("/recommendation", s.recommendation)
			r.With(s.require(access.DealsRead)).Get("/missing-docs", s.missingDocs)
			r.With(s.require(access.DealsRead)).Get("/gate", s.gate)
			r.With(s.require(access.AuditRead)).Get("/audit", s.auditLog)
			r.With(s.require(access.DealsRead)).Get("/notifications", s.listNotifications)
			r.With(s.require(access.DealsRead)).Post("/notifications/{notificationID}/read", s.markNotificationRead)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Health{Status: "ok"})
}
