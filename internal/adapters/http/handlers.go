package httpadapter

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"deedflow/internal/api"
	"deedflow/internal/domain"
	"deedflow/internal/ports"
	"deedflow/internal/requestctx"
	"deedflow/internal/workers/eventrunner"
	"deedflow/internal/workflow"
)

// dealFor loads the deal named in the path and checks the caller's org.
func (s *Server) dealFor(w http.ResponseWriter, r *http.Request) (domain.Deal, bool) {
	d, err := s.deals.GetDeal(r.Context(), chi.URLParam(r, "dealID"))
	if err == nil {
		err = checkOrg(r, d.OrgID)
	}
	if err != nil {
		writeError(w, err)
		return domain.Deal{}, false
	}
	return d, true
}

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	actor, _ := requestctx.ActorFromContext(r.Context())
	deals, err := s.deals.ListDeals(r.Context(), actor.OrgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromSummaries(deals))
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var req api.CreateDealRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor, _ := requestctx.ActorFromContext(r.Context())
	in := req.ToCreateDealInput()
	in.OrgID = actor.OrgID
	d, err := s.deals.CreateDeal(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.FromDeal(d))
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, api.FromDeal(d))
}

func (s *Server) applyEvent(w http.ResponseWriter, r *http.Request) {
	var req api.EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	kind, err := workflow.ParseEventKind(req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.deals.ApplyEvent(r.Context(), d.ID, workflow.Event{Kind: kind, Reason: req.Reason})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromDeal(updated))
}

func (s *Server) enqueueEvents(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueEventsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Events) == 0 {
		badRequest(w, "at least one event is required")
		return
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	events := make([]workflow.Event, 0, len(req.Events))
	for _, e := range req.Events {
		kind, err := workflow.ParseEventKind(e.Type)
		if err != nil {
			writeError(w, err)
			return
		}
		events = append(events, workflow.Event{Kind: kind, Reason: e.Reason})
	}
	ids, err := s.deals.EnqueueEvents(r.Context(), d.ID, events)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := api.EnqueueEventsResponse{JobIDs: ids}
	if !req.Drain {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	res, err := eventrunner.Drain(r.Context(), s.jobs, s.processor, d.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Completed, resp.Failed = res.Completed, res.Failed
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deals.GetEventJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.deals.GetDeal(r.Context(), job.DealID)
	if err == nil {
		err = checkOrg(r, d.OrgID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromJob(job))
}

func (s *Server) addParty(w http.ResponseWriter, r *http.Request) {
	var req api.PartyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	p, err := s.deals.AddParty(r.Context(), d.ID, req.ToPartyInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.FromParty(p))
}

func (s *Server) rentDistribution(w http.ResponseWriter, r *http.Request) {
	monthly, err := decimal.NewFromString(r.URL.Query().Get("monthly"))
	if err != nil || monthly.IsNegative() {
		badRequest(w, "monthly must be a non-negative amount")
		return
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, api.FromRentShares(workflow.RentDistribution(d, monthly)))
}

// stepOp runs one step operation and writes the resulting step.
func (s *Server) stepOp(w http.ResponseWriter, r *http.Request, op func(dealID, stepID string) (domain.Step, error)) {
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	step, err := op(d.ID, chi.URLParam(r, "stepID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromStep(step))
}

func (s *Server) advanceStep(w http.ResponseWriter, r *http.Request) {
	s.stepOp(w, r, func(dealID, stepID string) (domain.Step, error) {
		return s.deals.AdvanceStep(r.Context(), dealID, stepID)
	})
}

func (s *Server) blockStep(w http.ResponseWriter, r *http.Request) {
	var req api.BlockStepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.stepOp(w, r, func(dealID, stepID string) (domain.Step, error) {
		return s.deals.BlockStep(r.Context(), dealID, stepID, req.Reason)
	})
}

func (s *Server) unblockStep(w http.ResponseWriter, r *http.Request) {
	s.stepOp(w, r, func(dealID, stepID string) (domain.Step, error) {
		return s.deals.UnblockStep(r.Context(), dealID, stepID)
	})
}

func (s *Server) addStepNote(w http.ResponseWriter, r *http.Request) {
	var req api.NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.stepOp(w, r, func(dealID, stepID string) (domain.Step, error) {
		return s.deals.AddStepNote(r.Context(), dealID, stepID, req.Note)
	})
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	var req api.UploadDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	doc, err := s.deals.UploadDocument(r.Context(), d.ID, workflow.DocumentInput{
		Type:     domain.DocType(req.Type),
		Filename: req.Filename,
		Fields:   req.Fields,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.FromDocument(doc))
}

// scanDocument accepts a multipart form with a "file" part and a "type" field.
func (s *Server) scanDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScanUpload)
	if err := r.ParseMultipartForm(maxScanUpload); err != nil {
		badRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, fmt.Sprintf("read upload: %v", err))
		return
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	doc, err := s.deals.ScanDocument(r.Context(), d.ID, ports.ScanRequest{
		Type:        domain.DocType(r.FormValue("type")),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.FromDocument(doc))
}

func (s *Server) setVerification(w http.ResponseWriter, r *http.Request) {
	var req api.VerificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	documentID := chi.URLParam(r, "documentID")
	if !workflow.HasDocument(d, documentID) {
		writeError(w, domain.WithMeta(domain.KindDocumentNotFound, fmt.Sprintf("document %s not found", documentID), map[string]string{"document_id": documentID}))
		return
	}
	doc, err := s.deals.SetDocumentVerification(r.Context(), documentID, domain.VerificationStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromDocument(doc))
}

func (s *Server) recommendation(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	insight, err := s.deals.GetRecommendation(r.Context(), d.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromInsight(insight))
}

func (s *Server) missingDocs(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	missing, err := s.deals.GetMissingRequiredDocs(r.Context(), d.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MissingDocs{MissingDocs: api.DocTypes(missing)})
}

func (s *Server) gate(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	g, err := s.deals.GetGate(r.Context(), d.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromGate(g))
}

func (s *Server) auditLog(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	entries, err := s.deals.GetAuditLog(r.Context(), d.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromAudit(entries))
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	unread := false
	if v := r.URL.Query().Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, "unread must be a boolean")
			return
		}
		unread = b
	}
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	notes, err := s.deals.ListNotifications(r.Context(), d.ID, unread)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromNotifications(notes))
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dealFor(w, r)
	if !ok {
		return
	}
	n, err := s.deals.MarkNotificationRead(r.Context(), d.ID, chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromNotification(n))
}
