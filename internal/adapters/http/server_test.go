package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "deedflow/internal/adapters/http"
	"deedflow/internal/adapters/memory"
	"deedflow/internal/api"
	"deedflow/internal/services/access"
	"deedflow/internal/services/deals"
	"deedflow/internal/services/extraction"
)

type caller struct {
	org  string
	role string
}

var (
	managerOrg1  = caller{org: "org-1", role: "MANAGER"}
	operatorOrg1 = caller{org: "org-1", role: "operator"}
	reviewerOrg1 = caller{org: "org-1", role: "REVIEWER"}
	managerOrg2  = caller{org: "org-2", role: "MANAGER"}
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	jobs := memory.NewJobQueue()
	svc := deals.New(memory.NewDealStore(), jobs, extraction.Demo{}, deals.WithDocGating(true))
	srv := httptest.NewServer(httpadapter.New(svc, jobs, access.NewRolePolicy()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, c caller, method, path string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	setCaller(req, c)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func setCaller(req *http.Request, c caller) {
	if c.org != "" {
		req.Header.Set(httpadapter.HeaderOrgID, c.org)
		req.Header.Set(httpadapter.HeaderRole, c.role)
		req.Header.Set(httpadapter.HeaderActorID, "u-"+c.role)
		req.Header.Set(httpadapter.HeaderActorName, "Test "+c.role)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createDeal(t *testing.T, srv *httptest.Server) api.Deal {
	t.Helper()
	resp := do(t, srv, managerOrg1, http.MethodPost, "/v1/deals", api.CreateDealRequest{Name: "Creek Vista"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.Deal](t, resp)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, caller{}, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[api.Health](t, resp).Status)
}

func TestRejectsMissingIdentity(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, caller{}, http.MethodGet, "/v1/deals", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, srv, caller{org: "org-1", role: "JANITOR"}, http.MethodGet, "/v1/deals", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateGetAndListDeals(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)

	assert.Equal(t, "org-1", d.OrgID)
	assert.Equal(t, "draft", d.Status)
	assert.Len(t, d.Steps, 8)
	assert.Equal(t, "in_progress", d.Steps[0].Status)
	assert.Equal(t, api.Metrics{ComplianceScore: 0, RiskScore: 30, EstTimeToCloseDays: 30}, d.Metrics)

	resp := do(t, srv, reviewerOrg1, http.MethodGet, "/v1/deals/"+d.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, d.ID, decode[api.Deal](t, resp).ID)

	resp = do(t, srv, reviewerOrg1, http.MethodGet, "/v1/deals", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]api.DealSummary](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, 8, list[0].TotalSteps)

	resp = do(t, srv, managerOrg2, http.MethodGet, "/v1/deals", nil)
	assert.Empty(t, decode[[]api.DealSummary](t, resp))
}

func TestCreateDealValidation(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, managerOrg1, http.MethodPost, "/v1/deals", api.CreateDealRequest{Name: "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation", decode[api.ErrorResponse](t, resp).Error.Kind)

	resp = do(t, srv, managerOrg1, http.MethodPost, "/v1/deals", map[string]any{"name": "x", "share_price": "99.999"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "share_price", decode[api.ErrorResponse](t, resp).Error.Meta["field"])

	resp = do(t, srv, managerOrg1, http.MethodPost, "/v1/deals", map[string]any{"name": "x", "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPermissionsAndOrgIsolation(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)

	resp := do(t, srv, reviewerOrg1, http.MethodPost, "/v1/deals", api.CreateDealRequest{Name: "Nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", decode[api.ErrorResponse](t, resp).Error.Kind)

	resp = do(t, srv, managerOrg2, http.MethodGet, "/v1/deals/"+d.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "deal_not_found", decode[api.ErrorResponse](t, resp).Error.Kind)
}

func TestApplyEvents(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)

	resp := do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/events", api.EventRequest{Type: "missing_doc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[api.Deal](t, resp)
	assert.Equal(t, "on_hold", got.Status)
	assert.Equal(t, "blocked", got.Steps[0].Status)
	assert.Equal(t, api.Metrics{ComplianceScore: 0, RiskScore: 50, EstTimeToCloseDays: 30}, got.Metrics)

	resp = do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/events", api.EventRequest{Type: "risk_surge"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 80, decode[api.Deal](t, resp).Metrics.RiskScore)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/recommendation", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HOLD", decode[api.Recommendation](t, resp).Recommendation)

	resp = do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/events", api.EventRequest{Type: "meteor_strike"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_event_type", decode[api.ErrorResponse](t, resp).Error.Kind)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notes := decode[[]api.Notification](t, resp)
	require.Len(t, notes, 1)

	resp = do(t, srv, reviewerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/notifications/"+notes[0].ID+"/read", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, decode[api.Notification](t, resp).ReadAt)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/notifications?unread=true", nil)
	assert.Empty(t, decode[[]api.Notification](t, resp))
}

func TestEnqueueAndDrainEvents(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)

	events := make([]api.EventRequest, 8)
	for i := range events {
		events[i] = api.EventRequest{Type: "step_completed"}
	}
	resp := do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/event-jobs", api.EnqueueEventsRequest{Events: events, Drain: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[api.EnqueueEventsResponse](t, resp)
	assert.Len(t, out.JobIDs, 8)
	assert.Equal(t, 8, out.Completed)
	assert.Zero(t, out.Failed)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID, nil)
	got := decode[api.Deal](t, resp)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, api.Metrics{ComplianceScore: 100, RiskScore: 30, EstTimeToCloseDays: 14}, got.Metrics)

	resp = do(t, srv, reviewerOrg1, http.MethodGet, "/v1/jobs/"+out.JobIDs[0], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decode[api.EventJob](t, resp).Status)

	resp = do(t, srv, managerOrg2, http.MethodGet, "/v1/jobs/"+out.JobIDs[0], nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEnqueueWithoutDrainIsAccepted(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)

	resp := do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/event-jobs",
		api.EnqueueEventsRequest{Events: []api.EventRequest{{Type: "risk_surge"}}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	out := decode[api.EnqueueEventsResponse](t, resp)
	require.Len(t, out.JobIDs, 1)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/jobs/"+out.JobIDs[0], nil)
	assert.Equal(t, "queued", decode[api.EventJob](t, resp).Status)

	resp = do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/event-jobs", api.EnqueueEventsRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocumentGatingFlow(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)
	first := d.Steps[0]

	resp := do(t, srv, operatorOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/steps/"+first.ID+"/advance", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[api.ErrorResponse](t, resp)
	assert.Equal(t, "invalid_transition", body.Error.Kind)
	assert.Contains(t, body.Error.Meta["missing"], "kyc_doc")

	for _, typ := range []string{"kyc_doc", "passport"} {
		resp = do(t, srv, operatorOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/documents", api.UploadDocumentRequest{Type: typ})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		doc := decode[api.Document](t, resp)
		assert.Equal(t, "pending", doc.Status)

		path := "/v1/deals/" + d.ID + "/documents/" + doc.ID + "/verification"
		resp = do(t, srv, operatorOrg1, http.MethodPut, path, api.VerificationRequest{Status: "verified"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "operators cannot review")

		resp = do(t, srv, managerOrg1, http.MethodPut, path, api.VerificationRequest{Status: "verified"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "verified", decode[api.Document](t, resp).Status)
	}

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/gate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gate := decode[api.Gate](t, resp)
	assert.True(t, gate.Steps[0].CanAdvance)
	assert.Equal(t, first.ID, gate.CurrentStep)

	resp = do(t, srv, operatorOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/steps/"+first.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", decode[api.Step](t, resp).Status)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/missing-docs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	missing := decode[api.MissingDocs](t, resp).MissingDocs
	assert.Equal(t, "title_deed", missing[0])
	assert.NotContains(t, missing, "kyc_doc")

	resp = do(t, srv, managerOrg1, http.MethodPut, "/v1/deals/"+d.ID+"/documents/nope/verification", api.VerificationRequest{Status: "verified"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStepBlockNotesAndAudit(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)
	step := d.Steps[1]
	base := "/v1/deals/" + d.ID + "/steps/" + step.ID

	resp := do(t, srv, operatorOrg1, http.MethodPost, base+"/block", api.BlockStepRequest{Reason: "Title deed under dispute"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "blocked", decode[api.Step](t, resp).Status)

	resp = do(t, srv, operatorOrg1, http.MethodPost, base+"/notes", api.NoteRequest{Note: "Waiting on land department"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Waiting on land department"}, decode[api.Step](t, resp).Notes)

	resp = do(t, srv, operatorOrg1, http.MethodPost, base+"/unblock", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "todo", decode[api.Step](t, resp).Status)

	resp = do(t, srv, operatorOrg1, http.MethodPost, base+"/unblock", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, reviewerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	audit := decode[[]api.AuditEntry](t, resp)
	require.Len(t, audit, 4)
	assert.Equal(t, "Step Unblocked", audit[0].Action)
	assert.Equal(t, "Deal Created", audit[3].Action)
}

func TestScanDocument(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", "title_deed"))
	part, err := mw.CreateFormFile("file", "deed.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/deals/"+d.ID+"/documents/scan", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setCaller(req, operatorOrg1)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	doc := decode[api.Document](t, resp)
	assert.Equal(t, "title_deed", doc.Type)
	assert.Equal(t, "deed.pdf", doc.Filename)
	assert.Equal(t, "pending", doc.Status)
	assert.InDelta(t, extraction.DemoConfidence, doc.Confidence, 1e-9)
	assert.NotEmpty(t, doc.ExtractedFields)
}

func TestPartiesAndRent(t *testing.T) {
	srv := newTestServer(t)
	d := createDeal(t, srv)
	share := func(v float64) *float64 { return &v }

	resp := do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/parties",
		api.PartyRequest{Name: "Omar", Role: "buyer", SharePercent: share(60), Email: "omar@example.ae"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, managerOrg1, http.MethodPost, "/v1/deals/"+d.ID+"/parties",
		api.PartyRequest{Name: "Lina", Role: "buyer", SharePercent: share(50), Email: "lina@example.ae"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/rent?monthly=10000", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	shares := decode[[]api.RentShare](t, resp)
	require.Len(t, shares, 1)
	assert.Equal(t, "6000", shares[0].Monthly.String())
	assert.Equal(t, "72000", shares[0].Annual.String())

	resp = do(t, srv, managerOrg1, http.MethodGet, "/v1/deals/"+d.ID+"/rent?monthly=-5", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
