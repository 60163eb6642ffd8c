// Package client is a Go client for the DeedFlow HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"deedflow/internal/api"
)

// Identity is sent with every request in the caller identity headers.
type Identity struct {
	ActorID string
	Name    string
	OrgID   string
	Role    string
}

type Client struct {
	http *resty.Client
}

func New(baseURL string, id Identity, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("X-Actor-ID", id.ActorID).
		SetHeader("X-Actor-Name", id.Name).
		SetHeader("X-Org-ID", id.OrgID).
		SetHeader("X-Role", id.Role)
	return &Client{http: c}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Body   api.ErrorBody
}

func (e *APIError) Error() string {
	if e.Body.Message == "" {
		return fmt.Sprintf("deedflow: HTTP %d", e.Status)
	}
	return fmt.Sprintf("deedflow: %s (%s, HTTP %d)", e.Body.Message, e.Body.Kind, e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var apiErr api.ErrorResponse
	req := c.http.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: apiErr.Error}
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) ListDeals(ctx context.Context) ([]api.DealSummary, error) {
	var out []api.DealSummary
	err := c.do(ctx, http.MethodGet, "/v1/deals", nil, &out)
	return out, err
}

func (c *Client) GetDeal(ctx context.Context, dealID string) (api.Deal, error) {
	var out api.Deal
	err := c.do(ctx, http.MethodGet, "/v1/deals/"+dealID, nil, &out)
	return out, err
}

func (c *Client) CreateDeal(ctx context.Context, req api.CreateDealRequest) (api.Deal, error) {
	var out api.Deal
	err := c.do(ctx, http.MethodPost, "/v1/deals", req, &out)
	return out, err
}

func (c *Client) ApplyEvent(ctx context.Context, dealID string, ev api.EventRequest) (api.Deal, error) {
	var out api.Deal
	err := c.do(ctx, http.MethodPost, "/v1/deals/"+dealID+"/events", ev, &out)
	return out, err
}

func (c *Client) EnqueueEvents(ctx context.Context, dealID string, req api.EnqueueEventsRequest) (api.EnqueueEventsResponse, error) {
	var out api.EnqueueEventsResponse
	err := c.do(ctx, http.MethodPost, "/v1/deals/"+dealID+"/event-jobs", req, &out)
	return out, err
}

func (c *Client) GetJob(ctx context.Context, jobID string) (api.EventJob, error) {
	var out api.EventJob
	err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &out)
	return out, err
}

func (c *Client) AdvanceStep(ctx context.Context, dealID, stepID string) (api.Step, error) {
	var out api.Step
	err := c.do(ctx, http.MethodPost, "/v1/deals/"+dealID+"/steps/"+stepID+"/advance", nil, &out)
	return out, err
}

func (c *Client) BlockStep(ctx context.Context, dealID, stepID, reason string) (api.Step, error) {
	var out api.Step
	err := c.do(ctx, http.MethodPost, "/v1/deals/"+dealID+"/steps/"+stepID+"/block", api.BlockStepRequest{Reason: reason}, &out)
	return out, err
}

func (c *Client) UploadDocument(ctx context.Context, dealID string, req api.UploadDocumentRequest) (api.Document, error) {
	var out api.Document
	err := c.do(ctx, http.MethodPost, "/v1/deals/"+dealID+"/documents", req, &out)
	return out, err
}

func (c *Client) SetVerification(ctx context.Context, dealID, documentID, status string) (api.Document, error) {
	var out api.Document
	err := c.do(ctx, http.MethodPut, "/v1/deals/"+dealID+"/documents/"+documentID+"/verification", api.VerificationRequest{Status: status}, &out)
	return out, err
}

func (c *Client) Recommendation(ctx context.Context, dealID string) (api.Recommendation, error) {
	var out api.Recommendation
	err := c.do(ctx, http.MethodGet, "/v1/deals/"+dealID+"/recommendation", nil, &out)
	return out, err
}

func (c *Client) Gate(ctx context.Context, dealID string) (api.Gate, error) {
	var out api.Gate
	err := c.do(ctx, http.MethodGet, "/v1/deals/"+dealID+"/gate", nil, &out)
	return out, err
}

func (c *Client) AuditLog(ctx context.Context, dealID string) ([]api.AuditEntry, error) {
	var out []api.AuditEntry
	err := c.do(ctx, http.MethodGet, "/v1/deals/"+dealID+"/audit", nil, &out)
	return out, err
}
