package ports

import (
	"context"

	"deedflow/internal/domain"
	"deedflow/internal/workflow"
)

// Deals is the application surface over the workflow engine. The calling
// actor is read from the request context.
type Deals interface {
	CreateDeal(ctx context.Context, in workflow.CreateDealInput) (domain.Deal, error)
	GetDeal(ctx context.Context, dealID string) (domain.Deal, error)
	ListDeals(ctx context.Context, orgID string) ([]domain.DealSummary, error)

	ApplyEvent(ctx context.Context, dealID string, ev workflow.Event) (domain.Deal, error)
	EnqueueEvents(ctx context.Context, dealID string, events []workflow.Event) ([]string, error)
	GetEventJob(ctx context.Context, jobID string) (EventJob, error)

	AdvanceStep(ctx context.Context, dealID, stepID string) (domain.Step, error)
	BlockStep(ctx context.Context, dealID, stepID, reason string) (domain.Step, error)
	UnblockStep(ctx context.Context, dealID, stepID string) (domain.Step, error)
	AddStepNote(ctx context.Context, dealID, stepID, note string) (domain.Step, error)

	UploadDocument(ctx context.Context, dealID string, in workflow.DocumentInput) (domain.Document, error)
	ScanDocument(ctx context.Context, dealID string, req ScanRequest) (domain.Document, error)
	SetDocumentVerification(ctx context.Context, documentID string, status domain.VerificationStatus) (domain.Document, error)

	AddParty(ctx context.Context, dealID string, in workflow.PartyInput) (domain.Party, error)

	GetRecommendation(ctx context.Context, dealID string) (domain.Insight, error)
	GetMissingRequiredDocs(ctx context.Context, dealID string) ([]domain.DocType, error)
	GetGate(ctx context.Context, dealID string) (workflow.Gate, error)
	GetAuditLog(ctx context.Context, dealID string) ([]domain.AuditEntry, error)

	ListNotifications(ctx context.Context, dealID string, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, dealID, notificationID string) (domain.Notification, error)
}

// ScanRequest is an uploaded file to run through field extraction.
type ScanRequest struct {
	Type        domain.DocType
	Filename    string
	ContentType string
	Content     []byte
}

type ExtractionRequest struct {
	DocType     domain.DocType
	Filename    string
	ContentType string
	Content     []byte
}

type Extraction struct {
	Fields     map[string]string
	Confidence float64
}

// Extractor turns a document file into structured fields.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (Extraction, error)
}

// Authorizer checks role permissions.
type Authorizer interface {
	HasPermission(actor domain.Actor, permission string) bool
}
