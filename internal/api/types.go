// Package api holds the JSON wire types shared by the HTTP adapter and the
// Go client.
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"deedflow/internal/domain"
	"deedflow/internal/ports"
	"deedflow/internal/workflow"
)

type Health struct {
	Status string `json:"status"`
}

type ErrorBody struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type Metrics struct {
	ComplianceScore    int `json:"compliance_score"`
	RiskScore          int `json:"risk_score"`
	EstTimeToCloseDays int `json:"est_time_to_close_days"`
}

type Party struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	SharePercent *float64 `json:"share_percent,omitempty"`
	KYCStatus    string   `json:"kyc_status"`
	Email        string   `json:"email"`
}

type Step struct {
	ID           string     `json:"id"`
	Key          string     `json:"key"`
	Title        string     `json:"title"`
	LocalTitle   string     `json:"local_title,omitempty"`
	Status       string     `json:"status"`
	Order        int        `json:"order"`
	RequiredDocs []string   `json:"required_docs"`
	Notes        []string   `json:"notes,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	BlockReason  string     `json:"block_reason,omitempty"`
}

type Document struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Filename        string            `json:"filename"`
	UploadedAt      time.Time         `json:"uploaded_at"`
	ExtractedFields map[string]string `json:"extracted_fields"`
	Status          string            `json:"status"`
	UploadedBy      string            `json:"uploaded_by"`
	Confidence      float64           `json:"confidence,omitempty"`
}

type Deal struct {
	ID               string          `json:"id"`
	OrgID            string          `json:"org_id"`
	Name             string          `json:"name"`
	LocalName        string          `json:"local_name,omitempty"`
	City             string          `json:"city"`
	PropertyType     string          `json:"property_type"`
	Address          string          `json:"address,omitempty"`
	LocalAddress     string          `json:"local_address,omitempty"`
	TokenizationMode string          `json:"tokenization_mode"`
	TotalShares      int64           `json:"total_shares"`
	SharePrice       decimal.Decimal `json:"share_price"`
	Currency         string          `json:"currency"`
	TotalValue       decimal.Decimal `json:"total_value"`
	Status           string          `json:"status"`
	Metrics          Metrics         `json:"metrics"`
	Parties          []Party         `json:"parties"`
	Steps            []Step          `json:"steps"`
	Documents        []Document      `json:"documents"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int64           `json:"version"`
}

type DealSummary struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	City            string          `json:"city"`
	Status          string          `json:"status"`
	TotalValue      decimal.Decimal `json:"total_value"`
	ComplianceScore int             `json:"compliance_score"`
	RiskScore       int             `json:"risk_score"`
	StepsDone       int             `json:"steps_done"`
	TotalSteps      int             `json:"total_steps"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type AuditEntry struct {
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
	Icon   string    `json:"icon,omitempty"`
}

type Notification struct {
	ID        string     `json:"id"`
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

type SuggestedAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

type Recommendation struct {
	Recommendation string            `json:"recommendation"`
	Rationale      []string          `json:"rationale"`
	Actions        []SuggestedAction `json:"actions"`
}

type StepGate struct {
	StepID      string   `json:"step_id"`
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	MissingDocs []string `json:"missing_docs"`
	CanAdvance  bool     `json:"can_advance"`
}

type Gate struct {
	Steps        []StepGate `json:"steps"`
	BlockedSteps []string   `json:"blocked_steps"`
	MissingDocs  []string   `json:"missing_docs"`
	BlockerCount int        `json:"blocker_count"`
	CurrentStep  string     `json:"current_step,omitempty"`
}

type MissingDocs struct {
	MissingDocs []string `json:"missing_docs"`
}

type EventJob struct {
	ID         string     `json:"id"`
	DealID     string     `json:"deal_id"`
	Event      string     `json:"event"`
	Reason     string     `json:"reason,omitempty"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	QueuedAt   time.Time  `json:"queued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type RentShare struct {
	PartyID      string          `json:"party_id"`
	PartyName    string          `json:"party_name"`
	SharePercent float64         `json:"share_percent"`
	Monthly      decimal.Decimal `json:"monthly"`
	Annual       decimal.Decimal `json:"annual"`
}

// Requests

type PartyRequest struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	SharePercent *float64 `json:"share_percent,omitempty"`
	Email        string   `json:"email"`
}

type CreateDealRequest struct {
	Name             string          `json:"name"`
	LocalName        string          `json:"local_name,omitempty"`
	City             string          `json:"city,omitempty"`
	PropertyType     string          `json:"property_type,omitempty"`
	Address          string          `json:"address,omitempty"`
	LocalAddress     string          `json:"local_address,omitempty"`
	TokenizationMode string          `json:"tokenization_mode,omitempty"`
	TotalShares      int64           `json:"total_shares,omitempty"`
	SharePrice       decimal.Decimal `json:"share_price,omitempty"`
	Seller           *PartyRequest   `json:"seller,omitempty"`
}

type EventRequest struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

type EnqueueEventsRequest struct {
	Events []EventRequest `json:"events"`
	// Drain processes the deal's queue before responding.
	Drain bool `json:"drain,omitempty"`
}

type EnqueueEventsResponse struct {
	JobIDs    []string `json:"job_ids"`
	Completed int      `json:"completed,omitempty"`
	Failed    int      `json:"failed,omitempty"`
}

type BlockStepRequest struct {
	Reason string `json:"reason"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type UploadDocumentRequest struct {
	Type     string            `json:"type"`
	Filename string            `json:"filename,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

type VerificationRequest struct {
	Status string `json:"status"`
}

// Conversions

func FromMetrics(m domain.Metrics) Metrics {
	return Metrics{ComplianceScore: m.ComplianceScore, RiskScore: m.RiskScore, EstTimeToCloseDays: m.EstTimeToCloseDays}
}

func FromParty(p domain.Party) Party {
	return Party{ID: p.ID, Name: p.Name, Role: string(p.Role), SharePercent: p.SharePercent, KYCStatus: string(p.KYCStatus), Email: p.Email}
}

func FromStep(s domain.Step) Step {
	return Step{
		ID:           s.ID,
		Key:          s.Key,
		Title:        s.Title,
		LocalTitle:   s.LocalTitle,
		Status:       string(s.Status),
		Order:        s.Order,
		RequiredDocs: docTypes(s.RequiredDocs),
		Notes:        s.Notes,
		StartedAt:    s.StartedAt,
		CompletedAt:  s.CompletedAt,
		BlockReason:  s.BlockReason,
	}
}

func FromDocument(d domain.Document) Document {
	fields := d.ExtractedFields
	if fields == nil {
		fields = map[string]string{}
	}
	return Document{
		ID:              d.ID,
		Type:            string(d.Type),
		Filename:        d.Filename,
		UploadedAt:      d.UploadedAt,
		ExtractedFields: fields,
		Status:          string(d.Status),
		UploadedBy:      d.UploadedBy,
		Confidence:      d.Confidence,
	}
}

func FromDeal(d domain.Deal) Deal {
	out := Deal{
		ID:               d.ID,
		OrgID:            d.OrgID,
		Name:             d.Name,
		LocalName:        d.LocalName,
		City:             d.City,
		PropertyType:     string(d.PropertyType),
		Address:          d.Address,
		LocalAddress:     d.LocalAddress,
		TokenizationMode: string(d.TokenizationMode),
		TotalShares:      d.TotalShares,
		SharePrice:       d.SharePrice,
		Currency:         d.Currency,
		TotalValue:       d.TotalValue,
		Status:           string(d.Status),
		Metrics:          FromMetrics(d.Metrics),
		Parties:          make([]Party, 0, len(d.Parties)),
		Steps:            make([]Step, 0, len(d.Steps)),
		Documents:        make([]Document, 0, len(d.Documents)),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Version:          d.Version,
	}
	for _, p := range d.Parties {
		out.Parties = append(out.Parties, FromParty(p))
	}
	for _, s := range d.Steps {
		out.Steps = append(out.Steps, FromStep(s))
	}
	for _, doc := range d.Documents {
		out.Documents = append(out.Documents, FromDocument(doc))
	}
	return out
}

func FromSummaries(in []domain.DealSummary) []DealSummary {
	out := make([]DealSummary, 0, len(in))
	for _, s := range in {
		out = append(out, DealSummary{
			ID:              s.ID,
			Name:            s.Name,
			City:            s.City,
			Status:          string(s.Status),
			TotalValue:      s.TotalValue,
			ComplianceScore: s.ComplianceScore,
			RiskScore:       s.RiskScore,
			StepsDone:       s.StepsDone,
			TotalSteps:      s.TotalSteps,
			UpdatedAt:       s.UpdatedAt,
		})
	}
	return out
}

func FromAudit(in []domain.AuditEntry) []AuditEntry {
	out := make([]AuditEntry, 0, len(in))
	for _, a := range in {
		out = append(out, AuditEntry{ID: a.ID, At: a.At, Actor: a.Actor, Action: a.Action, Detail: a.Detail, Icon: a.Icon})
	}
	return out
}

func FromNotification(n domain.Notification) Notification {
	return Notification{ID: n.ID, Severity: string(n.Severity), Message: n.Message, CreatedAt: n.CreatedAt, ReadAt: n.ReadAt}
}

func FromNotifications(in []domain.Notification) []Notification {
	out := make([]Notification, 0, len(in))
	for _, n := range in {
		out = append(out, FromNotification(n))
	}
	return out
}

func FromInsight(in domain.Insight) Recommendation {
	out := Recommendation{
		Recommendation: string(in.Recommendation),
		Rationale:      append([]string{}, in.Rationale...),
		Actions:        make([]SuggestedAction, 0, len(in.Actions)),
	}
	for _, a := range in.Actions {
		out.Actions = append(out.Actions, SuggestedAction{Label: a.Label, Action: a.Action})
	}
	return out
}

func FromGate(g workflow.Gate) Gate {
	out := Gate{
		Steps:        make([]StepGate, 0, len(g.Steps)),
		BlockedSteps: append([]string{}, g.BlockedSteps...),
		MissingDocs:  docTypes(g.MissingDocs),
		BlockerCount: g.BlockerCount,
		CurrentStep:  g.Current,
	}
	for _, s := range g.Steps {
		out.Steps = append(out.Steps, StepGate{
			StepID:      s.StepID,
			Key:         s.Key,
			Title:       s.Title,
			Status:      string(s.Status),
			MissingDocs: docTypes(s.MissingDocs),
			CanAdvance:  s.CanAdvance,
		})
	}
	return out
}

func FromJob(j ports.EventJob) EventJob {
	return EventJob{
		ID:         j.ID,
		DealID:     j.DealID,
		Event:      j.Event,
		Reason:     j.Reason,
		Status:     string(j.Status),
		Attempts:   j.Attempts,
		Error:      j.Error,
		QueuedAt:   j.QueuedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
}

func FromRentShares(in []workflow.RentShare) []RentShare {
	out := make([]RentShare, 0, len(in))
	for _, r := range in {
		out = append(out, RentShare{PartyID: r.PartyID, PartyName: r.PartyName, SharePercent: r.SharePercent, Monthly: r.Monthly, Annual: r.Annual})
	}
	return out
}

// DocTypes renders document types as wire tags.
func DocTypes(in []domain.DocType) []string { return docTypes(in) }

func docTypes(in []domain.DocType) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		out = append(out, string(t))
	}
	return out
}

// ToCreateDealInput maps a create request onto the workflow input. OrgID is
// filled in by the caller.
func (r CreateDealRequest) ToCreateDealInput() workflow.CreateDealInput {
	in := workflow.CreateDealInput{
		Name:             r.Name,
		LocalName:        r.LocalName,
		City:             r.City,
		PropertyType:     domain.PropertyType(r.PropertyType),
		Address:          r.Address,
		LocalAddress:     r.LocalAddress,
		TokenizationMode: domain.TokenizationMode(r.TokenizationMode),
		TotalShares:      r.TotalShares,
		SharePrice:       r.SharePrice,
	}
	if r.Seller != nil {
		seller := r.Seller.ToPartyInput()
		in.Seller = &seller
	}
	return in
}

func (r PartyRequest) ToPartyInput() workflow.PartyInput {
	return workflow.PartyInput{Name: r.Name, Role: domain.PartyRole(r.Role), SharePercent: r.SharePercent, Email: r.Email}
}
