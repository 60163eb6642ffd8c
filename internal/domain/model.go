package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Core domain models. The workflow package owns every state transition on
// these types; adapters only load and store them.

type DealStatus string

const (
	DealDraft     DealStatus = "draft"
	DealActive    DealStatus = "active"
	DealCompleted DealStatus = "completed"
	DealOnHold    DealStatus = "on_hold"
)

type TokenizationMode string

const (
	ModeFractional TokenizationMode = "fractional"
	ModeTokenized  TokenizationMode = "tokenized"
)

func (m TokenizationMode) Valid() bool {
	return m == ModeFractional || m == ModeTokenized
}

type PropertyType string

const (
	PropertyResidential PropertyType = "residential"
	PropertyCommercial  PropertyType = "commercial"
	PropertyMixedUse    PropertyType = "mixed_use"
	PropertyLand        PropertyType = "land"
)

func (p PropertyType) Valid() bool {
	switch p {
	case PropertyResidential, PropertyCommercial, PropertyMixedUse, PropertyLand:
		return true
	}
	return false
}

type Deal struct {
	ID               string
	OrgID            string
	Name             string
	LocalName        string
	City             string
	PropertyType     PropertyType
	Address          string
	LocalAddress     string
	TokenizationMode TokenizationMode
	TotalShares      int64
	SharePrice       decimal.Decimal
	Currency         string
	// TotalValue is TotalShares x SharePrice, stored at creation.
	TotalValue decimal.Decimal
	Status     DealStatus
	Metrics    Metrics

	Parties       []Party
	Steps         []Step
	Documents     []Document
	Audit         []AuditEntry
	Notifications []Notification

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version increments on every successful save.
	Version int64
}

type PartyRole string

const (
	RoleSeller      PartyRole = "seller"
	RoleBroker      PartyRole = "broker"
	RoleBuyer       PartyRole = "buyer"
	RoleRegulator   PartyRole = "regulator"
	RoleEscrowAgent PartyRole = "escrow_agent"
)

func (r PartyRole) Valid() bool {
	switch r {
	case RoleSeller, RoleBroker, RoleBuyer, RoleRegulator, RoleEscrowAgent:
		return true
	}
	return false
}

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCFailed   KYCStatus = "failed"
)

type Party struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         PartyRole `json:"role"`
	SharePercent *float64  `json:"share_percent,omitempty"`
	KYCStatus    KYCStatus `json:"kyc_status"`
	Email        string    `json:"email"`
}

type StepStatus string

const (
	StepTodo       StepStatus = "todo"
	StepInProgress StepStatus = "in_progress"
	StepDone       StepStatus = "done"
	StepBlocked    StepStatus = "blocked"
)

type Step struct {
	ID           string
	Key          string
	Title        string
	LocalTitle   string
	Status       StepStatus
	Order        int
	RequiredDocs []DocType
	Notes        []string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	BlockReason  string
}

type DocType string

const (
	DocTitleDeed       DocType = "title_deed"
	DocNOC             DocType = "noc"
	DocValuationReport DocType = "valuation_report"
	DocKYC             DocType = "kyc_doc"
	DocEscrowAgreement DocType = "escrow_agreement"
	DocSPA             DocType = "spa"
	DocPowerOfAttorney DocType = "power_of_attorney"
	DocPassport        DocType = "passport"
	DocEmiratesID      DocType = "emirates_id"
)

// DocTypes lists every accepted document type tag.
var DocTypes = []DocType{
	DocTitleDeed, DocNOC, DocValuationReport, DocKYC, DocEscrowAgreement,
	DocSPA, DocPowerOfAttorney, DocPassport, DocEmiratesID,
}

func (t DocType) Valid() bool {
	for _, v := range DocTypes {
		if v == t {
			return true
		}
	}
	return false
}

type VerificationStatus string

const (
	DocPending  VerificationStatus = "pending"
	DocVerified VerificationStatus = "verified"
	DocRejected VerificationStatus = "rejected"
	DocExpired  VerificationStatus = "expired"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case DocPending, DocVerified, DocRejected, DocExpired:
		return true
	}
	return false
}

type Document struct {
	ID              string
	Type            DocType
	Filename        string
	UploadedAt      time.Time
	ExtractedFields map[string]string
	Status          VerificationStatus
	UploadedBy      string
	// Confidence is the extraction confidence in [0,1]; zero for manual uploads.
	Confidence float64
}

type AuditEntry struct {
	ID     string
	At     time.Time
	Actor  string
	Action string
	Detail string
	Icon   string
}

type Metrics struct {
	ComplianceScore    int
	RiskScore          int
	EstTimeToCloseDays int
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Notification struct {
	ID        string
	Severity  Severity
	Message   string
	DedupeKey string
	CreatedAt time.Time
	ReadAt    *time.Time
}

type Recommendation string

const (
	Proceed  Recommendation = "PROCEED"
	Hold     Recommendation = "HOLD"
	Escalate Recommendation = "ESCALATE"
)

type SuggestedAction struct {
	Label  string
	Action string
}

// Insight is computed on read and never stored.
type Insight struct {
	Recommendation Recommendation
	Rationale      []string
	Actions        []SuggestedAction
}

// DealSummary is the list view of a deal.
type DealSummary struct {
	ID              string
	Name            string
	City            string
	Status          DealStatus
	TotalValue      decimal.Decimal
	ComplianceScore int
	RiskScore       int
	StepsDone       int
	TotalSteps      int
	UpdatedAt       time.Time
}

// Actor identifies who performs an operation.
type Actor struct {
	ID    string
	Name  string
	OrgID string
	Role  string
}

// Label returns the name recorded in audit entries.
func (a Actor) Label() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.ID != "":
		return a.ID
	default:
		return "System"
	}
}
