package workflow

import (
	"fmt"
	"math"
	"strings"

	"deedflow/internal/domain"
)

type DocumentInput struct {
	Type       domain.DocType
	Filename   string
	Fields     map[string]string
	UploadedBy string
	// Confidence and Scanned are set when the fields came from extraction.
	Confidence float64
	Scanned    bool
}

// AddDocument records an uploaded document as pending.
func (e *Engine) AddDocument(d *domain.Deal, in DocumentInput, actor domain.Actor) (domain.Document, error) {
	if !in.Type.Valid() {
		return domain.Document{}, domain.WithMeta(domain.KindValidation, fmt.Sprintf("unsupported document type %q", in.Type), map[string]string{"field": "type"})
	}
	if math.IsNaN(in.Confidence) || in.Confidence < 0 || in.Confidence > 1 {
		return domain.Document{}, domain.WithMeta(domain.KindValidation, "confidence must be between 0 and 1", map[string]string{"field": "confidence"})
	}
	var out domain.Document
	err := e.mutate(d, func(stage *domain.Deal) error {
		now := e.now()
		filename := strings.TrimSpace(in.Filename)
		if filename == "" {
			filename = fmt.Sprintf("%s_%d.pdf", in.Type, now.Unix())
		}
		uploader := strings.TrimSpace(in.UploadedBy)
		if uploader == "" {
			uploader = actor.Label()
		}
		fields := make(map[string]string, len(in.Fields))
		for k, v := range in.Fields {
			fields[k] = v
		}
		doc := domain.Document{
			ID:              e.id(),
			Type:            in.Type,
			Filename:        filename,
			UploadedAt:      now,
			ExtractedFields: fields,
			Status:          domain.DocPending,
			UploadedBy:      uploader,
			Confidence:      in.Confidence,
		}
		stage.Documents = append(stage.Documents, doc)
		out = doc.Clone()
		action, icon := "Doc Uploaded", "upload"
		if in.Scanned {
			action, icon = "Doc Scanned", "scan"
		}
		e.audit(stage, actor.Label(), action, fmt.Sprintf("%s uploaded as %s", filename, in.Type), icon)
		return nil
	})
	return out, err
}

// docTransitions lists the permitted verification changes. Rejected and
// expired documents never return to verified; a new upload is required.
var docTransitions = map[domain.VerificationStatus][]domain.VerificationStatus{
	domain.DocPending:  {domain.DocVerified, domain.DocRejected, domain.DocExpired},
	domain.DocVerified: {domain.DocRejected, domain.DocExpired},
	domain.DocRejected: {domain.DocExpired},
}

func docTransitionAllowed(from, to domain.VerificationStatus) bool {
	for _, s := range docTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SetVerificationStatus moves a document to a new verification status.
func (e *Engine) SetVerificationStatus(d *domain.Deal, documentID string, status domain.VerificationStatus, actor domain.Actor) (domain.Document, error) {
	if !status.Valid() {
		return domain.Document{}, domain.WithMeta(domain.KindValidation, fmt.Sprintf("unsupported verification status %q", status), map[string]string{"field": "status"})
	}
	var out domain.Document
	err := e.mutate(d, func(stage *domain.Deal) error {
		i := documentIndex(stage, documentID)
		if i < 0 {
			return domain.WithMeta(domain.KindDocumentNotFound, fmt.Sprintf("document %s not found", documentID), map[string]string{"document_id": documentID})
		}
		doc := &stage.Documents[i]
		if !docTransitionAllowed(doc.Status, status) {
			return domain.WithMeta(domain.KindInvalidTransition,
				fmt.Sprintf("document %s cannot move from %s to %s", doc.Filename, doc.Status, status),
				map[string]string{"document_id": doc.ID, "from": string(doc.Status), "to": string(status)})
		}
		doc.Status = status
		out = doc.Clone()
		e.audit(stage, actor.Label(), verificationAction(status), fmt.Sprintf("%s (%s) is now %s", doc.Filename, doc.Type, status), verificationIcon(status))
		return nil
	})
	return out, err
}

func verificationAction(s domain.VerificationStatus) string {
	switch s {
	case domain.DocVerified:
		return "Doc Verified"
	case domain.DocRejected:
		return "Doc Rejected"
	case domain.DocExpired:
		return "Doc Expired"
	default:
		return "Doc Updated"
	}
}

func verificationIcon(s domain.VerificationStatus) string {
	switch s {
	case domain.DocVerified:
		return "check"
	case domain.DocRejected:
		return "cross"
	default:
		return "clock"
	}
}

func documentIndex(d *domain.Deal, documentID string) int {
	for i := range d.Documents {
		if d.Documents[i].ID == documentID {
			return i
		}
	}
	return -1
}

// HasDocument reports whether the deal owns the document.
func HasDocument(d domain.Deal, documentID string) bool {
	return documentIndex(&d, documentID) >= 0
}

// RequirementSatisfied reports whether any document of the type is verified.
func RequirementSatisfied(d domain.Deal, t domain.DocType) bool {
	for _, doc := range d.Documents {
		if doc.Type == t && doc.Status == domain.DocVerified {
			return true
		}
	}
	return false
}

// MissingRequiredTypes returns the required types without a verified
// document, in input order and without duplicates.
func MissingRequiredTypes(d domain.Deal, required []domain.DocType) []domain.DocType {
	verified := verifiedTypes(d)
	seen := make(map[domain.DocType]bool, len(required))
	out := []domain.DocType{}
	for _, t := range required {
		if verified[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func verifiedTypes(d domain.Deal) map[domain.DocType]bool {
	out := make(map[domain.DocType]bool)
	for _, doc := range d.Documents {
		if doc.Status == domain.DocVerified {
			out[doc.Type] = true
		}
	}
	return out
}
