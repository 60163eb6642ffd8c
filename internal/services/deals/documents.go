package deals

import (
	"context"
	"fmt"
	"strings"

	"deedflow/internal/domain"
	"deedflow/internal/ports"
	"deedflow/internal/services/extraction"
	"deedflow/internal/workflow"
)

func (s *Service) UploadDocument(ctx context.Context, dealID string, in workflow.DocumentInput) (domain.Document, error) {
	var out domain.Document
	_, err := s.update(ctx, dealID, func(d *domain.Deal) error {
		doc, err := s.engine.AddDocument(d, in, actorFrom(ctx))
		out = doc
		return err
	})
	return out, err
}

// ScanDocument extracts fields from an uploaded file and registers the
// document. Extraction runs before the deal is locked.
func (s *Service) ScanDocument(ctx context.Context, dealID string, req ports.ScanRequest) (domain.Document, error) {
	if !req.Type.Valid() {
		return domain.Document{}, domain.WithMeta(domain.KindValidation, fmt.Sprintf("unsupported document type %q", req.Type), map[string]string{"field": "type"})
	}
	if _, err := s.deals.Get(ctx, dealID); err != nil {
		return domain.Document{}, err
	}
	res, err := s.extractor.Extract(ctx, ports.ExtractionRequest{
		DocType:     req.Type,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Content:     req.Content,
	})
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %s: %w", req.Type, err)
	}
	if ratio := extraction.ValidRatio(res.Fields); ratio < minValidFieldRatio {
		label := strings.ReplaceAll(string(req.Type), "_", " ")
		return domain.Document{}, domain.WithMeta(domain.KindValidation,
			fmt.Sprintf("file does not appear to be a valid %s", label),
			map[string]string{"field": "file", "valid_ratio": fmt.Sprintf("%.2f", ratio)})
	}
	return s.UploadDocument(ctx, dealID, workflow.DocumentInput{
		Type:       req.Type,
		Filename:   req.Filename,
		Fields:     res.Fields,
		Confidence: res.Confidence,
		Scanned:    true,
	})
}

// SetDocumentVerification finds the owning deal of a document and moves the
// document to status.
func (s *Service) SetDocumentVerification(ctx context.Context, documentID string, status domain.VerificationStatus) (domain.Document, error) {
	dealID, err := s.deals.DealIDForDocument(ctx, documentID)
	if err != nil {
		return domain.Document{}, err
	}
	var out domain.Document
	_, err = s.update(ctx, dealID, func(d *domain.Deal) error {
		doc, err := s.engine.SetVerificationStatus(d, documentID, status, actorFrom(ctx))
		out = doc
		return err
	})
	return out, err
}
