package deals

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"deedflow/internal/domain"
	"deedflow/internal/requestctx"
	"deedflow/internal/services/access"
	"deedflow/internal/workflow"
)

const DemoDealName = "Marina Heights Tower"

// SeedDemo creates the demo deal for orgID unless it already exists. The
// deal has KYC and title deed verified and its first two steps done.
func (s *Service) SeedDemo(ctx context.Context, orgID string) (domain.Deal, error) {
	existing, err := s.deals.List(ctx, orgID)
	if err != nil {
		return domain.Deal{}, err
	}
	for _, sum := range existing {
		if sum.Name == DemoDealName {
			return s.deals.Get(ctx, sum.ID)
		}
	}

	ctx = requestctx.WithActor(ctx, domain.Actor{ID: "demo-manager", Name: "Demo Manager", OrgID: orgID, Role: access.RoleManager})
	d, err := s.CreateDeal(ctx, workflow.CreateDealInput{
		OrgID:            orgID,
		Name:             DemoDealName,
		LocalName:        "برج مارينا هايتس",
		City:             "Dubai",
		PropertyType:     domain.PropertyResidential,
		Address:          "Dubai Marina, UAE",
		TokenizationMode: domain.ModeFractional,
		TotalShares:      1000,
		SharePrice:       decimal.NewFromInt(1500),
		Seller:           &workflow.PartyInput{Name: "Marina Heights LLC", Email: "sales@marinaheights.ae"},
	})
	if err != nil {
		return domain.Deal{}, fmt.Errorf("seed demo deal: %w", err)
	}

	share := 60.0
	if _, err := s.AddParty(ctx, d.ID, workflow.PartyInput{Name: "Ahmed Al Maktoum", Role: domain.RoleBuyer, SharePercent: &share, Email: "ahmed@example.ae"}); err != nil {
		return domain.Deal{}, fmt.Errorf("seed demo buyer: %w", err)
	}
	if _, err := s.AddParty(ctx, d.ID, workflow.PartyInput{Name: "Emirates NBD Escrow Services", Role: domain.RoleEscrowAgent, Email: "escrow@emiratesnbd.com"}); err != nil {
		return domain.Deal{}, fmt.Errorf("seed demo escrow agent: %w", err)
	}

	for _, t := range []domain.DocType{domain.DocKYC, domain.DocPassport, domain.DocTitleDeed} {
		doc, err := s.UploadDocument(ctx, d.ID, workflow.DocumentInput{
			Type:     t,
			Filename: fmt.Sprintf("marina_heights_%s.pdf", t),
		})
		if err != nil {
			return domain.Deal{}, fmt.Errorf("seed demo %s: %w", t, err)
		}
		if _, err := s.SetDocumentVerification(ctx, doc.ID, domain.DocVerified); err != nil {
			return domain.Deal{}, fmt.Errorf("verify demo %s: %w", t, err)
		}
	}

	for _, key := range []string{"kyc_aml", "title_deed"} {
		cur, err := s.deals.Get(ctx, d.ID)
		if err != nil {
			return domain.Deal{}, err
		}
		for _, step := range cur.Steps {
			if step.Key != key {
				continue
			}
			if _, err := s.AdvanceStep(ctx, d.ID, step.ID); err != nil {
				return domain.Deal{}, fmt.Errorf("advance demo step %s: %w", key, err)
			}
		}
	}

	return s.update(ctx, d.ID, func(d *domain.Deal) error {
		return s.engine.Notify(d, domain.SeverityInfo, "Demo dataset ready for guided replay.", "demo-seed-welcome")
	})
}
