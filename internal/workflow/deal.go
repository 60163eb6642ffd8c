package workflow

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"deedflow/internal/domain"
)

const (
	baselineCompliance = 0
	baselineRisk       = 30
	baselineEstDays    = 30

	defaultShares   = 100
	defaultCurrency = "AED"
)

var (
	defaultSharePrice = decimal.NewFromInt(10000)
	hundredPercent    = decimal.NewFromInt(100)

	// Money columns hold at most 2 decimals; these bound the integer digits.
	maxSharePrice = decimal.New(1, 16)
	maxTotalValue = decimal.New(1, 18)
)

// Cities lists the emirates a deal may be located in.
var Cities = []string{"Dubai", "Abu Dhabi", "Sharjah", "Ras Al Khaimah"}

type PartyInput struct {
	Name         string
	Role         domain.PartyRole
	SharePercent *float64
	Email        string
}

// CreateDealInput describes the metadata needed to create a deal. Zero
// values for city, property type, mode, shares and price take defaults.
type CreateDealInput struct {
	OrgID            string
	Name             string
	LocalName        string
	City             string
	PropertyType     domain.PropertyType
	Address          string
	LocalAddress     string
	TokenizationMode domain.TokenizationMode
	TotalShares      int64
	SharePrice       decimal.Decimal
	// Seller, when set, is registered as the 100% owner.
	Seller *PartyInput
}

// NormalizeCreateDealInput trims, defaults and validates deal input.
func NormalizeCreateDealInput(in CreateDealInput) (CreateDealInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, domain.Errorf(domain.KindValidation, "deal name is required")
	}
	if len(in.Name) > 150 {
		return in, domain.Errorf(domain.KindValidation, "deal name exceeds 150 characters")
	}
	in.City = strings.TrimSpace(in.City)
	if in.City == "" {
		in.City = Cities[0]
	}
	if !knownCity(in.City) {
		return in, domain.WithMeta(domain.KindValidation, fmt.Sprintf("unsupported city %q", in.City), map[string]string{"field": "city"})
	}
	if in.PropertyType == "" {
		in.PropertyType = domain.PropertyResidential
	}
	if !in.PropertyType.Valid() {
		return in, domain.WithMeta(domain.KindValidation, fmt.Sprintf("unsupported property type %q", in.PropertyType), map[string]string{"field": "property_type"})
	}
	if in.TokenizationMode == "" {
		in.TokenizationMode = domain.ModeFractional
	}
	if !in.TokenizationMode.Valid() {
		return in, domain.WithMeta(domain.KindValidation, fmt.Sprintf("unsupported tokenization mode %q", in.TokenizationMode), map[string]string{"field": "tokenization_mode"})
	}
	switch {
	case in.TotalShares < 0:
		return in, domain.WithMeta(domain.KindValidation, "total shares must not be negative", map[string]string{"field": "total_shares"})
	case in.TotalShares == 0:
		in.TotalShares = defaultShares
	}
	switch {
	case in.SharePrice.IsNegative():
		return in, domain.WithMeta(domain.KindValidation, "share price must not be negative", map[string]string{"field": "share_price"})
	case in.SharePrice.IsZero():
		in.SharePrice = defaultSharePrice
	case !in.SharePrice.Equal(in.SharePrice.Round(2)):
		return in, domain.WithMeta(domain.KindValidation, "share price allows at most 2 decimal places", map[string]string{"field": "share_price"})
	case in.SharePrice.GreaterThanOrEqual(maxSharePrice):
		return in, domain.WithMeta(domain.KindValidation, "share price is too large", map[string]string{"field": "share_price"})
	}
	if in.SharePrice.Mul(decimal.NewFromInt(in.TotalShares)).GreaterThanOrEqual(maxTotalValue) {
		return in, domain.WithMeta(domain.KindValidation, "total value of shares is too large", map[string]string{"field": "total_shares"})
	}
	return in, nil
}

func knownCity(city string) bool {
	for _, c := range Cities {
		if c == city {
			return true
		}
	}
	return false
}

// CreateDeal builds a new deal with the fixed step graph and baseline
// metrics. The deal starts in draft.
func (e *Engine) CreateDeal(in CreateDealInput, actor domain.Actor) (domain.Deal, error) {
	in, err := NormalizeCreateDealInput(in)
	if err != nil {
		return domain.Deal{}, err
	}
	now := e.now()
	d := domain.Deal{
		ID:               e.id(),
		OrgID:            in.OrgID,
		Name:             in.Name,
		LocalName:        in.LocalName,
		City:             in.City,
		PropertyType:     in.PropertyType,
		Address:          in.Address,
		LocalAddress:     in.LocalAddress,
		TokenizationMode: in.TokenizationMode,
		TotalShares:      in.TotalShares,
		SharePrice:       in.SharePrice,
		Currency:         defaultCurrency,
		TotalValue:       in.SharePrice.Mul(decimal.NewFromInt(in.TotalShares)),
		Status:           domain.DealDraft,
		Metrics: domain.Metrics{
			ComplianceScore:    baselineCompliance,
			RiskScore:          baselineRisk,
			EstTimeToCloseDays: baselineEstDays,
		},
		Steps:     e.InitializeSteps(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Seller != nil {
		full := 100.0
		seller := *in.Seller
		seller.Role = domain.RoleSeller
		seller.SharePercent = &full
		p, err := e.newParty(d, seller)
		if err != nil {
			return domain.Deal{}, err
		}
		d.Parties = append(d.Parties, p)
	}
	e.audit(&d, actor.Label(), "Deal Created", fmt.Sprintf("New deal %q created", d.Name), "home")
	return d, nil
}

// AddParty registers a participant. Buyer share percentages may not sum to
// more than 100.
func (e *Engine) AddParty(d *domain.Deal, in PartyInput, actor domain.Actor) (domain.Party, error) {
	var added domain.Party
	err := e.mutate(d, func(stage *domain.Deal) error {
		p, err := e.newParty(*stage, in)
		if err != nil {
			return err
		}
		stage.Parties = append(stage.Parties, p)
		added = p
		e.audit(stage, actor.Label(), "Party Added", fmt.Sprintf("%s joined as %s", p.Name, p.Role), "user")
		return nil
	})
	return added, err
}

func (e *Engine) newParty(d domain.Deal, in PartyInput) (domain.Party, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Party{}, domain.WithMeta(domain.KindValidation, "party name is required", map[string]string{"field": "name"})
	}
	if !in.Role.Valid() {
		return domain.Party{}, domain.WithMeta(domain.KindValidation, fmt.Sprintf("unsupported party role %q", in.Role), map[string]string{"field": "role"})
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.Party{}, err
	}
	if in.SharePercent != nil {
		pct := *in.SharePercent
		if math.IsNaN(pct) || pct < 0 || pct > 100 {
			return domain.Party{}, domain.WithMeta(domain.KindValidation, "share percent must be between 0 and 100", map[string]string{"field": "share_percent"})
		}
		if in.Role == domain.RoleBuyer {
			if total := buyerShares(d).Add(decimal.NewFromFloat(pct)); total.GreaterThan(hundredPercent) {
				return domain.Party{}, domain.WithMeta(domain.KindValidation,
					fmt.Sprintf("buyer shares would total %s%%", total.StringFixed(2)),
					map[string]string{"field": "share_percent"})
			}
		}
		v := pct
		in.SharePercent = &v
	}
	return domain.Party{
		ID:           e.id(),
		Name:         in.Name,
		Role:         in.Role,
		SharePercent: in.SharePercent,
		KYCStatus:    domain.KYCPending,
		Email:        email,
	}, nil
}

// normalizeEmail lowercases the address and rejects domains that are a bare
// public suffix (e.g. "ae" or "co.uk").
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", domain.WithMeta(domain.KindValidation, fmt.Sprintf("invalid email %q", raw), map[string]string{"field": "email"})
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(email[at+1:]); err != nil {
		return "", domain.WithMeta(domain.KindValidation, fmt.Sprintf("invalid email domain %q", email[at+1:]), map[string]string{"field": "email"})
	}
	return email, nil
}

// BuyerShareTotal sums the share percentages held by buyers.
func BuyerShareTotal(d domain.Deal) float64 {
	return buyerShares(d).InexactFloat64()
}

// buyerShares sums in decimal so splits like 0.2 + 83.9 + 15.9 land on 100.
func buyerShares(d domain.Deal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Parties {
		if p.Role == domain.RoleBuyer && p.SharePercent != nil {
			total = total.Add(decimal.NewFromFloat(*p.SharePercent))
		}
	}
	return total
}

type RentShare struct {
	PartyID      string
	PartyName    string
	SharePercent float64
	Monthly      decimal.Decimal
	Annual       decimal.Decimal
}

// RentDistribution splits a monthly rent across parties that hold a share.
func RentDistribution(d domain.Deal, monthlyRent decimal.Decimal) []RentShare {
	var out []RentShare
	for _, p := range d.Parties {
		if p.SharePercent == nil || *p.SharePercent <= 0 {
			continue
		}
		monthly := monthlyRent.Mul(decimal.NewFromFloat(*p.SharePercent)).Div(hundredPercent).Round(2)
		out = append(out, RentShare{
			PartyID:      p.ID,
			PartyName:    p.Name,
			SharePercent: *p.SharePercent,
			Monthly:      monthly,
			Annual:       monthly.Mul(decimal.NewFromInt(12)),
		})
	}
	return out
}
