package extraction

import (
	"context"

	"deedflow/internal/domain"
	"deedflow/internal/ports"
)

// DemoConfidence is reported for every canned extraction.
const DemoConfidence = 0.973

var demoFields = map[domain.DocType]map[string]string{
	domain.DocEmiratesID: {
		"full_name":         "Ahmed Al Maktoum",
		"id_number":         "784-1990-1234567-1",
		"nationality":       "UAE",
		"date_of_birth":     "15/03/1990",
		"expiry_date":       "21/06/2028",
		"gender":            "Male",
		"issuing_authority": "Federal Authority for Identity & Citizenship",
	},
	domain.DocPassport: {
		"full_name":       "Sarah Johnson",
		"passport_number": "P12345678",
		"nationality":     "United Kingdom",
		"date_of_birth":   "22/07/1985",
		"expiry_date":     "15/09/2029",
		"place_of_issue":  "London",
		"type":            "P",
	},
	domain.DocTitleDeed: {
		"property_number":   "DM-2024-45892",
		"plot_number":       "345-JBR-12",
		"area":              "Jumeirah Beach Residence",
		"city":              "Dubai",
		"size_sqft":         "1,250",
		"registered_owner":  "Marina Heights LLC",
		"registration_date": "12/01/2024",
		"deed_type":         "Freehold",
	},
	domain.DocNOC: {
		"noc_number":           "NOC-2024-7891",
		"issuer":               "Emaar Properties",
		"property_reference":   "DM-2024-45892",
		"issued_date":          "05/02/2025",
		"valid_until":          "05/08/2025",
		"status":               "Approved",
		"conditions":           "No outstanding service charges",
		"authorized_signatory": "Mohammed Al Rashid",
	},
	domain.DocValuationReport: {
		"report_number":    "VAL-2024-3456",
		"property_address": "Unit 1205, Marina Heights, JBR",
		"valuation_date":   "28/01/2025",
		"market_value_aed": "4,250,000",
		"property_type":    "Residential Apartment",
		"built_up_area":    "1,250 sq ft",
		"valuator":         "RICS Chartered Surveyors UAE",
		"methodology":      "Comparable Sales Approach",
	},
	domain.DocKYC: {
		"document_type":       "KYC Verification Form",
		"applicant_name":      "Ahmed Al Maktoum",
		"verification_status": "Passed",
		"risk_level":          "Low",
		"pep_check":           "Clear",
		"sanctions_check":     "Clear",
		"source_of_funds":     "Employment Income",
		"verification_date":   "20/01/2025",
	},
	domain.DocEscrowAgreement: {
		"agreement_number":   "ESC-2024-8901",
		"escrow_agent":       "Emirates NBD Escrow Services",
		"total_amount_aed":   "4,250,000",
		"buyer_name":         "Ahmed Al Maktoum",
		"seller_name":        "Marina Heights LLC",
		"effective_date":     "01/02/2025",
		"release_conditions": "Title transfer completion",
	},
	domain.DocSPA: {
		"agreement_number": "SPA-2024-5678",
		"seller":           "Marina Heights LLC",
		"buyer":            "Ahmed Al Maktoum",
		"property":         "Unit 1205, Marina Heights Tower, JBR",
		"sale_price_aed":   "4,250,000",
		"payment_plan":     "60% upfront, 40% on completion",
		"completion_date":  "30/06/2025",
		"governing_law":    "UAE Federal Law",
	},
	domain.DocPowerOfAttorney: {
		"poa_number":     "POA-2024-2345",
		"principal":      "Ahmed Al Maktoum",
		"attorney":       "Sarah Johnson",
		"scope":          "Property sale and transfer",
		"effective_date": "15/01/2025",
		"expiry_date":    "15/01/2026",
		"notarized_by":   "Dubai Courts Notary Public",
	},
}

// Demo returns canned fields per document type without reading the file.
type Demo struct{}

func (Demo) Extract(ctx context.Context, req ports.ExtractionRequest) (ports.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return ports.Extraction{}, err
	}
	fields, ok := demoFields[req.DocType]
	if !ok {
		fields = demoFields[domain.DocEmiratesID]
	}
	return ports.Extraction{Fields: complete(req.DocType, fields), Confidence: DemoConfidence}, nil
}
