package extraction

import (
	"strings"

	"deedflow/internal/domain"
)

// notFound is what extractors report for a field absent from the document.
const notFound = "N/A"

// ExpectedFields lists the structured fields pulled from each document type.
var ExpectedFields = map[domain.DocType][]string{
	domain.DocEmiratesID:      {"full_name", "id_number", "nationality", "date_of_birth", "expiry_date", "gender", "issuing_authority"},
	domain.DocPassport:        {"full_name", "passport_number", "nationality", "date_of_birth", "expiry_date", "place_of_issue", "type"},
	domain.DocTitleDeed:       {"property_number", "plot_number", "area", "city", "size_sqft", "registered_owner", "registration_date", "deed_type"},
	domain.DocNOC:             {"noc_number", "issuer", "property_reference", "issued_date", "valid_until", "status", "conditions", "authorized_signatory"},
	domain.DocValuationReport: {"report_number", "property_address", "valuation_date", "market_value_aed", "property_type", "built_up_area", "valuator", "methodology"},
	domain.DocKYC:             {"document_type", "applicant_name", "verification_status", "risk_level", "pep_check", "sanctions_check", "source_of_funds", "verification_date"},
	domain.DocEscrowAgreement: {"agreement_number", "escrow_agent", "total_amount_aed", "buyer_name", "seller_name", "effective_date", "release_conditions"},
	domain.DocSPA:             {"agreement_number", "seller", "buyer", "property", "sale_price_aed", "payment_plan", "completion_date", "governing_law"},
	domain.DocPowerOfAttorney: {"poa_number", "principal", "attorney", "scope", "effective_date", "expiry_date", "notarized_by"},
}

// complete fills every expected field the extractor left out with N/A.
func complete(t domain.DocType, fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = strings.TrimSpace(v)
	}
	for _, k := range ExpectedFields[t] {
		if _, ok := out[k]; !ok {
			out[k] = notFound
		}
	}
	return out
}

// ValidRatio is the share of fields holding a real value.
func ValidRatio(fields map[string]string) float64 {
	if len(fields) == 0 {
		return 0
	}
	valid := 0
	for _, v := range fields {
		v = strings.TrimSpace(v)
		if v != "" && !strings.EqualFold(v, notFound) {
			valid++
		}
	}
	return float64(valid) / float64(len(fields))
}
