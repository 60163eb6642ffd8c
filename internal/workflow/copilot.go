package workflow

import (
	"fmt"
	"strings"

	"deedflow/internal/domain"
)

const riskEscalationThreshold = 50

// Evaluate produces the copilot recommendation. Rules are checked in
// priority order and the first match wins, so blockers always dominate risk.
func Evaluate(d domain.Deal) domain.Insight {
	if blocked := BlockedSteps(d); len(blocked) > 0 {
		reason := blocked[0].BlockReason
		if reason == "" {
			reason = "External dependency pending"
		}
		return domain.Insight{
			Recommendation: domain.Hold,
			Rationale: []string{
				fmt.Sprintf("%d step(s) are blocked and require attention", len(blocked)),
				reason,
				"Cannot proceed to settlement until blockers are resolved",
			},
			Actions: []domain.SuggestedAction{
				{Label: "Request NOC", Action: "request_noc"},
				{Label: "Send Reminder", Action: "send_reminder"},
			},
		}
	}

	if missing := MissingRequiredDocs(d); len(missing) > 0 {
		labels := make([]string, len(missing))
		for i, t := range missing {
			labels[i] = string(t)
		}
		return domain.Insight{
			Recommendation: domain.Hold,
			Rationale: []string{
				fmt.Sprintf("%d required document(s) still missing", len(missing)),
				"Missing: " + strings.Join(labels, ", "),
				"Upload and verify all documents before proceeding",
			},
			Actions: []domain.SuggestedAction{
				{Label: "Send Doc Request", Action: "send_doc_request"},
				{Label: "Upload Document", Action: "upload_doc"},
			},
		}
	}

	if d.Metrics.RiskScore > riskEscalationThreshold {
		return domain.Insight{
			Recommendation: domain.Escalate,
			Rationale: []string{
				fmt.Sprintf("Risk score elevated at %d/100", d.Metrics.RiskScore),
				"Additional due diligence recommended",
				"Review all party compliance status",
			},
			Actions: []domain.SuggestedAction{
				{Label: "Request Review", Action: "request_review"},
				{Label: "Generate Settlement Pack", Action: "generate_pack"},
			},
		}
	}

	return domain.Insight{
		Recommendation: domain.Proceed,
		Rationale: []string{
			fmt.Sprintf("Compliance score: %d/100", d.Metrics.ComplianceScore),
			fmt.Sprintf("Estimated %d days to close", d.Metrics.EstTimeToCloseDays),
			"All compliance rules satisfied",
		},
		Actions: []domain.SuggestedAction{
			{Label: "Generate Settlement Pack", Action: "generate_pack"},
			{Label: "Send Doc Request", Action: "send_doc_request"},
		},
	}
}
