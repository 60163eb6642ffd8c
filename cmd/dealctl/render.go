package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"deedflow/internal/api"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	verdictStyles = map[string]lipgloss.Style{
		"PROCEED":  successStyle,
		"HOLD":     activeStyle,
		"ESCALATE": errorStyle,
	}
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "done", "completed", "verified":
		return successStyle
	case "in_progress", "active", "pending":
		return activeStyle
	case "blocked", "on_hold", "rejected", "expired":
		return errorStyle
	default:
		return mutedStyle
	}
}

func stepMarker(status string) string {
	switch status {
	case "done":
		return "✓"
	case "in_progress":
		return "▶"
	case "blocked":
		return "✗"
	default:
		return "·"
	}
}

func renderDealList(deals []api.DealSummary) string {
	if len(deals) == 0 {
		return mutedStyle.Render("no deals")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-36s  %-28s  %-10s  %5s  %4s  %5s", "ID", "NAME", "STATUS", "COMPL", "RISK", "STEPS")))
	for _, d := range deals {
		fmt.Fprintf(&b, "%-36s  %-28s  %s  %5d  %4d  %2d/%-2d\n",
			d.ID, truncate(d.Name, 28), statusStyle(d.Status).Render(fmt.Sprintf("%-10s", d.Status)),
			d.ComplianceScore, d.RiskScore, d.StepsDone, d.TotalSteps)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDeal(d api.Deal, gate api.Gate) string {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render(d.Name)+" "+statusStyle(d.Status).Render(d.Status))
	fmt.Fprintf(&b, "%s %s · %s · %d shares @ %s %s\n", labelStyle.Render("property"), d.City, d.PropertyType, d.TotalShares, d.SharePrice.StringFixed(2), d.Currency)
	fmt.Fprintln(&b, renderMetrics(d))

	missing := make(map[string][]string, len(gate.Steps))
	for _, s := range gate.Steps {
		missing[s.StepID] = s.MissingDocs
	}
	var steps strings.Builder
	for _, s := range d.Steps {
		line := fmt.Sprintf("%s %d. %-26s %s", stepMarker(s.Status), s.Order, s.Title, statusStyle(s.Status).Render(s.Status))
		if s.BlockReason != "" {
			line += mutedStyle.Render("  " + s.BlockReason)
		}
		if docs := missing[s.ID]; len(docs) > 0 && s.Status != "done" {
			line += mutedStyle.Render("  needs " + strings.Join(docs, ", "))
		}
		fmt.Fprintln(&steps, line)
	}
	fmt.Fprintln(&b, boxStyle.Render(strings.TrimRight(steps.String(), "\n")))

	if len(d.Documents) > 0 {
		fmt.Fprintln(&b, headerStyle.Render("Documents"))
		for _, doc := range d.Documents {
			fmt.Fprintf(&b, "  %-18s %-30s %s\n", doc.Type, truncate(doc.Filename, 30), statusStyle(doc.Status).Render(doc.Status))
		}
	}
	fmt.Fprintf(&b, "%s %d", labelStyle.Render("blockers"), gate.BlockerCount)
	return b.String()
}

func renderMetrics(d api.Deal) string {
	m := d.Metrics
	return fmt.Sprintf("%s %d/100  %s %d/100  %s %d days",
		labelStyle.Render("compliance"), m.ComplianceScore,
		labelStyle.Render("risk"), m.RiskScore,
		labelStyle.Render("close in"), m.EstTimeToCloseDays)
}

func renderRecommendation(r api.Recommendation) string {
	style, ok := verdictStyles[r.Recommendation]
	if !ok {
		style = mutedStyle
	}
	var b strings.Builder
	fmt.Fprintln(&b, style.Render(r.Recommendation))
	for _, line := range r.Rationale {
		fmt.Fprintf(&b, "  • %s\n", line)
	}
	if len(r.Actions) > 0 {
		fmt.Fprintln(&b, headerStyle.Render("Suggested actions"))
		for _, a := range r.Actions {
			fmt.Fprintf(&b, "  → %s %s\n", a.Label, mutedStyle.Render("("+a.Action+")"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAudit(entries []api.AuditEntry) string {
	if len(entries) == 0 {
		return mutedStyle.Render("no audit entries")
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %-14s %-16s %s\n", mutedStyle.Render(e.At.Format("2006-01-02 15:04")), truncate(e.Actor, 14), labelStyle.Render(e.Action), e.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderEnqueue(res api.EnqueueEventsResponse, drained bool) string {
	if !drained {
		return successStyle.Render(fmt.Sprintf("queued %d event(s)", len(res.JobIDs)))
	}
	out := successStyle.Render(fmt.Sprintf("applied %d event(s)", res.Completed))
	if res.Failed > 0 {
		out += " " + errorStyle.Render(fmt.Sprintf("%d failed", res.Failed))
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
