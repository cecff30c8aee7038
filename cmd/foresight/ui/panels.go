package ui

import (
	"fmt"
	"strings"

	"foresight/internal/governance"
	"foresight/internal/types"
)

// Banner renders the one-line program header.
func Banner(s Styles, version string) string {
	return s.Title.Render("FORESIGHT") + "  " + s.Muted.Render("predictive breach-path analysis "+version)
}

// RenderReports shows the per-session path analysis: the triage table
// followed by each session's plain-language summary and weakness lines.
func RenderReports(s Styles, reports []*types.PathReport) string {
	if len(reports) == 0 {
		return s.Muted.Render("No sessions analyzed.") + "\n"
	}

	table := NewTable("Attack Path Analysis", "SESSION", "RISK", "SCORE", "ROOT CAUSE", "HOSTS")
	for _, r := range reports {
		risk := string(r.BusinessRiskLevel)
		table.AddRow(
			r.SessionID,
			s.RiskStyle(risk).Render(risk),
			fmt.Sprintf("%.1f", r.PathAnomalyScore),
			r.RootCauseNode,
			strings.Join(r.BlastRadius, ", "),
		)
	}

	var sb strings.Builder
	sb.WriteString(table.View(s))
	for _, r := range reports {
		sb.WriteString("\n")
		sb.WriteString(s.Bold.Render(r.SessionID))
		sb.WriteString("\n")
		sb.WriteString(s.Body.Render(r.PlainLanguageSummary))
		sb.WriteString("\n")
		for _, line := range r.VulnerabilitySummary {
			sb.WriteString(s.Muted.Render("  " + line))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderForecasts shows each session's projected continuations.
func RenderForecasts(s Styles, forecasts []*types.PredictionSummary) string {
	if len(forecasts) == 0 {
		return s.Muted.Render("No forecasts produced.") + "\n"
	}

	var sb strings.Builder
	for _, f := range forecasts {
		if f == nil {
			continue
		}
		sb.WriteString(s.Bold.Render("Trajectory Forecast: " + f.SessionID))
		sb.WriteString("  ")
		sb.WriteString(s.Muted.Render(fmt.Sprintf("confidence %.0f%%, %s", f.AggregateConfidence*100, f.ModelVersion)))
		sb.WriteString("\n")
		sb.WriteString(s.Body.Render(f.Narrative))
		sb.WriteString("\n")

		if len(f.PredictedScenarios) == 0 {
			sb.WriteString(s.Muted.Render("  no viable continuations"))
			sb.WriteString("\n\n")
			continue
		}

		table := NewTable("", "#", "TYPE", "PROB", "RISK", "WINDOW")
		for i, sc := range f.PredictedScenarios {
			table.AddRow(
				fmt.Sprintf("%d", i+1),
				string(sc.ScenarioType),
				fmt.Sprintf("%.0f%%", sc.Probability*100),
				s.RiskStyle(sc.RiskLevel).Render(sc.RiskLevel),
				sc.TimeWindow,
			)
		}
		sb.WriteString(table.View(s))
		for i, sc := range f.PredictedScenarios {
			sb.WriteString(s.Muted.Render(fmt.Sprintf("  [%d] %s", i+1, sc.HumanReadableSequence)))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderDecisions shows the response plan table plus the mentor context
// for each decided action.
func RenderDecisions(s Styles, decisions []*types.ResponseDecision) string {
	if len(decisions) == 0 {
		return s.Muted.Render("No response decisions.") + "\n"
	}

	table := NewTable("Response Plan", "SESSION", "ACTION", "TARGET", "URGENCY", "CONF", "APPROVAL")
	for _, d := range decisions {
		if d == nil {
			continue
		}
		approval := s.Muted.Render("auto")
		if d.RequiresApproval {
			approval = s.Warning.Render("required")
		}
		table.AddRow(
			d.SessionID,
			d.EvaluatedAction,
			d.TargetEntity.Identifier,
			s.RiskStyle(string(d.Urgency)).Render(string(d.Urgency)),
			fmt.Sprintf("%.2f", d.DecisionConfidence),
			approval,
		)
	}

	var sb strings.Builder
	sb.WriteString(table.View(s))
	for _, d := range decisions {
		if d == nil || d.MentorSummary == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(s.Bold.Render(d.EvaluatedAction))
		sb.WriteString("\n")
		sb.WriteString(s.Body.Render(d.MentorSummary))
		sb.WriteString("\n")
		if d.Explainability.WhyNow != "" {
			sb.WriteString(s.Muted.Render("  why now: " + d.Explainability.WhyNow))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderStatus shows the governance posture snapshot.
func RenderStatus(s Styles, status *types.GovernanceStatus) string {
	if status == nil {
		return s.Muted.Render("No governance state.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(s.Title.Render("Governance Posture"))
	sb.WriteString("\n")
	sb.WriteString(s.Bold.Render("Model Version: "))
	sb.WriteString(s.Body.Render(status.VersionID))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render(fmt.Sprintf("Containment Threshold: %.4f", status.ContainmentThreshold)))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render(fmt.Sprintf("Disruptive Threshold:  %.4f", status.DisruptiveThreshold)))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render(fmt.Sprintf("Trust Momentum:        %+.4f", status.TrustMomentum)))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render(fmt.Sprintf("Streaks:               %d success / %d failure", status.SuccessStreak, status.FailureStreak)))
	sb.WriteString("\n")

	trendStyle := s.Muted
	switch status.Trend {
	case types.TrendTightening:
		trendStyle = s.Info
	case types.TrendRelaxing:
		trendStyle = s.Warning
	}
	sb.WriteString(s.Bold.Render("Trend: "))
	sb.WriteString(trendStyle.Render(status.TrendLabel))
	sb.WriteString("\n")

	if status.LedgerIntegrity {
		sb.WriteString(s.Success.Render(fmt.Sprintf("Ledger: VERIFIED (%d entries)", status.LedgerEntryCount)))
	} else {
		sb.WriteString(s.Error.Render("Ledger: INTEGRITY CHECK FAILED"))
	}
	sb.WriteString("\n")

	for _, alert := range status.DriftAlerts {
		sb.WriteString(s.Error.Render("! " + alert))
		sb.WriteString("\n")
	}

	if len(status.RecentLedgerEntries) > 0 {
		sb.WriteString("\n")
		table := NewTable("Recent Ledger Events", "TIME", "EVENT", "ACTOR", "HASH")
		for _, e := range status.RecentLedgerEntries {
			table.AddRow(e.Timestamp, e.EventType, e.Actor, e.HashID)
		}
		sb.WriteString(table.View(s))
	}

	if len(status.ModelHistory) > 0 {
		sb.WriteString("\n")
		table := NewTable("Model History", "VERSION", "CONTAIN", "DISRUPT", "MOMENTUM", "ACTIVE")
		for _, v := range status.ModelHistory {
			active := ""
			if v.IsActive {
				active = "yes"
			}
			table.AddRow(
				v.VersionID,
				fmt.Sprintf("%.4f", v.ContainmentThreshold),
				fmt.Sprintf("%.4f", v.DisruptiveThreshold),
				fmt.Sprintf("%+.4f", v.TrustMomentum),
				active,
			)
		}
		sb.WriteString(table.View(s))
	}
	return sb.String()
}

// RenderFeedback shows the outcome of one learning cycle.
func RenderFeedback(s Styles, fr *governance.FeedbackResult) string {
	if fr == nil {
		return s.Muted.Render("No learning update.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(s.Title.Render("Learning Update"))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render(fr.Narrative))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render(fmt.Sprintf(
		"Actions processed: %d (%d high urgency, %d approval-gated)",
		fr.ActionsProcessed, fr.HighUrgency, fr.ApprovalRequired)))
	sb.WriteString("\n")
	if len(fr.DomainsCovered) > 0 {
		sb.WriteString(s.Muted.Render("Domains: " + strings.Join(fr.DomainsCovered, ", ")))
		sb.WriteString("\n")
	}
	sb.WriteString(s.Bold.Render(fmt.Sprintf(
		"New posture %s: containment %.4f, disruptive %.4f, momentum %+.4f",
		fr.Config.VersionID, fr.Config.ContainmentThreshold,
		fr.Config.DisruptiveThreshold, fr.Config.TrustMomentum)))
	sb.WriteString("\n")
	return sb.String()
}

// RenderPackage shows the generated remediation artifacts.
func RenderPackage(s Styles, pkg *types.ExecutionReport) string {
	if pkg == nil {
		return s.Muted.Render("No remediation package generated.") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(s.Title.Render("Remediation Package"))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render("Script:    " + pkg.ScriptPath))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render("Guideline: " + pkg.GuidelinePath))
	sb.WriteString("\n")
	sb.WriteString(s.Body.Render(fmt.Sprintf("Actions: %d total, %d need approval", pkg.TotalActions, pkg.StagedCount)))
	sb.WriteString("\n")

	if len(pkg.ActionsIncluded) > 0 {
		table := NewTable("", "ACTION", "DOMAIN", "TARGET", "URGENCY", "APPROVAL")
		for _, a := range pkg.ActionsIncluded {
			approval := "auto"
			if a.RequiresApproval {
				approval = "required"
			}
			table.AddRow(a.Action, a.Domain, a.Target, string(a.Urgency), approval)
		}
		sb.WriteString(table.View(s))
	}
	return sb.String()
}
