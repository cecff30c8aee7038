package ui

import (
	"strings"
	"testing"
	"time"

	"foresight/internal/governance"
	"foresight/internal/types"
)

func sampleReport() *types.PathReport {
	return &types.PathReport{
		SessionID:            "Activity on svc_web",
		RootCauseNode:        "web01",
		BlastRadius:          []string{"web01", "db01"},
		PathAnomalyScore:     72.5,
		BusinessRiskLevel:    types.RiskHigh,
		VulnerabilitySummary: []string{"CVE-2021-44228: remote code execution in the logging layer"},
		PlainLanguageSummary: "An attacker appears to have moved from web01 toward db01.",
	}
}

func sampleForecast() *types.PredictionSummary {
	return &types.PredictionSummary{
		SessionID:           "Activity on svc_web",
		AggregateConfidence: 0.62,
		ModelVersion:        "v1.0-genesis",
		Narrative:           "Lateral movement toward the database tier is the most likely continuation.",
		PredictedScenarios: []types.PredictedScenario{
			{
				ScenarioType:          types.ScenarioPrimary,
				Probability:           0.62,
				RiskLevel:             "High",
				TimeWindow:            "2-6 hours",
				HumanReadableSequence: "Exploit Public-Facing Application -> Remote Services",
			},
			{
				ScenarioType:          types.ScenarioSecondary,
				Probability:           0.21,
				RiskLevel:             "Medium",
				TimeWindow:            "6-24 hours",
				HumanReadableSequence: "Exploit Public-Facing Application -> Network Service Discovery",
			},
		},
	}
}

func sampleDecision() *types.ResponseDecision {
	return &types.ResponseDecision{
		SessionID:            "Activity on svc_web",
		EvaluatedAction:      "Isolate Host",
		ActionClassification: types.ClassContainment,
		RequiresApproval:     true,
		Urgency:              types.UrgencyCritical,
		DecisionConfidence:   0.91,
		TargetEntity:         types.TargetEntity{EntityType: types.EntityHost, Identifier: "web01"},
		MentorSummary:        "Isolating web01 cuts the observed lateral movement path before it reaches db01.",
		Explainability: types.Explainability{
			WhyNow: "the session already spans two hosts",
		},
	}
}

func TestRenderReports(t *testing.T) {
	view := RenderReports(PlainStyles(), []*types.PathReport{sampleReport()})

	for _, want := range []string{
		"Attack Path Analysis",
		"Activity on svc_web",
		"72.5",
		"web01, db01",
		"An attacker appears to have moved",
		"CVE-2021-44228",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("report view missing %q\n%s", want, view)
		}
	}
}

func TestRenderReportsEmpty(t *testing.T) {
	view := RenderReports(PlainStyles(), nil)
	if !strings.Contains(view, "No sessions analyzed") {
		t.Errorf("empty report view = %q", view)
	}
}

func TestRenderForecasts(t *testing.T) {
	view := RenderForecasts(PlainStyles(), []*types.PredictionSummary{sampleForecast(), nil})

	for _, want := range []string{
		"Trajectory Forecast: Activity on svc_web",
		"confidence 62%",
		"v1.0-genesis",
		"62%",
		"21%",
		"2-6 hours",
		"[1] Exploit Public-Facing Application -> Remote Services",
		"[2] Exploit Public-Facing Application -> Network Service Discovery",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("forecast view missing %q\n%s", want, view)
		}
	}
}

func TestRenderForecastsNoScenarios(t *testing.T) {
	f := sampleForecast()
	f.PredictedScenarios = nil
	view := RenderForecasts(PlainStyles(), []*types.PredictionSummary{f})
	if !strings.Contains(view, "no viable continuations") {
		t.Errorf("forecast view missing placeholder\n%s", view)
	}
}

func TestRenderDecisions(t *testing.T) {
	view := RenderDecisions(PlainStyles(), []*types.ResponseDecision{sampleDecision()})

	for _, want := range []string{
		"Response Plan",
		"Isolate Host",
		"web01",
		"Critical",
		"0.91",
		"required",
		"Isolating web01 cuts the observed lateral movement path",
		"why now: the session already spans two hosts",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("decision view missing %q\n%s", want, view)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	status := &types.GovernanceStatus{
		GeneratedAt:          time.Now().UTC(),
		VersionID:            "v1.2",
		ContainmentThreshold: 0.58,
		DisruptiveThreshold:  0.84,
		TrustMomentum:        0.0213,
		SuccessStreak:        3,
		Trend:                types.TrendRelaxing,
		TrendLabel:           "Relaxing: recent validated successes are lowering intervention thresholds",
		LedgerIntegrity:      true,
		LedgerEntryCount:     7,
		RecentLedgerEntries: []types.LedgerEntrySummary{
			{HashID: "ab12cd", EventType: "LEARNING_UPDATE", Timestamp: "2026-08-25T10:00:00Z", Actor: "System"},
		},
		ModelHistory: []types.ModelVersionSummary{
			{VersionID: "v1.2", ContainmentThreshold: 0.58, DisruptiveThreshold: 0.84, TrustMomentum: 0.0213, IsActive: true},
			{VersionID: "v1.0-genesis", ContainmentThreshold: 0.6, DisruptiveThreshold: 0.85},
		},
		DriftAlerts: []string{"containment threshold drifted 12.0% from genesis"},
	}

	view := RenderStatus(PlainStyles(), status)

	for _, want := range []string{
		"Governance Posture",
		"Model Version: v1.2",
		"0.5800",
		"+0.0213",
		"3 success / 0 failure",
		"Relaxing: recent validated successes",
		"Ledger: VERIFIED (7 entries)",
		"! containment threshold drifted 12.0% from genesis",
		"LEARNING_UPDATE",
		"v1.0-genesis",
		"yes",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("status view missing %q\n%s", want, view)
		}
	}
}

func TestRenderStatusBrokenLedger(t *testing.T) {
	view := RenderStatus(PlainStyles(), &types.GovernanceStatus{LedgerIntegrity: false})
	if !strings.Contains(view, "INTEGRITY CHECK FAILED") {
		t.Errorf("status view missing integrity failure\n%s", view)
	}
}

func TestRenderFeedback(t *testing.T) {
	fr := &governance.FeedbackResult{
		Config: types.ModelConfiguration{
			VersionID:            "v1.3",
			ContainmentThreshold: 0.57,
			DisruptiveThreshold:  0.83,
			TrustMomentum:        0.0311,
		},
		Narrative:        "Trust in automated containment is rising after 4 validated executions.",
		ActionsProcessed: 4,
		DomainsCovered:   []string{"Network", "Endpoint"},
		HighUrgency:      2,
		ApprovalRequired: 1,
	}

	view := RenderFeedback(PlainStyles(), fr)

	for _, want := range []string{
		"Learning Update",
		"Trust in automated containment is rising",
		"Actions processed: 4 (2 high urgency, 1 approval-gated)",
		"Domains: Network, Endpoint",
		"New posture v1.3: containment 0.5700, disruptive 0.8300, momentum +0.0311",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("feedback view missing %q\n%s", want, view)
		}
	}
}

func TestRenderPackage(t *testing.T) {
	pkg := &types.ExecutionReport{
		ScriptPath:    "/tmp/out/Foresight_Remediation_20260825_100000.ps1",
		GuidelinePath: "/tmp/out/Tactical_Remediation_Guideline_20260825_100000.md",
		TotalActions:  2,
		StagedCount:   1,
		ActionsIncluded: []types.ActionOutcome{
			{Action: "Isolate Host", Domain: "Network", Target: "web01", Urgency: types.UrgencyCritical, RequiresApproval: true},
			{Action: "Alert SOC", Domain: "General", Target: "svc_web", Urgency: types.UrgencyLow},
		},
	}

	view := RenderPackage(PlainStyles(), pkg)

	for _, want := range []string{
		"Remediation Package",
		"Foresight_Remediation_20260825_100000.ps1",
		"Actions: 2 total, 1 need approval",
		"Isolate Host",
		"required",
		"Alert SOC",
		"auto",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("package view missing %q\n%s", want, view)
		}
	}
}

func TestBanner(t *testing.T) {
	view := Banner(PlainStyles(), "v4.1.0")
	if !strings.Contains(view, "FORESIGHT") || !strings.Contains(view, "v4.1.0") {
		t.Errorf("banner = %q", view)
	}
}
