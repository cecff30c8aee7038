package decision

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foresight/internal/knowledge"
	"foresight/internal/types"
	"foresight/internal/vulnintel"
)

type fakeIntel struct {
	vulns map[string]vulnintel.Details
}

func (f *fakeIntel) VulnDetails(_ context.Context, cveID string) (vulnintel.Details, error) {
	id := strings.ToUpper(strings.TrimSpace(cveID))
	if d, ok := f.vulns[id]; ok {
		return d, nil
	}
	return vulnintel.Details{CVEID: id}, nil
}

func (f *fakeIntel) CWEDetails(_ context.Context, cweID string) (vulnintel.Weakness, error) {
	return vulnintel.Weakness{CWEID: cweID}, nil
}

func log4shellIntel() *fakeIntel {
	return &fakeIntel{
		vulns: map[string]vulnintel.Details{
			"CVE-2021-44228": {
				CVEID:    "CVE-2021-44228",
				CVSS:     10.0,
				Severity: "CRITICAL",
				IsKEV:    true,
				KEVName:  "Apache Log4j2 Remote Code Execution Vulnerability",
				CWEs:     []string{"CWE-20", "CWE-502"},
			},
		},
	}
}

func TestDecideKEVContainmentOverride(t *testing.T) {
	forecast := &types.PredictionSummary{
		SessionID: "portal-breach",
		CurrentState: types.CurrentState{
			ObservedTechniques: []string{"T1190", "T1059", "T1021"},
			ObservedVulnerabilities: []string{
				"CVE-2021-44228", "CWE-285", "CWE-306", "CWE-434",
				"CWE-77", "CWE-78", "CWE-89", "CWE-94",
			},
			HostScope:  []string{"web01", "db01", "app01"},
			GraphDepth: 3,
			RiskScore:  54.03,
		},
		PredictedScenarios: []types.PredictedScenario{
			{Sequence: []string{"T1003"}, Probability: 0.6, EstimatedTimeMin: 72, EstimatedTimeMax: 2160},
			{Sequence: []string{"T1021"}, Probability: 0.42, EstimatedTimeMin: 180, EstimatedTimeMax: 2160},
		},
		AggregateConfidence: 1.0,
	}

	eng := NewEngine(log4shellIntel())
	decisions := eng.Decide(context.Background(), []*types.PredictionSummary{forecast})
	require.Len(t, decisions, 1)
	d := decisions[0]

	assert.NotEmpty(t, d.DecisionID)
	assert.Equal(t, "portal-breach", d.SessionID)
	assert.Equal(t, "Isolate Host", d.EvaluatedAction)
	assert.Equal(t, types.ClassContainment, d.ActionClassification, "active exploitation authorizes containment without approval")
	assert.False(t, d.RequiresApproval)
	assert.Equal(t, types.UrgencyCritical, d.Urgency)
	assert.Equal(t, 1.0, d.DecisionConfidence)
	assert.Equal(t, 2160, d.RankScore)
	assert.Equal(t, types.TargetEntity{EntityType: types.EntityHost, Identifier: "app01"}, d.TargetEntity)
	assert.Equal(t, types.RiskReduction{Absolute: 0.59, Relative: "Mitigates 99% of T1003 risk"}, d.RiskReduction)
	require.NotNil(t, d.VulnerabilityDetails)
	assert.True(t, d.VulnerabilityDetails.IsKEV)
	assert.Equal(t, 10.0, d.VulnerabilityDetails.MaxCVSS)
	assert.Empty(t, d.RejectedAlternatives)
	assert.Equal(t, types.CorrelationContext{
		Principal: "portal-breach",
		GroupSize: 1,
		Reason:    "Aggregated Campaign: 1 correlated sessions hit 'portal-breach' [Group contains KEV exploits]",
	}, d.Correlation)
	assert.Equal(t,
		"Automated containment strategy for portal-breach has been initiated "+
			"due to the detection of high-risk exploits (Max CVSS 10.0). "+
			"The selected action, 'Isolate Host', targets Host 'app01' "+
			"with an estimated risk reduction of 59.4% across the predicted trajectory.",
		d.MentorSummary)
	assert.Equal(t, "Vulnerability Context: Max CVSS 10.0 [KEV ACTIVE]. Prob (60%) within 72s.", d.Explainability.WhyNow)
	assert.Equal(t, "Delay increases lateral movement window.", d.Explainability.WhyNotLater)
	assert.Equal(t, "Unmitigated Risk: 60% chance of T1003 exploiting 10.0 CVSS vuln.", d.Explainability.WhatIfIgnored)
	assert.Equal(t, "Controls T1003 [KEV ACTIVE]", d.Explainability.SignalGap)
	assert.Equal(t, knowledge.MitigationGuidelines["Isolate Host"], d.MitigationGuidelines)
	assert.Equal(t, "v4.1-Vuln-Driven", d.ModelVersion)
	assert.False(t, d.Suppressed)
}

func TestDecideConfidenceGatedFallback(t *testing.T) {
	forecast := &types.PredictionSummary{
		SessionID: "credential-probe",
		CurrentState: types.CurrentState{
			ObservedTechniques:      []string{"T1078"},
			ObservedVulnerabilities: []string{"CWE-284", "CWE-287"},
			HostScope:               []string{"hr-laptop"},
			RiskScore:               13.01,
		},
		PredictedScenarios: []types.PredictedScenario{
			{Sequence: []string{"T1078"}, Probability: 0.84, EstimatedTimeMin: 600, EstimatedTimeMax: 7200},
			{Sequence: []string{"T1003"}, Probability: 0.35, EstimatedTimeMin: 120, EstimatedTimeMax: 3600},
		},
		AggregateConfidence: 0.36,
	}

	eng := NewEngine(nil)
	decisions := eng.Decide(context.Background(), []*types.PredictionSummary{forecast})
	require.Len(t, decisions, 1)
	d := decisions[0]

	assert.Equal(t, "Enable Logon Failure Auditing", d.EvaluatedAction)
	assert.Equal(t, 0.41, d.DecisionConfidence)
	assert.Equal(t, types.UrgencyHigh, d.Urgency)
	assert.Equal(t, types.ClassContainment, d.ActionClassification)
	assert.False(t, d.RequiresApproval)
	assert.Equal(t, 125, d.RankScore)
	assert.Equal(t, types.TargetEntity{EntityType: types.EntityUser, Identifier: "credential-probe"}, d.TargetEntity)
	assert.Equal(t, types.RiskReduction{Absolute: 0.17, Relative: "Mitigates 20% of T1078 risk"}, d.RiskReduction)
	require.NotNil(t, d.VulnerabilityDetails)
	assert.False(t, d.VulnerabilityDetails.IsKEV)
	assert.Equal(t, 7.5, d.VulnerabilityDetails.MaxCVSS, "CWE heuristic widens the session severity")

	require.Len(t, d.RejectedAlternatives, 1)
	assert.Equal(t, "Disable Account", d.RejectedAlternatives[0].Action)
	assert.Equal(t, "Confidence (0.41) < Eff. Threshold (0.75)", d.RejectedAlternatives[0].Reason)

	assert.Equal(t, "Vulnerability Context: Max CVSS 7.5. Prob (84%) within 600s.", d.Explainability.WhyNow)
	assert.Contains(t, d.MentorSummary, "as a countermeasure to a 84% probability threat.")
	assert.Contains(t, d.MentorSummary, "with an estimated risk reduction of 16.8% across the predicted trajectory.")
	assert.NotContains(t, d.MentorSummary, "Manual authorization")
}

func TestDecideLowConfidenceMonitor(t *testing.T) {
	forecast := &types.PredictionSummary{
		SessionID: "scan-probe",
		CurrentState: types.CurrentState{
			ObservedTechniques: []string{"T1595"},
			HostScope:          []string{"dmz-fw"},
			RiskScore:          13.01,
		},
		PredictedScenarios: []types.PredictedScenario{
			{Sequence: []string{"T1592"}, Probability: 0.3, EstimatedTimeMin: 300, EstimatedTimeMax: 1800},
			{Sequence: []string{"T1190"}, Probability: 0.25, EstimatedTimeMin: 60, EstimatedTimeMax: 1800},
		},
		AggregateConfidence: 0.07,
	}

	eng := NewEngine(nil)
	decisions := eng.Decide(context.Background(), []*types.PredictionSummary{forecast})
	require.Len(t, decisions, 1)
	d := decisions[0]

	assert.Equal(t, "Monitor User Behavior", d.EvaluatedAction)
	assert.Equal(t, 0.08, d.DecisionConfidence)
	assert.Equal(t, types.UrgencyLow, d.Urgency, "low confidence without active exploits downgrades urgency")
	assert.Equal(t, 38, d.RankScore)
	assert.Equal(t, types.TargetEntity{EntityType: types.EntityUser, Identifier: "scan-probe"}, d.TargetEntity)
	assert.Equal(t, types.RiskReduction{Absolute: 0.03, Relative: "Mitigates 10% of T1592 risk"}, d.RiskReduction)

	require.Len(t, d.RejectedAlternatives, 1)
	assert.Equal(t, "Enable Process Auditing", d.RejectedAlternatives[0].Action)
	assert.Equal(t, "Confidence (0.08) < Eff. Threshold (0.1)", d.RejectedAlternatives[0].Reason)

	assert.Equal(t,
		"Automated containment strategy for scan-probe has been initiated to ensure defensive depth. "+
			"The selected action, 'Monitor User Behavior', targets User 'scan-probe' "+
			"with an estimated risk reduction of 3.0% across the predicted trajectory.",
		d.MentorSummary)
	assert.Equal(t, "Vulnerability Context: Max CVSS 0.0. Prob (30%) within 300s.", d.Explainability.WhyNow)
	assert.Equal(t, "Controls T1592", d.Explainability.SignalGap)
}

func TestDecideNoScenarios(t *testing.T) {
	forecast := &types.PredictionSummary{
		SessionID:           "quiet-host",
		AggregateConfidence: 0.1,
	}

	eng := NewEngine(nil)
	decisions := eng.Decide(context.Background(), []*types.PredictionSummary{forecast})
	require.Len(t, decisions, 1)
	d := decisions[0]

	assert.Equal(t, "Monitor User Behavior", d.EvaluatedAction)
	assert.Equal(t, types.UrgencyLow, d.Urgency)
	assert.Equal(t, 0, d.RankScore)
	assert.InDelta(t, 0.115, d.DecisionConfidence, 1e-9)
	assert.Equal(t, types.TargetEntity{EntityType: types.EntityUser, Identifier: "quiet-host"}, d.TargetEntity)
	assert.Equal(t, types.RiskReduction{Absolute: 0, Relative: "None"}, d.RiskReduction)
	assert.Nil(t, d.VulnerabilityDetails)
	assert.Empty(t, d.RejectedAlternatives)
	assert.Empty(t, d.MitigationGuidelines)
	assert.Equal(t, "No immediate threat detected. Continuing baseline monitoring.", d.MentorSummary)
	assert.Equal(t, types.Explainability{
		WhyNow:        "No predicted threats found.",
		WhyNotLater:   "N/A",
		WhatIfIgnored: "Unknown",
		SignalGap:     "Baseline monitoring",
	}, d.Explainability)
	assert.Equal(t, types.CorrelationContext{
		Principal: "quiet-host",
		GroupSize: 1,
		Reason:    "Aggregated Campaign: 1 correlated sessions hit 'quiet-host'",
	}, d.Correlation)
}

func TestDecideCampaignCorrelation(t *testing.T) {
	cart := &types.PredictionSummary{
		SessionID: "Activity on https://shop.example/cart",
		CurrentState: types.CurrentState{
			HostScope: []string{"https://shop.example/cart"},
		},
		PredictedScenarios: []types.PredictedScenario{
			{Sequence: []string{"T1190"}, Probability: 0.25, EstimatedTimeMin: 60, EstimatedTimeMax: 1800},
		},
		AggregateConfidence: 0.5,
	}
	admin := &types.PredictionSummary{
		SessionID: "Activity on https://shop.example/admin",
		CurrentState: types.CurrentState{
			HostScope: []string{"https://shop.example/admin"},
		},
		PredictedScenarios: []types.PredictedScenario{
			{Sequence: []string{"T1059"}, Probability: 0.1, EstimatedTimeMin: 120, EstimatedTimeMax: 1800},
		},
		AggregateConfidence: 0.2,
	}

	eng := NewEngine(nil)
	decisions := eng.Decide(context.Background(), []*types.PredictionSummary{cart, admin})
	require.Len(t, decisions, 2)

	first, second := decisions[0], decisions[1]
	assert.Equal(t, cart.SessionID, first.SessionID)
	assert.Equal(t, admin.SessionID, second.SessionID)

	wantCorrelation := types.CorrelationContext{
		Principal: "shop.example",
		GroupSize: 2,
		Reason:    "Aggregated Campaign: 2 correlated sessions hit 'shop.example'",
	}
	assert.Equal(t, wantCorrelation, first.Correlation)
	assert.Equal(t, wantCorrelation, second.Correlation)

	assert.Equal(t, "Enable Process Auditing", first.EvaluatedAction)
	assert.Equal(t, 0.65, first.DecisionConfidence)
	assert.Equal(t, types.UrgencyCritical, first.Urgency)
	assert.Equal(t, 1090, first.RankScore)
	require.Len(t, first.RejectedAlternatives, 1)
	assert.Equal(t, "Confidence (0.65) < Eff. Threshold (0.85)", first.RejectedAlternatives[0].Reason)

	assert.Equal(t, "Enable Process Auditing", second.EvaluatedAction)
	assert.Equal(t, 0.26, second.DecisionConfidence)
	assert.Equal(t, types.UrgencyLow, second.Urgency)
	require.Len(t, second.RejectedAlternatives, 1)
	assert.Equal(t,
		"Confidence (0.26) < Eff. Threshold (0.85); Aggregated Risk (0.11) too low for High Cost (0.9)",
		second.RejectedAlternatives[0].Reason)
}

func TestDecideBorderlineApprovalHold(t *testing.T) {
	forecast := &types.PredictionSummary{
		SessionID: "finance-box",
		CurrentState: types.CurrentState{
			HostScope: []string{"fin01"},
		},
		PredictedScenarios: []types.PredictedScenario{
			{Sequence: []string{"T1078"}, Probability: 0.84, EstimatedTimeMin: 600, EstimatedTimeMax: 7200},
		},
		AggregateConfidence: 0.66,
	}

	eng := NewEngine(nil)
	decisions := eng.Decide(context.Background(), []*types.PredictionSummary{forecast})
	require.Len(t, decisions, 1)
	d := decisions[0]

	assert.Equal(t, "Disable Account", d.EvaluatedAction)
	assert.Equal(t, types.ClassDisruptive, d.ActionClassification)
	assert.True(t, d.RequiresApproval, "passing within 0.05 of the threshold still needs an operator")
	assert.Equal(t, 0.76, d.DecisionConfidence)
	assert.True(t, strings.HasPrefix(d.MentorSummary, "Disruptive mitigation strategy for finance-box"))
	assert.Contains(t, d.MentorSummary, "Manual authorization is required before execution due to potential service disruption.")
}

func TestDecideSkipsNilForecasts(t *testing.T) {
	forecast := &types.PredictionSummary{
		SessionID:           "only-one",
		AggregateConfidence: 0.1,
	}
	eng := NewEngine(nil)
	decisions := eng.Decide(context.Background(), []*types.PredictionSummary{nil, forecast, nil})
	require.Len(t, decisions, 1)
	assert.Equal(t, "only-one", decisions[0].SessionID)

	assert.Empty(t, eng.Decide(context.Background(), nil))
}

func TestPrincipalOf(t *testing.T) {
	tests := []struct {
		sessionID string
		want      string
	}{
		{"Activity on https://shop.example/cart", "shop.example"},
		{"http://10.0.0.5/admin", "10.0.0.5"},
		{"user_4532_laptop", "user"},
		{"plainhost", "plainhost"},
		{"svc-web", "svc-web"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, principalOf(tt.sessionID), "session %q", tt.sessionID)
	}
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "edge.internal:8443", normalizeHost("https://edge.internal:8443/login"))
	assert.Equal(t, "db01", normalizeHost("db01"))
}
