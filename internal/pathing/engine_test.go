package pathing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foresight/internal/types"
	"foresight/internal/vulnintel"
)

type fakeIntel struct {
	vulns map[string]vulnintel.Details
	cwes  map[string]vulnintel.Weakness
}

func (f *fakeIntel) VulnDetails(_ context.Context, cveID string) (vulnintel.Details, error) {
	id := strings.ToUpper(strings.TrimSpace(cveID))
	if d, ok := f.vulns[id]; ok {
		return d, nil
	}
	return vulnintel.Details{CVEID: id}, nil
}

func (f *fakeIntel) CWEDetails(_ context.Context, cweID string) (vulnintel.Weakness, error) {
	if w, ok := f.cwes[cweID]; ok {
		return w, nil
	}
	return vulnintel.Weakness{CWEID: cweID}, nil
}

func log4shellIntel() *fakeIntel {
	return &fakeIntel{
		vulns: map[string]vulnintel.Details{
			"CVE-2021-44228": {
				CVEID:       "CVE-2021-44228",
				CVSS:        10.0,
				Severity:    "CRITICAL",
				Description: "Apache Log4j2 JNDI features do not protect against attacker controlled endpoints. Remote code execution follows.",
				IsKEV:       true,
				KEVName:     "Apache Log4j2 Remote Code Execution Vulnerability",
				CWEs:        []string{"CWE-20", "CWE-502"},
			},
		},
		cwes: map[string]vulnintel.Weakness{
			"CWE-20":  {CWEID: "CWE-20", Name: "Improper Input Validation", Abstraction: "Class"},
			"CWE-502": {CWEID: "CWE-502", Name: "Deserialization of Untrusted Data", Abstraction: "Base"},
			"CWE-89":  {CWEID: "CWE-89", Name: "SQL Injection", Abstraction: "Base"},
			"CWE-434": {CWEID: "CWE-434", Name: "Unrestricted File Upload", Abstraction: "Base"},
		},
	}
}

var testBase = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func mkEvent(id string, offset time.Duration, technique, eventType, raw, src, tgt string) types.EnrichedEvent {
	return types.EnrichedEvent{
		EventID:        id,
		Timestamp:      testBase.Add(offset),
		User:           "svc-web",
		SourceHost:     src,
		TargetHost:     tgt,
		EventType:      eventType,
		MitreTechnique: technique,
		RawText:        raw,
	}
}

func TestAnalyzeEmptySession(t *testing.T) {
	a := NewAnalyzer(nil)
	_, err := a.Analyze(context.Background(), &types.Session{SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEmptySession))

	_, err = a.Analyze(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEmptySession))
}

func TestAnalyzeKEVExploitChain(t *testing.T) {
	sess := &types.Session{
		SessionID: "Activity on svc-web",
		Events: []types.EnrichedEvent{
			mkEvent("ev-1", 0, "T1190", "security_alert", "Inbound exploit CVE-2021-44228 against /api/lookup", "web01", "db01"),
			mkEvent("ev-2", 5*time.Minute, "T1059", "process_exec", "java spawned interactive shell", "db01", "app01"),
			mkEvent("ev-3", 10*time.Minute, "T1021", "network_conn", "SMB admin session established", "app01", ""),
		},
	}

	a := NewAnalyzer(log4shellIntel())
	report, err := a.Analyze(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, 54.03, report.PathAnomalyScore)
	assert.Equal(t, types.RiskHigh, report.BusinessRiskLevel)
	assert.Equal(t, "ev-1", report.RootCauseNode)
	assert.Equal(t, []string{"web01", "db01", "app01"}, report.BlastRadius)
	assert.Equal(t, []string{"T1190", "T1059", "T1021"}, report.ObservedTechniques)

	require.NotEmpty(t, report.VulnerabilitySummary)
	assert.Equal(t,
		"CVE-2021-44228: Apache Log4j2 Remote Code Execution Vulnerability (CVSS: 10.0) [KEV]",
		report.VulnerabilitySummary[0])
	assert.Contains(t, report.VulnerabilitySummary, "CWE-89: SQL Injection")
	assert.NotContains(t, report.VulnerabilitySummary, "CWE-20: Improper Input Validation",
		"weaknesses covered by a CVE should not get standalone lines")

	wantVector := []types.PathPrediction{
		{NextNode: "Collection", Probability: 0.5},
		{NextNode: "Exfiltration", Probability: 0.3},
		{NextNode: "Command and Control", Probability: 0.2},
	}
	if diff := cmp.Diff(wantVector, report.PredictionVector); diff != "" {
		t.Errorf("prediction vector mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"Base", "Class"}, report.CWEClusters)

	assert.Contains(t, report.TacticalNarrative, "Detected 3 correlated events in this behavioral session.")
	assert.Contains(t, report.TacticalNarrative,
		"CRITICAL: Found 1 vulnerabilities from the CISA Known Exploited Vulnerabilities (KEV) catalog!")
	assert.Contains(t, report.TacticalNarrative, "Analysis reveals 1 explicit security alerts.")

	assert.Equal(t,
		"CRITICAL: Identified known exploit attempts involving Apache Log4j2 Remote Code Execution Vulnerability (CVSS: 10.0) [KEV]. Immediate containment recommended.",
		report.PlainLanguageSummary)

	assert.Equal(t, map[string]int{"security_alert": 1, "process_exec": 1, "network_conn": 1}, report.EventSummary)
}

func TestAnalyzeHeuristicWeaknessEnrichment(t *testing.T) {
	sess := &types.Session{
		SessionID: "Activity on host42",
		Events: []types.EnrichedEvent{
			mkEvent("ev-1", 0, "T1078", "login_success", "", "host42", ""),
		},
	}

	a := NewAnalyzer(nil)
	report, err := a.Analyze(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, 13.01, report.PathAnomalyScore)
	assert.Equal(t, types.RiskLow, report.BusinessRiskLevel)
	assert.Equal(t, []string{"T1078"}, report.ObservedTechniques,
		"heuristic weaknesses must not widen the technique list")
	assert.Equal(t, []string{"host42"}, report.BlastRadius)

	want := []string{
		"CWE-284: Improper Access Control",
		"CWE-287: Improper Authentication",
	}
	if diff := cmp.Diff(want, report.VulnerabilitySummary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	wantVector := []types.PathPrediction{
		{NextNode: "Discovery", Probability: 0.5},
		{NextNode: "Execution", Probability: 0.3},
		{NextNode: "Persistence", Probability: 0.2},
	}
	if diff := cmp.Diff(wantVector, report.PredictionVector); diff != "" {
		t.Errorf("prediction vector mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t,
		"Routine system activity or reconnaissance. No immediate compromise of core logic detected.",
		report.PlainLanguageSummary)
}

func TestAnalyzeBehavioralFallback(t *testing.T) {
	sess := &types.Session{
		SessionID: "Activity on scanner",
		Events: []types.EnrichedEvent{
			mkEvent("ev-1", 0, "T1595", "network_scan", "syn sweep across subnet", "probe01", ""),
		},
	}

	a := NewAnalyzer(nil)
	report, err := a.Analyze(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, 13.01, report.PathAnomalyScore)
	assert.Equal(t, []string{"Behavioral Detection: Active Scanning (T1595)"}, report.VulnerabilitySummary)

	wantVector := []types.PathPrediction{
		{NextNode: "Discovery", Probability: 0.3},
		{NextNode: "Credential Access", Probability: 0.2},
		{NextNode: "Standard User Activity", Probability: 0.5},
	}
	if diff := cmp.Diff(wantVector, report.PredictionVector); diff != "" {
		t.Errorf("prediction vector mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeInfersTechniqueFromWeakness(t *testing.T) {
	sess := &types.Session{
		SessionID: "Activity on waf",
		Events: []types.EnrichedEvent{
			mkEvent("ev-1", 0, "", "security_alert", `{"cwe_id": "89", "tool": "sqlmap"}`, "waf01", ""),
		},
	}

	a := NewAnalyzer(log4shellIntel())
	report, err := a.Analyze(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, []string{"T1190"}, report.ObservedTechniques)
	assert.Contains(t, report.VulnerabilitySummary, "CWE-89: SQL Injection")
	assert.Empty(t, sess.Events[0].MitreTechnique, "inference must not mutate the input session")
}

func TestAnalyzeExplicitWeaknessAugmentsTechniques(t *testing.T) {
	sess := &types.Session{
		SessionID: "Activity on upload",
		Events: []types.EnrichedEvent{
			mkEvent("ev-1", 0, "T1595", "security_alert", "blocked webshell upload CWE-434", "edge01", ""),
		},
	}

	a := NewAnalyzer(log4shellIntel())
	report, err := a.Analyze(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, []string{"T1595", "T1505"}, report.ObservedTechniques)
	assert.Equal(t, 23.01, report.PathAnomalyScore)
	assert.Equal(t, []string{"CWE-434: Unrestricted File Upload"}, report.VulnerabilitySummary)
	assert.Equal(t,
		"URGENT: Attacker has successfully achieved persistence or internal lateral movement. Data access is likely imminent.",
		report.PlainLanguageSummary)
}

func TestAnomalyScore(t *testing.T) {
	cases := []struct {
		name       string
		techniques int
		events     int
		kev        int
		maxCVSS    float64
		want       float64
	}{
		{"single technique single event", 1, 1, 0, 0, 13.01},
		{"kev multiplier", 3, 3, 1, 10.0, 54.03},
		{"critical cvss without kev", 3, 3, 0, 9.8, 45.03},
		{"diversity cap", 10, 3, 0, 0, 76.02},
		{"hard ceiling with kev", 8, 1000, 1, 10.0, 100},
		{"cvss cap at 95", 10, 1000, 0, 9.9, 95},
		{"zero base stays zero", 0, 0, 1, 10.0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, anomalyScore(tc.techniques, tc.events, tc.kev, tc.maxCVSS))
		})
	}
}

func TestBusinessRisk(t *testing.T) {
	assert.Equal(t, types.RiskHigh, businessRisk(75, 0, 0))
	assert.Equal(t, types.RiskHigh, businessRisk(15, 1, 0), "any KEV forces High")
	assert.Equal(t, types.RiskMedium, businessRisk(45, 0, 0))
	assert.Equal(t, types.RiskMedium, businessRisk(12, 0, 9.1))
	assert.Equal(t, types.RiskLow, businessRisk(13.01, 0, 0))
	assert.Equal(t, types.RiskInformational, businessRisk(9.9, 0, 0))
}

func TestBuildGraph(t *testing.T) {
	events := []types.EnrichedEvent{
		mkEvent("ev-1", 0, "T1190", "security_alert", "", "web01", ""),
		mkEvent("ev-2", time.Minute, "T1059", "process_exec", "", "web01", ""),
		mkEvent("ev-3", 3*time.Minute, "T1021", "network_conn", "", "web01", "db01"),
	}
	g := BuildGraph(events)

	assert.Equal(t, 3, g.Depth())
	assert.Equal(t, "ev-1", g.RootCause())
	require.Len(t, g.Edges, 2)
	assert.Equal(t, 60.0, g.Edges[0].DeltaT)
	assert.Equal(t, 120.0, g.Edges[1].DeltaT)
	assert.Equal(t, "Initial Access", g.Nodes[0].Phase)
	assert.Equal(t, "Lateral Movement", g.Nodes[2].Phase)

	succ := g.Successors("ev-1")
	require.Len(t, succ, 1)
	assert.Equal(t, "ev-2", succ[0].To)
	assert.Empty(t, g.Successors("ev-3"))
}

func TestFormatCVSS(t *testing.T) {
	assert.Equal(t, "10.0", formatCVSS(10.0))
	assert.Equal(t, "9.8", formatCVSS(9.8))
	assert.Equal(t, "0.0", formatCVSS(0))
}

func TestTopAttack(t *testing.T) {
	assert.Equal(t, "SQL Injection", topAttack([]string{"CWE-89: SQL Injection"}))
	assert.Equal(t, "suspicious activity", topAttack(nil))
	assert.Equal(t, "suspicious activity", topAttack([]string{"no delimiter here"}))
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Apache Log4j2 JNDI features do not protect against attacker controlled endpoints",
		firstSentence("Apache Log4j2 JNDI features do not protect against attacker controlled endpoints. Remote code execution follows."))
	assert.Equal(t, "no terminator", firstSentence("no terminator"))
	assert.Empty(t, firstSentence("   "))
}
