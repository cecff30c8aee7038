package auditpdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foresight/internal/types"
)

func sampleConfig() *types.ModelConfiguration {
	return &types.ModelConfiguration{
		VersionID:            "v1.0-genesis",
		ContainmentThreshold: 0.6,
		DisruptiveThreshold:  0.85,
		TrustMomentum:        0.02,
		SuccessStreak:        3,
		IsActive:             true,
	}
}

func TestGenerateAuditReport(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(dir)

	forecasts := []*types.PredictionSummary{
		{
			SessionID: "portal-breach",
			CurrentState: types.CurrentState{
				ObservedTechniques:      []string{"T1190", "T1059"},
				ObservedVulnerabilities: []string{"CVE-2021-44228", "CWE-502"},
			},
			PredictedScenarios: []types.PredictedScenario{
				{
					Sequence:    []string{"T1059", "T1003", "T1021", "T1041"},
					Probability: 0.62,
					RiskLevel:   "Critical",
				},
			},
			AggregateConfidence: 0.74,
		},
		nil,
		{
			SessionID: "quiet-scan",
			CurrentState: types.CurrentState{
				ObservedTechniques: []string{"T1595"},
			},
		},
	}
	decisions := []*types.ResponseDecision{
		{
			SessionID:       "portal-breach",
			EvaluatedAction: "Isolate Host",
			TargetEntity:    types.TargetEntity{EntityType: types.EntityHost, Identifier: "app01"},
			MitigationGuidelines: []string{
				"Disconnect the host from all network segments",
				"Preserve a forensic memory image before shutdown",
			},
		},
		nil,
		{
			SessionID:       "portal-breach",
			EvaluatedAction: "Enable Process Auditing",
			TargetEntity:    types.TargetEntity{EntityType: types.EntityUser, Identifier: "svc_web"},
		},
	}
	pkg := &types.ExecutionReport{
		ScriptFilename: "Foresight_Remediation_20260825_120000.ps1",
		TotalActions:   2,
		ActionsIncluded: []types.ActionOutcome{
			{Action: "Isolate Host", Domain: "Network"},
			{Action: "Enable Process Auditing", Domain: "Endpoint"},
		},
	}

	path, err := gen.Generate(forecasts, decisions, pkg, sampleConfig())
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.Regexp(t, `^Foresight_Audit_Report_\d{8}_\d{6}\.pdf$`, filepath.Base(path))
	assert.Equal(t, dir, filepath.Dir(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")), "output should be a PDF document")
	assert.Contains(t, string(raw[len(raw)-16:]), "%%EOF")
	assert.Greater(t, len(raw), 1500, "a populated report should not be near-empty")
}

func TestGenerateAuditReportEmptyCycle(t *testing.T) {
	gen := NewGenerator(t.TempDir())

	path, err := gen.Generate(nil, nil, nil, sampleConfig())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestGenerateAuditReportRequiresConfig(t *testing.T) {
	gen := NewGenerator(t.TempDir())

	_, err := gen.Generate(nil, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfigurationConflict)
}

func TestTakeawaysDefenseVariants(t *testing.T) {
	cfg := sampleConfig()

	t.Run("no actions", func(t *testing.T) {
		lines := takeaways(nil, nil, cfg)
		require.Len(t, lines, 4)
		assert.Contains(t, lines[1], "No active remediation actions were required")
		assert.Contains(t, lines[2], "'N/A'")
	})

	t.Run("executions fall back when manifest is empty", func(t *testing.T) {
		pkg := &types.ExecutionReport{
			ScriptFilename: "Foresight_Remediation_20260825_130000.ps1",
			Executions: []types.ActionOutcome{
				{Action: "Disable Account", FinalStatus: "success"},
				{Action: "Disable Account", FinalStatus: "success"},
				{Action: "Alert SOC", FinalStatus: "failed"},
			},
		}
		lines := takeaways(nil, pkg, cfg)
		assert.Contains(t, lines[1], "Generated 3 validated remediation actions")
		assert.Contains(t, lines[1], "Disable Account, Alert SOC")
	})

	t.Run("action types capped at three", func(t *testing.T) {
		pkg := &types.ExecutionReport{
			ActionsIncluded: []types.ActionOutcome{
				{Action: "Isolate Host"},
				{Action: "Block Inbound SMB"},
				{Action: "Disable Account"},
				{Action: "Alert SOC"},
			},
		}
		lines := takeaways(nil, pkg, cfg)
		assert.Contains(t, lines[1], "Isolate Host, Block Inbound SMB, Disable Account.")
		assert.NotContains(t, lines[1], "Alert SOC")
	})

	t.Run("trust direction follows momentum sign", func(t *testing.T) {
		tightening := sampleConfig()
		tightening.TrustMomentum = -0.1
		lines := takeaways(nil, nil, tightening)
		assert.Contains(t, lines[3], "System trust is tightening")

		relaxing := sampleConfig()
		relaxing.TrustMomentum = 0.1
		lines = takeaways(nil, nil, relaxing)
		assert.Contains(t, lines[3], "System trust is relaxing")
	})

	t.Run("vulnerability count spans sessions", func(t *testing.T) {
		forecasts := []*types.PredictionSummary{
			{CurrentState: types.CurrentState{ObservedVulnerabilities: []string{"CVE-2021-44228", "CWE-89"}}},
			{CurrentState: types.CurrentState{ObservedVulnerabilities: []string{"CWE-287"}}},
		}
		lines := takeaways(forecasts, nil, cfg)
		assert.Contains(t, lines[0], "Identified 3 distinct vulnerability matches")
	})
}
