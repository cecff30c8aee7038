package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"foresight/internal/config"
	"foresight/internal/types"
)

const sampleBatch = `[
  {"event_id":"evt-1","timestamp":"2026-03-14T10:00:00Z","user":"svc_web","source_host":"web01","event_type":"process_start","mitre_technique":"T1190","observed_cve_ids":["CVE-2021-44228"],"confidence_score":0.9,"data_quality_score":1.0},
  {"event_id":"evt-2","timestamp":"2026-03-14T10:05:00Z","user":"svc_web","source_host":"web01","event_type":"process_start","mitre_technique":"T1059","confidence_score":0.85,"data_quality_score":1.0},
  {"event_id":"evt-3","timestamp":"2026-03-14T10:09:00Z","user":"svc_web","source_host":"db01","target_host":"db01","event_type":"network_connection","protocol":"smb","mitre_technique":"T1021","confidence_score":0.7,"data_quality_score":0.9}
]`

func writeEventsFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// testConfig points every path at temp space and runs without a catalog.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = t.TempDir()
	cfg.Catalog.DatabasePath = filepath.Join(cfg.Workspace.Root, "no-catalog.db")
	return cfg
}

func TestRunFullCycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	inputDir := t.TempDir()
	writeEventsFile(t, inputDir, "batch.json", sampleBatch)

	cfg := testConfig(t)
	orch, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer orch.Close()

	assert.True(t, orch.Degraded(), "missing catalog should degrade, not fail")

	res, err := orch.Run(context.Background(), inputDir, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Events)
	require.Len(t, res.Sessions, 1)
	assert.Equal(t, "Activity on svc_web", res.Sessions[0].SessionID)
	assert.True(t, res.Sessions[0].IsHighPriority, "host switch marks the session")

	require.Len(t, res.Reports, 1)
	require.Len(t, res.Forecasts, 1)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, res.Reports[0].SessionID, res.Forecasts[0].SessionID)
	assert.NotEmpty(t, res.Decisions[0].EvaluatedAction)

	require.Len(t, res.Artifacts, 3)
	for _, name := range []string{"path_report.json", "trajectory_forecast.json", "response_plan.json"} {
		path := filepath.Join(cfg.ArtifactsPath(), name)
		assert.Contains(t, res.Artifacts, path)
		info, err := os.Stat(path)
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(2), name)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.ArtifactsPath(), "path_report.json"))
	require.NoError(t, err)
	var reports []types.PathReport
	require.NoError(t, json.Unmarshal(raw, &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "Activity on svc_web", reports[0].SessionID)
	assert.GreaterOrEqual(t, reports[0].PathAnomalyScore, 0.0)
	assert.LessOrEqual(t, reports[0].PathAnomalyScore, 100.0)
}

func TestRunWithScriptAndAudit(t *testing.T) {
	defer goleak.VerifyNone(t)

	inputDir := t.TempDir()
	writeEventsFile(t, inputDir, "batch.json", sampleBatch)

	cfg := testConfig(t)
	orch, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer orch.Close()

	res, err := orch.Run(context.Background(), inputDir, Options{Script: true, PDF: true})
	require.NoError(t, err)

	require.NotNil(t, res.Package)
	assert.Equal(t, len(res.Decisions), res.Package.TotalActions)
	assert.FileExists(t, res.Package.ScriptPath)
	assert.FileExists(t, res.Package.GuidelinePath)
	assert.FileExists(t, filepath.Join(cfg.ArtifactsPath(), "execution_report.json"))

	require.NotEmpty(t, res.AuditPath)
	assert.FileExists(t, res.AuditPath)
	assert.Regexp(t, `^Foresight_Audit_Report_\d{8}_\d{6}\.pdf$`, filepath.Base(res.AuditPath))

	// The audit lookup bootstraps governance state on first use.
	assert.FileExists(t, cfg.GovernanceDBPath())
}

func TestRunEmptyBatchStillWritesArtifacts(t *testing.T) {
	defer goleak.VerifyNone(t)

	inputDir := t.TempDir()
	writeEventsFile(t, inputDir, "batch.json", `[]`)

	cfg := testConfig(t)
	orch, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer orch.Close()

	res, err := orch.Run(context.Background(), inputDir, Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Events)
	assert.Empty(t, res.Sessions)

	raw, err := os.ReadFile(filepath.Join(cfg.ArtifactsPath(), "response_plan.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestRunSchemaViolationAborts(t *testing.T) {
	inputDir := t.TempDir()
	writeEventsFile(t, inputDir, "bad.json", `[{"event_id":"evt-x","event_type":"probe"}]`)

	cfg := testConfig(t)
	orch, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer orch.Close()

	_, err = orch.Run(context.Background(), inputDir, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInputSchema)

	assert.NoFileExists(t, filepath.Join(cfg.ArtifactsPath(), "path_report.json"),
		"failed cycles must not emit artifacts")
}

func TestArtifactPathContainment(t *testing.T) {
	root := t.TempDir()

	path, err := artifactPath(root, "path_report.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "path_report.json"), path)

	path, err = artifactPath(root, filepath.Join("nested", "report.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "nested", "report.json"), path)

	for _, name := range []string{"../escape.json", "../../etc/passwd", ".."} {
		_, err := artifactPath(root, name)
		assert.ErrorIs(t, err, types.ErrBoundaryViolation, name)
	}
}

func TestWorkersDefaultCap(t *testing.T) {
	cfg := testConfig(t)
	orch, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer orch.Close()

	assert.LessOrEqual(t, orch.workers(), 8)
	assert.GreaterOrEqual(t, orch.workers(), 1)

	cfg.Pipeline.Workers = 3
	assert.Equal(t, 3, orch.workers())
}
