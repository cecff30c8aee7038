// Package pipeline runs the full analysis cycle: ingest, sessionize,
// per-session path analysis and forecasting, batch decisioning, and
// artifact output, with optional remediation and audit documents.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"foresight/internal/auditpdf"
	"foresight/internal/config"
	"foresight/internal/decision"
	"foresight/internal/forecast"
	"foresight/internal/governance"
	"foresight/internal/ingest"
	"foresight/internal/logging"
	"foresight/internal/pathing"
	"foresight/internal/scripting"
	"foresight/internal/session"
	"foresight/internal/types"
	"foresight/internal/vulnintel"
)

// Options select the optional tail stages of a cycle.
type Options struct {
	// Script generates the remediation package from the decisions.
	Script bool
	// PDF renders the strategic audit document. Implies a governance
	// store lookup for the active model configuration.
	PDF bool
}

// CycleResult is everything one analysis cycle produced.
type CycleResult struct {
	Events    int
	Sessions  []types.Session
	Reports   []*types.PathReport
	Forecasts []*types.PredictionSummary
	Decisions []*types.ResponseDecision
	Package   *types.ExecutionReport
	AuditPath string
	Artifacts []string
}

// Orchestrator wires the stages together. It owns the catalog handle and
// is safe to reuse across cycles, which is what watch mode does.
type Orchestrator struct {
	cfg        *config.Config
	loader     *ingest.Loader
	builder    *session.Builder
	analyzer   *pathing.Analyzer
	forecaster *forecast.Engine
	decider    *decision.Engine
	catalog    *vulnintel.Catalog
}

// NewOrchestrator builds the pipeline from configuration. An unavailable
// vulnerability catalog degrades every stage to zero-value intelligence
// instead of failing the cycle.
func NewOrchestrator(cfg *config.Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var intel vulnintel.Reader
	catalog, err := vulnintel.Open(cfg.Catalog.DatabasePath)
	if err != nil {
		logging.PipelineWarn("catalog unavailable, running degraded: %v", err)
		catalog = nil
	} else {
		intel = vulnintel.WithTimeout(catalog, cfg.GetCatalogTimeout())
	}

	return &Orchestrator{
		cfg:      cfg,
		loader:   ingest.NewLoader(),
		builder:  session.NewBuilder(cfg.GetSessionWindow(), cfg.Session.HighConfidenceThreshold),
		analyzer: pathing.NewAnalyzer(intel),
		forecaster: forecast.NewEngine(intel, forecast.Options{
			MaxDepth:         cfg.Forecast.MaxDepth,
			ProbabilityFloor: cfg.Forecast.ProbabilityFloor,
			MaxScenarios:     cfg.Forecast.MaxScenarios,
		}),
		decider: decision.NewEngine(intel),
		catalog: catalog,
	}, nil
}

// Close releases the catalog handle.
func (o *Orchestrator) Close() error {
	if o.catalog == nil {
		return nil
	}
	return o.catalog.Close()
}

// Degraded reports whether the cycle runs without catalog intelligence.
func (o *Orchestrator) Degraded() bool {
	return o.catalog == nil
}

// Run executes one full cycle over the events at inputPath and writes the
// artifacts. Partial cycles write nothing: any stage error aborts before
// the first artifact is emitted.
func (o *Orchestrator) Run(ctx context.Context, inputPath string, opts Options) (*CycleResult, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "analysis cycle")
	defer timer.Stop()

	events, err := o.loader.LoadEvents(inputPath)
	if err != nil {
		return nil, err
	}

	sessions := o.builder.Build(events)
	logging.Pipeline("cycle input: %d events, %d sessions", len(events), len(sessions))

	reports, forecasts, err := o.analyzeSessions(ctx, sessions)
	if err != nil {
		return nil, err
	}

	decisions := o.decider.Decide(ctx, forecasts)
	if decisions == nil {
		decisions = []*types.ResponseDecision{}
	}

	result := &CycleResult{
		Events:    len(events),
		Sessions:  sessions,
		Reports:   reports,
		Forecasts: forecasts,
		Decisions: decisions,
	}

	outDir := o.cfg.ArtifactsPath()
	artifacts := []struct {
		name    string
		payload any
	}{
		{"path_report.json", reports},
		{"trajectory_forecast.json", forecasts},
		{"response_plan.json", decisions},
	}
	for _, a := range artifacts {
		path, err := writeJSONArtifact(outDir, a.name, a.payload)
		if err != nil {
			return nil, err
		}
		result.Artifacts = append(result.Artifacts, path)
	}

	if opts.Script {
		pkg, err := scripting.NewGenerator(outDir).Generate(decisions)
		if err != nil {
			return nil, fmt.Errorf("remediation package: %w", err)
		}
		result.Package = pkg
		result.Artifacts = append(result.Artifacts, pkg.ScriptPath, pkg.GuidelinePath)

		manifest, err := writeJSONArtifact(outDir, "execution_report.json", pkg)
		if err != nil {
			return nil, err
		}
		result.Artifacts = append(result.Artifacts, manifest)
	}

	if opts.PDF {
		auditPath, err := o.renderAudit(ctx, outDir, result)
		if err != nil {
			return nil, err
		}
		result.AuditPath = auditPath
		result.Artifacts = append(result.Artifacts, auditPath)
	}

	logging.Pipeline("cycle complete: %d reports, %d decisions, %d artifacts",
		len(result.Reports), len(result.Decisions), len(result.Artifacts))
	return result, nil
}

// analyzeSessions fans the path analyzer and forecaster out across the
// session list. Collection is per index and the compacted output is
// reordered by session id, so downstream artifacts never depend on
// goroutine completion order.
func (o *Orchestrator) analyzeSessions(ctx context.Context, sessions []types.Session) ([]*types.PathReport, []*types.PredictionSummary, error) {
	reports := make([]*types.PathReport, len(sessions))
	forecasts := make([]*types.PredictionSummary, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())
	for i := range sessions {
		i := i
		g.Go(func() error {
			report, err := o.analyzer.Analyze(gctx, &sessions[i])
			if err != nil {
				if errors.Is(err, types.ErrEmptySession) {
					logging.PipelineWarn("skipping empty session %q", sessions[i].SessionID)
					return nil
				}
				return fmt.Errorf("path analysis for %q: %w", sessions[i].SessionID, err)
			}
			summary, err := o.forecaster.Forecast(gctx, report)
			if err != nil {
				return fmt.Errorf("forecast for %q: %w", sessions[i].SessionID, err)
			}
			reports[i] = report
			forecasts[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	keptReports := make([]*types.PathReport, 0, len(sessions))
	keptForecasts := make([]*types.PredictionSummary, 0, len(sessions))
	for i := range sessions {
		if reports[i] != nil {
			keptReports = append(keptReports, reports[i])
			keptForecasts = append(keptForecasts, forecasts[i])
		}
	}
	sort.SliceStable(keptReports, func(a, b int) bool {
		return keptReports[a].SessionID < keptReports[b].SessionID
	})
	sort.SliceStable(keptForecasts, func(a, b int) bool {
		return keptForecasts[a].SessionID < keptForecasts[b].SessionID
	})
	return keptReports, keptForecasts, nil
}

// renderAudit resolves the active model configuration and writes the PDF.
func (o *Orchestrator) renderAudit(ctx context.Context, outDir string, result *CycleResult) (string, error) {
	store, err := governance.Open(o.cfg.GovernanceDBPath())
	if err != nil {
		return "", fmt.Errorf("governance store: %w", err)
	}
	defer store.Close()

	active, err := store.InsertGenesis(ctx)
	if err != nil {
		return "", fmt.Errorf("active configuration: %w", err)
	}
	return auditpdf.NewGenerator(outDir).Generate(result.Forecasts, result.Decisions, result.Package, active)
}

func (o *Orchestrator) workers() int {
	w := o.cfg.Pipeline.Workers
	if w <= 0 {
		w = runtime.NumCPU()
		if w > 8 {
			w = 8
		}
	}
	return w
}

// writeJSONArtifact writes one artifact under root. Names that resolve
// outside root are refused with ErrBoundaryViolation.
func writeJSONArtifact(root, name string, payload any) (string, error) {
	path, err := artifactPath(root, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	logging.PipelineDebug("wrote artifact %s (%d bytes)", path, len(data))
	return path, nil
}

// artifactPath joins name onto root and verifies containment.
func artifactPath(root, name string) (string, error) {
	cleanRoot := filepath.Clean(root)
	path := filepath.Join(cleanRoot, name)
	rel, err := filepath.Rel(cleanRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("artifact %q: %w", name, types.ErrBoundaryViolation)
	}
	return path, nil
}
