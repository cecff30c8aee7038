package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"foresight/internal/logging"
	"foresight/internal/types"
)

var sectionDivider = "#" + strings.Repeat("=", 70)

// Generator writes remediation packages into a fixed deployment directory.
type Generator struct {
	outputDir string
}

// NewGenerator returns a Generator that writes into outputDir.
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// Generate synthesizes the PowerShell script and the tactical guideline
// for the given decisions and returns the package manifest. Nil and
// suppressed decisions are skipped. Approval-gated actions are included
// but stamped with a warning banner and counted as staged.
func (g *Generator) Generate(decisions []*types.ResponseDecision) (*types.ExecutionReport, error) {
	timer := logging.StartTimer(logging.CategoryScripting, "Generate remediation package")
	defer timer.Stop()

	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create deployment directory: %w", err)
	}

	ts := time.Now().UTC().Format("20060102_150405")
	scriptFilename := fmt.Sprintf("Foresight_Remediation_%s.ps1", ts)
	guidelineFilename := fmt.Sprintf("Tactical_Remediation_Guideline_%s.md", ts)

	var (
		networkBlocks  []string
		endpointBlocks []string
		webBlocks      []string
		generalBlocks  []string
	)
	guideline := guidelineHeaderLines(ts)
	actions := []types.ActionOutcome{}
	staged := 0

	for _, d := range decisions {
		if d == nil || d.Suppressed {
			continue
		}
		target := d.TargetEntity.Identifier
		if target == "" {
			target = "unknown"
		}
		domain := ClassifyDomain(d.EvaluatedAction)
		if d.RequiresApproval {
			staged++
		}

		lines := buildBlock(d.EvaluatedAction, target, d.SessionID, d.VulnerabilityDetails, d.MitigationGuidelines)
		if d.RequiresApproval {
			lines = append(approvalWarning(d.DecisionConfidence, d.Urgency), lines...)
		}
		guideline = append(guideline, actionMarkdownLines(d, target)...)

		switch domain {
		case DomainNetwork:
			networkBlocks = append(networkBlocks, lines...)
		case DomainEndpoint:
			endpointBlocks = append(endpointBlocks, lines...)
		case DomainWeb:
			webBlocks = append(webBlocks, lines...)
		default:
			generalBlocks = append(generalBlocks, lines...)
		}

		actions = append(actions, types.ActionOutcome{
			Action:               d.EvaluatedAction,
			SessionID:            d.SessionID,
			Target:               target,
			Domain:               domain,
			Urgency:              d.Urgency,
			Confidence:           d.DecisionConfidence,
			RequiresApproval:     d.RequiresApproval,
			MentorContext:        d.MentorSummary,
			MitigationGuidelines: d.MitigationGuidelines,
			VulnerabilityDetails: d.VulnerabilityDetails,
		})
	}

	script := headerLines(ts, len(actions), staged)
	if len(networkBlocks) > 0 {
		script = append(script, "", sectionDivider, "# SECTION 1: NETWORK SECURITY MITIGATIONS", sectionDivider, "")
		script = append(script, networkBlocks...)
	}
	if len(endpointBlocks) > 0 {
		script = append(script, "", sectionDivider, "# SECTION 2: ENDPOINT SECURITY MITIGATIONS", sectionDivider, "")
		script = append(script, endpointBlocks...)
	}
	if len(webBlocks) > 0 {
		script = append(script,
			"",
			sectionDivider,
			"# SECTION 3: WEB & CLOUD SECURITY MITIGATIONS",
			"# NOTE: These actions require manual console steps.",
			"# See Tactical_Remediation_Guideline.md for details.",
			sectionDivider,
			"")
		script = append(script, webBlocks...)
	}
	if len(generalBlocks) > 0 {
		script = append(script, "", sectionDivider, "# SECTION 4: GENERAL / MANUAL REVIEW", sectionDivider, "")
		script = append(script, generalBlocks...)
	}
	script = append(script, footerLines()...)

	scriptPath, err := g.writeArtifact(scriptFilename, script)
	if err != nil {
		return nil, err
	}
	guidelinePath, err := g.writeArtifact(guidelineFilename, guideline)
	if err != nil {
		return nil, err
	}

	logging.Scripting("Remediation script written to %s (%d actions, %d staged)", scriptPath, len(actions), staged)
	logging.Scripting("Remediation guideline written to %s", guidelinePath)

	return &types.ExecutionReport{
		ReportID:          uuid.New().String(),
		GeneratedAt:       time.Now().UTC(),
		ScriptPath:        scriptPath,
		ScriptFilename:    scriptFilename,
		GuidelinePath:     guidelinePath,
		GuidelineFilename: guidelineFilename,
		TotalActions:      len(actions),
		StagedCount:       staged,
		ActionsIncluded:   actions,
	}, nil
}

// writeArtifact joins lines with newlines, writes the file under the
// deployment directory, and returns the absolute path.
func (g *Generator) writeArtifact(filename string, lines []string) (string, error) {
	path := filepath.Join(g.outputDir, filename)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

func approvalWarning(confidence float64, urgency types.Urgency) []string {
	return []string{
		"# ⚠️  APPROVAL REQUIRED — This action was flagged by the decision engine as potentially disruptive.",
		fmt.Sprintf("# Review carefully before running. Confidence: %.0f%% | Urgency: %s", confidence*100, urgency),
	}
}

func headerLines(ts string, total, staged int) []string {
	return []string{
		sectionDivider,
		"# Foresight — Automated Remediation Script",
		fmt.Sprintf("# Generated: %s UTC", ts),
		fmt.Sprintf("# Total Actions: %d  |  Requires Approval: %d", total, staged),
		"#",
		"# HOW TO USE THIS SCRIPT:",
		"#   1. Review every command carefully before running.",
		"#   2. Open PowerShell as Administrator.",
		"#   3. Run: .\\<this_filename>.ps1",
		"#   4. Commands marked '# ROLLBACK:' can undo the change if needed.",
		"#",
		"# WARNING: Some commands modify firewall rules and user accounts.",
		"# Do NOT run on production systems without change-management approval.",
		sectionDivider,
		"",
		"# Ensure running as Administrator",
		"$currentPrincipal = [Security.Principal.WindowsPrincipal][Security.Principal.WindowsIdentity]::GetCurrent()",
		"if (-not $currentPrincipal.IsInRole([Security.Principal.WindowsBuiltInRole]::Administrator)) {",
		"    Write-Host '[ERROR] Please run this script as Administrator.' -ForegroundColor Red",
		"    exit 1",
		"}",
		"",
		"Write-Host '=== Foresight Remediation Script Starting ===' -ForegroundColor Cyan",
		"",
	}
}

func footerLines() []string {
	return []string{
		"",
		sectionDivider,
		"# END OF SCRIPT",
		"Write-Host '' ",
		"Write-Host '=== All remediation commands completed. ===' -ForegroundColor Cyan",
		"Write-Host 'Review the output above for any errors.' -ForegroundColor Yellow",
		sectionDivider,
	}
}

func guidelineHeaderLines(ts string) []string {
	return []string{
		"# 🛡️ Tactical Remediation Guideline",
		fmt.Sprintf("*Generated by Foresight on %s UTC*", ts),
		"",
		"## Executive Summary",
		"This document provides step-by-step manual remediation instructions for security threats that cannot be fully automated via script (e.g., Web App vulnerabilities, Cloud misconfigurations, and complex forensic tasks).",
		"",
		"---",
		"",
	}
}

func actionMarkdownLines(d *types.ResponseDecision, target string) []string {
	marker := "🟡"
	switch d.Urgency {
	case types.UrgencyCritical:
		marker = "🔴"
	case types.UrgencyHigh:
		marker = "🟠"
	}

	md := []string{
		fmt.Sprintf("### %s Action: %s", marker, d.EvaluatedAction),
		fmt.Sprintf("**Target:** `%s`  ", target),
		fmt.Sprintf("**Urgency:** %s | **Session:** `%s`", d.Urgency, d.SessionID),
		"",
		"#### 📋 Mitigation Steps",
	}
	if len(d.MitigationGuidelines) > 0 {
		for _, g := range d.MitigationGuidelines {
			md = append(md, fmt.Sprintf("- [ ] %s", g))
		}
	} else {
		md = append(md, "*No specific guidelines available. Please consult the Security Operations Center (SOC).*")
	}
	return append(md, "", "---", "")
}
