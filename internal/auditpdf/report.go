// Package auditpdf renders the strategic audit document: one PDF that
// consolidates the forecasts, the decided mitigations, the generated
// remediation package and the current governance posture for SOC record
// keeping.
package auditpdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"foresight/internal/logging"
	"foresight/internal/types"
)

const (
	pageWidth  = 210.0
	pageHeight = 297.0
)

// Generator writes audit reports into a fixed output directory.
type Generator struct {
	outputDir string
}

// NewGenerator returns a Generator that writes into outputDir. The
// directory is created on first use.
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// Generate renders the audit PDF for one analysis cycle and returns the
// absolute path of the written file. The active model configuration is
// mandatory; every other input may be empty or nil for cycles that
// produced no findings.
func (g *Generator) Generate(forecasts []*types.PredictionSummary, decisions []*types.ResponseDecision, pkg *types.ExecutionReport, cfg *types.ModelConfiguration) (string, error) {
	timer := logging.StartTimer(logging.CategoryGovernance, "Generate audit report")
	defer timer.Stop()

	if cfg == nil {
		return "", fmt.Errorf("audit report needs an active model configuration: %w", types.ErrConfigurationConflict)
	}
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	now := time.Now().UTC()
	filename := fmt.Sprintf("Foresight_Audit_Report_%s.pdf", now.Format("20060102_150405"))
	path := filepath.Join(g.outputDir, filename)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	banner(pdf, now)
	executiveSummary(pdf)
	threatAnalysis(pdf, forecasts)
	mitigationStrategies(pdf, decisions)
	remediationImplementation(pdf, pkg)
	governancePosture(pdf, forecasts, pkg, cfg)
	footer(pdf)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write audit report: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	logging.Governance("Audit report written to %s", filename)
	return path, nil
}

// banner paints the dark title block across the top of the first page.
func banner(pdf *gofpdf.Fpdf, now time.Time) {
	pdf.SetFillColor(10, 25, 41)
	pdf.Rect(0, 0, pageWidth, 60, "F")

	pdf.SetY(10)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(0, 195, 255)
	pdf.CellFormat(0, 10, "FORESIGHT", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 8, "Cyber Security Strategic Audit Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(200, 200, 200)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", now.Format("January 02, 2006 15:04:05 UTC")), "", 1, "C", false, 0, "")

	pdf.SetY(45)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 5, "CONFIDENTIAL - SOC AUDIT DOCUMENTATION", "", 1, "C", false, 0, "")

	pdf.SetY(65)
	pdf.SetTextColor(0, 0, 0)
}

// sectionHeader draws one numbered section bar in the light blue style
// used throughout the document.
func sectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 245, 255)
	pdf.SetTextColor(10, 25, 41)
	pdf.CellFormat(0, 8, "  "+title, "", 1, "", true, 0, "")
	pdf.Ln(3)
	pdf.SetTextColor(0, 0, 0)
}

// pageBreakIfNeeded starts a fresh page when less than minSpace mm
// remain, so a section heading never ends up orphaned at the bottom.
func pageBreakIfNeeded(pdf *gofpdf.Fpdf, minSpace float64) {
	if pdf.GetY() > pageHeight-minSpace {
		pdf.AddPage()
	}
}

func executiveSummary(pdf *gofpdf.Fpdf) {
	sectionHeader(pdf, "1. EXECUTIVE SUMMARY")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6,
		"This report summarizes a complete defensive analysis cycle executed by the "+
			"Foresight pipeline. The cycle covers threat identification (session analysis "+
			"and trajectory forecasting), strategic response planning (decision engine), "+
			"automated remediation generation (script builder) and governance oversight "+
			"(trust ledger). All high-probability threats identified in this cycle have "+
			"been processed through the mitigation engine.",
		"", "", false)
}

func threatAnalysis(pdf *gofpdf.Fpdf, forecasts []*types.PredictionSummary) {
	sectionHeader(pdf, "2. THREAT ANALYSIS & FORECASTING")
	for _, f := range forecasts {
		if f == nil {
			continue
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, fmt.Sprintf("Analysis Target: %s", f.SessionID), "", 1, "", false, 0, "")

		weaknesses := "None Identified"
		if len(f.CurrentState.ObservedVulnerabilities) > 0 {
			weaknesses = strings.Join(f.CurrentState.ObservedVulnerabilities, ", ")
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Captured Weaknesses: %s", weaknesses), "", 1, "", false, 0, "")

		if len(f.PredictedScenarios) > 0 {
			primary := f.PredictedScenarios[0]
			head := primary.Sequence
			if len(head) > 3 {
				head = head[:3]
			}
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, fmt.Sprintf("PROJECTED TRAJECTORY: %.0f%%-Confidence path reaching %s...",
				primary.Probability*100, strings.Join(head, ", ")), "", "", false)
		}
		pdf.Ln(3)
	}
}

func mitigationStrategies(pdf *gofpdf.Fpdf, decisions []*types.ResponseDecision) {
	sectionHeader(pdf, "3. RECOMMENDED MITIGATION STRATEGIES")
	for _, d := range decisions {
		if d == nil {
			continue
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(25, 6, "ACTION:", "", 0, "", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s on %s", d.EvaluatedAction, d.TargetEntity.Identifier), "", 1, "", false, 0, "")

		if len(d.MitigationGuidelines) > 0 {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(10, 4, "", "", 0, "", false, 0, "")
			pdf.MultiCell(0, 4, "Tactical Steps: "+strings.Join(d.MitigationGuidelines, " | "), "", "", false)
		}
		pdf.Ln(1)
	}
}

func remediationImplementation(pdf *gofpdf.Fpdf, pkg *types.ExecutionReport) {
	sectionHeader(pdf, "4. REMEDIATION IMPLEMENTATION")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 8, "Generated Remediation Package:", "", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Final Artifact: %s", scriptArtifact(pkg)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, "Status: Context-Aware PowerShell Script & Tactical Guideline Generated.", "", 1, "", false, 0, "")
}

func governancePosture(pdf *gofpdf.Fpdf, forecasts []*types.PredictionSummary, pkg *types.ExecutionReport, cfg *types.ModelConfiguration) {
	pageBreakIfNeeded(pdf, 60)
	sectionHeader(pdf, "5. GOVERNANCE POSTURE & TAKEAWAYS")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, "System Trust State:", "", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Active Model Version: %s", cfg.VersionID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Containment Threshold: %.1f%%", cfg.ContainmentThreshold*100), "", 1, "", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, "Key Security Takeaways:", "", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, takeaway := range takeaways(forecasts, pkg, cfg) {
		pdf.MultiCell(0, 5, takeaway, "", "", false)
		pdf.Ln(1)
	}
}

// takeaways builds the four closing observations from whatever the
// cycle actually produced.
func takeaways(forecasts []*types.PredictionSummary, pkg *types.ExecutionReport, cfg *types.ModelConfiguration) []string {
	totalVulns := 0
	for _, f := range forecasts {
		if f != nil {
			totalVulns += len(f.CurrentState.ObservedVulnerabilities)
		}
	}

	totalActions := 0
	var actionTypes []string
	if pkg != nil {
		totalActions = len(pkg.ActionsIncluded)
		if totalActions == 0 {
			totalActions = len(pkg.Executions)
		}
		seen := make(map[string]bool)
		for _, a := range append(append([]types.ActionOutcome{}, pkg.ActionsIncluded...), pkg.Executions...) {
			if a.Action != "" && !seen[a.Action] {
				seen[a.Action] = true
				actionTypes = append(actionTypes, a.Action)
			}
		}
	}

	defense := "2. Defense Response: No active remediation actions were required for this session."
	if len(actionTypes) > 0 {
		covered := actionTypes
		if len(covered) > 3 {
			covered = covered[:3]
		}
		defense = fmt.Sprintf("2. Defense Response: Generated %d validated remediation actions covering %s.",
			totalActions, strings.Join(covered, ", "))
	}

	trustDirection := "tightening"
	if cfg.TrustMomentum > 0 {
		trustDirection = "relaxing"
	}

	return []string{
		fmt.Sprintf("1. Attack Surface: Identified %d distinct vulnerability matches across the analysis targets.", totalVulns),
		defense,
		fmt.Sprintf("3. Operational Status: Remediation package '%s' is staged for SOC deployment.", filepath.Base(scriptArtifact(pkg))),
		fmt.Sprintf("4. Continuous Monitoring: System trust is %s based on a success streak of %d sessions.", trustDirection, cfg.SuccessStreak),
	}
}

func scriptArtifact(pkg *types.ExecutionReport) string {
	if pkg == nil || pkg.ScriptFilename == "" {
		return "N/A"
	}
	return pkg.ScriptFilename
}

func footer(pdf *gofpdf.Fpdf) {
	pdf.SetY(-25)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 10, "End of Strategic Audit Report - Foresight Governance Engine", "", 0, "R", false, 0, "")
}
