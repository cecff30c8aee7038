// Package scripting turns response decisions into a reviewable remediation
// package: one PowerShell script for automatable actions plus a tactical
// guideline document for manual steps. Nothing is ever executed by this
// system; both artifacts are written to disk for an operator to review and
// run by hand.
package scripting

import (
	"fmt"
	"strconv"
	"strings"

	"foresight/internal/types"
)

// Action families. Classification decides which script section an action
// lands in and is independent of whether a command template exists for it.
var (
	networkActions = map[string]bool{
		"Block Inbound SMB": true,
		"Block Outbound C2": true,
		"Isolate Host":      true,
		"Rate Limit User":   true,
	}

	endpointActions = map[string]bool{
		"Disable Account":               true,
		"Reset Password":                true,
		"Enable Process Auditing":       true,
		"Enable Logon Failure Auditing": true,
		"Terminate Process":             true,
		"Monitor User Behavior":         true,
	}

	webActions = map[string]bool{
		"Terminate Web Shell Process":     true,
		"Restore Security Configurations": true,
		"Restrict File Access":            true,
		"Block Inbound IP":                true,
	}
)

// Remediation domains used for section routing and report breakdowns.
const (
	DomainNetwork  = "Network"
	DomainEndpoint = "Endpoint"
	DomainWeb      = "Web"
	DomainGeneral  = "General"
)

// ClassifyDomain maps an action type onto its remediation domain.
func ClassifyDomain(action string) string {
	switch {
	case networkActions[action]:
		return DomainNetwork
	case endpointActions[action]:
		return DomainEndpoint
	case webActions[action]:
		return DomainWeb
	default:
		return DomainGeneral
	}
}

// buildBlock returns the PowerShell lines for one action. Web actions get
// guidance stubs pointing at the guideline document; actions without a
// command template fall back to a manual-review block.
func buildBlock(action, target, sessionID string, vuln *types.VulnerabilityDetails, guidelines []string) []string {
	var cvss float64
	if vuln != nil {
		cvss = vuln.MaxCVSS
	}
	switch action {
	case "Block Inbound SMB":
		return blockSMBLines(target, sessionID, cvss)
	case "Isolate Host":
		return isolateHostLines(target, sessionID)
	case "Rate Limit User":
		return rateLimitLines(target, sessionID)
	case "Disable Account":
		return disableAccountLines(target, sessionID)
	case "Reset Password":
		return resetPasswordLines(target, sessionID)
	case "Enable Process Auditing":
		return processAuditingLines(sessionID)
	case "Enable Logon Failure Auditing":
		return logonAuditingLines(sessionID)
	case "Monitor User Behavior":
		return monitorUserLines(target, sessionID)
	case "Terminate Web Shell Process", "Restore Security Configurations",
		"Restrict File Access", "Block Inbound IP":
		return webGuidanceLines(action, target, sessionID, guidelines)
	default:
		return manualReviewLines(action, target, sessionID, guidelines)
	}
}

func blockSMBLines(target, sessionID string, cvss float64) []string {
	return []string{
		fmt.Sprintf("# [NETWORK] Block Inbound SMB — Session: %s", sessionID),
		fmt.Sprintf("# Threat: SMB lateral movement detected. CVSS Score: %s", formatScore(cvss)),
		"# This rule blocks TCP port 445 from the suspicious source IP.",
		"netsh advfirewall firewall add rule `",
		fmt.Sprintf("    name='Foresight-BlockSMB-%s' `", target),
		"    dir=in action=block protocol=TCP `",
		fmt.Sprintf("    localport=445 remoteip=%s", target),
		fmt.Sprintf("Write-Host '[DONE] SMB blocked from %s' -ForegroundColor Green", target),
		"",
	}
}

func isolateHostLines(target, sessionID string) []string {
	return []string{
		fmt.Sprintf("# [NETWORK] Full Host Isolation — Session: %s", sessionID),
		"# WARNING: This will block ALL inbound and outbound traffic on this machine.",
		fmt.Sprintf("# Run on the compromised host: %s", target),
		"netsh advfirewall set allprofiles firewallpolicy blockinbound,blockoutbound",
		fmt.Sprintf("Write-Host '[DONE] Host %s is now ISOLATED' -ForegroundColor Red", target),
		"",
	}
}

func rateLimitLines(target, sessionID string) []string {
	return []string{
		fmt.Sprintf("# [NETWORK] Rate Limit Suspicious User — Session: %s", sessionID),
		fmt.Sprintf("# Applies a QoS policy to throttle traffic from %s", target),
		fmt.Sprintf("New-NetQosPolicy -Name 'Foresight-RateLimit-%s' `", target),
		fmt.Sprintf("    -IPSrcPrefix %s/32 `", target),
		"    -ThrottleRateActionBitsPerSecond 1MB",
		fmt.Sprintf("Write-Host '[DONE] Rate limit applied to %s' -ForegroundColor Yellow", target),
		"",
	}
}

func disableAccountLines(target, sessionID string) []string {
	return []string{
		fmt.Sprintf("# [ENDPOINT] Disable Compromised Account — Session: %s", sessionID),
		"# Disables the user account to prevent further access.",
		fmt.Sprintf("# Target account: %s", target),
		fmt.Sprintf(`net user "%s" /active:no`, target),
		fmt.Sprintf("Write-Host '[DONE] Account %s has been disabled' -ForegroundColor Green", target),
		fmt.Sprintf(`# ROLLBACK: net user "%s" /active:yes`, target),
		"",
	}
}

func resetPasswordLines(target, sessionID string) []string {
	return []string{
		fmt.Sprintf("# [ENDPOINT] Force Password Reset — Session: %s", sessionID),
		"# Forces the user to reset their password on next login.",
		fmt.Sprintf(`net user "%s" /logonpasswordchg:yes`, target),
		fmt.Sprintf("Write-Host '[DONE] Password reset forced for %s' -ForegroundColor Green", target),
		"",
	}
}

func processAuditingLines(sessionID string) []string {
	return []string{
		fmt.Sprintf("# [ENDPOINT] Enable Process Creation Auditing — Session: %s", sessionID),
		"# Records every process launch in the Windows Security Event Log.",
		"# This is critical for detecting malware execution chains.",
		`auditpol /set /subcategory:"Process Creation" /success:enable /failure:enable`,
		"Write-Host '[DONE] Process auditing enabled' -ForegroundColor Green",
		`# ROLLBACK: auditpol /set /subcategory:"Process Creation" /success:disable /failure:disable`,
		"",
	}
}

func logonAuditingLines(sessionID string) []string {
	return []string{
		fmt.Sprintf("# [ENDPOINT] Enable Logon Failure Auditing — Session: %s", sessionID),
		"# Records failed login attempts — key indicator of brute-force attacks.",
		`auditpol /set /subcategory:"Logon" /failure:enable`,
		"Write-Host '[DONE] Logon failure auditing enabled' -ForegroundColor Green",
		`# ROLLBACK: auditpol /set /subcategory:"Logon" /failure:disable`,
		"",
	}
}

func monitorUserLines(target, sessionID string) []string {
	return []string{
		fmt.Sprintf("# [ENDPOINT] Increase Monitoring for Suspicious User — Session: %s", sessionID),
		fmt.Sprintf("# Enables verbose logging for the target account: %s", target),
		"# This uses Windows Advanced Audit Policy for user-level tracking.",
		fmt.Sprintf(`auditpol /set /user:"%s" /subcategory:"Detailed File Share" /success:enable`, target),
		fmt.Sprintf(`auditpol /set /user:"%s" /subcategory:"Logon" /success:enable /failure:enable`, target),
		fmt.Sprintf("Write-Host '[DONE] Enhanced monitoring active for %s' -ForegroundColor Cyan", target),
		"",
	}
}

func webGuidanceLines(action, target, sessionID string, guidelines []string) []string {
	lines := []string{
		fmt.Sprintf("# [WEB] %s — Session: %s", action, sessionID),
		"Write-Host '[GUIDANCE] This action requires manual steps on the web console/server.' -ForegroundColor Cyan",
		fmt.Sprintf("Write-Host 'Target: %s' -ForegroundColor White", target),
		"# See Tactical_Remediation_Guideline.md for full step-by-step instructions.",
	}
	for _, g := range guidelines {
		lines = append(lines, fmt.Sprintf("# • %s", g))
	}
	return append(lines, "")
}

func manualReviewLines(action, target, sessionID string, guidelines []string) []string {
	lines := []string{
		fmt.Sprintf("# [GENERAL] %s — Session: %s", action, sessionID),
		"# No specific command template available for this action.",
		fmt.Sprintf("# Manual review required for target: %s", target),
		fmt.Sprintf("Write-Host '[MANUAL] Review required: %s on %s' -ForegroundColor Yellow", action, target),
	}
	for _, g := range guidelines {
		lines = append(lines, fmt.Sprintf("# • %s", g))
	}
	return append(lines, "")
}

// formatScore keeps the shortest decimal form and pins whole numbers to
// one decimal place, so 10 reads as 10.0.
func formatScore(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
