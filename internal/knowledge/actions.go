package knowledge

// ActionCosts scores the operational disruption of each response action
// on a 0 to 1 scale.
var ActionCosts = map[string]float64{
	"Monitor User Behavior":           0.0,
	"Enable Process Auditing":         0.1,
	"Enable Logon Failure Auditing":   0.1,
	"Alert SOC (High Priority)":       0.2,
	"Block Inbound SMB":               0.5,
	"Block Inbound IP":                0.5,
	"Disable Account":                 0.6,
	"Terminate Web Shell Process":     0.7,
	"Restore Security Configurations": 0.4,
	"Restrict File Access":            0.5,
	"Isolate Host":                    0.9,
}

// ConfidenceThresholds is the minimum decision confidence required to
// select each action.
var ConfidenceThresholds = map[string]float64{
	"Monitor User Behavior":           0.0,
	"Enable Process Auditing":         0.1,
	"Enable Logon Failure Auditing":   0.1,
	"Alert SOC (High Priority)":       0.35,
	"Block Inbound SMB":               0.6,
	"Block Inbound IP":                0.6,
	"Disable Account":                 0.75,
	"Terminate Web Shell Process":     0.7,
	"Restore Security Configurations": 0.5,
	"Restrict File Access":            0.6,
	"Isolate Host":                    0.85,
}

// TechniqueResponses maps a predicted technique to candidate
// countermeasures in descending impact order.
var TechniqueResponses = map[string][]string{
	"T1078": {"Disable Account", "Enable Logon Failure Auditing"},
	"T1110": {"Disable Account", "Alert SOC (High Priority)"},
	"T1046": {"Isolate Host", "Enable Process Auditing"},
	"T1021": {"Isolate Host", "Block Inbound SMB"},
	"T1003": {"Isolate Host", "Alert SOC (High Priority)"},
	"T1560": {"Isolate Host", "Alert SOC (High Priority)"},
	"T1041": {"Isolate Host", "Alert SOC (High Priority)"},
	"T1486": {"Isolate Host"},
	"T1190": {"Isolate Host", "Enable Process Auditing"},
	"T1059": {"Isolate Host", "Enable Process Auditing"},
	"T1505": {"Isolate Host", "Terminate Web Shell Process"},
	"T1562": {"Isolate Host", "Restore Security Configurations"},
	"T1592": {"Enable Process Auditing", "Monitor User Behavior"},
	"T1595": {"Block Inbound IP", "Monitor User Behavior"},
	"T1083": {"Enable Process Auditing", "Restrict File Access"},
}

// FallbackResponses applies when a predicted technique has no mapping.
var FallbackResponses = []string{"Monitor User Behavior"}

// RiskReductionEstimates are the heuristic fractions of trajectory risk
// each action removes.
var RiskReductionEstimates = map[string]float64{
	"Enable Logon Failure Auditing":   0.2,
	"Disable Account":                 0.95,
	"Isolate Host":                    0.99,
	"Enable Process Auditing":         0.25,
	"Block Inbound SMB":               0.8,
	"Alert SOC (High Priority)":       0.5,
	"Block Inbound IP":                0.7,
	"Terminate Web Shell Process":     0.9,
	"Restore Security Configurations": 0.4,
	"Restrict File Access":            0.6,
	"Monitor User Behavior":           0.1,
}

// DefaultRiskReduction applies to unmapped actions.
const DefaultRiskReduction = 0.1

// MitigationGuidelines are the analyst playbook bullets attached to each
// selected action.
var MitigationGuidelines = map[string][]string{
	"Monitor User Behavior": {
		"Increase telemetry depth for this principal.",
		"Scan session logs for unusual data access patterns.",
		"Cross-reference activity with known baseline for this role.",
	},
	"Enable Process Auditing": {
		"Activate Sysmon or similar tool to track process creation.",
		"Review command-line arguments for suspicious encoded strings.",
		"Monitor for unauthorized use of living-off-the-land (LotL) binaries.",
	},
	"Enable Logon Failure Auditing": {
		"Track source IPs of failed authentication attempts.",
		"Implement account lockout policies if not already present.",
		"Review VPN/Remote access logs for anomalous geolocation.",
	},
	"Alert SOC (High Priority)": {
		"Immediate notification to IR team for deep-dive analysis.",
		"Preserve volatile memory and artifacts on the source host.",
		"Initiate comprehensive threat hunting in the surrounding segment.",
	},
	"Block Inbound SMB": {
		"Disable NetBIOS and SMB over port 445 on the host.",
		"Verify firewall rules to restrict SMB to admin-only IPs.",
		"Review for lateral movement attempts via PsExec or WMI.",
	},
	"Disable Account": {
		"Revoke all active tokens and sessions immediately.",
		"Reset all associated secrets (passwords, MFA keys).",
		"Conduct audit of last 24 hours of account history.",
	},
	"Isolate Host": {
		"Disconnect host from all internal and external networks.",
		"For Cloud/Web assets: Suspend deployment or enable 'Maintenance Mode' in console.",
		"Scan all other hosts in the same segment for persistence.",
	},
	"Block Inbound IP": {
		"Add source IP to global edge firewall deny list.",
		"Verify if any other internal assets have communicated with this IP.",
		"Initiate WHOIS investigation to determine actor origin.",
	},
	"Terminate Web Shell Process": {
		"Identify parent process (often httpd/nginx/iis) for exploit path.",
		"Quarantine the suspected web shell file for analysis.",
		"Patch the vulnerability used to upload the shell (check CWE-434).",
	},
	"Restore Security Configurations": {
		"Re-enable Defender/AV that was likely disabled by the actor.",
		"Audit firewall rules for new 'allow' entries.",
		"Verify integrity of security logging configuration.",
	},
	"Restrict File Access": {
		"Apply Principle of Least Privilege to sensitive directories.",
		"Enable File Integrity Monitoring (FIM) for core files.",
		"Review for unauthorized modification of permission masks (CWE-264).",
	},
}

// DisruptiveKeywords classify actions that interrupt users or services.
// Matching is substring based over the action name.
var DisruptiveKeywords = []string{"Block", "Isolate", "Disable", "Reset", "Terminate"}
