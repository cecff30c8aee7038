package knowledge

import (
	"fmt"
	"strings"
)

// cweNames humanizes the weakness IDs that show up in detection text.
var cweNames = map[string]string{
	"CWE-89":   "SQL Injection",
	"CWE-78":   "OS Command Injection",
	"CWE-79":   "Cross-site Scripting (XSS)",
	"CWE-434":  "Unrestricted File Upload",
	"CWE-22":   "Path Traversal (File Access)",
	"CWE-94":   "Code Injection",
	"CWE-20":   "Improper Input Validation",
	"CWE-352":  "Cross-Site Request Forgery (CSRF)",
	"CWE-611":  "XML External Entity (XXE)",
	"CWE-918":  "Server-Side Request Forgery (SSRF)",
	"CWE-287":  "Improper Authentication",
	"CWE-798":  "Hardcoded Credentials",
	"CWE-200":  "Information Exposure",
	"CWE-693":  "Protection Mechanism Failure",
	"CWE-264":  "Incorrect Permissions (Access Control)",
	"CWE-525":  "Sensitive Information in Brower Cache",
	"CWE-1021": "Clickjacking (UI Redressing)",
	"CWE-615":  "Sensitive Info in Source Comments",
	"CWE-276":  "Incorrect Default Permissions",
	"CWE-284":  "Improper Access Control",
	"CWE-306":  "Missing Authentication for Critical Function",
	"CWE-307":  "Improper Restriction of Excessive Authentication Attempts (Brute Force)",
	"CWE-521":  "Weak Password Requirements",
	"CWE-285":  "Improper Authorization",
	"CWE-77":   "Command Injection",
	"CWE-209":  "Information Exposure through an Error Message",
}

// HumanizeCWE turns a CWE ID into a readable weakness name, falling back
// to the raw ID.
func HumanizeCWE(id string) string {
	if name, ok := cweNames[canonicalCWE(id)]; ok {
		return name
	}
	return id
}

// canonicalCWE normalizes bare numbers and lowercase prefixes to
// "CWE-<n>" form.
func canonicalCWE(id string) string {
	id = strings.TrimSpace(id)
	upper := strings.ToUpper(id)
	if strings.HasPrefix(upper, "CWE-") {
		return upper
	}
	if strings.HasPrefix(upper, "CWE") {
		return "CWE-" + strings.TrimPrefix(upper, "CWE")
	}
	return "CWE-" + upper
}

// CWEPrimaryTechnique maps a weakness to the single technique it most
// directly enables. Used when an event carries a CWE but no technique.
var CWEPrimaryTechnique = map[string]string{
	"CWE-798":  "T1078",
	"CWE-287":  "T1078",
	"CWE-306":  "T1078",
	"CWE-94":   "T1059",
	"CWE-89":   "T1190",
	"CWE-78":   "T1059",
	"CWE-434":  "T1505",
	"CWE-22":   "T1083",
	"CWE-20":   "T1190",
	"CWE-79":   "T1190",
	"CWE-264":  "T1078",
	"CWE-693":  "T1562",
	"CWE-525":  "T1046",
	"CWE-615":  "T1592",
	"CWE-1021": "T1204",
	"CWE-200":  "T1046",
}

// CWEEnabledTechniques maps a weakness to every technique it can
// plausibly enable. Used by the forecaster for seeding and transition
// weighting.
var CWEEnabledTechniques = map[string][]string{
	"CWE-798":  {"T1078"},
	"CWE-287":  {"T1078", "T1110"},
	"CWE-306":  {"T1078"},
	"CWE-94":   {"T1059", "T1190"},
	"CWE-89":   {"T1190", "T1059"},
	"CWE-78":   {"T1059", "T1190"},
	"CWE-434":  {"T1505", "T1190"},
	"CWE-22":   {"T1083"},
	"CWE-20":   {"T1190"},
	"CWE-79":   {"T1190"},
	"CWE-264":  {"T1078"},
	"CWE-693":  {"T1562"},
	"CWE-525":  {"T1046"},
	"CWE-615":  {"T1592"},
	"CWE-1021": {"T1204"},
	"CWE-209":  {"T1592", "T1046"},
	"CWE-307":  {"T1110"},
}

// TechniqueCWEHeuristics lists weaknesses an attacker most likely relied
// on when a technique is observed without explicit vulnerability context.
var TechniqueCWEHeuristics = map[string][]string{
	"T1190": {"CWE-20", "CWE-78", "CWE-89", "CWE-434"},
	"T1059": {"CWE-94", "CWE-77"},
	"T1110": {"CWE-307", "CWE-521"},
	"T1078": {"CWE-287", "CWE-284"},
	"T1046": {"CWE-200"},
	"T1021": {"CWE-285", "CWE-306"},
	"T1550": {"CWE-287"},
	"T1558": {"CWE-312", "CWE-287"},
	"T1112": {"CWE-284"},
}

// JoinCWENames renders a comma list of humanized weakness names for
// summary lines.
func JoinCWENames(ids []string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, HumanizeCWE(id))
	}
	return strings.Join(names, ", ")
}

// CWERef formats a numeric weakness identifier as CWE-<n>.
func CWERef(n int) string {
	return fmt.Sprintf("CWE-%d", n)
}
