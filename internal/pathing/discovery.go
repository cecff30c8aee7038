package pathing

import (
	"regexp"
	"strings"

	"foresight/internal/knowledge"
	"foresight/internal/types"
)

// Vulnerability references are pulled from whatever text the event carries.
// Raw log payloads are preferred; when an event has none, the event type and
// technique fields are scanned instead so explicitly tagged events still
// surface their references.
var (
	cveIDPattern    = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,7}`)
	cweIDPattern    = regexp.MustCompile(`(?i)CWE-\d{1,5}`)
	cweFieldPattern = regexp.MustCompile(`['"]cwe_?id['"]:\s*['"]?(\d+)['"]?`)
)

// DiscoverVulnerabilities extracts the CVE and CWE identifiers an event
// references, merging pattern hits from its text with its pre-declared
// observation fields. Identifiers are normalized and deduplicated in
// first-seen order.
func DiscoverVulnerabilities(ev types.EnrichedEvent) (cves, cwes []string) {
	text := ev.RawText
	if strings.TrimSpace(text) == "" {
		text = ev.EventType + " " + ev.MitreTechnique
	}

	cveSeen := make(map[string]bool)
	cweSeen := make(map[string]bool)

	addCVE := func(id string) {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" || cveSeen[id] {
			return
		}
		cveSeen[id] = true
		cves = append(cves, id)
	}
	addCWE := func(id string) {
		id = canonicalCWE(id)
		if id == "" || cweSeen[id] {
			return
		}
		cweSeen[id] = true
		cwes = append(cwes, id)
	}

	for _, id := range ev.ObservedCVEIDs {
		addCVE(id)
	}
	for _, id := range ev.ObservedCWEIDs {
		addCWE(id)
	}
	for _, m := range cveIDPattern.FindAllString(text, -1) {
		addCVE(m)
	}
	for _, m := range cweIDPattern.FindAllString(text, -1) {
		addCWE(m)
	}
	for _, m := range cweFieldPattern.FindAllStringSubmatch(text, -1) {
		addCWE("CWE-" + m[1])
	}
	return cves, cwes
}

// InferTechnique guesses the technique behind an event from the first
// weakness it references. Returns "" when no hint applies.
func InferTechnique(cwes []string) string {
	for _, cwe := range cwes {
		if tech, ok := knowledge.CWEPrimaryTechnique[cwe]; ok {
			return tech
		}
	}
	return ""
}

// canonicalCWE maps "cwe-79", "CWE_79" and bare digits onto the CWE-<n>
// form used by the catalog and the knowledge tables.
func canonicalCWE(id string) string {
	s := strings.ToUpper(strings.TrimSpace(id))
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "CWE-") {
		s = "CWE-" + strings.TrimPrefix(s, "CWE")
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}
