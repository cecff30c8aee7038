// Package pathing reconstructs per-session attack paths. It places events on
// a temporal graph, discovers vulnerability references, scores behavioral
// anomaly, and emits the PathReport consumed by the trajectory forecaster.
package pathing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"foresight/internal/knowledge"
	"foresight/internal/logging"
	"foresight/internal/types"
	"foresight/internal/vulnintel"
)

// Analyzer turns sessions into path reports. Catalog failures degrade to
// zero-value intelligence; the analyzer itself only fails on empty input.
type Analyzer struct {
	intel vulnintel.Reader
}

// NewAnalyzer builds an analyzer over the given catalog reader. A nil reader
// runs the analyzer in degraded mode with behavioral signals only.
func NewAnalyzer(intel vulnintel.Reader) *Analyzer {
	return &Analyzer{intel: intel}
}

// Analyze builds the path report for one session.
func (a *Analyzer) Analyze(ctx context.Context, sess *types.Session) (*types.PathReport, error) {
	if sess == nil || len(sess.Events) == 0 {
		return nil, fmt.Errorf("session has no events: %w", types.ErrEmptySession)
	}

	timer := logging.StartTimer(logging.CategoryPathing, "analyze "+sess.SessionID)
	defer timer.Stop()

	events := make([]types.EnrichedEvent, len(sess.Events))
	copy(events, sess.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	var (
		techniques   []string
		explicitCVEs []string
		explicitCWEs []string
		techSeen     = make(map[string]bool)
		cveSeen      = make(map[string]bool)
		cweSeen      = make(map[string]bool)
		eventSummary = make(map[string]int)
	)
	addTechnique := func(id string) {
		if id == "" || id == "Unknown" || techSeen[id] {
			return
		}
		techSeen[id] = true
		techniques = append(techniques, id)
	}

	for i := range events {
		ev := &events[i]
		cves, cwes := DiscoverVulnerabilities(*ev)
		for _, id := range cves {
			if !cveSeen[id] {
				cveSeen[id] = true
				explicitCVEs = append(explicitCVEs, id)
			}
		}
		for _, id := range cwes {
			if !cweSeen[id] {
				cweSeen[id] = true
				explicitCWEs = append(explicitCWEs, id)
			}
		}
		if ev.MitreTechnique == "" || ev.MitreTechnique == "Unknown" {
			if inferred := InferTechnique(cwes); inferred != "" {
				logging.PathingDebug("Inferred technique %s for event %s from weakness context", inferred, ev.EventID)
				ev.MitreTechnique = inferred
			}
		}
		addTechnique(ev.MitreTechnique)
		eventSummary[ev.EventType]++
	}

	graph := BuildGraph(events)

	// Heuristic weaknesses widen the cluster picture for techniques seen
	// without explicit vulnerability context. They never feed technique
	// augmentation; that would be circular.
	var heuristicCWEs []string
	heurSeen := make(map[string]bool)
	for _, tech := range techniques {
		for _, cwe := range knowledge.TechniqueCWEHeuristics[tech] {
			if !cweSeen[cwe] && !heurSeen[cwe] {
				heurSeen[cwe] = true
				heuristicCWEs = append(heuristicCWEs, cwe)
			}
		}
	}
	allCWEs := append(append([]string{}, explicitCWEs...), heuristicCWEs...)

	profile := a.buildVulnerabilityProfile(ctx, explicitCVEs, explicitCWEs, allCWEs, addTechnique)

	if len(profile.lines) == 0 {
		for _, tech := range techniques {
			profile.lines = append(profile.lines,
				fmt.Sprintf("Behavioral Detection: %s (%s)", knowledge.TechniqueName(tech), tech))
		}
	}

	clusters := a.collectClusters(ctx, allCWEs)

	score := anomalyScore(len(techniques), len(events), profile.kevCount, profile.maxCVSS)
	risk := businessRisk(score, profile.kevCount, profile.maxCVSS)

	deepestPhase, deepestRank := knowledge.DeepestPhase(techniques)
	branches, ok := knowledge.NextStepsByPhase[deepestPhase]
	if !ok {
		branches = knowledge.NextStepsByPhase["Unknown"]
	}
	vector := make([]types.PathPrediction, 0, len(branches))
	for _, b := range branches {
		vector = append(vector, types.PathPrediction{NextNode: b.NextPhase, Probability: b.Probability})
	}

	report := &types.PathReport{
		SessionID:            sess.SessionID,
		RootCauseNode:        graph.RootCause(),
		BlastRadius:          sess.DistinctHosts(),
		PathAnomalyScore:     score,
		PredictionVector:     vector,
		VulnerabilitySummary: profile.lines,
		ObservedTechniques:   techniques,
		CWEClusters:          clusters,
		EventSummary:         eventSummary,
		TacticalNarrative:    tacticalNarrative(len(events), profile.kevCount, profile.maxCVSS, eventSummary),
		PlainLanguageSummary: plainSummary(profile.lines, profile.kevCount, deepestRank, score, eventSummary),
		BusinessRiskLevel:    risk,
		GeneratedAt:          time.Now().UTC(),
	}

	logging.Pathing("Session %s: anomaly %.2f, risk %s, %d techniques, %d vulnerability findings",
		sess.SessionID, score, risk, len(techniques), len(profile.lines))
	return report, nil
}

type vulnProfile struct {
	lines    []string
	kevCount int
	maxCVSS  float64
}

// buildVulnerabilityProfile resolves every explicit CVE against the catalog
// and assembles the human summary lines. Catalog weaknesses attached to a
// CVE, and explicitly observed weaknesses, widen the technique list through
// the primary-technique hint table.
func (a *Analyzer) buildVulnerabilityProfile(ctx context.Context, cves, explicitCWEs, allCWEs []string, addTechnique func(string)) vulnProfile {
	p := vulnProfile{}
	covered := make(map[string]bool)
	explicit := make(map[string]bool, len(explicitCWEs))
	for _, cwe := range explicitCWEs {
		explicit[cwe] = true
	}

	sortedCVEs := append([]string{}, cves...)
	sort.Strings(sortedCVEs)
	for _, cve := range sortedCVEs {
		d := a.vulnDetails(ctx, cve)
		if d.IsKEV {
			p.kevCount++
		}
		if d.CVSS > p.maxCVSS {
			p.maxCVSS = d.CVSS
		}

		attackName := d.KEVName
		if attackName == "" && len(d.CWEs) > 0 {
			attackName = knowledge.JoinCWENames(d.CWEs)
		}
		if attackName == "" {
			attackName = firstSentence(d.Description)
		}
		if attackName == "" {
			attackName = "Vulnerability Match"
		}

		line := fmt.Sprintf("%s: %s (CVSS: %s)", cve, attackName, formatCVSS(d.CVSS))
		if d.IsKEV {
			line += " [KEV]"
		}
		p.lines = append(p.lines, line)

		for _, cwe := range d.CWEs {
			covered[cwe] = true
			if tech, ok := knowledge.CWEPrimaryTechnique[cwe]; ok {
				addTechnique(tech)
			}
		}
	}

	sortedCWEs := append([]string{}, allCWEs...)
	sort.Strings(sortedCWEs)
	for _, cwe := range sortedCWEs {
		if covered[cwe] {
			continue
		}
		p.lines = append(p.lines, fmt.Sprintf("%s: %s", cwe, a.resolveCWEName(ctx, cwe)))
		if explicit[cwe] {
			if tech, ok := knowledge.CWEPrimaryTechnique[cwe]; ok {
				addTechnique(tech)
			}
		}
	}
	return p
}

// vulnDetails wraps the catalog lookup with the degrade-to-zero contract.
func (a *Analyzer) vulnDetails(ctx context.Context, cveID string) vulnintel.Details {
	if a.intel == nil {
		return vulnintel.Details{CVEID: cveID}
	}
	d, err := a.intel.VulnDetails(ctx, cveID)
	if err != nil {
		logging.PathingDebug("Catalog lookup failed for %s: %v", cveID, err)
		return vulnintel.Details{CVEID: cveID}
	}
	return d
}

func (a *Analyzer) cweDetails(ctx context.Context, cweID string) vulnintel.Weakness {
	if a.intel == nil {
		return vulnintel.Weakness{CWEID: cweID}
	}
	w, err := a.intel.CWEDetails(ctx, cweID)
	if err != nil {
		logging.PathingDebug("Catalog lookup failed for %s: %v", cweID, err)
		return vulnintel.Weakness{CWEID: cweID}
	}
	return w
}

// resolveCWEName picks the display name for a weakness. The fixed
// humanization table wins over the catalog; catalog gaps fall back to
// research prompts rather than raw identifiers.
func (a *Analyzer) resolveCWEName(ctx context.Context, cweID string) string {
	if name := knowledge.HumanizeCWE(cweID); name != cweID {
		return name
	}
	w := a.cweDetails(ctx, cweID)
	switch w.Name {
	case "":
		return "Security Policy Weakness"
	case "Unknown":
		return "Security Weakness (Research Required)"
	default:
		return w.Name
	}
}

// collectClusters gathers the catalog abstraction classes of every observed
// weakness, dropping unknowns.
func (a *Analyzer) collectClusters(ctx context.Context, cwes []string) []string {
	set := make(map[string]bool)
	for _, cwe := range cwes {
		w := a.cweDetails(ctx, cwe)
		if w.Abstraction != "" && w.Abstraction != "Unknown" {
			set[w.Abstraction] = true
		}
	}
	clusters := make([]string, 0, len(set))
	for abstraction := range set {
		clusters = append(clusters, abstraction)
	}
	sort.Strings(clusters)
	return clusters
}

// anomalyScore blends technique diversity with event volume, then applies
// the impact multiplier for exploited or near-critical vulnerabilities.
func anomalyScore(techniqueCount, eventCount, kevCount int, maxCVSS float64) float64 {
	diversity := math.Min(float64(techniqueCount)*10, 70)
	volume := math.Min(math.Log10(float64(eventCount)+1)*10, 30)
	score := diversity + volume
	if score > 0 {
		if kevCount > 0 {
			score = math.Min(score*1.5, 100)
		} else if maxCVSS >= 9.0 {
			score = math.Min(score*1.25, 95)
		}
	}
	return roundTo(math.Min(score, 100), 2)
}

func businessRisk(score float64, kevCount int, maxCVSS float64) types.BusinessRiskLevel {
	switch {
	case score > 70 || kevCount > 0:
		return types.RiskHigh
	case score > 30 || maxCVSS >= 9.0:
		return types.RiskMedium
	case score > 10:
		return types.RiskLow
	default:
		return types.RiskInformational
	}
}

func tacticalNarrative(eventCount, kevCount int, maxCVSS float64, eventSummary map[string]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Detected %d correlated events in this behavioral session. ", eventCount)
	if kevCount > 0 {
		fmt.Fprintf(&b, "CRITICAL: Found %d vulnerabilities from the CISA Known Exploited Vulnerabilities (KEV) catalog! ", kevCount)
	} else if maxCVSS >= 9.0 {
		b.WriteString("ALERT: High-severity vulnerabilities detected. ")
	}
	if n := eventSummary["security_alert"]; n > 0 {
		fmt.Fprintf(&b, "Analysis reveals %d explicit security alerts. ", n)
	}
	if n := eventSummary["auth_failure"]; n > 0 {
		fmt.Fprintf(&b, "Detected %d authentication failures suggesting brute-force attempts. ", n)
	}
	if eventSummary["system_audit"] > 0 {
		b.WriteString("Integrity monitoring has flagged unauthorized system modifications. ")
	}
	return strings.TrimSpace(b.String())
}

func plainSummary(vulnLines []string, kevCount, deepestRank int, score float64, eventSummary map[string]int) string {
	switch {
	case kevCount > 0:
		return fmt.Sprintf("CRITICAL: Identified known exploit attempts involving %s. Immediate containment recommended.",
			topAttack(vulnLines))
	case deepestRank >= 5:
		return "URGENT: Attacker has successfully achieved persistence or internal lateral movement. Data access is likely imminent."
	case deepestRank >= 4:
		return "ALERT: Unauthorized code execution detected. The attacker is actively running commands on your assets."
	case eventSummary["security_alert"] > 0:
		return "Unusual security patterns detected. System behavior matches known attacker techniques."
	case score > 50:
		return "Highly suspicious movement identified. Multiple high-risk vulnerabilities are being probed."
	default:
		return "Routine system activity or reconnaissance. No immediate compromise of core logic detected."
	}
}

// topAttack extracts the attack name from the first summary line.
func topAttack(vulnLines []string) string {
	if len(vulnLines) > 0 {
		if idx := strings.Index(vulnLines[0], ":"); idx >= 0 {
			return strings.TrimSpace(vulnLines[0][idx+1:])
		}
	}
	return "suspicious activity"
}

// firstSentence truncates a catalog description to its leading sentence.
func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "."); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// formatCVSS renders a score the way feeds print them: whole numbers keep
// one decimal (10.0), fractional values print exactly.
func formatCVSS(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
