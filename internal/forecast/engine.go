// Package forecast projects attack trajectories out of a path report. It
// seeds a transition-matrix walk from the attack front, weights edges with
// catalog intelligence, and emits ranked scenarios with dwell-time windows
// and an aggregate confidence for the decision engine.
package forecast

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"foresight/internal/knowledge"
	"foresight/internal/logging"
	"foresight/internal/types"
	"foresight/internal/vulnintel"
)

const modelVersion = "v4.0-Vuln-Aware"

// Edge weight and dwell modifiers applied during the walk.
const (
	weaknessBoost  = 1.4
	kevBoost       = 1.2
	kevDwellFactor = 0.6
	stagingSynergy = 1.5
	seedFallback   = "T1595"
	initialTrigger = "Initial Access"
)

// Summary lines are canonical, so plain uppercase patterns suffice here.
var (
	cveRefPattern = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)
	cweRefPattern = regexp.MustCompile(`CWE-\d{1,5}`)
)

// Options bound the trajectory search. Zero values fall back to the
// defaults used by the shipped configuration.
type Options struct {
	MaxDepth         int
	ProbabilityFloor float64
	MaxScenarios     int
}

func (o Options) withDefaults() Options {
	if o.MaxDepth < 1 {
		o.MaxDepth = 3
	}
	if o.ProbabilityFloor <= 0 {
		o.ProbabilityFloor = 0.1
	}
	if o.MaxScenarios < 1 {
		o.MaxScenarios = 5
	}
	return o
}

// Engine turns path reports into trajectory forecasts. Catalog failures
// degrade to zero-value intelligence, matching the path analyzer.
type Engine struct {
	intel vulnintel.Reader
	opts  Options
}

// NewEngine builds a forecaster over the given catalog reader. A nil
// reader disables KEV and weakness weighting but still walks the matrix.
func NewEngine(intel vulnintel.Reader, opts Options) *Engine {
	return &Engine{intel: intel, opts: opts.withDefaults()}
}

// intelProfile is the vulnerability context shared by seeding, walking,
// and confidence scoring. Seeding and edge weighting key off the weakness
// ids actually observed; the catalog contributes KEV status only.
type intelProfile struct {
	observed     []string // sorted CVE and CWE ids lifted from the report
	kevRefs      []string // observed CVEs present in the KEV catalog
	observedCWEs []string // the CWE subset of observed, still sorted
	enabling     []string // observed ids with technique enablement entries
}

func (p intelProfile) kevPresent() bool { return len(p.kevRefs) > 0 }

// Forecast projects the attack continuations for one path report.
func (e *Engine) Forecast(ctx context.Context, report *types.PathReport) (*types.PredictionSummary, error) {
	if report == nil {
		return nil, fmt.Errorf("no path report to forecast: %w", types.ErrEmptySession)
	}

	timer := logging.StartTimer(logging.CategoryForecast, "forecast "+report.SessionID)
	defer timer.Stop()

	profile := e.buildProfile(ctx, report)
	seeds := seedTechniques(report.ObservedTechniques, profile.observedCWEs)
	scenarios := e.walk(report, profile, seeds)
	confidence := aggregateConfidence(report.PathAnomalyScore, profile, scenarios)

	summary := &types.PredictionSummary{
		SessionID: report.SessionID,
		CurrentState: types.CurrentState{
			ObservedTechniques:      append([]string{}, report.ObservedTechniques...),
			ObservedVulnerabilities: profile.observed,
			HostScope:               append([]string{}, report.BlastRadius...),
			GraphDepth:              eventTotal(report.EventSummary),
			RiskScore:               report.PathAnomalyScore,
		},
		PredictedScenarios:  scenarios,
		AggregateConfidence: confidence,
		Narrative:           buildNarrative(report, profile, scenarios, confidence),
		ModelVersion:        modelVersion,
		GeneratedAt:         time.Now().UTC(),
	}

	logging.Forecast("session %s: %d seeds, %d scenarios, confidence %.2f",
		report.SessionID, len(seeds), len(scenarios), confidence)
	return summary, nil
}

// buildProfile lifts vulnerability references out of the report summary
// and resolves their catalog context.
func (e *Engine) buildProfile(ctx context.Context, report *types.PathReport) intelProfile {
	p := intelProfile{observed: []string{}}

	seen := make(map[string]bool)
	for _, line := range report.VulnerabilitySummary {
		for _, id := range cveRefPattern.FindAllString(line, -1) {
			if !seen[id] {
				seen[id] = true
				p.observed = append(p.observed, id)
			}
		}
		for _, id := range cweRefPattern.FindAllString(line, -1) {
			if !seen[id] {
				seen[id] = true
				p.observed = append(p.observed, id)
			}
		}
	}
	sort.Strings(p.observed)

	for _, id := range p.observed {
		if strings.HasPrefix(id, "CWE-") {
			p.observedCWEs = append(p.observedCWEs, id)
			continue
		}
		if e.vulnDetails(ctx, id).IsKEV {
			p.kevRefs = append(p.kevRefs, id)
		}
	}

	for _, id := range p.observed {
		if _, ok := knowledge.CWEEnabledTechniques[id]; ok {
			p.enabling = append(p.enabling, id)
		}
	}
	return p
}

func (e *Engine) vulnDetails(ctx context.Context, cveID string) vulnintel.Details {
	if e.intel == nil {
		return vulnintel.Details{CVEID: cveID}
	}
	d, err := e.intel.VulnDetails(ctx, cveID)
	if err != nil {
		logging.ForecastDebug("catalog lookup failed for %s: %v", cveID, err)
		return vulnintel.Details{CVEID: cveID}
	}
	return d
}

// seedTechniques picks the attack front to walk from: observed techniques
// plus anything the captured weaknesses enable, minus techniques that are
// prerequisites of a deeper candidate.
func seedTechniques(observedTechniques, observedCWEs []string) []string {
	candidates := make(map[string]bool)
	for _, t := range observedTechniques {
		candidates[t] = true
	}
	for _, cwe := range observedCWEs {
		for _, t := range knowledge.CWEEnabledTechniques[cwe] {
			candidates[t] = true
		}
	}

	seeds := make([]string, 0, len(candidates))
	for cand := range candidates {
		if supersededBy(cand, candidates) {
			continue
		}
		seeds = append(seeds, cand)
	}
	sort.Strings(seeds)

	if len(seeds) == 0 {
		seeds = []string{seedFallback}
	}
	return seeds
}

func supersededBy(cand string, candidates map[string]bool) bool {
	for other := range candidates {
		if other == cand {
			continue
		}
		for _, pre := range knowledge.Prerequisites[other] {
			if pre == cand {
				return true
			}
		}
	}
	return false
}

// walkState is one frontier entry of the breadth-first walk.
type walkState struct {
	technique string
	path      []string
	prob      float64
	timeMin   int
	timeMax   int
}

// walk runs the bounded breadth-first search per seed, then merges the
// per-seed shortlists into the global ranking.
func (e *Engine) walk(report *types.PathReport, profile intelProfile, seeds []string) []types.PredictedScenario {
	trigger := initialTrigger
	if n := len(report.ObservedTechniques); n > 0 {
		trigger = report.ObservedTechniques[n-1]
	}
	observedSet := make(map[string]bool, len(report.ObservedTechniques))
	for _, t := range report.ObservedTechniques {
		observedSet[t] = true
	}

	var merged []types.PredictedScenario
	for _, seed := range seeds {
		merged = append(merged, e.walkSeed(seed, report, profile, observedSet, trigger)...)
	}

	// Seeds can reach identical paths with different weights; keep the
	// strongest while preserving first-seen order for stable ties.
	index := make(map[string]int, len(merged))
	out := make([]types.PredictedScenario, 0, len(merged))
	for _, sc := range merged {
		key := strings.Join(sc.Sequence, "->")
		if at, ok := index[key]; ok {
			if sc.Probability > out[at].Probability {
				out[at] = sc
			}
			continue
		}
		index[key] = len(out)
		out = append(out, sc)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	if len(out) > e.opts.MaxScenarios {
		out = out[:e.opts.MaxScenarios]
	}
	for i := range out {
		out[i].ScenarioType = scenarioTypeFor(i)
	}
	return out
}

func (e *Engine) walkSeed(seed string, report *types.PathReport, profile intelProfile, observedSet map[string]bool, trigger string) []types.PredictedScenario {
	kev := profile.kevPresent()
	queue := []walkState{{technique: seed, prob: 1.0}}
	visited := make(map[string]bool)
	var found []types.PredictedScenario

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, tr := range knowledge.TransitionMatrix[cur.technique] {
			modifier := 1.0
			for _, cwe := range profile.observedCWEs {
				if containsTechnique(knowledge.CWEEnabledTechniques[cwe], tr.Next) {
					modifier *= weaknessBoost
				}
			}
			if kev {
				modifier *= kevBoost
			}
			// Lateral movement needs somewhere to move to.
			if tr.Next == "T1021" && len(report.BlastRadius) < 2 {
				modifier = 0
			}
			// Staged archives make exfiltration the likely next step.
			if tr.Next == "T1041" && observedSet["T1560"] {
				modifier *= stagingSynergy
			}

			prob := cur.prob * tr.Probability * modifier
			if prob < e.opts.ProbabilityFloor {
				continue
			}

			path := append(append([]string{}, cur.path...), tr.Next)
			key := strings.Join(path, "-")
			if visited[key] {
				continue
			}
			visited[key] = true

			dwell := knowledge.TimePriorFor(tr.Next)
			minDwell, maxDwell := dwell.MinSeconds, dwell.MaxSeconds
			if kev {
				minDwell = int(math.Round(float64(minDwell) * kevDwellFactor))
				maxDwell = int(math.Round(float64(maxDwell) * kevDwellFactor))
			}

			next := walkState{
				technique: tr.Next,
				path:      path,
				prob:      prob,
				timeMin:   cur.timeMin + minDwell,
				timeMax:   cur.timeMax + maxDwell,
			}
			found = append(found, buildScenario(next, profile, trigger))
			if len(path) < e.opts.MaxDepth {
				queue = append(queue, next)
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Probability > found[j].Probability })
	if len(found) > e.opts.MaxScenarios {
		found = found[:e.opts.MaxScenarios]
	}
	return found
}

func buildScenario(st walkState, profile intelProfile, trigger string) types.PredictedScenario {
	names := make([]string, len(st.path))
	for i, id := range st.path {
		names[i] = knowledge.TechniqueName(id)
	}
	return types.PredictedScenario{
		Sequence:              st.path,
		HumanReadableSequence: strings.Join(names, " -> "),
		Probability:           roundTo(math.Min(st.prob, 1), 3),
		RiskLevel:             terminalRisk(st.path[len(st.path)-1]),
		EstimatedTimeMin:      st.timeMin,
		EstimatedTimeMax:      st.timeMax,
		TimeWindow:            fmt.Sprintf("Window: %s to %s", formatSeconds(st.timeMin), formatSeconds(st.timeMax)),
		Evidence:              scenarioEvidence(st.path[0], profile, trigger),
	}
}

func terminalRisk(last string) string {
	switch last {
	case "T1041", "T1486":
		return "Critical"
	case "T1003", "T1021":
		return "High"
	default:
		return "Medium"
	}
}

func scenarioEvidence(nextStep string, profile intelProfile, trigger string) []string {
	var evidence []string
	if profile.kevPresent() {
		evidence = append(evidence, "Active KEV exploit detected; compressing reaction window by 40%")
	}

	var matching []string
	for _, id := range profile.observed {
		enabled, ok := knowledge.CWEEnabledTechniques[id]
		if !ok {
			continue
		}
		if containsTechnique(enabled, nextStep) || containsTechnique(enabled, trigger) {
			matching = append(matching, id)
		}
	}
	if len(matching) > 0 {
		if len(matching) > 2 {
			matching = matching[:2]
		}
		evidence = append(evidence, fmt.Sprintf("Captured weakness %s allows an attacker to achieve %s",
			strings.Join(matching, ", "), knowledge.TechniqueName(nextStep)))
	}

	if len(evidence) == 0 {
		evidence = append(evidence, "Causal path from "+knowledge.TechniqueName(trigger))
	}
	return evidence
}

func scenarioTypeFor(rank int) types.ScenarioType {
	switch {
	case rank == 0:
		return types.ScenarioPrimary
	case rank <= 2:
		return types.ScenarioSecondary
	default:
		return types.ScenarioOpportunistic
	}
}

// aggregateConfidence blends the strongest projection with catalog
// grounding, KEV pressure, and a floor carried over from the path score.
func aggregateConfidence(riskScore float64, profile intelProfile, scenarios []types.PredictedScenario) float64 {
	grounding := math.Min(float64(len(profile.enabling))*0.15, 0.45)

	maxProb := 0.4
	if len(scenarios) > 0 {
		maxProb = scenarios[0].Probability
	}

	kev := math.Min(float64(len(profile.kevRefs))*0.2, 0.4)

	floor := 0.0
	switch {
	case riskScore > 50:
		floor = 0.4
	case riskScore > 15:
		floor = 0.2
	}

	return roundTo(math.Min(maxProb*0.25+grounding+kev+floor, 1.0), 2)
}

func buildNarrative(report *types.PathReport, profile intelProfile, scenarios []types.PredictedScenario, confidence float64) string {
	sid := report.SessionID
	var b strings.Builder

	switch {
	case confidence > 0.7:
		fmt.Fprintf(&b, "CRITICAL ALERT: Session '%s' shows a high-velocity, confirmed attack sequence. ", sid)
	case hasExploitSignal(report):
		fmt.Fprintf(&b, "URGENT: Verified exploit patterns identified on %s. Attacker has likely bypassed initial defenses. ", sid)
	case hasReconSignal(report):
		fmt.Fprintf(&b, "RECONNAISSANCE: Systematic scanning and information gathering detected on %s. ", sid)
	case confidence > 0.3:
		fmt.Fprintf(&b, "ANOMALY: Heuristic patterns on %s suggest emerging adversarial intent. ", sid)
	default:
		fmt.Fprintf(&b, "Baseline activity observed for %s. ", sid)
	}

	if len(profile.enabling) > 0 {
		refs := profile.enabling
		if len(refs) > 3 {
			refs = refs[:3]
		}
		fmt.Fprintf(&b, "The specific weaknesses identified (%s) provide the technical logical bridges for the projected trajectory. ",
			strings.Join(refs, ", "))
	}
	if len(profile.kevRefs) > 0 {
		refs := profile.kevRefs
		if len(refs) > 2 {
			refs = refs[:2]
		}
		fmt.Fprintf(&b, "The presence of documented exploits (%s) has triggered an urgent reaction-window compression. ",
			strings.Join(refs, ", "))
	}

	if len(scenarios) > 0 {
		top := scenarios[0]
		fmt.Fprintf(&b, "An attacker exploiting these vulnerabilities is projected to pivot to '%s' next (%.0f%% probability).",
			knowledge.TechniqueName(top.Sequence[0]), top.Probability*100)
	} else if confidence > 0.2 {
		b.WriteString("While activity is anomalous, it does not currently align with known lateral movement matrices.")
	}

	return strings.TrimSpace(b.String())
}

func hasExploitSignal(report *types.PathReport) bool {
	if report.PathAnomalyScore > 15 {
		return true
	}
	for _, t := range report.ObservedTechniques {
		if knowledge.ExploitationTechniques[t] {
			return true
		}
	}
	return false
}

func hasReconSignal(report *types.PathReport) bool {
	for _, t := range report.ObservedTechniques {
		if knowledge.ReconTechniques[t] {
			return true
		}
	}
	return false
}

func formatSeconds(s int) string {
	if s < 60 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm", s/60)
}

func containsTechnique(list []string, id string) bool {
	for _, t := range list {
		if t == id {
			return true
		}
	}
	return false
}

func eventTotal(summary map[string]int) int {
	total := 0
	for _, n := range summary {
		total += n
	}
	return total
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
