// Package decision grades trajectory forecasts into response decisions.
// A correlation pass aggregates campaign pressure across the batch, then
// each forecast is walked scenario by scenario against the response
// catalog until an action clears its confidence and cost gates.
package decision

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"foresight/internal/knowledge"
	"foresight/internal/logging"
	"foresight/internal/types"
	"foresight/internal/vulnintel"
)

const modelVersion = "v4.1-Vuln-Driven"

const monitorAction = "Monitor User Behavior"

// cweHeuristicScores assigns severity to weakness classes that arrive
// without an accompanying CVE score.
var cweHeuristicScores = map[string]float64{
	"CWE-78":  9.8,
	"CWE-89":  9.8,
	"CWE-434": 8.5,
	"CWE-94":  9.8,
	"CWE-287": 7.5,
	"CWE-20":  7.0,
	"CWE-79":  6.1,
}

// Engine turns forecasts into graded response decisions.
type Engine struct {
	intel vulnintel.Reader
}

// NewEngine builds a decision engine over the given catalog reader. A nil
// reader drops CVE severity context but keeps weakness heuristics.
func NewEngine(intel vulnintel.Reader) *Engine {
	return &Engine{intel: intel}
}

// Decide evaluates a batch of forecasts. The correlation pass runs over
// the whole batch first so campaign pressure feeds every decision.
// Output order follows input order.
func (e *Engine) Decide(ctx context.Context, forecasts []*types.PredictionSummary) []*types.ResponseDecision {
	contexts := e.correlate(ctx, forecasts)
	decisions := make([]*types.ResponseDecision, 0, len(forecasts))
	for _, f := range forecasts {
		if f == nil {
			continue
		}
		decisions = append(decisions, e.evaluate(f, contexts[f.SessionID]))
	}
	return decisions
}

func (e *Engine) evaluate(forecast *types.PredictionSummary, group groupContext) *types.ResponseDecision {
	timer := logging.StartTimer(logging.CategoryDecision, "evaluate "+forecast.SessionID)
	defer timer.Stop()

	decisionConf := math.Min(forecast.AggregateConfidence*group.boost, 1.0)

	// Session-local severity, widened to the campaign worst case.
	kev := group.kev
	maxCVSS := group.maxCVSS
	for _, ref := range forecast.CurrentState.ObservedVulnerabilities {
		if score, ok := cweHeuristicScores[ref]; ok && score > maxCVSS {
			maxCVSS = score
		}
	}
	urgentSession := kev || maxCVSS >= 9.0
	evalBoost := 1.0 + float64(group.sessionCount-1)*0.1

	var (
		selected       string
		chosenScenario *types.PredictedScenario
		rejections     []types.RejectedAlternative
	)

scenarioLoop:
	for i := range forecast.PredictedScenarios {
		sc := &forecast.PredictedScenarios[i]
		if len(sc.Sequence) == 0 {
			continue
		}
		strategies, ok := knowledge.TechniqueResponses[sc.Sequence[0]]
		if !ok {
			strategies = knowledge.FallbackResponses
		}

		for _, strat := range strategies {
			required, ok := knowledge.ConfidenceThresholds[strat]
			if !ok {
				required = 1.0
			}
			effective := required
			if urgentSession && strat != monitorAction {
				effective = math.Max(0.1, required-0.2)
			}
			cost := knowledge.ActionCosts[strat]
			evalProb := sc.Probability * evalBoost

			var reasons []string
			if decisionConf < effective {
				reasons = append(reasons, fmt.Sprintf("Confidence (%.2f) < Eff. Threshold (%v)", decisionConf, effective))
			}
			if evalProb < 0.2 && cost > 0.6 {
				reasons = append(reasons, fmt.Sprintf("Aggregated Risk (%.2f) too low for High Cost (%v)", evalProb, cost))
			}
			if len(reasons) == 0 {
				selected = strat
				chosenScenario = sc
				break scenarioLoop
			}
			rejections = append(rejections, types.RejectedAlternative{
				Action: strat,
				Reason: strings.Join(reasons, "; "),
			})
		}
	}

	if chosenScenario == nil {
		selected = monitorAction
		for i := range forecast.PredictedScenarios {
			if len(forecast.PredictedScenarios[i].Sequence) > 0 {
				chosenScenario = &forecast.PredictedScenarios[i]
				break
			}
		}
		if chosenScenario == nil {
			return monitorOnly(forecast, decisionConf, group)
		}
	}

	probability := chosenScenario.Probability
	targetTech := chosenScenario.Sequence[0]
	minTime := chosenScenario.EstimatedTimeMin

	urgency := types.UrgencyLow
	switch {
	case minTime < 300 || kev || maxCVSS >= 9.0:
		urgency = types.UrgencyCritical
	case minTime < 3600 || maxCVSS >= 7.0:
		urgency = types.UrgencyHigh
	case minTime < 14400:
		urgency = types.UrgencyMedium
	}
	if decisionConf < 0.35 && !kev {
		urgency = types.UrgencyLow
	}

	target := types.TargetEntity{EntityType: types.EntityUser, Identifier: group.principal}
	if strings.Contains(selected, "Isolate") || strings.Contains(selected, "Block") {
		target.EntityType = types.EntityHost
		target.Identifier = "Unknown"
		if hosts := forecast.CurrentState.HostScope; len(hosts) > 0 {
			target.Identifier = normalizeHost(hosts[len(hosts)-1])
		}
	}

	reduction := knowledge.DefaultRiskReduction
	if r, ok := knowledge.RiskReductionEstimates[selected]; ok {
		reduction = r
	}
	absReduction := math.Min(probability*reduction, probability)

	classification := types.ClassContainment
	approval := false
	for _, kw := range knowledge.DisruptiveKeywords {
		if strings.Contains(selected, kw) {
			classification = types.ClassDisruptive
			approval = true
			break
		}
	}
	// Documented active exploitation authorizes immediate containment,
	// even for actions that would otherwise wait on an operator.
	if kev {
		classification = types.ClassContainment
		approval = false
	}
	if threshold := knowledge.ConfidenceThresholds[selected]; threshold > 0 && decisionConf-threshold < 0.05 {
		approval = true
	}

	kevNote := ""
	if kev {
		kevNote = " [KEV ACTIVE]"
	}

	urgencyNote := "to ensure defensive depth."
	switch {
	case kev:
		urgencyNote = fmt.Sprintf("due to the detection of high-risk exploits (Max CVSS %s).", formatCVSS(maxCVSS))
	case probability > 0.4:
		urgencyNote = fmt.Sprintf("as a countermeasure to a %.0f%% probability threat.", probability*100)
	}

	mentorRole := "Automated containment"
	if approval {
		mentorRole = "Disruptive mitigation"
	}
	mentor := fmt.Sprintf("%s strategy for %s has been initiated %s The selected action, '%s', targets %s '%s' with an estimated risk reduction of %.1f%% across the predicted trajectory.",
		mentorRole, forecast.SessionID, urgencyNote, selected, target.EntityType, target.Identifier, absReduction*100)
	if approval {
		mentor += " Manual authorization is required before execution due to potential service disruption."
	}

	decision := &types.ResponseDecision{
		DecisionID:           uuid.New().String(),
		SessionID:            forecast.SessionID,
		GeneratedAt:          time.Now().UTC(),
		EvaluatedAction:      selected,
		ActionClassification: classification,
		RequiresApproval:     approval,
		Urgency:              urgency,
		DecisionConfidence:   roundTo(decisionConf, 2),
		RankScore:            int(decisionConf*100 + probability*100 + rankBonus(kev, urgency)),
		TargetEntity:         target,
		RiskReduction: types.RiskReduction{
			Absolute: roundTo(absReduction, 2),
			Relative: fmt.Sprintf("Mitigates %.0f%% of %s risk", reduction*100, targetTech),
		},
		RejectedAlternatives: rejections,
		VulnerabilityDetails: &types.VulnerabilityDetails{IsKEV: kev, MaxCVSS: maxCVSS},
		Correlation: types.CorrelationContext{
			Principal: group.principal,
			GroupSize: group.sessionCount,
			Reason:    group.reason,
		},
		MentorSummary: mentor,
		Explainability: types.Explainability{
			WhyNow: fmt.Sprintf("Vulnerability Context: Max CVSS %s%s. Prob (%.0f%%) within %ds.",
				formatCVSS(maxCVSS), kevNote, probability*100, minTime),
			WhyNotLater: "Delay increases lateral movement window.",
			WhatIfIgnored: fmt.Sprintf("Unmitigated Risk: %.0f%% chance of %s exploiting %s CVSS vuln.",
				probability*100, targetTech, formatCVSS(maxCVSS)),
			SignalGap: fmt.Sprintf("Controls %s%s", targetTech, kevNote),
		},
		MitigationGuidelines: knowledge.MitigationGuidelines[selected],
		ModelVersion:         modelVersion,
	}

	logging.Decision("session %s: %s urgency=%s rank=%d approval=%t",
		forecast.SessionID, selected, urgency, decision.RankScore, approval)
	return decision
}

// monitorOnly covers forecasts with no projected scenarios at all.
func monitorOnly(forecast *types.PredictionSummary, decisionConf float64, group groupContext) *types.ResponseDecision {
	return &types.ResponseDecision{
		DecisionID:           uuid.New().String(),
		SessionID:            forecast.SessionID,
		GeneratedAt:          time.Now().UTC(),
		EvaluatedAction:      monitorAction,
		ActionClassification: types.ClassContainment,
		Urgency:              types.UrgencyLow,
		DecisionConfidence:   decisionConf,
		TargetEntity: types.TargetEntity{
			EntityType: types.EntityUser,
			Identifier: forecast.SessionID,
		},
		RiskReduction: types.RiskReduction{Absolute: 0, Relative: "None"},
		Correlation: types.CorrelationContext{
			Principal: group.principal,
			GroupSize: group.sessionCount,
			Reason:    group.reason,
		},
		MentorSummary: "No immediate threat detected. Continuing baseline monitoring.",
		Explainability: types.Explainability{
			WhyNow:        "No predicted threats found.",
			WhyNotLater:   "N/A",
			WhatIfIgnored: "Unknown",
			SignalGap:     "Baseline monitoring",
		},
		ModelVersion: modelVersion,
	}
}

func (e *Engine) vulnDetails(ctx context.Context, cveID string) vulnintel.Details {
	if e.intel == nil {
		return vulnintel.Details{CVEID: cveID}
	}
	d, err := e.intel.VulnDetails(ctx, cveID)
	if err != nil {
		logging.DecisionDebug("catalog lookup failed for %s: %v", cveID, err)
		return vulnintel.Details{CVEID: cveID}
	}
	return d
}

func rankBonus(kev bool, urgency types.Urgency) float64 {
	switch {
	case kev:
		return 2000
	case urgency == types.UrgencyCritical:
		return 1000
	default:
		return 0
	}
}

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
