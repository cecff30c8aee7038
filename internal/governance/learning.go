package governance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"foresight/internal/logging"
	"foresight/internal/types"
)

// Reinforcement coefficients. Failures move the posture roughly an order
// of magnitude harder than successes relax it.
const (
	penaltyAlpha = 0.1
	rewardBeta   = 0.01

	momentumDecay = 0.85
	momentumLimit = 0.35

	containmentFloor = 0.40
	containmentCeil  = 0.95
	disruptiveFloor  = 0.60
	disruptiveCeil   = 1.00
)

// Engine turns execution feedback into new model versions, chaining every
// update onto the trust ledger.
type Engine struct {
	store *Store
}

// NewEngine wraps a governance store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// FeedbackResult captures one learning update for display and audit.
type FeedbackResult struct {
	Config           types.ModelConfiguration
	Narrative        string
	ActionsProcessed int
	DomainsCovered   []string
	HighUrgency      int
	ApprovalRequired int
	ActionTypes      []string
	ScriptGenerated  bool
}

// feedbackTally is the classified view of one execution report.
type feedbackTally struct {
	rollbacks        int
	successes        int
	kevSuccesses     int
	kevFailures      int
	highUrgency      int
	approvalRequired int
	domains          []string
	actionTypes      []string
}

// IngestReport is the operator entry point: it refuses to write on a
// tampered ledger, records the ingestion event, and runs the learning
// update.
func (e *Engine) IngestReport(ctx context.Context, report *types.ExecutionReport) (*FeedbackResult, error) {
	if report == nil {
		return nil, fmt.Errorf("no execution report to ingest: %w", types.ErrInputSchema)
	}
	if err := e.store.VerifyLedger(ctx); err != nil {
		return nil, err
	}

	reportID := report.ReportID
	if reportID == "" {
		reportID = report.ScriptFilename
	}
	if reportID == "" {
		reportID = "unknown"
	}
	if _, err := e.store.AppendEvent(ctx, "INGEST_REPORT", map[string]any{"report_id": reportID}, "CLI_User"); err != nil {
		return nil, err
	}

	return e.ProcessFeedback(ctx, report)
}

// ProcessFeedback classifies the report's actions, moves trust momentum,
// derives the next thresholds, and activates the new model version. The
// deactivation, insertion, ledger append, and drift samples commit in one
// transaction.
func (e *Engine) ProcessFeedback(ctx context.Context, report *types.ExecutionReport) (*FeedbackResult, error) {
	if report == nil {
		return nil, fmt.Errorf("no execution report to process: %w", types.ErrInputSchema)
	}
	timer := logging.StartTimer(logging.CategoryGovernance, "Learning update")
	defer timer.Stop()

	current, err := e.store.ActiveConfig(ctx)
	if err != nil {
		if !errors.Is(err, types.ErrConfigurationConflict) {
			return nil, err
		}
		current, err = e.store.InsertGenesis(ctx)
		if err != nil {
			return nil, err
		}
	}

	actions, scriptGen := reportActions(report)
	tally := tallyActions(actions)
	if scriptGen && tally.successes == 0 {
		tally.successes = len(actions)
	}

	rawDelta := 0.0
	successStreak := current.SuccessStreak
	failureStreak := current.FailureStreak
	switch {
	case tally.rollbacks > 0:
		successStreak = 0
		failureStreak++
		penalty := 1.0 + float64(tally.kevFailures)
		rawDelta = -(float64(tally.rollbacks) * penaltyAlpha * penalty)
	case tally.successes > 0:
		successStreak++
		failureStreak = 0
		reward := 1.0 + 0.5*float64(tally.kevSuccesses) + 0.1*float64(tally.highUrgency)
		rawDelta = float64(tally.successes) * rewardBeta * reward
	}

	momentum := clamp(current.TrustMomentum*momentumDecay+rawDelta, -momentumLimit, momentumLimit)
	containment := round4(clamp(current.ContainmentThreshold-momentum, containmentFloor, containmentCeil))
	disruptive := round4(clamp(current.DisruptiveThreshold-0.5*momentum, disruptiveFloor, disruptiveCeil))

	version := "v" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	narrative := buildNarrative(tally, scriptGen, len(actions))

	next := types.ModelConfiguration{
		VersionID:            version,
		ContainmentThreshold: containment,
		DisruptiveThreshold:  disruptive,
		TrustMomentum:        momentum,
		SuccessStreak:        successStreak,
		FailureStreak:        failureStreak,
		RiskWeights:          current.RiskWeights,
		IsActive:             true,
		CreatedAt:            time.Now().UTC(),
	}

	source := "execution"
	if scriptGen {
		source = "script_gen"
	}
	payload := map[string]any{
		"old_ver":            current.VersionID,
		"new_ver":            version,
		"source":             source,
		"actions_processed":  len(actions),
		"domains_covered":    tally.domains,
		"high_urgency_count": tally.highUrgency,
		"approval_required":  tally.approvalRequired,
		"kev_context":        map[string]any{"successes": tally.kevSuccesses, "failures": tally.kevFailures},
		"reason":             fmt.Sprintf("%s (Momentum=%.4f)", narrative, momentum),
	}

	err = e.store.withTx(ctx, func(tx *sql.Tx) error {
		if err := deactivateTx(ctx, tx, current.VersionID); err != nil {
			return err
		}
		if err := insertConfigTx(ctx, tx, &next); err != nil {
			return err
		}
		if _, err := appendEventTx(ctx, tx, "LEARNING_UPDATE", payload, "LearningEngine"); err != nil {
			return err
		}
		samples := []types.DriftSample{
			{MetricName: metricTrustMomentum, Value: momentum, AlertTriggered: math.Abs(momentum) >= 0.25},
			{MetricName: metricContainment, Value: containment, AlertTriggered: containment >= 0.90 || containment <= 0.45},
			{MetricName: metricDisruptive, Value: disruptive},
		}
		for _, sample := range samples {
			if err := insertDriftSampleTx(ctx, tx, sample); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Governance("Model %s activated (momentum %+.4f, containment %.4f, disruptive %.4f)",
		version, momentum, containment, disruptive)

	return &FeedbackResult{
		Config:           next,
		Narrative:        narrative,
		ActionsProcessed: len(actions),
		DomainsCovered:   tally.domains,
		HighUrgency:      tally.highUrgency,
		ApprovalRequired: tally.approvalRequired,
		ActionTypes:      tally.actionTypes,
		ScriptGenerated:  scriptGen,
	}, nil
}

// reportActions flattens the two report formats. Actions included in a
// generated script carry no operator status; inclusion counts as success.
func reportActions(report *types.ExecutionReport) ([]types.ActionOutcome, bool) {
	scriptGen := report.ScriptFilename != ""
	if len(report.ActionsIncluded) > 0 {
		actions := make([]types.ActionOutcome, 0, len(report.ActionsIncluded))
		for _, act := range report.ActionsIncluded {
			act.FinalStatus = "success"
			actions = append(actions, act)
		}
		return actions, scriptGen
	}
	return report.Executions, scriptGen
}

func tallyActions(actions []types.ActionOutcome) feedbackTally {
	tally := feedbackTally{domains: []string{}, actionTypes: []string{}}
	seen := map[string]bool{}
	for _, act := range actions {
		isKEV := act.VulnerabilityDetails != nil && act.VulnerabilityDetails.IsKEV

		domain := act.Domain
		if domain == "" {
			domain = "Unknown"
		}
		if !seen[domain] {
			seen[domain] = true
			tally.domains = append(tally.domains, domain)
		}
		if act.Action != "" {
			tally.actionTypes = append(tally.actionTypes, act.Action)
		}
		if act.RequiresApproval {
			tally.approvalRequired++
		}
		if act.Urgency == types.UrgencyCritical || act.Urgency == types.UrgencyHigh {
			tally.highUrgency++
		}

		switch act.FinalStatus {
		case "rolled_back", "failed":
			tally.rollbacks++
			if isKEV {
				tally.kevFailures++
			}
		case "success":
			tally.successes++
			if isKEV {
				tally.kevSuccesses++
			}
		}
	}
	sort.Strings(tally.domains)
	return tally
}

func buildNarrative(tally feedbackTally, scriptGen bool, actionCount int) string {
	switch {
	case scriptGen:
		domains := "unknown"
		if len(tally.domains) > 0 {
			domains = strings.Join(tally.domains, ", ")
		}
		narrative := fmt.Sprintf("Script generated for %d action(s) across %s domain(s). ", actionCount, domains)
		if tally.approvalRequired > 0 {
			narrative += fmt.Sprintf("%d action(s) flagged for manual approval. ", tally.approvalRequired)
		}
		if tally.highUrgency > 0 {
			narrative += fmt.Sprintf("%d high/critical urgency threat(s) addressed. ", tally.highUrgency)
		}
		return narrative + "Trust posture updated based on script coverage."
	case tally.rollbacks > 0:
		narrative := fmt.Sprintf("Penalty: %d failure(s). Posture tightened.", tally.rollbacks)
		if tally.kevFailures > 0 {
			narrative += " (WARNING: KEV-related failure detected)"
		}
		return narrative
	case tally.successes > 0:
		narrative := fmt.Sprintf("Trust: %d success(es). Posture relaxed.", tally.successes)
		if tally.kevSuccesses > 0 {
			narrative += " (SUCCESS: KEV vulnerability mitigated)"
		}
		return narrative
	default:
		return "Natural trust momentum decay — no significant events."
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
