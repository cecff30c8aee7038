package governance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foresight/internal/types"
)

// Posture metrics sampled after every learning update.
const (
	metricTrustMomentum = "trust_momentum"
	metricContainment   = "containment_threshold"
	metricDisruptive    = "disruptive_threshold"
)

// driftWindow is the rolling sample count served to consumers.
const driftWindow = 100

// TrendInfo classifies where momentum is pushing the posture.
func TrendInfo(cfg *types.ModelConfiguration) (types.TrendDirection, string) {
	switch {
	case cfg.TrustMomentum < -0.001:
		return types.TrendTightening, "Tightening (Hardening)"
	case cfg.TrustMomentum > 0.001:
		return types.TrendRelaxing, "Relaxing (Adapting)"
	default:
		return types.TrendStable, "Stable"
	}
}

// DriftAlerts derives operator warnings from the active configuration.
func DriftAlerts(cfg *types.ModelConfiguration) []string {
	alerts := []string{}

	if cfg.TrustMomentum <= -0.25 {
		alerts = append(alerts, fmt.Sprintf(
			"CRITICAL DRIFT: Trust momentum is severely negative (%+.4f). "+
				"Autonomous actions are heavily restricted. Investigate recent failures.",
			cfg.TrustMomentum))
	} else if cfg.TrustMomentum >= 0.25 {
		alerts = append(alerts, fmt.Sprintf(
			"HIGH RELAXATION: Trust momentum is very high (%+.4f). "+
				"Thresholds are significantly lowered. Verify no false-positive successes.",
			cfg.TrustMomentum))
	}

	if cfg.ContainmentThreshold >= 0.90 {
		alerts = append(alerts, fmt.Sprintf(
			"THRESHOLD LOCK: Containment threshold is at %.1f%%. "+
				"Nearly all actions require human approval — system is in near-lockdown.",
			cfg.ContainmentThreshold*100))
	} else if cfg.ContainmentThreshold <= 0.45 {
		alerts = append(alerts, fmt.Sprintf(
			"LOW GUARD: Containment threshold is at %.1f%%. "+
				"System is highly permissive. Ensure this reflects genuine trust.",
			cfg.ContainmentThreshold*100))
	}

	if cfg.FailureStreak >= 3 {
		alerts = append(alerts, fmt.Sprintf(
			"FAILURE STREAK: %d consecutive failures detected. "+
				"System is tightening posture. Review recent execution reports.",
			cfg.FailureStreak))
	}

	return alerts
}

// insertDriftSampleTx records one metric observation inside an open
// transaction.
func insertDriftSampleTx(ctx context.Context, tx *sql.Tx, sample types.DriftSample) error {
	alert := 0
	if sample.AlertTriggered {
		alert = 1
	}
	createdAt := sample.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO drift_samples (created_at, metric_name, metric_value, alert_triggered)
		VALUES (?, ?, ?, ?)`,
		createdAt.UTC().Format(time.RFC3339Nano), sample.MetricName, sample.Value, alert)
	if err != nil {
		return fmt.Errorf("failed to insert drift sample %s: %w", sample.MetricName, err)
	}
	return nil
}

// DriftSamples returns up to driftWindow recent observations for one
// metric in chronological order.
func (s *Store) DriftSamples(ctx context.Context, metric string) ([]types.DriftSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, metric_name, metric_value, alert_triggered
		FROM drift_samples WHERE metric_name = ? ORDER BY id DESC LIMIT ?`,
		metric, driftWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to query drift samples for %s: %w", metric, err)
	}
	defer rows.Close()

	samples := []types.DriftSample{}
	for rows.Next() {
		var (
			sample    types.DriftSample
			createdAt string
			alert     int
		)
		if err := rows.Scan(&createdAt, &sample.MetricName, &sample.Value, &alert); err != nil {
			return nil, fmt.Errorf("failed to scan drift sample: %w", err)
		}
		sample.AlertTriggered = alert == 1
		sample.CreatedAt = parseStoredTime(createdAt)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read drift samples: %w", err)
	}

	// Newest-first from the index; consumers want chronological.
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// Status assembles the externally consumable posture snapshot: active
// configuration, trend, ledger integrity, recent history, drift series,
// and alerts.
func (e *Engine) Status(ctx context.Context) (*types.GovernanceStatus, error) {
	cfg, err := e.store.ActiveConfig(ctx)
	if err != nil {
		return nil, err
	}

	integrity := true
	if err := e.store.VerifyLedger(ctx); err != nil {
		if !errors.Is(err, types.ErrLedgerIntegrity) {
			return nil, err
		}
		integrity = false
	}

	count, err := e.store.LedgerEntryCount(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := e.store.RecentLedgerEntries(ctx, 10)
	if err != nil {
		return nil, err
	}
	history, err := e.store.ModelHistory(ctx, 5)
	if err != nil {
		return nil, err
	}

	series := map[string][]types.DriftSample{}
	for _, metric := range []string{metricTrustMomentum, metricContainment, metricDisruptive} {
		samples, err := e.store.DriftSamples(ctx, metric)
		if err != nil {
			return nil, err
		}
		series[metric] = samples
	}

	trend, label := TrendInfo(cfg)
	return &types.GovernanceStatus{
		GeneratedAt:          time.Now().UTC(),
		VersionID:            cfg.VersionID,
		ContainmentThreshold: cfg.ContainmentThreshold,
		DisruptiveThreshold:  cfg.DisruptiveThreshold,
		TrustMomentum:        cfg.TrustMomentum,
		SuccessStreak:        cfg.SuccessStreak,
		FailureStreak:        cfg.FailureStreak,
		Trend:                trend,
		TrendLabel:           label,
		LedgerIntegrity:      integrity,
		LedgerEntryCount:     count,
		RecentLedgerEntries:  recent,
		ModelHistory:         history,
		DriftSeries:          series,
		DriftAlerts:          DriftAlerts(cfg),
	}, nil
}
