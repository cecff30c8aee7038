// Package governance persists the adaptive trust model: a hash-chained
// ledger of every posture change, versioned model configurations with a
// single active row, and drift samples for trend analysis. All writes go
// through one mutex-guarded connection so the chain and the activation
// invariant cannot race.
package governance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"foresight/internal/logging"
	"foresight/internal/types"
)

const genesisVersion = "v1.0-genesis"

const configTable = `
CREATE TABLE IF NOT EXISTS model_configurations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id TEXT NOT NULL UNIQUE,
	is_active INTEGER NOT NULL DEFAULT 0,
	containment_threshold REAL NOT NULL,
	disruptive_threshold REAL NOT NULL,
	trust_momentum REAL NOT NULL,
	success_streak INTEGER NOT NULL DEFAULT 0,
	failure_streak INTEGER NOT NULL DEFAULT 0,
	risk_weights TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_config_active ON model_configurations(is_active);
`

const ledgerTable = `
CREATE TABLE IF NOT EXISTS trust_ledger (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hash_id TEXT NOT NULL UNIQUE,
	previous_hash TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	actor TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_timestamp ON trust_ledger(timestamp);
CREATE INDEX IF NOT EXISTS idx_ledger_event_type ON trust_ledger(event_type);
`

const driftTable = `
CREATE TABLE IF NOT EXISTS drift_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	metric_value REAL NOT NULL,
	alert_triggered INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_drift_metric ON drift_samples(metric_name, id);
`

// Store owns the governance database. Reads share the connection; writes
// additionally serialize on the mutex so compound updates (deactivate,
// insert, ledger append, drift samples) stay atomic with respect to each
// other.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the governance database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no governance store path configured: %w", types.ErrConfigurationConflict)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create governance directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open governance store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.GovernanceDebug("Failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.GovernanceDebug("Failed to enable WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.GovernanceDebug("Failed to set synchronous mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.GovernanceDebug("Failed to enable foreign keys: %v", err)
	}

	for _, ddl := range []string{configTable, ledgerTable, driftTable} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create governance schema: %w", err)
		}
	}

	logging.GovernanceDebug("Governance store opened at %s", path)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withTx runs fn inside a single-writer transaction. The mutex guarantees
// that only one compound write sequence is in flight at a time.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin governance transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit governance transaction: %w", err)
	}
	return nil
}

// ActiveConfig returns the single active model configuration. Zero or
// multiple active rows violate the activation invariant and surface as
// ErrConfigurationConflict.
func (s *Store) ActiveConfig(ctx context.Context) (*types.ModelConfiguration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version_id, is_active, containment_threshold, disruptive_threshold,
			trust_momentum, success_streak, failure_streak, risk_weights, created_at
		FROM model_configurations WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active configuration: %w", err)
	}
	defer rows.Close()

	var configs []*types.ModelConfiguration
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active configuration: %w", err)
	}

	switch len(configs) {
	case 1:
		return configs[0], nil
	case 0:
		return nil, fmt.Errorf("no active model configuration: %w", types.ErrConfigurationConflict)
	default:
		return nil, fmt.Errorf("%d active model configurations: %w", len(configs), types.ErrConfigurationConflict)
	}
}

// InsertGenesis writes the bootstrap configuration when no version is
// active yet. An existing single active version is returned unchanged;
// multiple active versions are refused and demand manual repair.
func (s *Store) InsertGenesis(ctx context.Context) (*types.ModelConfiguration, error) {
	var out *types.ModelConfiguration
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var active int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM model_configurations WHERE is_active = 1`).Scan(&active); err != nil {
			return fmt.Errorf("failed to count active configurations: %w", err)
		}
		if active > 1 {
			return fmt.Errorf("%d active model configurations: %w", active, types.ErrConfigurationConflict)
		}
		if active == 1 {
			return nil
		}

		genesis := &types.ModelConfiguration{
			VersionID:            genesisVersion,
			ContainmentThreshold: 0.6,
			DisruptiveThreshold:  0.85,
			TrustMomentum:        0.0,
			RiskWeights:          map[string]float64{"T1021": 0.8, "T1046": 0.4},
			IsActive:             true,
			CreatedAt:            time.Now().UTC(),
		}
		if err := insertConfigTx(ctx, tx, genesis); err != nil {
			return err
		}
		payload := map[string]any{
			"version_id":            genesis.VersionID,
			"containment_threshold": genesis.ContainmentThreshold,
			"disruptive_threshold":  genesis.DisruptiveThreshold,
		}
		if _, err := appendEventTx(ctx, tx, "GENESIS", payload, "System"); err != nil {
			return err
		}
		out = genesis
		logging.Governance("Genesis model configuration created")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		return out, nil
	}
	return s.ActiveConfig(ctx)
}

// ModelHistory returns the most recent model versions, newest first.
func (s *Store) ModelHistory(ctx context.Context, limit int) ([]types.ModelVersionSummary, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT version_id, is_active, containment_threshold, disruptive_threshold,
			trust_momentum, created_at
		FROM model_configurations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query model history: %w", err)
	}
	defer rows.Close()

	history := []types.ModelVersionSummary{}
	for rows.Next() {
		var (
			entry     types.ModelVersionSummary
			active    int
			createdAt string
		)
		if err := rows.Scan(&entry.VersionID, &active, &entry.ContainmentThreshold,
			&entry.DisruptiveThreshold, &entry.TrustMomentum, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan model history row: %w", err)
		}
		entry.IsActive = active == 1
		entry.CreatedAt = parseStoredTime(createdAt)
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read model history: %w", err)
	}
	return history, nil
}

// insertConfigTx persists one configuration row inside an open
// transaction.
func insertConfigTx(ctx context.Context, tx *sql.Tx, cfg *types.ModelConfiguration) error {
	weights, err := encodeRiskWeights(cfg.RiskWeights)
	if err != nil {
		return err
	}
	active := 0
	if cfg.IsActive {
		active = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO model_configurations (version_id, is_active, containment_threshold,
			disruptive_threshold, trust_momentum, success_streak, failure_streak,
			risk_weights, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.VersionID, active, cfg.ContainmentThreshold, cfg.DisruptiveThreshold,
		cfg.TrustMomentum, cfg.SuccessStreak, cfg.FailureStreak,
		weights, cfg.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert configuration %s: %w", cfg.VersionID, err)
	}
	return nil
}

// deactivateTx clears the active flag on one version.
func deactivateTx(ctx context.Context, tx *sql.Tx, versionID string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE model_configurations SET is_active = 0 WHERE version_id = ?`, versionID); err != nil {
		return fmt.Errorf("failed to deactivate configuration %s: %w", versionID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*types.ModelConfiguration, error) {
	var (
		cfg       types.ModelConfiguration
		active    int
		weights   sql.NullString
		createdAt string
	)
	if err := row.Scan(&cfg.VersionID, &active, &cfg.ContainmentThreshold,
		&cfg.DisruptiveThreshold, &cfg.TrustMomentum, &cfg.SuccessStreak,
		&cfg.FailureStreak, &weights, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan configuration row: %w", err)
	}
	cfg.IsActive = active == 1
	cfg.CreatedAt = parseStoredTime(createdAt)
	if weights.Valid && weights.String != "" {
		if err := json.Unmarshal([]byte(weights.String), &cfg.RiskWeights); err != nil {
			logging.GovernanceDebug("Ignoring malformed risk weights for %s: %v", cfg.VersionID, err)
			cfg.RiskWeights = nil
		}
	}
	return &cfg, nil
}

func encodeRiskWeights(weights map[string]float64) (string, error) {
	if len(weights) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(weights)
	if err != nil {
		return "", fmt.Errorf("failed to encode risk weights: %w", err)
	}
	return string(raw), nil
}

func parseStoredTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		logging.GovernanceDebug("Failed to parse stored timestamp %q: %v", value, err)
		return time.Time{}
	}
	return ts
}
