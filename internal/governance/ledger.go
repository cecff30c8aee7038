package governance

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"foresight/internal/logging"
	"foresight/internal/types"
)

// genesisHash anchors the chain before any entry exists.
var genesisHash = strings.Repeat("0", 64)

// entryHash derives the chain hash for one entry. The payload must already
// be canonical key-sorted JSON; the timestamp must be the exact string that
// gets stored, so verification can replay it byte for byte.
func entryHash(prevHash, timestamp, eventType, payload, actor string) string {
	sum := sha256.Sum256([]byte(prevHash + timestamp + eventType + payload + actor))
	return hex.EncodeToString(sum[:])
}

// AppendEvent chains one event onto the ledger and returns its hash.
func (s *Store) AppendEvent(ctx context.Context, eventType string, payload map[string]any, actor string) (string, error) {
	var hashID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		hashID, err = appendEventTx(ctx, tx, eventType, payload, actor)
		return err
	})
	if err != nil {
		return "", err
	}
	return hashID, nil
}

// appendEventTx writes one chained entry inside an open transaction.
func appendEventTx(ctx context.Context, tx *sql.Tx, eventType string, payload map[string]any, actor string) (string, error) {
	prevHash, err := lastHashTx(ctx, tx)
	if err != nil {
		return "", err
	}

	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize ledger payload: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	hashID := entryHash(prevHash, timestamp, eventType, string(canonical), actor)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trust_ledger (hash_id, previous_hash, timestamp, event_type, payload, actor)
		VALUES (?, ?, ?, ?, ?, ?)`,
		hashID, prevHash, timestamp, eventType, string(canonical), actor)
	if err != nil {
		return "", fmt.Errorf("failed to append ledger entry: %w", err)
	}

	logging.GovernanceDebug("Ledger event %s appended by %s (%s)", eventType, actor, hashID[:12])
	return hashID, nil
}

// lastHashTx returns the newest entry hash, or the genesis anchor for an
// empty ledger. Insertion order is authoritative; timestamps are
// informational.
func lastHashTx(ctx context.Context, tx *sql.Tx) (string, error) {
	var hashID string
	err := tx.QueryRowContext(ctx,
		`SELECT hash_id FROM trust_ledger ORDER BY id DESC LIMIT 1`).Scan(&hashID)
	if err == sql.ErrNoRows {
		return genesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read ledger head: %w", err)
	}
	return hashID, nil
}

// VerifyLedger replays the whole chain in insertion order, checking both
// the previous_hash linkage and each recomputed hash. It never mutates
// state. A broken chain returns ErrLedgerIntegrity.
func (s *Store) VerifyLedger(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryGovernance, "Ledger verification")
	defer timer.Stop()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hash_id, previous_hash, timestamp, event_type, payload, actor
		FROM trust_ledger ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	prevHash := genesisHash
	checked := 0
	for rows.Next() {
		var id int64
		var hashID, previous, timestamp, eventType, payload, actor string
		if err := rows.Scan(&id, &hashID, &previous, &timestamp, &eventType, &payload, &actor); err != nil {
			return fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if previous != prevHash {
			logging.GovernanceError("Ledger entry %d has broken chain linkage", id)
			return fmt.Errorf("entry %d: previous hash mismatch: %w", id, types.ErrLedgerIntegrity)
		}
		if recomputed := entryHash(prevHash, timestamp, eventType, payload, actor); recomputed != hashID {
			logging.GovernanceError("Ledger entry %d fails hash recomputation", id)
			return fmt.Errorf("entry %d: hash mismatch: %w", id, types.ErrLedgerIntegrity)
		}
		prevHash = hashID
		checked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}

	logging.GovernanceDebug("Ledger verified: %d entries intact", checked)
	return nil
}

// LedgerEntryCount returns the total number of chained entries.
func (s *Store) LedgerEntryCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trust_ledger`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// RecentLedgerEntries returns the newest entries first, with hashes
// truncated for display.
func (s *Store) RecentLedgerEntries(ctx context.Context, limit int) ([]types.LedgerEntrySummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash_id, event_type, timestamp, actor
		FROM trust_ledger ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []types.LedgerEntrySummary{}
	for rows.Next() {
		var entry types.LedgerEntrySummary
		if err := rows.Scan(&entry.HashID, &entry.EventType, &entry.Timestamp, &entry.Actor); err != nil {
			return nil, fmt.Errorf("failed to scan ledger summary: %w", err)
		}
		if len(entry.HashID) > 12 {
			entry.HashID = entry.HashID[:12] + "..."
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent ledger entries: %w", err)
	}
	return entries, nil
}
