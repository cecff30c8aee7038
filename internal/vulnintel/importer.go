package vulnintel

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"foresight/internal/logging"
	"foresight/internal/types"
)

// ImportStats reports how many records an import touched.
type ImportStats struct {
	CVEs     int `json:"cve_count"`
	CWEs     int `json:"cwe_count"`
	KEV      int `json:"kev_count"`
	Mappings int `json:"mapping_count"`
}

// catalogDump is the consolidated feed format consumed by catalog load. It
// folds the NVD CVE feed, the CWE dictionary, and the CISA KEV list into one
// document so a catalog can be rebuilt from a single artifact.
type catalogDump struct {
	CVEs []cveRecord `json:"cves"`
	CWEs []cweRecord `json:"cwes"`
	KEV  []kevRecord `json:"kev"`
}

type cveRecord struct {
	CVEID            string   `json:"cve_id"`
	Description      string   `json:"description"`
	PublishedDate    string   `json:"published_date,omitempty"`
	LastModifiedDate string   `json:"last_modified_date,omitempty"`
	CVSSV3Score      *float64 `json:"cvss_v3_score,omitempty"`
	CVSSV3Severity   string   `json:"cvss_v3_severity,omitempty"`
	CVSSV3Vector     string   `json:"cvss_v3_vector,omitempty"`
	AttackVector     string   `json:"attack_vector,omitempty"`
	AffectedCPEs     []string `json:"affected_cpes,omitempty"`
	ReferenceURLs    []string `json:"reference_urls,omitempty"`
	SourceFeed       string   `json:"source_feed,omitempty"`
	CWEIDs           []string `json:"cwe_ids,omitempty"`
}

type cweRecord struct {
	CWEID               string `json:"cwe_id"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	Abstraction         string `json:"abstraction,omitempty"`
	Status              string `json:"status,omitempty"`
	LikelihoodOfExploit string `json:"likelihood_of_exploit,omitempty"`
}

type kevRecord struct {
	CVEID              string `json:"cve_id"`
	VendorProject      string `json:"vendor_project,omitempty"`
	Product            string `json:"product,omitempty"`
	VulnerabilityName  string `json:"vulnerability_name"`
	DateAdded          string `json:"date_added,omitempty"`
	ShortDescription   string `json:"short_description,omitempty"`
	RequiredAction     string `json:"required_action,omitempty"`
	DueDate            string `json:"due_date,omitempty"`
	KnownRansomwareUse string `json:"known_ransomware_use,omitempty"`
}

// Initialize creates the catalog database and schema at path. Existing
// catalogs are left intact; the DDL is idempotent.
func Initialize(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("no catalog path configured: %w", types.ErrCatalogUnavailable)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := openWritable(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := createSchema(db); err != nil {
		return err
	}
	logging.Catalog("Catalog schema initialized at %s", path)
	return nil
}

// ImportJSON loads a consolidated catalog dump into the database at dbPath,
// creating the schema when needed. The import runs in a single transaction
// and upserts by identifier, so re-importing the same dump is idempotent.
func ImportJSON(ctx context.Context, dbPath, dumpPath string) (ImportStats, error) {
	timer := logging.StartTimer(logging.CategoryCatalog, "catalog import")
	defer timer.Stop()

	raw, err := os.ReadFile(dumpPath)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to read catalog dump: %v: %w", err, types.ErrInputSchema)
	}
	var dump catalogDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return ImportStats{}, fmt.Errorf("failed to parse catalog dump %s: %v: %w", dumpPath, err, types.ErrInputSchema)
	}

	if err := Initialize(dbPath); err != nil {
		return ImportStats{}, err
	}
	db, err := openWritable(dbPath)
	if err != nil {
		return ImportStats{}, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to begin catalog import: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	stats := ImportStats{}

	for _, rec := range dump.CWEs {
		id := normalizeCWEID(rec.CWEID)
		if id == "" || rec.Name == "" {
			logging.CatalogDebug("Skipping CWE record with missing id or name")
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cwe (cwe_id, name, description, abstraction, status, likelihood_of_exploit, ingested_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cwe_id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				abstraction = excluded.abstraction,
				status = excluded.status,
				likelihood_of_exploit = excluded.likelihood_of_exploit,
				updated_at = excluded.updated_at`,
			id, rec.Name, rec.Description, rec.Abstraction, rec.Status, rec.LikelihoodOfExploit, now, now)
		if err != nil {
			return ImportStats{}, fmt.Errorf("failed to import CWE %s: %w", id, err)
		}
		stats.CWEs++
	}

	for _, rec := range dump.CVEs {
		id := normalizeCVEID(rec.CVEID)
		if id == "" || rec.Description == "" {
			logging.CatalogDebug("Skipping CVE record with missing id or description")
			continue
		}
		var score sql.NullFloat64
		if rec.CVSSV3Score != nil {
			score = sql.NullFloat64{Float64: *rec.CVSSV3Score, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cve (cve_id, description, published_date, last_modified_date,
				cvss_v3_score, cvss_v3_severity, cvss_v3_vector, attack_vector,
				affected_cpes, reference_urls, source_feed, ingested_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cve_id) DO UPDATE SET
				description = excluded.description,
				published_date = excluded.published_date,
				last_modified_date = excluded.last_modified_date,
				cvss_v3_score = excluded.cvss_v3_score,
				cvss_v3_severity = excluded.cvss_v3_severity,
				cvss_v3_vector = excluded.cvss_v3_vector,
				attack_vector = excluded.attack_vector,
				affected_cpes = excluded.affected_cpes,
				reference_urls = excluded.reference_urls,
				source_feed = excluded.source_feed,
				updated_at = excluded.updated_at`,
			id, rec.Description, rec.PublishedDate, rec.LastModifiedDate,
			score, rec.CVSSV3Severity, rec.CVSSV3Vector, rec.AttackVector,
			strings.Join(rec.AffectedCPEs, ","), strings.Join(rec.ReferenceURLs, ","),
			rec.SourceFeed, now, now)
		if err != nil {
			return ImportStats{}, fmt.Errorf("failed to import CVE %s: %w", id, err)
		}
		stats.CVEs++

		if _, err := tx.ExecContext(ctx, `DELETE FROM cve_cwe_map WHERE cve_id = ?`, id); err != nil {
			return ImportStats{}, fmt.Errorf("failed to reset CWE mappings for %s: %w", id, err)
		}
		for _, cwe := range rec.CWEIDs {
			cweID := normalizeCWEID(cwe)
			if cweID == "" {
				continue
			}
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO cve_cwe_map (cve_id, cwe_id) VALUES (?, ?)`, id, cweID)
			if err != nil {
				return ImportStats{}, fmt.Errorf("failed to map %s to %s: %w", id, cweID, err)
			}
			stats.Mappings++
		}
	}

	for _, rec := range dump.KEV {
		id := normalizeCVEID(rec.CVEID)
		if id == "" {
			logging.CatalogDebug("Skipping KEV record with missing CVE id")
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM kev WHERE cve_id = ?`, id); err != nil {
			return ImportStats{}, fmt.Errorf("failed to reset KEV entry for %s: %w", id, err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kev (cve_id, vendor_project, product, vulnerability_name, date_added,
				short_description, required_action, due_date, known_ransomware_use, ingested_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rec.VendorProject, rec.Product, rec.VulnerabilityName, rec.DateAdded,
			rec.ShortDescription, rec.RequiredAction, rec.DueDate, rec.KnownRansomwareUse, now, now)
		if err != nil {
			return ImportStats{}, fmt.Errorf("failed to import KEV entry for %s: %w", id, err)
		}
		stats.KEV++
	}

	processed := stats.CVEs + stats.CWEs + stats.KEV + stats.Mappings
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_metadata (source, last_sync_time, last_sync_status, records_processed, errors_encountered)
		VALUES ('import', ?, 'success', ?, 0)
		ON CONFLICT(source) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			last_sync_status = excluded.last_sync_status,
			records_processed = excluded.records_processed,
			errors_encountered = excluded.errors_encountered`,
		now, processed)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to record sync metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportStats{}, fmt.Errorf("failed to commit catalog import: %w", err)
	}

	logging.Catalog("Catalog import complete: %d CVEs, %d CWEs, %d KEV entries, %d mappings",
		stats.CVEs, stats.CWEs, stats.KEV, stats.Mappings)
	return stats, nil
}

// openWritable opens the catalog for maintenance. The importer is the only
// writer, so the pool is pinned to a single connection.
func openWritable(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog for writing: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.CatalogDebug("Failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.CatalogDebug("Failed to enable WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.CatalogDebug("Failed to set synchronous mode: %v", err)
	}
	return db, nil
}
