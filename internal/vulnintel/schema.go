package vulnintel

import (
	"database/sql"
	"fmt"
)

// Schema for the local vulnerability intelligence catalog. The catalog is
// a plain SQLite file built offline (catalog init + catalog load) and opened
// read-only by the analysis pipeline.

const cveTable = `
CREATE TABLE IF NOT EXISTS cve (
	cve_id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	published_date TEXT,
	last_modified_date TEXT,
	cvss_v3_score REAL,
	cvss_v3_severity TEXT,
	cvss_v3_vector TEXT,
	attack_vector TEXT,
	attack_complexity TEXT,
	privileges_required TEXT,
	user_interaction TEXT,
	scope TEXT,
	confidentiality_impact TEXT,
	integrity_impact TEXT,
	availability_impact TEXT,
	affected_cpes TEXT,
	reference_urls TEXT,
	source_feed TEXT,
	ingested_at TEXT,
	updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_cve_published ON cve(published_date);
CREATE INDEX IF NOT EXISTS idx_cve_modified ON cve(last_modified_date);
CREATE INDEX IF NOT EXISTS idx_cve_severity ON cve(cvss_v3_severity);
CREATE INDEX IF NOT EXISTS idx_cve_score ON cve(cvss_v3_score);
`

const cweTable = `
CREATE TABLE IF NOT EXISTS cwe (
	cwe_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	abstraction TEXT,
	status TEXT,
	likelihood_of_exploit TEXT,
	common_consequences TEXT,
	applicable_platforms TEXT,
	modes_of_introduction TEXT,
	detection_methods TEXT,
	ingested_at TEXT,
	updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_cwe_abstraction ON cwe(abstraction);
CREATE INDEX IF NOT EXISTS idx_cwe_likelihood ON cwe(likelihood_of_exploit);
`

const kevTable = `
CREATE TABLE IF NOT EXISTS kev (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cve_id TEXT NOT NULL,
	vendor_project TEXT,
	product TEXT,
	vulnerability_name TEXT,
	date_added TEXT,
	short_description TEXT,
	required_action TEXT,
	due_date TEXT,
	known_ransomware_use TEXT,
	notes TEXT,
	ingested_at TEXT,
	updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_kev_cve ON kev(cve_id);
CREATE INDEX IF NOT EXISTS idx_kev_date_added ON kev(date_added);
CREATE INDEX IF NOT EXISTS idx_kev_ransomware ON kev(known_ransomware_use);
`

const cveCweMapTable = `
CREATE TABLE IF NOT EXISTS cve_cwe_map (
	cve_id TEXT NOT NULL,
	cwe_id TEXT NOT NULL,
	PRIMARY KEY (cve_id, cwe_id)
);
CREATE INDEX IF NOT EXISTS idx_map_cve ON cve_cwe_map(cve_id);
CREATE INDEX IF NOT EXISTS idx_map_cwe ON cve_cwe_map(cwe_id);
`

const syncMetadataTable = `
CREATE TABLE IF NOT EXISTS sync_metadata (
	source TEXT PRIMARY KEY,
	last_sync_time TEXT,
	last_sync_status TEXT,
	records_processed INTEGER,
	errors_encountered INTEGER,
	next_sync_due TEXT
);
`

// requiredTables are the tables a usable catalog must expose. A file that
// opens but lacks these is treated as unavailable rather than empty.
var requiredTables = []string{"cve", "cwe", "kev", "cve_cwe_map"}

// createSchema executes the full catalog DDL. Statements are idempotent so
// this is safe to run against an existing catalog.
func createSchema(db *sql.DB) error {
	for _, ddl := range []string{
		cveTable,
		cweTable,
		kevTable,
		cveCweMapTable,
		syncMetadataTable,
	} {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	return nil
}

// hasRequiredTables reports whether the opened database carries the catalog
// schema.
func hasRequiredTables(db *sql.DB) (bool, error) {
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('cve', 'cwe', 'kev', 'cve_cwe_map')`
	var count int
	if err := db.QueryRow(query).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to inspect catalog schema: %w", err)
	}
	return count == len(requiredTables), nil
}
