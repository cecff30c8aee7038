// Package vulnintel provides read access to the local vulnerability
// intelligence catalog: CVE records, CWE weakness metadata, and the CISA
// Known Exploited Vulnerabilities (KEV) list, consolidated into one SQLite
// file. The analysis pipeline treats the catalog as read-only; the importer
// in this package owns the write path.
package vulnintel

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"foresight/internal/logging"
	"foresight/internal/types"
)

// Details is the catalog intelligence attached to a single CVE. Unknown CVEs
// resolve to a zero-value Details (CVSS 0.0, no KEV entry, no CWEs) so the
// pipeline degrades instead of failing when the catalog has gaps.
type Details struct {
	CVEID       string   `json:"cve_id"`
	CVSS        float64  `json:"cvss"`
	Severity    string   `json:"severity,omitempty"`
	Description string   `json:"description,omitempty"`
	IsKEV       bool     `json:"is_kev"`
	KEVName     string   `json:"kev_name,omitempty"`
	CWEs        []string `json:"cwes,omitempty"`
}

// Weakness is the catalog record for one CWE. A zero-value Name means the
// weakness is not in the catalog.
type Weakness struct {
	CWEID       string `json:"cwe_id"`
	Name        string `json:"name,omitempty"`
	Abstraction string `json:"abstraction,omitempty"`
}

// Reader is the lookup surface the analysis stages consume. *Catalog
// implements it; tests substitute fixtures.
type Reader interface {
	VulnDetails(ctx context.Context, cveID string) (Details, error)
	CWEDetails(ctx context.Context, cweID string) (Weakness, error)
}

// boundedReader caps every lookup with its own deadline so a wedged
// catalog degrades through the stages' zero-record fallbacks instead of
// stalling the cycle.
type boundedReader struct {
	inner   Reader
	timeout time.Duration
}

// WithTimeout wraps a Reader so each lookup carries a bounded deadline.
// A non-positive timeout returns the Reader unchanged.
func WithTimeout(r Reader, timeout time.Duration) Reader {
	if timeout <= 0 {
		return r
	}
	return &boundedReader{inner: r, timeout: timeout}
}

func (b *boundedReader) VulnDetails(ctx context.Context, cveID string) (Details, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.inner.VulnDetails(ctx, cveID)
}

func (b *boundedReader) CWEDetails(ctx context.Context, cweID string) (Weakness, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.inner.CWEDetails(ctx, cweID)
}

// Stats summarizes catalog contents for the catalog stats command.
type Stats struct {
	Path     string `json:"path"`
	CVEs     int64  `json:"cve_count"`
	CWEs     int64  `json:"cwe_count"`
	KEV      int64  `json:"kev_count"`
	Mappings int64  `json:"mapping_count"`
	LastSync string `json:"last_sync,omitempty"`
}

// Catalog is a read-only handle on the vulnerability intelligence database.
// Lookups are cached, so a Catalog is safe and cheap to share across the
// pipeline workers.
type Catalog struct {
	db    *sql.DB
	path  string
	cache *lookupCache
}

// Open opens the catalog at path in read-only mode. A missing or unreadable
// file, or a database without the catalog schema, yields
// types.ErrCatalogUnavailable. An intact but empty catalog opens normally
// and serves zero-value fallbacks.
func Open(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no catalog path configured: %w", types.ErrCatalogUnavailable)
	}
	if _, err := os.Stat(path); err != nil {
		logging.CatalogWarn("Catalog database not found at %s", path)
		return nil, fmt.Errorf("catalog %s: %w", path, types.ErrCatalogUnavailable)
	}

	dsn := fmt.Sprintf("%s?mode=ro", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %v: %w", path, err, types.ErrCatalogUnavailable)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		logging.CatalogWarn("Catalog database at %s could not be opened: %v", path, err)
		return nil, fmt.Errorf("catalog %s: %v: %w", path, err, types.ErrCatalogUnavailable)
	}

	// busy_timeout keeps concurrent readers from tripping over a writer
	// that is rebuilding the catalog. Failure is non-fatal.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.CatalogDebug("Failed to set busy_timeout: %v", err)
	}

	ok, err := hasRequiredTables(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog %s: %v: %w", path, err, types.ErrCatalogUnavailable)
	}
	if !ok {
		db.Close()
		logging.CatalogWarn("Database at %s is missing catalog tables", path)
		return nil, fmt.Errorf("catalog %s has no intelligence schema: %w", path, types.ErrCatalogUnavailable)
	}

	logging.Catalog("Vulnerability catalog opened: %s", path)
	return &Catalog{
		db:    db,
		path:  path,
		cache: newLookupCache(),
	}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the catalog file location.
func (c *Catalog) Path() string {
	return c.path
}

// VulnDetails resolves a CVE identifier against the catalog, joining the KEV
// list and the CWE mapping. Results, including negative ones, are cached for
// the lifetime of the Catalog. Only genuine database failures return an
// error; an unknown CVE returns a zero-value Details.
func (c *Catalog) VulnDetails(ctx context.Context, cveID string) (Details, error) {
	id := normalizeCVEID(cveID)
	if id == "" {
		return Details{}, nil
	}
	if d, ok := c.cache.getVuln(id); ok {
		return d, nil
	}

	timer := logging.StartTimer(logging.CategoryCatalog, fmt.Sprintf("lookup %s", id))
	d, err := c.queryVulnDetails(ctx, id)
	timer.Stop()
	if err != nil {
		return Details{}, err
	}

	c.cache.putVuln(id, d)
	return d, nil
}

func (c *Catalog) queryVulnDetails(ctx context.Context, id string) (Details, error) {
	const query = `
		SELECT c.description, c.cvss_v3_score, c.cvss_v3_severity, k.vulnerability_name
		FROM cve c
		LEFT JOIN kev k ON k.cve_id = c.cve_id
		WHERE c.cve_id = ?
		LIMIT 1`

	d := Details{CVEID: id}
	var (
		description sql.NullString
		score       sql.NullFloat64
		severity    sql.NullString
		kevName     sql.NullString
	)
	err := c.db.QueryRowContext(ctx, query, id).Scan(&description, &score, &severity, &kevName)
	switch {
	case err == sql.ErrNoRows:
		logging.CatalogDebug("CVE %s not in catalog, serving zero-value fallback", id)
		return d, nil
	case err != nil:
		return Details{}, fmt.Errorf("failed to query CVE %s: %w", id, err)
	}

	d.Description = description.String
	d.CVSS = score.Float64
	d.Severity = severity.String
	if kevName.Valid {
		d.IsKEV = true
		d.KEVName = kevName.String
	}

	rows, err := c.db.QueryContext(ctx, `SELECT cwe_id FROM cve_cwe_map WHERE cve_id = ? ORDER BY cwe_id`, id)
	if err != nil {
		return Details{}, fmt.Errorf("failed to query CWE mappings for %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cwe string
		if err := rows.Scan(&cwe); err != nil {
			return Details{}, fmt.Errorf("failed to scan CWE mapping for %s: %w", id, err)
		}
		d.CWEs = append(d.CWEs, cwe)
	}
	if err := rows.Err(); err != nil {
		return Details{}, fmt.Errorf("failed to read CWE mappings for %s: %w", id, err)
	}
	return d, nil
}

// CWEDetails resolves a CWE identifier to its catalog name and abstraction.
// An empty Name means the weakness is not in the catalog; callers decide how
// to degrade. Negative results are cached like positive ones.
func (c *Catalog) CWEDetails(ctx context.Context, cweID string) (Weakness, error) {
	id := normalizeCWEID(cweID)
	if id == "" {
		return Weakness{}, nil
	}
	if w, ok := c.cache.getCWE(id); ok {
		return w, nil
	}

	w := Weakness{CWEID: id}
	var abstraction sql.NullString
	err := c.db.QueryRowContext(ctx, `SELECT name, abstraction FROM cwe WHERE cwe_id = ?`, id).
		Scan(&w.Name, &abstraction)
	switch {
	case err == sql.ErrNoRows:
		logging.CatalogDebug("CWE %s not in catalog", id)
	case err != nil:
		return Weakness{}, fmt.Errorf("failed to query CWE %s: %w", id, err)
	default:
		w.Abstraction = abstraction.String
	}

	c.cache.putCWE(id, w)
	return w, nil
}

// Stats counts catalog rows per table, for operator visibility.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	s := Stats{Path: c.path}
	for _, q := range []struct {
		table string
		dst   *int64
	}{
		{"cve", &s.CVEs},
		{"cwe", &s.CWEs},
		{"kev", &s.KEV},
		{"cve_cwe_map", &s.Mappings},
	} {
		if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return Stats{}, fmt.Errorf("failed to count %s rows: %w", q.table, err)
		}
	}

	var lastSync sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT last_sync_time FROM sync_metadata ORDER BY last_sync_time DESC LIMIT 1`).Scan(&lastSync)
	if err != nil && err != sql.ErrNoRows {
		return Stats{}, fmt.Errorf("failed to read sync metadata: %w", err)
	}
	s.LastSync = lastSync.String
	return s, nil
}

// normalizeCVEID upper-cases and trims a CVE identifier so lookups are
// insensitive to log formatting.
func normalizeCVEID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// normalizeCWEID maps inputs like "cwe-79", "CWE_79" and "79" onto the
// canonical CWE-<n> form stored in the catalog.
func normalizeCWEID(id string) string {
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
