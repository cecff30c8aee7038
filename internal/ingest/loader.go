// Package ingest loads enriched event batches from JSON or NDJSON files and
// normalizes them into the shared event model.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"foresight/internal/logging"
	"foresight/internal/types"
)

// Loader reads event batches. Batches arrive as a single file, a
// directory of files, or a glob pattern; each file is either a JSON
// array or newline-delimited JSON objects.
type Loader struct {
	log *logging.Logger
}

// NewLoader returns a Loader.
func NewLoader() *Loader {
	return &Loader{log: logging.Get(logging.CategoryIngest)}
}

// wireEvent is the permissive on-disk shape. Sensor generations disagree
// on some field names, so aliases are coalesced here and nowhere else.
type wireEvent struct {
	EventID          string   `json:"event_id"`
	Timestamp        string   `json:"timestamp"`
	User             string   `json:"user"`
	SourceHost       string   `json:"source_host"`
	TargetHost       string   `json:"target_host"`
	EventType        string   `json:"event_type"`
	Protocol         string   `json:"protocol"`
	MitreTechnique   string   `json:"mitre_technique"`
	TechniqueID      string   `json:"technique_id"`
	ObservedCVEIDs   []string `json:"observed_cve_ids"`
	ObservedCWEIDs   []string `json:"observed_cwe_ids"`
	Confidence       *float64 `json:"confidence"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	DataQualityScore *float64 `json:"data_quality_score"`
	RawText          string   `json:"raw_text"`
	RawSource        string   `json:"raw_source"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// VerifyIntegrity checks that the input location exists and is readable.
// Cryptographic chain verification of the sensor feed happens upstream;
// this guards against pointing the pipeline at a dead path.
func (l *Loader) VerifyIntegrity(path string) error {
	files, err := l.resolveFiles(path)
	if err != nil {
		return err
	}
	for _, f := range files {
		fh, err := os.Open(f)
		if err != nil {
			return fmt.Errorf("input not readable: %w", err)
		}
		fh.Close()
	}
	return nil
}

// LoadEvents reads every matching file and returns the merged batch
// sorted by timestamp. Records missing timestamp or event_type fail the
// whole batch with a schema error.
func (l *Loader) LoadEvents(path string) ([]types.EnrichedEvent, error) {
	timer := logging.StartTimer(logging.CategoryPerformance, "load events")
	defer timer.Stop()

	files, err := l.resolveFiles(path)
	if err != nil {
		return nil, err
	}

	var events []types.EnrichedEvent
	for _, f := range files {
		batch, err := l.loadFile(f)
		if err != nil {
			return nil, err
		}
		events = append(events, batch...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	l.log.Info("loaded %d events from %d files", len(events), len(files))
	return events, nil
}

// resolveFiles expands a file, directory, or glob into concrete paths.
func (l *Loader) resolveFiles(path string) ([]string, error) {
	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no input files match %q: %w", path, types.ErrInputSchema)
		}
		sort.Strings(matches)
		return matches, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input path %q: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("input dir %q: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".ndjson", ".jsonl":
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no event files in %q: %w", path, types.ErrInputSchema)
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) loadFile(path string) ([]types.EnrichedEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		l.log.Warn("empty input file %s", path)
		return nil, nil
	}

	var raw []wireEvent
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", path, err, types.ErrInputSchema)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		for {
			var w wireEvent
			if err := dec.Decode(&w); err == io.EOF {
				break
			} else if err != nil {
				return nil, fmt.Errorf("%s: %v: %w", path, err, types.ErrInputSchema)
			}
			raw = append(raw, w)
		}
	}

	events := make([]types.EnrichedEvent, 0, len(raw))
	for i, w := range raw {
		ev, err := normalize(w, i)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		events = append(events, ev)
	}
	l.log.Debug("parsed %d events from %s", len(events), path)
	return events, nil
}

// normalize coalesces aliases, applies defaults, and enforces the two
// required fields.
func normalize(w wireEvent, record int) (types.EnrichedEvent, error) {
	if w.Timestamp == "" {
		return types.EnrichedEvent{}, types.SchemaError(record, "timestamp")
	}
	if w.EventType == "" {
		return types.EnrichedEvent{}, types.SchemaError(record, "event_type")
	}

	ts, err := parseTimestamp(w.Timestamp)
	if err != nil {
		return types.EnrichedEvent{}, fmt.Errorf("record %d: unparseable timestamp %q: %w", record, w.Timestamp, types.ErrInputSchema)
	}

	technique := w.MitreTechnique
	if technique == "" {
		technique = w.TechniqueID
	}
	rawText := w.RawText
	if rawText == "" {
		rawText = w.RawSource
	}

	confidence := 0.0
	if w.ConfidenceScore != nil {
		confidence = *w.ConfidenceScore
	} else if w.Confidence != nil {
		confidence = *w.Confidence
	}
	quality := 1.0
	if w.DataQualityScore != nil {
		quality = *w.DataQualityScore
	}

	user := w.User
	if user == "" {
		user = "Unknown"
	}
	sourceHost := w.SourceHost
	if sourceHost == "" {
		sourceHost = "Unknown"
	}

	return types.EnrichedEvent{
		EventID:          w.EventID,
		Timestamp:        ts,
		User:             user,
		SourceHost:       sourceHost,
		TargetHost:       w.TargetHost,
		EventType:        w.EventType,
		Protocol:         w.Protocol,
		MitreTechnique:   technique,
		ObservedCVEIDs:   w.ObservedCVEIDs,
		ObservedCWEIDs:   w.ObservedCWEIDs,
		ConfidenceScore:  confidence,
		DataQualityScore: quality,
		RawText:          rawText,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", s)
}
