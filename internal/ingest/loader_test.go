package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foresight/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadEventsJSONArray(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.json", `[
		{"event_id":"e2","timestamp":"2026-03-01T10:05:00Z","event_type":"auth_failure","user":"svc_deploy","source_host":"web01","confidence_score":0.4,"data_quality_score":0.9},
		{"event_id":"e1","timestamp":"2026-03-01T10:00:00Z","event_type":"security_alert","user":"svc_deploy","source_host":"web01","confidence_score":0.9,"data_quality_score":1.0,"raw_text":"CVE-2021-44228 exploit attempt"}
	]`)

	events, err := NewLoader().LoadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Sorted by timestamp regardless of file order.
	assert.Equal(t, "e1", events[0].EventID)
	assert.Equal(t, "e2", events[1].EventID)
	assert.Equal(t, "CVE-2021-44228 exploit attempt", events[0].RawText)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), events[0].Timestamp)
}

func TestLoadEventsNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.ndjson",
		`{"timestamp":"2026-03-01 10:00:00","event_type":"network_connection","source_host":"db01","confidence":0.3}
{"timestamp":"2026-03-01 10:01:00","event_type":"network_connection","source_host":"db01","confidence":0.5}
`)

	events, err := NewLoader().LoadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 0.3, events[0].ConfidenceScore)
}

func TestLoadEventsAliasesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.json", `[
		{"timestamp":"2026-03-01T10:00:00Z","event_type":"process_start","technique_id":"T1059","raw_source":"powershell -enc ...","confidence":0.7}
	]`)

	events, err := NewLoader().LoadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "T1059", ev.MitreTechnique)
	assert.Equal(t, "powershell -enc ...", ev.RawText)
	assert.Equal(t, 0.7, ev.ConfidenceScore)
	assert.Equal(t, "Unknown", ev.User)
	assert.Equal(t, "Unknown", ev.SourceHost)
	assert.Equal(t, 1.0, ev.DataQualityScore)
}

func TestLoadEventsMissingRequiredField(t *testing.T) {
	dir := t.TempDir()

	noType := writeFile(t, dir, "no_type.json", `[{"timestamp":"2026-03-01T10:00:00Z"}]`)
	_, err := NewLoader().LoadEvents(noType)
	assert.ErrorIs(t, err, types.ErrInputSchema)

	noTS := writeFile(t, dir, "no_ts.json", `[{"event_type":"auth_failure"}]`)
	_, err = NewLoader().LoadEvents(noTS)
	assert.ErrorIs(t, err, types.ErrInputSchema)

	badTS := writeFile(t, dir, "bad_ts.json", `[{"timestamp":"yesterday","event_type":"auth_failure"}]`)
	_, err = NewLoader().LoadEvents(badTS)
	assert.ErrorIs(t, err, types.ErrInputSchema)
}

func TestLoadEventsDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `[{"timestamp":"2026-03-01T11:00:00Z","event_type":"system_audit","source_host":"app01"}]`)
	writeFile(t, dir, "a.ndjson", `{"timestamp":"2026-03-01T10:00:00Z","event_type":"security_alert","source_host":"web01"}`)
	writeFile(t, dir, "ignored.txt", "not events")

	events, err := NewLoader().LoadEvents(dir)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "web01", events[0].SourceHost)
	assert.Equal(t, "app01", events[1].SourceHost)
}

func TestLoadEventsEmptyDirIsSchemaError(t *testing.T) {
	_, err := NewLoader().LoadEvents(t.TempDir())
	assert.ErrorIs(t, err, types.ErrInputSchema)
}

func TestLoadEventsEmptyFileYieldsNoEvents(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.json", "  \n")

	events, err := NewLoader().LoadEvents(path)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestVerifyIntegrity(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.json", `[]`)

	assert.NoError(t, NewLoader().VerifyIntegrity(path))
	assert.Error(t, NewLoader().VerifyIntegrity(filepath.Join(dir, "missing.json")))
}
