// Package types provides shared type definitions used across foresight packages.
// This package exists to break import cycles between ingest, pathing, forecast,
// decision, and governance. Types here are foundational data structures with no
// complex dependencies.
package types

import (
	"time"
)

// EnrichedEvent is a single normalized telemetry event as produced by the
// sensor layer. Optional fields default to "Unknown" or empty rather than
// nil so downstream stages never branch on presence.
type EnrichedEvent struct {
	EventID          string    `json:"event_id"`
	Timestamp        time.Time `json:"timestamp"`
	User             string    `json:"user,omitempty"`
	SourceHost       string    `json:"source_host,omitempty"`
	TargetHost       string    `json:"target_host,omitempty"`
	EventType        string    `json:"event_type"`
	Protocol         string    `json:"protocol,omitempty"`
	MitreTechnique   string    `json:"mitre_technique,omitempty"`
	ObservedCVEIDs   []string  `json:"observed_cve_ids,omitempty"`
	ObservedCWEIDs   []string  `json:"observed_cwe_ids,omitempty"`
	ConfidenceScore  float64   `json:"confidence_score"`
	DataQualityScore float64   `json:"data_quality_score"`
	RawText          string    `json:"raw_text,omitempty"`
}

// Session groups events for one surrogate identity inside a single
// inactivity window.
type Session struct {
	SessionID      string          `json:"session_id"`
	User           string          `json:"user,omitempty"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	Events         []EnrichedEvent `json:"events"`
	IsHighPriority bool            `json:"is_high_priority"`
}

// Duration reports the wall-clock span of the session.
func (s *Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// DistinctHosts returns the unique source hosts in first-seen order.
// "Unknown" placeholders still count as a host; they represent a real
// gap in attribution, not an absent value.
func (s *Session) DistinctHosts() []string {
	seen := make(map[string]bool, len(s.Events))
	hosts := make([]string, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.SourceHost == "" {
			continue
		}
		if !seen[ev.SourceHost] {
			seen[ev.SourceHost] = true
			hosts = append(hosts, ev.SourceHost)
		}
	}
	return hosts
}
