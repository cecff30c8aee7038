// Package session groups enriched events into identity-scoped activity
// windows.
package session

import (
	"fmt"
	"sort"
	"time"

	"foresight/internal/logging"
	"foresight/internal/types"
)

// Builder assembles sessions from an event batch. Events are keyed by a
// surrogate identity and split whenever the gap between consecutive
// events exceeds the inactivity window.
type Builder struct {
	window         time.Duration
	highConfidence float64
	log            *logging.Logger
}

// NewBuilder returns a Builder with the given inactivity window and
// high-priority confidence threshold.
func NewBuilder(window time.Duration, highConfidence float64) *Builder {
	return &Builder{
		window:         window,
		highConfidence: highConfidence,
		log:            logging.Get(logging.CategorySession),
	}
}

// Surrogate picks the identity an event is attributed to: the user when
// attributed, else the source host, else "System". The "Unknown"
// placeholder is treated the same as absent.
func Surrogate(ev types.EnrichedEvent) string {
	if ev.User != "" && ev.User != "Unknown" {
		return ev.User
	}
	if ev.SourceHost != "" && ev.SourceHost != "Unknown" {
		return ev.SourceHost
	}
	return "System"
}

// Build partitions the batch into sessions. Output is ordered by
// surrogate, then window start, so repeated runs over the same batch
// produce identical session lists.
func (b *Builder) Build(events []types.EnrichedEvent) []types.Session {
	timer := logging.StartTimer(logging.CategoryPerformance, "sessionize batch")
	defer timer.Stop()

	if len(events) == 0 {
		return nil
	}

	ordered := make([]types.EnrichedEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := Surrogate(ordered[i]), Surrogate(ordered[j])
		if si != sj {
			return si < sj
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var sessions []types.Session
	var current []types.EnrichedEvent
	currentSurrogate := ""
	windowIndex := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		windowIndex++
		sessions = append(sessions, b.materialize(currentSurrogate, windowIndex, current))
		current = nil
	}

	for _, ev := range ordered {
		s := Surrogate(ev)
		if s != currentSurrogate {
			flush()
			currentSurrogate = s
			windowIndex = 0
		} else if len(current) > 0 {
			gap := ev.Timestamp.Sub(current[len(current)-1].Timestamp)
			if gap > b.window {
				flush()
			}
		}
		current = append(current, ev)
	}
	flush()

	b.log.Info("built %d sessions from %d events", len(sessions), len(events))
	return sessions
}

// materialize turns one window of events into a Session.
func (b *Builder) materialize(surrogate string, windowIndex int, events []types.EnrichedEvent) types.Session {
	id := fmt.Sprintf("Activity on %s", surrogate)
	if windowIndex > 1 {
		id = fmt.Sprintf("%s #%d", id, windowIndex)
	}

	s := types.Session{
		SessionID: id,
		User:      events[0].User,
		StartTime: events[0].Timestamp,
		EndTime:   events[len(events)-1].Timestamp,
		Events:    events,
	}

	// Host switching inside one identity window or any high-confidence
	// detection marks the session for priority triage.
	if len(s.DistinctHosts()) > 1 {
		s.IsHighPriority = true
	}
	for _, ev := range events {
		if ev.ConfidenceScore > b.highConfidence {
			s.IsHighPriority = true
			break
		}
	}

	b.log.Debug("session %q: %d events, priority=%v", s.SessionID, len(events), s.IsHighPriority)
	return s
}
