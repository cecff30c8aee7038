package decision

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"foresight/internal/types"
)

var urlHostPattern = regexp.MustCompile(`https?://([^/]+)`)

// principalOf extracts the campaign principal from a session id: the URL
// host when the id embeds one, else the prefix before the first underscore.
func principalOf(sessionID string) string {
	if m := urlHostPattern.FindStringSubmatch(sessionID); m != nil {
		return m[1]
	}
	if i := strings.Index(sessionID, "_"); i >= 0 {
		return sessionID[:i]
	}
	return sessionID
}

// normalizeHost reduces a URL-shaped target to its host component.
func normalizeHost(target string) string {
	if m := urlHostPattern.FindStringSubmatch(target); m != nil {
		return m[1]
	}
	return target
}

// groupContext is the campaign-level evaluation context shared by every
// session that hits the same principal.
type groupContext struct {
	principal    string
	sessionCount int
	boost        float64
	kev          bool
	maxCVSS      float64
	reason       string
}

// correlate groups forecasts by principal and computes the confidence
// boost and worst-case vulnerability attributes per group. Every session
// id in the batch gets a context entry.
func (e *Engine) correlate(ctx context.Context, forecasts []*types.PredictionSummary) map[string]groupContext {
	byPrincipal := make(map[string][]*types.PredictionSummary)
	var order []string
	for _, f := range forecasts {
		if f == nil {
			continue
		}
		p := principalOf(f.SessionID)
		if _, ok := byPrincipal[p]; !ok {
			order = append(order, p)
		}
		byPrincipal[p] = append(byPrincipal[p], f)
	}

	contexts := make(map[string]groupContext, len(forecasts))
	for _, principal := range order {
		group := byPrincipal[principal]
		gc := groupContext{
			principal:    principal,
			sessionCount: len(group),
			boost:        math.Min(1.0+float64(len(group))*0.15, 1.6),
		}
		for _, f := range group {
			for _, ref := range f.CurrentState.ObservedVulnerabilities {
				if !strings.HasPrefix(ref, "CVE-") {
					continue
				}
				details := e.vulnDetails(ctx, ref)
				if details.CVSS > gc.maxCVSS {
					gc.maxCVSS = details.CVSS
				}
				if details.IsKEV {
					gc.kev = true
				}
			}
		}
		gc.reason = fmt.Sprintf("Aggregated Campaign: %d correlated sessions hit '%s'", gc.sessionCount, principal)
		if gc.kev {
			gc.reason += " [Group contains KEV exploits]"
		}
		for _, f := range group {
			contexts[f.SessionID] = gc
		}
	}
	return contexts
}
