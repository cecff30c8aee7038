package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionCatalogCoherence(t *testing.T) {
	for action := range ActionCosts {
		_, ok := ConfidenceThresholds[action]
		assert.True(t, ok, "action %q has a cost but no confidence threshold", action)
		_, ok = RiskReductionEstimates[action]
		assert.True(t, ok, "action %q has a cost but no risk reduction estimate", action)
	}
	for tech, actions := range TechniqueResponses {
		require.NotEmpty(t, actions, "technique %s maps to no actions", tech)
		for _, a := range actions {
			_, ok := ActionCosts[a]
			assert.True(t, ok, "technique %s references unknown action %q", tech, a)
		}
	}
	for _, a := range FallbackResponses {
		_, ok := ConfidenceThresholds[a]
		assert.True(t, ok, "fallback action %q missing threshold", a)
	}
}

func TestTransitionGraphCoherence(t *testing.T) {
	for tech, edges := range TransitionMatrix {
		sum := 0.0
		for _, e := range edges {
			sum += e.Probability
			assert.Greater(t, e.Probability, 0.0, "%s -> %s has non-positive weight", tech, e.Next)
		}
		assert.LessOrEqual(t, sum, 1.0+1e-9, "outgoing probabilities from %s exceed 1", tech)
	}
}

func TestPrerequisitesStayInGraph(t *testing.T) {
	known := func(id string) bool {
		if _, ok := TransitionMatrix[id]; ok {
			return true
		}
		for _, edges := range TransitionMatrix {
			for _, e := range edges {
				if e.Next == id {
					return true
				}
			}
		}
		return false
	}
	for tech, pres := range Prerequisites {
		assert.True(t, known(tech), "prerequisite entry for unknown technique %s", tech)
		for _, p := range pres {
			assert.True(t, known(p), "%s lists unknown prerequisite %s", tech, p)
		}
	}
}

func TestKillChainDepth(t *testing.T) {
	phase, rank := DeepestPhase([]string{"T1595", "T1190", "T1021"})
	assert.Equal(t, "Lateral Movement", phase)
	assert.Equal(t, 10, rank)

	phase, rank = DeepestPhase([]string{"T9999"})
	assert.Equal(t, "Unknown", phase)
	assert.Equal(t, 0, rank)

	// T1595 is deliberately unmapped so pure scanning ranks at depth 0.
	assert.Equal(t, "Unknown", PhaseOf("T1595"))
}

func TestPhaseBranchWeights(t *testing.T) {
	for phase, branches := range NextStepsByPhase {
		require.NotEmpty(t, branches, "phase %q has no branches", phase)
		sum := 0.0
		for _, b := range branches {
			assert.Greater(t, b.Probability, 0.0, "branch %s -> %s has non-positive weight", phase, b.NextPhase)
			sum += b.Probability
		}
		assert.LessOrEqual(t, sum, 1.0+1e-9, "branches from %q exceed probability 1", phase)
	}
}

func TestHumanizeCWE(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CWE-89", "SQL Injection"},
		{"cwe-78", "OS Command Injection"},
		{"287", "Improper Authentication"},
		{"CWE-99999", "CWE-99999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanizeCWE(tt.in), "input %q", tt.in)
	}
}

func TestTechniqueNameFallback(t *testing.T) {
	assert.Equal(t, "Valid Accounts", TechniqueName("T1078"))
	assert.Equal(t, "Adversary Technique T4242", TechniqueName("T4242"))
}

func TestTimePriorFallback(t *testing.T) {
	assert.Equal(t, TimePrior{MinSeconds: 120, MaxSeconds: 1800}, TimePriorFor("T1059"))
	assert.Equal(t, DefaultTimePrior, TimePriorFor("T4242"))
}
