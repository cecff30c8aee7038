// Package knowledge holds the static adversary model: kill-chain ordering,
// technique metadata, CWE mappings, the technique transition graph, and the
// response action catalog. Everything here is data; the analytic engines own
// the algorithms that walk it.
package knowledge

// PhaseBranch is one weighted continuation out of a kill-chain phase.
type PhaseBranch struct {
	NextPhase   string
	Probability float64
}

// KillChainOrder ranks tactics by depth of compromise. Higher means the
// intrusion has progressed further.
var KillChainOrder = map[string]int{
	"Reconnaissance":       1,
	"Resource Development": 2,
	"Initial Access":       3,
	"Execution":            4,
	"Persistence":          5,
	"Privilege Escalation": 6,
	"Defense Evasion":      7,
	"Credential Access":    8,
	"Discovery":            9,
	"Lateral Movement":     10,
	"Collection":           11,
	"Command and Control":  12,
	"Exfiltration":         13,
	"Impact":               14,
}

// PhaseByTechnique maps observed technique IDs onto kill-chain phases.
// Techniques outside this map rank as Unknown (depth 0).
var PhaseByTechnique = map[string]string{
	"T1078":     "Initial Access",
	"T1110":     "Credential Access",
	"T1046":     "Discovery",
	"T1021":     "Lateral Movement",
	"T1003":     "Credential Access",
	"T1560":     "Collection",
	"T1041":     "Exfiltration",
	"T1558":     "Credential Access",
	"T1550":     "Defense Evasion",
	"T1059":     "Execution",
	"T1190":     "Initial Access",
	"T1562.001": "Defense Evasion",
	"T1083":     "Discovery",
	"T1505":     "Persistence",
}

// NextStepsByPhase is the phase-level branching model used for the
// prediction vector. Probabilities within a phase sum to at most 1.
var NextStepsByPhase = map[string][]PhaseBranch{
	"Initial Access": {
		{NextPhase: "Discovery", Probability: 0.5},
		{NextPhase: "Execution", Probability: 0.3},
		{NextPhase: "Persistence", Probability: 0.2},
	},
	"Execution": {
		{NextPhase: "Privilege Escalation", Probability: 0.4},
		{NextPhase: "Persistence", Probability: 0.4},
		{NextPhase: "Defense Evasion", Probability: 0.2},
	},
	"Persistence": {
		{NextPhase: "Privilege Escalation", Probability: 0.4},
		{NextPhase: "Credential Access", Probability: 0.4},
		{NextPhase: "Lateral Movement", Probability: 0.2},
	},
	"Privilege Escalation": {
		{NextPhase: "Defense Evasion", Probability: 0.5},
		{NextPhase: "Credential Access", Probability: 0.3},
		{NextPhase: "Discovery", Probability: 0.2},
	},
	"Defense Evasion": {
		{NextPhase: "Credential Access", Probability: 0.4},
		{NextPhase: "Discovery", Probability: 0.4},
		{NextPhase: "Lateral Movement", Probability: 0.2},
	},
	"Credential Access": {
		{NextPhase: "Lateral Movement", Probability: 0.5},
		{NextPhase: "Discovery", Probability: 0.3},
		{NextPhase: "Collection", Probability: 0.2},
	},
	"Discovery": {
		{NextPhase: "Lateral Movement", Probability: 0.6},
		{NextPhase: "Collection", Probability: 0.3},
		{NextPhase: "Command and Control", Probability: 0.1},
	},
	"Lateral Movement": {
		{NextPhase: "Collection", Probability: 0.5},
		{NextPhase: "Exfiltration", Probability: 0.3},
		{NextPhase: "Command and Control", Probability: 0.2},
	},
	"Collection": {
		{NextPhase: "Exfiltration", Probability: 0.8},
		{NextPhase: "Command and Control", Probability: 0.2},
	},
	"Command and Control": {
		{NextPhase: "Exfiltration", Probability: 0.9},
		{NextPhase: "Impact", Probability: 0.1},
	},
	"Exfiltration": {
		{NextPhase: "Impact", Probability: 0.9},
	},
	"Impact": {
		{NextPhase: "Re-infection", Probability: 0.5},
		{NextPhase: "Persistence", Probability: 0.5},
	},
	"Unknown": {
		{NextPhase: "Discovery", Probability: 0.3},
		{NextPhase: "Credential Access", Probability: 0.2},
		{NextPhase: "Standard User Activity", Probability: 0.5},
	},
}

// PhaseOf resolves a technique ID to its kill-chain phase, Unknown if
// unmapped.
func PhaseOf(techniqueID string) string {
	if phase, ok := PhaseByTechnique[techniqueID]; ok {
		return phase
	}
	return "Unknown"
}

// PhaseRank returns the depth of a phase, 0 for Unknown.
func PhaseRank(phase string) int {
	return KillChainOrder[phase]
}

// DeepestPhase picks the highest-ranked phase reached by the given
// techniques. Returns "Unknown" with rank 0 when nothing maps.
func DeepestPhase(techniqueIDs []string) (string, int) {
	deepest := "Unknown"
	rank := 0
	for _, id := range techniqueIDs {
		phase := PhaseOf(id)
		if r := PhaseRank(phase); r > rank {
			deepest = phase
			rank = r
		}
	}
	return deepest, rank
}
