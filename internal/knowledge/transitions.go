package knowledge

// Transition is one weighted edge in the technique transition graph.
type Transition struct {
	Next        string
	Probability float64
}

// TimePrior bounds the expected dwell before a technique is executed,
// in seconds.
type TimePrior struct {
	MinSeconds int
	MaxSeconds int
}

// TransitionMatrix is the technique-level adjacency list walked by the
// forecaster. Edge weights are base probabilities before vulnerability
// and exploit modifiers.
var TransitionMatrix = map[string][]Transition{
	"T1595": {
		{Next: "T1592", Probability: 0.3},
		{Next: "T1190", Probability: 0.25},
		{Next: "T1046", Probability: 0.25},
	},
	"T1592": {
		{Next: "T1595", Probability: 0.6},
		{Next: "T1190", Probability: 0.3},
	},
	"T1046": {
		{Next: "T1021", Probability: 0.5},
		{Next: "T1110", Probability: 0.3},
		{Next: "T1083", Probability: 0.2},
	},
	"T1083": {
		{Next: "T1560", Probability: 0.5},
		{Next: "T1003", Probability: 0.3},
	},
	"T1190": {
		{Next: "T1059", Probability: 0.5},
		{Next: "T1505", Probability: 0.3},
		{Next: "T1046", Probability: 0.2},
	},
	"T1059": {
		{Next: "T1003", Probability: 0.5},
		{Next: "T1021", Probability: 0.35},
		{Next: "T1112", Probability: 0.15},
	},
	"T1505": {
		{Next: "T1059", Probability: 0.6},
		{Next: "T1083", Probability: 0.2},
	},
	"T1110": {
		{Next: "T1078", Probability: 0.6},
		{Next: "T1021", Probability: 0.2},
	},
	"T1078": {
		{Next: "T1021", Probability: 0.5},
		{Next: "T1003", Probability: 0.35},
		{Next: "T1110", Probability: 0.15},
	},
	"T1003": {
		{Next: "T1021", Probability: 0.4},
		{Next: "T1041", Probability: 0.3},
		{Next: "T1558", Probability: 0.2},
	},
	"T1021": {
		{Next: "T1003", Probability: 0.5},
		{Next: "T1041", Probability: 0.3},
		{Next: "T1560", Probability: 0.2},
	},
	"T1560": {
		{Next: "T1041", Probability: 0.7},
	},
	"T1041": {
		{Next: "T1486", Probability: 0.4},
	},
	"T1112": {
		{Next: "T1562", Probability: 0.5},
	},
	"T1562": {
		{Next: "T1003", Probability: 0.4},
		{Next: "T1112", Probability: 0.2},
	},
	"T1558": {
		{Next: "T1550", Probability: 0.5},
		{Next: "T1021", Probability: 0.3},
	},
	"T1550": {
		{Next: "T1021", Probability: 0.6},
	},
	"T1204": {
		{Next: "T1059", Probability: 0.5},
	},
}

// DefaultTimePrior applies when a technique has no dwell estimate.
var DefaultTimePrior = TimePrior{MinSeconds: 60, MaxSeconds: 3600}

// TimePriors holds per-technique dwell estimates.
var TimePriors = map[string]TimePrior{
	"T1595": {MinSeconds: 300, MaxSeconds: 3600},
	"T1592": {MinSeconds: 300, MaxSeconds: 1800},
	"T1046": {MinSeconds: 60, MaxSeconds: 900},
	"T1083": {MinSeconds: 60, MaxSeconds: 600},
	"T1190": {MinSeconds: 60, MaxSeconds: 1800},
	"T1059": {MinSeconds: 120, MaxSeconds: 1800},
	"T1505": {MinSeconds: 300, MaxSeconds: 7200},
	"T1110": {MinSeconds: 300, MaxSeconds: 10800},
	"T1078": {MinSeconds: 600, MaxSeconds: 7200},
	"T1003": {MinSeconds: 120, MaxSeconds: 3600},
	"T1021": {MinSeconds: 300, MaxSeconds: 3600},
	"T1560": {MinSeconds: 600, MaxSeconds: 7200},
	"T1041": {MinSeconds: 300, MaxSeconds: 14400},
	"T1486": {MinSeconds: 60, MaxSeconds: 1800},
	"T1112": {MinSeconds: 120, MaxSeconds: 1800},
	"T1562": {MinSeconds: 60, MaxSeconds: 900},
	"T1558": {MinSeconds: 300, MaxSeconds: 3600},
	"T1550": {MinSeconds: 120, MaxSeconds: 1800},
}

// TimePriorFor resolves a dwell estimate with the default fallback.
func TimePriorFor(techniqueID string) TimePrior {
	if p, ok := TimePriors[techniqueID]; ok {
		return p
	}
	return DefaultTimePrior
}

// Prerequisites lists, per technique, the techniques that typically
// precede it. Seeding drops an observed technique when a deeper
// candidate lists it here, so forecasts start from the attack front
// rather than replaying completed steps.
var Prerequisites = map[string][]string{
	"T1021": {"T1078", "T1003"},
	"T1059": {"T1190", "T1505"},
	"T1505": {"T1190"},
	"T1003": {"T1059"},
	"T1041": {"T1560", "T1021"},
	"T1560": {"T1021", "T1083"},
	"T1486": {"T1041", "T1021"},
	"T1550": {"T1558"},
	"T1562": {"T1059"},
	"T1112": {"T1059"},
	"T1592": {"T1595"},
	"T1046": {"T1595"},
	"T1083": {"T1059"},
	"T1190": {"T1595", "T1592"},
}
