package types

import (
	"time"
)

// BusinessRiskLevel labels a session for triage ordering.
type BusinessRiskLevel string

const (
	RiskHigh          BusinessRiskLevel = "High"
	RiskMedium        BusinessRiskLevel = "Medium"
	RiskLow           BusinessRiskLevel = "Low"
	RiskInformational BusinessRiskLevel = "Informational"
)

// PathPrediction is one weighted branch out of the deepest kill-chain
// phase reached by a session.
type PathPrediction struct {
	NextNode    string  `json:"next_node"`
	Probability float64 `json:"probability"`
}

// PathReport is the per-session output of the path analyzer.
type PathReport struct {
	SessionID            string            `json:"session_id"`
	RootCauseNode        string            `json:"root_cause_node"`
	BlastRadius          []string          `json:"blast_radius"`
	PathAnomalyScore     float64           `json:"path_anomaly_score"`
	PredictionVector     []PathPrediction  `json:"prediction_vector"`
	VulnerabilitySummary []string          `json:"vulnerability_summary"`
	ObservedTechniques   []string          `json:"observed_techniques"`
	CWEClusters          []string          `json:"cwe_clusters"`
	EventSummary         map[string]int    `json:"event_summary"`
	TacticalNarrative    string            `json:"tactical_narrative"`
	PlainLanguageSummary string            `json:"plain_language_summary"`
	BusinessRiskLevel    BusinessRiskLevel `json:"business_risk_level"`
	GeneratedAt          time.Time         `json:"generated_at"`
}

// ScenarioType ranks a predicted scenario by its position in the global
// probability ordering.
type ScenarioType string

const (
	ScenarioPrimary       ScenarioType = "Primary"
	ScenarioSecondary     ScenarioType = "Secondary"
	ScenarioOpportunistic ScenarioType = "Opportunistic"
)

// CurrentState is the observed posture a forecast starts from.
type CurrentState struct {
	ObservedTechniques      []string `json:"observed_techniques"`
	ObservedVulnerabilities []string `json:"observed_vulnerabilities"`
	HostScope               []string `json:"host_scope"`
	GraphDepth              int      `json:"graph_depth"`
	RiskScore               float64  `json:"risk_score"`
}

// PredictedScenario is one projected attack continuation.
type PredictedScenario struct {
	Sequence              []string     `json:"sequence"`
	HumanReadableSequence string       `json:"human_readable_sequence"`
	Probability           float64      `json:"probability"`
	RiskLevel             string       `json:"risk_level"`
	EstimatedTimeMin      int          `json:"estimated_time_min"`
	EstimatedTimeMax      int          `json:"estimated_time_max"`
	TimeWindow            string       `json:"time_window"`
	Evidence              []string     `json:"evidence"`
	ScenarioType          ScenarioType `json:"scenario_type"`
}

// PredictionSummary is the per-session output of the trajectory forecaster.
// SuppressionReason is carried for downstream filtering contracts; the
// forecaster itself leaves it empty.
type PredictionSummary struct {
	SessionID           string              `json:"session_id"`
	CurrentState        CurrentState        `json:"current_state"`
	PredictedScenarios  []PredictedScenario `json:"predicted_scenarios"`
	AggregateConfidence float64             `json:"aggregate_confidence"`
	Narrative           string              `json:"narrative"`
	ModelVersion        string              `json:"model_version"`
	SuppressionReason   string              `json:"suppression_reason,omitempty"`
	GeneratedAt         time.Time           `json:"generated_at"`
}
