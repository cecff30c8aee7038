package types

import (
	"time"
)

// TrendDirection summarizes where trust momentum is pushing the posture.
type TrendDirection string

const (
	TrendTightening TrendDirection = "tightening"
	TrendRelaxing   TrendDirection = "relaxing"
	TrendStable     TrendDirection = "stable"
)

// ModelConfiguration is one immutable version of the governance posture.
// Exactly one version is active at any time.
type ModelConfiguration struct {
	VersionID            string             `json:"version_id"`
	ContainmentThreshold float64            `json:"containment_threshold"`
	DisruptiveThreshold  float64            `json:"disruptive_threshold"`
	TrustMomentum        float64            `json:"trust_momentum"`
	SuccessStreak        int                `json:"success_streak"`
	FailureStreak        int                `json:"failure_streak"`
	RiskWeights          map[string]float64 `json:"risk_weights,omitempty"`
	IsActive             bool               `json:"is_active"`
	CreatedAt            time.Time          `json:"created_at"`
}

// LedgerEntry is one hash-chained governance event. Timestamp is kept as
// the exact string that was hashed so verification can replay it.
type LedgerEntry struct {
	ID           int64          `json:"id"`
	Timestamp    string         `json:"timestamp"`
	EventType    string         `json:"event_type"`
	Payload      map[string]any `json:"payload"`
	Actor        string         `json:"actor"`
	PreviousHash string         `json:"previous_hash"`
	HashID       string         `json:"hash_id"`
}

// DriftSample is one posture metric observation recorded after a
// learning update.
type DriftSample struct {
	MetricName     string    `json:"metric_name"`
	Value          float64   `json:"value"`
	AlertTriggered bool      `json:"alert_triggered"`
	CreatedAt      time.Time `json:"created_at"`
}

// VulnerabilityDetails tags an executed action with the exploit context
// it was responding to.
type VulnerabilityDetails struct {
	IsKEV   bool     `json:"is_kev"`
	MaxCVSS float64  `json:"max_cvss,omitempty"`
	Refs    []string `json:"refs,omitempty"`
}

// ActionOutcome is one action inside an execution report. Entries under
// actions_included come from script generation and carry no final status;
// entries under executions carry the operator-observed result.
type ActionOutcome struct {
	Action               string                `json:"action"`
	SessionID            string                `json:"session_id,omitempty"`
	Target               string                `json:"target,omitempty"`
	Domain               string                `json:"domain,omitempty"`
	FinalStatus          string                `json:"final_status,omitempty"`
	Urgency              Urgency               `json:"urgency,omitempty"`
	Confidence           float64               `json:"confidence,omitempty"`
	RequiresApproval     bool                  `json:"requires_approval,omitempty"`
	MentorContext        string                `json:"mentor_context,omitempty"`
	MitigationGuidelines []string              `json:"mitigation_guidelines,omitempty"`
	VulnerabilityDetails *VulnerabilityDetails `json:"vulnerability_details,omitempty"`
}

// ExecutionReport is the remediation package manifest produced by script
// generation, and doubles as the operator feedback fed into the learning
// engine once execution results are filled in.
type ExecutionReport struct {
	ReportID          string          `json:"report_id"`
	GeneratedAt       time.Time       `json:"generated_at"`
	ScriptPath        string          `json:"script_path,omitempty"`
	ScriptFilename    string          `json:"script_filename,omitempty"`
	GuidelinePath     string          `json:"guideline_path,omitempty"`
	GuidelineFilename string          `json:"guideline_filename,omitempty"`
	TotalActions      int             `json:"total_actions,omitempty"`
	StagedCount       int             `json:"staged_count,omitempty"`
	ActionsIncluded   []ActionOutcome `json:"actions_included,omitempty"`
	Executions        []ActionOutcome `json:"executions,omitempty"`
}

// LedgerEntrySummary is the truncated ledger view used in status output.
type LedgerEntrySummary struct {
	HashID    string `json:"hash_id"`
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`
}

// ModelVersionSummary is one row of posture history in status output.
type ModelVersionSummary struct {
	VersionID            string    `json:"version_id"`
	ContainmentThreshold float64   `json:"containment_threshold"`
	DisruptiveThreshold  float64   `json:"disruptive_threshold"`
	TrustMomentum        float64   `json:"trust_momentum"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// GovernanceStatus is the externally consumable posture snapshot.
type GovernanceStatus struct {
	GeneratedAt          time.Time                `json:"generated_at"`
	VersionID            string                   `json:"version_id"`
	ContainmentThreshold float64                  `json:"containment_threshold"`
	DisruptiveThreshold  float64                  `json:"disruptive_threshold"`
	TrustMomentum        float64                  `json:"trust_momentum"`
	SuccessStreak        int                      `json:"success_streak"`
	FailureStreak        int                      `json:"failure_streak"`
	Trend                TrendDirection           `json:"trend"`
	TrendLabel           string                   `json:"trend_label"`
	LedgerIntegrity      bool                     `json:"ledger_integrity"`
	LedgerEntryCount     int                      `json:"ledger_entry_count"`
	RecentLedgerEntries  []LedgerEntrySummary     `json:"recent_ledger_entries"`
	ModelHistory         []ModelVersionSummary    `json:"model_history"`
	DriftSeries          map[string][]DriftSample `json:"drift_series"`
	DriftAlerts          []string                 `json:"drift_alerts"`
}
