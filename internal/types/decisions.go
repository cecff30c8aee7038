package types

import (
	"time"
)

// Urgency is the reaction-window class of a decision.
type Urgency string

const (
	UrgencyCritical Urgency = "Critical"
	UrgencyHigh     Urgency = "High"
	UrgencyMedium   Urgency = "Medium"
	UrgencyLow      Urgency = "Low"
)

// ActionClassification separates observability actions from ones that
// interrupt service.
type ActionClassification string

const (
	ClassContainment ActionClassification = "Containment"
	ClassDisruptive  ActionClassification = "Disruptive"
)

// EntityType identifies what a response action is aimed at.
type EntityType string

const (
	EntityHost EntityType = "Host"
	EntityUser EntityType = "User"
)

// TargetEntity is the concrete object a response action operates on.
type TargetEntity struct {
	EntityType EntityType `json:"entity_type"`
	Identifier string     `json:"identifier"`
}

// RiskReduction quantifies what the selected action buys.
type RiskReduction struct {
	Absolute float64 `json:"absolute"`
	Relative string  `json:"relative"`
}

// RejectedAlternative records an action the engine considered and the
// exact reason it was passed over.
type RejectedAlternative struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// CorrelationContext describes the campaign group a session was scored
// against.
type CorrelationContext struct {
	Principal string `json:"principal"`
	GroupSize int    `json:"group_size"`
	Reason    string `json:"reason,omitempty"`
}

// Explainability carries the analyst-facing justification strings.
type Explainability struct {
	WhyNow        string `json:"why_now"`
	WhyNotLater   string `json:"why_not_later"`
	WhatIfIgnored string `json:"what_if_ignored"`
	SignalGap     string `json:"signal_gap"`
}

// ResponseDecision is the per-session output of the decision engine.
// Suppressed is carried for downstream filtering contracts but is never
// set by the engine itself.
type ResponseDecision struct {
	DecisionID           string                `json:"decision_id"`
	SessionID            string                `json:"session_id"`
	GeneratedAt          time.Time             `json:"generated_at"`
	EvaluatedAction      string                `json:"evaluated_action"`
	ActionClassification ActionClassification  `json:"action_classification"`
	RequiresApproval     bool                  `json:"requires_approval"`
	Urgency              Urgency               `json:"urgency"`
	DecisionConfidence   float64               `json:"decision_confidence"`
	RankScore            int                   `json:"rank_score"`
	TargetEntity         TargetEntity          `json:"target_entity"`
	RiskReduction        RiskReduction         `json:"risk_reduction"`
	RejectedAlternatives []RejectedAlternative `json:"rejected_alternatives"`
	VulnerabilityDetails *VulnerabilityDetails `json:"vulnerability_details,omitempty"`
	Correlation          CorrelationContext    `json:"correlation"`
	MentorSummary        string                `json:"mentor_summary"`
	Explainability       Explainability        `json:"explainability"`
	MitigationGuidelines []string              `json:"mitigation_guidelines"`
	ModelVersion         string                `json:"model_version"`
	Suppressed           bool                  `json:"suppressed"`
}
