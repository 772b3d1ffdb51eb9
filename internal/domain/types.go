// Package domain contains core business entities and types for pharmacogenomic
// drug-risk assessment: parsed variant records, risk assessments, alternative
// medication recommendations and the static gene/drug reference tables.
//
// Reference: CPIC (Clinical Pharmacogenetics Implementation Consortium) guidelines
// describe the gene-drug pairs used by the built-in reference table.
package domain

import (
	"errors"
	"math"
)

// RiskLevel is the coarse classification of a drug risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// Score thresholds used by RiskLevelFromScore.
const (
	HighRiskThreshold     = 0.7
	ModerateRiskThreshold = 0.4
)

// Impact values carried in the IMPACT annotation.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
)

// ScoringPath records which branch of the scorer produced an assessment.
type ScoringPath string

const (
	ScoringPathModel     ScoringPath = "MODEL"
	ScoringPathHeuristic ScoringPath = "HEURISTIC"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidRiskLevel       = errors.New("invalid risk level")
	ErrPredictionUnsuccessful = errors.New("prediction unsuccessful")
	ErrMalformedPrediction    = errors.New("malformed prediction")
	ErrPredictorDisabled      = errors.New("predictor disabled")
)

// RiskLevelFromScore maps a risk score onto a RiskLevel using the fixed
// thresholds: >=0.7 HIGH, >=0.4 MODERATE, otherwise LOW. Every scoring path
// goes through this function so the level is always consistent with the score.
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= ModerateRiskThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}

// ParseRiskLevel converts an external label into a RiskLevel.
// The original model service labels HIGH_RISK / LOW_RISK are accepted as well.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "LOW", "low", "Low", "LOW_RISK":
		return RiskLow, nil
	case "MODERATE", "moderate", "Moderate", "MEDIUM":
		return RiskModerate, nil
	case "HIGH", "high", "High", "HIGH_RISK":
		return RiskHigh, nil
	default:
		return "", ErrInvalidRiskLevel
	}
}

// IsValid reports whether the level is one of the three known values.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	default:
		return false
	}
}

func (r RiskLevel) String() string {
	return string(r)
}

// RequiresAlternative reports whether an alternative medication should be suggested.
func (r RiskLevel) RequiresAlternative() bool {
	return r == RiskModerate || r == RiskHigh
}

// Description returns a short human-readable summary of the level for reports.
func (r RiskLevel) Description() string {
	switch r {
	case RiskHigh:
		return "High risk: significant pharmacogenomic interaction expected"
	case RiskModerate:
		return "Moderate risk: altered drug response possible"
	case RiskLow:
		return "Low risk: no actionable pharmacogenomic interaction found"
	default:
		return "Unknown risk level"
	}
}

func (p ScoringPath) String() string {
	return string(p)
}

// InUnitRange reports whether v is a finite number within [0,1].
func InUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
