package domain

import (
	"time"
)

// RiskAssessment is the scoring output for one (variant set, drug) pair.
// It is built once by the risk scorer and never mutated afterwards.
type RiskAssessment struct {
	DrugName               string      `json:"drug_name"`
	RiskLevel              RiskLevel   `json:"risk_level"`
	RiskScore              float64     `json:"risk_score"`
	Confidence             float64     `json:"confidence"`
	VariantCount           int         `json:"variant_count"`
	HighRiskVariantCount   int         `json:"high_risk_variant_count"`
	PathogenicVariantCount int         `json:"pathogenic_variant_count"`
	Genes                  []string    `json:"genes"`
	ClinicalEvidence       string      `json:"clinical_evidence"`
	Recommendations        string      `json:"recommendations"`
	ScoringPath            ScoringPath `json:"scoring_path"`
	AssessedAt             time.Time   `json:"assessed_at"`
}

// IsConsistent reports whether the level matches the score thresholds and
// both numeric values are within [0,1].
func (a *RiskAssessment) IsConsistent() bool {
	return InUnitRange(a.RiskScore) && InUnitRange(a.Confidence) && a.RiskLevel == RiskLevelFromScore(a.RiskScore)
}

// LogFields returns structured logging fields for audit trails.
func (a *RiskAssessment) LogFields() map[string]any {
	return map[string]any{
		"drug_name":           a.DrugName,
		"risk_level":          a.RiskLevel.String(),
		"risk_score":          a.RiskScore,
		"confidence":          a.Confidence,
		"variant_count":       a.VariantCount,
		"high_risk_variants":  a.HighRiskVariantCount,
		"pathogenic_variants": a.PathogenicVariantCount,
		"scoring_path":        a.ScoringPath.String(),
	}
}

// AlternativeRecommendation is a suggested substitute drug.
type AlternativeRecommendation struct {
	AlternativeDrug        string  `json:"alternative_drug"`
	Reason                 string  `json:"reason"`
	ConfidenceScore        float64 `json:"confidence_score"`
	ClinicalEvidence       string  `json:"clinical_evidence"`
	DosageRecommendation   string  `json:"dosage_recommendation"`
	MonitoringRequirements string  `json:"monitoring_requirements"`
}

// RiskFeatures is the feature set submitted to the predictive model.
// Field names on the wire follow the model service request schema.
type RiskFeatures struct {
	VariantCount                 int     `json:"variant_count"`
	HighRiskVariantCount         int     `json:"high_risk_variants"`
	RiskScoreSeed                float64 `json:"risk_score"`
	DrugRiskRatio                float64 `json:"drug_risk_ratio"`
	VariantDensity               float64 `json:"variant_density"`
	UniqueGeneCount              int     `json:"unique_genes"`
	HighImpactVariantCount       int     `json:"high_impact_variants"`
	PathogenicVariantCount       int     `json:"pathogenic_variants"`
	DrugInteractionCount         int     `json:"drug_interactions"`
	HighSignificanceInteractions int     `json:"high_significance_interactions"`
}

// Prediction is the result returned by a Predictor.
type Prediction struct {
	Success         bool      `json:"success"`
	RiskLevel       RiskLevel `json:"risk_level"`
	RiskProbability float64   `json:"risk_probability"`
	Confidence      float64   `json:"confidence"`
	ModelType       string    `json:"model_type,omitempty"`
}

// Validate checks that a prediction can be used as the authoritative score.
// The external label is not checked here; the scorer recomputes it locally.
func (p *Prediction) Validate() error {
	if p == nil {
		return ErrMalformedPrediction
	}
	if !p.Success {
		return ErrPredictionUnsuccessful
	}
	if !InUnitRange(p.RiskProbability) || !InUnitRange(p.Confidence) {
		return ErrMalformedPrediction
	}
	return nil
}
