package service

import (
	"fmt"

	"github.com/pharmaco-risk-server/internal/domain"
)

// GenericAlternative is suggested when the drug has no substitute entry.
const GenericAlternative = "alternative medication"

// Recommendation confidence per level.
const (
	highRiskRecommendationConfidence     = 0.85
	moderateRiskRecommendationConfidence = 0.75
)

// AlternativeRecommender suggests a substitute drug for MODERATE and HIGH
// risk assessments.
type AlternativeRecommender struct {
	substitutes *domain.SubstituteTable
}

// NewAlternativeRecommender creates a recommender over the given substitute
// table. A nil table falls back to the built-in one.
func NewAlternativeRecommender(substitutes *domain.SubstituteTable) *AlternativeRecommender {
	if substitutes == nil {
		substitutes = domain.DefaultSubstituteTable()
	}
	return &AlternativeRecommender{substitutes: substitutes}
}

// Recommend returns no recommendation for LOW risk and exactly one otherwise.
// The result is never nil.
func (r *AlternativeRecommender) Recommend(assessment *domain.RiskAssessment, drugName string) []domain.AlternativeRecommendation {
	recommendations := []domain.AlternativeRecommendation{}
	if assessment == nil || !assessment.RiskLevel.RequiresAlternative() {
		return recommendations
	}

	level := assessment.RiskLevel
	drug := displayDrug(drugName)
	guidance, known := r.substitutes.Lookup(drugName)

	alternative := GenericAlternative
	dosage := fmt.Sprintf("Follow standard dosing guidelines for the selected alternative to %s.", drug)
	monitoring := fmt.Sprintf("Monitor clinical response and adverse effects after switching from %s.", drug)
	if known {
		alternative = guidance.Alternative
		if guidance.Dosage != "" {
			dosage = guidance.Dosage
		}
		if guidance.Monitoring != "" {
			monitoring = guidance.Monitoring
		}
	}

	confidence := moderateRiskRecommendationConfidence
	if level == domain.RiskHigh {
		confidence = highRiskRecommendationConfidence
	}

	recommendations = append(recommendations, domain.AlternativeRecommendation{
		AlternativeDrug:        alternative,
		Reason:                 fmt.Sprintf("%s risk of altered response to %s based on pharmacogenomic variants.", levelWord(level), drug),
		ConfidenceScore:        confidence,
		ClinicalEvidence:       fmt.Sprintf("%s is not primarily affected by the genes implicated in %s metabolism.", capitalize(alternative), drug),
		DosageRecommendation:   dosage,
		MonitoringRequirements: monitoring,
	})

	return recommendations
}

func levelWord(level domain.RiskLevel) string {
	switch level {
	case domain.RiskHigh:
		return "High"
	case domain.RiskModerate:
		return "Moderate"
	default:
		return "Low"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}

// Substitutes exposes the substitute table used for recommendations.
func (r *AlternativeRecommender) Substitutes() *domain.SubstituteTable {
	return r.substitutes
}
