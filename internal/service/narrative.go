package service

import (
	"fmt"
	"strings"

	"github.com/pharmaco-risk-server/internal/domain"
)

// NarrativeInput carries the values the clinical text is built from.
type NarrativeInput struct {
	DrugName        string
	RiskLevel       domain.RiskLevel
	Genes           []string
	VariantCount    int
	HighRiskCount   int
	PathogenicCount int
}

// NarrativeRenderer produces the clinical evidence and recommendation text of
// an assessment. The text carries no computed semantics.
type NarrativeRenderer interface {
	Render(in NarrativeInput) (evidence, recommendations string)
}

// TemplateNarrative is the default NarrativeRenderer.
type TemplateNarrative struct{}

// Render implements NarrativeRenderer.
func (TemplateNarrative) Render(in NarrativeInput) (string, string) {
	return renderEvidence(in), renderRecommendations(in)
}

func renderEvidence(in NarrativeInput) string {
	drug := displayDrug(in.DrugName)
	if in.VariantCount == 0 {
		return fmt.Sprintf("No pharmacogenomically relevant variants were identified for %s.", drug)
	}

	genes := "unannotated genes"
	if len(in.Genes) > 0 {
		genes = strings.Join(in.Genes, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analysis identified %d relevant variant(s) in %s affecting %s metabolism", in.VariantCount, genes, drug)
	if in.HighRiskCount > 0 {
		fmt.Fprintf(&b, ", including %d high-risk variant(s)", in.HighRiskCount)
	}
	b.WriteString(".")
	if in.PathogenicCount > 0 {
		fmt.Fprintf(&b, " %d variant(s) are classified as pathogenic.", in.PathogenicCount)
	}
	return b.String()
}

func renderRecommendations(in NarrativeInput) string {
	drug := displayDrug(in.DrugName)
	var action string
	switch in.RiskLevel {
	case domain.RiskHigh:
		action = "Consider an alternative medication or a substantial dose adjustment and increase monitoring."
	case domain.RiskModerate:
		action = "Consider dose adjustment, enhanced monitoring, or an alternative medication."
	default:
		action = fmt.Sprintf("Standard dosing of %s is expected to be appropriate. Follow routine monitoring.", drug)
	}
	return fmt.Sprintf("%s for %s. %s", in.RiskLevel.Description(), drug, action)
}

func displayDrug(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "the requested drug"
	}
	return name
}
