package domain

import (
	"fmt"
	"strings"
)

// VariantRecord is one variant observation parsed from a VCF-like line.
// Chromosome, Position, Reference and Alternative are always set; the
// annotation fields are empty when the INFO column does not carry them.
type VariantRecord struct {
	Chromosome           string `json:"chromosome"`
	Position             int64  `json:"position"`
	Reference            string `json:"reference"`
	Alternative          string `json:"alternative"`
	Gene                 string `json:"gene,omitempty"`
	Impact               string `json:"impact,omitempty"`
	ClinicalSignificance string `json:"clinical_significance,omitempty"`
	DrugInteractions     string `json:"drug_interactions,omitempty"`
}

// IsHighRisk reports whether the impact or the clinical significance is HIGH.
func (v *VariantRecord) IsHighRisk() bool {
	return strings.EqualFold(v.Impact, ImpactHigh) || strings.EqualFold(v.ClinicalSignificance, ImpactHigh)
}

// IsHighImpact reports whether the IMPACT annotation is HIGH.
func (v *VariantRecord) IsHighImpact() bool {
	return strings.EqualFold(v.Impact, ImpactHigh)
}

// IsPathogenic reports whether the clinical significance is exactly "pathogenic".
func (v *VariantRecord) IsPathogenic() bool {
	return strings.EqualFold(v.ClinicalSignificance, "pathogenic")
}

// HasDrugInteractions reports whether the record carries interaction text.
func (v *VariantRecord) HasDrugInteractions() bool {
	return strings.TrimSpace(v.DrugInteractions) != ""
}

// Key returns the chrom-pos-ref-alt identifier of the variant.
func (v *VariantRecord) Key() string {
	chrom := strings.TrimPrefix(v.Chromosome, "chr")
	return fmt.Sprintf("%s-%d-%s-%s", chrom, v.Position, v.Reference, v.Alternative)
}
