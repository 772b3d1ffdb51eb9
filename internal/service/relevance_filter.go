package service

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/pharmaco-risk-server/internal/domain"
)

// RelevanceFilter selects the variants that bear on a drug's metabolism.
type RelevanceFilter struct {
	table *domain.GeneDrugTable
}

// NewRelevanceFilter creates a filter over the given gene-drug table.
// A nil table falls back to the built-in reference data.
func NewRelevanceFilter(table *domain.GeneDrugTable) *RelevanceFilter {
	if table == nil {
		table = domain.DefaultGeneDrugTable()
	}
	return &RelevanceFilter{table: table}
}

// FilterRelevant returns the subsequence of variants whose gene matches one of
// the drug's reference genes or whose interaction text names the drug. Matching
// is a case-insensitive substring test. Input order is preserved and the input
// records are returned as-is, not copied.
func (f *RelevanceFilter) FilterRelevant(variants []*domain.VariantRecord, drugName string) []*domain.VariantRecord {
	relevant := make([]*domain.VariantRecord, 0, len(variants))
	if len(variants) == 0 {
		return relevant
	}

	// cases.Caser keeps state, one per call.
	fold := cases.Fold()

	drug := strings.TrimSpace(drugName)
	genes := f.table.GenesFor(drug)
	foldedGenes := make([]string, 0, len(genes))
	for _, g := range genes {
		if g = fold.String(g); g != "" {
			foldedGenes = append(foldedGenes, g)
		}
	}
	foldedDrug := fold.String(drug)

	for _, v := range variants {
		if v == nil {
			continue
		}
		if matchesGene(fold.String(v.Gene), foldedGenes) || matchesDrug(fold.String(v.DrugInteractions), foldedDrug) {
			relevant = append(relevant, v)
		}
	}

	return relevant
}

// Genes returns the reference genes for drugName, ignoring surrounding whitespace.
func (f *RelevanceFilter) Genes(drugName string) []string {
	return f.table.GenesFor(strings.TrimSpace(drugName))
}

// Table returns the underlying gene-drug table.
func (f *RelevanceFilter) Table() *domain.GeneDrugTable {
	return f.table
}

func matchesGene(gene string, referenceGenes []string) bool {
	if gene == "" {
		return false
	}
	for _, ref := range referenceGenes {
		if strings.Contains(gene, ref) {
			return true
		}
	}
	return false
}

// An empty drug name would match every non-empty interaction text.
func matchesDrug(interactions, drug string) bool {
	if drug == "" || interactions == "" {
		return false
	}
	return strings.Contains(interactions, drug)
}
