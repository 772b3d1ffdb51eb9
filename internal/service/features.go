package service

import (
	"math"
	"sort"
	"strings"

	"github.com/pharmaco-risk-server/internal/domain"
)

// Heuristic scoring constants.
const (
	heuristicBase           = 0.3
	heuristicPerHighRisk    = 0.2
	heuristicPerVariant     = 0.01
	heuristicVariantCap     = 0.3
	heuristicMinScore       = 0.1
	heuristicMaxScore       = 1.0
	heuristicEmptyScore     = 0.1
	heuristicEmptyConf      = 0.5
	heuristicConfBase       = 0.6
	heuristicConfPerVariant = 0.02
	heuristicConfCap        = 0.95

	// variantDensityWindow is the denominator of the variant density feature.
	variantDensityWindow = 1000.0
)

// ExtractFeatures computes the model feature set for a relevant variant set.
// RiskScoreSeed carries the heuristic score so the model can use it as a prior.
func ExtractFeatures(variants []*domain.VariantRecord) domain.RiskFeatures {
	var f domain.RiskFeatures
	genes := make(map[string]struct{})

	for _, v := range variants {
		if v == nil {
			continue
		}
		f.VariantCount++
		if v.IsHighRisk() {
			f.HighRiskVariantCount++
		}
		if v.IsHighImpact() {
			f.HighImpactVariantCount++
		}
		if v.IsPathogenic() {
			f.PathogenicVariantCount++
		}
		if v.Gene != "" {
			genes[v.Gene] = struct{}{}
		}
		if v.HasDrugInteractions() {
			f.DrugInteractionCount++
			if strings.Contains(strings.ToLower(v.DrugInteractions), "high") {
				f.HighSignificanceInteractions++
			}
		}
	}

	f.UniqueGeneCount = len(genes)
	f.VariantDensity = float64(f.VariantCount) / variantDensityWindow
	f.DrugRiskRatio = float64(f.HighRiskVariantCount) / float64(max(f.VariantCount, 1))
	f.RiskScoreSeed, _ = HeuristicScore(f.VariantCount, f.HighRiskVariantCount)

	return f
}

// HeuristicScore returns the rule-based score and confidence for n relevant
// variants of which high are high-risk.
func HeuristicScore(n, high int) (score, confidence float64) {
	if n <= 0 {
		return heuristicEmptyScore, heuristicEmptyConf
	}

	score = heuristicBase + heuristicPerHighRisk*float64(high) + math.Min(heuristicPerVariant*float64(n), heuristicVariantCap)
	score = math.Max(heuristicMinScore, math.Min(heuristicMaxScore, score))

	confidence = math.Min(heuristicConfBase+heuristicConfPerVariant*float64(n), heuristicConfCap)
	return score, confidence
}

// UniqueGenes returns the distinct non-empty gene names in first-seen order.
func UniqueGenes(variants []*domain.VariantRecord) []string {
	seen := make(map[string]struct{})
	genes := make([]string, 0)
	for _, v := range variants {
		if v == nil || v.Gene == "" {
			continue
		}
		if _, ok := seen[v.Gene]; ok {
			continue
		}
		seen[v.Gene] = struct{}{}
		genes = append(genes, v.Gene)
	}
	return genes
}

// sortedGenes is UniqueGenes in lexical order, used for stable narrative text.
func sortedGenes(variants []*domain.VariantRecord) []string {
	genes := UniqueGenes(variants)
	sort.Strings(genes)
	return genes
}
