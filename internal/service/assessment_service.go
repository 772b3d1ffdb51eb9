// Package service implements the assessment pipeline: parse, filter, score
// and recommend.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pharmaco-risk-server/internal/domain"
)

// AssessmentReport is the full pipeline output for one request.
type AssessmentReport struct {
	Assessment       *domain.RiskAssessment             `json:"assessment"`
	Alternatives     []domain.AlternativeRecommendation `json:"alternatives"`
	Parse            *ParseResult                       `json:"parse"`
	RelevantVariants []*domain.VariantRecord            `json:"relevant_variants"`
}

// AssessmentService runs the parse, filter, score and recommend steps in order.
type AssessmentService struct {
	parser      *VariantParser
	filter      *RelevanceFilter
	scorer      *RiskScorer
	recommender *AlternativeRecommender
	logger      *logrus.Logger
}

// NewAssessmentService wires the pipeline stages.
func NewAssessmentService(
	parser *VariantParser,
	filter *RelevanceFilter,
	scorer *RiskScorer,
	recommender *AlternativeRecommender,
	logger *logrus.Logger,
) *AssessmentService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AssessmentService{
		parser:      parser,
		filter:      filter,
		scorer:      scorer,
		recommender: recommender,
		logger:      logger,
	}
}

// NewDefaultAssessmentService builds a pipeline over the built-in reference
// tables and the given predictor, which may be nil.
func NewDefaultAssessmentService(predictor domain.Predictor, cfg *domain.PredictorConfig, logger *logrus.Logger) *AssessmentService {
	timeout := DefaultPredictorTimeout
	if cfg != nil {
		timeout = cfg.Timeout
		if !cfg.Enabled {
			predictor = nil
		}
	}
	return NewAssessmentService(
		NewVariantParser(),
		NewRelevanceFilter(nil),
		NewRiskScorer(predictor, timeout, logger),
		NewAlternativeRecommender(nil),
		logger,
	)
}

// Assess runs the pipeline and returns the assessment with its alternatives.
// It never fails; malformed input degrades to fewer variants.
func (s *AssessmentService) Assess(ctx context.Context, content, drugName string) (*domain.RiskAssessment, []domain.AlternativeRecommendation) {
	report := s.AssessWithReport(ctx, content, drugName)
	return report.Assessment, report.Alternatives
}

// AssessWithReport is Assess plus parse statistics and the relevant variants.
func (s *AssessmentService) AssessWithReport(ctx context.Context, content, drugName string) *AssessmentReport {
	parsed := s.parser.Parse(content)
	relevant := s.filter.FilterRelevant(parsed.Variants, drugName)

	if parsed.MalformedLines > 0 {
		s.logger.WithFields(logrus.Fields{
			"drug_name":       drugName,
			"malformed_lines": parsed.MalformedLines,
			"parsed_variants": len(parsed.Variants),
		}).Info("Skipped malformed variant lines")
	}

	assessment := s.scorer.Score(ctx, relevant, drugName)
	alternatives := s.recommender.Recommend(assessment, drugName)

	s.logger.WithFields(logrus.Fields{
		"drug_name":         drugName,
		"parsed_variants":   len(parsed.Variants),
		"relevant_variants": len(relevant),
		"risk_level":        assessment.RiskLevel.String(),
		"risk_score":        assessment.RiskScore,
		"scoring_path":      assessment.ScoringPath.String(),
		"alternatives":      len(alternatives),
	}).Info("Risk assessment completed")

	return &AssessmentReport{
		Assessment:       assessment,
		Alternatives:     alternatives,
		Parse:            parsed,
		RelevantVariants: relevant,
	}
}

// ReferenceTable exposes the gene-drug table used by the relevance filter.
func (s *AssessmentService) ReferenceTable() *domain.GeneDrugTable {
	return s.filter.Table()
}

// SubstituteTable exposes the substitute table used by the recommender.
func (s *AssessmentService) SubstituteTable() *domain.SubstituteTable {
	return s.recommender.Substitutes()
}
