package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pharmaco-risk-server/internal/domain"
)

const (
	vcfMinFields = 8

	colChrom = 0
	colPos   = 1
	colRef   = 3
	colAlt   = 4
	colInfo  = 7

	// maxReportedLineErrors bounds the per-line errors kept in a ParseResult.
	maxReportedLineErrors = 20
)

// LineError describes why a single input line was skipped.
type LineError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult holds the parsed records together with line statistics.
type ParseResult struct {
	Variants       []*domain.VariantRecord `json:"-"`
	TotalLines     int                     `json:"total_lines"`
	HeaderLines    int                     `json:"header_lines"`
	MalformedLines int                     `json:"malformed_lines"`
	Errors         []LineError             `json:"errors,omitempty"`
}

// VariantParser turns VCF-like text into variant records. It handles the
// minimal eight-column layout with a semicolon-delimited INFO field and
// isolates failures per line: a bad line is skipped, never fatal.
type VariantParser struct{}

// NewVariantParser creates a new variant parser
func NewVariantParser() *VariantParser {
	return &VariantParser{}
}

// ParseVariants returns every valid record in content, in input order.
func (p *VariantParser) ParseVariants(content string) []*domain.VariantRecord {
	return p.Parse(content).Variants
}

// Parse parses content and reports how many lines were skipped and why.
func (p *VariantParser) Parse(content string) *ParseResult {
	result := &ParseResult{Variants: []*domain.VariantRecord{}}
	if content == "" {
		return result
	}

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.TotalLines++

		if strings.HasPrefix(line, "#") {
			result.HeaderLines++
			continue
		}

		record, err := p.ParseLine(line)
		if err != nil {
			result.MalformedLines++
			if len(result.Errors) < maxReportedLineErrors {
				result.Errors = append(result.Errors, LineError{Line: i + 1, Reason: err.Error()})
			}
			continue
		}
		result.Variants = append(result.Variants, record)
	}

	return result
}

// ParseLine parses one data line. Comment lines are not accepted here.
func (p *VariantParser) ParseLine(line string) (*domain.VariantRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < vcfMinFields {
		return nil, domain.NewValidationError("line",
			fmt.Sprintf("expected at least %d tab-separated fields, got %d", vcfMinFields, len(fields)), len(fields))
	}

	chrom := strings.TrimSpace(fields[colChrom])
	ref := strings.TrimSpace(fields[colRef])
	alt := strings.TrimSpace(fields[colAlt])
	if chrom == "" {
		return nil, domain.NewValidationError("chromosome", "chromosome is required", fields[colChrom])
	}
	if ref == "" || alt == "" {
		return nil, domain.NewValidationError("allele", "reference and alternate alleles are required", ref+">"+alt)
	}

	pos, err := strconv.ParseInt(strings.TrimSpace(fields[colPos]), 10, 64)
	if err != nil {
		return nil, domain.NewValidationError("position", "position must be an integer", fields[colPos])
	}
	if pos <= 0 {
		return nil, domain.NewValidationError("position", "position must be positive", pos)
	}

	record := &domain.VariantRecord{
		Chromosome:  chrom,
		Position:    pos,
		Reference:   ref,
		Alternative: alt,
	}
	applyInfoField(record, fields[colInfo])

	return record, nil
}

// applyInfoField extracts the annotation keys this pipeline understands.
// Keys are matched case-insensitively; unknown keys and flag entries without
// a value are ignored. A repeated key keeps its last value.
func applyInfoField(record *domain.VariantRecord, info string) {
	for _, entry := range strings.Split(info, ";") {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "GENE":
			record.Gene = value
		case "IMPACT":
			record.Impact = value
		case "CLNSIG", "CLIN_SIG":
			record.ClinicalSignificance = value
		case "DRUG":
			record.DrugInteractions = value
		}
	}
}
