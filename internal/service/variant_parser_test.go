package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaco-risk-server/internal/domain"
)

const sampleVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
10	94942290	rs1799853	C	T	100	PASS	GENE=CYP2C9;IMPACT=HIGH;CLNSIG=Pathogenic
16	31096368	rs9923231	C	T	100	PASS	GENE=VKORC1;IMPACT=MODERATE;DRUG=Warfarin high sensitivity
22	42130692	rs3892097	G	A	100	PASS	GENE=CYP2D6;IMPACT=LOW
`

func TestVariantParser_ParseVariants(t *testing.T) {
	parser := NewVariantParser()

	variants := parser.ParseVariants(sampleVCF)
	require.Len(t, variants, 3)

	first := variants[0]
	assert.Equal(t, "10", first.Chromosome)
	assert.Equal(t, int64(94942290), first.Position)
	assert.Equal(t, "C", first.Reference)
	assert.Equal(t, "T", first.Alternative)
	assert.Equal(t, "CYP2C9", first.Gene)
	assert.Equal(t, "HIGH", first.Impact)
	assert.Equal(t, "Pathogenic", first.ClinicalSignificance)
	assert.Empty(t, first.DrugInteractions)

	assert.Equal(t, "Warfarin high sensitivity", variants[1].DrugInteractions)
	assert.Equal(t, "CYP2D6", variants[2].Gene)
}

func TestVariantParser_SingleLine(t *testing.T) {
	parser := NewVariantParser()

	variants := parser.ParseVariants("1\t1000\t.\tA\tT\t100\tPASS\tGENE=CYP2C9;IMPACT=HIGH")
	require.Len(t, variants, 1)
	assert.Equal(t, &domain.VariantRecord{
		Chromosome:  "1",
		Position:    1000,
		Reference:   "A",
		Alternative: "T",
		Gene:        "CYP2C9",
		Impact:      "HIGH",
	}, variants[0])
}

func TestVariantParser_SkipsMalformedLines(t *testing.T) {
	parser := NewVariantParser()

	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "1\t1000\tA\tT"},
		{"non numeric position", "1\tabc\t.\tA\tT\t100\tPASS\tGENE=CYP2C9"},
		{"zero position", "1\t0\t.\tA\tT\t100\tPASS\tGENE=CYP2C9"},
		{"negative position", "1\t-5\t.\tA\tT\t100\tPASS\tGENE=CYP2C9"},
		{"empty chromosome", "\t1000\t.\tA\tT\t100\tPASS\tGENE=CYP2C9"},
		{"empty reference", "1\t1000\t.\t\tT\t100\tPASS\tGENE=CYP2C9"},
		{"empty alternate", "1\t1000\t.\tA\t\t100\tPASS\tGENE=CYP2C9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseLine(tt.line)
			require.Error(t, err)

			var vErr *domain.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestVariantParser_PerLineIsolation(t *testing.T) {
	parser := NewVariantParser()

	content := strings.Join([]string{
		"1\t1000\t.\tA\tT\t100\tPASS\tGENE=CYP2C9",
		"1\tnot-a-number\t.\tA\tT\t100\tPASS\tGENE=CYP2C9",
		"short\tline",
		"2\t2000\t.\tG\tC\t100\tPASS\tGENE=VKORC1",
	}, "\n")

	result := parser.Parse(content)
	require.Len(t, result.Variants, 2)
	assert.Equal(t, int64(1000), result.Variants[0].Position)
	assert.Equal(t, int64(2000), result.Variants[1].Position)
	assert.Equal(t, 4, result.TotalLines)
	assert.Equal(t, 2, result.MalformedLines)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Errors[0].Line)
	assert.Equal(t, 3, result.Errors[1].Line)
}

func TestVariantParser_InterleavingOrder(t *testing.T) {
	parser := NewVariantParser()

	valid1 := "1\t1000\t.\tA\tT\t100\tPASS\tGENE=CYP2C9"
	valid2 := "2\t2000\t.\tG\tC\t100\tPASS\tGENE=VKORC1"
	valid3 := "3\t3000\t.\tC\tG\t100\tPASS\tGENE=CYP2D6"
	bad1 := "1\tnot-a-number\t.\tA\tT\t100\tPASS\tGENE=CYP2C9"
	bad2 := "short\tline"

	tests := []struct {
		name  string
		lines []string
	}{
		{"malformed in the middle", []string{valid1, bad1, valid2, bad2, valid3}},
		{"malformed first", []string{bad1, bad2, valid1, valid2, valid3}},
		{"malformed last", []string{valid1, valid2, valid3, bad2, bad1}},
		{"valid lines reversed", []string{valid3, bad2, valid2, bad1, valid1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.Parse(strings.Join(tt.lines, "\n"))

			require.Len(t, result.Variants, 3)
			positions := make([]int64, 0, len(result.Variants))
			for _, v := range result.Variants {
				positions = append(positions, v.Position)
			}
			assert.ElementsMatch(t, []int64{1000, 2000, 3000}, positions)
			assert.Equal(t, 2, result.MalformedLines)
			assert.Equal(t, 5, result.TotalLines)
		})
	}
}

func TestVariantParser_CommentsBlankLinesAndCRLF(t *testing.T) {
	parser := NewVariantParser()

	content := "##meta\r\n#CHROM\tPOS\r\n\r\n   \r\n1\t1000\t.\tA\tT\t100\tPASS\tGENE=CYP2C9;IMPACT=HIGH\r\n"
	result := parser.Parse(content)

	require.Len(t, result.Variants, 1)
	assert.Equal(t, "HIGH", result.Variants[0].Impact, "trailing carriage return must not leak into INFO values")
	assert.Equal(t, 2, result.HeaderLines)
	assert.Equal(t, 0, result.MalformedLines)
}

func TestVariantParser_EmptyContent(t *testing.T) {
	parser := NewVariantParser()

	result := parser.Parse("")
	assert.NotNil(t, result.Variants)
	assert.Empty(t, result.Variants)
	assert.Zero(t, result.TotalLines)
}

func TestVariantParser_InfoField(t *testing.T) {
	parser := NewVariantParser()

	tests := []struct {
		name string
		info string
		want domain.VariantRecord
	}{
		{
			name: "lowercase keys",
			info: "gene=CYP2C19;impact=HIGH;clnsig=Pathogenic",
			want: domain.VariantRecord{Gene: "CYP2C19", Impact: "HIGH", ClinicalSignificance: "Pathogenic"},
		},
		{
			name: "CLIN_SIG alias",
			info: "CLIN_SIG=likely_benign",
			want: domain.VariantRecord{ClinicalSignificance: "likely_benign"},
		},
		{
			name: "value containing equals sign",
			info: "GENE=TPMT;DRUG=dose=reduced",
			want: domain.VariantRecord{Gene: "TPMT", DrugInteractions: "dose=reduced"},
		},
		{
			name: "unknown keys and flags ignored",
			info: "DB;AF=0.01;GENE=DPYD",
			want: domain.VariantRecord{Gene: "DPYD"},
		},
		{
			name: "missing INFO value",
			info: ".",
			want: domain.VariantRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := parser.ParseLine("1\t1000\t.\tA\tT\t100\tPASS\t" + tt.info)
			require.NoError(t, err)

			assert.Equal(t, tt.want.Gene, record.Gene)
			assert.Equal(t, tt.want.Impact, record.Impact)
			assert.Equal(t, tt.want.ClinicalSignificance, record.ClinicalSignificance)
			assert.Equal(t, tt.want.DrugInteractions, record.DrugInteractions)
		})
	}
}

func TestVariantParser_NoDeduplication(t *testing.T) {
	parser := NewVariantParser()

	line := "1\t1000\t.\tA\tT\t100\tPASS\tGENE=CYP2C9"
	variants := parser.ParseVariants(line + "\n" + line)
	assert.Len(t, variants, 2)
}
