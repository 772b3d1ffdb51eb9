package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelFromScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  RiskLevel
	}{
		{"zero", 0.0, RiskLow},
		{"minimum heuristic score", 0.1, RiskLow},
		{"just below moderate", 0.3999999, RiskLow},
		{"moderate boundary", 0.4, RiskModerate},
		{"mid moderate", 0.51, RiskModerate},
		{"just below high", 0.6999999, RiskModerate},
		{"high boundary", 0.7, RiskHigh},
		{"maximum", 1.0, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskLevelFromScore(tt.score))
		})
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    RiskLevel
		wantErr bool
	}{
		{"LOW", RiskLow, false},
		{"MODERATE", RiskModerate, false},
		{"HIGH", RiskHigh, false},
		{"HIGH_RISK", RiskHigh, false},
		{"LOW_RISK", RiskLow, false},
		{"SEVERE", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRiskLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRiskLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRiskLevel_RequiresAlternative(t *testing.T) {
	assert.False(t, RiskLow.RequiresAlternative())
	assert.True(t, RiskModerate.RequiresAlternative())
	assert.True(t, RiskHigh.RequiresAlternative())
	assert.False(t, RiskLevel("UNKNOWN").IsValid())
}

func TestRiskLevel_Description(t *testing.T) {
	assert.Equal(t, "High risk: significant pharmacogenomic interaction expected", RiskHigh.Description())
	assert.Equal(t, "Moderate risk: altered drug response possible", RiskModerate.Description())
	assert.Contains(t, RiskLow.Description(), "Low risk")
	assert.Equal(t, "Unknown risk level", RiskLevel("BOGUS").Description())
}

func TestPrediction_Validate(t *testing.T) {
	tests := []struct {
		name       string
		prediction *Prediction
		wantErr    error
	}{
		{"nil prediction", nil, ErrMalformedPrediction},
		{"unsuccessful", &Prediction{Success: false, RiskProbability: 0.5, Confidence: 0.5}, ErrPredictionUnsuccessful},
		{"probability above one", &Prediction{Success: true, RiskProbability: 1.2, Confidence: 0.5}, ErrMalformedPrediction},
		{"negative confidence", &Prediction{Success: true, RiskProbability: 0.2, Confidence: -0.1}, ErrMalformedPrediction},
		{"NaN probability", &Prediction{Success: true, RiskProbability: math.NaN(), Confidence: 0.5}, ErrMalformedPrediction},
		{"valid", &Prediction{Success: true, RiskProbability: 0.72, Confidence: 0.44}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prediction.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRiskAssessment_IsConsistent(t *testing.T) {
	a := &RiskAssessment{RiskLevel: RiskModerate, RiskScore: 0.51, Confidence: 0.62}
	assert.True(t, a.IsConsistent())

	a = &RiskAssessment{RiskLevel: RiskHigh, RiskScore: 0.51, Confidence: 0.62}
	assert.False(t, a.IsConsistent())
}

func TestVariantRecord_Classification(t *testing.T) {
	v := &VariantRecord{Impact: "high", ClinicalSignificance: "Pathogenic"}
	assert.True(t, v.IsHighRisk())
	assert.True(t, v.IsHighImpact())
	assert.True(t, v.IsPathogenic())

	v = &VariantRecord{ClinicalSignificance: "HIGH"}
	assert.True(t, v.IsHighRisk())
	assert.False(t, v.IsHighImpact())

	v = &VariantRecord{ClinicalSignificance: "likely_pathogenic"}
	assert.False(t, v.IsPathogenic())
	assert.False(t, v.HasDrugInteractions())

	v = &VariantRecord{Chromosome: "chr10", Position: 94942290, Reference: "C", Alternative: "T"}
	assert.Equal(t, "10-94942290-C-T", v.Key())
}

func TestGeneDrugTable(t *testing.T) {
	table := DefaultGeneDrugTable()

	assert.ElementsMatch(t, []string{"CYP2C9", "VKORC1", "CYP4F2"}, table.GenesFor("Warfarin"))
	assert.Empty(t, table.GenesFor("warfarin"), "lookup is case-sensitive")
	assert.Empty(t, table.GenesFor("Aspirin"))

	genes := table.GenesFor("Clopidogrel")
	genes[0] = "MUTATED"
	assert.Equal(t, []string{"CYP2C19"}, table.GenesFor("Clopidogrel"), "callers cannot mutate the table")

	merged := table.Merge(map[string][]string{"Aspirin": {"PTGS1"}})
	assert.Equal(t, []string{"PTGS1"}, merged.GenesFor("Aspirin"))
	assert.Empty(t, table.GenesFor("Aspirin"), "merge leaves the original untouched")
	assert.Contains(t, merged.Drugs(), "Warfarin")
}

func TestSubstituteTable(t *testing.T) {
	table := DefaultSubstituteTable()

	g, ok := table.Lookup("Warfarin")
	require.True(t, ok)
	assert.Equal(t, "Apixaban", g.Alternative)

	_, ok = table.Lookup("Aspirin")
	assert.False(t, ok)

	merged := table.Merge(map[string]SubstituteGuidance{"Aspirin": {Alternative: "Clopidogrel"}})
	g, ok = merged.Lookup("Aspirin")
	require.True(t, ok)
	assert.Equal(t, "Clopidogrel", g.Alternative)
}

func TestReferenceConfig_Maps(t *testing.T) {
	cfg := ReferenceConfig{
		GeneDrug: []GeneDrugEntry{
			{Drug: "Efavirenz", Genes: []string{"CYP2B6"}},
			{Drug: "", Genes: []string{"IGNORED"}},
		},
		Substitutes: []SubstituteEntry{
			{Drug: "Efavirenz", Alternative: "Dolutegravir"},
		},
	}

	assert.Equal(t, map[string][]string{"Efavirenz": {"CYP2B6"}}, cfg.GeneDrugMap())
	assert.Equal(t, "Dolutegravir", cfg.SubstituteMap()["Efavirenz"].Alternative)
}
