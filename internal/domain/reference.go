package domain

import (
	"sort"
)

// GeneDrugTable maps a drug name to the genes that affect its metabolism.
// It is built once at start-up and only read afterwards, so it is safe for
// concurrent use.
type GeneDrugTable struct {
	genes map[string][]string
}

// NewGeneDrugTable copies entries into a new immutable table.
func NewGeneDrugTable(entries map[string][]string) *GeneDrugTable {
	genes := make(map[string][]string, len(entries))
	for drug, list := range entries {
		genes[drug] = append([]string(nil), list...)
	}
	return &GeneDrugTable{genes: genes}
}

// GenesFor returns the reference genes for drug. The lookup is case-sensitive
// and an unknown drug yields an empty slice.
func (t *GeneDrugTable) GenesFor(drug string) []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.genes[drug]...)
}

// Drugs returns the known drug names in sorted order.
func (t *GeneDrugTable) Drugs() []string {
	if t == nil {
		return nil
	}
	drugs := make([]string, 0, len(t.genes))
	for drug := range t.genes {
		drugs = append(drugs, drug)
	}
	sort.Strings(drugs)
	return drugs
}

// Merge returns a new table with extra entries layered over t.
func (t *GeneDrugTable) Merge(extra map[string][]string) *GeneDrugTable {
	merged := make(map[string][]string, len(t.genes)+len(extra))
	for drug, list := range t.genes {
		merged[drug] = list
	}
	for drug, list := range extra {
		merged[drug] = list
	}
	return NewGeneDrugTable(merged)
}

// SubstituteGuidance holds the substitute drug and the drug-specific text used
// when recommending it.
type SubstituteGuidance struct {
	Alternative string `json:"alternative"`
	Dosage      string `json:"dosage"`
	Monitoring  string `json:"monitoring"`
}

// SubstituteTable maps a drug name to its substitute guidance.
type SubstituteTable struct {
	entries map[string]SubstituteGuidance
}

// NewSubstituteTable copies entries into a new immutable table.
func NewSubstituteTable(entries map[string]SubstituteGuidance) *SubstituteTable {
	copied := make(map[string]SubstituteGuidance, len(entries))
	for drug, g := range entries {
		copied[drug] = g
	}
	return &SubstituteTable{entries: copied}
}

// Lookup returns the guidance for drug and whether it was found.
func (t *SubstituteTable) Lookup(drug string) (SubstituteGuidance, bool) {
	if t == nil {
		return SubstituteGuidance{}, false
	}
	g, ok := t.entries[drug]
	return g, ok
}

// Merge returns a new table with extra entries layered over t.
func (t *SubstituteTable) Merge(extra map[string]SubstituteGuidance) *SubstituteTable {
	merged := make(map[string]SubstituteGuidance, len(t.entries)+len(extra))
	for drug, g := range t.entries {
		merged[drug] = g
	}
	for drug, g := range extra {
		merged[drug] = g
	}
	return NewSubstituteTable(merged)
}

// DefaultGeneDrugTable returns the built-in CPIC gene-drug pairs.
func DefaultGeneDrugTable() *GeneDrugTable {
	return NewGeneDrugTable(map[string][]string{
		"Warfarin":       {"CYP2C9", "VKORC1", "CYP4F2"},
		"Clopidogrel":    {"CYP2C19"},
		"Codeine":        {"CYP2D6"},
		"Tramadol":       {"CYP2D6"},
		"Tamoxifen":      {"CYP2D6"},
		"Simvastatin":    {"SLCO1B1"},
		"Abacavir":       {"HLA-B"},
		"Allopurinol":    {"HLA-B"},
		"Carbamazepine":  {"HLA-A", "HLA-B"},
		"Phenytoin":      {"CYP2C9", "HLA-B"},
		"Fluorouracil":   {"DPYD"},
		"Capecitabine":   {"DPYD"},
		"Mercaptopurine": {"TPMT", "NUDT15"},
		"Azathioprine":   {"TPMT", "NUDT15"},
		"Irinotecan":     {"UGT1A1"},
		"Tacrolimus":     {"CYP3A5"},
		"Voriconazole":   {"CYP2C19"},
		"Citalopram":     {"CYP2C19"},
	})
}

// DefaultSubstituteTable returns the built-in substitute guidance.
func DefaultSubstituteTable() *SubstituteTable {
	return NewSubstituteTable(map[string]SubstituteGuidance{
		"Warfarin": {
			Alternative: "Apixaban",
			Dosage:      "5 mg twice daily; 2.5 mg twice daily if two of age >= 80, weight <= 60 kg, creatinine >= 1.5 mg/dL",
			Monitoring:  "Renal function and CBC at baseline and yearly; no routine INR monitoring required",
		},
		"Clopidogrel": {
			Alternative: "Prasugrel",
			Dosage:      "60 mg loading dose, then 10 mg daily (5 mg if weight < 60 kg)",
			Monitoring:  "Monitor for bleeding; avoid in patients with prior stroke or TIA",
		},
		"Codeine": {
			Alternative: "Morphine",
			Dosage:      "Start at the lowest effective dose and titrate to response",
			Monitoring:  "Monitor respiratory rate, sedation and pain scores",
		},
		"Tramadol": {
			Alternative: "Morphine",
			Dosage:      "Start at the lowest effective dose and titrate to response",
			Monitoring:  "Monitor respiratory rate, sedation and pain scores",
		},
		"Tamoxifen": {
			Alternative: "Anastrozole",
			Dosage:      "1 mg daily (postmenopausal patients)",
			Monitoring:  "Bone mineral density at baseline and periodically; lipid profile",
		},
		"Simvastatin": {
			Alternative: "Rosuvastatin",
			Dosage:      "5-10 mg daily, titrate to lipid targets",
			Monitoring:  "Lipid panel at 4-12 weeks; report muscle pain or weakness",
		},
		"Abacavir": {
			Alternative: "Tenofovir alafenamide",
			Dosage:      "25 mg daily as part of combination antiretroviral therapy",
			Monitoring:  "Renal function and viral load per antiretroviral guidelines",
		},
		"Allopurinol": {
			Alternative: "Febuxostat",
			Dosage:      "40 mg daily, increase to 80 mg if urate target not met after 2 weeks",
			Monitoring:  "Serum urate, liver function tests, cardiovascular status",
		},
		"Carbamazepine": {
			Alternative: "Levetiracetam",
			Dosage:      "500 mg twice daily, titrate by 500 mg every 2 weeks",
			Monitoring:  "Seizure frequency, mood and behavioural changes",
		},
		"Phenytoin": {
			Alternative: "Levetiracetam",
			Dosage:      "500 mg twice daily, titrate by 500 mg every 2 weeks",
			Monitoring:  "Seizure frequency, mood and behavioural changes",
		},
		"Fluorouracil": {
			Alternative: "Raltitrexed",
			Dosage:      "3 mg/m2 every 3 weeks, adjusted for renal function",
			Monitoring:  "CBC before each cycle; renal and liver function",
		},
		"Capecitabine": {
			Alternative: "Raltitrexed",
			Dosage:      "3 mg/m2 every 3 weeks, adjusted for renal function",
			Monitoring:  "CBC before each cycle; renal and liver function",
		},
		"Mercaptopurine": {
			Alternative: "Methotrexate",
			Dosage:      "Dose per protocol; consider 30-80% reduction of thiopurine if continued",
			Monitoring:  "CBC weekly during induction; liver function",
		},
		"Azathioprine": {
			Alternative: "Mycophenolate mofetil",
			Dosage:      "1 g twice daily",
			Monitoring:  "CBC weekly for the first month, then monthly",
		},
		"Irinotecan": {
			Alternative: "Oxaliplatin",
			Dosage:      "85 mg/m2 every 2 weeks",
			Monitoring:  "Peripheral neuropathy assessment and CBC before each cycle",
		},
		"Tacrolimus": {
			Alternative: "Cyclosporine",
			Dosage:      "Dose to target trough concentration per transplant protocol",
			Monitoring:  "Trough levels, renal function, blood pressure",
		},
		"Voriconazole": {
			Alternative: "Isavuconazole",
			Dosage:      "372 mg every 8 hours for 6 doses, then 372 mg daily",
			Monitoring:  "Liver function tests; QTc if on interacting drugs",
		},
		"Citalopram": {
			Alternative: "Sertraline",
			Dosage:      "50 mg daily, titrate by 25-50 mg weekly",
			Monitoring:  "Mood, suicidality and adverse effects during the first weeks",
		},
	})
}
