package features

import (
	"fmt"
	"sort"
	"strings"
)

// Derived feature names.
const (
	FeatureIndustryName        = "industry_name"
	FeatureLeadershipScore     = "leadership_score"
	FeatureProblemSolvingScore = "problem_solving_score"
	FeatureAutonomyScore       = "autonomy_score"
	FeatureTeachingScore       = "teaching_score"
	FeatureEducationPremium    = "education_premium"
	FeatureEducationEfficiency = "education_efficiency"
)

var industryNames = map[string]string{
	"A": "Agriculture",
	"B": "Mining",
	"C": "Manufacturing",
	"D": "Utilities",
	"E": "Water_Waste",
	"F": "Construction",
	"G": "Trade",
	"H": "Transportation",
	"I": "Accommodation",
	"J": "Information",
	"K": "Finance",
	"L": "Real_Estate",
	"M": "Professional",
	"N": "Administrative",
	"O": "Public_Admin",
	"P": "Education",
	"Q": "Health",
	"R": "Arts",
	"S": "Other_Services",
	"T": "Household",
	"U": "Extraterritorial",
}

// IndustryName maps a single-letter industry code to its training label.
func IndustryName(code string) (string, bool) {
	name, ok := industryNames[code]
	return name, ok
}

// IndustryTable returns a copy of the code to name table.
func IndustryTable() map[string]string {
	out := make(map[string]string, len(industryNames))
	for k, v := range industryNames {
		out[k] = v
	}
	return out
}

// DerivedRecord is a RawRecord extended with the seven engineered features.
// IndustryName is empty when HasIndustryName is false.
type DerivedRecord struct {
	RawRecord

	IndustryName        string
	HasIndustryName     bool
	LeadershipScore     float64
	ProblemSolvingScore float64
	AutonomyScore       float64
	TeachingScore       float64
	EducationPremium    float64
	EducationEfficiency float64
}

// Transform derives the engineered features. The arithmetic mirrors the
// training code operation for operation; do not reorder it.
func Transform(raw RawRecord) (DerivedRecord, error) {
	if raw.JobQuals == 0 {
		return DerivedRecord{}, &ArithmeticError{Feature: FeatureEducationPremium, Denominator: FieldJobQuals}
	}
	if raw.HighestQual == 0 {
		return DerivedRecord{}, &ArithmeticError{Feature: FeatureEducationEfficiency, Denominator: FieldHighestQual}
	}

	d := DerivedRecord{RawRecord: raw}
	d.IndustryName, d.HasIndustryName = IndustryName(raw.Industry)
	d.LeadershipScore = (raw.Influencing + raw.Negotiating + raw.NoSubordinates) / 3
	d.ProblemSolvingScore = (raw.ProblemSolvingQuick + raw.ProblemSolvingLong) / 2
	d.AutonomyScore = (raw.ChooseHours + raw.ChooseMethod) / 2
	d.TeachingScore = (raw.Advising + raw.Instructing) / 2
	d.EducationPremium = raw.HighestQual / raw.JobQuals
	d.EducationEfficiency = raw.YrsQual / raw.HighestQual
	return d, nil
}

// TransformMap parses and transforms a decoded JSON value in one step.
func TransformMap(v any) (DerivedRecord, error) {
	raw, err := ParseValue(v)
	if err != nil {
		return DerivedRecord{}, err
	}
	return Transform(raw)
}

// Kind classifies a feature as numeric or categorical.
type Kind int

// Feature kinds.
const (
	KindNumeric Kind = iota + 1
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numerical"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Value is one feature of a DerivedRecord. Missing is only ever set for
// categorical features whose lookup produced no label.
type Value struct {
	Kind     Kind
	Number   float64
	Category string
	Missing  bool
}

var featureKinds = func() map[string]Kind {
	kinds := map[string]Kind{
		FeatureIndustryName:        KindCategorical,
		FeatureLeadershipScore:     KindNumeric,
		FeatureProblemSolvingScore: KindNumeric,
		FeatureAutonomyScore:       KindNumeric,
		FeatureTeachingScore:       KindNumeric,
		FeatureEducationPremium:    KindNumeric,
		FeatureEducationEfficiency: KindNumeric,
	}
	for _, name := range RequiredFields {
		kinds[name] = KindNumeric
	}
	kinds[FieldIndustry] = KindCategorical
	return kinds
}()

// FeatureNames lists every feature a DerivedRecord exposes, sorted.
func FeatureNames() []string {
	names := make([]string, 0, len(featureKinds))
	for name := range featureKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named feature. ok is false for names the engineer does
// not produce.
func (d DerivedRecord) Lookup(name string) (Value, bool) {
	switch name {
	case FieldIndustry:
		return Value{Kind: KindCategorical, Category: d.Industry}, true
	case FeatureIndustryName:
		return Value{Kind: KindCategorical, Category: d.IndustryName, Missing: !d.HasIndustryName}, true
	case FeatureLeadershipScore:
		return numeric(d.LeadershipScore), true
	case FeatureProblemSolvingScore:
		return numeric(d.ProblemSolvingScore), true
	case FeatureAutonomyScore:
		return numeric(d.AutonomyScore), true
	case FeatureTeachingScore:
		return numeric(d.TeachingScore), true
	case FeatureEducationPremium:
		return numeric(d.EducationPremium), true
	case FeatureEducationEfficiency:
		return numeric(d.EducationEfficiency), true
	}
	raw := d.RawRecord
	for _, ref := range raw.numericRefs() {
		if ref.name == name {
			return numeric(*ref.ptr), true
		}
	}
	return Value{}, false
}

func numeric(v float64) Value {
	return Value{Kind: KindNumeric, Number: v}
}

// CheckFeatureSpace verifies that every feature a model was trained on is
// produced by Transform with the expected kind.
func CheckFeatureSpace(numerical, categorical []string) error {
	var problems []string
	check := func(names []string, want Kind) {
		for _, name := range names {
			got, ok := featureKinds[name]
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s: not produced", name))
			case got != want:
				problems = append(problems, fmt.Sprintf("%s: is %s, model expects %s", name, got, want))
			}
		}
	}
	check(numerical, KindNumeric)
	check(categorical, KindCategorical)
	if len(problems) > 0 {
		return fmt.Errorf("feature space mismatch: %s", strings.Join(problems, "; "))
	}
	return nil
}
