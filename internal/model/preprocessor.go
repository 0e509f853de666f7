package model

import (
	"fmt"
	"sort"

	"github.com/JakeFAU/salary-predictor/internal/features"
)

// Preprocessor is the optional training-time preprocessing record saved next
// to the model. The service only uses it to cross-check the model.
type Preprocessor struct {
	FeatureNames        []string          `json:"feature_names" yaml:"feature_names"`
	CategoricalFeatures []string          `json:"categorical_features" yaml:"categorical_features"`
	NumericalFeatures   []string          `json:"numerical_features" yaml:"numerical_features"`
	IndustryMapping     map[string]string `json:"industry_mapping" yaml:"industry_mapping"`
}

// Discrepancies lists every way p disagrees with the model metadata or the
// built-in industry table. An empty result means they agree.
func (p *Preprocessor) Discrepancies(meta Metadata) []string {
	var out []string
	out = append(out, diffLists("feature_names", p.FeatureNames, meta.FeatureNames)...)
	out = append(out, diffLists("categorical_features", p.CategoricalFeatures, meta.CategoricalFeatures)...)
	out = append(out, diffLists("numerical_features", p.NumericalFeatures, meta.NumericalFeatures)...)

	if len(p.IndustryMapping) > 0 {
		table := features.IndustryTable()
		codes := make([]string, 0, len(p.IndustryMapping))
		for code := range p.IndustryMapping {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			want := p.IndustryMapping[code]
			if got, ok := table[code]; !ok || got != want {
				out = append(out, fmt.Sprintf("industry_mapping[%s]: preprocessor %q, service %q", code, want, got))
			}
		}
	}
	return out
}

func diffLists(label string, pre, model []string) []string {
	if len(pre) == 0 {
		return nil
	}
	inModel := make(map[string]bool, len(model))
	for _, n := range model {
		inModel[n] = true
	}
	inPre := make(map[string]bool, len(pre))
	var out []string
	for _, n := range pre {
		inPre[n] = true
		if !inModel[n] {
			out = append(out, fmt.Sprintf("%s: %q only in preprocessor", label, n))
		}
	}
	for _, n := range model {
		if !inPre[n] {
			out = append(out, fmt.Sprintf("%s: %q only in model", label, n))
		}
	}
	return out
}
