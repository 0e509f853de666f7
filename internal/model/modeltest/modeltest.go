// Package modeltest provides small, fully specified model artifacts and
// records for tests in other packages.
package modeltest

import (
	"encoding/json"
	"sort"

	"github.com/JakeFAU/salary-predictor/internal/features"
	"github.com/JakeFAU/salary-predictor/internal/model"
)

// SampleRecordJSON is the reference job profile used by the training notebook.
const SampleRecordJSON = `{
	"industry": "J", "occupation": 2, "yrs_qual": 16, "sex": 1, "highest_qual": 12,
	"area_of_study": 5, "influencing": 3, "negotiating": 3, "sector": 1,
	"workforce_change": 1, "no_subordinates": 1, "choose_hours": 3, "choose_method": 4,
	"job_quals": 12, "qual_needed": 1, "experience_needed": 4, "keeping_current": 4,
	"satisfaction": 2, "advising": 3, "instructing": 2, "problem_solving_quick": 4,
	"problem_solving_long": 4, "labour": 1, "manual_skill": 2, "computer": 1,
	"group_meetings": 1, "computer_level": 2
}`

// SampleSalary is what SampleBundle predicts for SampleRecordJSON.
const SampleSalary = "5426.67"

// SampleRecord decodes SampleRecordJSON the way a handler would.
func SampleRecord() map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(SampleRecordJSON), &m); err != nil {
		panic(err)
	}
	return m
}

var numerical = []string{
	features.FieldYrsQual,
	features.FieldHighestQual,
	features.FeatureLeadershipScore,
	features.FeatureProblemSolvingScore,
	features.FeatureAutonomyScore,
	features.FeatureTeachingScore,
	features.FeatureEducationPremium,
	features.FeatureEducationEfficiency,
	features.FieldComputerLevel,
}

var numericCoef = []float64{100, 50, 200, 150, 120, 80, 300, 90, 60}

// SampleBundle returns a linear model over nine numerical features and the
// one-hot encoded industry name.
func SampleBundle() model.Bundle {
	industries := industryLabels()
	coef := append([]float64(nil), numericCoef...)
	for _, label := range industries {
		switch label {
		case "Information":
			coef = append(coef, 500)
		case "Finance":
			coef = append(coef, 700)
		default:
			coef = append(coef, 0)
		}
	}

	categorical := []string{features.FeatureIndustryName}
	return model.Bundle{
		Metadata: model.Metadata{
			ModelName:           "Linear Regression",
			TrainingDate:        "2025-06-01 12:00:00",
			PerformanceMetrics:  map[string]float64{"r2_score": 0.41, "rmse": 812.5, "mae": 604.2},
			FeatureNames:        append(append([]string(nil), numerical...), categorical...),
			CategoricalFeatures: categorical,
			NumericalFeatures:   append([]string(nil), numerical...),
		},
		Model: model.PipelineSpec{
			Encoder: model.EncoderSpec{
				Categories: map[string][]string{features.FeatureIndustryName: industries},
				Means:      map[string]float64{features.FieldYrsQual: 12},
				Scales:     map[string]float64{features.FieldYrsQual: 4},
			},
			Estimator: model.EstimatorSpec{
				Type:         model.EstimatorLinear,
				Intercept:    2000,
				Coefficients: coef,
			},
		},
	}
}

// NegativeBundle is SampleBundle with an intercept low enough that every
// prediction comes out negative before clamping.
func NegativeBundle() model.Bundle {
	b := SampleBundle()
	b.ModelName = "Underwater Regression"
	b.Model.Estimator.Intercept = -1e6
	return b
}

// SampleArtifact builds SampleBundle into an artifact.
func SampleArtifact() *model.Artifact {
	a, err := model.FromBundle(SampleBundle())
	if err != nil {
		panic(err)
	}
	return a
}

// SamplePreprocessor matches SampleBundle exactly.
func SamplePreprocessor() model.Preprocessor {
	b := SampleBundle()
	return model.Preprocessor{
		FeatureNames:        b.FeatureNames,
		CategoricalFeatures: b.CategoricalFeatures,
		NumericalFeatures:   b.NumericalFeatures,
		IndustryMapping:     features.IndustryTable(),
	}
}

func industryLabels() []string {
	table := features.IndustryTable()
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	labels := make([]string, 0, len(codes))
	for _, code := range codes {
		labels = append(labels, table[code])
	}
	return labels
}
