// Package model holds the trained salary model and its metadata.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/salary-predictor/internal/features"
)

// Scorer maps a derived record to a raw model output.
type Scorer interface {
	Score(ctx context.Context, rec features.DerivedRecord) (float64, error)
}

// Metadata describes the training run an artifact came from.
type Metadata struct {
	ModelName           string             `json:"model_name" yaml:"model_name"`
	TrainingDate        string             `json:"training_date" yaml:"training_date"`
	PerformanceMetrics  map[string]float64 `json:"performance_metrics" yaml:"performance_metrics"`
	FeatureNames        []string           `json:"feature_names" yaml:"feature_names"`
	CategoricalFeatures []string           `json:"categorical_features" yaml:"categorical_features"`
	NumericalFeatures   []string           `json:"numerical_features" yaml:"numerical_features"`
}

// Bundle is the serialized form of a model artifact.
type Bundle struct {
	Metadata `json:",inline" yaml:",inline"`

	Model PipelineSpec `json:"model" yaml:"model"`
}

// Artifact is a loaded model plus its metadata. It is never mutated after
// construction and is safe for concurrent use.
type Artifact struct {
	meta   Metadata
	scorer Scorer
}

// NewArtifact builds an Artifact around an arbitrary scorer.
func NewArtifact(meta Metadata, scorer Scorer) (*Artifact, error) {
	if meta.ModelName == "" {
		return nil, errors.New("model_name is required")
	}
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	return &Artifact{meta: meta.clone(), scorer: scorer}, nil
}

// FromBundle validates a decoded bundle and builds its pipeline.
func FromBundle(b Bundle) (*Artifact, error) {
	if b.ModelName == "" {
		return nil, errors.New("model_name is required")
	}
	if len(b.FeatureNames) == 0 {
		return nil, errors.New("feature_names is required")
	}
	if err := checkFeatureLists(b.Metadata); err != nil {
		return nil, err
	}
	if err := features.CheckFeatureSpace(b.NumericalFeatures, b.CategoricalFeatures); err != nil {
		return nil, err
	}
	pipeline, err := NewPipeline(b.NumericalFeatures, b.CategoricalFeatures, b.Model)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return NewArtifact(b.Metadata, pipeline)
}

// checkFeatureLists ensures the numerical and categorical lists partition
// feature_names.
func checkFeatureLists(m Metadata) error {
	declared := make(map[string]bool, len(m.FeatureNames))
	for _, name := range m.FeatureNames {
		declared[name] = true
	}
	seen := make(map[string]bool, len(declared))
	for _, list := range [][]string{m.NumericalFeatures, m.CategoricalFeatures} {
		for _, name := range list {
			if !declared[name] {
				return fmt.Errorf("feature %q is not listed in feature_names", name)
			}
			if seen[name] {
				return fmt.Errorf("feature %q is listed twice", name)
			}
			seen[name] = true
		}
	}
	if len(seen) != len(declared) {
		return fmt.Errorf("feature_names has %d entries but only %d are typed", len(declared), len(seen))
	}
	return nil
}

// Metadata returns a copy of the artifact's metadata.
func (a *Artifact) Metadata() Metadata {
	return a.meta.clone()
}

// Name returns the model name.
func (a *Artifact) Name() string {
	return a.meta.ModelName
}

// Score runs the underlying scorer. Errors are always *ScoringError.
func (a *Artifact) Score(ctx context.Context, rec features.DerivedRecord) (float64, error) {
	v, err := a.scorer.Score(ctx, rec)
	if err != nil {
		var scoring *ScoringError
		if errors.As(err, &scoring) {
			return 0, err
		}
		return 0, &ScoringError{Err: err}
	}
	return v, nil
}

func (m Metadata) clone() Metadata {
	out := m
	if m.PerformanceMetrics != nil {
		out.PerformanceMetrics = make(map[string]float64, len(m.PerformanceMetrics))
		for k, v := range m.PerformanceMetrics {
			out.PerformanceMetrics[k] = v
		}
	}
	out.FeatureNames = append([]string(nil), m.FeatureNames...)
	out.CategoricalFeatures = append([]string(nil), m.CategoricalFeatures...)
	out.NumericalFeatures = append([]string(nil), m.NumericalFeatures...)
	return out
}

// ScoringError wraps a failure inside the model invocation.
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed: %v", e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}
