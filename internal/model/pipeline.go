package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/JakeFAU/salary-predictor/internal/features"
)

// PipelineSpec is the serialized encoder and estimator pair.
type PipelineSpec struct {
	Encoder   EncoderSpec   `json:"encoder" yaml:"encoder"`
	Estimator EstimatorSpec `json:"estimator" yaml:"estimator"`
}

// EncoderSpec standardises numerical features and one-hot encodes
// categorical ones. Missing means default to 0 and missing or zero scales
// to 1.
type EncoderSpec struct {
	Categories map[string][]string `json:"categories" yaml:"categories"`
	Means      map[string]float64  `json:"means" yaml:"means"`
	Scales     map[string]float64  `json:"scales" yaml:"scales"`
}

// Encoder turns a derived record into the model's input vector: numerical
// features first, then one block of indicator columns per categorical feature.
type Encoder struct {
	numerical   []string
	means       []float64
	scales      []float64
	categorical []string
	categories  []map[string]int
	width       int
}

// NewEncoder builds an Encoder for the given feature order.
func NewEncoder(numerical, categorical []string, spec EncoderSpec) (*Encoder, error) {
	enc := &Encoder{
		numerical:   append([]string(nil), numerical...),
		means:       make([]float64, len(numerical)),
		scales:      make([]float64, len(numerical)),
		categorical: append([]string(nil), categorical...),
		categories:  make([]map[string]int, len(categorical)),
	}
	for i, name := range numerical {
		enc.means[i] = spec.Means[name]
		scale, ok := spec.Scales[name]
		if !ok || scale == 0 {
			scale = 1
		}
		enc.scales[i] = scale
	}
	enc.width = len(numerical)
	for i, name := range categorical {
		cats, ok := spec.Categories[name]
		if !ok {
			return nil, fmt.Errorf("encoder has no categories for %q", name)
		}
		index := make(map[string]int, len(cats))
		for _, c := range cats {
			if _, dup := index[c]; dup {
				return nil, fmt.Errorf("duplicate category %q for %q", c, name)
			}
			index[c] = enc.width
			enc.width++
		}
		enc.categories[i] = index
	}
	return enc, nil
}

// Width is the length of every encoded vector.
func (e *Encoder) Width() int {
	return e.width
}

// Encode builds the input vector. Unknown or missing categories encode as an
// all-zero block.
func (e *Encoder) Encode(rec features.DerivedRecord) ([]float64, error) {
	x := make([]float64, e.width)
	for i, name := range e.numerical {
		v, ok := rec.Lookup(name)
		if !ok || v.Kind != features.KindNumeric {
			return nil, fmt.Errorf("feature %q is not a numeric feature", name)
		}
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return nil, fmt.Errorf("feature %q is not finite", name)
		}
		x[i] = (v.Number - e.means[i]) / e.scales[i]
	}
	for i, name := range e.categorical {
		v, ok := rec.Lookup(name)
		if !ok || v.Kind != features.KindCategorical {
			return nil, fmt.Errorf("feature %q is not a categorical feature", name)
		}
		if v.Missing {
			continue
		}
		if col, ok := e.categories[i][v.Category]; ok {
			x[col] = 1
		}
	}
	return x, nil
}

// Estimator scores an encoded vector.
type Estimator interface {
	Predict(x []float64) (float64, error)
}

// Pipeline chains an Encoder and an Estimator.
type Pipeline struct {
	encoder   *Encoder
	estimator Estimator
}

// NewPipeline builds the encoder and estimator described by spec.
func NewPipeline(numerical, categorical []string, spec PipelineSpec) (*Pipeline, error) {
	enc, err := NewEncoder(numerical, categorical, spec.Encoder)
	if err != nil {
		return nil, err
	}
	est, err := NewEstimator(spec.Estimator, enc.Width())
	if err != nil {
		return nil, err
	}
	return &Pipeline{encoder: enc, estimator: est}, nil
}

// Score encodes rec and runs the estimator.
func (p *Pipeline) Score(ctx context.Context, rec features.DerivedRecord) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &ScoringError{Err: err}
	}
	x, err := p.encoder.Encode(rec)
	if err != nil {
		return 0, &ScoringError{Err: err}
	}
	y, err := p.estimator.Predict(x)
	if err != nil {
		return 0, &ScoringError{Err: err}
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, &ScoringError{Err: errors.New("model produced a non-finite score")}
	}
	return y, nil
}
