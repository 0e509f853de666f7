package model

import (
	"errors"
	"fmt"
)

// Estimator types accepted in EstimatorSpec.Type.
const (
	EstimatorLinear       = "linear"
	EstimatorTreeEnsemble = "tree_ensemble"
)

// Tree ensemble aggregation modes.
const (
	AggregateSum  = "sum"
	AggregateMean = "mean"
)

// EstimatorSpec is the serialized regressor.
type EstimatorSpec struct {
	Type string `json:"type" yaml:"type"`

	// linear
	Intercept    float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`

	// tree_ensemble
	BaseScore    float64      `json:"base_score,omitempty" yaml:"base_score,omitempty"`
	LearningRate float64      `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`
	Aggregation  string       `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Trees        [][]TreeNode `json:"trees,omitempty" yaml:"trees,omitempty"`
}

// NewEstimator builds the estimator for spec over vectors of the given width.
func NewEstimator(spec EstimatorSpec, width int) (Estimator, error) {
	switch spec.Type {
	case EstimatorLinear:
		return newLinear(spec, width)
	case EstimatorTreeEnsemble:
		return newTreeEnsemble(spec, width)
	default:
		return nil, fmt.Errorf("unsupported estimator type %q", spec.Type)
	}
}

// Linear is an ordinary least squares style regressor.
type Linear struct {
	intercept float64
	coef      []float64
}

func newLinear(spec EstimatorSpec, width int) (*Linear, error) {
	if len(spec.Coefficients) != width {
		return nil, fmt.Errorf("linear estimator has %d coefficients, encoder width is %d", len(spec.Coefficients), width)
	}
	return &Linear{intercept: spec.Intercept, coef: append([]float64(nil), spec.Coefficients...)}, nil
}

// Predict returns intercept + coef·x.
func (l *Linear) Predict(x []float64) (float64, error) {
	if len(x) != len(l.coef) {
		return 0, fmt.Errorf("input has %d columns, expected %d", len(x), len(l.coef))
	}
	y := l.intercept
	for i, c := range l.coef {
		y += c * x[i]
	}
	return y, nil
}

// TreeNode is one node of a regression tree stored as a flat slice; children
// are indices into the same slice.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx" yaml:"feature_idx"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	LeftChild  int     `json:"left_child" yaml:"left_child"`
	RightChild int     `json:"right_child" yaml:"right_child"`
	Value      float64 `json:"value" yaml:"value"`
	IsLeaf     bool    `json:"is_leaf" yaml:"is_leaf"`
}

// TreeEnsemble sums (boosting) or averages (forest) regression trees.
type TreeEnsemble struct {
	base         float64
	learningRate float64
	mean         bool
	trees        [][]TreeNode
}

func newTreeEnsemble(spec EstimatorSpec, width int) (*TreeEnsemble, error) {
	if len(spec.Trees) == 0 {
		return nil, errors.New("tree ensemble has no trees")
	}
	ens := &TreeEnsemble{base: spec.BaseScore, learningRate: spec.LearningRate}
	switch spec.Aggregation {
	case "", AggregateSum:
	case AggregateMean:
		ens.mean = true
	default:
		return nil, fmt.Errorf("unsupported aggregation %q", spec.Aggregation)
	}
	if ens.learningRate == 0 {
		ens.learningRate = 1
	}
	for i, tree := range spec.Trees {
		if err := validateTree(tree, width); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		ens.trees = append(ens.trees, append([]TreeNode(nil), tree...))
	}
	return ens, nil
}

func validateTree(nodes []TreeNode, width int) error {
	if len(nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range nodes {
		if n.IsLeaf {
			continue
		}
		if n.FeatureIdx < 0 || n.FeatureIdx >= width {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.FeatureIdx)
		}
		// Children must point forward so evaluation always terminates.
		if n.LeftChild <= i || n.LeftChild >= len(nodes) || n.RightChild <= i || n.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.LeftChild, n.RightChild)
		}
	}
	return nil
}

// Predict evaluates every tree and combines the leaf values.
func (e *TreeEnsemble) Predict(x []float64) (float64, error) {
	var sum float64
	for _, tree := range e.trees {
		v, err := evalTree(tree, x)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	if e.mean {
		sum /= float64(len(e.trees))
	}
	return e.base + e.learningRate*sum, nil
}

func evalTree(nodes []TreeNode, x []float64) (float64, error) {
	idx := 0
	for {
		node := nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx >= len(x) {
			return 0, errors.New("feature index out of range")
		}
		if x[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}
