package predict

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/salary-predictor/internal/features"
	"github.com/JakeFAU/salary-predictor/internal/metrics"
	"github.com/JakeFAU/salary-predictor/internal/model"
	"github.com/JakeFAU/salary-predictor/internal/model/modeltest"
)

type countingScorer struct {
	inner model.Scorer
	calls atomic.Int64
}

func (c *countingScorer) Score(ctx context.Context, rec features.DerivedRecord) (float64, error) {
	c.calls.Add(1)
	return c.inner.Score(ctx, rec)
}

type fixedScorer struct {
	value float64
	err   error
}

func (f fixedScorer) Score(context.Context, features.DerivedRecord) (float64, error) {
	return f.value, f.err
}

func newPredictor(t *testing.T, scorer model.Scorer, cfg Config) *Predictor {
	t.Helper()
	p, err := New(scorer, cfg, nil, nil)
	require.NoError(t, err)
	return p
}

func TestPredictOneSampleRecord(t *testing.T) {
	t.Parallel()

	p := newPredictor(t, modeltest.SampleArtifact(), Config{})
	pred, err := p.PredictOne(context.Background(), modeltest.SampleRecord())
	require.NoError(t, err)
	require.Equal(t, modeltest.SampleSalary, pred.Salary.StringFixed(2))
	require.Equal(t, "USD", pred.Currency)
	require.Equal(t, "monthly", pred.Period)
	require.NotEmpty(t, pred.ID)
	require.InDelta(t, 5426.6667, pred.Raw, 1e-3)
}

func TestPredictOneClampsNegativeScores(t *testing.T) {
	t.Parallel()

	artifact, err := model.FromBundle(modeltest.NegativeBundle())
	require.NoError(t, err)
	p := newPredictor(t, artifact, Config{})

	pred, err := p.PredictOne(context.Background(), modeltest.SampleRecord())
	require.NoError(t, err)
	require.True(t, pred.Salary.IsZero())
	require.Equal(t, 0.0, pred.Raw)
}

func TestPredictOneErrors(t *testing.T) {
	t.Parallel()

	p := newPredictor(t, modeltest.SampleArtifact(), Config{})

	_, err := p.PredictOne(context.Background(), map[string]any{})
	var missing *features.MissingFieldError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, features.FieldIndustry, missing.Field)

	rec := modeltest.SampleRecord()
	rec[features.FieldJobQuals] = 0.0
	_, err = p.PredictOne(context.Background(), rec)
	var arith *features.ArithmeticError
	require.True(t, errors.As(err, &arith))

	_, err = p.PredictOne(context.Background(), "not an object")
	var invalid *features.InvalidFieldError
	require.True(t, errors.As(err, &invalid))
}

func TestPredictOneWrapsScorerErrors(t *testing.T) {
	t.Parallel()

	for name, scorer := range map[string]fixedScorer{
		"plain error": {err: errors.New("model exploded")},
		"infinite":    {value: math.Inf(1)},
		"nan":         {value: math.NaN()},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := newPredictor(t, scorer, Config{CacheSize: 0})
			_, err := p.PredictOne(context.Background(), modeltest.SampleRecord())
			var scoring *model.ScoringError
			require.True(t, errors.As(err, &scoring), "got %v", err)
		})
	}
}

func TestRoundCents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{in: 5426.666666, want: "5426.67"},
		{in: 0.125, want: "0.12"},
		{in: 0.375, want: "0.38"},
		// 2.675 is stored as 2.67499999...
		{in: 2.675, want: "2.67"},
		{in: -3, want: "0"},
		{in: math.Copysign(0, -1), want: "0"},
		{in: 1e-9, want: "0"},
		{in: 1234.5, want: "1234.5"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, RoundCents(tt.in).String(), "RoundCents(%v)", tt.in)
	}
}

func TestPredictBatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	p := newPredictor(t, modeltest.SampleArtifact(), Config{})
	records := []any{modeltest.SampleRecord(), map[string]any{}}
	got := p.PredictBatch(context.Background(), records)

	require.Len(t, got, 2)
	require.NoError(t, got[0].Err)
	require.Equal(t, modeltest.SampleSalary, got[0].Prediction.Salary.StringFixed(2))
	require.Error(t, got[1].Err)
	require.Equal(t, 1, got[1].Index)
	require.Equal(t, records[1], got[1].Record)
}

func TestPredictBatchPreservesOrderConcurrently(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{inner: modeltest.SampleArtifact()}
	p := newPredictor(t, scorer, Config{BatchConcurrency: 8, CacheSize: 0})

	records := make([]any, 64)
	for i := range records {
		rec := modeltest.SampleRecord()
		if i%3 == 0 {
			rec[features.FieldHighestQual] = 0.0
		} else {
			rec[features.FieldYrsQual] = float64(i)
		}
		records[i] = rec
	}

	got := p.PredictBatch(context.Background(), records)
	require.Len(t, got, len(records))
	for i, out := range got {
		require.Equal(t, i, out.Index)
		if i%3 == 0 {
			var arith *features.ArithmeticError
			require.True(t, errors.As(out.Err, &arith), "record %d: %v", i, out.Err)
			continue
		}
		require.NoError(t, out.Err)
		again, err := p.PredictOne(context.Background(), records[i])
		require.NoError(t, err)
		require.True(t, again.Salary.Equal(out.Prediction.Salary), "record %d", i)
	}
}

func TestPredictBatchEmpty(t *testing.T) {
	t.Parallel()

	p := newPredictor(t, modeltest.SampleArtifact(), Config{})
	require.Empty(t, p.PredictBatch(context.Background(), nil))
}

func TestCacheSkipsRepeatScoring(t *testing.T) {
	t.Parallel()

	scorer := &countingScorer{inner: modeltest.SampleArtifact()}
	p := newPredictor(t, scorer, Config{CacheSize: 8})

	first, err := p.PredictOne(context.Background(), modeltest.SampleRecord())
	require.NoError(t, err)
	second, err := p.PredictOne(context.Background(), modeltest.SampleRecord())
	require.NoError(t, err)

	require.Equal(t, int64(1), scorer.calls.Load())
	require.True(t, first.Salary.Equal(second.Salary))
	require.NotEqual(t, first.ID, second.ID)

	uncached := &countingScorer{inner: modeltest.SampleArtifact()}
	p = newPredictor(t, uncached, Config{CacheSize: 0})
	for i := 0; i < 2; i++ {
		_, err := p.PredictOne(context.Background(), modeltest.SampleRecord())
		require.NoError(t, err)
	}
	require.Equal(t, int64(2), uncached.calls.Load())
}

func TestStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, metrics.StatusSuccess, Status(nil))
	require.Equal(t, metrics.StatusMissingField, Status(&features.MissingFieldError{Field: "sex"}))
	require.Equal(t, metrics.StatusInvalidField, Status(&features.InvalidFieldError{Field: "sex"}))
	require.Equal(t, metrics.StatusArithmetic, Status(&features.ArithmeticError{}))
	require.Equal(t, metrics.StatusScoring, Status(&model.ScoringError{Err: errors.New("x")}))
}

func TestNewRequiresScorer(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{}, nil, nil)
	require.Error(t, err)
}

func TestPredictOneCarriesValidatedInput(t *testing.T) {
	t.Parallel()

	p, err := New(modeltest.SampleArtifact(), Config{CacheSize: 4}, nil, nil)
	require.NoError(t, err)

	record := modeltest.SampleRecord()
	record["notes"] = "ignored"
	for range 2 {
		pred, err := p.PredictOne(context.Background(), record)
		require.NoError(t, err)
		require.Equal(t, "J", pred.Input.Industry)
		require.NotContains(t, pred.Input.Map(), "notes")
		require.Len(t, pred.Input.Map(), len(features.RequiredFields))
	}
}
