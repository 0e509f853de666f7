// Package predict turns raw job profiles into salary predictions.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/salary-predictor/internal/features"
	"github.com/JakeFAU/salary-predictor/internal/id/uuid"
	"github.com/JakeFAU/salary-predictor/internal/metrics"
	"github.com/JakeFAU/salary-predictor/internal/model"
)

// Fixed response labels.
const (
	Currency = "USD"
	Period   = "monthly"
)

// DefaultCacheSize is the number of distinct records remembered when no
// size is configured.
const DefaultCacheSize = 1024

var tracer = otel.Tracer("github.com/JakeFAU/salary-predictor/internal/predict")

// Prediction is one scored record.
type Prediction struct {
	ID string
	// Salary is the clamped score rounded half-to-even to cents.
	Salary   decimal.Decimal
	Raw      float64
	Currency string
	Period   string
	// Input holds only the validated fields of the scored record.
	Input features.RawRecord
}

// Outcome is the result for one batch entry. Exactly one of Prediction and
// Err is meaningful.
type Outcome struct {
	Index      int
	Record     any
	Prediction Prediction
	Err        error
}

// IDGenerator issues prediction IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Config tunes the predictor.
type Config struct {
	// CacheSize bounds the prediction cache. Zero disables caching; a
	// negative value selects DefaultCacheSize.
	CacheSize int
	// BatchConcurrency bounds how many batch records are scored at once.
	// Values below 1 mean sequential.
	BatchConcurrency int
}

type cached struct {
	salary decimal.Decimal
	raw    float64
}

// Predictor scores records against a single immutable model. It is safe for
// concurrent use.
type Predictor struct {
	scorer      model.Scorer
	ids         IDGenerator
	cache       *lru.Cache[features.RawRecord, cached]
	concurrency int
	logger      *zap.Logger
}

// New creates a Predictor. ids and logger may be nil.
func New(scorer model.Scorer, cfg Config, ids IDGenerator, logger *zap.Logger) (*Predictor, error) {
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if ids == nil {
		ids = uuid.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{
		scorer:      scorer,
		ids:         ids,
		concurrency: max(cfg.BatchConcurrency, 1),
		logger:      logger,
	}
	size := cfg.CacheSize
	if size < 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		c, err := lru.New[features.RawRecord, cached](size)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = c
	}
	return p, nil
}

// PredictOne validates, transforms and scores a single decoded JSON value.
func (p *Predictor) PredictOne(ctx context.Context, record any) (Prediction, error) {
	return p.predict(ctx, record, metrics.ModeSingle)
}

// PredictBatch scores every record independently. The result has the same
// length and order as records; a failing record never affects the others.
func (p *Predictor) PredictBatch(ctx context.Context, records []any) []Outcome {
	ctx, span := tracer.Start(ctx, "predict.batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(records)))
	metrics.ObserveBatchSize(len(records))

	outcomes := make([]Outcome, len(records))
	score := func(i int) {
		pred, err := p.predict(ctx, records[i], metrics.ModeBatch)
		outcomes[i] = Outcome{Index: i, Record: records[i], Prediction: pred, Err: err}
	}

	if p.concurrency == 1 {
		for i := range records {
			score(i)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range records {
		g.Go(func() error {
			score(i)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (p *Predictor) predict(ctx context.Context, record any, mode string) (Prediction, error) {
	ctx, span := tracer.Start(ctx, "predict.record")
	defer span.End()

	pred, err := p.score(ctx, record)
	status := Status(err)
	span.SetAttributes(attribute.String("prediction.status", status))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.logger.Debug("prediction failed", zap.String("mode", mode), zap.String("status", status), zap.Error(err))
		metrics.ObservePrediction(mode, status, 0)
		return Prediction{}, err
	}
	metrics.ObservePrediction(mode, status, pred.Raw)
	return pred, nil
}

func (p *Predictor) score(ctx context.Context, record any) (Prediction, error) {
	raw, err := features.ParseValue(record)
	if err != nil {
		return Prediction{}, err
	}

	var result cached
	hit := false
	if p.cache != nil {
		result, hit = p.cache.Get(raw)
		metrics.ObserveCacheLookup(hit)
	}
	if !hit {
		derived, err := features.Transform(raw)
		if err != nil {
			return Prediction{}, err
		}
		score, err := p.scorer.Score(ctx, derived)
		if err != nil {
			var scoring *model.ScoringError
			if !errors.As(err, &scoring) {
				err = &model.ScoringError{Err: err}
			}
			return Prediction{}, err
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return Prediction{}, &model.ScoringError{Err: fmt.Errorf("model returned %v", score)}
		}
		result = cached{salary: RoundCents(score), raw: math.Max(0, score)}
		if p.cache != nil {
			p.cache.Add(raw, result)
		}
	}

	id, err := p.ids.NewID()
	if err != nil {
		return Prediction{}, fmt.Errorf("assign prediction id: %w", err)
	}
	return Prediction{
		ID:       id,
		Salary:   result.salary,
		Raw:      result.raw,
		Currency: Currency,
		Period:   Period,
		Input:    raw,
	}, nil
}

// RoundCents clamps score at zero and rounds it to two decimal places,
// resolving exact ties to even on the binary value of score.
func RoundCents(score float64) decimal.Decimal {
	v := math.Max(0, score)
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', 2, 64))
}

// Status classifies a prediction error into a metrics label.
func Status(err error) string {
	var (
		missing    *features.MissingFieldError
		invalid    *features.InvalidFieldError
		arithmetic *features.ArithmeticError
	)
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.As(err, &missing):
		return metrics.StatusMissingField
	case errors.As(err, &invalid):
		return metrics.StatusInvalidField
	case errors.As(err, &arithmetic):
		return metrics.StatusArithmetic
	default:
		return metrics.StatusScoring
	}
}
