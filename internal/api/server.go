package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/salary-predictor/internal/config"
	"github.com/JakeFAU/salary-predictor/internal/events"
	"github.com/JakeFAU/salary-predictor/internal/history"
	"github.com/JakeFAU/salary-predictor/internal/metrics"
	"github.com/JakeFAU/salary-predictor/internal/model"
	"github.com/JakeFAU/salary-predictor/internal/predict"
	"github.com/JakeFAU/salary-predictor/internal/ratelimit"
)

// maxBodyBytes bounds request bodies on the prediction routes.
const maxBodyBytes = 10 << 20

// ModelInfo exposes the loaded model's metadata.
type ModelInfo interface {
	Metadata() model.Metadata
}

// Predictor scores decoded JSON records.
type Predictor interface {
	PredictOne(ctx context.Context, record any) (predict.Prediction, error)
	PredictBatch(ctx context.Context, records []any) []predict.Outcome
}

// Clock supplies timestamps for history entries and events.
type Clock interface {
	Now() time.Time
}

// IDGenerator issues request IDs.
type IDGenerator interface {
	MustNewID() string
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Model     ModelInfo
	Predictor Predictor
	History   history.Store
	Events    events.Publisher
	Clock     Clock
	IDs       IDGenerator
}

// Server wires HTTP handlers to the predictor and stores.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	s := &Server{deps: deps, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(deps.IDs))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(cfg.RequestTimeout()))
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		if cfg.Server.RateLimitRPS > 0 {
			r.Use(rateLimitMiddleware(ratelimit.New(ratelimit.Config{
				RPS:   cfg.Server.RateLimitRPS,
				Burst: cfg.Server.RateLimitBurst,
			}), cfg.Auth.Enabled))
		}
		r.Get("/", s.home)
		r.Get("/model_info", s.modelInfo)
		r.Post("/predict", s.predict)
		r.Post("/batch_predict", s.batchPredict)
		r.Get("/history", s.history)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.History != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.History.Ping(ctx); err != nil {
			s.logger.Warn("history store not ready", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "history store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
