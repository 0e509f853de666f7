package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/salary-predictor/internal/events"
	"github.com/JakeFAU/salary-predictor/internal/history"
	"github.com/JakeFAU/salary-predictor/internal/metrics"
	"github.com/JakeFAU/salary-predictor/internal/predict"
)

// HeaderUserID optionally attributes a prediction to a user for history.
const HeaderUserID = "X-User-ID"

const maxUserIDLength = 128

var errEmptyBody = errors.New("empty body")

type predictionResponse struct {
	PredictedSalary json.Number `json:"predicted_salary"`
	Currency        string      `json:"currency"`
	Period          string      `json:"period"`
	PredictionID    string      `json:"prediction_id"`
}

type batchResult struct {
	Record          any         `json:"record"`
	PredictedSalary json.Number `json:"predicted_salary,omitempty"`
	Currency        string      `json:"currency,omitempty"`
	Period          string      `json:"period,omitempty"`
	Error           string      `json:"error,omitempty"`
	Status          string      `json:"status"`
}

type historyItem struct {
	PredictionID    string         `json:"prediction_id"`
	UserID          string         `json:"user_id,omitempty"`
	Record          map[string]any `json:"record"`
	PredictedSalary json.Number    `json:"predicted_salary"`
	Currency        string         `json:"currency"`
	Period          string         `json:"period"`
	ModelName       string         `json:"model_name"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	meta := s.deps.Model.Metadata()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Salary Prediction API",
		"model":       meta.ModelName,
		"performance": meta.PerformanceMetrics,
		"status":      "API is running",
	})
}

func (s *Server) modelInfo(w http.ResponseWriter, _ *http.Request) {
	meta := s.deps.Model.Metadata()
	writeJSON(w, http.StatusOK, map[string]any{
		"model_name":           meta.ModelName,
		"training_date":        meta.TrainingDate,
		"performance_metrics":  meta.PerformanceMetrics,
		"feature_names":        meta.FeatureNames,
		"categorical_features": meta.CategoricalFeatures,
		"numerical_features":   meta.NumericalFeatures,
	})
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(w, r)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, statusForBodyError(err), err.Error())
		return
	}
	if isEmptyPayload(payload) {
		writeError(w, http.StatusBadRequest, "No input data provided")
		return
	}

	pred, err := s.deps.Predictor.PredictOne(r.Context(), payload)
	if err != nil {
		s.logger.Info("prediction failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("status", predict.Status(err)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordSideEffects(r, pred)

	writeJSON(w, http.StatusOK, predictionResponse{
		PredictedSalary: salaryNumber(pred),
		Currency:        pred.Currency,
		Period:          pred.Period,
		PredictionID:    pred.ID,
	})
}

// recordSideEffects stores the prediction in history and publishes an event.
// Both are best effort: failures are logged and counted, never returned.
func (s *Server) recordSideEffects(r *http.Request, pred predict.Prediction) {
	ctx := r.Context()
	// A canceled request has already been answered with a timeout.
	if ctx.Err() != nil {
		return
	}
	userID := userIDFromRequest(r)
	modelName := s.deps.Model.Metadata().ModelName
	now := time.Now().UTC()
	if s.deps.Clock != nil {
		now = s.deps.Clock.Now()
	}
	logger := s.logger.With(
		zap.String("request_id", RequestIDFromContext(ctx)),
		zap.String("prediction_id", pred.ID),
	)

	if s.deps.History != nil {
		err := s.deps.History.Record(ctx, history.Entry{
			ID:        pred.ID,
			UserID:    userID,
			Record:    pred.Input.Map(),
			Salary:    pred.Salary,
			Currency:  pred.Currency,
			Period:    pred.Period,
			ModelName: modelName,
			CreatedAt: now,
		})
		if err != nil {
			metrics.ObserveSideEffectFailure("history")
			logger.Warn("record prediction history failed", zap.Error(err))
		}
	}

	event := events.PredictionCreated{
		Type:            events.TypePredictionCreated,
		PredictionID:    pred.ID,
		RequestID:       RequestIDFromContext(ctx),
		UserID:          userID,
		ModelName:       modelName,
		PredictedSalary: salaryNumber(pred),
		Currency:        pred.Currency,
		Period:          pred.Period,
		CreatedAt:       now,
	}
	if _, err := s.deps.Events.Publish(ctx, s.cfg.Events.Topic, event); err != nil {
		metrics.ObserveSideEffectFailure("events")
		logger.Warn("publish prediction event failed", zap.Error(err))
	}
}

func (s *Server) batchPredict(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(w, r)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, statusForBodyError(err), err.Error())
		return
	}
	envelope, ok := payload.(map[string]any)
	if !ok || envelope["records"] == nil {
		writeError(w, http.StatusBadRequest, "No records provided")
		return
	}
	records, ok := envelope["records"].([]any)
	if !ok {
		writeError(w, http.StatusBadRequest, "records must be a list")
		return
	}
	if limit := s.cfg.Predict.MaxBatchSize; limit > 0 && len(records) > limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch of %d records exceeds the limit of %d", len(records), limit))
		return
	}

	outcomes := s.deps.Predictor.PredictBatch(r.Context(), records)
	results := make([]batchResult, len(outcomes))
	failed := 0
	for i, out := range outcomes {
		if out.Err != nil {
			failed++
			results[i] = batchResult{Record: out.Record, Error: out.Err.Error(), Status: "error"}
			continue
		}
		results[i] = batchResult{
			Record:          out.Record,
			PredictedSalary: salaryNumber(out.Prediction),
			Currency:        out.Prediction.Currency,
			Period:          out.Prediction.Period,
			Status:          "success",
		}
	}
	s.logger.Debug("batch scored",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Int("records", len(records)),
		zap.Int("failed", failed),
	)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = history.NormalizeLimit(n)
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))

	entries, err := s.deps.History.Recent(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("list history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	items := make([]historyItem, len(entries))
	for i, e := range entries {
		items[i] = historyItem{
			PredictionID:    e.ID,
			UserID:          e.UserID,
			Record:          e.Record,
			PredictedSalary: json.Number(e.Salary.String()),
			Currency:        e.Currency,
			Period:          e.Period,
			ModelName:       e.ModelName,
			CreatedAt:       e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": items, "count": len(items)})
}

// decodeBody reads a JSON body of any shape. An empty body yields errEmptyBody.
func decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &invalidJSONError{err: err}
	}
	return payload, nil
}

type invalidJSONError struct {
	err error
}

func (e *invalidJSONError) Error() string {
	return fmt.Sprintf("invalid JSON: %v", e.err)
}

func (e *invalidJSONError) Unwrap() error {
	return e.err
}

func statusForBodyError(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// isEmptyPayload reports the JSON values that count as "no input": null,
// false, zero, empty strings, empty objects and empty arrays.
func isEmptyPayload(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// userIDFromRequest returns the X-User-ID header as valid UTF-8, cut to at
// most maxUserIDLength bytes on a rune boundary.
func userIDFromRequest(r *http.Request) string {
	id := strings.ToValidUTF8(strings.TrimSpace(r.Header.Get(HeaderUserID)), "")
	if len(id) <= maxUserIDLength {
		return id
	}
	n := maxUserIDLength
	for n > 0 && !utf8.RuneStart(id[n]) {
		n--
	}
	return id[:n]
}

func salaryNumber(p predict.Prediction) json.Number {
	return json.Number(p.Salary.String())
}
