// Package api hosts the HTTP server, middleware, and JSON handlers of the
// salary prediction service. Routes:
//   - GET / and GET /model_info describe the loaded model.
//   - POST /predict scores one job profile; POST /batch_predict scores many,
//     reporting a per-record outcome.
//   - GET /history lists recent single predictions.
//   - GET /healthz, /readyz for probes and GET /metrics for Prometheus.
package api
