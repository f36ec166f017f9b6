// Package serve exposes a trained model over HTTP: single and batch
// prediction endpoints, health and model info, Prometheus metrics, and a
// WebSocket feed that broadcasts every scored prediction to subscribers.
package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"heartguard/internal/artifacts"
	"heartguard/internal/metrics"
	"heartguard/internal/predict"
)

// Config carries the serving parameters.
type Config struct {
	Port          int
	LowThreshold  float64
	HighThreshold float64
}

// Server serves predictions from one immutable (scaler, classifier) pair
// obtained at startup. Requests share the pair read-only; no locking is
// needed on the prediction path.
type Server struct {
	engine  *predict.Engine
	run     *artifacts.Run
	cfg     Config
	metrics *metrics.Metrics
	feed    *feed
	httpSrv *http.Server
}

// New wires the server. The run must be a complete artifact triple.
func New(run *artifacts.Run, cfg Config, m *metrics.Metrics) (*Server, error) {
	if cfg.LowThreshold >= cfg.HighThreshold {
		return nil, fmt.Errorf("serve: low threshold %v must be below high threshold %v", cfg.LowThreshold, cfg.HighThreshold)
	}
	engine, err := predict.NewEngine(run.Scaler, run.Forest)
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:  engine,
		run:     run,
		cfg:     cfg,
		metrics: m,
		feed:    newFeed(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/predict/batch", s.handlePredictBatch)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.HandleFunc("/ws", s.feed.handleSubscribe)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if m != nil && !run.SavedAt.IsZero() {
		m.ObserveModel(time.Since(run.SavedAt).Seconds(), run.Metrics.Accuracy, run.Metrics.ROCAUC)
	}
	return s, nil
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.feed.start()
	log.Info().Str("addr", s.httpSrv.Addr).Msg("starting prediction server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the feed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.feed.stop()
	return s.httpSrv.Shutdown(ctx)
}

type predictRequest struct {
	Record map[string]any `json:"record"`
	// Optional per-request threshold override; both must be present and
	// ordered, otherwise the server defaults apply.
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

type predictResponse struct {
	Probability float64   `json:"probability"`
	Bucket      string    `json:"risk_bucket"`
	LatencyMS   float64   `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

type batchRequest struct {
	Records []map[string]any `json:"records"`
	Low     *float64         `json:"low,omitempty"`
	High    *float64         `json:"high,omitempty"`
}

type batchResponse struct {
	Results   []predict.Result `json:"results"`
	LatencyMS float64          `json:"latency_ms"`
}

func (s *Server) thresholds(low, high *float64) (float64, float64, error) {
	if low == nil && high == nil {
		return s.cfg.LowThreshold, s.cfg.HighThreshold, nil
	}
	if low == nil || high == nil {
		return 0, 0, fmt.Errorf("both low and high thresholds must be supplied")
	}
	if *low < 0 || *high > 1 || *low >= *high {
		return 0, 0, fmt.Errorf("thresholds must satisfy 0 <= low < high <= 1")
	}
	return *low, *high, nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Record) == 0 {
		http.Error(w, "record cannot be empty", http.StatusBadRequest)
		return
	}
	low, high, err := s.thresholds(req.Low, req.High)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.engine.Predict(req.Record, low, high)
	if err != nil {
		s.observeFailure()
		log.Error().Err(err).Msg("prediction failed")
		http.Error(w, fmt.Sprintf("prediction failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.observeSuccess(res.Probability, time.Since(start))
	s.feed.publish(res)

	writeJSON(w, predictResponse{
		Probability: res.Probability,
		Bucket:      res.Bucket,
		LatencyMS:   float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:   time.Now().UTC(),
	})
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		http.Error(w, "records cannot be empty", http.StatusBadRequest)
		return
	}
	low, high, err := s.thresholds(req.Low, req.High)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := s.engine.PredictBatch(req.Records, low, high)
	if err != nil {
		s.observeFailure()
		log.Error().Err(err).Int("rows", len(req.Records)).Msg("batch prediction failed")
		http.Error(w, fmt.Sprintf("prediction failed: %v", err), http.StatusInternalServerError)
		return
	}
	for _, res := range results {
		s.observeSuccess(res.Probability, 0)
		s.feed.publish(res)
	}

	writeJSON(w, batchResponse{
		Results:   results,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"saved_at": s.run.SavedAt,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"metrics":        s.run.Metrics,
		"saved_at":       s.run.SavedAt,
		"low_threshold":  s.cfg.LowThreshold,
		"high_threshold": s.cfg.HighThreshold,
	})
}

func (s *Server) observeSuccess(score float64, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.Predictions.Inc()
	s.metrics.PredictionScores.Observe(score)
	if elapsed > 0 {
		s.metrics.PredictionLatency.Observe(elapsed.Seconds())
	}
}

func (s *Server) observeFailure() {
	if s.metrics != nil {
		s.metrics.PredictionFailures.Inc()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}
