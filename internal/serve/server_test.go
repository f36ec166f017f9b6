package serve

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartguard/internal/artifacts"
	"heartguard/internal/metrics"
	"heartguard/internal/model"
	"heartguard/internal/train"
	"heartguard/internal/transform"
)

func testRun(t *testing.T) *artifacts.Run {
	t.Helper()

	rows := make([]transform.Record, 40)
	labels := make([]int, 40)
	for i := range rows {
		label := i % 2
		thalach := 175.0
		if label == 1 {
			thalach = 115.0
		}
		rows[i] = transform.Record{
			"age":     45.0 + float64(i%20),
			"thalach": thalach,
			"chol":    220.0 + float64(i%40),
		}
		labels[i] = label
	}
	X, sc, err := transform.FitTransform(rows)
	require.NoError(t, err)

	forest := model.NewForest(model.WithTrees(10), model.WithSeed(42))
	require.NoError(t, forest.Fit(X, labels))

	return &artifacts.Run{
		Scaler:  sc,
		Forest:  forest,
		Metrics: train.Snapshot{Accuracy: 0.9, ROCAUC: 0.95},
		SavedAt: time.Now().Add(-time.Hour),
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s, err := New(testRun(t), Config{Port: 0, LowThreshold: 0.35, HighThreshold: 0.65}, m)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsBadThresholds(t *testing.T) {
	_, err := New(testRun(t), Config{LowThreshold: 0.7, HighThreshold: 0.3}, nil)
	require.Error(t, err)
}

func TestHandlePredict(t *testing.T) {
	s := testServer(t)

	body, _ := json.Marshal(predictRequest{
		Record: map[string]any{"age": 50, "MaxHR": 118, "chol": 240},
	})
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Probability, 0.0)
	assert.LessOrEqual(t, resp.Probability, 1.0)
	assert.Contains(t, []string{"Low", "Moderate", "High"}, resp.Bucket)
}

func TestHandlePredict_MethodNotAllowed(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlePredict_EmptyRecord(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader([]byte(`{"record":{}}`)))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePredict_ThresholdOverride(t *testing.T) {
	s := testServer(t)

	low, high := 0.0, 0.0001
	body, _ := json.Marshal(predictRequest{
		Record: map[string]any{"age": 60, "thalach": 112, "chol": 260},
		Low:    &low, High: &high,
	})
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "High", resp.Bucket, "near-zero high threshold pushes any positive score to High")
}

func TestHandlePredict_HalfThresholdsRejected(t *testing.T) {
	s := testServer(t)

	low := 0.2
	body, _ := json.Marshal(predictRequest{
		Record: map[string]any{"age": 50},
		Low:    &low,
	})
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePredictBatch(t *testing.T) {
	s := testServer(t)

	body, _ := json.Marshal(batchRequest{
		Records: []map[string]any{
			{"age": 45, "thalach": 178, "chol": 220},
			{"age": 60, "thalach": 112, "chol": 250},
			{"age": 52, "chol": 230},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/predict/batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 3, "one result per input row")
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleModelInfo(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/model/info", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Contains(t, info, "metrics")
	assert.EqualValues(t, 0.35, info["low_threshold"])
	assert.EqualValues(t, 0.65, info["high_threshold"])
}
