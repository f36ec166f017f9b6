// Package predict applies a fitted scaler and trained forest to new records.
// The engine holds the immutable artifact pair from one training run and is
// safe for unlimited concurrent use; every call is a pure computation.
package predict

import (
	"errors"
	"fmt"
	"math"

	"heartguard/internal/model"
	"heartguard/internal/schema"
	"heartguard/internal/transform"
)

// Bucket names returned by Bucketize.
const (
	BucketLow      = "Low"
	BucketModerate = "Moderate"
	BucketHigh     = "High"
)

// Engine pairs one training run's scaler and classifier. The pair must come
// from the same run; mixing artifacts from different runs silently skews
// every score.
type Engine struct {
	scaler *transform.Scaler
	forest *model.Forest
}

// NewEngine validates and wraps the artifact pair.
func NewEngine(scaler *transform.Scaler, forest *model.Forest) (*Engine, error) {
	if scaler == nil {
		return nil, transform.ErrScalerRequired
	}
	if forest == nil {
		return nil, errors.New("predict: trained classifier required")
	}
	return &Engine{scaler: scaler, forest: forest}, nil
}

// Result is one scored record.
type Result struct {
	Probability float64 `json:"probability"`
	Bucket      string  `json:"risk_bucket"`
}

// Predict scores a single raw record. Keys may use any accepted column
// variant; any subset of the canonical fields may be omitted.
func (e *Engine) Predict(record map[string]any, low, high float64) (Result, error) {
	out, err := e.PredictBatch([]map[string]any{record}, low, high)
	if err != nil {
		return Result{}, err
	}
	return out[0], nil
}

// PredictBatch scores records in order; the output has exactly one result
// per input row.
func (e *Engine) PredictBatch(records []map[string]any, low, high float64) ([]Result, error) {
	rows := make([]transform.Record, len(records))
	for i, rec := range records {
		resolved := schema.ResolveRecord(rec)
		delete(resolved, schema.Target)
		rows[i] = resolved
	}

	X, err := transform.Transform(rows, e.scaler)
	if err != nil {
		return nil, err
	}

	probs := e.forest.PredictProba(X)
	out := make([]Result, len(probs))
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("predict: classifier produced invalid probability %v for row %d", p, i)
		}
		out[i] = Result{Probability: p, Bucket: Bucketize(p, low, high)}
	}
	return out, nil
}

// Bucketize maps a probability to a risk bucket. Both boundary values
// belong to Moderate: p < low is Low, low <= p <= high is Moderate, p > high
// is High. Threshold ordering (low < high) is the caller's responsibility;
// the function is total either way.
func Bucketize(p, low, high float64) string {
	switch {
	case p < low:
		return BucketLow
	case p > high:
		return BucketHigh
	default:
		return BucketModerate
	}
}
