// Package transform turns canonical records into the numeric matrix the
// classifier consumes. It owns the full normalization chain: missing-value
// imputation, binary-field normalization, categorical encoding and
// standardization. The same chain runs at training and at serving time; the
// only difference is whether the scaler is being fit or applied.
package transform

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"heartguard/internal/schema"
)

var (
	// ErrSchema is returned when a batch being fit contains none of the
	// canonical feature fields.
	ErrSchema = errors.New("transform: no canonical features present in batch")

	// ErrScalerRequired is returned when an apply-mode transform is invoked
	// without a fitted scaler. This is a programming error, never retried.
	ErrScalerRequired = errors.New("transform: fitted scaler required")
)

// Record is a canonical record: canonical feature names mapped to raw cell
// values. Values may be numeric, string, or missing (nil, NaN, or an empty /
// "NA" / "NaN" string).
type Record = map[string]any

// Matrix is row-major numeric data in canonical column order.
type Matrix = [][]float64

// Scaler holds per-feature mean and standard deviation, computed once at
// fit time and immutable afterwards. It is gob-serializable and shared
// read-only by all inference calls.
type Scaler struct {
	Columns []string
	Mean    []float64
	Std     []float64
}

// FitTransform imputes, encodes and standardizes rows, fitting a new Scaler
// on this exact batch. It fails with ErrSchema if none of the eight
// canonical fields is present anywhere in the batch.
func FitTransform(rows []Record) (Matrix, *Scaler, error) {
	cols, err := buildColumns(rows)
	if err != nil {
		return nil, nil, err
	}

	n := len(rows)
	p := len(schema.Features)
	sc := &Scaler{
		Columns: append([]string(nil), schema.Features...),
		Mean:    make([]float64, p),
		Std:     make([]float64, p),
	}
	for j, col := range cols {
		sc.Mean[j] = mean(col)
		sc.Std[j] = std(col, sc.Mean[j])
		if sc.Std[j] == 0 {
			sc.Std[j] = 1
		}
	}

	out := scale(cols, sc, n)
	return out, sc, nil
}

// Transform runs the identical imputation and encoding path as FitTransform
// but standardizes with the supplied scaler's stored mean and std. No
// refitting occurs.
func Transform(rows []Record, sc *Scaler) (Matrix, error) {
	if sc == nil {
		return nil, ErrScalerRequired
	}
	if len(sc.Mean) != len(schema.Features) || len(sc.Std) != len(schema.Features) {
		return nil, fmt.Errorf("transform: scaler has %d features, want %d", len(sc.Mean), len(schema.Features))
	}
	cols, err := buildColumns(rows)
	if err != nil {
		return nil, err
	}
	return scale(cols, sc, len(rows)), nil
}

// buildColumns runs the pre-scaling part of the chain and returns one fully
// numeric column per canonical feature.
func buildColumns(rows []Record) ([][]float64, error) {
	if !anyFeaturePresent(rows) {
		return nil, ErrSchema
	}

	n := len(rows)
	cols := make([][]float64, len(schema.Features))
	for j, name := range schema.Features {
		raw := make([]any, n)
		for i, r := range rows {
			v, ok := r[name]
			if !ok {
				v = nil
			}
			raw[i] = v
		}
		cols[j] = encodeColumn(name, raw)
	}
	return cols, nil
}

func anyFeaturePresent(rows []Record) bool {
	for _, r := range rows {
		for _, f := range schema.Features {
			if _, ok := r[f]; ok {
				return true
			}
		}
	}
	return false
}

// encodeColumn applies, in order: imputation, binary normalization and the
// coercion fallback chain, producing a finite numeric column. Malformed
// values never abort the batch; they are absorbed into the nearest sensible
// default.
func encodeColumn(name string, raw []any) []float64 {
	var filled []any
	if numericColumn(raw) {
		nums := imputeNumeric(raw)
		filled = make([]any, len(nums))
		for i, f := range nums {
			filled[i] = f
		}
	} else {
		// Non-numeric leftover: forward-fill, backward-fill, then zero.
		filled = fillMissing(raw)
	}

	// Binary normalization runs after imputation regardless of column type:
	// a numeric flag column with an out-of-range value still collapses to 0.
	if schema.IsBinary(name) {
		filled = normalizeBinary(name, filled)
	}

	return coerceNumeric(filled)
}

// numericColumn reports whether every present cell is numeric-valued. An
// entirely missing column is not numeric; it falls through the fill chain to
// all zeros so the output stays finite.
func numericColumn(raw []any) bool {
	present := 0
	for _, v := range raw {
		if isMissing(v) {
			continue
		}
		present++
		if _, ok := asFloat(v); !ok {
			return false
		}
	}
	return present > 0
}

// imputeNumeric replaces missing cells with the median of the present cells
// in this batch.
func imputeNumeric(raw []any) []float64 {
	vals := make([]float64, 0, len(raw))
	for _, v := range raw {
		if f, ok := asFloat(v); ok && !isMissing(v) {
			vals = append(vals, f)
		}
	}
	med := median(vals)
	out := make([]float64, len(raw))
	for i, v := range raw {
		if f, ok := asFloat(v); ok && !isMissing(v) {
			out[i] = f
		} else {
			out[i] = med
		}
	}
	return out
}

// fillMissing replaces missing cells via forward-fill, then backward-fill,
// then a zero default, in that priority order.
func fillMissing(raw []any) []any {
	out := append([]any(nil), raw...)
	var last any
	hasLast := false
	for i, v := range out {
		if isMissing(v) {
			if hasLast {
				out[i] = last
			}
		} else {
			last, hasLast = v, true
		}
	}
	var next any
	hasNext := false
	for i := len(out) - 1; i >= 0; i-- {
		if isMissing(out[i]) {
			if hasNext {
				out[i] = next
			} else {
				out[i] = float64(0)
			}
		} else {
			next, hasNext = out[i], true
		}
	}
	return out
}

// normalizeBinary maps sex/fbs/exang cells to {0,1}. Unrecognized sex values
// pass through unchanged and fall into the generic coercion chain below;
// this lenient passthrough matches the historical behavior and is covered by
// tests rather than silently corrected.
func normalizeBinary(name string, raw []any) []any {
	out := make([]any, len(raw))
	for i, v := range raw {
		if name == schema.Sex {
			if b, ok := NormalizeSex(v); ok {
				out[i] = float64(b)
			} else {
				out[i] = v
			}
			continue
		}
		out[i] = float64(NormalizeFlag(v))
	}
	return out
}

// NormalizeSex maps {male, m, "1", 1} to 1 and {female, f, "0", 0} to 0,
// case-insensitively. The second return reports whether the value was
// recognized; unrecognized values are the caller's problem.
func NormalizeSex(v any) (int, bool) {
	if f, ok := asFloat(v); ok {
		switch f {
		case 1:
			return 1, true
		case 0:
			return 0, true
		}
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "male", "m", "1":
			return 1, true
		case "female", "f", "0":
			return 0, true
		}
	}
	return 0, false
}

// NormalizeFlag maps a fasting-blood-sugar or exercise-angina cell to {0,1}.
// Textual "1", "true" or "True" (case-sensitive) and numeric 1 map to 1;
// everything else maps to 0.
func NormalizeFlag(v any) int {
	if f, ok := asFloatStrict(v); ok {
		if f == 1 {
			return 1
		}
		return 0
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	switch s {
	case "1", "true", "True":
		return 1
	}
	return 0
}

// coerceNumeric converts remaining cells to numbers: parseable values are
// coerced, everything else is integer-encoded by first-seen-value order.
func coerceNumeric(raw []any) []float64 {
	allParse := true
	for _, v := range raw {
		if _, ok := asFloat(v); !ok {
			allParse = false
			break
		}
	}
	out := make([]float64, len(raw))
	if allParse {
		for i, v := range raw {
			f, _ := asFloat(v)
			out[i] = f
		}
		return out
	}
	codes := make(map[string]int)
	for i, v := range raw {
		key := fmt.Sprintf("%v", v)
		c, ok := codes[key]
		if !ok {
			c = len(codes)
			codes[key] = c
		}
		out[i] = float64(c)
	}
	return out
}

func scale(cols [][]float64, sc *Scaler, n int) Matrix {
	out := make(Matrix, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = (cols[j][i] - sc.Mean[j]) / sc.Std[j]
		}
		out[i] = row
	}
	return out
}

// isMissing reports whether a cell counts as absent: nil, NaN, or one of
// the conventional missing-value strings.
func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	case string:
		s := strings.TrimSpace(t)
		return s == "" || s == "NA" || s == "NaN" || s == "nan" || s == "null"
	}
	return false
}

// asFloat converts numeric types and numeric strings.
func asFloat(v any) (float64, bool) {
	if f, ok := asFloatStrict(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// asFloatStrict converts only genuine numeric types.
func asFloatStrict(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// std is the population standard deviation, matching the fit-time scaler the
// model was trained with.
func std(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	v := 0.0
	for _, x := range xs {
		d := x - m
		v += d * d
	}
	return math.Sqrt(v / float64(len(xs)))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
