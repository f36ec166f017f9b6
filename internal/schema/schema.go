// Package schema defines the canonical clinical feature schema and the
// column resolver that maps vendor-specific header variants onto it.
//
// Every record entering the pipeline passes through this package first so
// that downstream components only ever see canonical names. The model was
// fit on the canonical column order, so inference must reproduce it exactly.
package schema

import "strings"

// Canonical feature names, in model order. Order is significant: the scaler
// and classifier are fit on columns in exactly this sequence.
const (
	Age      = "age"
	Sex      = "sex"
	Trestbps = "trestbps" // resting blood pressure (mmHg)
	Chol     = "chol"     // serum cholesterol (mg/dl)
	FBS      = "fbs"      // fasting blood sugar > 120 mg/dl flag
	Thalach  = "thalach"  // maximum heart rate achieved
	Exang    = "exang"    // exercise induced angina flag
	Oldpeak  = "oldpeak"  // ST depression induced by exercise
)

// Target is the canonical label column name for training data.
const Target = "target"

// Features is the canonical schema in model order.
var Features = []string{Age, Sex, Trestbps, Chol, FBS, Thalach, Exang, Oldpeak}

// BinaryFeatures are the canonical fields normalized to {0,1} during
// transformation.
var BinaryFeatures = []string{Sex, FBS, Exang}

// alias maps one canonical name to its accepted header variants in priority
// order. Matching is case-insensitive exact match; the first variant found in
// the input wins.
type alias struct {
	canonical string
	variants  []string
}

// aliasTable covers the header spellings seen across UCI Heart dataset
// variants. The canonical name itself is always the first variant so that
// already-canonical input resolves to itself.
var aliasTable = []alias{
	{Age, []string{"age"}},
	{Sex, []string{"sex", "gender"}},
	{Trestbps, []string{"trestbps", "restingbp", "trestbp", "restbp", "resting_blood_pressure"}},
	{Chol, []string{"chol", "serum_chol", "cholesterol"}},
	{FBS, []string{"fbs", "fasting_blood_sugar", "fasting_bs", "fastingbs"}},
	{Thalach, []string{"thalach", "max_heart_rate", "thalachh", "max_heart_rate_achieved", "maxhr"}},
	{Exang, []string{"exang", "exercise_angina", "exercise_induced_angina"}},
	{Oldpeak, []string{"oldpeak", "st_depression", "st_depress"}},
	{Target, []string{"target", "target_class", "heart_disease", "disease", "output", "hd", "num", "heartdisease"}},
}

// variantIndex is built once from aliasTable: lowercased variant -> canonical.
var variantIndex = func() map[string]string {
	idx := make(map[string]string)
	for _, a := range aliasTable {
		for _, v := range a.variants {
			key := strings.ToLower(v)
			if _, ok := idx[key]; !ok {
				idx[key] = a.canonical
			}
		}
	}
	return idx
}()

// ResolveName maps a raw column name to its canonical name. The second
// return reports whether the name matched any known variant.
func ResolveName(raw string) (string, bool) {
	c, ok := variantIndex[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// IsFeature reports whether name is one of the eight canonical features.
func IsFeature(name string) bool {
	for _, f := range Features {
		if f == name {
			return true
		}
	}
	return false
}

// IsBinary reports whether name is one of the canonical binary fields.
func IsBinary(name string) bool {
	for _, f := range BinaryFeatures {
		if f == name {
			return true
		}
	}
	return false
}

// ResolveRecord returns a copy of rec with keys restricted to canonical
// names (features plus target). Unresolved columns are dropped; canonical
// fields absent from rec stay absent. The function is total: it never fails
// regardless of input shape, and resolving an already-canonical record is a
// no-op. When several raw columns resolve to the same canonical name, the
// first one encountered in aliasTable priority order wins.
func ResolveRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for _, a := range aliasTable {
		for _, v := range a.variants {
			if val, ok := lookupFold(rec, v); ok {
				out[a.canonical] = val
				break
			}
		}
	}
	return out
}

// lookupFold finds a key in rec case-insensitively.
func lookupFold(rec map[string]any, name string) (any, bool) {
	if v, ok := rec[name]; ok {
		return v, true
	}
	for k, v := range rec {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return v, true
		}
	}
	return nil, false
}

// ResolveHeader maps a tabular header row to canonical names. Unresolvable
// columns yield ok=false and are ignored by the dataset loader. If two
// header columns resolve to the same canonical name, only the first keeps
// it; later duplicates are marked unresolved.
func ResolveHeader(header []string) []ResolvedColumn {
	out := make([]ResolvedColumn, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		c, ok := ResolveName(h)
		if ok && seen[c] {
			ok = false
		}
		if ok {
			seen[c] = true
		}
		out[i] = ResolvedColumn{Raw: h, Canonical: c, OK: ok}
	}
	return out
}

// ResolvedColumn is one header cell after resolution.
type ResolvedColumn struct {
	Raw       string
	Canonical string
	OK        bool
}
