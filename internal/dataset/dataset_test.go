package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead_VariantHeaders(t *testing.T) {
	csv := strings.Join([]string{
		"Age,Gender,RestingBP,cholesterol,fasting_bs,MaxHR,exercise_angina,st_depression,num",
		"54,Male,130,246,0,150,0,1.0,0",
		"61,Female,140,289,1,103,1,1.4,1",
	}, "\n")

	table, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(table.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(table.Records))
	}
	if !table.Labeled {
		t.Fatal("num column should resolve to target")
	}
	if table.Labels[0] != 0 || table.Labels[1] != 1 {
		t.Errorf("labels = %v, want [0 1]", table.Labels)
	}

	rec := table.Records[0]
	for _, k := range []string{"age", "sex", "trestbps", "chol", "fbs", "thalach", "exang", "oldpeak"} {
		if _, ok := rec[k]; !ok {
			t.Errorf("record missing canonical key %q: %v", k, rec)
		}
	}
	if _, ok := rec["target"]; ok {
		t.Error("target must not leak into feature records")
	}
}

func TestRead_EmptyCellsAreMissing(t *testing.T) {
	csv := "age,chol\n54,\n,240\n"
	table, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Records[0]["chol"] != nil {
		t.Errorf("empty cell should be nil, got %v", table.Records[0]["chol"])
	}
	if table.Records[1]["age"] != nil {
		t.Errorf("empty cell should be nil, got %v", table.Records[1]["age"])
	}
}

func TestRead_UnknownColumnsDropped(t *testing.T) {
	csv := "age,patient_id,notes\n54,abc123,hello\n"
	table, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	rec := table.Records[0]
	if len(rec) != 1 {
		t.Errorf("unknown columns should drop, got %v", rec)
	}
}

func TestRead_BadLabel(t *testing.T) {
	for _, csv := range []string{
		"age,target\n54,2\n",
		"age,target\n54,positive\n",
	} {
		_, err := Read(strings.NewReader(csv))
		if err == nil || !errors.Is(err, ErrBadLabel) {
			t.Errorf("csv %q: got %v, want ErrBadLabel", csv, err)
		}
	}
}

func TestLoadTraining_NoTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unlabeled.csv")
	if err := os.WriteFile(path, []byte("age,chol\n54,246\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadTraining(path)
	if !errors.Is(err, ErrNoTarget) {
		t.Errorf("got %v, want ErrNoTarget", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
