// Package train runs the one-shot training job: resolve and transform the
// labeled dataset, split it stratified, fit the forest, and evaluate on the
// held-out partition. Nothing is persisted until evaluation has succeeded;
// a half-evaluated model never reaches storage.
package train

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"heartguard/internal/model"
	"heartguard/internal/schema"
	"heartguard/internal/transform"
)

// Config carries the training hyperparameters. Zero values fall back to the
// defaults the reference model was fit with.
type Config struct {
	Trees        int
	Seed         int64
	TestFraction float64
}

func (c Config) withDefaults() Config {
	if c.Trees <= 0 {
		c.Trees = 200
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = 0.2
	}
	return c
}

// Result is the output of one training run: the classifier, the scaler it
// was fit with, and the evaluation snapshot. The three belong together and
// must be persisted as a unit.
type Result struct {
	Forest    *model.Forest
	Scaler    *transform.Scaler
	Metrics   Snapshot
	TrainRows int
	TestRows  int
	Duration  time.Duration
}

// Run trains and evaluates on raw records with binary labels. Records pass
// through the column resolver first, so variant headers are accepted.
func Run(records []map[string]any, labels []int, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if len(records) != len(labels) {
		return nil, fmt.Errorf("train: %d records but %d labels", len(records), len(labels))
	}

	start := time.Now()

	rows := make([]transform.Record, len(records))
	for i, rec := range records {
		resolved := schema.ResolveRecord(rec)
		delete(resolved, schema.Target)
		rows[i] = resolved
	}

	X, scaler, err := transform.FitTransform(rows)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := stratifiedSplit(labels, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	XTrain, yTrain := pick(X, labels, trainIdx)
	XTest, yTest := pick(X, labels, testIdx)

	log.Info().
		Int("rows", len(records)).
		Int("train", len(XTrain)).
		Int("test", len(XTest)).
		Int("trees", cfg.Trees).
		Int64("seed", cfg.Seed).
		Msg("fitting random forest")

	forest := model.NewForest(model.WithTrees(cfg.Trees), model.WithSeed(cfg.Seed))
	if err := forest.Fit(XTrain, yTrain); err != nil {
		return nil, fmt.Errorf("train: forest fit: %w", err)
	}

	snapshot, err := Evaluate(yTest, forest.PredictProba(XTest))
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	log.Info().
		Float64("accuracy", snapshot.Accuracy).
		Float64("roc_auc", snapshot.ROCAUC).
		Float64("f1", snapshot.F1).
		Dur("elapsed", elapsed).
		Msg("training complete")

	return &Result{
		Forest:    forest,
		Scaler:    scaler,
		Metrics:   snapshot,
		TrainRows: len(XTrain),
		TestRows:  len(XTest),
		Duration:  elapsed,
	}, nil
}
