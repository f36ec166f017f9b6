package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"heartguard/internal/artifacts"
	"heartguard/internal/dataset"
	"heartguard/internal/metrics"
	"heartguard/internal/train"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model from a labeled CSV and persist the artifact triple",
	Long: `Train loads a labeled dataset (local CSV or remote URL), fits the scaler
and random forest, evaluates on a stratified hold-out split, and stores the
(scaler, classifier, metrics) triple atomically in the artifact database.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().String("dataset", "", "path to the training CSV (overrides config)")
	trainCmd.Flags().String("url", "", "URL of the training CSV (overrides config)")
	trainCmd.Flags().String("name", "", "model name in the artifact store (overrides config)")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("dataset"); v != "" {
		settings.DatasetPath = v
	}
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		settings.DatasetURL = v
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		settings.ModelName = v
	}

	var table *dataset.Table
	switch {
	case settings.DatasetPath != "":
		table, err = dataset.LoadTraining(settings.DatasetPath)
	case settings.DatasetURL != "":
		fetcher := dataset.NewFetcher(settings.FetchTimeout)
		table, err = fetcher.Fetch(context.Background(), settings.DatasetURL)
		if err == nil && !table.Labeled {
			err = dataset.ErrNoTarget
		}
	default:
		return fmt.Errorf("no dataset configured: set --dataset or --url")
	}
	if err != nil {
		return err
	}

	m := metrics.New()
	result, err := train.Run(table.Records, table.Labels, train.Config{
		Trees:        settings.Trees,
		Seed:         settings.Seed,
		TestFraction: settings.TestFraction,
	})
	if err != nil {
		m.ObserveTrainingFailure()
		return err
	}
	m.ObserveTrainingSuccess(result.Duration)
	m.ObserveModel(0, result.Metrics.Accuracy, result.Metrics.ROCAUC)

	if err := os.MkdirAll(settings.DataPath, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	store, err := artifacts.Open(settings.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveRun(settings.ModelName, result); err != nil {
		return err
	}
	log.Info().Str("model", settings.ModelName).Str("path", settings.DataPath).Msg("artifacts saved")

	snap := result.Metrics
	bold := color.New(color.Bold)
	bold.Printf("Model %q trained on %d rows (%d held out)\n", settings.ModelName, result.TrainRows+result.TestRows, result.TestRows)
	fmt.Printf("  accuracy:  %.4f\n", snap.Accuracy)
	fmt.Printf("  roc_auc:   %.4f\n", snap.ROCAUC)
	fmt.Printf("  precision: %.4f\n", snap.Precision)
	fmt.Printf("  recall:    %.4f\n", snap.Recall)
	fmt.Printf("  f1:        %.4f\n", snap.F1)
	fmt.Printf("  confusion: [[%d %d] [%d %d]]\n",
		snap.ConfusionMatrix[0][0], snap.ConfusionMatrix[0][1],
		snap.ConfusionMatrix[1][0], snap.ConfusionMatrix[1][1])
	return nil
}
