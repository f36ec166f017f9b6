package commands

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"heartguard/internal/artifacts"
	"heartguard/internal/dataset"
	"heartguard/internal/predict"
	"heartguard/internal/schema"
)

var batchCmd = &cobra.Command{
	Use:   "batch <input.csv> <output.csv>",
	Short: "Score every row of a CSV file",
	Long: `Batch resolves the input file's headers against the column variant table,
scores every row, and writes a CSV with the canonical features plus
probability and risk_bucket columns. Row order is preserved.`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("name", "", "model name in the artifact store (overrides config)")
	batchCmd.Flags().Float64("low", -1, "low risk threshold (overrides config)")
	batchCmd.Flags().Float64("high", -1, "high risk threshold (overrides config)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		settings.ModelName = v
	}
	low, high := settings.LowThreshold, settings.HighThreshold
	if v, _ := cmd.Flags().GetFloat64("low"); v >= 0 {
		low = v
	}
	if v, _ := cmd.Flags().GetFloat64("high"); v >= 0 {
		high = v
	}
	if low >= high {
		return fmt.Errorf("low threshold %v must be below high threshold %v", low, high)
	}

	table, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}
	if len(table.Records) == 0 {
		return fmt.Errorf("%s: no data rows", args[0])
	}

	store, err := artifacts.Open(settings.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.LoadRun(settings.ModelName)
	if err != nil {
		return err
	}
	engine, err := predict.NewEngine(run.Scaler, run.Forest)
	if err != nil {
		return err
	}

	results, err := engine.PredictBatch(table.Records, low, high)
	if err != nil {
		return err
	}

	if err := writeResults(args[1], table.Records, results); err != nil {
		return err
	}
	log.Info().Int("rows", len(results)).Str("output", args[1]).Msg("batch scoring complete")
	return nil
}

func writeResults(path string, records []map[string]any, results []predict.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(append([]string(nil), schema.Features...), "probability", "risk_bucket")
	if err := w.Write(header); err != nil {
		return err
	}

	for i, rec := range records {
		row := make([]string, 0, len(header))
		for _, feat := range schema.Features {
			if v, ok := rec[feat]; ok && v != nil {
				row = append(row, fmt.Sprintf("%v", v))
			} else {
				row = append(row, "")
			}
		}
		row = append(row,
			strconv.FormatFloat(results[i].Probability, 'f', 4, 64),
			results[i].Bucket,
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
