package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"heartguard/internal/artifacts"
	"heartguard/internal/predict"
	"heartguard/internal/schema"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score a single record against a stored model",
	Long: `Predict scores one record supplied either as a JSON object (--json) or via
per-feature flags. Field names accept any known column variant; omitted
fields are imputed by the transformer.`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().String("json", "", `record as JSON, e.g. '{"age":54,"sex":"Male","trestbps":130}'`)
	predictCmd.Flags().String("name", "", "model name in the artifact store (overrides config)")
	predictCmd.Flags().Float64("low", -1, "low risk threshold (overrides config)")
	predictCmd.Flags().Float64("high", -1, "high risk threshold (overrides config)")
	for _, f := range schema.Features {
		predictCmd.Flags().String(f, "", "value for "+f)
	}
}

func runPredict(cmd *cobra.Command, _ []string) error {
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

	record := make(map[string]any)
	if raw, _ := cmd.Flags().GetString("json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return fmt.Errorf("parse --json: %w", err)
		}
	}
	for _, f := range schema.Features {
		if v, _ := cmd.Flags().GetString(f); v != "" {
			record[f] = v
		}
	}
	if len(record) == 0 {
		return fmt.Errorf("no input fields supplied")
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

	res, err := engine.Predict(record, low, high)
	if err != nil {
		return err
	}

	fmt.Printf("probability: %.4f\n", res.Probability)
	fmt.Printf("risk:        %s\n", colorBucket(res.Bucket))
	return nil
}

func colorBucket(bucket string) string {
	switch bucket {
	case predict.BucketLow:
		return color.GreenString(bucket)
	case predict.BucketModerate:
		return color.YellowString(bucket)
	default:
		return color.RedString(bucket)
	}
}
