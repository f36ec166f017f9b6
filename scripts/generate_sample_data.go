package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
)

func main() {
	var (
		outPath = flag.String("out", "heart.csv", "Output CSV path")
		rows    = flag.Int("rows", 500, "Number of patient rows to generate")
		seed    = flag.Int64("seed", 42, "Random seed")
		posRate = flag.Float64("pos-rate", 0.45, "Fraction of positive (disease) rows")
	)
	flag.Parse()

	fmt.Printf("Generating synthetic heart-disease data...\n")
	fmt.Printf("  Rows: %d\n", *rows)
	fmt.Printf("  Positive rate: %.2f\n", *posRate)
	fmt.Printf("  Output: %s\n", *outPath)

	if err := generatePatients(*outPath, *rows, *seed, *posRate); err != nil {
		log.Fatalf("Failed to generate data: %v", err)
	}

	fmt.Printf("✓ Wrote %d rows to %s\n", *rows, *outPath)
}

func generatePatients(path string, rows int, seed int64, posRate float64) error {
	rnd := rand.New(rand.NewSource(seed))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"age", "sex", "trestbps", "chol", "fbs", "thalach", "exang", "oldpeak", "target"}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		positive := rnd.Float64() < posRate

		// Positive cases skew older, with lower max heart rate, higher
		// resting pressure and ST depression. The shift keeps the classes
		// separable but overlapping, like the clinical datasets.
		age := clamp(54+rnd.NormFloat64()*9, 29, 77)
		trestbps := clamp(131+rnd.NormFloat64()*17, 94, 200)
		chol := clamp(246+rnd.NormFloat64()*51, 126, 564)
		thalach := clamp(149+rnd.NormFloat64()*22, 71, 202)
		oldpeak := clamp(1.0+rnd.NormFloat64()*1.1, 0, 6.2)
		if positive {
			age += 4
			trestbps += 6
			thalach -= 20
			oldpeak += 0.6
		}

		sex := "0"
		if rnd.Float64() < 0.68 {
			sex = "1"
		}
		fbs := "0"
		if rnd.Float64() < 0.15 {
			fbs = "1"
		}
		exang := "0"
		exangRate := 0.23
		if positive {
			exangRate = 0.55
		}
		if rnd.Float64() < exangRate {
			exang = "1"
		}
		target := "0"
		if positive {
			target = "1"
		}

		row := []string{
			strconv.Itoa(int(age)),
			sex,
			strconv.Itoa(int(trestbps)),
			strconv.Itoa(int(chol)),
			fbs,
			strconv.Itoa(int(thalach)),
			exang,
			strconv.FormatFloat(oldpeak, 'f', 1, 64),
			target,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
