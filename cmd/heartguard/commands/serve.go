package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"heartguard/internal/artifacts"
	"heartguard/internal/metrics"
	"heartguard/internal/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: `Serve loads a stored model once at startup and exposes it over HTTP:
POST /predict, POST /predict/batch, GET /health, GET /model/info,
GET /metrics (Prometheus) and GET /ws (prediction event feed).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("name", "", "model name in the artifact store (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		settings.ModelName = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		settings.ListenPort = v
	}

	store, err := artifacts.Open(settings.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// The artifact pair is loaded once and shared read-only by every
	// request for the life of the process.
	run, err := store.LoadRun(settings.ModelName)
	if err != nil {
		return err
	}
	log.Info().
		Str("model", settings.ModelName).
		Time("saved_at", run.SavedAt).
		Float64("roc_auc", run.Metrics.ROCAUC).
		Msg("model loaded")

	m := metrics.New()
	server, err := serve.New(run, serve.Config{
		Port:          settings.ListenPort,
		LowThreshold:  settings.LowThreshold,
		HighThreshold: settings.HighThreshold,
	}, m)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
