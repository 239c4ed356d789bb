package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solace-ai/solace/internal/governance"
	"github.com/solace-ai/solace/internal/httpapi"
	"github.com/solace-ai/solace/pkg/chamber/integrity"
	"github.com/solace-ai/solace/pkg/chamber/pattern"
	"github.com/solace-ai/solace/pkg/chamber/weight"
	"github.com/solace-ai/solace/pkg/config"
	"github.com/solace-ai/solace/pkg/dashboard"
	"github.com/solace-ai/solace/pkg/engine"
	"github.com/solace-ai/solace/pkg/epasa"
	"github.com/solace-ai/solace/pkg/logging"
	"github.com/solace-ai/solace/pkg/telemetry"
	"github.com/solace-ai/solace/pkg/values"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine as an HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")

	logger := logging.NewLogger(logging.Config{Level: logLevel, Pretty: pretty})

	var cfg *config.Config
	var provider *config.FileProvider
	if configPath != "" {
		var err error
		provider, err = config.NewFileProvider(configPath, logging.Component(logger, "config"))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		defer func() {
			if err := provider.Close(); err != nil {
				logger.Error().Err(err).Msg("close config provider")
			}
		}()
		cfg = provider.Current()
	} else {
		cfg = config.Default()
	}

	if cfg.Logging.Level != "" && logLevel == "info" {
		logger = logging.NewLogger(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty || pretty})
	}

	ctx := cmd.Context()

	shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "solace",
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	pipeline, quorum, limiter, dash, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Fold config reloads into the running pipeline.
	if provider != nil {
		updates := provider.Subscribe()
		go func() {
			for updated := range updates {
				pipeline.ApplyConfig(updated)
			}
		}()
	}

	api := httpapi.NewServer(httpapi.Options{
		Logger:   logging.Component(logger, "api"),
		Pipeline: pipeline,
		Quorum:   quorum,
		Limiter:  limiter,
		Dash:     dash,
	})

	adminMux := http.NewServeMux()
	adminMux.Handle("GET /metrics", dash.Handler())
	adminMux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	adminSrv := &http.Server{
		Addr:              cfg.Server.AdminAddress,
		Handler:           adminMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", cfg.Server.AdminAddress).Msg("admin server listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		if err := api.Start(cfg.Server.Address); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api shutdown")
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin shutdown")
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// buildEngine assembles the pipeline and governance controls from config.
func buildEngine(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*engine.Pipeline, *governance.Quorum, *governance.RateLimiter, *dashboard.Metrics, error) {
	integrityChamber := integrity.New(cfg.Chambers.Values)

	if cfg.Chambers.ValuesPolicy != "" {
		//nolint:gosec // Policy file path is controlled by the operator
		src, err := os.ReadFile(cfg.Chambers.ValuesPolicy)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("read values policy: %w", err)
		}
		gate, err := values.NewEngine(ctx, values.EngineOptions{
			Modules: map[string]string{cfg.Chambers.ValuesPolicy: string(src)},
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("compile values policy: %w", err)
		}
		integrityChamber.SetGate(gate)
	}

	dash := dashboard.NewMetrics()

	breaker := governance.NewDriftBreaker(governance.DriftBreakerConfig{
		MaxViolations:  cfg.Epasa.Breaker.MaxViolations,
		Cooldown:       time.Duration(cfg.Epasa.Breaker.CooldownSecs) * time.Second,
		HalfOpenProbes: cfg.Epasa.Breaker.HalfOpenProbes,
	})

	computer := epasa.NewComputer(nil, cfg.Epasa.EthicalSeed)
	// The first active batch pins the operating baseline; rotation after
	// that goes through governance.
	watcher := epasa.NewBootstrapWatcher(
		epasa.WithDriftThreshold(cfg.Epasa.DriftThreshold),
		epasa.WithMetricFloor(cfg.Epasa.MetricFloor),
	)

	pipeline, err := engine.New(engine.Options{
		Logger:              logging.Component(logger, "pipeline"),
		Weight:              weight.New(weight.WithPriors(cfg.Chambers.PriorAlpha, cfg.Chambers.PriorBeta)),
		Pattern:             pattern.New(cfg.Chambers.SimilarityThreshold),
		Integrity:           integrityChamber,
		Computer:            computer,
		Watcher:             watcher,
		Breaker:             breaker,
		Dashboard:           dash,
		BleedThreshold:      cfg.Lattice.BleedThreshold,
		ResonanceIterations: cfg.Lattice.ResonanceIterations,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build pipeline: %w", err)
	}

	quorum := governance.NewQuorum(governance.QuorumConfig{
		ApprovalFraction: cfg.Governance.ApprovalFraction,
		ClassSizes:       cfg.Governance.ClassSizes,
		ProposalTTL:      time.Duration(cfg.Governance.ProposalTTLSecs) * time.Second,
	})

	limiter := governance.NewRateLimiter(governance.RateLimiterConfig{
		RequestsPerSecond: cfg.Governance.IngestRPS,
		BurstSize:         cfg.Governance.IngestBurst,
	})

	return pipeline, quorum, limiter, dash, nil
}
