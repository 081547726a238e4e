package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sawpanic/cryptorun-execcore/internal/config"
	"github.com/sawpanic/cryptorun-execcore/internal/engine"
	"github.com/sawpanic/cryptorun-execcore/internal/errs"
	"github.com/sawpanic/cryptorun-execcore/internal/execution"
	loglib "github.com/sawpanic/cryptorun-execcore/internal/log"
	"github.com/sawpanic/cryptorun-execcore/internal/logging"
	"github.com/sawpanic/cryptorun-execcore/internal/net/circuit"
	"github.com/sawpanic/cryptorun-execcore/internal/persistence/postgres"
	"github.com/sawpanic/cryptorun-execcore/internal/risk"
	"github.com/sawpanic/cryptorun-execcore/internal/telemetry/venues"
	"github.com/sawpanic/cryptorun-execcore/internal/transport"
	"github.com/sawpanic/cryptorun-execcore/internal/venue/kraken"
)

func newStartCmd() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		redisAddr   string
		postgresDSN string
		apiKey      string
		apiSecret   string
		logLevel    string
		logPretty   bool
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the signal, risk, and execution pipeline against a venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			runStart(cmd.Context(), startArgs{
				configPath:  configPath,
				metricsAddr: metricsAddr,
				redisAddr:   redisAddr,
				postgresDSN: postgresDSN,
				apiKey:      apiKey,
				apiSecret:   apiSecret,
				logLevel:    logLevel,
				logPretty:   logPretty,
				quiet:       quiet,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the YAML settings bundle")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "0.0.0.0:9090", "address to serve /metrics and /health on")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis address for NAV durability (disabled when empty)")
	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "postgres DSN for execution/regime history (disabled when empty)")
	cmd.Flags().StringVar(&apiKey, "kraken-api-key", os.Getenv("KRAKEN_API_KEY"), "kraken API key")
	cmd.Flags().StringVar(&apiSecret, "kraken-api-secret", os.Getenv("KRAKEN_API_SECRET"), "kraken API secret (base64)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&logPretty, "log-pretty", true, "use a human-readable console log writer")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "hide the startup spinner, progress bar and ETA (per-step and completion lines still print to stdout)")

	return cmd
}

type startArgs struct {
	configPath  string
	metricsAddr string
	redisAddr   string
	postgresDSN string
	apiKey      string
	apiSecret   string
	logLevel    string
	logPretty   bool
	quiet       bool
}

// runStart wires every component the engine needs and drives it until ctx is
// cancelled, following the same step-logged startup sequence the teacher
// uses for its monitor server (StepLogger over named steps, then a fixed
// tick loop instead of an HTTP request loop). Terminal failures during
// wiring exit exitConfigInvalid or exitRuntime directly rather than
// returning an error through cobra, matching this binary's exit-code
// contract.
func runStart(ctx context.Context, a startArgs) {
	logger := logging.Init(logging.Options{Level: a.logLevel, Pretty: a.logPretty})

	configPath, metricsAddr, redisAddr := a.configPath, a.metricsAddr, a.redisAddr
	apiKey, apiSecret := a.apiKey, a.apiSecret

	progressConfig := loglib.DefaultProgressConfig()
	if a.quiet {
		progressConfig = loglib.QuietProgressConfig()
	}
	steps := loglib.NewStepLogger("startup", []string{
		"load config", "wire venue", "wire router", "wire engine", "serve metrics",
	}, progressConfig)

	steps.StartStep("load config")
	settings, err := config.Load(configPath)
	if err != nil {
		steps.Fail(err.Error())
		fmt.Fprintln(os.Stderr, "config invalid:", err)
		os.Exit(exitConfigInvalid)
	}
	steps.CompleteStep()

	steps.StartStep("wire venue")
	collector := venues.NewCollector()

	venueClient, err := kraken.New(kraken.Config{
		BaseURL:        settings.Venue.BaseURL,
		APIKey:         apiKey,
		APISecret:      apiSecret,
		RequestTimeout: settings.Venue.Circuit.RequestTimeout,
	})
	if err != nil {
		steps.Fail(err.Error())
		logger.Error().Err(err).Msg("failed to build kraken client")
		os.Exit(exitRuntime)
	}

	xport := transport.New(transport.Config{
		Client: venueClient,
		Host:   settings.Venue.Name,
		Breaker: circuit.Config{
			FailureThreshold: settings.Venue.Circuit.FailureThreshold,
			SuccessThreshold: settings.Venue.Circuit.SuccessThreshold,
			Timeout:          settings.Venue.Circuit.Timeout,
			RequestTimeout:   settings.Venue.Circuit.RequestTimeout,
			IsFailure: func(err error) bool {
				var crossed *errs.PostOnlyCrossed
				return !errors.As(err, &crossed)
			},
		},
		RPS:   settings.Venue.RPS,
		Burst: settings.Venue.Burst,
		Retry: transport.RetryPolicy{
			BaseDelay:   settings.Venue.Backoff.Base,
			MaxDelay:    settings.Venue.Backoff.Max,
			MaxAttempts: settings.Venue.Backoff.Attempts,
		},
		Log:     logger,
		Metrics: collector,
	})
	steps.CompleteStep()

	var navStore *risk.NAVStore
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		navStore = risk.NewNAVStore(rdb)
	}

	steps.StartStep("wire router")
	router := execution.NewRouter(xport, time.Now, logger, execution.Config{
		HighConfidenceTimeout:   settings.Execution.HighConfidenceTimeout,
		MediumConfidenceTimeout: settings.Execution.MediumConfidenceTimeout,
		MediumFallbackToIOC:     settings.Execution.MediumFallbackToIOC,
	})
	steps.CompleteStep()

	steps.StartStep("wire engine")
	eng := engine.New(settings, settings.Symbols, xport, router, logger)
	if a.postgresDSN != "" {
		db, err := sqlx.Connect("postgres", a.postgresDSN)
		if err != nil {
			steps.Fail(err.Error())
			logger.Error().Err(err).Msg("failed to connect to postgres")
			os.Exit(exitRuntime)
		}
		eng.SetExecutionsRepo(postgres.NewExecutionsRepo(db, 5*time.Second))
		eng.SetRegimeRepo(postgres.NewRegimeRepo(db, 5*time.Second))
	}
	steps.CompleteStep()

	sessionKey := time.Now().UTC().Format("2006-01-02")
	if navStore != nil {
		if snap, ok, err := navStore.Load(ctx, sessionKey); err != nil {
			logger.Warn().Err(err).Msg("failed to load NAV snapshot, starting fresh")
		} else if ok {
			eng.HardLimits().Restore(snap)
			logger.Info().Float64("nav", snap.NAV).Bool("breached", snap.Breached).Msg("restored NAV state from redis")
		}

		navTicker := time.NewTicker(time.Minute)
		go func() {
			defer navTicker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-navTicker.C:
					if err := navStore.Save(ctx, sessionKey, eng.HardLimits()); err != nil {
						logger.Warn().Err(err).Msg("failed to persist NAV snapshot")
					}
				}
			}
		}()
	}

	steps.StartStep("serve metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	steps.CompleteStep()
	steps.Finish()

	logger.Info().Str("metrics_addr", metricsAddr).Strs("symbols", settings.Symbols).Msg("execution core started")

	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		logger.Info().Msg("engine stopped after graceful shutdown")
		os.Exit(exitInterrupted)
	case err := <-serverErr:
		logger.Error().Err(err).Msg("metrics server failed")
		os.Exit(exitRuntime)
	}
}
