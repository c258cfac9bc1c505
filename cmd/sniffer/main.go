package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-mint-sniffer/internal/classify"
	"solana-mint-sniffer/internal/config"
	"solana-mint-sniffer/internal/enrich"
	"solana-mint-sniffer/internal/logging"
	"solana-mint-sniffer/internal/observability"
	"solana-mint-sniffer/internal/ratelimit"
	"solana-mint-sniffer/internal/reporting"
	"solana-mint-sniffer/internal/sniffer"
	"solana-mint-sniffer/internal/solana"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (overrides config)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides config)")
	programs := flag.String("programs", "", "Comma-separated program IDs to monitor (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warning, error (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides
	if *wsEndpoint != "" {
		cfg.Solana.WSURL = *wsEndpoint
	}
	if *rpcEndpoint != "" {
		cfg.Solana.HTTPURL = *rpcEndpoint
	}
	if *programs != "" {
		cfg.Sniffer.Programs = splitPrograms(*programs)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	// Start metrics server if enabled
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Infof("starting metrics server on %s", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server error: %v", err)
			}
		}()
	}

	// Enrichment pipeline. Its context outlives the sniffer context so
	// queued mints still drain after the subscriptions stop.
	rpc := solana.NewHTTPClient(cfg.Solana.HTTPURL,
		solana.WithTimeout(cfg.Solana.RequestTimeout))
	fetcher := enrich.NewFetcher(rpc, logger)
	directory := enrich.NewRaydiumDirectory(cfg.Listings.RaydiumURL,
		cfg.Listings.CacheTTL, logger)
	reporter := reporting.NewLogReporter(logger)

	pipeline := enrich.NewPipeline(enrich.PipelineConfig{
		QueueSize:      cfg.Pipeline.QueueSize,
		InfoWorkers:    cfg.Pipeline.InfoWorkers,
		ListingWorkers: cfg.Pipeline.ListingWorkers,
		DedupMints:     cfg.Pipeline.DedupMints,
	}, fetcher, directory, reporter, logger)

	pipeCtx, pipeCancel := context.WithCancel(context.Background())
	defer pipeCancel()
	pipeline.Start(pipeCtx)

	// Subscription channels
	var classifierOpts []classify.Option
	if cfg.Pipeline.ValidateAddresses {
		classifierOpts = append(classifierOpts, classify.WithStrictValidation())
	}
	classifier := classify.New(classifierOpts...)
	limiter := ratelimit.New(cfg.Sniffer.RateLimit)
	dialer := solana.NewWSDialer(nil)

	registry := sniffer.NewRegistry(func(programID string) sniffer.Runner {
		return sniffer.NewChannel(sniffer.ChannelConfig{
			Endpoint:               cfg.Solana.WSURL,
			ProgramID:              programID,
			ReconnectDelay:         cfg.Sniffer.ReconnectDelay,
			MaxReconnectDelay:      cfg.Sniffer.MaxReconnectDelay,
			HeartbeatInterval:      cfg.Sniffer.HeartbeatInterval,
			MaxConsecutiveFailures: cfg.Sniffer.MaxConsecutiveFailures,
		}, dialer, limiter, classifier, pipeline, logger)
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Infof("received signal %v, initiating graceful shutdown", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Errorf("received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Errorf("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	logger.Infof("monitoring programs: %v", cfg.Sniffer.Programs)
	for _, programID := range cfg.Sniffer.Programs {
		registry.Add(ctx, programID)
	}

	<-ctx.Done()

	// Stop producers first, then drain the pipeline.
	registry.StopAll()
	pipeline.Stop()

	close(done)
	logger.Infof("shutdown complete")
}

func splitPrograms(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
