package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-logos/brand"
	"github.com/aluiziolira/go-scrape-logos/config"
	"github.com/aluiziolira/go-scrape-logos/extract"
	"github.com/aluiziolira/go-scrape-logos/models"
	"github.com/aluiziolira/go-scrape-logos/pipeline"
	"github.com/aluiziolira/go-scrape-logos/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	configPath := flag.String("config", "", "Optional YAML config file")
	if value, ok := config.EnvString("SCRAPER_CONFIG"); ok {
		*configPath = value
	}

	mode := flag.String("mode", defaultCfg.Mode, "Run mode: guess or extract")
	host := flag.String("host", defaultCfg.CDNHost, "CDN host serving brand logos")
	brandsFile := flag.String("brands-file", defaultCfg.BrandsFile, "Brand list, one name per line")
	brands := flag.String("brands", "", "Comma separated brand names (overrides -brands-file)")
	inputFile := flag.String("input", defaultCfg.InputFile, "Text blob scanned for logo URLs in extract mode")
	extractedFile := flag.String("extracted", defaultCfg.ExtractedFile, "Extracted URL artifact path")
	outputRoot := flag.String("output", "", "Output root (default downloaded_svg or savess by mode)")
	urlListFile := flag.String("url-list", defaultCfg.URLListFile, "Discovered URL list path")
	manifestFile := flag.String("manifest", defaultCfg.ManifestFile, "Run manifest path")
	probeParallel := flag.Int("probe-parallel", defaultCfg.ProbeConcurrency, "Concurrent HEAD probes")
	downloadParallel := flag.Int("download-parallel", defaultCfg.DownloadConcurrency, "Concurrent downloads")
	maxFolder := flag.Int("max-folder", defaultCfg.MaxFolderIndex, "Number of numbered CDN folders to probe")
	extensions := flag.String("ext", strings.Join(defaultCfg.Extensions, ","), "Comma separated file extensions to probe")
	chunkSize := flag.Int("chunk", defaultCfg.ChunkSize, "Brands processed per chunk")
	probeTimeout := flag.Duration("probe-timeout", defaultCfg.ProbeTimeout, "Timeout per probe")
	fetchTimeout := flag.Duration("fetch-timeout", defaultCfg.FetchTimeout, "Timeout per download")
	delay := flag.Duration("delay", defaultCfg.RequestDelay, "Pause held after each request")
	drainTimeout := flag.Duration("drain-timeout", defaultCfg.DrainTimeout, "How long to wait for in-flight requests after an interrupt")
	insecure := flag.Bool("insecure", defaultCfg.InsecureSkipVerify, "Skip TLS verification for downloads")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	// Only flags given on the command line override file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = strings.ToLower(*mode)
		case "host":
			cfg.CDNHost = *host
		case "brands-file":
			cfg.BrandsFile = *brandsFile
		case "brands":
			cfg.Brands = splitList(*brands)
		case "input":
			cfg.InputFile = *inputFile
		case "extracted":
			cfg.ExtractedFile = *extractedFile
		case "output":
			cfg.OutputRoot = *outputRoot
		case "url-list":
			cfg.URLListFile = *urlListFile
		case "manifest":
			cfg.ManifestFile = *manifestFile
		case "probe-parallel":
			cfg.ProbeConcurrency = *probeParallel
		case "download-parallel":
			cfg.DownloadConcurrency = *downloadParallel
		case "max-folder":
			cfg.MaxFolderIndex = *maxFolder
		case "ext":
			cfg.Extensions = splitList(*extensions)
		case "chunk":
			cfg.ChunkSize = *chunkSize
		case "probe-timeout":
			cfg.ProbeTimeout = *probeTimeout
		case "fetch-timeout":
			cfg.FetchTimeout = *fetchTimeout
		case "delay":
			cfg.RequestDelay = *delay
		case "drain-timeout":
			cfg.DrainTimeout = *drainTimeout
		case "insecure":
			cfg.InsecureSkipVerify = *insecure
		case "v":
			cfg.Verbose = *verbose
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		}
	})

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	agg := pipeline.NewAggregator()
	runner, err := scraper.NewRunner(cfg, agg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}
	report := pipeline.NewReportWriter(cfg.URLListFile, cfg.ManifestFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, flushing collected results")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(runner.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting scrape",
		slog.String("mode", cfg.Mode),
		slog.String("host", cfg.CDNHost),
		slog.String("output", cfg.ResolvedOutputRoot()),
		slog.Int("probe_workers", cfg.ProbeConcurrency),
		slog.Int("download_workers", cfg.DownloadConcurrency),
	)

	var result *models.RunResult
	switch cfg.Mode {
	case config.ModeExtract:
		result, err = runExtract(ctx, cfg, runner)
	default:
		result, err = runGuess(ctx, cfg, runner)
	}
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := report.Flush(agg, result.Interrupted); err != nil {
		slog.Error("writing report failed", slog.Any("error", err))
		os.Exit(1)
	}
	if dropped, err := agg.Dropped(); err != nil {
		slog.Warn("outcomes arrived after the report was written", slog.Int("dropped", dropped))
	}
	if err := report.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, agg, cfg)
	if result.Interrupted {
		os.Exit(130)
	}
}

func runGuess(ctx context.Context, cfg *config.Config, runner *scraper.Runner) (*models.RunResult, error) {
	names := brand.Dedupe(cfg.Brands)
	if len(names) == 0 {
		var err error
		names, err = brand.LoadList(cfg.BrandsFile)
		if err != nil {
			return nil, err
		}
	}
	slog.Info("brands loaded", slog.Int("count", len(names)))
	return runner.RunBrands(ctx, names)
}

func runExtract(ctx context.Context, cfg *config.Config, runner *scraper.Runner) (*models.RunResult, error) {
	urls, matched, err := extract.New(cfg.CDNHost).FromFile(cfg.InputFile)
	if err != nil {
		if !errors.Is(err, extract.ErrInput) {
			return nil, err
		}
		slog.Error("reading extraction input", slog.String("file", cfg.InputFile), slog.Any("error", err))
		urls = nil
	}
	slog.Info("urls extracted",
		slog.Int("matched", matched),
		slog.Int("images", len(urls)),
	)
	if err := pipeline.WriteExtracted(cfg.ExtractedFile, urls); err != nil {
		return nil, fmt.Errorf("write extracted urls: %w", err)
	}
	return runner.RunURLs(ctx, urls)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func printSummary(result *models.RunResult, agg *pipeline.Aggregator, cfg *config.Config) {
	discovered, failed, saved := agg.Counts()
	probed, absent := agg.ProbeCounts()
	duration := result.EndTime.Sub(result.StartTime)

	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	if result.Interrupted {
		fmt.Println("Scrape interrupted, partial results saved")
	} else {
		fmt.Println("Scrape complete")
	}
	fmt.Printf("  Inputs:        %d\n", result.Units)
	fmt.Printf("  Candidates:    %d (%d duplicates skipped)\n", result.Candidates, result.Skipped)
	fmt.Printf("  Probed:        %d (%d absent)\n", probed, absent)
	fmt.Printf("  Found URLs:    %d\n", discovered)
	fmt.Printf("  Saved files:   %d (%d bytes)\n", saved, agg.SavedBytes())
	fmt.Printf("  Failed:        %d\n", failed)
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output root:   %s\n", cfg.ResolvedOutputRoot())
	fmt.Printf("  URL list:      %s\n", cfg.URLListFile)
	fmt.Printf("  Manifest:      %s\n", cfg.ManifestFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
