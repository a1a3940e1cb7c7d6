package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-logos/brand"
	"github.com/aluiziolira/go-scrape-logos/config"
	"github.com/aluiziolira/go-scrape-logos/gate"
	"github.com/aluiziolira/go-scrape-logos/models"
	"github.com/aluiziolira/go-scrape-logos/pipeline"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// Runner schedules probes and downloads in fixed-size chunks and folds every
// outcome into an Aggregator.
type Runner struct {
	cfg        *config.Config
	agg        *pipeline.Aggregator
	prober     *Prober
	downloader *Downloader
	probeGate  *gate.Gate
	fetchGate  *gate.Gate
	seen       *lru.Cache[string, struct{}]
	outputRoot string
	Metrics    *Metrics

	tasks int64
}

// NewRunner wires gates, collectors and the dedupe cache from cfg.
func NewRunner(cfg *config.Config, agg *pipeline.Aggregator) (*Runner, error) {
	if agg == nil {
		return nil, fmt.Errorf("aggregator is required")
	}

	metrics := NewMetrics()
	probeGate := gate.New(PhaseProbe, cfg.ProbeConcurrency)
	fetchGate := gate.New(PhaseDownload, cfg.DownloadConcurrency)
	for _, g := range []*gate.Gate{probeGate, fetchGate} {
		if err := metrics.RegisterGate(g); err != nil {
			return nil, fmt.Errorf("register %s gate metric: %w", g.Name(), err)
		}
	}

	outputRoot := cfg.ResolvedOutputRoot()
	prober, err := NewProber(cfg, probeGate, metrics)
	if err != nil {
		return nil, fmt.Errorf("build prober: %w", err)
	}
	downloader, err := NewDownloader(cfg, fetchGate, outputRoot, metrics)
	if err != nil {
		return nil, fmt.Errorf("build downloader: %w", err)
	}

	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("build dedupe cache: %w", err)
	}

	return &Runner{
		cfg:        cfg,
		agg:        agg,
		prober:     prober,
		downloader: downloader,
		probeGate:  probeGate,
		fetchGate:  fetchGate,
		seen:       seen,
		outputRoot: outputRoot,
		Metrics:    metrics,
	}, nil
}

// WithTransport routes both probes and downloads through rt.
func (r *Runner) WithTransport(rt http.RoundTripper) {
	r.prober.collector.WithTransport(rt)
	r.downloader.collector.WithTransport(rt)
}

// Gates returns the probe and download gates.
func (r *Runner) Gates() (probe, download *gate.Gate) {
	return r.probeGate, r.fetchGate
}

// RunBrands guesses candidate URLs for every brand, probes them and downloads
// the confirmed ones. Brands are handled ChunkSize at a time; a chunk's tasks
// finish before the next chunk starts.
func (r *Runner) RunBrands(ctx context.Context, brands []string) (*models.RunResult, error) {
	if err := r.prepareFolders(); err != nil {
		return nil, err
	}

	result := &models.RunResult{StartTime: time.Now(), Drained: true}
	for start := 0; start < len(brands); start += r.cfg.ChunkSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+r.cfg.ChunkSize, len(brands))

		var g errgroup.Group
		for _, name := range brands[start:end] {
			result.Units++
			variations := brand.Variations(name)
			if len(variations) == 0 {
				slog.Warn("brand has no usable characters", slog.String("brand", name))
				continue
			}
			for _, candidate := range brand.Candidates(r.cfg.CDNHost, variations, r.cfg.MaxFolderIndex, r.cfg.Extensions) {
				// Bounded by DedupeMaxSize; an evicted candidate is probed
				// again, and AddDiscovered still downloads it only once.
				if dup, _ := r.seen.ContainsOrAdd(candidate, struct{}{}); dup {
					result.Skipped++
					continue
				}
				result.Candidates++
				g.Go(func() error {
					r.probeAndDownload(ctx, candidate)
					return nil
				})
			}
		}

		if !r.wait(ctx, &g) {
			result.Drained = false
			break
		}
		slog.Debug("brand chunk complete",
			slog.Int("brands", end),
			slog.Int("total", len(brands)),
			slog.Int("candidates", result.Candidates),
		)
	}

	return r.finish(ctx, result), nil
}

// RunURLs downloads already-known URLs, skipping the probe step.
func (r *Runner) RunURLs(ctx context.Context, urls []string) (*models.RunResult, error) {
	batch := r.cfg.ChunkSize * r.cfg.DownloadConcurrency
	result := &models.RunResult{StartTime: time.Now(), Drained: true}
	for start := 0; start < len(urls); start += batch {
		if ctx.Err() != nil {
			break
		}
		end := min(start+batch, len(urls))

		var g errgroup.Group
		for _, u := range urls[start:end] {
			result.Units++
			result.Candidates++
			g.Go(func() error {
				r.discover(ctx, u)
				return nil
			})
		}

		if !r.wait(ctx, &g) {
			result.Drained = false
			break
		}
	}

	return r.finish(ctx, result), nil
}

func (r *Runner) probeAndDownload(ctx context.Context, url string) {
	outcome := r.prober.Probe(ctx, url)
	r.agg.RecordProbe(outcome)
	r.progress()
	if !outcome.Found() {
		return
	}
	r.discover(ctx, url)
}

// discover records url and downloads it the first time it is seen.
func (r *Runner) discover(ctx context.Context, url string) {
	if !r.agg.AddDiscovered(url) {
		return
	}
	r.Metrics.IncDiscovered()
	r.agg.RecordDownload(r.downloader.Download(ctx, url))
}

// wait blocks until g finishes. After ctx is cancelled it waits at most
// DrainTimeout and reports false when tasks were still running.
func (r *Runner) wait(ctx context.Context, g *errgroup.Group) bool {
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
	}

	slog.Info("interrupt received, draining in-flight requests",
		slog.Duration("timeout", r.cfg.DrainTimeout),
		slog.Int("probes_in_flight", r.probeGate.InFlight()),
		slog.Int("downloads_in_flight", r.fetchGate.InFlight()),
	)
	timer := time.NewTimer(r.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		slog.Warn("drain timeout elapsed, abandoning in-flight requests",
			slog.Int("probes_in_flight", r.probeGate.InFlight()),
			slog.Int("downloads_in_flight", r.fetchGate.InFlight()),
		)
		return false
	}
}

func (r *Runner) finish(ctx context.Context, result *models.RunResult) *models.RunResult {
	result.EndTime = time.Now()
	result.Interrupted = ctx.Err() != nil
	return result
}

func (r *Runner) progress() {
	current := atomic.AddInt64(&r.tasks, 1)
	if current%100 == 0 {
		discovered, failed, _ := r.agg.Counts()
		slog.Debug("scraper progress",
			slog.Int64("probes", current),
			slog.Int("discovered", discovered),
			slog.Int("failed", failed),
		)
	}
}

// prepareFolders creates <root>/0 .. <root>/MaxFolderIndex-1.
func (r *Runner) prepareFolders() error {
	for folder := 0; folder < r.cfg.MaxFolderIndex; folder++ {
		dir := filepath.Join(r.outputRoot, strconv.Itoa(folder))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output folder %q: %w", dir, err)
		}
	}
	return nil
}
