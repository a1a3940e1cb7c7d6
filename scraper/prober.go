package scraper

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aluiziolira/go-scrape-logos/config"
	"github.com/aluiziolira/go-scrape-logos/gate"
	"github.com/aluiziolira/go-scrape-logos/models"
	"github.com/gocolly/colly/v2"
)

// Prober checks candidate URLs with header-only requests.
type Prober struct {
	collector *colly.Collector
	gate      *gate.Gate
	metrics   *Metrics
}

// NewProber builds a prober bounded by g.
func NewProber(cfg *config.Config, g *gate.Gate, metrics *Metrics) (*Prober, error) {
	collector, err := newCollector(cfg, PhaseProbe, cfg.ProbeTimeout, g.Capacity(), false, metrics)
	if err != nil {
		return nil, err
	}
	return &Prober{collector: collector, gate: g, metrics: metrics}, nil
}

// Probe reports whether url exists. A 200 is Found, any other status is
// Absent and a request that got no answer is Error. Probe never fails the
// caller.
func (p *Prober) Probe(ctx context.Context, url string) models.ProbeOutcome {
	release, err := p.gate.Acquire(ctx)
	if err != nil {
		p.metrics.IncOutcome(PhaseProbe, models.ProbeError.String())
		return models.ProbeOutcome{URL: url, Status: models.ProbeError, ErrorKind: KindCancelled, Err: err}
	}
	defer release()

	reqCtx := colly.NewContext()
	err = p.collector.Request(http.MethodHead, url, nil, reqCtx, browserHeaders())
	status := statusFrom(reqCtx)

	outcome := models.ProbeOutcome{URL: url, StatusCode: status}
	switch {
	case err == nil && status == http.StatusOK:
		outcome.Status = models.ProbeFound
		slog.Info("candidate found", slog.String("url", url))
	case status != 0:
		outcome.Status = models.ProbeAbsent
		outcome.Err = classifyError(err, status)
		slog.Debug("candidate absent",
			slog.String("url", url),
			slog.Int("status", status),
		)
	default:
		outcome.Status = models.ProbeError
		outcome.Err = classifyError(err, 0)
		outcome.ErrorKind = ErrorKind(outcome.Err)
		p.metrics.IncError(PhaseProbe, outcome.ErrorKind)
		slog.Debug("probe failed",
			slog.String("url", url),
			slog.String("category", outcome.ErrorKind),
			slog.Any("error", err),
		)
	}

	p.metrics.IncOutcome(PhaseProbe, outcome.Status.String())
	return outcome
}
