package scraper

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-logos/config"
	"github.com/gocolly/colly/v2"
)

// Keys stored on the per-request colly context.
const (
	ctxStart  = "start"
	ctxStatus = "status"
	ctxBody   = "body"
)

// newCollector builds a synchronous collector for one phase. Callers run it
// from many goroutines; each request carries its own colly.Context so the
// shared callbacks can hand status and body back to the caller.
func newCollector(cfg *config.Config, phase string, timeout time.Duration, parallelism int, insecure bool, metrics *Metrics) (*colly.Collector, error) {
	// colly truncates silently at MaxBodySize. Reading one byte past the
	// limit lets the downloader tell a full body from a cut one.
	maxBody := cfg.MaxBodySize
	if maxBody > 0 {
		maxBody++
	}
	collector := colly.NewCollector(
		colly.AllowedDomains(cfg.CDNHost),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(maxBody),
	)

	collector.SetRequestTimeout(timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: parallelism,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecure},
	})

	// Parallelism must match the gate, otherwise colly serialises requests
	// to one per host. Delay is the small pause held after each request.
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       cfg.RequestDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure %s limits: %w", phase, err)
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		metrics.IncRequest(phase)
	})

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatus, r.StatusCode)
		if phase == PhaseDownload {
			r.Ctx.Put(ctxBody, r.Body)
		}
		observe(metrics, phase, r.Ctx)
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(ctxStatus, r.StatusCode)
		observe(metrics, phase, r.Ctx)
	})

	return collector, nil
}

func observe(metrics *Metrics, phase string, ctx *colly.Context) {
	if start, ok := ctx.GetAny(ctxStart).(time.Time); ok {
		metrics.ObserveDuration(phase, time.Since(start))
	}
}

// browserHeaders returns the identity headers sent with every request.
func browserHeaders() http.Header {
	hdr := http.Header{}
	hdr.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/svg+xml,*/*;q=0.8")
	hdr.Set("Accept-Language", "en-US,en;q=0.5")
	return hdr
}

// statusFrom reads the HTTP status recorded by the collector callbacks.
func statusFrom(ctx *colly.Context) int {
	status, _ := ctx.GetAny(ctxStatus).(int)
	return status
}
