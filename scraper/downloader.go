package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-logos/brand"
	"github.com/aluiziolira/go-scrape-logos/config"
	"github.com/aluiziolira/go-scrape-logos/gate"
	"github.com/aluiziolira/go-scrape-logos/models"
	"github.com/aluiziolira/go-scrape-logos/pipeline"
	"github.com/gocolly/colly/v2"
)

// Downloader fetches confirmed URLs and saves them under an output root,
// reproducing the folder and filename of the URL.
type Downloader struct {
	collector *colly.Collector
	gate      *gate.Gate
	metrics   *Metrics
	root      string
	maxBody   int
}

// NewDownloader builds a downloader bounded by g that writes below root.
func NewDownloader(cfg *config.Config, g *gate.Gate, root string, metrics *Metrics) (*Downloader, error) {
	collector, err := newCollector(cfg, PhaseDownload, cfg.FetchTimeout, g.Capacity(), cfg.InsecureSkipVerify, metrics)
	if err != nil {
		return nil, err
	}
	return &Downloader{collector: collector, gate: g, metrics: metrics, root: root, maxBody: cfg.MaxBodySize}, nil
}

// SavePath returns where url is stored, or an error when the URL path cannot
// be mapped safely below the output root.
func (d *Downloader) SavePath(url string) (string, error) {
	rel, err := brand.RelativePath(url)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(rel)), nil
}

// Download fetches url and writes it to disk. Failures are reported in the
// outcome; they never abort other downloads.
func (d *Downloader) Download(ctx context.Context, url string) models.DownloadOutcome {
	outcome := models.DownloadOutcome{URL: url}

	target, err := d.SavePath(url)
	if err != nil {
		return d.fail(outcome, ErrFilesystem{Err: err})
	}

	release, err := d.gate.Acquire(ctx)
	if err != nil {
		return d.fail(outcome, err)
	}
	defer release()

	reqCtx := colly.NewContext()
	err = d.collector.Request(http.MethodGet, url, nil, reqCtx, browserHeaders())
	status := statusFrom(reqCtx)
	release()

	if err != nil || status != http.StatusOK {
		if err == nil && status == 0 {
			err = errors.New("no response recorded")
		}
		return d.fail(outcome, classifyError(err, status))
	}

	body, _ := reqCtx.GetAny(ctxBody).([]byte)
	if d.maxBody > 0 && len(body) > d.maxBody {
		return d.fail(outcome, ErrTooLarge{Limit: d.maxBody})
	}
	if err := pipeline.WriteFileAtomic(target, body, 0o644); err != nil {
		return d.fail(outcome, ErrFilesystem{Err: err})
	}

	outcome.Success = true
	outcome.Path = target
	outcome.Bytes = int64(len(body))
	d.metrics.IncOutcome(PhaseDownload, "saved")
	d.metrics.AddSavedBytes(outcome.Bytes)
	slog.Info("asset saved",
		slog.String("url", url),
		slog.String("path", target),
		slog.Int64("bytes", outcome.Bytes),
	)
	return outcome
}

func (d *Downloader) fail(outcome models.DownloadOutcome, err error) models.DownloadOutcome {
	outcome.Err = err
	outcome.ErrorKind = ErrorKind(err)
	d.metrics.IncOutcome(PhaseDownload, "failed")
	d.metrics.IncError(PhaseDownload, outcome.ErrorKind)
	slog.Error("download failed",
		slog.String("url", outcome.URL),
		slog.String("category", outcome.ErrorKind),
		slog.Any("error", err),
	)
	return outcome
}
