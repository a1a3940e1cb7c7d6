package pipeline

import (
	"fmt"
	"sync"
)

// ReportWriter persists the URL list and the manifest of a run together.
type ReportWriter struct {
	urlWriter      *URLListWriter
	manifestWriter *ManifestWriter
	mu             sync.Mutex
}

// NewReportWriter creates a writer for both run artifacts.
func NewReportWriter(urlListFilename, manifestFilename string) *ReportWriter {
	return &ReportWriter{
		urlWriter:      NewURLListWriter(urlListFilename),
		manifestWriter: NewManifestWriter(manifestFilename),
	}
}

// Flush snapshots agg and writes both artifacts. Both writes are attempted
// even when the first fails.
func (rw *ReportWriter) Flush(agg *Aggregator, interrupted bool) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	manifest := agg.Snapshot(interrupted)
	urls := agg.Discovered()

	var errs []error
	if err := rw.urlWriter.Write(urls); err != nil {
		errs = append(errs, fmt.Errorf("url list: %w", err))
	}
	if err := rw.manifestWriter.Write(manifest); err != nil {
		errs = append(errs, fmt.Errorf("manifest: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("flush report: %v", errs)
	}
	return nil
}

// Validate checks both artifacts.
func (rw *ReportWriter) Validate() error {
	var errs []error

	if err := rw.urlWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("url list validation failed: %w", err))
	}
	if err := rw.manifestWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("manifest validation failed: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}
	return nil
}
