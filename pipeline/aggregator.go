// Package pipeline accumulates run outcomes and persists run artifacts.
package pipeline

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-logos/brand"
	"github.com/aluiziolira/go-scrape-logos/models"
)

// KindCancelled labels discovered URLs whose download had not finished when
// the aggregator was sealed.
const KindCancelled = "cancelled"

// ErrAggregatorSealed is reported by Dropped once mutations arrive after
// Snapshot.
var ErrAggregatorSealed = errors.New("pipeline: aggregator sealed")

// Aggregator is the only shared mutable state of a run. All methods are safe
// for concurrent use.
type Aggregator struct {
	mu sync.Mutex

	discovered map[string]struct{}
	brands     map[string]struct{}
	failed     map[string]string // url -> error kind
	pending    map[string]struct{}

	probed      int
	absent      int
	probeErrors map[string]int
	saved       int
	savedBytes  int64

	sealed  bool
	dropped int
	now     func() time.Time
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		discovered:  make(map[string]struct{}),
		brands:      make(map[string]struct{}),
		failed:      make(map[string]string),
		pending:     make(map[string]struct{}),
		probeErrors: make(map[string]int),
		now:         time.Now,
	}
}

// AddDiscovered records a confirmed or trusted URL and its brand identifier.
// It returns true only the first time url is seen, so callers download each
// asset once. The URL stays pending until RecordDownload reports it.
func (a *Aggregator) AddDiscovered(url string) bool {
	id := brand.Identifier(url)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		a.dropped++
		return false
	}
	if _, ok := a.discovered[url]; ok {
		return false
	}
	a.discovered[url] = struct{}{}
	a.pending[url] = struct{}{}
	if id != "" {
		a.brands[id] = struct{}{}
	}
	return true
}

// RecordProbe counts a probe outcome. Absence and probe errors never touch
// the failed set.
func (a *Aggregator) RecordProbe(outcome models.ProbeOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		a.dropped++
		return
	}
	a.probed++
	switch outcome.Status {
	case models.ProbeAbsent:
		a.absent++
	case models.ProbeError:
		a.probeErrors[outcome.ErrorKind]++
	}
}

// RecordDownload folds a download outcome into the failed set or the saved
// counters.
func (a *Aggregator) RecordDownload(outcome models.DownloadOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		a.dropped++
		return
	}
	delete(a.pending, outcome.URL)
	if outcome.Success {
		a.saved++
		a.savedBytes += outcome.Bytes
		return
	}
	kind := outcome.ErrorKind
	if kind == "" {
		kind = "other"
	}
	a.failed[outcome.URL] = kind
}

// Discovered returns the discovered URLs sorted lexicographically.
func (a *Aggregator) Discovered() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sortedKeys(a.discovered)
}

// Counts returns discovered, failed and saved totals.
func (a *Aggregator) Counts() (discovered, failed, saved int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.discovered), len(a.failed), a.saved
}

// ProbeCounts returns how many probes were recorded and how many of them
// found nothing.
func (a *Aggregator) ProbeCounts() (probed, absent int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.probed, a.absent
}

// SavedBytes returns the number of asset bytes written so far.
func (a *Aggregator) SavedBytes() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.savedBytes
}

// Snapshot seals the aggregator and returns its state as a manifest. URLs
// still waiting for a download outcome are moved to the failed set with
// KindCancelled. Later mutations are dropped; Snapshot may be called again and
// returns the same content with a fresh timestamp.
func (a *Aggregator) Snapshot(interrupted bool) *models.Manifest {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	for url := range a.pending {
		a.failed[url] = KindCancelled
		delete(a.pending, url)
	}

	failedURLs := make([]string, 0, len(a.failed))
	errorsByType := make(map[string]int)
	for url, kind := range a.failed {
		failedURLs = append(failedURLs, url)
		errorsByType[kind]++
	}
	sort.Strings(failedURLs)
	for kind, n := range a.probeErrors {
		errorsByType["probe_"+kind] += n
	}
	if len(errorsByType) == 0 {
		errorsByType = nil
	}

	return &models.Manifest{
		TotalURLs:        len(a.discovered),
		TotalBrands:      len(a.brands),
		FailedDownloads:  len(a.failed),
		Timestamp:        a.now().Format(time.RFC3339),
		Brands:           sortedKeys(a.brands),
		FailedURLs:       failedURLs,
		SavedFiles:       a.saved,
		ProbedCandidates: a.probed,
		ErrorsByType:     errorsByType,
		Interrupted:      interrupted,
	}
}

// Dropped returns ErrAggregatorSealed with the number of mutations that
// arrived after Snapshot, or nil when there were none.
func (a *Aggregator) Dropped() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dropped == 0 {
		return 0, nil
	}
	return a.dropped, ErrAggregatorSealed
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
