package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-logos/brand"
	"github.com/aluiziolira/go-scrape-logos/models"
)

func TestAggregatorConcurrentUpdates(t *testing.T) {
	agg := NewAggregator()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				url := fmt.Sprintf("https://cdn.test/fields/brands/%d/brand%d.svg", i%10, i)
				agg.RecordProbe(models.ProbeOutcome{URL: url, Status: models.ProbeFound})
				if agg.AddDiscovered(url) {
					agg.RecordDownload(models.DownloadOutcome{URL: url, Success: true, Bytes: 10})
				}
			}
		}(w)
	}
	wg.Wait()

	discovered, failed, saved := agg.Counts()
	if discovered != 100 {
		t.Fatalf("discovered = %d, want 100", discovered)
	}
	if saved != 100 {
		t.Fatalf("saved = %d, want 100 (each url downloaded once)", saved)
	}
	if failed != 0 {
		t.Fatalf("failed = %d, want 0", failed)
	}
	if got := agg.SavedBytes(); got != 1000 {
		t.Fatalf("saved bytes = %d, want 1000", got)
	}

	manifest := agg.Snapshot(false)
	if manifest.ProbedCandidates != 800 {
		t.Fatalf("probed = %d, want 800", manifest.ProbedCandidates)
	}
}

func TestAggregatorBrandIdentifiersMatchDiscovered(t *testing.T) {
	agg := NewAggregator()
	urls := []string{
		"https://cdn.test/fields/brands/3/acme.svg",
		"https://cdn.test/fields/brands/4/acme.svg",
		"https://cdn.test/fields/brands/1/Nike_Air.png",
	}
	for _, u := range urls {
		agg.AddDiscovered(u)
	}

	manifest := agg.Snapshot(false)
	want := map[string]bool{}
	for _, u := range agg.Discovered() {
		want[brand.Identifier(u)] = true
	}
	if len(manifest.Brands) != len(want) {
		t.Fatalf("brands = %v, want keys of %v", manifest.Brands, want)
	}
	for _, b := range manifest.Brands {
		if !want[b] {
			t.Fatalf("unexpected brand %q", b)
		}
	}
	if manifest.TotalURLs != 3 || manifest.TotalBrands != 2 {
		t.Fatalf("totals = %d/%d, want 3/2", manifest.TotalURLs, manifest.TotalBrands)
	}
}

func TestAggregatorAbsenceIsNotFailure(t *testing.T) {
	agg := NewAggregator()
	agg.RecordProbe(models.ProbeOutcome{URL: "u1", Status: models.ProbeAbsent, StatusCode: 500})
	agg.RecordProbe(models.ProbeOutcome{URL: "u2", Status: models.ProbeError, ErrorKind: "timeout"})

	if probed, absent := agg.ProbeCounts(); probed != 2 || absent != 1 {
		t.Fatalf("probed=%d absent=%d, want 2/1", probed, absent)
	}

	manifest := agg.Snapshot(false)
	if manifest.FailedDownloads != 0 || len(manifest.FailedURLs) != 0 {
		t.Fatalf("probe absence leaked into failures: %+v", manifest)
	}
	if manifest.ErrorsByType["probe_timeout"] != 1 {
		t.Fatalf("errors by type = %v, want probe_timeout=1", manifest.ErrorsByType)
	}
}

func TestAggregatorDownloadFailure(t *testing.T) {
	agg := NewAggregator()
	url := "https://cdn.test/fields/brands/2/acme.svg"
	agg.AddDiscovered(url)
	agg.RecordDownload(models.DownloadOutcome{URL: url, ErrorKind: "status"})

	manifest := agg.Snapshot(false)
	if manifest.FailedDownloads != 1 || manifest.FailedURLs[0] != url {
		t.Fatalf("failed = %+v", manifest)
	}
	if manifest.TotalURLs != 1 {
		t.Fatalf("confirmed-but-unfetchable url should stay discovered")
	}
	if manifest.ErrorsByType["status"] != 1 {
		t.Fatalf("errors by type = %v", manifest.ErrorsByType)
	}
}

func TestAggregatorSnapshotSeals(t *testing.T) {
	agg := NewAggregator()
	agg.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	agg.AddDiscovered("https://cdn.test/fields/brands/1/a.svg")

	manifest := agg.Snapshot(true)
	if !manifest.Interrupted {
		t.Fatalf("expected interrupted manifest")
	}
	if manifest.Timestamp != "2025-01-02T03:04:05Z" {
		t.Fatalf("timestamp = %q", manifest.Timestamp)
	}

	if agg.AddDiscovered("https://cdn.test/fields/brands/1/b.svg") {
		t.Fatalf("sealed aggregator accepted a new url")
	}
	agg.RecordDownload(models.DownloadOutcome{URL: "x"})

	n, err := agg.Dropped()
	if n != 2 || !errors.Is(err, ErrAggregatorSealed) {
		t.Fatalf("dropped = %d, %v", n, err)
	}
	if again := agg.Snapshot(true); again.TotalURLs != 1 {
		t.Fatalf("post-seal mutation changed state: %+v", again)
	}
}

func TestAggregatorSnapshotCancelsPendingDownloads(t *testing.T) {
	agg := NewAggregator()
	done := "https://cdn.test/fields/brands/1/done.svg"
	pending := "https://cdn.test/fields/brands/2/pending.svg"
	agg.AddDiscovered(done)
	agg.AddDiscovered(pending)
	agg.RecordDownload(models.DownloadOutcome{URL: done, Success: true, Bytes: 4})

	manifest := agg.Snapshot(true)
	if manifest.TotalURLs != 2 || manifest.SavedFiles != 1 {
		t.Fatalf("manifest = %+v", manifest)
	}
	if manifest.FailedDownloads != 1 || manifest.FailedURLs[0] != pending {
		t.Fatalf("failed urls = %v, want [%s]", manifest.FailedURLs, pending)
	}
	if manifest.ErrorsByType[KindCancelled] != 1 {
		t.Fatalf("errors by type = %v", manifest.ErrorsByType)
	}

	agg.RecordDownload(models.DownloadOutcome{URL: pending, Success: true, Bytes: 4})
	if again := agg.Snapshot(true); again.SavedFiles != 1 || again.FailedDownloads != 1 {
		t.Fatalf("late download changed sealed state: %+v", again)
	}
}
