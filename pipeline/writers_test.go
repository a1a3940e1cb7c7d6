package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/aluiziolira/go-scrape-logos/models"
)

func TestURLListRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "found_urls.txt")
	urls := []string{
		"https://cdn.test/fields/brands/9/zeta.svg",
		"https://cdn.test/fields/brands/0/acme.svg",
		"https://cdn.test/fields/brands/0/acme.svg",
		"https://cdn.test/fields/brands/3/Nike_Air.svg",
	}

	writer := NewURLListWriter(path)
	if err := writer.Write(urls); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	got, err := ReadURLList(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	want := []string{
		"https://cdn.test/fields/brands/0/acme.svg",
		"https://cdn.test/fields/brands/3/Nike_Air.svg",
		"https://cdn.test/fields/brands/9/zeta.svg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip = %v, want %v", got, want)
	}
	if !sort.StringsAreSorted(got) {
		t.Fatalf("url list not sorted: %v", got)
	}
}

func TestURLListEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "found_urls.txt")
	if err := NewURLListWriter(path).Write(nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadURLList(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func TestManifestWriterSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parsing_stats.json")
	manifest := &models.Manifest{
		TotalURLs:       1,
		TotalBrands:     1,
		FailedDownloads: 0,
		Timestamp:       "2025-11-04T13:09:13Z",
		Brands:          []string{"acme"},
	}

	writer := NewManifestWriter(path)
	if err := writer.Write(manifest); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"total_urls", "total_brands", "failed_downloads", "timestamp", "brands", "failed_urls"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("manifest missing key %q: %s", key, data)
		}
	}
	if failed, ok := raw["failed_urls"].([]any); !ok || len(failed) != 0 {
		t.Fatalf("failed_urls should be an empty array, got %v", raw["failed_urls"])
	}

	decoded, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if decoded.TotalBrands != 1 || decoded.Brands[0] != "acme" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestWriteExtracted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkeess.json")
	urls := []string{
		"https://cdn.test/fields/brands/2/b.png",
		"https://cdn.test/fields/brands/1/a.svg",
	}
	if err := WriteExtracted(path, urls); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var artifact models.ExtractedURLs
	if err := json.Unmarshal(data, &artifact); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if artifact.TotalURLs != 2 || artifact.URLs[0] != urls[1] {
		t.Fatalf("artifact = %+v", artifact)
	}
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "3", "acme.svg")

	if err := WriteFileAtomic(path, []byte("<svg/>"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("<svg></svg>"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "<svg></svg>" {
		t.Fatalf("content = %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, got %d entries", len(entries))
	}
}

func TestReportWriterFlush(t *testing.T) {
	dir := t.TempDir()
	urlPath := filepath.Join(dir, "found_urls.txt")
	manifestPath := filepath.Join(dir, "parsing_stats.json")

	agg := NewAggregator()
	agg.AddDiscovered("https://cdn.test/fields/brands/3/acme.svg")
	agg.RecordDownload(models.DownloadOutcome{URL: "https://cdn.test/fields/brands/3/acme.svg", Success: true, Bytes: 6})

	writer := NewReportWriter(urlPath, manifestPath)
	if err := writer.Flush(agg, false); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	urls, err := ReadURLList(urlPath)
	if err != nil {
		t.Fatalf("read urls: %v", err)
	}
	if !reflect.DeepEqual(urls, agg.Discovered()) {
		t.Fatalf("url list %v != discovered %v", urls, agg.Discovered())
	}

	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if manifest.TotalURLs != 1 || manifest.SavedFiles != 1 || manifest.Interrupted {
		t.Fatalf("manifest = %+v", manifest)
	}
}
