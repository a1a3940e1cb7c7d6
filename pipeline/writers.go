package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aluiziolira/go-scrape-logos/models"
)

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never observe a partial file.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	if err := ensureDir(filename); err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %q: %w", filename, err)
	}
	return nil
}

// URLListWriter persists discovered URLs one per line, sorted.
type URLListWriter struct {
	filename string
}

// NewURLListWriter returns a writer targeting filename.
func NewURLListWriter(filename string) *URLListWriter {
	return &URLListWriter{filename: filename}
}

// Write replaces the file with the sorted, deduplicated urls.
func (uw *URLListWriter) Write(urls []string) error {
	sorted := dedupeSorted(urls)

	var buf bytes.Buffer
	for _, u := range sorted {
		buf.WriteString(u)
		buf.WriteByte('\n')
	}
	if err := WriteFileAtomic(uw.filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write url list: %w", err)
	}
	return nil
}

// Validate ensures the file exists.
func (uw *URLListWriter) Validate() error {
	if _, err := os.Stat(uw.filename); err != nil {
		return fmt.Errorf("stat url list: %w", err)
	}
	return nil
}

// ReadURLList parses a file produced by URLListWriter.
func ReadURLList(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// ManifestWriter persists the run manifest as indented JSON.
type ManifestWriter struct {
	filename string
}

// NewManifestWriter returns a writer targeting filename.
func NewManifestWriter(filename string) *ManifestWriter {
	return &ManifestWriter{filename: filename}
}

// Write replaces the manifest file.
func (mw *ManifestWriter) Write(manifest *models.Manifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest is nil")
	}
	if manifest.Brands == nil {
		manifest.Brands = []string{}
	}
	if manifest.FailedURLs == nil {
		manifest.FailedURLs = []string{}
	}
	data, err := marshalIndent(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := WriteFileAtomic(mw.filename, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Validate ensures the manifest file has content.
func (mw *ManifestWriter) Validate() error {
	info, err := os.Stat(mw.filename)
	if err != nil {
		return fmt.Errorf("stat manifest: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("manifest file is empty")
	}
	return nil
}

// ReadManifest decodes a manifest written by ManifestWriter.
func ReadManifest(filename string) (*models.Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest models.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &manifest, nil
}

// WriteExtracted persists the filtered URL set of the extraction path.
func WriteExtracted(filename string, urls []string) error {
	sorted := dedupeSorted(urls)
	data, err := marshalIndent(models.ExtractedURLs{
		TotalURLs: len(sorted),
		URLs:      sorted,
	})
	if err != nil {
		return fmt.Errorf("encode extracted urls: %w", err)
	}
	if err := WriteFileAtomic(filename, data, 0o644); err != nil {
		return fmt.Errorf("write extracted urls: %w", err)
	}
	return nil
}

// marshalIndent encodes v with two-space indentation and without HTML
// escaping, matching what a person would type by hand.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dedupeSorted(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok || u == "" {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
