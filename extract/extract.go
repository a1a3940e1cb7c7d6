// Package extract mines known CDN asset URLs out of a local text blob.
package extract

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/aluiziolira/go-scrape-logos/brand"
)

// ErrInput marks a missing or unreadable extraction source.
var ErrInput = errors.New("extract: invalid input")

// Extractor matches https://<host>/fields/brands/... URLs.
type Extractor struct {
	pattern *regexp.Regexp
}

// New compiles the URL pattern for host.
func New(host string) *Extractor {
	expr := `https://` + regexp.QuoteMeta(host) + regexp.QuoteMeta(brand.BrandsPath) + `[^"\s']+`
	return &Extractor{pattern: regexp.MustCompile(expr)}
}

// FromText returns the image URLs found in text, deduplicated and sorted,
// along with the number of raw matches before the extension filter.
func (e *Extractor) FromText(text string) (urls []string, matched int) {
	matches := e.pattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
	}

	urls = make([]string, 0, len(seen))
	for u := range seen {
		if brand.HasImageExtension(u) {
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)
	return urls, len(seen)
}

// FromFile reads filename and extracts image URLs from it.
func (e *Extractor) FromFile(filename string) ([]string, int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read %q: %v", ErrInput, filename, err)
	}
	urls, matched := e.FromText(string(data))
	return urls, matched, nil
}
