package brand

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// BrandsPath is the CDN path prefix under which logo assets live.
const BrandsPath = "/fields/brands/"

// ImageExtensions lists the asset extensions the CDN serves.
var ImageExtensions = []string{"svg", "png", "jpg", "jpeg"}

// CandidateURL renders https://<host>/fields/brands/{folder}/{stem}.{ext}.
// It never fails; a malformed stem simply yields a URL that will not resolve.
func CandidateURL(host string, folder int, stem, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return "https://" + host + BrandsPath + strconv.Itoa(folder) + "/" + stem + "." + ext
}

// Candidates enumerates variation × folder [0, maxFolder) × extension.
func Candidates(host string, variations []string, maxFolder int, exts []string) []string {
	out := make([]string, 0, len(variations)*maxFolder*len(exts))
	for _, variation := range variations {
		for folder := 0; folder < maxFolder; folder++ {
			for _, ext := range exts {
				out = append(out, CandidateURL(host, folder, variation, ext))
			}
		}
	}
	return out
}

// Identifier returns the extensionless filename of an asset URL.
func Identifier(rawURL string) string {
	name := path.Base(urlPath(rawURL))
	if name == "/" || name == "." {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// HasImageExtension reports whether rawURL ends in a known image extension.
func HasImageExtension(rawURL string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(urlPath(rawURL)), "."))
	for _, known := range ImageExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// RelativePath returns the slash-separated path of the asset below the
// brands prefix, e.g. "3/acme.svg". The result is safe to join under an
// output root.
func RelativePath(rawURL string) (string, error) {
	p := urlPath(rawURL)
	idx := strings.Index(p, BrandsPath)
	if idx < 0 {
		return "", fmt.Errorf("url %q is not below %s", rawURL, BrandsPath)
	}
	rel := p[idx+len(BrandsPath):]
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", fmt.Errorf("url %q has no filename", rawURL)
	}
	for _, segment := range strings.Split(rel, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("url %q has an unsafe path segment %q", rawURL, segment)
		}
	}
	return rel, nil
}

func urlPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
			rawURL = rawURL[:i]
		}
		return rawURL
	}
	return parsed.Path
}
