// Package models defines data structures for the logo scraper.
package models

import "time"

// ProbeStatus tags the result of an existence check.
type ProbeStatus int

const (
	// ProbeAbsent means the CDN answered with something other than 200.
	ProbeAbsent ProbeStatus = iota
	// ProbeFound means the CDN answered 200.
	ProbeFound
	// ProbeError means no HTTP answer was obtained (timeout, refused, TLS).
	ProbeError
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeFound:
		return "found"
	case ProbeError:
		return "error"
	default:
		return "absent"
	}
}

// ProbeOutcome is produced per candidate URL and never persisted on its own.
type ProbeOutcome struct {
	URL        string
	Status     ProbeStatus
	StatusCode int
	ErrorKind  string
	Err        error
}

// Found reports whether the candidate exists.
func (o ProbeOutcome) Found() bool {
	return o.Status == ProbeFound
}

// DownloadOutcome describes a fetch of a confirmed URL.
type DownloadOutcome struct {
	URL       string
	Success   bool
	Path      string
	Bytes     int64
	ErrorKind string
	Err       error
}

// Manifest is the persisted summary of a run.
type Manifest struct {
	TotalURLs        int            `json:"total_urls"`
	TotalBrands      int            `json:"total_brands"`
	FailedDownloads  int            `json:"failed_downloads"`
	Timestamp        string         `json:"timestamp"`
	Brands           []string       `json:"brands"`
	FailedURLs       []string       `json:"failed_urls"`
	SavedFiles       int            `json:"saved_files"`
	ProbedCandidates int            `json:"probed_candidates"`
	ErrorsByType     map[string]int `json:"errors_by_type,omitempty"`
	Interrupted      bool           `json:"interrupted"`
}

// ExtractedURLs is the intermediate artifact of the extraction path.
type ExtractedURLs struct {
	TotalURLs int      `json:"total_urls"`
	URLs      []string `json:"urls"`
}

// RunResult holds the overall result of a run.
type RunResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Units       int // brands or extracted URLs scheduled
	Candidates  int
	Skipped     int // candidates dropped by the dedupe cache
	Interrupted bool
	Drained     bool
}
