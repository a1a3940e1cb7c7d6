package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Run modes.
const (
	ModeGuess   = "guess"
	ModeExtract = "extract"
)

// Output roots used when OutputRoot is left empty.
const (
	DefaultGuessOutputRoot   = "downloaded_svg"
	DefaultExtractOutputRoot = "savess"
)

// Config holds scraper configuration.
type Config struct {
	CDNHost             string        `yaml:"cdn_host"`
	ProbeConcurrency    int           `yaml:"probe_concurrency"`
	DownloadConcurrency int           `yaml:"download_concurrency"`
	OutputRoot          string        `yaml:"output_root"`
	MaxFolderIndex      int           `yaml:"max_folder_index"`
	Extensions          []string      `yaml:"extensions"`
	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout"`
	RequestDelay        time.Duration `yaml:"request_delay"`
	ChunkSize           int           `yaml:"chunk_size"`
	DedupeMaxSize       int           `yaml:"dedupe_max_size"`
	DrainTimeout        time.Duration `yaml:"drain_timeout"`
	MaxBodySize         int           `yaml:"max_body_size"`
	UserAgent           string        `yaml:"user_agent"`
	InsecureSkipVerify  bool          `yaml:"insecure_skip_verify"`

	Mode          string   `yaml:"mode"` // guess or extract
	BrandsFile    string   `yaml:"brands_file"`
	Brands        []string `yaml:"brands"`
	InputFile     string   `yaml:"input_file"`
	ExtractedFile string   `yaml:"extracted_file"`
	URLListFile   string   `yaml:"url_list_file"`
	ManifestFile  string   `yaml:"manifest_file"`

	MetricsAddr string `yaml:"metrics_addr"`
	Verbose     bool   `yaml:"verbose"`
}

// DefaultConfig returns conservative defaults for the logo CDN.
func DefaultConfig() *Config {
	return &Config{
		CDNHost:             "m1.dogecdn.wtf",
		ProbeConcurrency:    5,
		DownloadConcurrency: 10,
		OutputRoot:          "",
		MaxFolderIndex:      10,
		Extensions:          []string{"svg"},
		ProbeTimeout:        10 * time.Second,
		FetchTimeout:        15 * time.Second,
		RequestDelay:        10 * time.Millisecond,
		ChunkSize:           5,
		DedupeMaxSize:       100000,
		DrainTimeout:        5 * time.Second,
		MaxBodySize:         10 * 1024 * 1024,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		InsecureSkipVerify:  true,
		Mode:                ModeGuess,
		BrandsFile:          "brands.txt",
		InputFile:           "inpars.json",
		ExtractedFile:       "linkeess.json",
		URLListFile:         "found_urls.txt",
		ManifestFile:        "parsing_stats.json",
	}
}

// ResolvedOutputRoot returns OutputRoot, falling back to the per-mode default.
func (c *Config) ResolvedOutputRoot() string {
	if c.OutputRoot != "" {
		return c.OutputRoot
	}
	if c.Mode == ModeExtract {
		return DefaultExtractOutputRoot
	}
	return DefaultGuessOutputRoot
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.CDNHost == "" {
		return fmt.Errorf("cdn host cannot be empty")
	}
	parsed, err := url.Parse("https://" + c.CDNHost)
	if err != nil {
		return fmt.Errorf("invalid cdn host: %w", err)
	}
	if parsed.Host != c.CDNHost || parsed.Path != "" {
		return fmt.Errorf("cdn host must be a bare host name, got %q", c.CDNHost)
	}

	if c.ProbeConcurrency <= 0 {
		return fmt.Errorf("probe concurrency must be positive")
	}
	if c.DownloadConcurrency <= 0 {
		return fmt.Errorf("download concurrency must be positive")
	}
	if c.MaxFolderIndex <= 0 {
		return fmt.Errorf("max folder index must be positive")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions cannot be empty")
	}
	for _, ext := range c.Extensions {
		switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
		case "svg", "png", "jpg", "jpeg":
		default:
			return fmt.Errorf("unsupported extension %q", ext)
		}
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.DrainTimeout < 0 {
		return fmt.Errorf("drain timeout cannot be negative")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	switch c.Mode {
	case ModeGuess:
		if c.BrandsFile == "" && len(c.Brands) == 0 {
			return fmt.Errorf("guess mode needs a brands file or an inline brand list")
		}
	case ModeExtract:
		if c.InputFile == "" {
			return fmt.Errorf("extract mode needs an input file")
		}
		if c.ExtractedFile == "" {
			return fmt.Errorf("extracted file cannot be empty")
		}
	default:
		return fmt.Errorf("mode must be %s or %s", ModeGuess, ModeExtract)
	}

	if c.URLListFile == "" {
		return fmt.Errorf("url list file cannot be empty")
	}
	if c.ManifestFile == "" {
		return fmt.Errorf("manifest file cannot be empty")
	}

	return nil
}
