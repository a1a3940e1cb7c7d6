package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvDuration parses key as a Go duration string ("250ms", "10s").
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// ApplyEnv overlays SCRAPER_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if value, ok := EnvString("SCRAPER_CDN_HOST"); ok {
		c.CDNHost = value
	}
	if value, ok := EnvString("SCRAPER_MODE"); ok {
		c.Mode = strings.ToLower(value)
	}
	if value, ok := EnvString("SCRAPER_OUTPUT"); ok {
		c.OutputRoot = value
	}
	if value, ok := EnvString("SCRAPER_BRANDS_FILE"); ok {
		c.BrandsFile = value
	}
	if value, ok := EnvString("SCRAPER_INPUT"); ok {
		c.InputFile = value
	}
	if value, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = value
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SCRAPER_PROBE_PARALLEL", &c.ProbeConcurrency},
		{"SCRAPER_DOWNLOAD_PARALLEL", &c.DownloadConcurrency},
		{"SCRAPER_MAX_FOLDER", &c.MaxFolderIndex},
		{"SCRAPER_CHUNK_SIZE", &c.ChunkSize},
	}
	for _, item := range ints {
		value, ok, err := EnvInt(item.key)
		if err != nil {
			return err
		}
		if ok {
			*item.dst = value
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SCRAPER_PROBE_TIMEOUT", &c.ProbeTimeout},
		{"SCRAPER_FETCH_TIMEOUT", &c.FetchTimeout},
		{"SCRAPER_DELAY", &c.RequestDelay},
	}
	for _, item := range durations {
		value, ok, err := EnvDuration(item.key)
		if err != nil {
			return err
		}
		if ok {
			*item.dst = value
		}
	}

	if value, ok, err := EnvBool("SCRAPER_INSECURE"); err != nil {
		return err
	} else if ok {
		c.InsecureSkipVerify = value
	}
	return nil
}
