// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultAddr         = ":8080"
	DefaultOutput       = "results.txt"
	DefaultImgDir       = "img"
	DefaultFetchTimeout = 10 * time.Second
	DefaultCacheSize    = 64
	DefaultUserAgent    = "Mozilla/5.0 (compatible; shannon/1.0)"
)

type Config struct {
	Addr         string        // SHANNON_ADDR
	Output       string        // SHANNON_OUTPUT, report file
	ImgDir       string        // SHANNON_IMG_DIR, chart directory
	FetchTimeout time.Duration // SHANNON_FETCH_TIMEOUT, e.g. "10s"
	CacheSize    int           // SHANNON_CACHE_SIZE, fetched pages kept in memory
	UserAgent    string        // SHANNON_USER_AGENT
}

// Load returns the configuration from the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Addr:         DefaultAddr,
		Output:       DefaultOutput,
		ImgDir:       DefaultImgDir,
		FetchTimeout: DefaultFetchTimeout,
		CacheSize:    DefaultCacheSize,
		UserAgent:    DefaultUserAgent,
	}
	if v := getenv("SHANNON_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("SHANNON_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := getenv("SHANNON_IMG_DIR"); v != "" {
		cfg.ImgDir = v
	}
	if v := getenv("SHANNON_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := getenv("SHANNON_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("SHANNON_FETCH_TIMEOUT: invalid duration %q", v)
		}
		cfg.FetchTimeout = d
	}
	if v := getenv("SHANNON_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("SHANNON_CACHE_SIZE: invalid size %q", v)
		}
		cfg.CacheSize = n
	}
	return cfg, nil
}
