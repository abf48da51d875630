// Package config resolves client settings from .env and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mergington/signup/internal/store"
)

const defaultAPIURL = "http://localhost:8000"

// Config holds everything the client needs at startup.
type Config struct {
	APIURL      string
	WebURL      string
	Token       string // SIGNUP_TOKEN override, usually empty
	TokenFile   string
	LogFile     string
	HTTPTimeout time.Duration
}

// Load reads envFile (if it exists) and then the process environment.
// Variables already set in the environment are not overwritten by the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config.Load: read %s: %w", envFile, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a variable lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		APIURL: get("SIGNUP_API_URL"),
		WebURL: get("SIGNUP_WEB_URL"),
		Token:  get("SIGNUP_TOKEN"),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("config: SIGNUP_API_URL %q is not an absolute URL", cfg.APIURL)
	}
	if cfg.WebURL == "" {
		cfg.WebURL = cfg.APIURL + "/static/index.html"
	}

	cfg.TokenFile = get("SIGNUP_TOKEN_FILE")
	cfg.LogFile = get("SIGNUP_LOG_FILE")
	if cfg.TokenFile == "" || cfg.LogFile == "" {
		def, err := store.DefaultPath()
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if cfg.TokenFile == "" {
			cfg.TokenFile = def
		}
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(filepath.Dir(def), "signup.log")
		}
	}

	if raw := get("SIGNUP_HTTP_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: SIGNUP_HTTP_TIMEOUT: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("config: SIGNUP_HTTP_TIMEOUT must not be negative, got %s", d)
		}
		cfg.HTTPTimeout = d
	}
	return cfg, nil
}
