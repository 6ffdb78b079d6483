// Package config resolves marquee configuration.
// Resolution order (later layers win):
//  1. built-in defaults
//  2. config.json (the --config path, or ./config.json when present)
//  3. environment variables (TMDB_API_TOKEN, MARQUEE_*)
//  4. CLI flags, applied by the command after Load
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultConfigFile     = "config.json"
	DefaultListen         = ":7777"
	DefaultLanguage       = "en-US"
	DefaultDebounce       = 500 * time.Millisecond
	DefaultRequestTimeout = 15 * time.Second
	DefaultRate           = 20.0
	DefaultRetryAttempts  = 3
	DefaultCacheTTLHours  = 24
	DefaultTopN           = 5
	DefaultIdleTimeout    = 30 * time.Minute
	DefaultHTTPRate       = 10.0
	DefaultHTTPBurst      = 30
	DefaultLogMaxSizeMB   = 50
	DefaultLogMaxBackups  = 3

	EnvToken          = "TMDB_API_TOKEN"
	EnvListen         = "MARQUEE_LISTEN"
	EnvLanguage       = "MARQUEE_LANGUAGE"
	EnvRankingBackend = "MARQUEE_RANKING_BACKEND"
	EnvRankingPath    = "MARQUEE_RANKING_PATH"
	EnvCacheDir       = "MARQUEE_CACHE_DIR"
	EnvRequestTimeout = "MARQUEE_REQUEST_TIMEOUT"
	EnvLogFile        = "MARQUEE_LOG_FILE"
	EnvAllowedOrigins = "MARQUEE_ALLOWED_ORIGINS"
)

// File is the on-disk representation of config.json.
type File struct {
	TMDBToken          string   `json:"tmdb_token"`
	TMDBBaseURL        string   `json:"tmdb_base_url,omitempty"`
	Language           string   `json:"language,omitempty"`
	Listen             string   `json:"listen,omitempty"`
	Debounce           string   `json:"debounce,omitempty"`
	RequestTimeout     string   `json:"request_timeout,omitempty"`
	RatePerSecond      float64  `json:"rate_per_second,omitempty"`
	RetryAttempts      *uint    `json:"retry_attempts,omitempty"`
	CacheDir           string   `json:"cache_dir,omitempty"`
	CacheTTLHours      int      `json:"cache_ttl_hours,omitempty"`
	RankingBackend     string   `json:"ranking_backend,omitempty"`
	RankingPath        string   `json:"ranking_path,omitempty"`
	TrendingTopN       int      `json:"trending_top_n,omitempty"`
	SessionIdleTimeout string   `json:"session_idle_timeout,omitempty"`
	HTTPRatePerSecond  float64  `json:"http_rate_per_second,omitempty"`
	HTTPBurst          int      `json:"http_burst,omitempty"`
	AllowedOrigins     []string `json:"allowed_origins,omitempty"`
	LogFile            string   `json:"log_file,omitempty"`
	LogMaxSizeMB       int      `json:"log_max_size_mb,omitempty"`
	LogMaxBackups      int      `json:"log_max_backups,omitempty"`
}

// Config is the fully resolved runtime configuration.
type Config struct {
	TMDBToken          string
	TMDBBaseURL        string
	Language           string
	Listen             string
	Debounce           time.Duration
	RequestTimeout     time.Duration
	RatePerSecond      float64
	RetryAttempts      uint
	CacheDir           string
	CacheTTLHours      int
	RankingBackend     string
	RankingPath        string
	TrendingTopN       int
	SessionIdleTimeout time.Duration
	HTTPRatePerSecond  float64
	HTTPBurst          int
	AllowedOrigins     []string
	LogFile            string
	LogMaxSizeMB       int
	LogMaxBackups      int

	ConfigPath string // empty when no config.json was loaded
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	cfg := &Config{
		Language:           DefaultLanguage,
		Listen:             DefaultListen,
		Debounce:           DefaultDebounce,
		RequestTimeout:     DefaultRequestTimeout,
		RatePerSecond:      DefaultRate,
		RetryAttempts:      DefaultRetryAttempts,
		CacheTTLHours:      DefaultCacheTTLHours,
		RankingBackend:     "sqlite",
		TrendingTopN:       DefaultTopN,
		SessionIdleTimeout: DefaultIdleTimeout,
		HTTPRatePerSecond:  DefaultHTTPRate,
		HTTPBurst:          DefaultHTTPBurst,
		LogMaxSizeMB:       DefaultLogMaxSizeMB,
		LogMaxBackups:      DefaultLogMaxBackups,
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.CacheDir = filepath.Join(dir, "marquee", "catalog")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.RankingPath = filepath.Join(dir, "marquee", "ranking.db")
	}
	return cfg
}

// Load resolves defaults, the config file and the environment. path names
// the config file; when empty, ./config.json is used if it exists.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigFile
	}
	f, abs, err := loadFile(path)
	switch {
	case err == nil:
		if err := applyFile(cfg, f, abs); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file is fine
	default:
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations. A missing token is reported by
// RequireToken since not every command talks to the catalog.
func (c *Config) Validate() error {
	var problems []string
	switch strings.ToLower(c.RankingBackend) {
	case "sqlite", "bolt":
	default:
		problems = append(problems, fmt.Sprintf("ranking_backend must be sqlite or bolt, got %q", c.RankingBackend))
	}
	if strings.TrimSpace(c.RankingPath) == "" {
		problems = append(problems, "ranking_path is required")
	}
	if c.Debounce < 0 {
		problems = append(problems, "debounce must not be negative")
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "request_timeout must not be negative (0 disables it)")
	}
	if c.RatePerSecond <= 0 {
		problems = append(problems, "rate_per_second must be positive")
	}
	if c.TrendingTopN <= 0 {
		problems = append(problems, "trending_top_n must be positive")
	}
	if c.HTTPRatePerSecond <= 0 || c.HTTPBurst <= 0 {
		problems = append(problems, "http_rate_per_second and http_burst must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// RequireToken returns an error explaining how to set the catalog token.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.TMDBToken) != "" {
		return nil
	}
	return errors.New(
		"TMDB API token not found.\n\n" +
			"Set it one of these ways:\n" +
			"  1. CLI flag:     marquee serve --tmdb-token TOKEN\n" +
			"  2. Environment:  export " + EnvToken + "=TOKEN\n" +
			"  3. config.json:  {\"tmdb_token\": \"TOKEN\"}",
	)
}

// RedactedToken is safe to log.
func (c *Config) RedactedToken() string {
	if len(c.TMDBToken) <= 8 {
		return "****"
	}
	return c.TMDBToken[:4] + "****" + c.TMDBToken[len(c.TMDBToken)-4:]
}

func loadFile(path string) (*File, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", abs, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", abs, err)
	}
	return &f, abs, nil
}

func applyFile(cfg *Config, f *File, path string) error {
	cfg.ConfigPath = path
	setString(&cfg.TMDBToken, f.TMDBToken)
	setString(&cfg.TMDBBaseURL, f.TMDBBaseURL)
	setString(&cfg.Language, f.Language)
	setString(&cfg.Listen, f.Listen)
	setString(&cfg.CacheDir, f.CacheDir)
	setString(&cfg.RankingBackend, f.RankingBackend)
	setString(&cfg.RankingPath, f.RankingPath)
	setString(&cfg.LogFile, f.LogFile)

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"debounce", f.Debounce, &cfg.Debounce},
		{"request_timeout", f.RequestTimeout, &cfg.RequestTimeout},
		{"session_idle_timeout", f.SessionIdleTimeout, &cfg.SessionIdleTimeout},
	} {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("%s: %s: %w", path, d.name, err)
		}
	}

	if f.RatePerSecond > 0 {
		cfg.RatePerSecond = f.RatePerSecond
	}
	if f.RetryAttempts != nil {
		cfg.RetryAttempts = *f.RetryAttempts
	}
	if f.CacheTTLHours > 0 {
		cfg.CacheTTLHours = f.CacheTTLHours
	}
	if f.TrendingTopN > 0 {
		cfg.TrendingTopN = f.TrendingTopN
	}
	if f.HTTPRatePerSecond > 0 {
		cfg.HTTPRatePerSecond = f.HTTPRatePerSecond
	}
	if f.HTTPBurst > 0 {
		cfg.HTTPBurst = f.HTTPBurst
	}
	if len(f.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.AllowedOrigins
	}
	if f.LogMaxSizeMB > 0 {
		cfg.LogMaxSizeMB = f.LogMaxSizeMB
	}
	if f.LogMaxBackups > 0 {
		cfg.LogMaxBackups = f.LogMaxBackups
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.TMDBToken, os.Getenv(EnvToken))
	setString(&cfg.Listen, os.Getenv(EnvListen))
	setString(&cfg.Language, os.Getenv(EnvLanguage))
	setString(&cfg.RankingBackend, os.Getenv(EnvRankingBackend))
	setString(&cfg.RankingPath, os.Getenv(EnvRankingPath))
	setString(&cfg.CacheDir, os.Getenv(EnvCacheDir))
	setString(&cfg.LogFile, os.Getenv(EnvLogFile))
	if err := setDuration(&cfg.RequestTimeout, os.Getenv(EnvRequestTimeout)); err != nil {
		return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAllowedOrigins)); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("750ms") or bare seconds ("15").
func setDuration(dst *time.Duration, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Template returns a File with the defaults spelled out, for `marquee config init`.
func Template() File {
	d := Defaults()
	attempts := d.RetryAttempts
	return File{
		Language:           d.Language,
		Listen:             d.Listen,
		Debounce:           d.Debounce.String(),
		RequestTimeout:     d.RequestTimeout.String(),
		RatePerSecond:      d.RatePerSecond,
		RetryAttempts:      &attempts,
		CacheTTLHours:      d.CacheTTLHours,
		RankingBackend:     d.RankingBackend,
		RankingPath:        d.RankingPath,
		TrendingTopN:       d.TrendingTopN,
		SessionIdleTimeout: d.SessionIdleTimeout.String(),
		HTTPRatePerSecond:  d.HTTPRatePerSecond,
		HTTPBurst:          d.HTTPBurst,
		LogMaxSizeMB:       d.LogMaxSizeMB,
		LogMaxBackups:      d.LogMaxBackups,
	}
}

// WriteFile serialises f to path, refusing to overwrite an existing file.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
