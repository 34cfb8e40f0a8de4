// Package config loads run settings from defaults, an optional YAML file,
// a .env file, MAINURLHUNTER_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/selimozcann/mainurlhunter/internal/httpclient"
	"github.com/selimozcann/mainurlhunter/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. MAINURLHUNTER_HTTP_TIMEOUT.
const EnvPrefix = "MAINURLHUNTER"

// Defaults
const (
	defaultBaseDir = "."
	defaultWorkers = 1

	DefaultTimeout      = 15 * time.Second
	DefaultMaxRedirects = 15
)

// DefaultExcludedUnits are directories under the base dir that are never
// treated as plugin units.
var DefaultExcludedUnits = []string{
	"gradle", "CanliTV", "OxAx", "__Temel", "SineWix",
	"YouTube", "NetflixMirror", "HQPorner", "WebteIzle", "TrDiziIzle",
}

var (
	// ErrInvalidWorkers is returned when workers is below 1.
	ErrInvalidWorkers = errors.New("workers must be at least 1")
	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("http timeout must be positive")
	// ErrInvalidMaxRedirects is returned when max redirects is not positive.
	ErrInvalidMaxRedirects = errors.New("http max_redirects must be positive")
	// ErrInvalidRateLimit is returned for a negative rate limit.
	ErrInvalidRateLimit = errors.New("rate_limit must not be negative")
	// ErrInvalidLogFormat is returned for an unknown log format.
	ErrInvalidLogFormat = errors.New("log format must be console or json")
)

// HTTPConfig holds probe settings.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	Retries      int           `mapstructure:"retries"`
	UserAgent    string        `mapstructure:"user_agent"`
	// Headers are added to every probe request.
	Headers map[string]string `mapstructure:"headers"`
	Cookie  string            `mapstructure:"cookie"`
	// Proxy overrides the HTTP(S)_PROXY environment variables when set.
	Proxy    string `mapstructure:"proxy"`
	Insecure bool   `mapstructure:"insecure"`
	// FollowClientRedirects also follows meta refresh and JavaScript
	// location redirects on HTML pages.
	FollowClientRedirects bool `mapstructure:"follow_client_redirects"`
}

// ReportConfig names optional report files.
type ReportConfig struct {
	JSONL string `mapstructure:"jsonl"`
	HTML  string `mapstructure:"html"`
}

// Config is the complete run configuration.
type Config struct {
	BaseDir       string   `mapstructure:"base_dir"`
	ExcludedUnits []string `mapstructure:"excluded_units"`
	Workers       int      `mapstructure:"workers"`
	// RateLimit caps units started per second; 0 disables it.
	RateLimit float64       `mapstructure:"rate_limit"`
	DryRun    bool          `mapstructure:"dry_run"`
	Strict    bool          `mapstructure:"strict"`
	Banner    bool          `mapstructure:"banner"`
	HTTP      HTTPConfig    `mapstructure:"http"`
	Log       logger.Config `mapstructure:"log"`
	Report    ReportConfig  `mapstructure:"report"`
}

// New returns a Viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers every known key so environment overrides apply to
// all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_dir", defaultBaseDir)
	v.SetDefault("excluded_units", DefaultExcludedUnits)
	v.SetDefault("workers", defaultWorkers)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("dry_run", false)
	v.SetDefault("strict", false)
	v.SetDefault("banner", true)

	v.SetDefault("http.timeout", DefaultTimeout)
	v.SetDefault("http.max_redirects", DefaultMaxRedirects)
	v.SetDefault("http.retries", 0)
	v.SetDefault("http.user_agent", httpclient.DefaultUserAgent)
	v.SetDefault("http.headers", map[string]string{})
	v.SetDefault("http.cookie", "")
	v.SetDefault("http.proxy", "")
	v.SetDefault("http.insecure", false)
	v.SetDefault("http.follow_client_redirects", false)

	v.SetDefault("log.level", logger.DefaultLevel)
	v.SetDefault("log.format", logger.DefaultFormat)
	v.SetDefault("log.development", false)
	v.SetDefault("log.color", false)
	v.SetDefault("log.output_paths", logger.DefaultOutputPaths)

	v.SetDefault("report.jsonl", "")
	v.SetDefault("report.html", "")
}

// Load reads .env, the config file and the environment into a validated
// Config. An explicit cfgFile must exist; otherwise mainurlhunter.yaml in
// the working directory is read when present.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mainurlhunter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRateLimit, c.RateLimit)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.HTTP.Timeout)
	}
	if c.HTTP.MaxRedirects <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRedirects, c.HTTP.MaxRedirects)
	}
	if f := strings.ToLower(c.Log.Format); f != logger.FormatConsole && f != logger.FormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}

// HTTPClientConfig converts the probe settings for httpclient.New.
func (c *Config) HTTPClientConfig() (httpclient.Config, error) {
	out := httpclient.Config{
		Timeout:   c.HTTP.Timeout,
		Cookie:    c.HTTP.Cookie,
		UserAgent: c.HTTP.UserAgent,
		Insecure:  c.HTTP.Insecure,
		Retries:   c.HTTP.Retries,
	}
	if len(c.HTTP.Headers) > 0 {
		out.Headers = make(http.Header, len(c.HTTP.Headers))
		for k, val := range c.HTTP.Headers {
			out.Headers.Set(k, val)
		}
	}
	if c.HTTP.Proxy != "" {
		u, err := url.Parse(c.HTTP.Proxy)
		if err != nil {
			return out, fmt.Errorf("parse proxy %q: %w", c.HTTP.Proxy, err)
		}
		out.Proxy = http.ProxyURL(u)
	}
	return out, nil
}
