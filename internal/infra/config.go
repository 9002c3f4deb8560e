package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"currency_switcher/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is sent on every outbound request.
	DefaultUserAgent = "CurrencySwitcher/1.0 (+https://apps.shopify.com/currency-switcher)"

	// APIPrefix is the app proxy path every storefront request arrives under.
	APIPrefix = "/apps/currency-switcher"

	defaultAddr          = "127.0.0.1:8080"
	defaultUpstreamURL   = "https://api.frankfurter.app/latest"
	defaultFlagSourceURL = "https://flagcdn.com/w80/%s.png"
	defaultFlagBaseURL   = "/assets/flags"
	defaultRateTTLMin    = 15
	defaultTimeoutSec    = 10
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수로 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr               string `yaml:"addr"`
		ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
	} `yaml:"server"`

	// API holds the endpoints the widget consumes. Empty values are derived
	// from Server.Addr.
	API struct {
		SettingsURL string `yaml:"settings_url"`
		RatesURL    string `yaml:"rates_url"`
		EditorWSURL string `yaml:"editor_ws_url"`
	} `yaml:"api"`

	Upstream struct {
		RatesURL   string `yaml:"rates_url"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"upstream"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Widget struct {
		RateTTLMin  int    `yaml:"rate_ttl_min"`
		FlagBaseURL string `yaml:"flag_base_url"`
	} `yaml:"widget"`

	Assets struct {
		Dir           string `yaml:"dir"`
		FlagSourceURL string `yaml:"flag_source_url"`
	} `yaml:"assets"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration that runs locally without a file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// An empty path skips the file and uses defaults plus the environment.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// 환경 변수 오버라이드
	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "currency-switcher"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ShutdownTimeoutSec <= 0 {
		c.Server.ShutdownTimeoutSec = defaultTimeoutSec
	}

	origin := "http://" + listenHost(c.Server.Addr)
	if c.API.SettingsURL == "" {
		c.API.SettingsURL = origin + APIPrefix + "/api/settings"
	}
	if c.API.RatesURL == "" {
		c.API.RatesURL = origin + APIPrefix + "/api/rates"
	}
	if c.API.EditorWSURL == "" {
		c.API.EditorWSURL = "ws://" + listenHost(c.Server.Addr) + APIPrefix + "/api/editor"
	}

	if c.Upstream.RatesURL == "" {
		c.Upstream.RatesURL = defaultUpstreamURL
	}
	if c.Upstream.TimeoutSec <= 0 {
		c.Upstream.TimeoutSec = defaultTimeoutSec
	}
	if c.Widget.RateTTLMin == 0 {
		c.Widget.RateTTLMin = defaultRateTTLMin
	}
	if c.Widget.FlagBaseURL == "" {
		c.Widget.FlagBaseURL = defaultFlagBaseURL
	}
	if c.Assets.FlagSourceURL == "" {
		c.Assets.FlagSourceURL = defaultFlagSourceURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// listenHost turns a listen address into something a client can dial.
func listenHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	return addr
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &domain.ConfigError{Field: "server.addr", Err: errors.New("required")}
	}

	httpURLs := []struct {
		field, value string
	}{
		{"api.settings_url", c.API.SettingsURL},
		{"api.rates_url", c.API.RatesURL},
		{"upstream.rates_url", c.Upstream.RatesURL},
	}
	for _, u := range httpURLs {
		if err := checkURL(u.value, "http", "https"); err != nil {
			return &domain.ConfigError{Field: u.field, Err: err}
		}
	}
	if err := checkURL(c.API.EditorWSURL, "ws", "wss"); err != nil {
		return &domain.ConfigError{Field: "api.editor_ws_url", Err: err}
	}

	if c.Widget.RateTTLMin <= 0 {
		return &domain.ConfigError{Field: "widget.rate_ttl_min", Err: errors.New("must be positive")}
	}
	if !strings.Contains(c.Assets.FlagSourceURL, "%s") {
		return &domain.ConfigError{Field: "assets.flag_source_url", Err: errors.New("must contain %s for the country code")}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// RateTTL is how long the widget caches a rate table.
func (c *Config) RateTTL() time.Duration {
	return time.Duration(c.Widget.RateTTLMin) * time.Minute
}

// UpstreamTimeout bounds a single upstream rates request.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSec) * time.Second
}

// ShutdownTimeout bounds graceful server shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("invalid URL %q: want %s", raw, strings.Join(schemes, " or "))
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("SWITCHER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SWITCHER_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SWITCHER_RATES_UPSTREAM"); v != "" {
		cfg.Upstream.RatesURL = v
	}
	if v := os.Getenv("SWITCHER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
