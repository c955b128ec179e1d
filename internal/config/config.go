package config

import (
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aptscout/aptscout/internal/places"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Elastic   ElasticConfig   `yaml:"elastic" mapstructure:"elastic"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the managed Postgres backend.
type StoreConfig struct {
	DatabaseURL    string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns       int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns       int32  `yaml:"min_conns" mapstructure:"min_conns"`
	ConnectRetries int    `yaml:"connect_retries" mapstructure:"connect_retries"`
	ConnectBackoff int    `yaml:"connect_backoff_ms" mapstructure:"connect_backoff_ms"`
}

// GoogleConfig holds Google Maps Platform credentials.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeocodeConfig configures center-point geocoding.
type GeocodeConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	CachePath string `yaml:"cache_path" mapstructure:"cache_path"`
}

// PlacesConfig configures the place ingestion run.
type PlacesConfig struct {
	RadiusMeters   int     `yaml:"radius_meters" mapstructure:"radius_meters"`
	GridSize       int     `yaml:"grid_size" mapstructure:"grid_size"`
	GridSpread     float64 `yaml:"grid_spread" mapstructure:"grid_spread"`
	MaxPages       int     `yaml:"max_pages" mapstructure:"max_pages"`
	PlaceDelayMs   int     `yaml:"place_delay_ms" mapstructure:"place_delay_ms"`
	CellDelayMs    int     `yaml:"cell_delay_ms" mapstructure:"cell_delay_ms"`
	PageTokenDelay int     `yaml:"page_token_delay_ms" mapstructure:"page_token_delay_ms"`
}

// PlaceDelay returns the pause after each ingested place.
func (p PlacesConfig) PlaceDelay() time.Duration {
	return time.Duration(p.PlaceDelayMs) * time.Millisecond
}

// CellDelay returns the pause after each grid cell.
func (p PlacesConfig) CellDelay() time.Duration {
	return time.Duration(p.CellDelayMs) * time.Millisecond
}

// PageTokenWait returns how long a next_page_token needs before it is usable.
func (p PlacesConfig) PageTokenWait() time.Duration {
	return time.Duration(p.PageTokenDelay) * time.Millisecond
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SearchConfig configures natural-language search.
type SearchConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ElasticConfig configures the optional place index.
type ElasticConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Index string `yaml:"index" mapstructure:"index"`
	Sniff bool   `yaml:"sniff" mapstructure:"sniff"`
}

// AuthConfig holds the secret used to verify backend-issued JWTs.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envAliases maps config keys to the conventional variable names used by the
// hosted services, checked after the APTSCOUT_ prefixed form.
var envAliases = map[string]string{
	"store.database_url": "DATABASE_URL",
	"google.key":         "GOOGLE_MAPS_API_KEY",
	"anthropic.key":      "ANTHROPIC_API_KEY",
	"gemini.key":         "GEMINI_API_KEY",
	"auth.jwt_secret":    "SUPABASE_JWT_SECRET",
	"elastic.url":        "ELASTIC_URL",
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("APTSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := "APTSCOUT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.connect_retries", 3)
	v.SetDefault("store.connect_backoff_ms", 1000)
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.cache_path", "aptscout-geocode.db")
	v.SetDefault("places.radius_meters", places.DefaultRadiusMeters)
	v.SetDefault("places.grid_size", places.DefaultGridSize)
	v.SetDefault("places.grid_spread", places.DefaultGridSpread)
	v.SetDefault("places.max_pages", places.DefaultMaxPages)
	v.SetDefault("places.place_delay_ms", 200)
	v.SetDefault("places.cell_delay_ms", 1000)
	v.SetDefault("places.page_token_delay_ms", 2000)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("search.provider", "anthropic")
	v.SetDefault("search.max_tokens", 300)
	v.SetDefault("search.temperature", 0.7)
	v.SetDefault("elastic.index", "places")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present. Sections
// are "store", "places", "search", "server" and "elastic".
func (c *Config) Validate(section string) error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch section {
	case "store":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
	case "places":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
		require(c.Google.Key != "", "google.key is required")
		require(c.Places.RadiusMeters > 0, "places.radius_meters must be > 0")
		require(c.Places.GridSize > 0, "places.grid_size must be > 0")
		require(c.Places.MaxPages > 0, "places.max_pages must be > 0")
	case "search":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
		switch c.Search.Provider {
		case "anthropic":
			require(c.Anthropic.Key != "", "anthropic.key is required")
		case "gemini":
			require(c.Gemini.Key != "", "gemini.key is required")
		default:
			problems = append(problems, "search.provider must be anthropic or gemini")
		}
	case "server":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
		require(c.Server.Port > 0, "server.port must be > 0")
		require(c.Auth.JWTSecret != "", "auth.jwt_secret is required")
	case "elastic":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
		require(c.Elastic.URL != "", "elastic.url is required")
	default:
		return eris.Errorf("config: unknown mode %q", section)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy with every credential masked, for display.
func (c Config) Redacted() Config {
	out := c
	out.Store.DatabaseURL = mask(c.Store.DatabaseURL)
	out.Google.Key = mask(c.Google.Key)
	out.Anthropic.Key = mask(c.Anthropic.Key)
	out.Gemini.Key = mask(c.Gemini.Key)
	out.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	out.Elastic.URL = maskUserinfo(c.Elastic.URL)
	return out
}

// maskUserinfo hides the password in a URL and keeps the host readable.
func maskUserinfo(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return mask(s)
	}
	if u.User == nil {
		return s
	}
	return u.Redacted()
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
