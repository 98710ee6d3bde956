package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Map       MapConfig       `yaml:"map" mapstructure:"map"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Fallback  FallbackConfig  `yaml:"fallback" mapstructure:"fallback"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// MapConfig holds the map tile and POI search credentials.
type MapConfig struct {
	SubscriptionKey string  `yaml:"subscription_key" mapstructure:"subscription_key"`
	DefaultLat      float64 `yaml:"default_lat" mapstructure:"default_lat"`
	DefaultLng      float64 `yaml:"default_lng" mapstructure:"default_lng"`
	DefaultZoom     int     `yaml:"default_zoom" mapstructure:"default_zoom"`
}

// SearchConfig configures the facility aggregation run.
type SearchConfig struct {
	RadiusMeters         int    `yaml:"radius_meters" mapstructure:"radius_meters"`
	OverpassRadiusMeters int    `yaml:"overpass_radius_meters" mapstructure:"overpass_radius_meters"`
	MaxResults           int    `yaml:"max_results" mapstructure:"max_results"`
	PerCallTimeoutSecs   int    `yaml:"per_call_timeout_secs" mapstructure:"per_call_timeout_secs"`
	HTTPTimeoutSecs      int    `yaml:"http_timeout_secs" mapstructure:"http_timeout_secs"`
	HTTPRetries          int    `yaml:"http_retries" mapstructure:"http_retries"`
	UserAgent            string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ProvidersConfig toggles individual data sources and overrides their
// endpoints.
type ProvidersConfig struct {
	POI      ProviderConfig `yaml:"poi" mapstructure:"poi"`
	Registry ProviderConfig `yaml:"registry" mapstructure:"registry"`
	Overpass ProviderConfig `yaml:"overpass" mapstructure:"overpass"`
	ECHO     ProviderConfig `yaml:"echo" mapstructure:"echo"`
}

// ProviderConfig configures a single data source.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CacheConfig configures the on-disk search cache.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// FallbackConfig configures the offline sample set used when every
// provider fails.
type FallbackConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is usable for the given mode
// ("search" or "serve"). Errors name every offending key.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Search.RadiusMeters <= 0 {
		problems = append(problems, "search.radius_meters must be > 0")
	}
	if c.Search.OverpassRadiusMeters <= 0 {
		problems = append(problems, "search.overpass_radius_meters must be > 0")
	}
	if c.Search.MaxResults < 0 {
		problems = append(problems, "search.max_results must be >= 0")
	}
	if c.Search.PerCallTimeoutSecs <= 0 {
		problems = append(problems, "search.per_call_timeout_secs must be > 0")
	}
	if c.Providers.POI.Enabled && c.Map.SubscriptionKey == "" {
		problems = append(problems, "map.subscription_key is required when providers.poi is enabled")
	}

	switch mode {
	case "search":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENVIROWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("map.default_lat", 47.62)
	v.SetDefault("map.default_lng", -122.35)
	v.SetDefault("map.default_zoom", 12)
	v.SetDefault("search.radius_meters", 15000)
	v.SetDefault("search.overpass_radius_meters", 50000)
	v.SetDefault("search.max_results", 0)
	v.SetDefault("search.per_call_timeout_secs", 20)
	v.SetDefault("search.http_timeout_secs", 15)
	v.SetDefault("search.http_retries", 3)
	v.SetDefault("search.user_agent", "envirowatch/1.0")
	v.SetDefault("providers.poi.enabled", true)
	v.SetDefault("providers.poi.base_url", "https://atlas.microsoft.com")
	v.SetDefault("providers.registry.enabled", true)
	v.SetDefault("providers.registry.base_url", "https://services1.arcgis.com/Hp6G80Pky0om7QvQ/arcgis/rest/services/Data_Centers/FeatureServer/0")
	v.SetDefault("providers.overpass.enabled", true)
	v.SetDefault("providers.overpass.base_url", "https://overpass-api.de")
	v.SetDefault("providers.echo.enabled", true)
	v.SetDefault("providers.echo.base_url", "https://echo.epa.gov/echo")
	v.SetDefault("cache.path", "envirowatch-cache.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("fallback.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
