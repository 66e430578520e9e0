package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Directions DirectionsConfig `mapstructure:"directions"`
	Chargers   ChargersConfig   `mapstructure:"chargers"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Route      RouteConfig      `mapstructure:"route"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// DirectionsConfig configures the routing provider.
type DirectionsConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// ChargersConfig configures the charger directory.
type ChargersConfig struct {
	// Source is "bolt" for the remote charger service or "postgres" for the local table.
	Source    string `mapstructure:"source"`
	BaseURL   string `mapstructure:"base_url"`
	AppToken  string `mapstructure:"app_token"`
	AuthToken string `mapstructure:"auth_token"`
	// CacheTTL is in seconds; zero disables caching.
	CacheTTL int `mapstructure:"cache_ttl"`
	// Timeout is per box query, in seconds.
	Timeout int `mapstructure:"timeout"`
	// Optional clustering parameters; zero values are not sent.
	Zoom    int     `mapstructure:"zoom"`
	MinZoom int     `mapstructure:"min_zoom"`
	MaxZoom int     `mapstructure:"max_zoom"`
	Radius  float64 `mapstructure:"radius"`
}

// DiscoveryConfig configures the on-route scan.
type DiscoveryConfig struct {
	ThresholdMeters   float64 `mapstructure:"threshold_meters"`
	MaxTriggers       int     `mapstructure:"max_triggers"`
	LegCoverage       string  `mapstructure:"leg_coverage"`
	ExploreAlternates bool    `mapstructure:"explore_alternates"`
	PadMeters         float64 `mapstructure:"pad_meters"`
}

// RouteConfig configures route requests.
type RouteConfig struct {
	// Timeout is in seconds.
	Timeout      int `mapstructure:"timeout"`
	MaxWaypoints int `mapstructure:"max_waypoints"`
}

// RouteTimeout returns the route timeout as a duration.
func (r RouteConfig) RouteTimeout() time.Duration { return time.Duration(r.Timeout) * time.Second }

// QueryTimeout returns the charger query timeout as a duration.
func (c ChargersConfig) QueryTimeout() time.Duration { return time.Duration(c.Timeout) * time.Second }

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: VOLTRIP_CHARGERS_AUTH_TOKEN → chargers.auth_token
	v.SetEnvPrefix("VOLTRIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "voltrip")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "voltrip")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "voltrip")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "corridor-survey")
	v.SetDefault("directions.base_url", "https://maps.googleapis.com/maps/api/directions/json")
	v.SetDefault("directions.api_key", "")
	v.SetDefault("chargers.source", "bolt")
	v.SetDefault("chargers.base_url", "https://bolt.revos.in")
	v.SetDefault("chargers.app_token", "")
	v.SetDefault("chargers.auth_token", "")
	v.SetDefault("chargers.cache_ttl", 300)
	v.SetDefault("chargers.timeout", 10)
	v.SetDefault("discovery.threshold_meters", 20000)
	v.SetDefault("discovery.max_triggers", 1)
	v.SetDefault("discovery.leg_coverage", "first")
	v.SetDefault("discovery.explore_alternates", true)
	v.SetDefault("discovery.pad_meters", 0)
	v.SetDefault("route.timeout", 10)
	v.SetDefault("route.max_waypoints", 25)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Directions.BaseURL == "" {
		errs = append(errs, "directions.base_url is required")
	}
	switch c.Chargers.Source {
	case "bolt":
		if c.Chargers.BaseURL == "" {
			errs = append(errs, "chargers.base_url is required for source bolt")
		}
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required for source postgres")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required for source postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("chargers.source must be bolt or postgres, got %q", c.Chargers.Source))
	}
	if c.Chargers.CacheTTL < 0 {
		errs = append(errs, "chargers.cache_ttl must not be negative")
	}
	if c.Chargers.Timeout <= 0 {
		errs = append(errs, "chargers.timeout must be positive")
	}
	if c.Discovery.ThresholdMeters <= 0 {
		errs = append(errs, "discovery.threshold_meters must be positive")
	}
	if c.Discovery.MaxTriggers <= 0 {
		errs = append(errs, "discovery.max_triggers must be positive")
	}
	if c.Discovery.LegCoverage != "first" && c.Discovery.LegCoverage != "all" {
		errs = append(errs, fmt.Sprintf("discovery.leg_coverage must be first or all, got %q", c.Discovery.LegCoverage))
	}
	if c.Discovery.PadMeters < 0 {
		errs = append(errs, "discovery.pad_meters must not be negative")
	}
	if c.Route.Timeout <= 0 {
		errs = append(errs, "route.timeout must be positive")
	}
	if c.Route.MaxWaypoints <= 0 || c.Route.MaxWaypoints > 25 {
		errs = append(errs, fmt.Sprintf("route.max_waypoints must be 1-25, got %d", c.Route.MaxWaypoints))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
