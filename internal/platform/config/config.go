package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Defaults come from Default, an
// optional YAML file overlays them, and environment variables win last.
type Config struct {
	Server    Server          `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Audit     AuditConfig     `yaml:"audit"`
	Browser   BrowserConfig   `yaml:"browser"`
	Sanctions SanctionsConfig `yaml:"sanctions"`
	Offshore  OffshoreConfig  `yaml:"offshore"`
	Debarment DebarmentConfig `yaml:"debarment"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	AdminToken      string        `yaml:"admin_token"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Version         string        `yaml:"version"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
	Backend     string        `yaml:"backend"` // memory or redis
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PostgresConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnMaxLife  time.Duration `yaml:"conn_max_lifetime"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AuditConfig struct {
	Backend string `yaml:"backend"` // memory, postgres or kafka
	Buffer  int    `yaml:"buffer"`
}

// BrowserConfig is the identity presented by every automated browser session.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	ExecPath       string `yaml:"exec_path"`
	UserAgent      string `yaml:"user_agent"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	Locale         string `yaml:"locale"`
	Timezone       string `yaml:"timezone"`
}

type SanctionsConfig struct {
	URL            string        `yaml:"url"`
	FormTimeout    time.Duration `yaml:"form_timeout"`
	ResultsTimeout time.Duration `yaml:"results_timeout"`
	NavTimeout     time.Duration `yaml:"navigation_timeout"`
}

type OffshoreConfig struct {
	BaseURL           string        `yaml:"base_url"`
	MaxPages          int           `yaml:"max_pages"`
	MinDelay          time.Duration `yaml:"min_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ConsentTimeout    time.Duration `yaml:"consent_timeout"`
	ChallengePhrases  []string      `yaml:"challenge_phrases"`
	DebugDir          string        `yaml:"debug_dir"`
}

type DebarmentConfig struct {
	APIURL            string        `yaml:"api_url"`
	APIKey            string        `yaml:"api_key"`
	Retries           int           `yaml:"retries"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
			Version:         "1.0.0",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		RateLimit: RateLimitConfig{
			MaxRequests: 20,
			Window:      60 * time.Second,
			Backend:     "memory",
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnMaxLife:  30 * time.Minute,
		},
		Kafka: KafkaConfig{Topic: "screening-audit"},
		Audit: AuditConfig{Backend: "memory", Buffer: 256},
		Browser: BrowserConfig{
			Headless:       true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			Locale:         "en-US",
			Timezone:       "America/New_York",
		},
		Sanctions: SanctionsConfig{
			URL:            "https://sanctionssearch.ofac.treas.gov/",
			FormTimeout:    10 * time.Second,
			ResultsTimeout: 20 * time.Second,
			NavTimeout:     60 * time.Second,
		},
		Offshore: OffshoreConfig{
			BaseURL:           "https://offshoreleaks.icij.org",
			MaxPages:          2,
			MinDelay:          4 * time.Second,
			MaxDelay:          10 * time.Second,
			NavigationTimeout: 30 * time.Second,
			ConsentTimeout:    5 * time.Second,
		},
		Debarment: DebarmentConfig{
			APIURL:            "https://apigwext.worldbank.org/dvsvc/v1.0/json/APPLICATION/ADOBE_EXPRNCE_MGR/FIRM/SANCTIONED_FIRM",
			Retries:           3,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 1,
			CacheTTL:          5 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by SCREENER_CONFIG, and the environment.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("SCREENER_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays a YAML document onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("rate_limit.backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}
	switch c.Audit.Backend {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("audit.backend postgres requires postgres.dsn")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("audit.backend kafka requires kafka.brokers")
		}
	default:
		return fmt.Errorf("unknown audit.backend %q", c.Audit.Backend)
	}
	if c.Offshore.MinDelay > c.Offshore.MaxDelay {
		return fmt.Errorf("offshore.min_delay %s exceeds max_delay %s", c.Offshore.MinDelay, c.Offshore.MaxDelay)
	}
	if c.Debarment.Retries <= 0 {
		return fmt.Errorf("debarment.retries must be positive, got %d", c.Debarment.Retries)
	}
	return nil
}
