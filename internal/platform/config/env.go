package config

import (
	"fmt"
	"strconv"
	"time"

	platformstrings "screener/pkg/platform/strings"
)

// ApplyEnv overlays environment variables onto c. getenv is os.Getenv in
// production and a map lookup in tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	e := envReader{getenv: getenv}

	e.str("SCREENER_ADDR", &c.Server.Addr)
	e.str("ADMIN_API_TOKEN", &c.Server.AdminToken)
	e.dur("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	e.int("RATE_LIMIT_MAX_REQUESTS", &c.RateLimit.MaxRequests)
	e.dur("RATE_LIMIT_WINDOW", &c.RateLimit.Window)
	e.str("RATE_LIMIT_BACKEND", &c.RateLimit.Backend)

	e.str("REDIS_URL", &c.Redis.URL)
	e.str("DATABASE_URL", &c.Postgres.DSN)
	e.list("KAFKA_BROKERS", &c.Kafka.Brokers)
	e.str("KAFKA_AUDIT_TOPIC", &c.Kafka.Topic)
	e.str("AUDIT_BACKEND", &c.Audit.Backend)

	e.bool("BROWSER_HEADLESS", &c.Browser.Headless)
	e.str("BROWSER_EXEC_PATH", &c.Browser.ExecPath)

	e.int("OFFSHORE_MAX_PAGES", &c.Offshore.MaxPages)
	e.dur("OFFSHORE_MIN_DELAY", &c.Offshore.MinDelay)
	e.dur("OFFSHORE_MAX_DELAY", &c.Offshore.MaxDelay)
	e.str("OFFSHORE_DEBUG_DIR", &c.Offshore.DebugDir)

	e.str("WORLD_BANK_API_URL", &c.Debarment.APIURL)
	e.str("WORLD_BANK_API_KEY", &c.Debarment.APIKey)
	e.int("WORLD_BANK_RETRIES", &c.Debarment.Retries)

	return e.err
}

type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) str(key string, dst *string) {
	if v := e.getenv(key); v != "" {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v := e.getenv(key)
	if v == "" {
		return
	}
	*dst = platformstrings.SplitList(v)
}

func (e *envReader) int(key string, dst *int) {
	v := e.getenv(key)
	if v == "" || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (e *envReader) bool(key string, dst *bool) {
	v := e.getenv(key)
	if v == "" || e.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

func (e *envReader) dur(key string, dst *time.Duration) {
	v := e.getenv(key)
	if v == "" || e.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// bare integers are seconds
		secs, intErr := strconv.Atoi(v)
		if intErr != nil {
			e.err = fmt.Errorf("%s: %w", key, err)
			return
		}
		d = time.Duration(secs) * time.Second
	}
	*dst = d
}
