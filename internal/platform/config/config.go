// Package config loads service configuration from the environment so main
// stays lean. All knobs have development-safe defaults; production overrides
// come from NINEFOLD_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"65s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Auth configures caller authentication.
type Auth struct {
	JWTSigningKey string        `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `envconfig:"JWT_ISSUER" default:"ninefold"`
	JWTAudience   string        `envconfig:"JWT_AUDIENCE" default:"ninefold-api"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

// RateLimit configures the per-caller token buckets. Limits are requests per
// window with continuous refill.
type RateLimit struct {
	Window       time.Duration `envconfig:"WINDOW" default:"1m"`
	FreeLimit    int           `envconfig:"FREE_LIMIT" default:"60"`
	BetaLimit    int           `envconfig:"BETA_LIMIT" default:"300"`
	PremiumLimit int           `envconfig:"PREMIUM_LIMIT" default:"300"`
	Disabled     bool          `envconfig:"DISABLED" default:"false"`
}

// Classifier configures domain classification.
type Classifier struct {
	MaxQueryLen        int     `envconfig:"MAX_QUERY_LEN" default:"8192"`
	InclusionThreshold float64 `envconfig:"INCLUSION_THRESHOLD" default:"0.25"`
	FallbackDomain     string  `envconfig:"FALLBACK_DOMAIN" default:"architecture"`
}

// Routing configures dispatch planning and execution.
type Routing struct {
	MaxSpecialists     int           `envconfig:"MAX_SPECIALISTS" default:"3"`
	DominanceRatio     float64       `envconfig:"DOMINANCE_RATIO" default:"2.0"`
	CallTimeout        time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`
	OverallDeadline    time.Duration `envconfig:"OVERALL_DEADLINE" default:"60s"`
	RetryBackoff       time.Duration `envconfig:"RETRY_BACKOFF" default:"250ms"`
	FallbackSpecialist string        `envconfig:"FALLBACK_SPECIALIST" default:"rhys"`
}

// Synthesis bounds the derived confidence score.
type Synthesis struct {
	FloorConfidence float64 `envconfig:"FLOOR_CONFIDENCE" default:"0.7"`
	CeilConfidence  float64 `envconfig:"CEIL_CONFIDENCE" default:"1.0"`
	MaxDropPenalty  float64 `envconfig:"MAX_DROP_PENALTY" default:"0.15"`
}

// Cache configures the result cache.
type Cache struct {
	TTL           time.Duration `envconfig:"TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	Disabled      bool          `envconfig:"DISABLED" default:"false"`
}

// Probe configures specialist health probing.
type Probe struct {
	Interval           time.Duration `envconfig:"INTERVAL" default:"30s"`
	Timeout            time.Duration `envconfig:"TIMEOUT" default:"5s"`
	HealthyThreshold   int           `envconfig:"HEALTHY_THRESHOLD" default:"2"`
	UnhealthyThreshold int           `envconfig:"UNHEALTHY_THRESHOLD" default:"3"`
}

// Specialists configures registry seeding at startup. SeedFile points to a
// JSON list of registrations; when empty, the built-in roster is registered
// against BaseURL.
type Specialists struct {
	SeedFile string `envconfig:"SEED_FILE"`
	BaseURL  string `envconfig:"BASE_URL" default:"http://localhost:9000"`
}

// Bootstrap mints an initial API key at startup for development setups. The
// plaintext is logged once; leave CallerID empty in production.
type Bootstrap struct {
	CallerID string `envconfig:"CALLER_ID"`
	Tier     string `envconfig:"TIER" default:"free"`
}

// RedisConfig configures the optional Redis cache backend. An empty URL means
// Redis is not configured and the in-memory store is used.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// PostgresConfig configures the optional routing-decision store. An empty DSN
// keeps decisions in memory only.
type PostgresConfig struct {
	DSN string `envconfig:"DSN"`
}

// KafkaConfig configures the lifecycle event publisher. Empty brokers keep
// lifecycle events in the log only.
type KafkaConfig struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"TOPIC" default:"ninefold.lifecycle"`
}

// Config is the root configuration object.
type Config struct {
	Server      Server         `envconfig:"SERVER"`
	Auth        Auth           `envconfig:"AUTH"`
	RateLimit   RateLimit      `envconfig:"RATELIMIT"`
	Classifier  Classifier     `envconfig:"CLASSIFIER"`
	Routing     Routing        `envconfig:"ROUTING"`
	Synthesis   Synthesis      `envconfig:"SYNTHESIS"`
	Cache       Cache          `envconfig:"CACHE"`
	Probe       Probe          `envconfig:"PROBE"`
	Specialists Specialists    `envconfig:"SPECIALISTS"`
	Bootstrap   Bootstrap      `envconfig:"BOOTSTRAP"`
	Redis       RedisConfig    `envconfig:"REDIS"`
	Postgres    PostgresConfig `envconfig:"POSTGRES"`
	Kafka       KafkaConfig    `envconfig:"KAFKA"`
}

// FromEnv builds the full configuration from NINEFOLD_* environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("ninefold", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	return cfg, nil
}
