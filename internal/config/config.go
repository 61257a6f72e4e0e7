package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Kafka struct {
	Brokers    []string
	Topic      string
	Partitions int
}

type Publish struct {
	Workers int
	Timeout time.Duration
}

type Breaker struct {
	Threshold   uint32
	OpenTimeout time.Duration
	MaxHalfOpen uint32
}

type Retry struct {
	Attempts     int
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

type Config struct {
	Env           string
	HTTPAddr      string
	WebDir        string
	CacheCap      int
	CatalogFile   string
	Seed          int64
	MetricsWindow int

	Kafka   Kafka
	Publish Publish
	Breaker Breaker
	Retry   Retry
}

// Load reads the environment and fatals on error; main has nothing to recover with.
func Load() Config {
	cfg, err := load(Env())
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	return cfg
}

func load(env Lookup) (Config, error) {
	_ = godotenv.Load("env/.env")

	cfg := Config{
		Env:           strings.ToLower(env.String("APP_ENV", "dev")),
		HTTPAddr:      env.String("HTTP_ADDR", ":8081"),
		WebDir:        env.String("WEB_DIR", "web"),
		CacheCap:      env.Int("CACHE_CAP", 1000),
		CatalogFile:   env.String("CATALOG_FILE", ""),
		Seed:          env.Int64("RANDOM_SEED", 0),
		MetricsWindow: env.Int("METRICS_WINDOW", 256),

		Kafka: Kafka{
			Brokers:    env.CSV("KAFKA_BROKERS"),
			Topic:      env.String("KAFKA_TOPIC", "orders"),
			Partitions: env.Int("KAFKA_PARTITIONS", 1),
		},

		Publish: Publish{
			Workers: env.Int("PUBLISH_WORKERS", 2),
			Timeout: env.DurationMS("PUBLISH_TIMEOUT", 2*time.Second),
		},

		Breaker: Breaker{
			Threshold:   env.Uint32("BREAKER_THRESHOLD", 5),
			OpenTimeout: env.DurationMS("BREAKER_OPENTIMEOUT", 10*time.Second),
			MaxHalfOpen: env.Uint32("BREAKER_MAXHALFOPEN", 3),
		},

		Retry: Retry{
			Attempts:     env.Int("RETRY_ATTEMPTS", 5),
			Base:         env.DurationMS("RETRY_BASE", 100*time.Millisecond),
			Max:          env.DurationMS("RETRY_MAX", 5*time.Second),
			JitterFactor: env.Float64("RETRY_JITTERFACTOR", 0.3),
		},
	}

	cfg.normalize()
	return cfg, cfg.validate()
}

func (c *Config) normalize() {
	if c.CacheCap <= 0 {
		log.Printf("CACHE_CAP is %d, adjusting to 1", c.CacheCap)
		c.CacheCap = 1
	}
	if c.MetricsWindow <= 0 {
		log.Printf("METRICS_WINDOW is %d, adjusting to 1", c.MetricsWindow)
		c.MetricsWindow = 1
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 1
	}
	if c.Publish.Workers <= 0 {
		c.Publish.Workers = 1
	}
	if c.Retry.Attempts < 0 {
		log.Printf("RETRY_ATTEMPTS is %d, adjusting to 0", c.Retry.Attempts)
		c.Retry.Attempts = 0
	}
	if c.Retry.Base <= 0 {
		log.Printf("RETRY_BASE is %v, adjusting to 100ms", c.Retry.Base)
		c.Retry.Base = 100 * time.Millisecond
	}
	if c.Retry.Max < c.Retry.Base {
		log.Printf("RETRY_MAX (%v) < RETRY_BASE (%v), adjusting max to base", c.Retry.Max, c.Retry.Base)
		c.Retry.Max = c.Retry.Base
	}
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.HTTPAddr) == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		missing = append(missing, "KAFKA_TOPIC")
	}
	if len(missing) > 0 {
		return &missingEnvError{Keys: missing}
	}
	return nil
}

// PublishEnabled reports whether order events go to Kafka.
func (c Config) PublishEnabled() bool { return len(c.Kafka.Brokers) > 0 }

type missingEnvError struct{ Keys []string }

func (e *missingEnvError) Error() string {
	return "missing required envs: " + strings.Join(e.Keys, ", ")
}
