package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cast"
)

// Config holds application settings loaded from environment variables.
type Config struct {
	Port        string
	SchemaPath  string
	SchemaWatch bool
	UpstreamURL string

	Estimator           string
	FieldComplexity     int
	DefaultComplexity   int
	ArgumentMultipliers []string
	ComplexityDirective string

	CountArgName         string
	CountMissingArgValue int

	MaxComplexity    int
	MaxDepth         int
	ParseCacheSize   int
	ConcurrencyLimit int

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether schema updates should be consumed from Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables and returns it,
// or an error if required values are missing or invalid.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                sharedcfg.EnvOrDefault("PORT", "8080"),
		SchemaPath:          sharedcfg.EnvOrDefault("SCHEMA_PATH", ""),
		UpstreamURL:         sharedcfg.EnvOrDefault("UPSTREAM_URL", ""),
		Estimator:           sharedcfg.EnvOrDefault("ESTIMATOR", "simple"),
		ArgumentMultipliers: splitList(sharedcfg.EnvOrDefault("ARGUMENT_MULTIPLIERS", "first,last,limit")),
		ComplexityDirective: sharedcfg.EnvOrDefault("COMPLEXITY_DIRECTIVE", "complexity"),
		CountArgName:        "first",
		KafkaTopic:          sharedcfg.EnvOrDefault("KAFKA_TOPIC", "graphql-schemas"),
		KafkaGroupID:        sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "graphql-complexity-gateway"),
		LogLevel:            sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:     shutdownTimeout,
	}

	// An explicitly empty COUNT_ARG_NAME disables list multipliers.
	if v, ok := os.LookupEnv("COUNT_ARG_NAME"); ok {
		cfg.CountArgName = strings.TrimSpace(v)
	}
	if brokers := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	ints := []struct {
		key  string
		def  int
		dst  *int
		desc string
	}{
		{"FIELD_COMPLEXITY", 1, &cfg.FieldComplexity, "non-negative"},
		{"DEFAULT_COMPLEXITY", 1, &cfg.DefaultComplexity, "non-negative"},
		{"COUNT_MISSING_ARG_VALUE", 1, &cfg.CountMissingArgValue, "non-negative"},
		{"MAX_COMPLEXITY", 1000, &cfg.MaxComplexity, "non-negative (0 disables the limit)"},
		{"MAX_DEPTH", 15, &cfg.MaxDepth, "non-negative (0 disables the limit)"},
		{"PARSE_CACHE_SIZE", 256, &cfg.ParseCacheSize, "non-negative"},
		{"CONCURRENCY_LIMIT", 100, &cfg.ConcurrencyLimit, "non-negative (0 disables the limit)"},
	}
	for _, i := range ints {
		v, err := parseInt(i.key, i.def)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%s must be %s, got %d", i.key, i.desc, v)
		}
		*i.dst = v
	}

	watch, err := cast.ToBoolE(sharedcfg.EnvOrDefault("SCHEMA_WATCH", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEMA_WATCH: %w", err)
	}
	cfg.SchemaWatch = watch

	if cfg.SchemaPath == "" {
		return nil, errors.New("SCHEMA_PATH is required")
	}
	switch strings.ToLower(cfg.Estimator) {
	case "simple", "directive", "arguments":
	default:
		return nil, fmt.Errorf("ESTIMATOR must be one of simple, directive, arguments, got %q", cfg.Estimator)
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseInt(key string, def int) (int, error) {
	raw := sharedcfg.EnvOrDefault(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := cast.ToIntE(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
