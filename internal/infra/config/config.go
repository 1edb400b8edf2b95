package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ListingsFromFixtures = "fixtures"
	ListingsFromMongo    = "mongo"
	ListingsFromS3       = "s3"

	SettlementSimulated = "simulated"
	SettlementGateway   = "gateway"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                 string
	HTTPAddr            string
	ListingsSource      string
	ListingsFixtures    string
	MongoURI            string
	MongoDB             string
	KafkaBrokers        []string
	KafkaTopicPrefix    string
	IdempotencyTTL      time.Duration
	OutboxPollInterval  time.Duration
	RetryBackoff        []time.Duration
	SettlementMode      string
	SettlementURL       string
	SettlementDelay     time.Duration
	RentalSubmitTimeout time.Duration
	S3Endpoint          string
	S3AccessKey         string
	S3SecretKey         string
	S3Bucket            string
	S3UseSSL            bool
	S3ListingsObject    string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Env:                 "dev",
		HTTPAddr:            ":8080",
		ListingsSource:      ListingsFromFixtures,
		ListingsFixtures:    "data/listings.json",
		MongoDB:             "xrent",
		IdempotencyTTL:      168 * time.Hour,
		OutboxPollInterval:  500 * time.Millisecond,
		RetryBackoff:        []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		SettlementMode:      SettlementSimulated,
		SettlementDelay:     2 * time.Second,
		RentalSubmitTimeout: 10 * time.Second,
		S3Endpoint:          "localhost:9000",
		S3AccessKey:         "minioadmin",
		S3SecretKey:         "minioadmin",
		S3Bucket:            "xrent-seed",
		S3ListingsObject:    "listings.json",
	}
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	def := Defaults()
	cfg := Config{
		Env:              getEnv("APP_ENV", def.Env),
		HTTPAddr:         getEnv("HTTP_ADDR", def.HTTPAddr),
		ListingsSource:   strings.ToLower(getEnv("LISTINGS_SOURCE", def.ListingsSource)),
		ListingsFixtures: getEnv("LISTINGS_FIXTURES", def.ListingsFixtures),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", def.MongoDB),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		SettlementMode:   strings.ToLower(getEnv("SETTLEMENT_MODE", def.SettlementMode)),
		SettlementURL:    os.Getenv("SETTLEMENT_URL"),
		S3Endpoint:       getEnv("S3_ENDPOINT", def.S3Endpoint),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", def.S3AccessKey),
		S3SecretKey:      getEnv("S3_SECRET_KEY", def.S3SecretKey),
		S3Bucket:         getEnv("S3_BUCKET", def.S3Bucket),
		S3ListingsObject: getEnv("S3_LISTINGS_OBJECT", def.S3ListingsObject),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", def.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", def.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.SettlementDelay, err = parseDurationEnv("SETTLEMENT_DELAY", def.SettlementDelay); err != nil {
		return Config{}, err
	}
	if cfg.RentalSubmitTimeout, err = parseDurationEnv("RENTAL_SUBMIT_TIMEOUT", def.RentalSubmitTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RentalSubmitTimeout <= 0 {
		return Config{}, fmt.Errorf("RENTAL_SUBMIT_TIMEOUT must be positive")
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}

	switch cfg.ListingsSource {
	case ListingsFromFixtures, ListingsFromS3:
	case ListingsFromMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when LISTINGS_SOURCE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid LISTINGS_SOURCE %q", cfg.ListingsSource)
	}
	switch cfg.SettlementMode {
	case SettlementSimulated:
	case SettlementGateway:
		if cfg.SettlementURL == "" {
			return Config{}, fmt.Errorf("SETTLEMENT_URL is required when SETTLEMENT_MODE=gateway")
		}
	default:
		return Config{}, fmt.Errorf("invalid SETTLEMENT_MODE %q", cfg.SettlementMode)
	}
	return cfg, nil
}

// MessagingEnabled reports whether events should be relayed to Kafka.
func (c Config) MessagingEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.MongoURI != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
