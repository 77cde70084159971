package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	S3         S3Config
	Email      EmailConfig
	Source     SourceConfig
	Matching   MatchingConfig
	Processing ProcessingConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpen         int           `mapstructure:"max_open"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds invoice snapshot cache settings.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// S3Config holds AWS S3 settings for the object storage invoice source.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// EmailConfig holds notification delivery settings.
type EmailConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
}

// SourceConfig holds invoice ingestion and ERP data settings.
type SourceConfig struct {
	Provider  string `mapstructure:"provider"`
	UploadDir string `mapstructure:"upload_dir"`
	// ERPWorkbook, when set, points at an Excel ERP export served by the
	// xlsx gateway instead of the in-memory one.
	ERPWorkbook string `mapstructure:"erp_workbook"`
}

// MatchingConfig holds the three-way match thresholds.
type MatchingConfig struct {
	AmountTolerance              float64 `mapstructure:"amount_tolerance"`
	StrictAmountTolerance        float64 `mapstructure:"strict_amount_tolerance"`
	ConfidenceThreshold          float64 `mapstructure:"confidence_threshold"`
	HighConfidenceThreshold      float64 `mapstructure:"high_confidence_threshold"`
	MinConfidenceScore           float64 `mapstructure:"min_confidence_score"`
	PartialMatchMaxDiscrepancies int     `mapstructure:"partial_match_max_discrepancies"`
	LineItemQuantityTolerance    int     `mapstructure:"line_item_quantity_tolerance"`
	PriceTolerancePercentage     float64 `mapstructure:"price_tolerance_percentage"`
}

// ProcessingConfig holds orchestrator retry and concurrency settings.
type ProcessingConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	DefaultCurrency string        `mapstructure:"default_currency"`
	Concurrency     int           `mapstructure:"concurrency"`
	GatewayTimeout  time.Duration `mapstructure:"gateway_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// RateLimitConfig holds the sliding window limits for slow invoice sources.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// Load reads configuration from environment variables with the PAYFLOW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "payflow")
	v.SetDefault("db.password", "payflow_secret")
	v.SetDefault("db.name", "payflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.conn_max_lifetime", "30m")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "payflow-invoices")
	v.SetDefault("s3.prefix", "incoming/")
	v.SetDefault("s3.endpoint", "")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@payflow.dev")
	v.SetDefault("email.from_name", "Payflow")
	v.SetDefault("email.recipients", "")

	// Source defaults
	v.SetDefault("source.provider", "fs")
	v.SetDefault("source.upload_dir", "uploads")
	v.SetDefault("source.erp_workbook", "")

	// Matching defaults
	v.SetDefault("matching.amount_tolerance", 0.01)
	v.SetDefault("matching.strict_amount_tolerance", 0.005)
	v.SetDefault("matching.confidence_threshold", 0.85)
	v.SetDefault("matching.high_confidence_threshold", 0.95)
	v.SetDefault("matching.min_confidence_score", 0.8)
	v.SetDefault("matching.partial_match_max_discrepancies", 2)
	v.SetDefault("matching.line_item_quantity_tolerance", 0)
	v.SetDefault("matching.price_tolerance_percentage", 0.001)

	// Processing defaults
	v.SetDefault("processing.max_retries", 3)
	v.SetDefault("processing.retry_delay", "1s")
	v.SetDefault("processing.default_currency", "USD")
	v.SetDefault("processing.concurrency", 5)
	v.SetDefault("processing.gateway_timeout", "30s")
	v.SetDefault("processing.poll_interval", "5s")

	// Rate limit defaults
	v.SetDefault("ratelimit.max_requests", 60)
	v.SetDefault("ratelimit.window", "60s")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                              "PAYFLOW_SERVER_PORT",
		"server.read_timeout":                      "PAYFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":                     "PAYFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":                       "PAYFLOW_SERVER_ENVIRONMENT",
		"db.host":                                  "PAYFLOW_DB_HOST",
		"db.port":                                  "PAYFLOW_DB_PORT",
		"db.user":                                  "PAYFLOW_DB_USER",
		"db.password":                              "PAYFLOW_DB_PASSWORD",
		"db.name":                                  "PAYFLOW_DB_NAME",
		"db.sslmode":                               "PAYFLOW_DB_SSLMODE",
		"db.max_open":                              "PAYFLOW_DB_MAX_OPEN",
		"db.max_idle":                              "PAYFLOW_DB_MAX_IDLE",
		"db.conn_max_lifetime":                     "PAYFLOW_DB_CONN_MAX_LIFETIME",
		"redis.addr":                               "PAYFLOW_REDIS_ADDR",
		"redis.password":                           "PAYFLOW_REDIS_PASSWORD",
		"redis.db":                                 "PAYFLOW_REDIS_DB",
		"redis.ttl":                                "PAYFLOW_REDIS_TTL",
		"s3.region":                                "PAYFLOW_S3_REGION",
		"s3.bucket":                                "PAYFLOW_S3_BUCKET",
		"s3.prefix":                                "PAYFLOW_S3_PREFIX",
		"s3.endpoint":                              "PAYFLOW_S3_ENDPOINT",
		"s3.access_key":                            "PAYFLOW_S3_ACCESS_KEY",
		"s3.secret_key":                            "PAYFLOW_S3_SECRET_KEY",
		"email.provider":                           "PAYFLOW_EMAIL_PROVIDER",
		"email.region":                             "PAYFLOW_EMAIL_REGION",
		"email.from_address":                       "PAYFLOW_EMAIL_FROM_ADDRESS",
		"email.from_name":                          "PAYFLOW_EMAIL_FROM_NAME",
		"email.recipients":                         "PAYFLOW_EMAIL_RECIPIENTS",
		"source.provider":                          "PAYFLOW_SOURCE_PROVIDER",
		"source.upload_dir":                        "PAYFLOW_SOURCE_UPLOAD_DIR",
		"source.erp_workbook":                      "PAYFLOW_SOURCE_ERP_WORKBOOK",
		"matching.amount_tolerance":                "PAYFLOW_MATCHING_AMOUNT_TOLERANCE",
		"matching.strict_amount_tolerance":         "PAYFLOW_MATCHING_STRICT_AMOUNT_TOLERANCE",
		"matching.confidence_threshold":            "PAYFLOW_MATCHING_CONFIDENCE_THRESHOLD",
		"matching.high_confidence_threshold":       "PAYFLOW_MATCHING_HIGH_CONFIDENCE_THRESHOLD",
		"matching.min_confidence_score":            "PAYFLOW_MATCHING_MIN_CONFIDENCE_SCORE",
		"matching.partial_match_max_discrepancies": "PAYFLOW_MATCHING_PARTIAL_MATCH_MAX_DISCREPANCIES",
		"matching.line_item_quantity_tolerance":    "PAYFLOW_MATCHING_LINE_ITEM_QUANTITY_TOLERANCE",
		"matching.price_tolerance_percentage":      "PAYFLOW_MATCHING_PRICE_TOLERANCE_PERCENTAGE",
		"processing.max_retries":                   "PAYFLOW_PROCESSING_MAX_RETRIES",
		"processing.retry_delay":                   "PAYFLOW_PROCESSING_RETRY_DELAY",
		"processing.default_currency":              "PAYFLOW_PROCESSING_DEFAULT_CURRENCY",
		"processing.concurrency":                   "PAYFLOW_PROCESSING_CONCURRENCY",
		"processing.gateway_timeout":               "PAYFLOW_PROCESSING_GATEWAY_TIMEOUT",
		"processing.poll_interval":                 "PAYFLOW_PROCESSING_POLL_INTERVAL",
		"ratelimit.max_requests":                   "PAYFLOW_RATELIMIT_MAX_REQUESTS",
		"ratelimit.window":                         "PAYFLOW_RATELIMIT_WINDOW",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Comma-split env lists carry whitespace and trailing empties.
	if len(cfg.Email.Recipients) > 0 {
		var recipients []string
		for _, r := range cfg.Email.Recipients {
			if r = strings.TrimSpace(r); r != "" {
				recipients = append(recipients, r)
			}
		}
		cfg.Email.Recipients = recipients
	}

	return &cfg, nil
}
