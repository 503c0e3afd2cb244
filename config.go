package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/shopswift-api/database"
	aws_pkg "github.com/yashrajoria/shopswift-api/pkg/aws"
)

// credentialsSecret holds a flat JSON object whose keys override the
// matching environment variables.
const credentialsSecret = "shopswift/CREDENTIALS"

type Config struct {
	Port        string
	Env         string
	ServiceName string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	UserStore string // mongo | postgres
	Postgres  database.PostgresConfig

	RedisURL       string
	IdempotencyTTL time.Duration

	JWTSecret           string
	TrustGatewayHeaders bool
	AllowedOrigins      []string
	RateLimitPerMinute  int
	RateLimitBurst      int
	IPRateLimitPerMin   int
	IPRateLimitBurst    int
	RequestTimeout      time.Duration
	PlaceOrderTimeout   time.Duration

	EventPublishers  []string
	PublishTimeout   time.Duration
	KafkaBrokers     []string
	OrderEventsTopic string
	SNSOrderTopicARN string
	RabbitMQURL      string
	RabbitMQExchange string

	AWSRegion         string
	AWSEndpoint       string
	AWSAccessKeyID    string
	AWSSecretKey      string
	AWSUseSecrets     bool
	CloudWatchMetrics bool
	CloudWatchLogs    bool
	LogGroup          string
}

// secretLoader fetches a JSON secret as a map
type secretLoader func(ctx context.Context, name string) (map[string]string, error)

// LoadConfig reads .env (when present) and the environment, then applies the
// Secrets Manager override if AWS_USE_SECRETS=true.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var secrets secretLoader
	if getBool("AWS_USE_SECRETS", false) {
		secrets = func(ctx context.Context, name string) (map[string]string, error) {
			awsCfg, err := aws_pkg.LoadAWSConfig(ctx, aws_pkg.Options{
				Region:          getEnv("AWS_REGION", "us-east-1"),
				Endpoint:        os.Getenv("AWS_ENDPOINT"),
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			})
			if err != nil {
				return nil, err
			}
			return aws_pkg.NewSecretsClient(awsCfg).GetSecretMap(ctx, name)
		}
	}
	return loadConfig(context.Background(), secrets)
}

func loadConfig(ctx context.Context, secrets secretLoader) (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		Env:         getEnv("APP_ENV", "development"),
		ServiceName: getEnv("SERVICE_NAME", "shopswift-api"),

		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "shopswift"),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),

		UserStore: strings.ToLower(getEnv("USER_STORE", "mongo")),
		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},

		RedisURL:       os.Getenv("REDIS_URL"),
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		JWTSecret:           os.Getenv("JWT_SECRET"),
		TrustGatewayHeaders: getBool("TRUST_GATEWAY_HEADERS", false),
		AllowedOrigins:      getList("ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", 20),
		IPRateLimitPerMin:   getInt("IP_RATE_LIMIT_PER_MINUTE", 300),
		IPRateLimitBurst:    getInt("IP_RATE_LIMIT_BURST", 60),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		PlaceOrderTimeout:   getDuration("PLACE_ORDER_TIMEOUT", 10*time.Second),

		EventPublishers:  getList("EVENT_PUBLISHERS", ""),
		PublishTimeout:   getDuration("EVENT_PUBLISH_TIMEOUT", 2*time.Second),
		KafkaBrokers:     getList("KAFKA_BROKERS", ""),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order.events"),
		SNSOrderTopicARN: os.Getenv("SNS_ORDER_TOPIC_ARN"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "orders"),

		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:       os.Getenv("AWS_ENDPOINT"),
		AWSAccessKeyID:    os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:      os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSUseSecrets:     getBool("AWS_USE_SECRETS", false),
		CloudWatchMetrics: getBool("CLOUDWATCH_METRICS_ENABLED", false),
		CloudWatchLogs:    getBool("CLOUDWATCH_LOGS_ENABLED", false),
		LogGroup:          getEnv("CLOUDWATCH_LOG_GROUP", "/shopswift/services"),
	}

	for i, p := range cfg.EventPublishers {
		cfg.EventPublishers[i] = strings.ToLower(p)
	}

	if secrets != nil {
		values, err := secrets(ctx, credentialsSecret)
		if err != nil {
			return nil, fmt.Errorf("load secret %s: %w", credentialsSecret, err)
		}
		override(&cfg.MongoURI, values["MONGO_URI"])
		override(&cfg.JWTSecret, values["JWT_SECRET"])
		override(&cfg.Postgres.Password, values["POSTGRES_PASSWORD"])
		override(&cfg.RedisURL, values["REDIS_URL"])
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.JWTSecret == "" && !c.TrustGatewayHeaders {
		errs = append(errs, errors.New("JWT_SECRET is required unless TRUST_GATEWAY_HEADERS=true"))
	}

	switch c.UserStore {
	case "mongo":
	case "postgres":
		p := c.Postgres
		if p.Host == "" || p.User == "" || p.Password == "" || p.DBName == "" {
			errs = append(errs, errors.New("postgres config incomplete"))
		}
	default:
		errs = append(errs, fmt.Errorf("USER_STORE must be mongo or postgres, got %q", c.UserStore))
	}

	for _, p := range c.EventPublishers {
		switch p {
		case "kafka":
			if len(c.KafkaBrokers) == 0 {
				errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka publisher"))
			}
		case "sns":
			if c.SNSOrderTopicARN == "" {
				errs = append(errs, errors.New("SNS_ORDER_TOPIC_ARN is required for the sns publisher"))
			}
		case "rabbitmq":
			if c.RabbitMQURL == "" {
				errs = append(errs, errors.New("RABBITMQ_URL is required for the rabbitmq publisher"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown event publisher %q", p))
		}
	}

	if c.RateLimitBurst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be at least 1"))
	}
	return errors.Join(errs...)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

// getList splits a comma separated value, dropping blanks
func getList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
