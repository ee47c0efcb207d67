package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Order store backends
const (
	OrderStorePostgres = "postgres"
	OrderStoreDynamoDB = "dynamodb"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"garments"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	OrderStore       string `envconfig:"ORDER_STORE" default:"postgres"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	OrderTableName   string `envconfig:"ORDER_TABLE_NAME" default:"orders"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT" default:""` // DynamoDB Local

	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaEnabled bool   `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"order-events"`

	JWTSecret    string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	JWTTTL       time.Duration `envconfig:"JWT_TTL" default:"24h"`
	RoleCacheTTL time.Duration `envconfig:"ROLE_CACHE_TTL" default:"1h"`

	SeedData bool `envconfig:"SEED_DATA" default:"false"`
}

// Load reads the configuration from the environment, after loading .env files when
// present.
func Load(envFiles ...string) (*Config, error) {
	// Missing .env files are fine; the environment alone is enough.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.OrderStore {
	case OrderStorePostgres, OrderStoreDynamoDB:
	default:
		return fmt.Errorf("ORDER_STORE must be %q or %q, got %q", OrderStorePostgres, OrderStoreDynamoDB, c.OrderStore)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.RoleCacheTTL <= 0 {
		return fmt.Errorf("ROLE_CACHE_TTL must be positive")
	}
	return nil
}

// Brokers splits KAFKA_BROKERS into addresses
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// DatabaseDSN is the postgres connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
