package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPPort    string
	ServiceName string
	CORSOrigins []string

	// Log durable (EventStore y transporte durable del bus)
	EventStoreBackend string // postgres | sqlite | mongodb | disabled
	EventStoreDSN     string
	SQLitePath        string
	MongoURI          string
	MongoDB           string

	// Broker fiable
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string
	KafkaDisabled bool

	// Pub/sub rápido
	RedisAddr     string
	RedisChannel  string
	RedisDisabled bool

	// Archivo analítico
	ClickHouseAddr     string
	ClickHouseDB       string
	ClickHouseDisabled bool

	Standalone     bool
	BatchSize      int
	ReconnectDelay time.Duration
	ArchivePeriod  time.Duration
}

func LoadConfig() *Config {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	corsOrigins := strings.Split(getEnv("CORS_ORIGINS", "*"), ",")

	return &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "eventlab"),
		CORSOrigins: corsOrigins,

		EventStoreBackend: getEnv("EVENTSTORE_BACKEND", "sqlite"),
		EventStoreDSN:     getEnv("EVENTSTORE_DSN", "postgres://localhost:5432/eventlab"),
		SQLitePath:        getEnv("SQLITE_PATH", "./eventlab_events.db"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "eventlab"),

		KafkaBrokers:  kafkaBrokers,
		KafkaTopic:    getEnv("KAFKA_TOPIC", "domain-events"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "eventlab-bus"),
		KafkaDisabled: getEnv("KAFKA_DISABLED", "") == "true",

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisChannel:  getEnv("REDIS_CHANNEL", "domain-events"),
		RedisDisabled: getEnv("REDIS_DISABLED", "") == "true",

		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:       getEnv("CLICKHOUSE_DB", "eventlab"),
		ClickHouseDisabled: getEnv("CLICKHOUSE_DISABLED", "") == "true",

		Standalone:     getEnv("STANDALONE", "") == "true",
		BatchSize:      50,
		ReconnectDelay: 5 * time.Second,
		ArchivePeriod:  2 * time.Second,
	}
}
