package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AWS     AWSConfig
	Elastic ElasticConfig
	HTTP    HTTPConfig
	Logging LoggingConfig
	Drain   DrainConfig
	Reduce  ReduceConfig
}

type AWSConfig struct {
	Queue  string
	Bucket string
}

type ElasticConfig struct {
	Host string
	Auth string
}

type HTTPConfig struct {
	ListenAddr string
	BasicAuth  string
}

type LoggingConfig struct {
	Level string
}

type DrainConfig struct {
	MaxBatch int
	TotalCap int
}

type ReduceConfig struct {
	MaxFiles int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// scheduler-invoked binaries get their environment directly
		log.Println("no .env file found, using process environment")
	}
	return &Config{
		AWS: AWSConfig{
			Queue:  getEnv("AWS_QUEUE", ""),
			Bucket: getEnv("AWS_BUCKET", ""),
		},
		Elastic: ElasticConfig{
			Host: getEnv("ELASTIC_MESSAGE_PROCESSOR_HOST", ""),
			Auth: getEnv("ELASTIC_MESSAGE_PROCESSOR_AUTH", ""),
		},
		HTTP: HTTPConfig{
			ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
			BasicAuth:  getEnv("BASIC_AUTH", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Drain: DrainConfig{
			MaxBatch: getEnvInt("DRAIN_MAX_BATCH", 10),
			TotalCap: getEnvInt("DRAIN_TOTAL_CAP", 250),
		},
		Reduce: ReduceConfig{
			MaxFiles: getEnvInt("REDUCE_MAX_FILES", 5000),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
