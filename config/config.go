package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend   string
	MySQLUser     string
	MySQLPassword string
	MySQLHost     string
	MySQLDatabase string

	// Sessions
	JWTSecret  string
	SessionTTL time.Duration

	// Push notifications; an empty URL logs notifications instead of publishing them.
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Investment returns
	ReturnInterval time.Duration

	// Logging
	LogLevel  string
	LogPretty bool

	// SeedDemo creates the demo account on startup.
	SeedDemo bool
}

// Load reads a .env file when present and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMySQL),
		MySQLUser:     getEnv("MYSQL_USER", "root"),
		MySQLPassword: getEnv("MYSQL_PASSWORD", ""),
		MySQLHost:     getEnv("MYSQL_HOST", "127.0.0.1:3306"),
		MySQLDatabase: getEnv("MYSQL_DATABASE", "money_manager"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "notifications"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "push"),

		ReturnInterval: getEnvDuration("INVESTMENT_RETURN_INTERVAL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		SeedDemo: getEnvBool("SEED_DEMO", false),
	}
}

// Validate validates the configuration and returns all problems at once
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMySQL:
		if c.MySQLHost == "" {
			errors = append(errors, "MYSQL_HOST cannot be empty when using mysql backend")
		}
		if c.MySQLDatabase == "" {
			errors = append(errors, "MYSQL_DATABASE cannot be empty when using mysql backend")
		}
		if c.JWTSecret == "" {
			errors = append(errors, "JWT_SECRET is required when using mysql backend")
		}
	case BackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMySQL, BackendMemory))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session ttl %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReturnInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid investment return interval %v: must be at least 1 minute", c.ReturnInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN. parseTime is on so DATE and DATETIME
// columns scan into time.Time. clientFoundRows makes an UPDATE that changes
// nothing still report the matched row.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&multiStatements=true&clientFoundRows=true",
		c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLDatabase)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
