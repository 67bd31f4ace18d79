package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

const DEFAULT_PORT = "8080"

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type Config struct {
	redisURL            string
	sentryDSN           string
	contentGeneratorURL string
	port                string
	gcpProject          string
	otlpEndpoint        string
	env                 environment
}

// Empty in development when the in-process store should be used
func (c *Config) RedisURL() string {
	return c.redisURL
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

// Empty when the placeholder generator should be used
func (c *Config) ContentGeneratorURL() string {
	return c.contentGeneratorURL
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) GCPProject() string {
	return c.gcpProject
}

func (c *Config) OTelEnabled() bool {
	return c.otlpEndpoint != ""
}

func (c *Config) Environment() string {
	return string(c.env)
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, redis: %t, generator: %t, otel: %t, ...}",
		string(c.env), c.port, c.redisURL != "", c.contentGeneratorURL != "", c.OTelEnabled(),
	)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}
	invalidValue := func(key, value string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, value)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("NEWSFEED_ENVIRONMENT")
	if !ok {
		return missingKey("NEWSFEED_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return invalidValue("NEWSFEED_ENVIRONMENT", rawEnv)
	}

	redisURL := os.Getenv("REDIS_URL")
	sentryDSN := os.Getenv("SENTRY_DSN")
	contentGeneratorURL := os.Getenv("CONTENT_GENERATOR_URL")
	gcpProject := os.Getenv("GCP_PROJECT")
	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	port := os.Getenv("PORT")
	if port == "" {
		port = DEFAULT_PORT
	}
	if portNumber, err := strconv.Atoi(port); err != nil || portNumber <= 0 || portNumber > 65535 {
		return invalidValue("PORT", port)
	}

	if contentGeneratorURL != "" {
		parsed, err := url.Parse(contentGeneratorURL)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return invalidValue("CONTENT_GENERATOR_URL", contentGeneratorURL)
		}
	}

	if env == production || env == staging {
		if redisURL == "" {
			return missingKey("REDIS_URL")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	return Config{
		redisURL:            redisURL,
		sentryDSN:           sentryDSN,
		contentGeneratorURL: contentGeneratorURL,
		port:                port,
		gcpProject:          gcpProject,
		otlpEndpoint:        otlpEndpoint,
		env:                 env,
	}, nil
}
