package config_test

import (
	"os"
	"testing"

	"github.com/Amund211/newsfeed/internal/config"
	"github.com/stretchr/testify/require"
)

var allVariablesExceptEnv = []string{
	"REDIS_URL",
	"SENTRY_DSN",
	"CONTENT_GENERATOR_URL",
	"PORT",
	"GCP_PROJECT",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, variable := range allVariablesExceptEnv {
		t.Setenv(variable, "")
	}
}

func setFullEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")
	t.Setenv("CONTENT_GENERATOR_URL", "https://generator.example.com/content")
	t.Setenv("PORT", "9090")
	t.Setenv("GCP_PROJECT", "newsfeed-prod")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("environment is missing", func(t *testing.T) {
		clearEnv(t)
		// Registers restoration of the variable before unsetting it
		t.Setenv("NEWSFEED_ENVIRONMENT", "")
		require.NoError(t, os.Unsetenv("NEWSFEED_ENVIRONMENT"))

		_, err := config.ConfigFromEnv()
		require.ErrorIs(t, err, config.ErrMissingRequiredValue)
		require.ErrorContains(t, err, "NEWSFEED_ENVIRONMENT")
	})

	t.Run("environment is invalid", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NEWSFEED_ENVIRONMENT", "prod")

		_, err := config.ConfigFromEnv()
		require.ErrorIs(t, err, config.ErrInvalidValue)
	})

	t.Run("development defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NEWSFEED_ENVIRONMENT", "development")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		require.True(t, conf.IsDevelopment())
		require.False(t, conf.IsProduction())
		require.False(t, conf.IsStaging())
		require.Equal(t, "development", conf.Environment())
		require.Empty(t, conf.RedisURL())
		require.Empty(t, conf.SentryDSN())
		require.Empty(t, conf.ContentGeneratorURL())
		require.Empty(t, conf.GCPProject())
		require.False(t, conf.OTelEnabled())
		require.Equal(t, config.DEFAULT_PORT, conf.Port())
	})

	t.Run("values are read correctly", func(t *testing.T) {
		for _, env := range []string{"production", "staging", "development"} {
			t.Run(env, func(t *testing.T) {
				setFullEnv(t)
				t.Setenv("NEWSFEED_ENVIRONMENT", env)

				conf, err := config.ConfigFromEnv()
				require.NoError(t, err)

				require.Equal(t, env, conf.Environment())
				require.Equal(t, env == "production", conf.IsProduction())
				require.Equal(t, env == "staging", conf.IsStaging())
				require.Equal(t, "redis://localhost:6379/0", conf.RedisURL())
				require.Equal(t, "https://key@sentry.example.com/1", conf.SentryDSN())
				require.Equal(t, "https://generator.example.com/content", conf.ContentGeneratorURL())
				require.Equal(t, "9090", conf.Port())
				require.Equal(t, "newsfeed-prod", conf.GCPProject())
				require.True(t, conf.OTelEnabled())
			})
		}
	})

	t.Run("production and staging fail when missing variables", func(t *testing.T) {
		for _, env := range []string{"production", "staging"} {
			for _, variable := range []string{"REDIS_URL", "SENTRY_DSN"} {
				t.Run(env+"/"+variable, func(t *testing.T) {
					setFullEnv(t)
					t.Setenv("NEWSFEED_ENVIRONMENT", env)
					t.Setenv(variable, "")

					_, err := config.ConfigFromEnv()
					require.ErrorIs(t, err, config.ErrMissingRequiredValue)
					require.ErrorContains(t, err, variable)
				})
			}
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := []struct {
			variable string
			value    string
		}{
			{variable: "PORT", value: "http"},
			{variable: "PORT", value: "0"},
			{variable: "PORT", value: "70000"},
			{variable: "CONTENT_GENERATOR_URL", value: "generator.example.com"},
			{variable: "CONTENT_GENERATOR_URL", value: "ftp://generator.example.com"},
		}

		for _, c := range cases {
			t.Run(c.variable+"="+c.value, func(t *testing.T) {
				setFullEnv(t)
				t.Setenv("NEWSFEED_ENVIRONMENT", "development")
				t.Setenv(c.variable, c.value)

				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrInvalidValue)
				require.ErrorContains(t, err, c.variable)
			})
		}
	})

	t.Run("non sensitive string hides secrets", func(t *testing.T) {
		setFullEnv(t)
		t.Setenv("NEWSFEED_ENVIRONMENT", "production")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		s := conf.NonSensitiveString()
		require.Contains(t, s, "production")
		require.NotContains(t, s, "sentry.example.com")
		require.NotContains(t, s, "redis://")
	})
}
