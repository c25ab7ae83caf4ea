package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every bound variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, name := range envs {
			if old, ok := os.LookupEnv(name); ok {
				require.NoError(t, os.Unsetenv(name))
				t.Cleanup(func() { _ = os.Setenv(name, old) })
			}
		}
	}
}

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(t.TempDir())
	return v
}

func TestResolve_UnknownFallsBackToDevelopment(t *testing.T) {
	c := Resolve("staging", "/srv")
	assert.Equal(t, EnvDevelopment, c.Env)
	assert.True(t, c.Debug)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	c := Resolve("  Testing ", "/srv")
	assert.Equal(t, EnvTesting, c.Env)
	assert.Equal(t, "sqlite://:memory:", c.DatabaseURL)
	assert.Equal(t, "critical", c.LogLevel)
}

func TestResolve_SharedPaths(t *testing.T) {
	c := Resolve(EnvProduction, "/srv")
	assert.Equal(t, filepath.Join("/srv", "data"), c.DataDir)
	assert.Equal(t, filepath.Join("/srv", "backups"), c.BackupDir)
	assert.Equal(t, filepath.Join("/srv", "geotrace.log"), c.LogFile)
	assert.Equal(t, int64(16*1024*1024), c.MaxContentLength)
	assert.Equal(t, time.Hour, c.SessionLifetime)
	assert.False(t, c.Debug)
	assert.False(t, c.ExposeErrors)
}

func TestLoad_DefaultsToProductionAndRequiresSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load(newViper(t), t.TempDir())
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoad_ProductionWithSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("FLASK_PORT", "8081")

	cfg, err := Load(newViper(t), "/srv")
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "0.0.0.0:8081", cfg.Addr())
}

func TestLoad_PrefersGeotraceVariablesOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEOTRACE_ENV", "development")
	t.Setenv("FLASK_ENV", "production")
	t.Setenv("GEOTRACE_HOST", "127.0.0.1")
	t.Setenv("FLASK_HOST", "10.0.0.1")

	cfg, err := Load(newViper(t), "/srv")
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, devSecretKey, cfg.SecretKey)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLASK_ENV", "testing")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("GEOTRACE_RATE_LIMIT_RPS", "2.5")
	t.Setenv("GEOTRACE_MQTT_ENABLED", "true")
	t.Setenv("DATABASE_URL", "sqlite:///var/lib/geotrace.db")

	cfg, err := Load(newViper(t), "/srv")
	require.NoError(t, err)
	assert.Equal(t, EnvTesting, cfg.Env)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, defaultMQTTTopic, cfg.MQTT.Topic)

	path, err := cfg.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/geotrace.db", path)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yml := "env: development\nport: \"9000\"\nmqtt:\n  topic: fleet/gps\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644))

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(dir)

	cfg, err := Load(v, "/srv")
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "fleet/gps", cfg.MQTT.Topic)
	assert.Equal(t, defaultMQTTAddress, cfg.MQTT.Address)
}

func TestSQLitePath(t *testing.T) {
	c := &Config{DatabaseURL: "sqlite://:memory:"}
	p, err := c.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", p)

	c.DatabaseURL = "sqlite:///:memory:"
	p, err = c.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", p)

	c.DatabaseURL = "sqlite:///var/lib/geo.db"
	p, err = c.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/geo.db", p)

	c.DatabaseURL = "postgres://db/geo"
	_, err = c.SQLitePath()
	assert.Error(t, err)

	c.DatabaseURL = "sqlite://"
	_, err = c.SQLitePath()
	assert.Error(t, err)
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GEOTRACE_PORT=7000\nGEOTRACE_HOST=127.0.0.2\n"), 0o644))
	t.Setenv("GEOTRACE_PORT", "6000")
	t.Cleanup(func() { _ = os.Unsetenv("GEOTRACE_HOST") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "6000", os.Getenv("GEOTRACE_PORT"))
	assert.Equal(t, "127.0.0.2", os.Getenv("GEOTRACE_HOST"))
}
