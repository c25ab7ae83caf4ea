package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment names understood by Resolve.
const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"

	defaultEnv = EnvProduction
)

// ErrMissingSecret is returned when the production profile starts without SECRET_KEY.
var ErrMissingSecret = errors.New("SECRET_KEY is required in production")

const (
	maxContentLength   = 16 << 20 // 16 MB
	sessionLifetime    = time.Hour
	devSecretKey       = "dev-key-change-in-production"
	defaultAPIPrefix   = "/api/v1"
	defaultMQTTAddress = ":1883"
	defaultMQTTTopic   = "geotrace/telemetry"
)

// Config is the runtime settings bundle for one environment.
type Config struct {
	Env         string `mapstructure:"env"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	SecretKey   string `mapstructure:"secret_key"` // signs receipt ids
	DatabaseURL string `mapstructure:"database_url"`

	DataDir      string `mapstructure:"data_dir"`
	BackupDir    string `mapstructure:"backup_dir"`
	StaticDir    string `mapstructure:"static_dir"`
	TemplatesDir string `mapstructure:"templates_dir"`

	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	MaxContentLength    int64         `mapstructure:"max_content_length"`
	Debug               bool          `mapstructure:"debug"`
	PrettyJSON          bool          `mapstructure:"pretty_json"`
	ExposeErrors        bool          `mapstructure:"expose_errors"`
	SessionLifetime     time.Duration `mapstructure:"session_lifetime"` // max age of a /ws connection
	SessionCookieSecure bool          `mapstructure:"session_cookie_secure"`

	APIPrefix      string   `mapstructure:"api_prefix"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MetricsEnabled bool     `mapstructure:"metrics_enabled"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
}

// RateLimitConfig enables a per-client token bucket when RequestsPerSecond > 0.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MQTTConfig controls the embedded broker used by devices that cannot speak HTTP.
type MQTTConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Topic   string `mapstructure:"topic"`
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// base returns the settings shared by every profile, rooted at baseDir.
func base(baseDir string) Config {
	return Config{
		Host:                "0.0.0.0",
		Port:                "5000",
		SecretKey:           devSecretKey,
		DatabaseURL:         "sqlite://" + filepath.Join(baseDir, "data.db"),
		DataDir:             filepath.Join(baseDir, "data"),
		BackupDir:           filepath.Join(baseDir, "backups"),
		StaticDir:           filepath.Join(baseDir, "web", "static"),
		TemplatesDir:        filepath.Join(baseDir, "web", "templates"),
		LogFile:             filepath.Join(baseDir, "geotrace.log"),
		LogLevel:            "info",
		MaxContentLength:    maxContentLength,
		SessionLifetime:     sessionLifetime,
		SessionCookieSecure: true,
		APIPrefix:           defaultAPIPrefix,
		CORSOrigins:         []string{"*"},
		MetricsEnabled:      true,
		RateLimit:           RateLimitConfig{Burst: 1},
		MQTT:                MQTTConfig{Address: defaultMQTTAddress, Topic: defaultMQTTTopic},
	}
}

// Profiles maps an environment name to its settings builder.
var Profiles = map[string]func(baseDir string) Config{
	EnvDevelopment: func(baseDir string) Config {
		c := base(baseDir)
		c.Env = EnvDevelopment
		c.Debug = true
		c.PrettyJSON = true
		c.ExposeErrors = true
		c.LogLevel = "debug"
		c.SessionCookieSecure = false
		return c
	},
	EnvTesting: func(baseDir string) Config {
		c := base(baseDir)
		c.Env = EnvTesting
		c.DatabaseURL = "sqlite://:memory:"
		c.LogLevel = "critical"
		c.ExposeErrors = true
		return c
	},
	EnvProduction: func(baseDir string) Config {
		c := base(baseDir)
		c.Env = EnvProduction
		c.SecretKey = ""
		return c
	},
}

// Resolve returns the profile registered under env.
// Unknown names fall back to the development profile.
func Resolve(env, baseDir string) Config {
	build, ok := Profiles[strings.ToLower(strings.TrimSpace(env))]
	if !ok {
		build = Profiles[EnvDevelopment]
	}
	return build(baseDir)
}

// envBindings lists the environment variables read for each key, in priority order.
var envBindings = map[string][]string{
	"env":                            {"GEOTRACE_ENV", "FLASK_ENV"},
	"host":                           {"GEOTRACE_HOST", "FLASK_HOST"},
	"port":                           {"GEOTRACE_PORT", "FLASK_PORT"},
	"secret_key":                     {"SECRET_KEY"},
	"database_url":                   {"DATABASE_URL"},
	"data_dir":                       {"GEOTRACE_DATA_DIR"},
	"backup_dir":                     {"GEOTRACE_BACKUP_DIR"},
	"static_dir":                     {"GEOTRACE_STATIC_DIR"},
	"templates_dir":                  {"GEOTRACE_TEMPLATES_DIR"},
	"log_file":                       {"GEOTRACE_LOG_FILE"},
	"log_level":                      {"GEOTRACE_LOG_LEVEL"},
	"cors_origins":                   {"CORS_ORIGINS"},
	"metrics_enabled":                {"GEOTRACE_METRICS_ENABLED"},
	"rate_limit.requests_per_second": {"GEOTRACE_RATE_LIMIT_RPS"},
	"rate_limit.burst":               {"GEOTRACE_RATE_LIMIT_BURST"},
	"mqtt.enabled":                   {"GEOTRACE_MQTT_ENABLED"},
	"mqtt.address":                   {"GEOTRACE_MQTT_ADDRESS"},
	"mqtt.topic":                     {"GEOTRACE_MQTT_TOPIC"},
}

// LoadDotEnv loads variables from path into the process environment,
// leaving already-set variables untouched. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load resolves the active profile and overlays the optional config file and
// environment variables read through v.
func Load(v *viper.Viper, baseDir string) (*Config, error) {
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	env := defaultEnv
	if s := v.GetString("env"); s != "" {
		env = s
	}
	profile := Resolve(env, baseDir)
	cfg := profile

	// production has no default secret; it must come from the environment or the config file.
	secretSet := v.IsSet("secret_key") && v.GetString("secret_key") != ""
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Env = profile.Env
	cfg.CORSOrigins = splitOrigins(cfg.CORSOrigins)

	if err := cfg.validate(secretSet); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate enforces per-profile invariants.
func (c *Config) validate(secretSet bool) error {
	if c.Env == EnvProduction && !secretSet {
		return ErrMissingSecret
	}
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.DataDir == "" || c.BackupDir == "" {
		return errors.New("data_dir and backup_dir must not be empty")
	}
	if c.MaxContentLength <= 0 {
		return fmt.Errorf("max_content_length must be positive, got %d", c.MaxContentLength)
	}
	return nil
}

// splitOrigins accepts both list values and a single comma-separated string.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// SQLitePath extracts the file path from a sqlite:// DATABASE_URL.
// It returns an error for other schemes.
func (c *Config) SQLitePath() (string, error) {
	const (
		scheme   = "sqlite://"
		memoryDB = ":memory:"
	)
	if !strings.HasPrefix(c.DatabaseURL, scheme) {
		return "", fmt.Errorf("unsupported DATABASE_URL %q: only sqlite:// is supported", c.DatabaseURL)
	}
	path := strings.TrimPrefix(c.DatabaseURL, scheme)
	// sqlite:///abs/path keeps its leading slash; sqlite://:memory: and
	// sqlite:///:memory: both name the in-memory database.
	if path == "/"+memoryDB {
		path = memoryDB
	}
	if path == "" {
		return "", errors.New("DATABASE_URL has no path")
	}
	return path, nil
}
