package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

const EnvPrefix = "STUDYDECK"

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	AI      AIConfig      `mapstructure:"ai"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Credits CreditsConfig `mapstructure:"credits"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Redis   RedisConfig   `mapstructure:"redis"`
	OTel    OTelConfig    `mapstructure:"otel"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

type DBConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type StorageConfig struct {
	// Mode is gcs, gcs_emulator or local.
	Mode            string `mapstructure:"mode"`
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	EmulatorHost    string `mapstructure:"emulator_host"`
	LocalDir        string `mapstructure:"local_dir"`
}

type AIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type PricingConfig struct {
	USDPerCredit float64                      `mapstructure:"usd_per_credit"`
	Models       map[string]pricing.ModelRate `mapstructure:"models"`
}

type CreditsConfig struct {
	SignupBonus int `mapstructure:"signup_bonus"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type OTelConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	ServiceName string            `mapstructure:"service_name"`
	Environment string            `mapstructure:"environment"`
	Exporter    string            `mapstructure:"exporter"`
	Endpoint    string            `mapstructure:"endpoint"`
	Headers     map[string]string `mapstructure:"headers"`
	Insecure    bool              `mapstructure:"insecure"`
	SampleRatio float64           `mapstructure:"sample_ratio"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// JobsConfig governs in-flight pipeline runs. A job untouched for StaleAfter
// is failed and refunded by the sweep; zero disables the sweep.
type JobsConfig struct {
	StaleAfter        time.Duration `mapstructure:"stale_after"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	DrainTimeout      time.Duration `mapstructure:"drain_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("http.max_upload_bytes", 64<<20)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.sqlite_path", "data/studydeck.db")

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.emulator_host", "")
	v.SetDefault("storage.local_dir", "data/objects")

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", 180*time.Second)
	v.SetDefault("ai.max_retries", 2)

	v.SetDefault("pricing.usd_per_credit", pricing.DefaultUSDPerCredit)
	v.SetDefault("pricing.models", map[string]any{})

	v.SetDefault("credits.signup_bonus", 0)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "studydeck:sse")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "studydeck")
	v.SetDefault("otel.environment", "development")
	v.SetDefault("otel.exporter", "otlp")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.headers", map[string]string{})
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("jobs.stale_after", 5*time.Minute)
	v.SetDefault("jobs.sweep_interval", time.Minute)
	v.SetDefault("jobs.heartbeat_interval", time.Minute)
	v.SetDefault("jobs.drain_timeout", 2*time.Minute)
}

// LoadConfig reads defaults, an optional yaml file and STUDYDECK_* env vars,
// in increasing precedence. STUDYDECK_DB_DSN sets db.dsn.
func LoadConfig(log *logger.Logger, cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("studydeck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.studydeck")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else if log != nil {
		log.Info("Loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("db.driver must be postgres or sqlite, got %q", c.DB.Driver)
	}
	switch strings.ToLower(c.Storage.Mode) {
	case "local":
	case "gcs", "gcs_emulator":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return fmt.Errorf("storage.bucket required for storage.mode=%s", c.Storage.Mode)
		}
	default:
		return fmt.Errorf("storage.mode must be gcs, gcs_emulator or local, got %q", c.Storage.Mode)
	}
	if c.Pricing.USDPerCredit <= 0 {
		return fmt.Errorf("pricing.usd_per_credit must be positive")
	}
	if c.Credits.SignupBonus < 0 {
		return fmt.Errorf("credits.signup_bonus must not be negative")
	}
	if c.Jobs.StaleAfter < 0 || c.Jobs.DrainTimeout < 0 {
		return fmt.Errorf("jobs.stale_after and jobs.drain_timeout must not be negative")
	}
	if c.Jobs.StaleAfter > 0 && c.Jobs.HeartbeatInterval >= c.Jobs.StaleAfter {
		return fmt.Errorf("jobs.heartbeat_interval %s must be shorter than jobs.stale_after %s", c.Jobs.HeartbeatInterval, c.Jobs.StaleAfter)
	}
	return nil
}
