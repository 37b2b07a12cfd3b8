package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Invitation InvitationConfig `mapstructure:"invitation"`
	Email      EmailConfig      `mapstructure:"email"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"`
	Issuer            string        `mapstructure:"issuer"`
	LoginRateLimit    int           `mapstructure:"login_rate_limit"`
	VerifyBaseURL     string        `mapstructure:"verify_base_url"`
	VerificationTTL   time.Duration `mapstructure:"verification_ttl"`
}

// InvitationConfig holds invitation engine configuration.
type InvitationConfig struct {
	ExpiryDays    int           `mapstructure:"expiry_days"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	AcceptBaseURL string        `mapstructure:"accept_base_url"`
	RateLimit     int           `mapstructure:"rate_limit"`
}

// EmailConfig holds outgoing email configuration.
type EmailConfig struct {
	Provider            string        `mapstructure:"provider"` // smtp, noop
	FromAddress         string        `mapstructure:"from_address"`
	FromName            string        `mapstructure:"from_name"`
	Timeout             time.Duration `mapstructure:"timeout"`
	BreakerMaxFailures  uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenDuration time.Duration `mapstructure:"breaker_open_duration"`
	SMTP                SMTPConfig    `mapstructure:"smtp"`
}

// SMTPConfig holds SMTP server settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// StorageConfig holds object storage configuration. An empty bucket disables file uploads.
type StorageConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Bucket          string        `mapstructure:"bucket"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
	MaxFileSize     int64         `mapstructure:"max_file_size"`
}

// WebhookConfig holds identity provider webhook settings.
type WebhookConfig struct {
	IdentitySecret string        `mapstructure:"identity_secret"`
	Tolerance      time.Duration `mapstructure:"tolerance"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	// Local development convenience; absent in production.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/clusterhub")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("CLUSTERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if secret := os.Getenv("CLUSTERHUB_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("CLUSTERHUB_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("CLUSTERHUB_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if password := os.Getenv("CLUSTERHUB_SMTP_PASSWORD"); password != "" {
		cfg.Email.SMTP.Password = password
	}
	if key := os.Getenv("CLUSTERHUB_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}
	if secret := os.Getenv("CLUSTERHUB_WEBHOOK_SECRET"); secret != "" {
		cfg.Webhook.IdentitySecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.Invitation.ExpiryDays <= 0 {
		return fmt.Errorf("invitation.expiry_days must be positive, got %d", c.Invitation.ExpiryDays)
	}
	if c.Invitation.SweepInterval <= 0 {
		return fmt.Errorf("invitation.sweep_interval must be positive")
	}
	switch c.Email.Provider {
	case "smtp", "noop":
	default:
		return fmt.Errorf("unknown email.provider %q", c.Email.Provider)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "clusterhub")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.access_token_expiry", 15*time.Minute)
	v.SetDefault("auth.issuer", "clusterhub")
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.verify_base_url", "http://localhost:3000")
	v.SetDefault("auth.verification_ttl", 48*time.Hour)

	// Invitation defaults
	v.SetDefault("invitation.expiry_days", 7)
	v.SetDefault("invitation.sweep_interval", 24*time.Hour)
	v.SetDefault("invitation.accept_base_url", "http://localhost:3000")
	v.SetDefault("invitation.rate_limit", 20)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.from_address", "no-reply@clusterhub.local")
	v.SetDefault("email.from_name", "ClusterHub")
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.breaker_max_failures", 5)
	v.SetDefault("email.breaker_open_duration", time.Minute)
	v.SetDefault("email.smtp.port", 587)

	// Storage defaults
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.presign_expiry", 15*time.Minute)
	v.SetDefault("storage.max_file_size", 10*1024*1024)

	// Webhook defaults
	v.SetDefault("webhook.tolerance", 5*time.Minute)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "clusterhub")
}
