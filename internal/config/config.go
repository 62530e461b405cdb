package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	RefreshSecret string `mapstructure:"refresh_secret" envconfig:"JWT_REFRESH_SECRET"`
	ExpiryHours   int    `mapstructure:"expiry_hours"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" envconfig:"REDIS_URL"`
}

// SMTPConfig configures direct mail transport. The channel is available
// only when host, username and password are all set.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
}

// SendGridConfig configures the SendGrid v3 mail API. BaseURL exists for
// tests and defaults to the public endpoint when empty.
type SendGridConfig struct {
	APIKey  string `mapstructure:"api_key" envconfig:"SENDGRID_API_KEY"`
	BaseURL string `mapstructure:"base_url"`
}

// FormRelayConfig configures the hosted form relay (Formspree-style).
type FormRelayConfig struct {
	FormID  string `mapstructure:"form_id" envconfig:"FORMRELAY_ID"`
	BaseURL string `mapstructure:"base_url"`
}

// ContactConfig holds the addresses the delivery pipeline sends to and
// the address visitors are told to use when every channel fails.
type ContactConfig struct {
	FromAddress   string `mapstructure:"from_address" envconfig:"EMAIL_FROM" validate:"omitempty,email"`
	ToAddress     string `mapstructure:"to_address" envconfig:"EMAIL_TO" validate:"omitempty,email"`
	DirectAddress string `mapstructure:"direct_address" envconfig:"EMAIL_DIRECT" validate:"omitempty,email"`
}

type DeliveryConfig struct {
	// FailureStatusMode selects the HTTP shape of a total delivery
	// failure: "ok" answers 200 with success=false, "error" answers 500.
	FailureStatusMode  string        `mapstructure:"failure_status_mode" validate:"omitempty,oneof=ok error"`
	ChannelTimeout     time.Duration `mapstructure:"channel_timeout"`
	ReconcileInterval  time.Duration `mapstructure:"reconcile_interval"`
	ReconcileThreshold time.Duration `mapstructure:"reconcile_threshold"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	SendGrid  SendGridConfig  `mapstructure:"sendgrid"`
	FormRelay FormRelayConfig `mapstructure:"form_relay"`
	Contact   ContactConfig   `mapstructure:"contact"`
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// LoadConfig reads config.yml via viper, then overlays credentials from
// SITE_-prefixed environment variables so secrets never need to live in
// the file.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("SITE", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}

	config.applyDefaults()

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.JWT.ExpiryHours == 0 {
		c.JWT.ExpiryHours = 24
	}
	if c.Delivery.FailureStatusMode == "" {
		c.Delivery.FailureStatusMode = "ok"
	}
	if c.Delivery.ChannelTimeout == 0 {
		c.Delivery.ChannelTimeout = 10 * time.Second
	}
	if c.Delivery.ReconcileInterval == 0 {
		c.Delivery.ReconcileInterval = time.Minute
	}
	if c.Delivery.ReconcileThreshold == 0 {
		c.Delivery.ReconcileThreshold = 5 * time.Minute
	}
}
