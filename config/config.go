package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration. It is built once at startup
// and passed to every handler and client constructor.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Auth     AuthConfig
	Earnings EarningsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Host     string
	LogLevel string
}

// DatabaseConfig holds MySQL connection settings.
type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// ProviderConfig holds mobile-money provider settings. Name selects the
// active adapter ("payhero" or "swiftpay").
type ProviderConfig struct {
	Name          string
	BaseURL       string
	APIKey        string
	Username      string
	Password      string
	ChannelID     string
	CallbackURL   string
	Timeout       time.Duration
	ActivationFee decimal.Decimal
	Debug         bool
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret string
}

// EarningsConfig holds the withdrawal business rules.
type EarningsConfig struct {
	WithdrawMinAmount  decimal.Decimal
	WithdrawMinBalance decimal.Decimal
}

// Load reads configuration from environment variables. A .env file is
// loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Host:     getEnv("HOST", "0.0.0.0"),
			LogLevel: getEnv("LOG_LEVEL", "INFO"),
		},
		Database: DatabaseConfig{
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnv("DB_PORT", "3306"),
			Name:     getEnv("DB_NAME", "earnspark"),
		},
		Provider: ProviderConfig{
			Name:          getEnv("PAYMENT_PROVIDER", "payhero"),
			BaseURL:       getEnv("PROVIDER_BASE_URL", ""),
			APIKey:        getEnv("PROVIDER_API_KEY", ""),
			Username:      getEnv("PROVIDER_API_USERNAME", ""),
			Password:      getEnv("PROVIDER_API_PASSWORD", ""),
			ChannelID:     getEnv("PROVIDER_CHANNEL_ID", ""),
			CallbackURL:   getEnv("PROVIDER_CALLBACK_URL", ""),
			Timeout:       parseDuration(getEnv("PROVIDER_TIMEOUT", "10s"), 10*time.Second),
			ActivationFee: parseDecimal(getEnv("ACTIVATION_FEE", "150"), decimal.NewFromInt(150)),
			Debug:         parseBool(getEnv("PROVIDER_DEBUG", "false")),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Earnings: EarningsConfig{
			WithdrawMinAmount:  parseDecimal(getEnv("WITHDRAW_MIN_AMOUNT", "100"), decimal.NewFromInt(100)),
			WithdrawMinBalance: parseDecimal(getEnv("WITHDRAW_MIN_BALANCE", "0"), decimal.Zero),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// ValidateDatabase reports whether database credentials are configured.
func (c *Config) ValidateDatabase() error {
	if c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("database configuration missing (DB_USER, DB_NAME)")
	}
	return nil
}

// ValidateProvider reports whether the payment provider is configured.
// Initiation and status endpoints answer 500 with this message when it
// fails, so operators can tell a deployment problem from a user error.
func (c *Config) ValidateProvider() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("payment provider configuration missing (PROVIDER_BASE_URL)")
	}
	switch c.Provider.Name {
	case "payhero":
		if c.Provider.Username == "" || c.Provider.Password == "" {
			return fmt.Errorf("payment provider configuration missing (PROVIDER_API_USERNAME, PROVIDER_API_PASSWORD)")
		}
	case "swiftpay":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("payment provider configuration missing (PROVIDER_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Provider.Name)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseDecimal(value string, defaultValue decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return b
}
