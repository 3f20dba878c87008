package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"ride_ledger/internal/ledger"
)

type Config struct {
	HTTPAddr string
	DB       DBConfig
	JWT      JWTConfig
	Log      LogConfig
	Ledger   ledger.Options
	AMQP     AMQPConfig
	Redis    RedisConfig
}

type DBConfig struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
	// Source is the sqlite file (or ":memory:") when Driver is sqlite.
	Source string
}

// DSN builds the keyword/value connection string used by the postgres driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

// URL is the same connection in URL form, as golang-migrate expects it.
func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type LogConfig struct {
	File  string // empty logs to stderr
	Level string
}

type AMQPConfig struct {
	URL      string // empty disables the AMQP sink
	Exchange string
}

type RedisConfig struct {
	Addr     string // empty disables the Redis sink
	Password string
	DB       int
	Channel  string
}

// Load reads .env (if present) and then the environment, falling back
// to the defaults below.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "rides")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_SOURCE", "rides.db")

	v.SetDefault("JWT_SECRET", "supersecret")
	v.SetDefault("JWT_TTL", "72h")

	v.SetDefault("LOG_FILE", "./logs/app.log")
	v.SetDefault("LOG_LEVEL", "info")

	defaults := ledger.DefaultOptions()
	v.SetDefault("REQUIRE_REGISTERED_DRIVER", defaults.RequireRegisteredDriver)
	v.SetDefault("MAX_CONCURRENT_RIDES_PER_DRIVER", defaults.MaxConcurrentRidesPerDriver)
	v.SetDefault("ALLOW_FUNDED_CANCEL", defaults.AllowFundedCancel)

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "ride_topic")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "ride-events")

	cfg := &Config{
		HTTPAddr: v.GetString("HTTP_ADDR"),
		DB: DBConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			TimeZone: v.GetString("DB_TIMEZONE"),
			Source:   v.GetString("DB_SOURCE"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		Log: LogConfig{
			File:  v.GetString("LOG_FILE"),
			Level: v.GetString("LOG_LEVEL"),
		},
		Ledger: ledger.Options{
			RequireRegisteredDriver:     v.GetBool("REQUIRE_REGISTERED_DRIVER"),
			MaxConcurrentRidesPerDriver: v.GetInt("MAX_CONCURRENT_RIDES_PER_DRIVER"),
			AllowFundedCancel:           v.GetBool("ALLOW_FUNDED_CANCEL"),
		},
		AMQP: AMQPConfig{
			URL:      v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
	}

	switch {
	case cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite":
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DB.Driver)
	case cfg.JWT.TTL <= 0:
		return nil, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWT.TTL)
	case cfg.Ledger.MaxConcurrentRidesPerDriver < 0:
		return nil, fmt.Errorf("MAX_CONCURRENT_RIDES_PER_DRIVER must not be negative")
	}
	return cfg, nil
}
