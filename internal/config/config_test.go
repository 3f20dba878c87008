package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.JWT.TTL != 72*time.Hour {
		t.Errorf("JWT TTL = %s", cfg.JWT.TTL)
	}
	if !cfg.Ledger.RequireRegisteredDriver || !cfg.Ledger.AllowFundedCancel || cfg.Ledger.MaxConcurrentRidesPerDriver != 0 {
		t.Errorf("ledger options = %+v", cfg.Ledger)
	}
	if cfg.AMQP.URL != "" || cfg.Redis.Addr != "" {
		t.Errorf("optional sinks enabled by default: %+v %+v", cfg.AMQP, cfg.Redis)
	}
	if cfg.AMQP.Exchange != "ride_topic" {
		t.Errorf("exchange = %q", cfg.AMQP.Exchange)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SOURCE", "/tmp/rides.db")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("REQUIRE_REGISTERED_DRIVER", "false")
	t.Setenv("MAX_CONCURRENT_RIDES_PER_DRIVER", "2")
	t.Setenv("ALLOW_FUNDED_CANCEL", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Source != "/tmp/rides.db" {
		t.Errorf("db = %+v", cfg.DB)
	}
	if cfg.JWT.TTL != 15*time.Minute {
		t.Errorf("JWT TTL = %s", cfg.JWT.TTL)
	}
	if cfg.Ledger.RequireRegisteredDriver || cfg.Ledger.AllowFundedCancel || cfg.Ledger.MaxConcurrentRidesPerDriver != 2 {
		t.Errorf("ledger options = %+v", cfg.Ledger)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.Channel != "ride-events" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"DB_DRIVER":                       "mysql",
		"JWT_TTL":                         "0s",
		"MAX_CONCURRENT_RIDES_PER_DRIVER": "-1",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s accepted", key, value)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "rides", SSLMode: "disable", TimeZone: "UTC"}
	if dsn := c.DSN(); !strings.Contains(dsn, "host=db") || !strings.Contains(dsn, "dbname=rides") {
		t.Errorf("DSN = %q", dsn)
	}
	if url := c.URL(); url != "postgres://u:p@db:5432/rides?sslmode=disable" {
		t.Errorf("URL = %q", url)
	}
}

func TestInitDBSQLite(t *testing.T) {
	db, err := InitDB(DBConfig{Driver: "sqlite", Source: "file::memory:"})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	var n int64
	if err := db.Table("ledger_counters").Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("counter rows = %d, err %v", n, err)
	}
}
