package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "")
		t.Setenv("BROKER", "")
		t.Setenv("PORT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.StoreDriver != "postgres" {
			t.Fatalf("expected postgres driver, got %s", cfg.StoreDriver)
		}
		if cfg.Port != "8080" {
			t.Fatalf("expected port 8080, got %s", cfg.Port)
		}
		if cfg.TokenTTL != 24*time.Hour {
			t.Fatalf("expected 24h token ttl, got %s", cfg.TokenTTL)
		}
	})

	t.Run("sqlite requires DATABASE_URL", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		t.Setenv("DATABASE_URL", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for missing DATABASE_URL")
		}
	})

	t.Run("unknown broker", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("BROKER", "carrier-pigeon")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unknown broker")
		}
	})

	t.Run("rate limit ttl is raised to five refill intervals", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("BROKER", "")
		t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
		t.Setenv("RATE_LIMIT_TTL", "1s")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.RateLimit.TTL != 50*time.Second {
			t.Fatalf("expected ttl 50s, got %s", cfg.RateLimit.TTL)
		}
	})

	t.Run("sub-millisecond refill interval is raised to one millisecond", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("BROKER", "")
		t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500us")
		t.Setenv("RATE_LIMIT_TTL", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.RateLimit.RefillInterval != time.Millisecond {
			t.Fatalf("expected interval 1ms, got %s", cfg.RateLimit.RefillInterval)
		}
		if cfg.RateLimit.RefillInterval.Milliseconds() < 1 {
			t.Fatalf("interval truncates to zero milliseconds")
		}
	})

	t.Run("publish timeout defaults when unset or invalid", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("BROKER", "")
		t.Setenv("PUBLISH_TIMEOUT", "-3s")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.PublishTimeout != 5*time.Second {
			t.Fatalf("expected publish timeout 5s, got %s", cfg.PublishTimeout)
		}
	})

	t.Run("kafka brokers are split", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("BROKER", "kafka")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
			t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
		}
	})
}
