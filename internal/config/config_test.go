package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.MinPlayers != 3 {
		t.Fatalf("MinPlayers = %d, want 3", cfg.MinPlayers)
	}
	if cfg.WarningThreshold != 10*time.Minute {
		t.Fatalf("WarningThreshold = %s, want 10m", cfg.WarningThreshold)
	}
	if cfg.ChaosInterval != 2*time.Minute {
		t.Fatalf("ChaosInterval = %s, want 2m", cfg.ChaosInterval)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("AUTO_ELIMINATE", "true")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.StoreBackend != BackendSQLite {
		t.Fatalf("StoreBackend = %q, want sqlite", cfg.StoreBackend)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Fatalf("TickInterval = %s, want 250ms", cfg.TickInterval)
	}
	if !cfg.AutoEliminate {
		t.Fatal("AutoEliminate = false, want true")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v, want two origins", cfg.CORSOrigins)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad duration", "TICK_INTERVAL", "soon", "parse env:"},
		{"unknown backend", "STORE_BACKEND", "redis", "unknown STORE_BACKEND"},
		{"too few players", "MIN_PLAYERS", "2", "MIN_PLAYERS"},
		{"zero retries", "STORE_RETRIES", "0", "STORE_RETRIES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "n"}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("PostgresDSN = %q, want %q", got, want)
	}
}
