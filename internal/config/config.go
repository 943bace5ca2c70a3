package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	ServerPort   string `env:"SERVER_PORT" envDefault:"8080"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"impostergame"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"imposter.db"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"super-secret-key-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	MinPlayers             int           `env:"MIN_PLAYERS" envDefault:"3"`
	DefaultDurationMinutes int           `env:"DEFAULT_DURATION_MINUTES" envDefault:"15"`
	WarningThreshold       time.Duration `env:"WARNING_THRESHOLD" envDefault:"10m"`
	TickInterval           time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	ChaosInterval          time.Duration `env:"CHAOS_INTERVAL" envDefault:"2m"`
	SpeedRoundWindow       time.Duration `env:"SPEED_ROUND_WINDOW" envDefault:"30s"`
	StoreTimeout           time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	StoreRetries           uint          `env:"STORE_RETRIES" envDefault:"3"`
	AutoEliminate          bool          `env:"AUTO_ELIMINATE" envDefault:"false"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.MinPlayers < 3 {
		return fmt.Errorf("MIN_PLAYERS must be at least 3, got %d", c.MinPlayers)
	}
	if c.DefaultDurationMinutes <= 0 {
		return fmt.Errorf("DEFAULT_DURATION_MINUTES must be positive, got %d", c.DefaultDurationMinutes)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.StoreRetries == 0 {
		return errors.New("STORE_RETRIES must be at least 1")
	}
	return nil
}

// PostgresDSN formats the connection string for gorm.io/driver/postgres.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
