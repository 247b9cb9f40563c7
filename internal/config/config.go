package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                      string        `mapstructure:"PORT"`
	Env                       string        `mapstructure:"ENV"`
	DatabaseURL               string        `mapstructure:"DATABASE_URL"`
	DBMaxConns                int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns                int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins               []string      `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey            string        `mapstructure:"AUTH_SIGNING_KEY"`
	CalendarBridgeURL         string        `mapstructure:"CALENDAR_BRIDGE_URL"`
	CalendarBridgePassword    string        `mapstructure:"CALENDAR_BRIDGE_PASSWORD"`
	CalendarBridgeTokenSecret string        `mapstructure:"CALENDAR_BRIDGE_TOKEN_SECRET"`
	CalendarRequestTimeout    time.Duration `mapstructure:"CALENDAR_REQUEST_TIMEOUT"`
	ClinicTimezone            string        `mapstructure:"CLINIC_TIMEZONE"`
	OccupancySlotsPerDay      int           `mapstructure:"OCCUPANCY_SLOTS_PER_DAY"`
	RequestTimeout            time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MigrationsDir             string        `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CALENDAR_REQUEST_TIMEOUT", "0s")
	v.SetDefault("CLINIC_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("OCCUPANCY_SLOTS_PER_DAY", 16)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("CALENDAR_BRIDGE_URL")
	v.BindEnv("CALENDAR_BRIDGE_PASSWORD")
	v.BindEnv("CALENDAR_BRIDGE_TOKEN_SECRET")
	v.BindEnv("CALENDAR_REQUEST_TIMEOUT")
	v.BindEnv("CLINIC_TIMEZONE")
	v.BindEnv("OCCUPANCY_SLOTS_PER_DAY")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, unauthenticated requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves ClinicTimezone. Day boundaries for the agenda grid and
// the occupancy windows are computed in this location.
func (c *Config) Location() (*time.Location, error) {
	if c.ClinicTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("load CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters, got %d", len(c.AuthSigningKey))
	}
	if c.CalendarBridgeURL == "" && c.IsProduction() {
		return fmt.Errorf("CALENDAR_BRIDGE_URL is required in production")
	}
	if c.CalendarRequestTimeout < 0 {
		return fmt.Errorf("CALENDAR_REQUEST_TIMEOUT must not be negative")
	}
	if c.OccupancySlotsPerDay <= 0 {
		return fmt.Errorf("OCCUPANCY_SLOTS_PER_DAY must be positive, got %d", c.OccupancySlotsPerDay)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
