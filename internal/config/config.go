// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables use the REGISTRA_ prefix and win
// over file values: REGISTRA_HTTP_ADDR, REGISTRA_DATABASE_DSN and so on.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr    string
	DatabaseDSN string

	JWTSecret   string
	TokenTTL    time.Duration
	TokenIssuer string

	// StampZone is the IANA zone audit stamps are recorded in.
	StampZone string

	RatePerSecond float64
	RateBurst     int
	MaxBodyBytes  int64

	MigrationsDir string
	SeedsDir      string
}

func Default() Config {
	return Config{
		HTTPAddr:      ":8080",
		TokenTTL:      120 * time.Hour,
		TokenIssuer:   "registra",
		StampZone:     "America/Bogota",
		RatePerSecond: 10,
		RateBurst:     20,
		MaxBodyBytes:  1 << 20,
		MigrationsDir: "migrations",
		SeedsDir:      "migrations/seeds",
	}
}

// Load reads config.yaml from dir (when present) and applies environment
// overrides on top of the defaults.
func Load(dir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix("REGISTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"http.addr", "database.dsn",
		"jwt.secret", "jwt.ttl", "jwt.issuer",
		"stamp.zone",
		"rate.per_second", "rate.burst", "max.body_bytes",
		"migrations.dir", "seeds.dir",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
	}

	if v.IsSet("http.addr") {
		cfg.HTTPAddr = v.GetString("http.addr")
	}
	if v.IsSet("database.dsn") {
		cfg.DatabaseDSN = v.GetString("database.dsn")
	}
	if v.IsSet("jwt.secret") {
		cfg.JWTSecret = v.GetString("jwt.secret")
	}
	if v.IsSet("jwt.ttl") {
		cfg.TokenTTL = v.GetDuration("jwt.ttl")
	}
	if v.IsSet("jwt.issuer") {
		cfg.TokenIssuer = v.GetString("jwt.issuer")
	}
	if v.IsSet("stamp.zone") {
		cfg.StampZone = v.GetString("stamp.zone")
	}
	if v.IsSet("rate.per_second") {
		cfg.RatePerSecond = v.GetFloat64("rate.per_second")
	}
	if v.IsSet("rate.burst") {
		cfg.RateBurst = v.GetInt("rate.burst")
	}
	if v.IsSet("max.body_bytes") {
		cfg.MaxBodyBytes = v.GetInt64("max.body_bytes")
	}
	if v.IsSet("migrations.dir") {
		cfg.MigrationsDir = v.GetString("migrations.dir")
	}
	if v.IsSet("seeds.dir") {
		cfg.SeedsDir = v.GetString("seeds.dir")
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: http address is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	if c.RatePerSecond <= 0 || c.RateBurst <= 0 {
		return errors.New("config: rate limit values must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: max body bytes must be positive")
	}
	if strings.TrimSpace(c.StampZone) == "" {
		return errors.New("config: stamp zone is required")
	}
	return nil
}
