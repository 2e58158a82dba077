package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envDevelopment = "development"

	defaultEnv          = envDevelopment
	defaultDBPath       = "./cotizaciones.db"
	defaultPort         = "8080"
	defaultTRM          = 4000.0
	defaultSyncInterval = time.Minute
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	DBPath        string
	Port          string
	DefaultTRM    float64
	RemoteDSN     string
	SyncInterval  time.Duration
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load(".env")

	cfg := Config{
		Env:           os.Getenv("APP_ENV"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DBPath:        os.Getenv("DB_PATH"),
		Port:          os.Getenv("PORT"),
		RemoteDSN:     os.Getenv("REMOTE_DATABASE_DSN"),
		DefaultTRM:    defaultTRM,
		SyncInterval:  defaultSyncInterval,
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if raw := os.Getenv("DEFAULT_TRM"); raw != "" {
		trm, err := strconv.ParseFloat(raw, 64)
		if err != nil || trm <= 0 {
			log.Printf("warning: invalid DEFAULT_TRM %q, using %v", raw, defaultTRM)
		} else {
			cfg.DefaultTRM = trm
		}
	}
	if raw := os.Getenv("SYNC_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			log.Printf("warning: invalid SYNC_INTERVAL %q, using %s", raw, defaultSyncInterval)
		} else {
			cfg.SyncInterval = d
		}
	}

	if cfg.AdminEmail == "" {
		log.Print("warning: ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		log.Print("warning: ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		log.Print("warning: SESSION_SECRET is not set")
	}

	return cfg
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.Env, envDevelopment)
}

// SyncEnabled reports whether a remote store is configured.
func (c Config) SyncEnabled() bool {
	return c.RemoteDSN != ""
}
