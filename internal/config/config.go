package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "ProCareAuth"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRedisPrefix    = "procare"
	defaultShutdownDelay  = 10 * time.Second
	defaultCodeTTL        = 300 * time.Second
	defaultResendCooldown = 60 * time.Second
	defaultSessionTTL     = 24 * time.Hour
	defaultAccessTTL      = 30 * 24 * time.Hour
	defaultRefreshTTL     = 31 * 24 * time.Hour
	defaultResetTokenTTL  = 10 * time.Minute
	defaultBlacklistTTL   = 7 * 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName     string
	AppEnv      string
	Port        string
	LogLevel    string
	DatabaseURL string
	RedisURL    string
	RedisPrefix string

	JWTSecret string

	CodeTTL         time.Duration
	ResendCooldown  time.Duration
	SessionTTL      time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	BlacklistTTL    time.Duration

	SMSAPIURL     string
	SMSUsername   string
	SMSPassword   string
	SMSOriginator string

	ERPAPIURL   string
	ERPUsername string
	ERPPassword string

	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:       getEnv("APP_NAME", defaultAppName),
		AppEnv:        strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:          getEnv("PORT", defaultPort),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPrefix:   getEnv("REDIS_PREFIX", defaultRedisPrefix),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		SMSAPIURL:     os.Getenv("SMS_API_URL"),
		SMSUsername:   os.Getenv("SMS_USERNAME"),
		SMSPassword:   os.Getenv("SMS_PASSWORD"),
		SMSOriginator: getEnv("SMS_ORIGINATOR", defaultAppName),
		ERPAPIURL:     os.Getenv("ERP_API_URL"),
		ERPUsername:   os.Getenv("ERP_USERNAME"),
		ERPPassword:   os.Getenv("ERP_PASSWORD"),
	}

	durations := []struct {
		name string
		dst  *time.Duration
		def  time.Duration
	}{
		{"CODE_TTL", &cfg.CodeTTL, defaultCodeTTL},
		{"RESEND_COOLDOWN", &cfg.ResendCooldown, defaultResendCooldown},
		{"SESSION_TTL", &cfg.SessionTTL, defaultSessionTTL},
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL, defaultAccessTTL},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL, defaultRefreshTTL},
		{"RESET_TOKEN_TTL", &cfg.ResetTokenTTL, defaultResetTokenTTL},
		{"BLACKLIST_TTL", &cfg.BlacklistTTL, defaultBlacklistTTL},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod, defaultShutdownDelay},
	}
	for _, d := range durations {
		v, err := getEnvDuration(d.name, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsProduction reports whether the app runs against live collaborators.
// Outside production SMS dispatch is skipped and issued codes are echoed in
// responses for test automation.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvDuration accepts either NAME_SECONDS (integer seconds) or NAME (a Go
// duration string such as "720h").
func getEnvDuration(name string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(name + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", name, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return d, nil
	}
	return fallback, nil
}
