package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables recognized by loadEnv. Secrets are env-only; they
// have no flag so they never show up in process listings.
const (
	envListenAddr    = "ACCOUNTD_LISTEN_ADDR"
	envDatabaseDSN   = "ACCOUNTD_DATABASE_DSN"
	envRedisAddr     = "ACCOUNTD_REDIS_ADDR"
	envRedisPassword = "ACCOUNTD_REDIS_PASSWORD"
	envRedisDB       = "ACCOUNTD_REDIS_DB"
	envPepper        = "ACCOUNTD_PEPPER"
	envTokenSecret   = "ACCOUNTD_TOKEN_SECRET"
	envAccessTTL     = "ACCOUNTD_ACCESS_TTL"
	envRefreshTTL    = "ACCOUNTD_REFRESH_TTL"
	envLogLevel      = "ACCOUNTD_LOG_LEVEL"
)

func (c *Config) loadEnv() {
	overlayString(&c.ListenAddr, envListenAddr)
	overlayString(&c.DatabaseDSN, envDatabaseDSN)
	overlayString(&c.RedisAddr, envRedisAddr)
	overlayString(&c.RedisPassword, envRedisPassword)
	overlayInt(&c.RedisDB, envRedisDB)
	overlayString(&c.PasswordPepper, envPepper)
	overlayString(&c.TokenSecret, envTokenSecret)
	overlayDuration(&c.AccessTTL, envAccessTTL)
	overlayDuration(&c.RefreshTTL, envRefreshTTL)
	overlayString(&c.LogLevel, envLogLevel)
}

func overlayString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overlayDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
