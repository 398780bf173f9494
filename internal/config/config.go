package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	DBSSLMode     string
	AppPort       string
	AppEnv        string
	JWTSecret     string
	DefaultLocale string
	CORSOrigins   []string

	// AuthCookieName is checked for an access token before the
	// Authorization header.
	AuthCookieName string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		AppPort:       getEnv("APP_PORT", "8080"),
		AppEnv:        getEnv("APP_ENV", "development"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),

		AuthCookieName: getEnv("AUTH_COOKIE_NAME", "access_token"),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DBHost == "" {
		return errors.New("environment variables not loaded properly: DB_HOST is empty")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
