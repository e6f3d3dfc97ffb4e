package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort         int
	DatabasePath       string
	SecretKey          string
	TokenExpireMinutes int
	CORSOrigins        []string
	AppName            string
	AppVersion         string
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	expireStr := getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", "60")
	expire, err := strconv.Atoi(expireStr)
	if err != nil {
		return nil, err
	}

	origins := []string{"*"}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}

	return &Config{
		ServerPort:         port,
		DatabasePath:       getEnv("DATABASE_PATH", "./expenses.db"),
		SecretKey:          getEnv("SECRET_KEY", "dev-secret-change-me"),
		TokenExpireMinutes: expire,
		CORSOrigins:        origins,
		AppName:            getEnv("APP_NAME", "Expense Tracker API"),
		AppVersion:         getEnv("APP_VERSION", "0.1.0"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
