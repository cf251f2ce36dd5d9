package services

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the server reads from the environment.
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	SMTP      SMTPConfig
}

// LoadConfig reads the .env file (if present) and resolves the
// configuration with development defaults.
func LoadConfig(envFile string) Config {
	if err := godotenv.Load(envFile); err != nil {
		// A missing .env is fine in production; everything can come from
		// the real environment.
		log.Printf("No %s file loaded: %v", envFile, err)
	}

	return Config{
		Port:      getenv("PORT", "3001"),
		DBPath:    getenv("DB_PATH", "./board.db"),
		JWTSecret: getenv("JWT_SECRET", "your-default-secret-key-change-in-production"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
