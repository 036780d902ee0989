package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	GCS       GCSConfig
	Firestore FirestoreConfig
	Gemini    GeminiConfig
	JWT       JWTConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig describes the PostgreSQL instance holding user accounts
// and chat sessions.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GCSConfig describes the two invoice buckets: raw uploads land in the
// source bucket, the external extraction pipeline writes JSON results
// into the target bucket.
type GCSConfig struct {
	CredentialsPath string
	SourceBucket    string
	TargetBucket    string
	SignedURLTTL    time.Duration
}

type FirestoreConfig struct {
	CredentialsPath string
	ProjectID       string
	Collection      string
}

type GeminiConfig struct {
	APIKey       string
	Model        string
	MaxToolTurns int
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// No .env file is fine: plain environment variables are used directly
	// (Docker/K8s deployments).

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	signedURLTTL, _ := strconv.Atoi(getEnv("GCS_SIGNED_URL_TTL_MINUTES", "15"))
	maxToolTurns, _ := strconv.Atoi(getEnv("GEMINI_MAX_TOOL_TURNS", "5"))

	credentialsPath := getEnv("GCP_CREDENTIALS_PATH", "")

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "invoicehub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		GCS: GCSConfig{
			CredentialsPath: credentialsPath,
			SourceBucket:    getEnv("SOURCE_BUCKET", ""),
			TargetBucket:    getEnv("TARGET_BUCKET", ""),
			SignedURLTTL:    time.Duration(signedURLTTL) * time.Minute,
		},
		Firestore: FirestoreConfig{
			CredentialsPath: credentialsPath,
			ProjectID:       getEnv("GCP_PROJECT_ID", ""),
			Collection:      getEnv("FIRESTORE_COLLECTION", "invoices"),
		},
		Gemini: GeminiConfig{
			APIKey:       getEnv("GEMINI_API_KEY", ""),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			MaxToolTurns: maxToolTurns,
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
