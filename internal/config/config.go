package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	// MariaDB接続設定 (STORE_BACKEND=mysql のときのみ使用)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// ストレージ設定
	StoreBackend string
	StorePath    string
	Namespace    string
	MessagesKey  string

	// アーカイブのシリアライズ形式
	ValueSeparator string
	EntrySeparator string

	// サーバー設定
	ServerPort    string
	Env           string
	PublicBaseURL string
	PendingLimit  int

	MetricsNamespace string

	// CORS設定
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() Config {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "3306"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	publicBaseURL := os.Getenv("PUBLIC_BASE_URL")
	if publicBaseURL == "" {
		publicBaseURL = "http://localhost:" + serverPort
	}

	pendingLimit := 256
	if raw := os.Getenv("PENDING_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pendingLimit = n
		}
	}

	cfg := Config{
		DBHost:           dbHost,
		DBPort:           dbPort,
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           os.Getenv("DB_NAME"),
		StoreBackend:     strings.ToLower(getenvDefault("STORE_BACKEND", "file")),
		StorePath:        getenvDefault("STORE_PATH", "data/archive.json"),
		Namespace:        getenvDefault("STORAGE_NAMESPACE", "archive_"),
		MessagesKey:      getenvDefault("STORAGE_MESSAGES_KEY", "messages"),
		ValueSeparator:   getenvDefault("VALUE_SEPARATOR", ";/-;"),
		EntrySeparator:   getenvDefault("ENTRY_SEPARATOR", ";?-;"),
		ServerPort:       serverPort,
		Env:              env,
		PublicBaseURL:    strings.TrimRight(publicBaseURL, "/"),
		PendingLimit:     pendingLimit,
		MetricsNamespace: getenvDefault("METRICS_NAMESPACE", "fakearchive"),
		AllowedOrigins:   strings.Split(allowedOrigins, ","),
	}

	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	return cfg
}

// DSN builds the MySQL data source name
func (c Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
