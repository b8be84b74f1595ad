package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config captures environment driven configuration values for the eventhub service.
type Config struct {
	HTTPPort          int
	Store             string
	SQLitePath        string
	MongoURI          string
	MongoDatabase     string
	IdentityAudience  string
	PrincipalCacheTTL time.Duration
	NotifyWorkers     int
	NotifyQueue       int
	NotificationLimit int
	LogLevel          string
	LogFormat         string
}

// LoadEnvFile loads variables from a dotenv file without overriding values
// already present in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("no se pudo leer %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Missing required values and
// unparsable values are reported together in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          3000,
		Store:             StoreSQLite,
		SQLitePath:        "eventhub.db",
		MongoDatabase:     "eventhub",
		PrincipalCacheTTL: 5 * time.Minute,
		NotifyWorkers:     4,
		NotifyQueue:       256,
		NotificationLimit: 50,
		LogLevel:          "info",
		LogFormat:         "json",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	intVar := func(key string, dst *int, min int) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < min {
			invalid = append(invalid, key)
			return
		}
		*dst = parsed
	}

	intVar("EVENTHUB_HTTP_PORT", &cfg.HTTPPort, 1)
	intVar("EVENTHUB_NOTIFY_WORKERS", &cfg.NotifyWorkers, 0)
	intVar("EVENTHUB_NOTIFY_QUEUE", &cfg.NotifyQueue, 0)
	intVar("EVENTHUB_NOTIFICATION_LIMIT", &cfg.NotificationLimit, 1)

	if store := strings.ToLower(strings.TrimSpace(os.Getenv("EVENTHUB_STORE"))); store != "" {
		switch store {
		case StoreSQLite, StoreMongo:
			cfg.Store = store
		default:
			invalid = append(invalid, "EVENTHUB_STORE")
		}
	}

	if path := strings.TrimSpace(os.Getenv("EVENTHUB_SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	cfg.MongoURI = strings.TrimSpace(os.Getenv("EVENTHUB_MONGO_URI"))
	if cfg.Store == StoreMongo && cfg.MongoURI == "" {
		missing = append(missing, "EVENTHUB_MONGO_URI")
	}
	if database := strings.TrimSpace(os.Getenv("EVENTHUB_MONGO_DATABASE")); database != "" {
		cfg.MongoDatabase = database
	}

	if audience := strings.TrimSpace(os.Getenv("EVENTHUB_IDENTITY_AUDIENCE")); audience == "" {
		missing = append(missing, "EVENTHUB_IDENTITY_AUDIENCE")
	} else {
		cfg.IdentityAudience = audience
	}

	if ttlValue := strings.TrimSpace(os.Getenv("EVENTHUB_PRINCIPAL_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "EVENTHUB_PRINCIPAL_CACHE_TTL")
		} else {
			cfg.PrincipalCacheTTL = ttl
		}
	}

	if level := strings.ToLower(strings.TrimSpace(os.Getenv("EVENTHUB_LOG_LEVEL"))); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "EVENTHUB_LOG_LEVEL")
		}
	}

	if format := strings.ToLower(strings.TrimSpace(os.Getenv("EVENTHUB_LOG_FORMAT"))); format != "" {
		switch format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "EVENTHUB_LOG_FORMAT")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("faltan variables de entorno requeridas: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores de variables de entorno inválidos: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
