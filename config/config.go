package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-registration/storage"
	"github.com/joho/godotenv"
)

const (
	StorageLocal = "local"
	StorageR2    = "r2"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL        string
	JWTSecretKey       string
	ServerPort         int
	CORSAllowedOrigins []string
	AutoMigrate        bool

	StorageDriver string
	Dirs          storage.Dirs
	PublicBaseURL string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
	R2Endpoint        string

	AdminEmails []string

	// Лимит публичной регистрации на один IP.
	RegistrationRateLimit float64
	RegistrationRateBurst int
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	autoMigrate, err := boolEnv("AUTO_MIGRATE", true)
	if err != nil {
		return nil, err
	}

	rateLimit, err := floatEnv("REGISTRATION_RATE_LIMIT", 2)
	if err != nil {
		return nil, err
	}
	rateBurst, err := intEnv("REGISTRATION_RATE_BURST", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		CORSAllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", "http://localhost:4200"),
		AutoMigrate:        autoMigrate,

		StorageDriver: strings.ToLower(stringEnv("STORAGE_DRIVER", StorageLocal)),
		Dirs: storage.Dirs{
			ImagesDir:    stringEnv("IMAGES_DIR", "public/images"),
			DocumentsDir: stringEnv("DOCUMENTS_DIR", "public/documents"),
		},
		PublicBaseURL: stringEnv("PUBLIC_BASE_URL", "/public"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		R2Endpoint:        os.Getenv("R2_ENDPOINT"),

		AdminEmails: listEnv("ADMIN_EMAILS", ""),

		RegistrationRateLimit: rateLimit,
		RegistrationRateBurst: rateBurst,
	}

	switch cfg.StorageDriver {
	case StorageLocal:
	case StorageR2:
		if cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" || cfg.R2PublicBaseURL == "" {
			return nil, fmt.Errorf("STORAGE_DRIVER=r2 requires R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME and R2_PUBLIC_BASE_URL")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q, expected %q or %q", cfg.StorageDriver, StorageLocal, StorageR2)
	}

	if cfg.RegistrationRateLimit <= 0 || cfg.RegistrationRateBurst <= 0 {
		return nil, fmt.Errorf("REGISTRATION_RATE_LIMIT and REGISTRATION_RATE_BURST must be positive")
	}

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

// listEnv разбивает значение по запятым, отбрасывая пустые элементы.
func listEnv(key, def string) []string {
	raw := stringEnv(key, def)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
