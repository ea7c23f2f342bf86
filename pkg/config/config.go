package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/sma-observations/pkg/pagination"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Pagination modes for the client.
const (
	PaginationServer = "server"
	PaginationClient = "client"
	PaginationLocal  = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	ListCache ListCacheConfig
	Client    ClientConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthConfig gates bearer token checks on the API routes.
type AuthConfig struct {
	Enabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ListCacheConfig governs Redis caching of list windows.
type ListCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ClientConfig drives the observations CLI.
type ClientConfig struct {
	APIURL          string
	Token           string
	ClientID        string
	ItemsPerPage    int
	RequestTimeout  time.Duration
	PaginationMode  string
	StaleFetchGuard bool
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}
	cfg.Auth = AuthConfig{Enabled: v.GetBool("AUTH_ENABLED")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.ListCache = ListCacheConfig{
		Enabled: v.GetBool("LIST_CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("LIST_CACHE_TTL"), time.Minute),
	}

	itemsPerPage := v.GetInt("ITEMS_PER_PAGE")
	if itemsPerPage <= 0 {
		itemsPerPage = 5
	}
	cfg.Client = ClientConfig{
		APIURL:          strings.TrimRight(v.GetString("OBSERVATIONS_API_URL"), "/"),
		Token:           v.GetString("OBSERVATIONS_API_TOKEN"),
		ClientID:        v.GetString("OBSERVATIONS_CLIENT_ID"),
		ItemsPerPage:    itemsPerPage,
		RequestTimeout:  parseDuration(v.GetString("REQUEST_TIMEOUT"), 10*time.Second),
		PaginationMode:  strings.ToLower(v.GetString("PAGINATION_MODE")),
		StaleFetchGuard: v.GetBool("STALE_FETCH_GUARD"),
	}
	switch cfg.Client.PaginationMode {
	case PaginationServer, PaginationClient, PaginationLocal:
	default:
		return nil, fmt.Errorf("PAGINATION_MODE must be %q, %q or %q, got %q",
			PaginationServer, PaginationClient, PaginationLocal, cfg.Client.PaginationMode)
	}
	if itemsPerPage > pagination.MaxItemsPerPage {
		return nil, fmt.Errorf("ITEMS_PER_PAGE must be at most %d, got %d", pagination.MaxItemsPerPage, itemsPerPage)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "observations")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sma-observations")
	v.SetDefault("AUTH_ENABLED", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LIST_CACHE_ENABLED", false)
	v.SetDefault("LIST_CACHE_TTL", "1m")

	v.SetDefault("OBSERVATIONS_API_URL", "http://localhost:8080/api/v1")
	v.SetDefault("OBSERVATIONS_API_TOKEN", "")
	v.SetDefault("OBSERVATIONS_CLIENT_ID", "observations-cli")
	v.SetDefault("ITEMS_PER_PAGE", 5)
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("PAGINATION_MODE", PaginationServer)
	v.SetDefault("STALE_FETCH_GUARD", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
