package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	NBU      NBUConfig
	Session  SessionConfig
	History  HistoryConfig
	Persist  PersistConfig
	JWT      JWTConfig
	Logger   LoggerConfig
	Tariff   TariffConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Enabled      bool
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver     string // postgres, sqlite or memory
	SQLitePath string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	MaxConns   int32
}

type TelegramConfig struct {
	Token             string
	DeveloperID       int64
	DeveloperUsername string
	Debug             bool
}

type NBUConfig struct {
	BaseURL  string
	Timeout  time.Duration
	RPS      float64
	Burst    int
	CacheTTL time.Duration
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type HistoryConfig struct {
	MirrorCapacity int
	Limit          int
}

type PersistConfig struct {
	WriteTimeout time.Duration
}

// DefaultJWTSecret is the placeholder used when JWT_SECRET_KEY is unset.
const DefaultJWTSecret = "your-secret-key-change-in-production"

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

// Configured reports whether a real signing secret was provided.
func (c JWTConfig) Configured() bool {
	secret := strings.TrimSpace(c.SecretKey)
	return secret != "" && secret != DefaultJWTSecret
}

type TariffConfig struct {
	ElectricBenefitsEnabled bool
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too.
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	developerID, _ := strconv.ParseInt(getEnv("DEVELOPER_ID", "0"), 10, 64)
	nbuTimeout, _ := strconv.Atoi(getEnv("NBU_TIMEOUT_SECONDS", "10"))
	nbuRPS, _ := strconv.ParseFloat(getEnv("NBU_RPS", "5"), 64)
	nbuBurst, _ := strconv.Atoi(getEnv("NBU_BURST", "2"))
	nbuCacheTTL, _ := strconv.Atoi(getEnv("NBU_CACHE_TTL_MINUTES", "60"))
	sessionTTL, _ := strconv.Atoi(getEnv("SESSION_TTL_MINUTES", "30"))
	sessionCleanup, _ := strconv.Atoi(getEnv("SESSION_CLEANUP_MINUTES", "5"))
	mirrorCapacity, _ := strconv.Atoi(getEnv("HISTORY_MIRROR_CAPACITY", "1000"))
	maxConns, _ := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	historyLimit, _ := strconv.Atoi(getEnv("HISTORY_LIMIT", "5"))
	persistTimeout, _ := strconv.Atoi(getEnv("PERSIST_WRITE_TIMEOUT_SECONDS", "5"))

	return &Config{
		Server: ServerConfig{
			Enabled:      getEnvBool("HTTP_ENABLED", true),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "customs_bot.db"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "customs_calc"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			MaxConns:   int32(maxConns),
		},
		Telegram: TelegramConfig{
			Token:             getEnv("BOT_TOKEN", ""),
			DeveloperID:       developerID,
			DeveloperUsername: getEnv("DEVELOPER_USERNAME", "EvGT_7"),
			Debug:             getEnvBool("BOT_DEBUG", false),
		},
		NBU: NBUConfig{
			BaseURL:  getEnv("NBU_BASE_URL", "https://bank.gov.ua/NBUStatService/v1/statdirectory/exchange"),
			Timeout:  time.Duration(nbuTimeout) * time.Second,
			RPS:      nbuRPS,
			Burst:    nbuBurst,
			CacheTTL: time.Duration(nbuCacheTTL) * time.Minute,
		},
		Session: SessionConfig{
			TTL:             time.Duration(sessionTTL) * time.Minute,
			CleanupInterval: time.Duration(sessionCleanup) * time.Minute,
		},
		History: HistoryConfig{
			MirrorCapacity: mirrorCapacity,
			Limit:          historyLimit,
		},
		Persist: PersistConfig{
			WriteTimeout: time.Duration(persistTimeout) * time.Second,
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", DefaultJWTSecret),
			Expiration: time.Duration(jwtExp) * time.Hour,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tariff: TariffConfig{
			ElectricBenefitsEnabled: getEnvBool("ELECTRIC_BENEFITS_ENABLED", false),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}
