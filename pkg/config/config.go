package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Query      QueryConfig
	Protection ProtectionConfig
	Archive    ArchiveConfig
	Export     ExportConfig
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
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// QueryConfig tunes the read path of the audit service.
type QueryConfig struct {
	CacheEnabled      bool
	CacheTTL          time.Duration
	MaxResults        int
	HealthBudget      time.Duration
	DegradedThreshold time.Duration
}

// ProtectionConfig governs pseudonymization, hashing and at-rest encryption.
type ProtectionConfig struct {
	Enabled           bool
	ApplicationName   string
	Salt              string
	EncryptionSecret  string
	HashAlgorithm     string
	MappingTTL        time.Duration
	AlwaysFields      []string
	NeverFields       []string
	SensitiveKeywords []string
}

// ArchiveConfig controls the archival sink and the scheduled sweep.
type ArchiveConfig struct {
	Enabled              bool
	BlobDir              string
	Compress             bool
	Encrypt              bool
	OperationalRetention time.Duration
	ArchivalRetention    time.Duration
	SweepInterval        time.Duration
	BatchSize            int
}

// ExportConfig governs asynchronous export generation.
type ExportConfig struct {
	StorageDir        string
	WorkerConcurrency int
	CSVMaxRows        int
	JSONMaxRows       int
	ExcelMaxRows      int
	PDFMaxRows        int
	ResultTTL         time.Duration
	CleanupInterval   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Query = QueryConfig{
		CacheEnabled:      v.GetBool("QUERY_CACHE_ENABLED"),
		CacheTTL:          parseDuration(v.GetString("QUERY_CACHE_TTL"), time.Minute),
		MaxResults:        v.GetInt("QUERY_MAX_RESULTS"),
		HealthBudget:      parseDuration(v.GetString("HEALTH_BUDGET"), 5*time.Second),
		DegradedThreshold: parseDuration(v.GetString("HEALTH_DEGRADED_THRESHOLD"), time.Second),
	}

	cfg.Protection = ProtectionConfig{
		Enabled:           v.GetBool("PROTECTION_ENABLED"),
		ApplicationName:   v.GetString("PROTECTION_APP_NAME"),
		Salt:              v.GetString("PROTECTION_SALT"),
		EncryptionSecret:  v.GetString("PROTECTION_ENCRYPTION_SECRET"),
		HashAlgorithm:     v.GetString("PROTECTION_HASH_ALGORITHM"),
		MappingTTL:        parseDuration(v.GetString("PROTECTION_MAPPING_TTL"), 90*24*time.Hour),
		AlwaysFields:      splitAndTrim(v.GetString("PROTECTION_ALWAYS_FIELDS")),
		NeverFields:       splitAndTrim(v.GetString("PROTECTION_NEVER_FIELDS")),
		SensitiveKeywords: splitAndTrim(v.GetString("PROTECTION_SENSITIVE_KEYWORDS")),
	}

	batchSize := v.GetInt("ARCHIVE_BATCH_SIZE")
	if batchSize <= 0 {
		batchSize = 500
	}
	cfg.Archive = ArchiveConfig{
		Enabled:              v.GetBool("ARCHIVE_ENABLED"),
		BlobDir:              v.GetString("ARCHIVE_BLOB_DIR"),
		Compress:             v.GetBool("ARCHIVE_COMPRESS"),
		Encrypt:              v.GetBool("ARCHIVE_ENCRYPT"),
		OperationalRetention: parseDuration(v.GetString("ARCHIVE_OPERATIONAL_RETENTION"), 30*24*time.Hour),
		ArchivalRetention:    parseDuration(v.GetString("ARCHIVE_ARCHIVAL_RETENTION"), 7*365*24*time.Hour),
		SweepInterval:        parseDuration(v.GetString("ARCHIVE_SWEEP_INTERVAL"), 24*time.Hour),
		BatchSize:            batchSize,
	}

	cfg.Export = ExportConfig{
		StorageDir:        v.GetString("EXPORT_STORAGE_DIR"),
		WorkerConcurrency: v.GetInt("EXPORT_WORKER_CONCURRENCY"),
		CSVMaxRows:        v.GetInt("EXPORT_CSV_MAX_ROWS"),
		JSONMaxRows:       v.GetInt("EXPORT_JSON_MAX_ROWS"),
		ExcelMaxRows:      v.GetInt("EXPORT_EXCEL_MAX_ROWS"),
		PDFMaxRows:        v.GetInt("EXPORT_PDF_MAX_ROWS"),
		ResultTTL:         parseDuration(v.GetString("EXPORT_RESULT_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORT_CLEANUP_INTERVAL"), time.Hour),
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
	v.SetDefault("DB_NAME", "audit_trail")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QUERY_CACHE_ENABLED", true)
	v.SetDefault("QUERY_CACHE_TTL", "1m")
	v.SetDefault("QUERY_MAX_RESULTS", 1000)
	v.SetDefault("HEALTH_BUDGET", "5s")
	v.SetDefault("HEALTH_DEGRADED_THRESHOLD", "1s")

	v.SetDefault("PROTECTION_ENABLED", true)
	v.SetDefault("PROTECTION_APP_NAME", "audit-trail-api")
	v.SetDefault("PROTECTION_SALT", "dev_protection_salt")
	v.SetDefault("PROTECTION_ENCRYPTION_SECRET", "dev_encryption_secret")
	v.SetDefault("PROTECTION_HASH_ALGORITHM", "sha256")
	v.SetDefault("PROTECTION_MAPPING_TTL", "2160h")
	v.SetDefault("PROTECTION_ALWAYS_FIELDS", "actor_id,ip_address")
	v.SetDefault("PROTECTION_NEVER_FIELDS", "action,status")
	v.SetDefault("PROTECTION_SENSITIVE_KEYWORDS", "email,ssn,password,phone,credit,iban")

	v.SetDefault("ARCHIVE_ENABLED", false)
	v.SetDefault("ARCHIVE_BLOB_DIR", "./blobs")
	v.SetDefault("ARCHIVE_COMPRESS", true)
	v.SetDefault("ARCHIVE_ENCRYPT", true)
	v.SetDefault("ARCHIVE_OPERATIONAL_RETENTION", "720h")
	v.SetDefault("ARCHIVE_ARCHIVAL_RETENTION", "61320h")
	v.SetDefault("ARCHIVE_SWEEP_INTERVAL", "24h")
	v.SetDefault("ARCHIVE_BATCH_SIZE", 500)

	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORT_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORT_CSV_MAX_ROWS", 1000000)
	v.SetDefault("EXPORT_JSON_MAX_ROWS", 1000000)
	v.SetDefault("EXPORT_EXCEL_MAX_ROWS", 100000)
	v.SetDefault("EXPORT_PDF_MAX_ROWS", 10000)
	v.SetDefault("EXPORT_RESULT_TTL", "24h")
	v.SetDefault("EXPORT_CLEANUP_INTERVAL", "1h")
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
