package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	AdminJWTSecret string

	// Scheduling API
	FeegowBaseURL     string
	FeegowAccessToken string
	FeegowTimeout     time.Duration
	FeegowMaxRetries  int
	FeegowBackoff     time.Duration

	// Report pipeline
	MapTimezone         string
	ReferenceCacheTTL   time.Duration
	AvailabilityWorkers int
	ReportDeadline      time.Duration
	HistoryDays         int
	ActiveStatusIDs     []int64
	ExcludedRooms       []string
	AdminRoomKeywords   []string
	ReportRatePerMinute int
	ReportRateBurst     int

	// Map automation job
	MapAutomationUnits         []string
	MapAutomationOutputDir     string
	MapAutomationSaveLocal     bool
	MapAutomationUpload        bool
	MapAutomationFailOnWarning bool
	MapAutomationWorkers       int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	MapsS3Bucket        string
	MapsS3Prefix        string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		FeegowBaseURL:     getEnv("FEEGOW_BASE_URL", "https://api.feegow.com/v1/api"),
		FeegowAccessToken: getEnv("FEEGOW_ACCESS_TOKEN", ""),
		FeegowTimeout:     getEnvAsDuration("FEEGOW_TIMEOUT", 15*time.Second),
		FeegowMaxRetries:  getEnvAsInt("FEEGOW_MAX_RETRIES", 3),
		FeegowBackoff:     getEnvAsDuration("FEEGOW_BACKOFF", 500*time.Millisecond),

		MapTimezone:         getEnv("MAP_TIMEZONE", "America/Sao_Paulo"),
		ReferenceCacheTTL:   getEnvAsDuration("REFERENCE_CACHE_TTL", 15*time.Minute),
		AvailabilityWorkers: getEnvAsInt("AVAILABILITY_WORKERS", 4),
		ReportDeadline:      getEnvAsDuration("REPORT_DEADLINE", 5*time.Minute),
		HistoryDays:         getEnvAsInt("HISTORY_DAYS", 28),
		ActiveStatusIDs:     getEnvAsInt64List("ACTIVE_STATUS_IDS", []int64{1, 2, 3, 4, 7}),
		ExcludedRooms:       getEnvAsList("EXCLUDED_ROOMS", nil),
		AdminRoomKeywords:   getEnvAsList("ADMIN_ROOM_KEYWORDS", nil),
		ReportRatePerMinute: getEnvAsInt("REPORT_RATE_PER_MINUTE", 30),
		ReportRateBurst:     getEnvAsInt("REPORT_RATE_BURST", 5),

		MapAutomationUnits:         getEnvAsList("MAP_AUTOMATION_UNITS", nil),
		MapAutomationOutputDir:     getEnv("MAP_AUTOMATION_OUTPUT_DIR", "mapas_gerados"),
		MapAutomationSaveLocal:     getEnvAsBool("MAP_AUTOMATION_SAVE_LOCAL", true),
		MapAutomationUpload:        getEnvAsBool("MAP_AUTOMATION_UPLOAD", true),
		MapAutomationFailOnWarning: getEnvAsBool("MAP_AUTOMATION_FAIL_ON_WARNING", false),
		MapAutomationWorkers:       getEnvAsInt("MAP_AUTOMATION_WORKERS", 2),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		MapsS3Bucket:        getEnv("MAPS_S3_BUCKET", ""),
		MapsS3Prefix:        getEnv("MAPS_S3_PREFIX", "mapas"),
		AWSRegion:           getEnv("AWS_REGION", "sa-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// Location loads MapTimezone, falling back to UTC when the zone is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.MapTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return SplitList(valueStr)
}

// getEnvAsInt64List parses a comma-separated id list. Any invalid entry falls back to
// the default for the whole list.
func getEnvAsInt64List(key string, defaultValue []int64) []int64 {
	parts := getEnvAsList(key, nil)
	if len(parts) == 0 {
		return defaultValue
	}
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma-separated value, trimming entries and dropping blanks.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
