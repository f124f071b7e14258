package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/h2h-insight/internal/platform/logging"
	"github.com/riskibarqy/h2h-insight/internal/platform/resilience"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                        string
	ServiceName                   string
	ServiceVersion                string
	HTTPAddr                      string
	CacheEnabled                  bool
	CacheTTL                      time.Duration
	CORSAllowedOrigins            []string
	ReadTimeout                   time.Duration
	WriteTimeout                  time.Duration
	PprofEnabled                  bool
	PprofAddr                     string
	SwaggerEnabled                bool
	MetricsEnabled                bool
	UptraceEnabled                bool
	UptraceDSN                    string
	UptraceLogsEnabled            bool
	BetterStackEnabled            bool
	BetterStackEndpoint           string
	BetterStackToken              string
	BetterStackTimeout            time.Duration
	BetterStackMinLevel           logging.Level
	PyroscopeEnabled              bool
	PyroscopeServerAddress        string
	PyroscopeAppName              string
	PyroscopeAuthToken            string
	PyroscopeBasicAuthUser        string
	PyroscopeBasicAuthPassword    string
	PyroscopeUploadRate           time.Duration
	LivescoreBaseURL              string
	LivescoreTimeout              time.Duration
	LivescoreMaxRetries           int
	LivescoreCircuitEnabled       bool
	LivescoreCircuitFailureCount  int
	LivescoreCircuitOpenTimeout   time.Duration
	LivescoreCircuitHalfOpenMaxRq int
	LivescoreSportID              int64
	LivescoreSubTournamentIDs     []int64
	LivescoreLang                 string
	LivescoreH2HLimit             int
	LivescoreRateLimit            float64
	LivescoreRateBurst            int
	StatsH2HMaxConcurrency        int
	LogLevel                      logging.Level
}

// LivescoreCircuitBreaker returns the breaker settings for the provider client.
func (c Config) LivescoreCircuitBreaker() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          c.LivescoreCircuitEnabled,
		FailureThreshold: c.LivescoreCircuitFailureCount,
		OpenTimeout:      c.LivescoreCircuitOpenTimeout,
		HalfOpenMaxReq:   c.LivescoreCircuitHalfOpenMaxRq,
	}
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	swaggerEnabled, err := strconv.ParseBool(getEnv("SWAGGER_ENABLED", swaggerDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse SWAGGER_ENABLED: %w", err)
	}
	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	livescoreTimeout, err := time.ParseDuration(getEnv("LIVESCORE_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_TIMEOUT: %w", err)
	}
	if livescoreTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVESCORE_TIMEOUT must be > 0")
	}
	livescoreMaxRetries, err := getEnvAsInt("LIVESCORE_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_MAX_RETRIES: %w", err)
	}
	if livescoreMaxRetries < 0 {
		return Config{}, fmt.Errorf("LIVESCORE_MAX_RETRIES must be >= 0")
	}
	livescoreCircuitEnabled, err := strconv.ParseBool(getEnv("LIVESCORE_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_CIRCUIT_ENABLED: %w", err)
	}
	livescoreCircuitFailureCount, err := getEnvAsInt("LIVESCORE_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if livescoreCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("LIVESCORE_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	livescoreCircuitOpenTimeout, err := time.ParseDuration(getEnv("LIVESCORE_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if livescoreCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVESCORE_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	livescoreCircuitHalfOpenMaxReq, err := getEnvAsInt("LIVESCORE_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if livescoreCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("LIVESCORE_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	livescoreSportID, err := getEnvAsInt("LIVESCORE_SPORT_ID", 22)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_SPORT_ID: %w", err)
	}
	if livescoreSportID < 1 {
		return Config{}, fmt.Errorf("LIVESCORE_SPORT_ID must be >= 1")
	}
	livescoreSubTournamentIDs, err := parseIDList(getEnv("LIVESCORE_SUBTOURNAMENT_IDS", "70521,70503"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_SUBTOURNAMENT_IDS: %w", err)
	}
	if len(livescoreSubTournamentIDs) == 0 {
		return Config{}, fmt.Errorf("LIVESCORE_SUBTOURNAMENT_IDS cannot be empty")
	}
	livescoreH2HLimit, err := getEnvAsInt("LIVESCORE_H2H_LIMIT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_H2H_LIMIT: %w", err)
	}
	if livescoreH2HLimit < 1 {
		return Config{}, fmt.Errorf("LIVESCORE_H2H_LIMIT must be >= 1")
	}

	livescoreRateLimit, err := strconv.ParseFloat(getEnv("LIVESCORE_RATE_LIMIT", "0"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_RATE_LIMIT: %w", err)
	}
	if livescoreRateLimit < 0 {
		return Config{}, fmt.Errorf("LIVESCORE_RATE_LIMIT must be >= 0")
	}
	livescoreRateBurst, err := getEnvAsInt("LIVESCORE_RATE_BURST", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORE_RATE_BURST: %w", err)
	}
	if livescoreRateBurst < 1 {
		return Config{}, fmt.Errorf("LIVESCORE_RATE_BURST must be >= 1")
	}

	statsH2HMaxConcurrency, err := getEnvAsInt("STATS_H2H_MAX_CONCURRENCY", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATS_H2H_MAX_CONCURRENCY: %w", err)
	}
	if statsH2HMaxConcurrency < 0 {
		return Config{}, fmt.Errorf("STATS_H2H_MAX_CONCURRENCY must be >= 0")
	}

	cfg := Config{
		AppEnv:                        appEnv,
		ServiceName:                   getEnv("APP_SERVICE_NAME", "h2h-insight-api"),
		ServiceVersion:                getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                      getEnv("APP_HTTP_ADDR", ":8080"),
		CORSAllowedOrigins:            splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		PprofEnabled:                  pprofEnabled,
		PprofAddr:                     pprofAddr,
		SwaggerEnabled:                swaggerEnabled,
		MetricsEnabled:                metricsEnabled,
		UptraceEnabled:                uptraceEnabled,
		UptraceDSN:                    uptraceDSN,
		UptraceLogsEnabled:            uptraceLogsEnabled,
		BetterStackEnabled:            betterStackEnabled,
		BetterStackEndpoint:           betterStackEndpoint,
		BetterStackToken:              strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:            betterStackTimeout,
		BetterStackMinLevel:           logging.ParseLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error")),
		PyroscopeEnabled:              pyroscopeEnabled,
		PyroscopeServerAddress:        pyroscopeServerAddress,
		PyroscopeAuthToken:            strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:        strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:    strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:           pyroscopeUploadRate,
		LivescoreBaseURL:              strings.TrimSpace(getEnv("LIVESCORE_BASE_URL", "https://24live.com/api")),
		LivescoreTimeout:              livescoreTimeout,
		LivescoreMaxRetries:           livescoreMaxRetries,
		LivescoreCircuitEnabled:       livescoreCircuitEnabled,
		LivescoreCircuitFailureCount:  livescoreCircuitFailureCount,
		LivescoreCircuitOpenTimeout:   livescoreCircuitOpenTimeout,
		LivescoreCircuitHalfOpenMaxRq: livescoreCircuitHalfOpenMaxReq,
		LivescoreSportID:              int64(livescoreSportID),
		LivescoreSubTournamentIDs:     livescoreSubTournamentIDs,
		LivescoreLang:                 strings.TrimSpace(getEnv("LIVESCORE_LANG", "en")),
		LivescoreH2HLimit:             livescoreH2HLimit,
		LivescoreRateLimit:            livescoreRateLimit,
		LivescoreRateBurst:            livescoreRateBurst,
		StatsH2HMaxConcurrency:        statsH2HMaxConcurrency,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}
	cfg.CacheEnabled = cacheEnabled
	cfg.CacheTTL = cacheTTL

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	// A cold cycle fans out one provider call per fixture, so the write
	// deadline has to outlast the provider timeout.
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "45s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout
	cfg.LogLevel = logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info"))

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

// ParseIDList parses a comma separated list of positive ids.
func ParseIDList(raw string) ([]int64, error) {
	return parseIDList(raw)
}

func parseIDList(raw string) ([]int64, error) {
	items := splitCSV(raw)
	out := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		value, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", item, err)
		}
		if value <= 0 {
			return nil, fmt.Errorf("id must be > 0, got %q", item)
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
