package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort       string
	AppEnv        string
	JWTSecret     string
	TokenTTLHours int
	CookieName    string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// OAuth sign-in for provisioned accounts
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Failed sign-ins per email and IP before a temporary lock; 0 disables it
	LoginMaxFailures int
	LoginLockMinutes int
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for revocation list, oauth state and reference cache
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Baseline provisioning
	SeedAdminEmail    string
	SeedAdminPassword string
	SeedAdminName     string
	SeedLockKey       int64
}

// IsProduction reports whether the service runs with production hardening (secure cookies).
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := Read(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Read builds a configuration without caching it and without requiring JWT_SECRET.
// Precedence: .env -> config.json -> defaults -> environment variable overrides.
func Read(jsonPath string) (AppConfig, error) {
	var c AppConfig
	// .env only fills variables that are not already present in the environment.
	_ = godotenv.Load()

	if err := loadJSONConfig(jsonPath, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	return c, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
// Grouped sections ("app", "database", "redis", "oauth", "log", "seed") are read first,
// flat keys fill whatever is still empty.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	section := func(name string) map[string]any {
		if m, ok := raw[name].(map[string]any); ok {
			return m
		}
		return map[string]any{}
	}
	str := func(m map[string]any, key string, dst *string) {
		if *dst != "" {
			return
		}
		if s, ok := m[key].(string); ok {
			*dst = s
		}
	}
	num := func(m map[string]any, key string, dst *int) {
		if *dst != 0 {
			return
		}
		if f, ok := m[key].(float64); ok {
			*dst = int(f)
		}
	}
	flag := func(m map[string]any, key string, dst *bool) {
		if b, ok := m[key].(bool); ok {
			*dst = b
		}
	}
	list := func(m map[string]any, key string, dst *[]string) {
		if len(*dst) > 0 {
			return
		}
		if arr, ok := m[key].([]any); ok {
			for _, it := range arr {
				if s, ok := it.(string); ok {
					*dst = append(*dst, s)
				}
			}
		}
	}

	for _, m := range []map[string]any{section("app"), raw} {
		str(m, "AppPort", &out.AppPort)
		str(m, "AppEnv", &out.AppEnv)
		str(m, "JWTSecret", &out.JWTSecret)
		num(m, "TokenTTLHours", &out.TokenTTLHours)
		str(m, "CookieName", &out.CookieName)
		num(m, "RateLimitPerMinute", &out.RateLimitPerMinute)
		num(m, "LoginMaxFailures", &out.LoginMaxFailures)
		num(m, "LoginLockMinutes", &out.LoginLockMinutes)
		list(m, "AllowedOrigins", &out.AllowedOrigins)
		str(m, "OAuthRedirectBase", &out.OAuthRedirectBase)
	}
	for _, m := range []map[string]any{section("gin"), raw} {
		str(m, "Mode", &out.GinMode)
		str(m, "GinMode", &out.GinMode)
		str(m, "LogPath", &out.GinPath)
		str(m, "GinPath", &out.GinPath)
	}
	for _, m := range []map[string]any{section("database"), raw} {
		str(m, "DBDriver", &out.DBDriver)
		str(m, "DatabaseURI", &out.DatabaseURI)
		str(m, "DBHost", &out.DBHost)
		str(m, "DBPort", &out.DBPort)
		str(m, "DBUser", &out.DBUser)
		str(m, "DBPassword", &out.DBPassword)
		str(m, "DBName", &out.DBName)
		str(m, "DBSSLMode", &out.DBSSLMode)
	}
	for _, m := range []map[string]any{section("redis"), raw} {
		str(m, "RedisHost", &out.RedisHost)
		num(m, "RedisPort", &out.RedisPort)
		num(m, "RedisDB", &out.RedisDB)
		str(m, "RedisPassword", &out.RedisPassword)
	}
	for _, m := range []map[string]any{section("oauth"), raw} {
		str(m, "GitHubClientID", &out.GitHubClientID)
		str(m, "GitHubClientSecret", &out.GitHubClientSecret)
		str(m, "GoogleClientID", &out.GoogleClientID)
		str(m, "GoogleClientSecret", &out.GoogleClientSecret)
	}
	lg := section("log")
	str(lg, "Level", &out.LogLevel)
	str(lg, "Path", &out.LogPath)
	num(lg, "MaxSizeMB", &out.LogMaxSizeMB)
	num(lg, "MaxBackups", &out.LogMaxBackups)
	num(lg, "MaxAgeDays", &out.LogMaxAgeDays)
	flag(lg, "Compress", &out.LogCompress)
	str(raw, "LogLevel", &out.LogLevel)
	str(raw, "LogPath", &out.LogPath)
	num(raw, "LogMaxSizeMB", &out.LogMaxSizeMB)
	num(raw, "LogMaxBackups", &out.LogMaxBackups)
	num(raw, "LogMaxAgeDays", &out.LogMaxAgeDays)
	flag(raw, "LogCompress", &out.LogCompress)

	sd := section("seed")
	str(sd, "AdminEmail", &out.SeedAdminEmail)
	str(sd, "AdminPassword", &out.SeedAdminPassword)
	str(sd, "AdminName", &out.SeedAdminName)
	var lockKey int
	num(sd, "LockKey", &lockKey)
	if lockKey != 0 {
		out.SeedLockKey = int64(lockKey)
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.AppEnv == "" {
		c.AppEnv = "development"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 720
	}
	if c.CookieName == "" {
		c.CookieName = "auth_token"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.LoginMaxFailures == 0 {
		c.LoginMaxFailures = 5
	}
	if c.LoginLockMinutes == 0 {
		c.LoginLockMinutes = 15
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "mysql" {
			c.DBPort = "3306"
		} else {
			c.DBPort = "5432"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "postgres"
	}
	if c.DBName == "" {
		c.DBName = "audiencehub"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.SeedAdminEmail == "" {
		c.SeedAdminEmail = "admin@audiencehub.local"
	}
	if c.SeedAdminName == "" {
		c.SeedAdminName = "Administrator"
	}
	if c.SeedLockKey == 0 {
		c.SeedLockKey = 726173
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":                &c.AppPort,
		"APP_ENV":                 &c.AppEnv,
		"JWT_SECRET":              &c.JWTSecret,
		"COOKIE_NAME":             &c.CookieName,
		"GIN_MODE":                &c.GinMode,
		"GIN_PATH":                &c.GinPath,
		"DB_DRIVER":               &c.DBDriver,
		"DATABASE_URI":            &c.DatabaseURI,
		"DB_HOST":                 &c.DBHost,
		"DB_PORT":                 &c.DBPort,
		"DB_USER":                 &c.DBUser,
		"DB_PASSWORD":             &c.DBPassword,
		"DB_NAME":                 &c.DBName,
		"DB_SSLMODE":              &c.DBSSLMode,
		"GITHUB_CLIENT_ID":        &c.GitHubClientID,
		"GITHUB_CLIENT_SECRET":    &c.GitHubClientSecret,
		"GOOGLE_CLIENT_ID":        &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET":    &c.GoogleClientSecret,
		"OAUTH_REDIRECT_BASE_URL": &c.OAuthRedirectBase,
		"REDIS_HOST":              &c.RedisHost,
		"REDIS_PASSWORD":          &c.RedisPassword,
		"LOG_LEVEL":               &c.LogLevel,
		"LOG_PATH":                &c.LogPath,
		"SEED_ADMIN_EMAIL":        &c.SeedAdminEmail,
		"SEED_ADMIN_PASSWORD":     &c.SeedAdminPassword,
		"SEED_ADMIN_NAME":         &c.SeedAdminName,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_TTL_HOURS":       &c.TokenTTLHours,
		"RATE_LIMIT_PER_MINUTE": &c.RateLimitPerMinute,
		"LOGIN_MAX_FAILURES":    &c.LoginMaxFailures,
		"LOGIN_LOCK_MINUTES":    &c.LoginLockMinutes,
		"REDIS_PORT":            &c.RedisPort,
		"REDIS_DB":              &c.RedisDB,
		"LOG_MAX_SIZE_MB":       &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":       &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":      &c.LogMaxAgeDays,
	}
	for key, dst := range ints {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return invalidValue(key, v, err)
			}
			*dst = i
		}
	}

	if v := getEnv("SEED_LOCK_KEY", ""); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return invalidValue("SEED_LOCK_KEY", v, err)
		}
		c.SeedLockKey = i
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	return nil
}

type valueError struct {
	key, value string
	err        error
}

func (e *valueError) Error() string {
	return "invalid value " + strconv.Quote(e.value) + " for " + e.key + ": " + e.err.Error()
}

func (e *valueError) Unwrap() error { return e.err }

func invalidValue(key, value string, err error) error {
	return &valueError{key: key, value: value, err: err}
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
