package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database (FreeRADIUS MySQL schema)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBCharset  string

	// Database retry policy
	DBConnectRetries int
	DBRetryBaseDelay time.Duration
	DBRetryBackoff   float64

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort int

	// RADIUS wire client
	RadiusHost     string
	RadiusAuthPort int
	RadiusAcctPort int
	RadiusSecret   string
	RadiusRetries  int
	RadiusTimeout  time.Duration

	// Telnet pacing
	TelnetPort           int
	TelnetConnectTimeout time.Duration
	TelnetCmdDelay       time.Duration
	TelnetReadTimeout    time.Duration
	TelnetPagerMax       int

	// Company-default OLT credentials, used when a device has no custom set
	TelnetUsername string
	TelnetPassword string

	// Operator company, source of the COMPANY slug in group names
	CompanyCode string
	CompanyName string

	// Plan defaults auto-injected on plan sync
	PlanAcctInterim int
	PlanIdleTimeout int

	// PPPoE online freshness window, load-bearing for status dashboards
	PPPoEOnlineWindow time.Duration

	// Fiber-core color sequence for ONU slots
	ONUColors []string

	// Default billing period when unknown
	DefaultSubscriptionMonths int

	// Key for sealing stored Telnet/VoIP credentials
	EncryptionKey string
}

var defaultONUColors = []string{
	"blue", "orange", "green", "brown", "slate", "white",
	"red", "black", "yellow", "violet", "rose", "aqua",
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// JWT Secret - generate random if not provided
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateSecureSecret(32)
		log.Println("WARNING: JWT_SECRET not set - generated random secret. Sessions will not persist across restarts.")
	}

	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	radiusSecret := getEnv("RADIUS_SECRET", "")
	if radiusSecret == "" {
		log.Println("WARNING: RADIUS_SECRET not set - wire codec operations will fail until configured")
	}

	companyCode := getEnv("COMPANY_CODE", "")
	if companyCode == "" {
		log.Println("WARNING: COMPANY_CODE not set - group names cannot be computed")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 3306),
		DBUser:     getEnv("DB_USER", "radius"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "radius"),
		DBCharset:  getEnv("DB_CHARSET", "utf8mb4"),

		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 3),
		DBRetryBaseDelay: getEnvDuration("DB_RETRY_BASE_DELAY_MS", 1000),
		DBRetryBackoff:   getEnvFloat("DB_RETRY_BACKOFF", 1.5),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret:      jwtSecret,
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168),

		APIPort: getEnvInt("API_PORT", 8080),

		RadiusHost:     getEnv("RADIUS_HOST", "127.0.0.1"),
		RadiusAuthPort: getEnvInt("RADIUS_AUTH_PORT", 1812),
		RadiusAcctPort: getEnvInt("RADIUS_ACCT_PORT", 1813),
		RadiusSecret:   radiusSecret,
		RadiusRetries:  getEnvInt("RADIUS_RETRIES", 3),
		RadiusTimeout:  getEnvDuration("RADIUS_TIMEOUT_MS", 5000),

		TelnetPort:           getEnvInt("TELNET_PORT", 23),
		TelnetConnectTimeout: getEnvDuration("TELNET_CONNECT_TIMEOUT_MS", 12000),
		TelnetCmdDelay:       getEnvDuration("TELNET_CMD_DELAY_MS", 500),
		TelnetReadTimeout:    getEnvDuration("TELNET_READ_TIMEOUT_MS", 8000),
		TelnetPagerMax:       getEnvInt("TELNET_PAGER_MAX", 20),

		TelnetUsername: getEnv("TELNET_USERNAME", ""),
		TelnetPassword: getEnv("TELNET_PASSWORD", ""),

		CompanyCode: companyCode,
		CompanyName: getEnv("COMPANY_NAME", ""),

		PlanAcctInterim: getEnvInt("PLAN_ACCT_INTERIM", 300),
		PlanIdleTimeout: getEnvInt("PLAN_IDLE_TIMEOUT", 600),

		PPPoEOnlineWindow: time.Duration(getEnvInt("PPPOE_ONLINE_WINDOW_MINUTES", 15)) * time.Minute,

		ONUColors: getEnvList("ONU_COLORS", defaultONUColors),

		DefaultSubscriptionMonths: getEnvInt("DEFAULT_SUBSCRIPTION_MONTHS", 1),

		EncryptionKey: getEnv("NAPS_ENCRYPTION_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration reads a millisecond count from the environment.
func getEnvDuration(key string, defaultMs int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMs)) * time.Millisecond
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
