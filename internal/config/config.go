package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration values.  It is built once at startup
// and passed by value into the components that need it; nothing in the
// application reads the environment after Load returns.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign and verify tokens
	JWTIssuer string // iss claim written into and required from every token

	SessionTTL time.Duration // lifetime of login tokens; 0 means no exp claim
	ResetTTL   time.Duration // lifetime of password reset tokens
	BcryptCost int           // bcrypt work factor for new digests

	StoreTimeout     time.Duration // upper bound for store calls made by one request
	ExposeResetToken bool          // echo reset tokens in the forgetPassword response (development only)
	MigrateOnStart   bool          // run embedded goose migrations before serving
	LogLevel         string        // zerolog level name
	LogFormat        string        // "json" or "console"
	AMQPURL          string        // broker for password reset notifications; empty disables publishing
	ResetMailLog     string        // file the reset mail consumer appends to
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),
		JWTIssuer: envStr("JWT_ISSUER", "social-api"),

		SessionTTL: time.Duration(envInt("TOKEN_TTL_MIN", 0)) * time.Minute,
		ResetTTL:   time.Duration(envInt("RESET_TOKEN_TTL_MIN", 30)) * time.Minute,
		BcryptCost: mustInt("BCRYPT_COST"),

		StoreTimeout:     envDur("STORE_TIMEOUT", 5*time.Second),
		ExposeResetToken: envBool("RESET_TOKEN_IN_RESPONSE", false),
		MigrateOnStart:   envBool("DB_MIGRATE", true),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		LogFormat:        envStr("LOG_FORMAT", "json"),
		AMQPURL:          amqpURL(),
		ResetMailLog:     envStr("RESET_MAIL_LOG", "logs/password_reset.log"),
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		log.Fatalf("BCRYPT_COST must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if cfg.ResetTTL <= 0 {
		log.Fatalf("RESET_TOKEN_TTL_MIN must be positive")
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return cfg
}

// amqpURL accepts both spellings used by deployment manifests.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
