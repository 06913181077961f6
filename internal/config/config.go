package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Deployment environments
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Verification code modes
const (
	OTPModeBypass = "bypass"
	OTPModeRandom = "random"
)

// SMS providers
const (
	SMSProviderLog = "log"
	SMSProviderSNS = "sns"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Social   SocialConfig
	SMS      SMSConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectAttempts   int
	ConnectRetryDelay time.Duration
}

// RedisConfig is optional; an empty Addr keeps the registries in memory
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port               string
	Env                string
	LogLevel           string
	AllowedOrigins     []string
	TrustedProxies     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	AuthRateLimitPerIP int
}

type AuthConfig struct {
	JWTSecret          string
	JWTRefreshSecret   string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type OTPConfig struct {
	Mode               string
	TTL                time.Duration
	LockoutMaxAttempts int
	LockoutDuration    time.Duration
	SweepInterval      time.Duration
	FailureDelay       time.Duration
	FailureJitter      time.Duration
	DebugCodeLogging   bool
}

type SocialConfig struct {
	GoogleClientID      string
	VerificationTimeout time.Duration
}

type SMSConfig struct {
	Provider  string
	AWSRegion string
	SenderID  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", EnvDevelopment)

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "ditto"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectAttempts:   getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
			ConnectRetryDelay: getEnvAsDuration("DB_CONNECT_RETRY_DELAY", 2*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			Env:                env,
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:     parseAllowedOrigins(env),
			TrustedProxies:     splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AuthRateLimitPerIP: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			JWTRefreshSecret:   getEnv("JWT_REFRESH_SECRET", jwtSecret),
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour),
		},
		OTP: OTPConfig{
			Mode:               getEnv("OTP_MODE", defaultOTPMode(env)),
			TTL:                getEnvAsDuration("OTP_TTL", 5*time.Minute),
			LockoutMaxAttempts: getEnvAsInt("LOCKOUT_MAX_ATTEMPTS", 5),
			LockoutDuration:    getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
			FailureDelay:       getEnvAsDuration("OTP_FAILURE_DELAY", 200*time.Millisecond),
			FailureJitter:      getEnvAsDuration("OTP_FAILURE_JITTER", 100*time.Millisecond),
			DebugCodeLogging:   env == EnvDevelopment || env == EnvTest,
		},
		Social: SocialConfig{
			GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
			VerificationTimeout: getEnvAsDuration("SOCIAL_VERIFY_TIMEOUT", 10*time.Second),
		},
		SMS: SMSConfig{
			Provider:  getEnv("SMS_PROVIDER", SMSProviderLog),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
			SenderID:  getEnv("SMS_SENDER_ID", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret("JWT_SECRET", cfg.Auth.JWTSecret, env); err != nil {
		return nil, err
	}
	if err := validateJWTSecret("JWT_REFRESH_SECRET", cfg.Auth.JWTRefreshSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.OTP.validate(env); err != nil {
		return nil, err
	}

	switch cfg.SMS.Provider {
	case SMSProviderLog:
		if env == EnvProduction {
			return nil, fmt.Errorf("SMS_PROVIDER=log is not allowed in production")
		}
	case SMSProviderSNS:
	default:
		return nil, fmt.Errorf("SMS_PROVIDER must be %q or %q", SMSProviderLog, SMSProviderSNS)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production guarantees
func (c *ServerConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

func (c *OTPConfig) validate(env string) error {
	switch c.Mode {
	case OTPModeBypass:
		if env == EnvProduction {
			return fmt.Errorf("OTP_MODE=bypass is not allowed in production")
		}
	case OTPModeRandom:
	default:
		return fmt.Errorf("OTP_MODE must be %q or %q", OTPModeBypass, OTPModeRandom)
	}

	if c.TTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if c.LockoutMaxAttempts < 1 {
		return fmt.Errorf("LOCKOUT_MAX_ATTEMPTS must be at least 1")
	}
	if c.LockoutDuration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return nil
}

func defaultOTPMode(env string) string {
	if env == EnvDevelopment || env == EnvTest {
		return OTPModeBypass
	}
	return OTPModeRandom
}

// validateJWTSecret enforces minimum security standards for JWT secrets
func validateJWTSecret(name, secret, env string) error {
	// Minimum length based on environment
	minLength := 16 // Development minimum
	if env == EnvProduction {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == EnvProduction || env == EnvStaging {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants (Expo web and metro bundler included)
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:8081",
		"http://localhost:19006",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8081",
		"http://127.0.0.1:19006",
	}
}
