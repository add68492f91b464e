package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates everything the server wires at startup. Values come from
// the environment so main stays lean; a local .env file is honored when present.
type Config struct {
	Addr         string
	Verification VerificationConfig
	Abuse        AbuseConfig
	RateLimit    RateLimitConfig
	OTP          OTPConfig
	Redis        RedisConfig
	Credential   CredentialConfig
}

// VerificationConfig controls the session state machine.
type VerificationConfig struct {
	SessionTTL  time.Duration
	MaxAttempts int
	// ResendResetsAttempts controls whether re-sending an OTP for a medium
	// resets that medium's attempt counter. The historical behavior was
	// inconsistent, so it is an explicit setting rather than an assumption.
	ResendResetsAttempts bool
}

// AbuseConfig controls the sliding-window failure detector.
type AbuseConfig struct {
	Window    time.Duration
	Threshold int
}

// Tier is one endpoint-class rate limit: at most MaxRequests per Window.
type Tier struct {
	Window      time.Duration
	MaxRequests int
}

// RateLimitConfig holds the per-endpoint-class tiers. The OTP-send tier is the
// narrowest because sends cost money and are the favorite brute-force lever.
type RateLimitConfig struct {
	Generic Tier
	OTPSend Tier
	Login   Tier
}

// OTPConfig configures the external OTP provider gateway.
type OTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RedisConfig configures the optional shared keyed cache. An empty URL keeps
// all session state in process memory.
type RedisConfig struct {
	URL      string
	PoolSize int
}

// CredentialConfig configures the credential issued on successful login.
type CredentialConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

// FromEnv builds a Config from environment variables, applying defaults that
// match the documented flow parameters (10 minute sessions, 5 attempts,
// 15 minute abuse window with a 5 failure threshold).
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr: envString("ADDR", ":8080"),
		Verification: VerificationConfig{
			SessionTTL:           envDuration("SESSION_TTL", 10*time.Minute),
			MaxAttempts:          envInt("OTP_MAX_ATTEMPTS", 5),
			ResendResetsAttempts: envBool("OTP_RESEND_RESETS_ATTEMPTS", true),
		},
		Abuse: AbuseConfig{
			Window:    envDuration("ABUSE_WINDOW", 15*time.Minute),
			Threshold: envInt("ABUSE_THRESHOLD", 5),
		},
		RateLimit: RateLimitConfig{
			Generic: Tier{
				Window:      envDuration("RATE_GENERIC_WINDOW", time.Minute),
				MaxRequests: envInt("RATE_GENERIC_MAX", 300),
			},
			OTPSend: Tier{
				Window:      envDuration("RATE_OTP_SEND_WINDOW", time.Minute),
				MaxRequests: envInt("RATE_OTP_SEND_MAX", 5),
			},
			Login: Tier{
				Window:      envDuration("RATE_LOGIN_WINDOW", time.Minute),
				MaxRequests: envInt("RATE_LOGIN_MAX", 30),
			},
		},
		OTP: OTPConfig{
			BaseURL: os.Getenv("OTP_PROVIDER_URL"),
			APIKey:  os.Getenv("OTP_PROVIDER_API_KEY"),
			Timeout: envDuration("OTP_PROVIDER_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			PoolSize: envInt("REDIS_POOL_SIZE", 10),
		},
		Credential: CredentialConfig{
			SigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:   envDuration("TOKEN_TTL", 24*time.Hour),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
