// Package config provides environment configuration for the call monitor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Playback settings
	Script        string
	FixtureDir    string
	AutoStart     bool
	FrameInterval time.Duration
	TickInterval  time.Duration
	ScrollDelay   time.Duration

	// Waveform surface
	WaveformWidth  int
	WaveformHeight int

	// NATS mirror
	NATSEnabled       bool
	NATSURL           string
	NATSCAFile        string
	NATSCertFile      string
	NATSKeyFile       string
	NATSToken         string
	NATSSubjectPrefix string

	// Auth
	AuthEnabled bool
	JWTSecret   string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first without overriding the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),

		// Playback
		Script:        getEnv("CALL_SCRIPT", "clinic-intake"),
		FixtureDir:    getEnv("FIXTURE_DIR", ""),
		AutoStart:     getBoolEnv("AUTO_START", true),
		FrameInterval: getDurationEnv("FRAME_INTERVAL", 16*time.Millisecond),
		TickInterval:  getDurationEnv("TICK_INTERVAL", time.Second),
		ScrollDelay:   getDurationEnv("SCROLL_DELAY", 100*time.Millisecond),

		// Waveform
		WaveformWidth:  getIntEnv("WAVEFORM_WIDTH", 800),
		WaveformHeight: getIntEnv("WAVEFORM_HEIGHT", 100),

		// NATS
		NATSEnabled:       getBoolEnv("NATS_ENABLED", false),
		NATSURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:        getEnv("NATS_CA_FILE", ""),
		NATSCertFile:      getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:       getEnv("NATS_KEY_FILE", ""),
		NATSToken:         getEnv("NATS_TOKEN", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "callmon"),

		// Auth
		AuthEnabled: getBoolEnv("AUTH_ENABLED", false),
		JWTSecret:   getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate reports settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Script == "" {
		errs = append(errs, errors.New("CALL_SCRIPT must not be empty"))
	}
	if c.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("FRAME_INTERVAL must be positive, got %v", c.FrameInterval))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %v", c.TickInterval))
	}
	if c.ScrollDelay < 0 {
		errs = append(errs, fmt.Errorf("SCROLL_DELAY must not be negative, got %v", c.ScrollDelay))
	}
	if c.WaveformWidth <= 0 || c.WaveformHeight <= 0 {
		errs = append(errs, fmt.Errorf("waveform size must be positive, got %dx%d", c.WaveformWidth, c.WaveformHeight))
	}
	if c.AuthEnabled && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when AUTH_ENABLED is set"))
	}
	if c.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
