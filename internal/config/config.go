package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment, plus the
// tunables that are fixed at startup.
type Config struct {
	Port string
	Env  string

	Judge0BaseURL string
	Judge0APIKey  string

	ClientOrigin string
	ViteOrigin   string

	LogLevel  string
	LogFormat string

	// Execution gateway tunables.
	PollInterval time.Duration
	RunTimeout   time.Duration

	// Admission control on /api/run.
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxBodyBytes    int64

	// Collaboration broker tunables.
	SessionIdleThreshold time.Duration
	SweepInterval        time.Duration
	MaxParticipants      int
}

// Load reads configuration from the environment. Outside production it first
// loads a .env file if one exists.
func Load() Config {
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg := Config{
		Port: getenv("PORT", "3001"),
		Env:  getenv("ENV", "development"),

		Judge0BaseURL: getenv("JUDGE0_BASE_URL", "https://ce.judge0.com"),
		Judge0APIKey:  os.Getenv("JUDGE0_API_KEY"),

		ClientOrigin: getenv("CLIENT_ORIGIN", "https://suryadaiv.github.io"),
		ViteOrigin:   getenv("VITE_ORIGIN", "http://localhost:5173"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: os.Getenv("LOG_FORMAT"),

		PollInterval: getduration("POLL_INTERVAL_MS", 500*time.Millisecond),
		RunTimeout:   getduration("RUN_TIMEOUT_MS", 60*time.Second),

		RateLimitMax:    getint("RATE_LIMIT_MAX", 30),
		RateLimitWindow: time.Minute,
		MaxBodyBytes:    256 << 10,

		SessionIdleThreshold: time.Hour,
		SweepInterval:        5 * time.Minute,
		MaxParticipants:      10,
	}

	if cfg.LogFormat == "" {
		if cfg.IsProd() {
			cfg.LogFormat = "json"
		} else {
			cfg.LogFormat = "console"
		}
	}
	return cfg
}

// IsProd reports whether the server runs in production mode.
func (c Config) IsProd() bool {
	return c.Env == "production"
}

// AllowedOrigins returns the browser origins permitted for CORS and websocket
// upgrades. Development additionally allows the local Vite dev server.
func (c Config) AllowedOrigins() []string {
	if c.IsProd() {
		return []string{c.ClientOrigin}
	}
	return []string{c.ViteOrigin, c.ClientOrigin}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
