package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client and the agent supervisor.
type Config struct {
	Graph      GraphConfig
	Transport  TransportConfig
	Supervisor SupervisorConfig
	Logging    LoggingConfig
}

// GraphConfig holds the content-graph endpoints and fixed protocol values.
type GraphConfig struct {
	GraphURL       string
	UploadURL      string
	ActorID        string
	FeedLocation   string
	FeedbackSource int
	Scale          int
}

// TransportConfig holds HTTP transport and session configuration.
type TransportConfig struct {
	UserID     string
	DTSG       string
	CookieFile string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

// SupervisorConfig holds the control server configuration.
type SupervisorConfig struct {
	Host            string
	Port            string
	AgentCommand    []string
	StateFile       string
	ProcessFile     string
	StopTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string
	Environment string
}

// Load reads configuration from the environment, with a .env file as an
// optional source.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := &Config{
		Graph: GraphConfig{
			GraphURL:       getEnv("OVIZONE_GRAPH_URL", "https://www.facebook.com/api/graphql/"),
			UploadURL:      getEnv("OVIZONE_UPLOAD_URL", "https://www.facebook.com/ajax/ufi/upload/"),
			ActorID:        getEnv("OVIZONE_ACTOR_ID", ""),
			FeedLocation:   getEnv("OVIZONE_FEED_LOCATION", "NEWSFEED"),
			FeedbackSource: getInt("OVIZONE_FEEDBACK_SOURCE", 110),
			Scale:          getInt("OVIZONE_SCALE", 1),
		},
		Transport: TransportConfig{
			UserID:     getEnv("OVIZONE_USER_ID", ""),
			DTSG:       getEnv("OVIZONE_DTSG", ""),
			CookieFile: getEnv("OVIZONE_COOKIE_FILE", ""),
			Timeout:    getDuration("OVIZONE_HTTP_TIMEOUT", 60*time.Second),
			MaxRetries: getInt("OVIZONE_HTTP_MAX_RETRIES", 3),
			UserAgent:  getEnv("OVIZONE_USER_AGENT", ""),
		},
		Supervisor: SupervisorConfig{
			Host:            getEnv("OVIZONE_SUPERVISOR_HOST", "127.0.0.1"),
			Port:            getEnv("OVIZONE_SUPERVISOR_PORT", "9180"),
			AgentCommand:    getCommand("OVIZONE_AGENT_COMMAND", nil),
			StateFile:       getEnv("OVIZONE_STATE_FILE", "state.json"),
			ProcessFile:     getEnv("OVIZONE_PROCESS_FILE", "process.json"),
			StopTimeout:     getDuration("OVIZONE_STOP_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDuration("OVIZONE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnv("OVIZONE_LOG_LEVEL", "info"),
			Environment: getEnv("GO_ENV", "development"),
		},
	}

	return cfg, nil
}

// ValidateForClient checks the fields the comment client requires.
func (c *Config) ValidateForClient() error {
	if c.Graph.ActorID == "" {
		return fmt.Errorf("OVIZONE_ACTOR_ID is required")
	}
	if c.Transport.UserID == "" {
		return fmt.Errorf("OVIZONE_USER_ID is required")
	}
	if c.Transport.DTSG == "" {
		return fmt.Errorf("OVIZONE_DTSG is required")
	}
	return nil
}

// ValidateForSupervisor checks the fields the control server requires.
func (c *Config) ValidateForSupervisor() error {
	if len(c.Supervisor.AgentCommand) == 0 {
		return fmt.Errorf("OVIZONE_AGENT_COMMAND is required")
	}
	return nil
}

// LoadCookies reads the session cookie file, one "name=value; Domain=..."
// cookie per line, in the format the browser exporter writes.
func (c *TransportConfig) LoadCookies() ([]*http.Cookie, error) {
	if c.CookieFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.CookieFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var cookies []*http.Cookie
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cookie := parseCookieLine(line)
		if cookie != nil {
			cookies = append(cookies, cookie)
		}
	}
	return cookies, nil
}

func parseCookieLine(line string) *http.Cookie {
	parts := strings.Split(line, ";")
	nameValue := strings.SplitN(strings.TrimSpace(parts[0]), "=", 2)
	if len(nameValue) != 2 || nameValue[0] == "" {
		return nil
	}
	cookie := &http.Cookie{Name: nameValue[0], Value: nameValue[1]}
	for _, attr := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(attr), "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "domain") {
			cookie.Domain = kv[1]
		}
	}
	return cookie
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getCommand(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Fields(value)
	}
	return fallback
}
