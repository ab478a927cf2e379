// Package config provides centralized configuration management.
// This is the single source of truth for arena, match and server settings;
// every value can be overridden from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP and websocket settings.
type ServerConfig struct {
	Port             int
	AllowedOrigins   []string // CORS and websocket origin allow-list
	MaxWSConnections int      // process-wide cap
	MaxWSPerIP       int
	RequestsPerSec   float64 // per-IP HTTP rate
	RequestBurst     int
	ShutdownTimeout  time.Duration
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		MaxWSConnections: 2000,
		MaxWSPerIP:       10,
		RequestsPerSec:   20,
		RequestBurst:     40,
		ShutdownTimeout:  5 * time.Second,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvList("ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	if n := getEnvInt("MAX_WS_CONNECTIONS", 0); n > 0 {
		cfg.MaxWSConnections = n
	}
	if n := getEnvInt("MAX_WS_PER_IP", 0); n > 0 {
		cfg.MaxWSPerIP = n
	}
	if r := getEnvFloat("HTTP_RATE_LIMIT", 0); r > 0 {
		cfg.RequestsPerSec = r
	}

	return cfg
}

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig is the grid geometry shared with clients.
type ArenaConfig struct {
	Width    int // cells
	Height   int // cells
	CellSize int // pixels per cell on the client
}

// DefaultArena returns a 40x30 grid of 48px cells.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		Width:    40,
		Height:   30,
		CellSize: 48,
	}
}

// ArenaFromEnv returns arena configuration with environment variable overrides.
func ArenaFromEnv() ArenaConfig {
	cfg := DefaultArena()

	if w := getEnvInt("ARENA_WIDTH", 0); w >= 4 {
		cfg.Width = w
	}
	if h := getEnvInt("ARENA_HEIGHT", 0); h >= 4 {
		cfg.Height = h
	}
	if s := getEnvInt("CELL_SIZE", 0); s > 0 {
		cfg.CellSize = s
	}

	return cfg
}

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// MatchConfig drives the per-room scheduler and lobby rules.
type MatchConfig struct {
	TickRate       int           // simulation ticks per second
	MoveEvery      int           // ticks per one-cell step
	Duration       time.Duration // countdown
	FullStateEvery int           // ticks between full snapshots
	DeltaEvery     int           // ticks between deltas
	MaxPlayers     int
	MinPlayers     int
}

// DefaultMatch returns a 3 minute match at 60 Hz moving 10 cells per second.
func DefaultMatch() MatchConfig {
	return MatchConfig{
		TickRate:       60,
		MoveEvery:      6,
		Duration:       3 * time.Minute,
		FullStateEvery: 60,
		DeltaEvery:     2,
		MaxPlayers:     4,
		MinPlayers:     2,
	}
}

// MatchFromEnv returns match configuration with environment variable overrides.
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()

	if r := getEnvInt("TICK_RATE", 0); r > 0 {
		cfg.TickRate = r
	}
	if m := getEnvInt("MOVE_EVERY", 0); m > 0 {
		cfg.MoveEvery = m
	}
	if d := getEnvDuration("MATCH_DURATION", 0); d > 0 {
		cfg.Duration = d
	}
	if mp := getEnvInt("MAX_PLAYERS", 0); mp > 0 {
		cfg.MaxPlayers = mp
	}

	return cfg
}

// =============================================================================
// CONNECTION LIMITS
// =============================================================================

// LimitsConfig bounds what a single connection may do.
type LimitsConfig struct {
	MessagesPerSec   float64 // inbound websocket frames
	MessageBurst     int
	MaxMessageBytes  int64
	SendQueue        int // outbound frames buffered per connection
	ChatMaxPerWindow int
	ChatWindow       time.Duration
	ChatCooldown     time.Duration
}

// DefaultLimits returns the default per-connection limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		MessagesPerSec:   30,
		MessageBurst:     60,
		MaxMessageBytes:  4096,
		SendQueue:        128,
		ChatMaxPerWindow: 5,
		ChatWindow:       5 * time.Second,
		ChatCooldown:     300 * time.Millisecond,
	}
}

// =============================================================================
// OBSERVABILITY
// =============================================================================

// ObservabilityConfig configures the debug server and event journal.
type ObservabilityConfig struct {
	DebugEnabled  bool
	DebugAddr     string // localhost only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string
	BasicAuthPass string
	EventLogPath  string // empty keeps events in memory
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugEnabled: true,
		DebugAddr:    "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv returns observability configuration with environment variable overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DEBUG_SERVER") == "false" {
		cfg.DebugEnabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	cfg.EventLogPath = os.Getenv("EVENT_LOG_PATH")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server        ServerConfig
	Arena         ArenaConfig
	Match         MatchConfig
	Limits        LimitsConfig
	Observability ObservabilityConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:        ServerFromEnv(),
		Arena:         ArenaFromEnv(),
		Match:         MatchFromEnv(),
		Limits:        DefaultLimits(),
		Observability: ObservabilityFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go duration strings ("90s") or plain seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return defaultVal
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
