// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SIMULATION TIMING
// =============================================================================

// TimingConfig holds the fixed-step simulation tuning. The frame data in the
// action catalog is authored against TargetFrameRate, so changing it rescales
// every startup/active/recovery duration in wall-clock terms.
type TimingConfig struct {
	TargetFrameRate        float64 // Fixed simulation rate in frames per second
	BufferWindowSeconds    float64 // How long a deferred input stays consultable
	ComboResetSeconds      float64 // Idle time after which the combo chain clears
	MaxComboChain          int     // Chain length cap; oldest entries evicted
	PerfectCancelExtension float64 // Combo time granted by a perfect cancel
}

// DefaultTiming returns the 60 Hz tuning the shipped catalog was authored for.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		TargetFrameRate:        60.0,
		BufferWindowSeconds:    0.2,
		ComboResetSeconds:      2.0,
		MaxComboChain:          20,
		PerfectCancelExtension: 1.0,
	}
}

// TimingFromEnv returns timing configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func TimingFromEnv() TimingConfig {
	cfg := DefaultTiming()

	if fr := getEnvFloat("FRAME_RATE", 0); fr > 0 {
		cfg.TargetFrameRate = fr
	}
	if bw := getEnvFloat("BUFFER_WINDOW_SECONDS", 0); bw > 0 {
		cfg.BufferWindowSeconds = bw
	}
	if cr := getEnvFloat("COMBO_RESET_SECONDS", 0); cr > 0 {
		cfg.ComboResetSeconds = cr
	}
	if mc := getEnvInt("MAX_COMBO_CHAIN", 0); mc > 0 {
		cfg.MaxComboChain = mc
	}
	if pe := getEnvFloat("PERFECT_CANCEL_EXTENSION", 0); pe > 0 {
		cfg.PerfectCancelExtension = pe
	}

	return cfg
}

// =============================================================================
// ARENA RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxFighters        int // Hard cap on simultaneous fighters in the arena
	MaxRequestsPerSec  int // Per-client action request rate limit
	RequestBurst       int // Burst allowance on top of the rate limit
	MaxBufferedClients int // WebSocket clients before new connections are refused
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxFighters:        64,
		MaxRequestsPerSec:  30,
		RequestBurst:       10,
		MaxBufferedClients: 256,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if mf := getEnvInt("MAX_FIGHTERS", 0); mf > 0 {
		cfg.MaxFighters = mf
	}
	if rps := getEnvInt("MAX_REQUESTS_PER_SEC", 0); rps > 0 {
		cfg.MaxRequestsPerSec = rps
	}
	if b := getEnvInt("REQUEST_BURST", 0); b > 0 {
		cfg.RequestBurst = b
	}
	if bc := getEnvInt("MAX_BUFFERED_CLIENTS", 0); bc > 0 {
		cfg.MaxBufferedClients = bc
	}

	return cfg
}

// =============================================================================
// DATA FILES
// =============================================================================

// DataConfig holds the paths the loader reads the catalog from and the replay
// journal writes to.
type DataConfig struct {
	ActionsPath      string // YAML action catalog
	HiddenCombosPath string // YAML hidden combo list, empty disables
	ReplayPath       string // JSONL event journal, empty disables
}

// DefaultData returns the default data file locations.
func DefaultData() DataConfig {
	return DataConfig{
		ActionsPath:      "data/actions.yaml",
		HiddenCombosPath: "data/hidden_combos.yaml",
		ReplayPath:       "replay.jsonl",
	}
}

// DataFromEnv returns data file locations with environment variable overrides.
func DataFromEnv() DataConfig {
	cfg := DefaultData()

	if p := os.Getenv("ACTIONS_PATH"); p != "" {
		cfg.ActionsPath = p
	}
	if p := os.Getenv("HIDDEN_COMBOS_PATH"); p != "" {
		cfg.HiddenCombosPath = p
	}
	if p := os.Getenv("REPLAY_PATH"); p != "" {
		cfg.ReplayPath = p
	}
	if os.Getenv("REPLAY_DISABLED") == "true" {
		cfg.ReplayPath = ""
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	DebugPort int // localhost-only pprof/metrics listener, 0 disables
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		DebugPort: 6060,
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("DEBUG_PORT", -1); p >= 0 {
		cfg.DebugPort = p
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Timing TimingConfig
	Limits ResourceLimits
	Data   DataConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Timing: TimingFromEnv(),
		Limits: LimitsFromEnv(),
		Data:   DataFromEnv(),
		Server: ServerFromEnv(),
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
