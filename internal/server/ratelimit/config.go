package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for requests that match no rule.
const (
	DefaultLimit           = 600
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 5 * time.Minute
	DefaultIdleTTL         = time.Hour
)

// Rule limits one tier of endpoints. Requests whose method matches and whose
// path equals Prefix, or continues it with "/", share one bucket per client.
type Rule struct {
	Name   string
	Method string // empty matches any method
	Prefix string
	Limit  int           // requests per Window; 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity; defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration
	Allow           map[string]bool // clients never limited
	Deny            map[string]bool // clients always rejected
	Rules           []Rule
}

// DefaultConfig returns the built-in tiers with rate limiting enabled.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    DefaultLimit,
		DefaultWindow:   DefaultWindow,
		CleanupInterval: DefaultCleanupInterval,
		IdleTTL:         DefaultIdleTTL,
		Allow:           map[string]bool{},
		Deny:            map[string]bool{},
		Rules:           DefaultRules(),
	}
}

// DefaultRules returns the endpoint tiers. Relay-backed endpoints cost a
// provider call, so they get the strictest limits.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "health", Method: "GET", Prefix: "/health"},
		{Name: "auth", Method: "POST", Prefix: "/auth/token", Limit: 10, Window: time.Minute, Burst: 5},
		{Name: "ai", Method: "POST", Prefix: "/ai", Limit: 30, Window: time.Minute, Burst: 5},
		{Name: "chat", Method: "POST", Prefix: "/chat", Limit: 60, Window: time.Minute, Burst: 10},
		{Name: "incident-chat", Method: "POST", Prefix: "/incidents", Limit: 30, Window: time.Minute, Burst: 5},
		{Name: "pipeline-runs", Method: "POST", Prefix: "/pipeline/runs", Limit: 20, Window: time.Minute, Burst: 3},
	}
}

// LoadConfig reads RATE_LIMIT_* variables from the environment.
func LoadConfig() *Config {
	return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = envBool(getenv, "RATE_LIMIT_ENABLED", true)
	cfg.DefaultLimit = envInt(getenv, "RATE_LIMIT_DEFAULT_LIMIT", DefaultLimit)
	cfg.DefaultWindow = envDuration(getenv, "RATE_LIMIT_DEFAULT_WINDOW", DefaultWindow)
	cfg.CleanupInterval = envDuration(getenv, "RATE_LIMIT_CLEANUP_INTERVAL", DefaultCleanupInterval)
	cfg.Allow = parseClientList(getenv("RATE_LIMIT_WHITELIST"))
	cfg.Deny = parseClientList(getenv("RATE_LIMIT_BLACKLIST"))
	return cfg
}

func envInt(getenv func(string) string, key string, fallback int) int {
	if n, err := strconv.Atoi(getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envBool(getenv func(string) string, key string, fallback bool) bool {
	if b, err := strconv.ParseBool(getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envDuration(getenv func(string) string, key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getenv(key)); err == nil {
		return d
	}
	return fallback
}

// parseClientList parses a comma-separated list of client addresses.
func parseClientList(list string) map[string]bool {
	out := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
