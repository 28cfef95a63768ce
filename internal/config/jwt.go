package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultJWTExpirationHours is the token lifetime when JWT_EXPIRATION_HOURS is unset.
const DefaultJWTExpirationHours = 24

// JWTConfig holds configuration for operator token signing and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// AuthConfig enables operator authentication on the HTTP API.
type AuthConfig struct {
	JWT *JWTConfig
	// OperatorPasswordHash is the bcrypt hash checked by POST /auth/token.
	// Without it tokens can only be minted with the CLI.
	OperatorPasswordHash string
}

// NewJWTConfig creates a JWT configuration from environment variables.
// It reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	return jwtConfigFrom(os.Getenv)
}

// LoadAuthConfig returns nil when JWT_SECRET is unset, which leaves the API open.
func LoadAuthConfig() (*AuthConfig, error) {
	return authConfigFrom(os.Getenv)
}

// Expiration returns the token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

func authConfigFrom(getenv func(string) string) (*AuthConfig, error) {
	if getenv("JWT_SECRET") == "" {
		return nil, nil
	}
	jwtCfg, err := jwtConfigFrom(getenv)
	if err != nil {
		return nil, err
	}
	return &AuthConfig{
		JWT:                  jwtCfg,
		OperatorPasswordHash: getenv("OPERATOR_PASSWORD_HASH"),
	}, nil
}

func jwtConfigFrom(getenv func(string) string) (*JWTConfig, error) {
	secret := getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	expirationHours := DefaultJWTExpirationHours
	if v := getenv("JWT_EXPIRATION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		expirationHours = hours
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
