package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrJWTSecretMissing is returned when JWT_SECRET is not set. Servers treat it
// as "admin routes are open".
var ErrJWTSecretMissing = errors.New("JWT_SECRET is required but not set")

// minSecretLength is the shortest accepted HMAC secret
const minSecretLength = 16

// JWTConfig holds configuration for admin token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads JWT_SECRET (required), JWT_EXPIRATION_HOURS (default: 24) and
// JWT_ISSUER (default: catalog-agent).
func NewJWTConfig() (*JWTConfig, error) {
	return JWTConfigFromEnv(os.Getenv)
}

// JWTConfigFromEnv is NewJWTConfig with an injectable environment lookup.
func JWTConfigFromEnv(getenv func(string) string) (*JWTConfig, error) {
	secret := getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrJWTSecretMissing
	}

	expirationStr := getenv("JWT_EXPIRATION_HOURS")
	if expirationStr == "" {
		expirationStr = "24" // default
	}

	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
	}

	issuer := getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "catalog-agent"
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
		Issuer:          issuer,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
