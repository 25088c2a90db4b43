package config

import "fmt"

// AuthConfig contains the HS256 bearer-token verification configuration
// middleware.BearerAuth checks every /api/v1 request against.
type AuthConfig struct {
	JWTIssuer string `mapstructure:"jwt_issuer"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Validate ensures the auth configuration is usable for HS256 verification.
func (c *AuthConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET required for HS256 signing method")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if c.JWTIssuer == "" {
		return fmt.Errorf("jwt_issuer is required")
	}
	return nil
}
