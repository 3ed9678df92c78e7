package crm

import (
	"errors"
	"strings"
	"time"
)

// Default transport settings
const (
	DefaultTimeout         = 15 * time.Second
	DefaultMaxConnsPerHost = 16
)

// Config holds configuration for the Vigo CRM integration
type Config struct {
	// BaseURL is the CRM root, e.g. https://crm.example.net
	BaseURL string
	// Token is the bearer token sent on record lookups
	Token string
	// Login and Password obtain a token at startup when Token is empty
	Login    string
	Password string
	// Timeout bounds every CRM call
	Timeout time.Duration
	// MaxConnsPerHost sizes the shared connection pool
	MaxConnsPerHost int
}

// Errors for CRM configuration
var (
	ErrConfigMissingBaseURL     = errors.New("crm: base url is required")
	ErrConfigMissingCredentials = errors.New("crm: token or login/password is required")
)

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.Token == "" && !c.HasCredentials() {
		return ErrConfigMissingCredentials
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxConnsPerHost <= 0 {
		c.MaxConnsPerHost = DefaultMaxConnsPerHost
	}
	return nil
}

// HasCredentials reports whether login and password are both set
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.Login) != "" && strings.TrimSpace(c.Password) != ""
}
