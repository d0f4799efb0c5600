// Package odm provides a Go client for the job-based import API and the
// group-linking API of an ODM data-management service.
package odm

import "time"

// Default client settings.
const (
	DefaultServerURL = "http://localhost:8080"
	DefaultTimeout   = 60 * time.Second
	TokenHeader      = "Genestack-API-Token"
)

// Config holds all configuration for the ODM API client.
type Config struct {
	// BaseURL is the service root, without the /api/v1 prefix.
	BaseURL string

	// Token is sent in the Genestack-API-Token header when non-empty.
	Token string

	// Timeout is the HTTP client timeout for each request.
	Timeout time.Duration
}

// DefaultConfig returns a Config pointing at a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultServerURL,
		Timeout: DefaultTimeout,
	}
}

// WithToken returns a copy of the config with the specified token.
func (c Config) WithToken(token string) Config {
	c.Token = token
	return c
}

// WithBaseURL returns a copy of the config with the specified service root.
func (c Config) WithBaseURL(url string) Config {
	c.BaseURL = url
	return c
}
