package combination

import "fmt"

// Default search bounds.
const (
	DefaultMaxIterations = 10000
	DefaultResultFactor  = 10
	DefaultMaxResults    = 5
)

// Config bounds the combination walk.
type Config struct {
	// MaxIterations caps the number of recursive invocations of one search.
	MaxIterations int `json:"max_iterations"`
	// ResultFactor caps the raw combinations collected at maxResults*ResultFactor.
	ResultFactor int `json:"result_factor"`
	// DefaultMaxResults is used when a caller asks for zero or fewer results.
	DefaultMaxResults int `json:"default_max_results"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ResultFactor == 0 {
		c.ResultFactor = DefaultResultFactor
	}
	if c.DefaultMaxResults == 0 {
		c.DefaultMaxResults = DefaultMaxResults
	}
}

// Validate rejects negative bounds.
func (c Config) Validate() error {
	if c.MaxIterations < 0 || c.ResultFactor < 0 || c.DefaultMaxResults < 0 {
		return fmt.Errorf("search bounds must not be negative")
	}
	return nil
}
