package config

import (
	"fmt"
	"slices"
)

var outputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OutputFormat != "" && !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (available: %v)", c.OutputFormat, outputFormats)
	}
	if c.Scale == 0 {
		return fmt.Errorf("scale must be non-zero")
	}
	return nil
}
