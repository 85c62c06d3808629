// Package config loads configuration for the recvariant CLI.
//
// Values are layered, lowest to highest precedence: built-in defaults, the
// recvariant.yaml config file, RECVARIANT_* environment variables, and
// command-line flags that were explicitly set.
package config

// Config holds all CLI configuration options.
type Config struct {
	OutputFormat string   `koanf:"output"`
	Verbose      bool     `koanf:"verbose"`
	Forward      []string `koanf:"forward"`
	Scale        int      `koanf:"scale"`
}

// Default configuration values.
const (
	DefaultConfigFile = "recvariant.yaml"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultScale      = 1
	EnvPrefix         = "RECVARIANT_"
)

// Default returns the configuration used when nothing was loaded.
func Default() *Config {
	return &Config{
		OutputFormat: DefaultOutput,
		Scale:        DefaultScale,
	}
}
