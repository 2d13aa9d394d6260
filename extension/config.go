package extension

import "time"

// Config holds the dues extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.dues" or "dues" keys).
type Config struct {
	// DisableAPI skips providing the *api.Server in the DI container.
	DisableAPI bool `json:"disable_api" mapstructure:"disable_api" yaml:"disable_api"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Workers bounds concurrent charge writes within one period (default: 8).
	Workers int `json:"workers" mapstructure:"workers" yaml:"workers"`

	// RetryAttempts bounds conditional-write retries (default: 5).
	RetryAttempts uint `json:"retry_attempts" mapstructure:"retry_attempts" yaml:"retry_attempts"`

	// RetryInitialInterval is the first retry backoff (default: 10ms).
	RetryInitialInterval time.Duration `json:"retry_initial_interval" mapstructure:"retry_initial_interval" yaml:"retry_initial_interval"`

	// RetryMaxInterval caps the retry backoff (default: 250ms).
	RetryMaxInterval time.Duration `json:"retry_max_interval" mapstructure:"retry_max_interval" yaml:"retry_max_interval"`

	// Timezone names the IANA zone calendar days are evaluated in (default: "UTC").
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`

	// MembersFile is a YAML member directory used when no directory was
	// supplied programmatically.
	MembersFile string `json:"members_file" mapstructure:"members_file" yaml:"members_file"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:              8,
		RetryAttempts:        5,
		RetryInitialInterval: 10 * time.Millisecond,
		RetryMaxInterval:     250 * time.Millisecond,
		Timezone:             "UTC",
	}
}
