package extension

import (
	"github.com/xraph/dues"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/plugin"
	"github.com/xraph/dues/store"
)

// Option configures the dues Forge extension.
type Option func(*Extension)

// WithStore sets the store for the dues engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithDirectory sets the member directory.
func WithDirectory(dir member.Directory) Option {
	return func(e *Extension) {
		e.directory = dir
	}
}

// WithDuesOption passes a dues.Option through to the underlying engine.
func WithDuesOption(opt dues.Option) Option {
	return func(e *Extension) {
		e.duesOpts = append(e.duesOpts, opt)
	}
}

// WithPlugin registers a dues plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.duesOpts = append(e.duesOpts, dues.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableAPI skips providing the HTTP API server.
func WithDisableAPI() Option {
	return func(e *Extension) { e.config.DisableAPI = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithWorkers bounds concurrent charge writes within one period.
func WithWorkers(n int) Option {
	return func(e *Extension) { e.config.Workers = n }
}

// WithTimezone sets the IANA zone calendar days are evaluated in.
func WithTimezone(name string) Option {
	return func(e *Extension) { e.config.Timezone = name }
}

// WithMembersFile reads members from a YAML file.
func WithMembersFile(path string) Option {
	return func(e *Extension) { e.config.MembersFile = path }
}
