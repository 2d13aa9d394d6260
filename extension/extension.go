// Package extension provides the Forge extension adapter for dues.
//
// It implements the forge.Extension interface to integrate dues
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.dues" or "dues" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/dues"
	"github.com/xraph/dues/api"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/store"
	"github.com/xraph/dues/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "dues"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Periodic dues billing ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts dues as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config    Config
	engine    *dues.Dues
	store     store.Store
	directory member.Directory
	duesOpts  []dues.Option
}

// New creates a new dues Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying dues instance.
// This is nil until Register is called.
func (e *Extension) Engine() *dues.Dues { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the dues engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	eng, err := e.buildEngine()
	if err != nil {
		return err
	}
	e.engine = eng

	if err := vessel.Provide(fapp.Container(), func() (*dues.Dues, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableAPI {
		return nil
	}
	return vessel.Provide(fapp.Container(), func() (*api.Server, error) {
		return api.NewServer(e.engine, api.ServerOptions{}, e.engine.Logger()), nil
	})
}

// buildEngine resolves the store and directory and constructs the engine.
func (e *Extension) buildEngine() (*dues.Dues, error) {
	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.directory == nil {
		if e.config.MembersFile == "" {
			return nil, errors.New("dues: a member directory is required; use WithDirectory or set members_file")
		}
		e.directory = member.FileDirectory{Path: e.config.MembersFile}
	}

	opts, err := e.buildDuesOpts()
	if err != nil {
		return nil, err
	}
	return dues.New(e.store, e.directory, opts...), nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("dues: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("dues: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildDuesOpts constructs dues.Option values from the resolved config.
func (e *Extension) buildDuesOpts() ([]dues.Option, error) {
	opts := make([]dues.Option, 0, len(e.duesOpts)+3)

	if e.config.Timezone != "" {
		loc, err := time.LoadLocation(e.config.Timezone)
		if err != nil {
			return nil, fmt.Errorf("dues: timezone %q: %w", e.config.Timezone, err)
		}
		opts = append(opts, dues.WithLocation(loc))
	}
	if e.config.Workers > 0 {
		opts = append(opts, dues.WithWorkers(e.config.Workers))
	}
	opts = append(opts, dues.WithRetry(e.config.RetryAttempts, e.config.RetryInitialInterval, e.config.RetryMaxInterval))

	// Append any pass-through dues options.
	opts = append(opts, e.duesOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("dues: configuration is required but not found in config files; " +
				"ensure 'extensions.dues' or 'dues' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("dues: configuration loaded",
		forge.F("disable_api", e.config.DisableAPI),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("workers", e.config.Workers),
		forge.F("retry_attempts", e.config.RetryAttempts),
		forge.F("timezone", e.config.Timezone),
		forge.F("members_file", e.config.MembersFile),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.dues", "dues"} {
		if !cm.IsSet(key) {
			continue
		}
		err := cm.Bind(key, &cfg)
		if err == nil {
			e.Logger().Debug("dues: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("dues: failed to bind config",
			forge.F("key", key),
			forge.F("error", err),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Workers == 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = defaults.RetryInitialInterval
	}
	if cfg.RetryMaxInterval == 0 {
		cfg.RetryMaxInterval = defaults.RetryMaxInterval
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and bool
// flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableAPI {
		yamlConfig.DisableAPI = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.Timezone == "" {
		yamlConfig.Timezone = programmaticConfig.Timezone
	}
	if yamlConfig.MembersFile == "" {
		yamlConfig.MembersFile = programmaticConfig.MembersFile
	}
	if yamlConfig.Workers == 0 {
		yamlConfig.Workers = programmaticConfig.Workers
	}
	if yamlConfig.RetryAttempts == 0 {
		yamlConfig.RetryAttempts = programmaticConfig.RetryAttempts
	}
	if yamlConfig.RetryInitialInterval == 0 {
		yamlConfig.RetryInitialInterval = programmaticConfig.RetryInitialInterval
	}
	if yamlConfig.RetryMaxInterval == 0 {
		yamlConfig.RetryMaxInterval = programmaticConfig.RetryMaxInterval
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
