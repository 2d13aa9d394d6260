package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xraph/dues"
	"github.com/xraph/dues/config"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/store"
	"github.com/xraph/dues/store/memory"
	"github.com/xraph/dues/store/mongo"
	"github.com/xraph/dues/store/postgres"
	"github.com/xraph/dues/store/redis"
	"github.com/xraph/dues/store/sqlite"
)

// session is an opened engine plus the configuration that built it.
type session struct {
	cfg    config.Config
	dues   *dues.Dues
	logger *slog.Logger
}

func (s *session) close() {
	if err := s.dues.Stop(); err != nil {
		s.logger.Warn("stop failed", "error", err)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openSession loads configuration, opens the store and starts the engine.
func openSession(cmd *cobra.Command, opts ...dues.Option) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	ctx := cmd.Context()
	s, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	opts = append([]dues.Option{
		dues.WithLogger(logger),
		dues.WithLocation(loc),
		dues.WithWorkers(cfg.Engine.Workers),
		dues.WithRetry(cfg.Engine.RetryAttempts, dues.DefaultRetryPolicy.InitialInterval, dues.DefaultRetryPolicy.MaxInterval),
	}, opts...)
	d := dues.New(s, member.FileDirectory{Path: cfg.Members.File}, opts...)
	if err := d.Start(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	sess := &session{cfg: cfg, dues: d, logger: logger}
	if err := sess.seedFees(ctx); err != nil {
		sess.close()
		return nil, err
	}
	return sess, nil
}

// seedFees stores the configured fee overrides when the store has none.
func (s *session) seedFees(ctx context.Context) error {
	if s.cfg.Fee == nil {
		return nil
	}
	_, err := s.dues.Store().GetFeeConfig(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, dues.ErrConfigNotFound):
		return fmt.Errorf("read fee config: %w", err)
	}
	if err := s.dues.SetConfig(ctx, s.cfg.Fee); err != nil {
		return fmt.Errorf("seed fee config: %w", err)
	}
	s.logger.Info("fee config seeded from file")
	return nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, sc.DSN)
	case config.DriverPostgres:
		return postgres.Open(ctx, sc.DSN)
	case config.DriverMongo:
		return mongo.Open(ctx, sc.DSN, sc.Database)
	case config.DriverRedis:
		return redis.Open(ctx, sc.DSN, redis.WithPrefix(sc.Prefix))
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}
