package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/xraph/dues/store"
	"github.com/xraph/dues/store/postgres"
	"github.com/xraph/dues/store/storetest"
)

// TestConformance runs against a disposable database named by
// DUES_TEST_POSTGRES_DSN. Tables are truncated before every test.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("DUES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DUES_TEST_POSTGRES_DSN not set")
	}

	suite.Run(t, &storetest.Suite{NewStore: func() store.Store {
		ctx := context.Background()
		s, err := postgres.Open(ctx, dsn)
		require.NoError(t, err)
		_, err = s.DB().ExecContext(ctx, `TRUNCATE dues_charges, dues_closures, dues_fee_config`)
		require.NoError(t, err)
		return s
	}})
}
