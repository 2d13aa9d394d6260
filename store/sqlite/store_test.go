package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/store"
	"github.com/xraph/dues/store/sqlite"
	"github.com/xraph/dues/store/storetest"
)

func TestConformance(t *testing.T) {
	suite.Run(t, &storetest.Suite{NewStore: func() store.Store {
		s, err := sqlite.Open(context.Background(), ":memory:")
		require.NoError(t, err)
		return s
	}})
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dues.db")
	jan := period.MustParse("2025-01")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	c := charge.New("unit-1", jan, 5000, jan.Start(time.UTC))
	created, err := s.CreateChargeIfAbsent(ctx, c)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetChargeByKey(ctx, "unit-1", jan)
	require.NoError(t, err)
	assert.Equal(t, c.ID.String(), got.ID.String())
}
