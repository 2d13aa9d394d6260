package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/xraph/dues/store"
	"github.com/xraph/dues/store/mongo"
	"github.com/xraph/dues/store/storetest"
)

// TestConformance runs against the server named by DUES_TEST_MONGO_URI,
// dropping the dues_test database before every test.
func TestConformance(t *testing.T) {
	uri := os.Getenv("DUES_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DUES_TEST_MONGO_URI not set")
	}

	suite.Run(t, &storetest.Suite{NewStore: func() store.Store {
		ctx := context.Background()
		s, err := mongo.Open(ctx, uri, "dues_test")
		require.NoError(t, err)
		require.NoError(t, s.Database().Drop(ctx))
		return s
	}})
}
