package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dues/member"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{Workers: 3})
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, uint(5), cfg.RetryAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryInitialInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryMaxInterval)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestMergeConfigurations(t *testing.T) {
	yamlCfg := Config{Timezone: "America/Bogota", Workers: 16}
	prog := Config{DisableMigrate: true, Workers: 2, MembersFile: "members.yaml"}

	cfg := mergeConfigurations(yamlCfg, prog)
	assert.Equal(t, "America/Bogota", cfg.Timezone)
	assert.Equal(t, 16, cfg.Workers)
	assert.True(t, cfg.DisableMigrate)
	assert.False(t, cfg.DisableAPI)
	assert.Equal(t, "members.yaml", cfg.MembersFile)
	assert.Equal(t, uint(5), cfg.RetryAttempts)
}

func TestBuildEngine(t *testing.T) {
	t.Run("requires directory", func(t *testing.T) {
		e := New()
		e.config = mergeWithDefaults(e.config)
		_, err := e.buildEngine()
		require.Error(t, err)
	})

	t.Run("members file", func(t *testing.T) {
		e := New(WithMembersFile("members.yaml"))
		e.config = mergeWithDefaults(e.config)
		eng, err := e.buildEngine()
		require.NoError(t, err)
		require.NotNil(t, eng)
		assert.Equal(t, member.FileDirectory{Path: "members.yaml"}, e.directory)
	})

	t.Run("timezone", func(t *testing.T) {
		e := New(WithDirectory(member.Static{{ID: "A", Active: true}}), WithTimezone("America/Bogota"))
		e.config = mergeWithDefaults(e.config)
		eng, err := e.buildEngine()
		require.NoError(t, err)
		assert.Equal(t, "America/Bogota", eng.Location().String())
	})

	t.Run("bad timezone", func(t *testing.T) {
		e := New(WithDirectory(member.Static{}), WithTimezone("Nowhere/Atlantis"))
		_, err := e.buildEngine()
		require.Error(t, err)
	})
}
