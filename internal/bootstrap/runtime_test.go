package bootstrap

import (
	"errors"
	"path/filepath"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/seed"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func runtimeConfig(t *testing.T, redisAddr string) *config.Config {
	return &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		DBSQLitePath: filepath.Join(t.TempDir(), "inkwell.db"),
		RedisURL:     redisAddr,
		SeedGroups:   true,
	}
}

func TestInitRuntimeSeedsGroups(t *testing.T) {
	mr := miniredis.RunT(t)

	rt, err := InitRuntime(runtimeConfig(t, mr.Addr()))
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Redis)
	var n int64
	require.NoError(t, rt.DB.Model(&models.Group{}).Count(&n).Error)
	assert.Equal(t, int64(len(seed.DefaultGroups())), n)
}

func TestInitRuntimeReleasesConnectionsOnSeedFailure(t *testing.T) {
	mr := miniredis.RunT(t)

	var opened *gorm.DB
	prev := seedGroups
	seedGroups = func(db *gorm.DB, _ []seed.GroupFixture) ([]models.Group, error) {
		opened = db
		return nil, errors.New("duplicate slug")
	}
	t.Cleanup(func() { seedGroups = prev })

	rt, err := InitRuntime(runtimeConfig(t, mr.Addr()))
	require.Error(t, err)
	assert.Nil(t, rt)
	assert.Contains(t, err.Error(), "duplicate slug")

	assert.Nil(t, cache.GetClient())
	require.NotNil(t, opened)
	sqlDB, err := opened.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}
