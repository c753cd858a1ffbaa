package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"struggles/internal/config"
	"struggles/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
users:
  - name: Ada Lovelace
    username: ada
`

func TestInitRuntime_SQLiteWithFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: filepath.Join(dir, "test.db")}
	ctx := context.Background()

	rt, err := InitRuntime(ctx, cfg, Options{Migrate: true, FixturePath: path, SkipRedis: true})
	require.NoError(t, err)
	assert.Nil(t, rt.Redis)

	var n int64
	require.NoError(t, rt.DB.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	rt.Close()

	// A second start leaves existing data alone.
	rt, err = InitRuntime(ctx, cfg, Options{Migrate: true, FixturePath: path, SkipRedis: true})
	require.NoError(t, err)
	defer rt.Close()
	require.NoError(t, rt.DB.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestRuntime_CloseNil(t *testing.T) {
	var rt *Runtime
	rt.Close()
}
