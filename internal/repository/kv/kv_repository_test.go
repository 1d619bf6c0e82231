package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) KVRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kv.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Entry{}))
	return NewKVRepository(db)
}

func TestPutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Get(ctx, "juriChats")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, repo.Put(ctx, "juriChats", "[]"))
	require.NoError(t, repo.Put(ctx, "juriChats", `[{"id":"a"}]`))

	got, err := repo.Get(ctx, "juriChats")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, got)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Put(ctx, "k", "v"))
	require.NoError(t, repo.Delete(ctx, "k"))
	assert.ErrorIs(t, repo.Delete(ctx, "k"), ErrKeyNotFound)

	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestEmptyKeyRejected(t *testing.T) {
	repo := newTestRepo(t)
	assert.Error(t, repo.Put(context.Background(), "", "v"))
	_, err := repo.Get(context.Background(), "")
	assert.Error(t, err)
}
