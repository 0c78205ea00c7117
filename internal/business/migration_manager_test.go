package business_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/model"
)

func TestMigrationManager(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_tags.sql"), []byte(`ALTER TABLE movies ADD COLUMN tags TEXT NOT NULL DEFAULT '';`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_notes.sql"), []byte(`CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT);`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a migration"), 0o644))
	mm := business.NewMigrationManager(db, dir)

	migrations, err := mm.List(ctx)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "0001_notes.sql", migrations[0].Name)
	assert.False(t, migrations[0].Applied)

	require.NoError(t, mm.Apply(ctx, "0001_notes.sql"))
	assert.ErrorIs(t, mm.Apply(ctx, "0001_notes.sql"), model.ErrAlreadyExists)

	migrations, err = mm.List(ctx)
	require.NoError(t, err)
	assert.True(t, migrations[0].Applied)
	assert.NotNil(t, migrations[0].AppliedAt)
	assert.False(t, migrations[1].Applied)

	schemas, err := db.DescribeSchema(ctx, "notes")
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Len(t, schemas[0].Columns, 2)

	assert.ErrorIs(t, mm.Apply(ctx, "../schema.sql"), model.ErrInvalidInput)
	assert.ErrorIs(t, mm.Apply(ctx, "README.md"), model.ErrInvalidInput)
	assert.ErrorIs(t, mm.Apply(ctx, "0003_missing.sql"), model.ErrNotFound)
}

func TestMigrationManagerMissingDir(t *testing.T) {
	db := newStore(t)
	mm := business.NewMigrationManager(db, filepath.Join(t.TempDir(), "none"))
	migrations, err := mm.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, migrations)
}
