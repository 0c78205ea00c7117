package business

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/model"
)

var migrationNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+\.sql$`)

type MigrationStorer interface {
	ExecScript(ctx context.Context, name, script string) error
	GetAppliedMigrations(ctx context.Context) (map[string]time.Time, error)
}

// MigrationManager applies the SQL files of a directory to the database
type MigrationManager struct {
	MigrationStorer
	dir string
}

func NewMigrationManager(ms MigrationStorer, dir string) *MigrationManager {
	return &MigrationManager{
		MigrationStorer: ms,
		dir:             dir,
	}
}

// List returns the SQL files of the migrations directory, sorted by name, with their applied status
func (mm MigrationManager) List(ctx context.Context) ([]model.Migration, error) {
	applied, err := mm.MigrationStorer.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(mm.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Migration{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("could not read migrations directory: %w", err)
	}

	migrations := []model.Migration{}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !migrationNameRegex.MatchString(dirEntry.Name()) {
			continue
		}
		migration := model.Migration{Name: dirEntry.Name()}
		if at, ok := applied[dirEntry.Name()]; ok {
			migration.Applied = true
			migration.AppliedAt = &at
		}
		migrations = append(migrations, migration)
	}
	slices.SortFunc(migrations, func(a, b model.Migration) int {
		return strings.Compare(a.Name, b.Name)
	})
	return migrations, nil
}

// Apply runs the named migration file. A file can only be applied once.
func (mm MigrationManager) Apply(ctx context.Context, name string) error {
	if !migrationNameRegex.MatchString(name) {
		return fmt.Errorf("invalid migration name %q: %w", name, model.ErrInvalidInput)
	}
	script, err := os.ReadFile(filepath.Join(mm.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("migration %s: %w", name, model.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("could not read migration %s: %w", name, err)
	}
	if err := mm.MigrationStorer.ExecScript(ctx, name, string(script)); err != nil {
		return err
	}
	log.Info().Str("migration", name).Msg("Migration applied")
	return nil
}
