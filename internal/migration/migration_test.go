package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsAreOrderedAndComplete(t *testing.T) {
	m := NewMigrator(nil)

	for i, migration := range m.migrations {
		assert.Equal(t, i+1, migration.Version, "versions must be sequential")
		assert.NotEmpty(t, migration.Name)
		assert.NotEmpty(t, strings.TrimSpace(migration.Up))
		assert.NotEmpty(t, strings.TrimSpace(migration.Down))
	}
}

func TestPending(t *testing.T) {
	all := getAllMigrations()

	assert.Len(t, Pending(all, 0), len(all))
	assert.Len(t, Pending(all, 1), len(all)-1)
	assert.Empty(t, Pending(all, len(all)))
}
