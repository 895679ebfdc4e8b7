package app

import (
	"testing"

	"arc_community_backend/internal/marketplace"
	"arc_community_backend/internal/platform/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesEveryTable(t *testing.T) {
	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseGORMDB(db) })

	require.NoError(t, Migrate(db))
	for _, m := range Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasColumn(&marketplace.Offer{}, "last_counter_items"))
	assert.True(t, db.Migrator().HasColumn(&marketplace.Listing{}, "seeking_items"))
}
