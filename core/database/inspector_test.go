package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE test_items (id INTEGER PRIMARY KEY, name TEXT, description TEXT)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "test_items")
	assert.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}

	assert.Equal(t, "integer", colMap["id"])
	assert.Equal(t, "text", colMap["name"])
	assert.Equal(t, "text", colMap["description"])

	// PRAGMA table_info returns an empty result for a missing table
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestCheckSchema(t *testing.T) {
	t.Run("Empty Database", func(t *testing.T) {
		db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)

		issues, err := CheckSchema(db)
		require.NoError(t, err)
		assert.Len(t, issues, len(Models()))
		for _, issue := range issues {
			assert.True(t, issue.MissingTable, issue.String())
		}
	})

	t.Run("Migrated Database", func(t *testing.T) {
		db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		require.NoError(t, Migrate(db))

		issues, err := CheckSchema(db)
		require.NoError(t, err)
		assert.Empty(t, issues)
	})

	t.Run("Missing Column", func(t *testing.T) {
		db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		require.NoError(t, Migrate(db))
		require.NoError(t, db.Exec("DROP TABLE feature_ranges").Error)
		require.NoError(t, db.Exec("CREATE TABLE feature_ranges (id INTEGER PRIMARY KEY, feature_id INTEGER)").Error)

		issues, err := CheckSchema(db)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "feature_ranges", issues[0].Table)
		assert.Contains(t, issues[0].MissingColumns, "from_status")
		assert.Contains(t, issues[0].String(), "lacks columns")
	})
}
