package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrdered(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, "0001_init", ms[0].Name)
	assert.Equal(t, "0002_add_product_rating", ms[1].Name)
	assert.Equal(t, "0003_reviews_active_unique", ms[2].Name)
}

func TestRatingMigrationBackfillsExistingRows(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	stmts := SplitStatements(ms[1].SQL)
	require.Len(t, stmts, 3)
	assert.True(t, strings.HasPrefix(stmts[0], "ALTER TABLE products ADD COLUMN rating"))
	assert.True(t, strings.HasPrefix(stmts[1], "UPDATE products SET rating = 0.0"))
	assert.Contains(t, stmts[2], "NOT NULL DEFAULT 0.0")
}

func TestSplitStatements(t *testing.T) {
	script := `-- comment
CREATE TABLE a (
    id INT
);

INSERT INTO a VALUES (1);
-- trailing comment
UPDATE a SET id = 2`
	got := SplitStatements(script)
	require.Len(t, got, 3)
	assert.Equal(t, "CREATE TABLE a (\n    id INT\n)", got[0])
	assert.Equal(t, "INSERT INTO a VALUES (1)", got[1])
	assert.Equal(t, "UPDATE a SET id = 2", got[2])
}

func TestInitMigrationCreatesEveryTable(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	stmts := SplitStatements(ms[0].SQL)
	require.Len(t, stmts, 4)
	for i, table := range []string{"users", "categories", "products", "reviews"} {
		assert.Contains(t, stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
