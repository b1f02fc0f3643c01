package repositories_test

import (
	"fmt"
	"testing"

	"bikeshop/internal/database"
	"bikeshop/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}
