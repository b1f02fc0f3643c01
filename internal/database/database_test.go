package database_test

import (
	"context"
	"errors"
	"testing"

	"bikeshop/internal/database"
	"bikeshop/internal/logger"
	"bikeshop/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, database.Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = database.Ping(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := database.Open("sqlite", "file:migrate_test?mode=memory&cache=shared", logger.Discard())
	require.NoError(t, err)
	defer database.Close(db)

	require.NoError(t, database.Migrate(db))
	for _, table := range []interface{}{&models.User{}, &models.Product{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := database.Open("mysql", "whatever", logger.Discard())
	assert.Error(t, err)
}

func TestOpenReportsQueryErrorsThroughLogrus(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	db, err := database.Open("sqlite", "file:logging_test?mode=memory&cache=shared", log)
	require.NoError(t, err)
	defer database.Close(db)

	require.Error(t, db.Exec("SELECT * FROM missing_table").Error)
	require.NotEmpty(t, hook.AllEntries())
	assert.Contains(t, hook.LastEntry().Message, "missing_table")
}
