// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/models"
)

// Logger discards everything.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// SQLite returns a migrated in-memory database private to t, and the gorm handle
// behind it for tests that need to inject failures. A single connection is used,
// so transactions serialize the way row locks would on Postgres.
func SQLite(t testing.TB) (*database.Database, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(Logger()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	d := database.NewDatabase(db)
	require.NoError(t, d.Migrate())
	return d, db
}

// User saves a user with the given username.
func User(t testing.TB, d *database.Database, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, d.SaveUser(context.Background(), user))
	return user
}

// EncryptedRecords returns the stored records of a message straight from the table.
func EncryptedRecords(t testing.TB, db *gorm.DB, messageID uuid.UUID) []models.EncryptedRecord {
	t.Helper()
	var records []models.EncryptedRecord
	require.NoError(t, db.Where("message_id = ?", messageID).Find(&records).Error)
	return records
}
