// Package testutil builds the fixtures shared by package tests: an in-memory
// database and seeded users.
package testutil

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/direct-chat/internal/database"
	"github.com/thereayou/direct-chat/internal/models"
	"github.com/thereayou/direct-chat/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabase opens a private in-memory sqlite database with the schema
// migrated. It is closed when the test ends.
func NewDatabase(t *testing.T) *database.Database {
	t.Helper()
	logger.SetOutput(io.Discard)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	d := database.NewDatabase(db)
	require.NoError(t, d.Migrate())

	t.Cleanup(func() { _ = d.Close() })
	return d
}

// CreateUser stores a user with a placeholder password hash.
func CreateUser(t *testing.T, db *database.Database, name, email string) *models.User {
	t.Helper()

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.SaveUser(context.Background(), user))
	return user
}
