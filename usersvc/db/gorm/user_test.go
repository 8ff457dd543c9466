package gorm

import (
	"fmt"
	"testing"

	"github.com/ichigozero/todocal/usersvc"
	"github.com/ichigozero/todocal/usersvc/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbs int

func openDB(t *testing.T) *libgorm.DB {
	t.Helper()

	dbs++
	dsn := fmt.Sprintf("file:users%d?mode=memory&cache=shared", dbs)
	db, err := libgorm.Open(sqlite.Open(dsn), &libgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&usersvc.User{}))
	return db
}

func TestUserRepository(t *testing.T) {
	dbtest.TestUserRepository(t, func(t *testing.T) usersvc.UserRepository {
		return NewUserRepository(openDB(t))
	})
}

func TestInsertDuplicateIsUserExists(t *testing.T) {
	repo := &userRepository{db: openDB(t)}

	_, err := repo.insert(usersvc.User{ID: "u1", Username: "alice", Password: "x"})
	require.NoError(t, err)

	// A second insert past the lookup, as when two registrations race.
	_, err = repo.insert(usersvc.User{ID: "u2", Username: "alice", Password: "y"})
	assert.ErrorIs(t, err, usersvc.ErrUserExists)
}
