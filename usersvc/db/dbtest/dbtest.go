// Package dbtest holds the behaviour every usersvc.UserRepository must share.
package dbtest

import (
	"testing"
	"time"

	"github.com/ichigozero/todocal/usersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T, newRepo func(t *testing.T) usersvc.UserRepository) {
	user := func(id, name string) usersvc.User {
		return usersvc.User{ID: id, Username: name, Password: "hash-" + name, CreatedAt: time.Now().UTC()}
	}

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(user("u1", "alice"))
		require.NoError(t, err)

		found, err := repo.FindByName("alice")
		require.NoError(t, err)
		assert.Equal(t, "u1", found.ID)
		assert.Equal(t, "hash-alice", found.Password)
	})

	t.Run("username is unique", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(user("u1", "alice"))
		require.NoError(t, err)

		_, err = repo.Create(user("u2", "alice"))
		assert.ErrorIs(t, err, usersvc.ErrUserExists)

		n, err := repo.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("username is case sensitive", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(user("u1", "alice"))
		require.NoError(t, err)
		_, err = repo.Create(user("u2", "Alice"))
		require.NoError(t, err)

		_, err = repo.FindByName("ALICE")
		assert.ErrorIs(t, err, usersvc.ErrUserNotFound)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByName("nobody")
		assert.ErrorIs(t, err, usersvc.ErrUserNotFound)
	})
}
