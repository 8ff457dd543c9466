package memory

import (
	"testing"

	"github.com/ichigozero/todocal/usersvc"
	"github.com/ichigozero/todocal/usersvc/db/dbtest"
)

func TestUserRepository(t *testing.T) {
	dbtest.TestUserRepository(t, func(*testing.T) usersvc.UserRepository {
		return NewUserRepository()
	})
}
