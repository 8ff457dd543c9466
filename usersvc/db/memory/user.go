package memory

import (
	"sync"

	"github.com/ichigozero/todocal/usersvc"
)

type userRepository struct {
	mtx   sync.RWMutex
	users []usersvc.User
}

func NewUserRepository() usersvc.UserRepository {
	return &userRepository{}
}

func (u *userRepository) Create(user usersvc.User) (usersvc.User, error) {
	u.mtx.Lock()
	defer u.mtx.Unlock()

	if Index(u.users, user.Username) >= 0 {
		return usersvc.User{}, usersvc.ErrUserExists
	}
	u.users = append(u.users, user)
	return user, nil
}

func (u *userRepository) FindByName(username string) (usersvc.User, error) {
	u.mtx.RLock()
	defer u.mtx.RUnlock()

	i := Index(u.users, username)
	if i < 0 {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return u.users[i], nil
}

func (u *userRepository) Count() (int, error) {
	u.mtx.RLock()
	defer u.mtx.RUnlock()

	return len(u.users), nil
}

// Index returns the position of username in users, or -1. Usernames are
// compared case-sensitively.
func Index(users []usersvc.User, username string) int {
	for i, user := range users {
		if user.Username == username {
			return i
		}
	}
	return -1
}
