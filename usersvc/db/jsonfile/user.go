package jsonfile

import (
	"fmt"
	"sync"

	"github.com/ichigozero/todocal/storage/jsonfile"
	"github.com/ichigozero/todocal/usersvc"
	"github.com/ichigozero/todocal/usersvc/db/memory"
)

type userRepository struct {
	mtx  sync.Mutex
	path string
}

func NewUserRepository(path string) usersvc.UserRepository {
	return &userRepository{path: path}
}

func (u *userRepository) load() []usersvc.User {
	var users []usersvc.User
	jsonfile.Load(u.path, &users)
	return users
}

func (u *userRepository) Create(user usersvc.User) (usersvc.User, error) {
	u.mtx.Lock()
	defer u.mtx.Unlock()

	users := u.load()
	if memory.Index(users, user.Username) >= 0 {
		return usersvc.User{}, usersvc.ErrUserExists
	}
	if err := jsonfile.Save(u.path, append(users, user)); err != nil {
		return usersvc.User{}, fmt.Errorf("%w: %v", usersvc.ErrStorage, err)
	}
	return user, nil
}

func (u *userRepository) FindByName(username string) (usersvc.User, error) {
	u.mtx.Lock()
	defer u.mtx.Unlock()

	users := u.load()
	i := memory.Index(users, username)
	if i < 0 {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return users[i], nil
}

func (u *userRepository) Count() (int, error) {
	u.mtx.Lock()
	defer u.mtx.Unlock()

	return len(u.load()), nil
}
