package gorm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ichigozero/todocal/usersvc"
	libgorm "gorm.io/gorm"
)

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) usersvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) Create(user usersvc.User) (usersvc.User, error) {
	if _, err := u.FindByName(user.Username); err == nil {
		return usersvc.User{}, usersvc.ErrUserExists
	} else if !errors.Is(err, usersvc.ErrUserNotFound) {
		return usersvc.User{}, err
	}

	return u.insert(user)
}

// insert relies on the unique username index when a concurrent Create wins
// the race between the lookup and the insert.
func (u *userRepository) insert(user usersvc.User) (usersvc.User, error) {
	if result := u.db.Create(&user); result.Error != nil {
		if isUniqueViolation(result.Error) {
			return usersvc.User{}, usersvc.ErrUserExists
		}
		return usersvc.User{}, fmt.Errorf("%w: %v", usersvc.ErrStorage, result.Error)
	}
	return user, nil
}

// isUniqueViolation reports a unique constraint failure from sqlite or
// postgres (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value")
}

func (u *userRepository) FindByName(username string) (usersvc.User, error) {
	var user usersvc.User
	result := u.db.Where("username = ?", username).First(&user)
	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	if result.Error != nil {
		return usersvc.User{}, fmt.Errorf("%w: %v", usersvc.ErrStorage, result.Error)
	}
	return user, nil
}

func (u *userRepository) Count() (int, error) {
	var n int64
	if result := u.db.Model(&usersvc.User{}).Count(&n); result.Error != nil {
		return 0, fmt.Errorf("%w: %v", usersvc.ErrStorage, result.Error)
	}
	return int(n), nil
}
