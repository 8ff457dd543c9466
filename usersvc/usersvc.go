package usersvc

import (
	"errors"
	"time"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Username  string    `json:"username" gorm:"uniqueIndex;size:255"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserRepository interface {
	Create(user User) (User, error)
	FindByName(username string) (User, error)
	Count() (int, error)
}

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrStorage            = errors.New("user storage failure")
)
