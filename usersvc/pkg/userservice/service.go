package userservice

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todocal/usersvc"
	"github.com/twinj/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Create(ctx context.Context, username, password string) (usersvc.User, error)
	Authenticate(ctx context.Context, username, password string) (usersvc.User, error)
}

func New(users usersvc.UserRepository, cost int, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users, cost)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users usersvc.UserRepository
	cost  int
}

// NewBasicService returns a Service hashing passwords with bcrypt at the
// given cost. Out of range costs fall back to bcrypt.DefaultCost.
func NewBasicService(users usersvc.UserRepository, cost int) Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return basicService{users: users, cost: cost}
}

func (s basicService) Create(_ context.Context, username, password string) (usersvc.User, error) {
	if username == "" || password == "" {
		return usersvc.User{}, usersvc.ErrInvalidArgument
	}

	if _, err := s.users.FindByName(username); err == nil {
		return usersvc.User{}, usersvc.ErrUserExists
	} else if !errors.Is(err, usersvc.ErrUserNotFound) {
		return usersvc.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return usersvc.User{}, err
	}

	return s.users.Create(usersvc.User{
		ID:        uuid.NewV4().String(),
		Username:  username,
		Password:  string(hash),
		CreatedAt: time.Now().UTC(),
	})
}

func (s basicService) Authenticate(_ context.Context, username, password string) (usersvc.User, error) {
	if username == "" || password == "" {
		return usersvc.User{}, usersvc.ErrInvalidArgument
	}

	user, err := s.users.FindByName(username)
	if errors.Is(err, usersvc.ErrUserNotFound) {
		return usersvc.User{}, usersvc.ErrInvalidCredentials
	}
	if err != nil {
		return usersvc.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return usersvc.User{}, usersvc.ErrInvalidCredentials
	}
	return user, nil
}
