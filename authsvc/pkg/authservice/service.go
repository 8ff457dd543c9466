package authservice

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todocal/authsvc"
	"github.com/ichigozero/todocal/usersvc"
	"github.com/ichigozero/todocal/usersvc/pkg/userservice"
)

type Service interface {
	Register(ctx context.Context, username, password string) (authsvc.Session, error)
	Login(ctx context.Context, username, password string) (authsvc.Session, error)
}

func New(users userservice.Service, t *Tokenizer, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users, t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users     userservice.Service
	tokenizer *Tokenizer
}

func NewBasicService(users userservice.Service, t *Tokenizer) Service {
	return &basicService{users: users, tokenizer: t}
}

func (s *basicService) Register(ctx context.Context, username, password string) (authsvc.Session, error) {
	user, err := s.users.Create(ctx, username, password)
	if err != nil {
		return authsvc.Session{}, err
	}
	return s.session(user)
}

func (s *basicService) Login(ctx context.Context, username, password string) (authsvc.Session, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return authsvc.Session{}, err
	}
	return s.session(user)
}

func (s *basicService) session(user usersvc.User) (authsvc.Session, error) {
	token, err := s.tokenizer.Generate(user)
	if err != nil {
		return authsvc.Session{}, err
	}
	return authsvc.Session{Token: token, Username: user.Username}, nil
}
