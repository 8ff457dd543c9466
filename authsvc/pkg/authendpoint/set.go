package authendpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todocal/authsvc"
	"github.com/ichigozero/todocal/authsvc/pkg/authservice"
)

type Set struct {
	RegisterEndpoint endpoint.Endpoint
	LoginEndpoint    endpoint.Endpoint
	LogoutEndpoint   endpoint.Endpoint
}

func New(svc authservice.Service, logger log.Logger) Set {
	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = MakeRegisterEndpoint(svc)
		registerEndpoint = LoggingMiddleware(log.With(logger, "method", "Register"))(registerEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = MakeLoginEndpoint(svc)
		loginEndpoint = LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = MakeLogoutEndpoint()
		logoutEndpoint = LoggingMiddleware(log.With(logger, "method", "Logout"))(logoutEndpoint)
	}

	return Set{
		RegisterEndpoint: registerEndpoint,
		LoginEndpoint:    loginEndpoint,
		LogoutEndpoint:   logoutEndpoint,
	}
}

func (s Set) Register(ctx context.Context, username, password string) (authsvc.Session, error) {
	response, err := s.RegisterEndpoint(ctx, RegisterRequest{Username: username, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(RegisterResponse)
	return resp.Session, resp.Err
}

func (s Set) Login(ctx context.Context, username, password string) (authsvc.Session, error) {
	response, err := s.LoginEndpoint(ctx, LoginRequest{Username: username, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(LoginResponse)
	return resp.Session, resp.Err
}

func MakeRegisterEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(RegisterRequest)
		session, err := s.Register(ctx, req.Username, req.Password)

		return RegisterResponse{Session: session, Err: err}, nil
	}
}

func MakeLoginEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(LoginRequest)
		session, err := s.Login(ctx, req.Username, req.Password)

		return LoginResponse{Session: session, Err: err}, nil
	}
}

// MakeLogoutEndpoint acknowledges a logout. Tokens are stateless, so there is
// nothing to revoke server side; the transport drops the session cookie.
func MakeLogoutEndpoint() endpoint.Endpoint {
	return func(_ context.Context, request interface{}) (interface{}, error) {
		_ = request.(LogoutRequest)
		return LogoutResponse{Message: "Logged out"}, nil
	}
}

var (
	_ endpoint.Failer = RegisterResponse{}
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = LogoutResponse{}
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	authsvc.Session
	Err error `json:"-"`
}

func (r RegisterResponse) Failed() error { return r.Err }

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	authsvc.Session
	Err error `json:"-"`
}

func (r LoginResponse) Failed() error { return r.Err }

type LogoutRequest struct{}

type LogoutResponse struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (r LogoutResponse) Failed() error { return r.Err }
