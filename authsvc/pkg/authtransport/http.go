package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todocal/authsvc"
	"github.com/ichigozero/todocal/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todocal/authsvc/pkg/authservice"
	"github.com/ichigozero/todocal/usersvc"
)

// NewHTTPHandler serves register, login and logout. Successful register and
// login responses also set the session cookie when cookies is not nil.
func NewHTTPHandler(endpoints authendpoint.Set, cookies *CookieCodec, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	registerHandler := httptransport.NewServer(
		endpoints.RegisterEndpoint,
		decodeHTTPRegisterRequest,
		encodeHTTPSessionResponse(cookies, http.StatusCreated),
		options...,
	)

	loginHandler := httptransport.NewServer(
		endpoints.LoginEndpoint,
		decodeHTTPLoginRequest,
		encodeHTTPSessionResponse(cookies, http.StatusOK),
		options...,
	)

	logoutHandler := httptransport.NewServer(
		endpoints.LogoutEndpoint,
		decodeHTTPLogoutRequest,
		encodeHTTPLogoutResponse(cookies),
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/register").Handler(registerHandler)
	r.Methods("POST").Path("/login").Handler(loginHandler)
	r.Methods("POST").Path("/logout").Handler(logoutHandler)

	return r
}

func NewHTTPClient(instance string, logger log.Logger) (authservice.Service, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	var options []httptransport.ClientOption

	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/register"),
			encodeHTTPGenericRequest,
			decodeHTTPRegisterResponse,
			options...,
		).Endpoint()
		registerEndpoint = authendpoint.LoggingMiddleware(log.With(logger, "method", "Register"))(registerEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/login"),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
			options...,
		).Endpoint()
		loginEndpoint = authendpoint.LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	return authendpoint.Set{
		RegisterEndpoint: registerEndpoint,
		LoginEndpoint:    loginEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Message: err.Error()})
}

func err2code(err error) int {
	switch {
	case errors.Is(err, usersvc.ErrInvalidArgument),
		errors.Is(err, usersvc.ErrUserExists),
		errors.Is(err, authsvc.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, usersvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

type errorWrapper struct {
	Message string `json:"message"`
}

func decodeHTTPRegisterRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", authsvc.ErrInvalidArgument, err)
	}
	return req, nil
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", authsvc.ErrInvalidArgument, err)
	}
	return req, nil
}

func decodeHTTPLogoutRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.LogoutRequest{}, nil
}

func decodeHTTPRegisterResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusCreated {
		return nil, decodeHTTPError(r)
	}
	var resp authendpoint.RegisterResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return nil, decodeHTTPError(r)
	}
	var resp authendpoint.LoginResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// decodeHTTPError turns an error response back into an error carrying the
// server's message.
func decodeHTTPError(r *http.Response) error {
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Message == "" {
		return errors.New(r.Status)
	}
	return errors.New(w.Message)
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

func encodeHTTPSessionResponse(cookies *CookieCodec, code int) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
			errorEncoder(ctx, f.Failed(), w)
			return nil
		}
		if cookies != nil {
			if err := cookies.SetToken(w, sessionOf(response).Token); err != nil {
				return err
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		return json.NewEncoder(w).Encode(response)
	}
}

func sessionOf(response interface{}) authsvc.Session {
	switch resp := response.(type) {
	case authendpoint.RegisterResponse:
		return resp.Session
	case authendpoint.LoginResponse:
		return resp.Session
	}
	return authsvc.Session{}
}

func encodeHTTPLogoutResponse(cookies *CookieCodec) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		if cookies != nil {
			cookies.Clear(w)
		}
		return encodeHTTPGenericResponse(ctx, w, response)
	}
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}
