package tasktransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todocal/authsvc/pkg/authtransport"
	"github.com/ichigozero/todocal/calendar"
	"github.com/ichigozero/todocal/tasksvc"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskservice"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Authenticator verifies the session token of every task request. Tokens are
// read from the Authorization header first and from the session cookie when
// Cookies is set.
type Authenticator struct {
	KeyFunc stdjwt.Keyfunc
	Cookies *authtransport.CookieCodec
}

// NewHTTPHandler serves the task and calendar routes. With a nil
// Authenticator every request is unscoped.
func NewHTTPHandler(endpoints taskendpoint.Set, auth *Authenticator, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	protect := func(e endpoint.Endpoint) endpoint.Endpoint { return e }
	if auth != nil {
		protect = kitjwt.NewParser(auth.KeyFunc, stdjwt.SigningMethodHS256, kitjwt.MapClaimsFactory)
		options = append(options, httptransport.ServerBefore(kitjwt.HTTPToContext()))
		if auth.Cookies != nil {
			options = append(options, httptransport.ServerBefore(authtransport.CookieToContext(auth.Cookies)))
		}
	}

	createTaskHandler := httptransport.NewServer(
		protect(endpoints.CreateTaskEndpoint),
		decodeHTTPCreateTaskRequest,
		encodeHTTPCreatedResponse,
		options...,
	)

	tasksHandler := httptransport.NewServer(
		protect(endpoints.TasksEndpoint),
		decodeHTTPTasksRequest,
		encodeHTTPTasksResponse,
		options...,
	)

	taskHandler := httptransport.NewServer(
		protect(endpoints.TaskEndpoint),
		decodeHTTPTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	updateTaskHandler := httptransport.NewServer(
		protect(endpoints.UpdateTaskEndpoint),
		decodeHTTPUpdateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	deleteTaskHandler := httptransport.NewServer(
		protect(endpoints.DeleteTaskEndpoint),
		decodeHTTPDeleteTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	monthHandler := httptransport.NewServer(
		protect(endpoints.MonthEndpoint),
		decodeHTTPMonthRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()
	if auth != nil {
		r.Use(auth.verify)
	}

	r.Methods("POST").Path("/tasks").Handler(createTaskHandler)
	r.Methods("GET").Path("/tasks").Handler(tasksHandler)
	r.Methods("GET").Path("/tasks/{task_id}").Handler(taskHandler)
	r.Methods("PUT").Path("/tasks/{task_id}").Handler(updateTaskHandler)
	r.Methods("DELETE").Path("/tasks/{task_id}").Handler(deleteTaskHandler)
	r.Methods("GET").Path("/calendar").Handler(monthHandler)
	r.Methods("GET").Path("/calendar/{year:[0-9]+}/{month:[0-9]+}").Handler(monthHandler)

	return r
}

// verify rejects a request whose token is missing or invalid before its body
// is decoded. The endpoint parser still puts the claims in the context.
func (a *Authenticator) verify(next http.Handler) http.Handler {
	parse := kitjwt.NewParser(a.KeyFunc, stdjwt.SigningMethodHS256, kitjwt.MapClaimsFactory)(
		func(context.Context, interface{}) (interface{}, error) { return nil, nil },
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kitjwt.HTTPToContext()(r.Context(), r)
		if a.Cookies != nil {
			ctx = authtransport.CookieToContext(a.Cookies)(ctx, r)
		}
		if _, err := parse(ctx, nil); err != nil {
			errorEncoder(ctx, err, w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewHTTPClient returns a Service backed by the task routes rooted at
// instance. The bearer token is taken from the context.
func NewHTTPClient(instance string, logger log.Logger) (taskservice.Service, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	options := []httptransport.ClientOption{
		httptransport.ClientBefore(kitjwt.ContextToHTTP()),
	}

	wrap := func(name string, e endpoint.Endpoint) endpoint.Endpoint {
		e = limiter(e)
		e = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
		}))(e)
		return taskendpoint.LoggingMiddleware(log.With(logger, "method", name))(e)
	}

	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/tasks"),
			encodeHTTPGenericRequest,
			decodeHTTPCreateTaskResponse,
			options...,
		).Endpoint()
		createTaskEndpoint = wrap("CreateTask", createTaskEndpoint)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPTasksRequest,
			decodeHTTPTasksResponse,
			options...,
		).Endpoint()
		tasksEndpoint = wrap("Tasks", tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPTaskRequest,
			decodeHTTPTaskResponse,
			options...,
		).Endpoint()
		taskEndpoint = wrap("Task", taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = httptransport.NewClient(
			"PUT",
			copyURL(u, "/tasks"),
			encodeHTTPUpdateTaskRequest,
			decodeHTTPUpdateTaskResponse,
			options...,
		).Endpoint()
		updateTaskEndpoint = wrap("UpdateTask", updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = httptransport.NewClient(
			"DELETE",
			copyURL(u, "/tasks"),
			encodeHTTPTaskRequest,
			decodeHTTPDeleteTaskResponse,
			options...,
		).Endpoint()
		deleteTaskEndpoint = wrap("DeleteTask", deleteTaskEndpoint)
	}

	var monthEndpoint endpoint.Endpoint
	{
		monthEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/calendar"),
			encodeHTTPMonthRequest,
			decodeHTTPMonthResponse,
			options...,
		).Endpoint()
		monthEndpoint = wrap("Month", monthEndpoint)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
		MonthEndpoint:      monthEndpoint,
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

type errorWrapper struct {
	Message string `json:"message"`
}

func err2code(err error) int {
	switch {
	case errors.Is(err, tasksvc.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, kitjwt.ErrTokenContextMissing),
		errors.Is(err, kitjwt.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, kitjwt.ErrTokenMalformed),
		errors.Is(err, kitjwt.ErrTokenInvalid),
		errors.Is(err, kitjwt.ErrTokenNotActive),
		errors.Is(err, kitjwt.ErrUnexpectedSigningMethod),
		errors.Is(err, stdjwt.ErrSignatureInvalid),
		errors.Is(err, tasksvc.ErrClaimsInvalid):
		return http.StatusForbidden
	case errors.Is(err, tasksvc.ErrTaskNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", tasksvc.ErrInvalidArgument, err)
}

// ErrBadRouting is returned when an expected path variable is missing.
// It always indicates programmer error.
var ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")

type createTaskBody struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
	Priority    tasksvc.Priority `json:"priority"`
	Completed   bool             `json:"completed"`
}

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var body createTaskBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, invalid(err)
	}

	req := taskendpoint.CreateTaskRequest{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		Completed:   body.Completed,
	}
	if body.Date != "" {
		date, err := tasksvc.ParseDate(body.Date)
		if err != nil {
			return nil, err
		}
		req.Date = date
	}
	return req, nil
}

func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req taskendpoint.TasksRequest

	if s := r.URL.Query().Get("date"); s != "" {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return nil, invalid(err)
		}
		req.Date = &d
	}
	return req, nil
}

func taskID(r *http.Request) (string, error) {
	id, ok := mux.Vars(r)["task_id"]
	if !ok || id == "" {
		return "", ErrBadRouting
	}
	return id, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.TaskRequest{TaskID: id}, nil
}

type updateTaskBody struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Date        *string           `json:"date"`
	Priority    *tasksvc.Priority `json:"priority"`
	Completed   *bool             `json:"completed"`
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}

	var body updateTaskBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, invalid(err)
	}

	req := taskendpoint.UpdateTaskRequest{
		TaskID:      id,
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		Completed:   body.Completed,
	}
	if body.Date != nil {
		date, err := tasksvc.ParseDate(*body.Date)
		if err != nil {
			return nil, err
		}
		req.Date = &date
	}
	return req, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.DeleteTaskRequest{TaskID: id}, nil
}

func decodeHTTPMonthRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	if _, ok := vars["year"]; !ok {
		return taskendpoint.MonthRequest{}, nil
	}

	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		return nil, invalid(err)
	}
	if year < 1 {
		return nil, invalid(fmt.Errorf("year %d out of range", year))
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		return nil, invalid(err)
	}
	return taskendpoint.MonthRequest{Year: year, Month: time.Month(month)}, nil
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

func encodeHTTPTasksRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TasksRequest)
	if req.Date != nil {
		q := r.URL.Query()
		q.Set("date", req.Date.String())
		r.URL.RawQuery = q.Encode()
	}
	return nil
}

func encodeHTTPTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	var id string
	switch req := request.(type) {
	case taskendpoint.TaskRequest:
		id = req.TaskID
	case taskendpoint.DeleteTaskRequest:
		id = req.TaskID
	}
	r.URL.Path += "/" + url.PathEscape(id)
	return nil
}

func encodeHTTPUpdateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.UpdateTaskRequest)
	r.URL.Path += "/" + url.PathEscape(req.TaskID)
	return encodeHTTPGenericRequest(ctx, r, req)
}

func encodeHTTPMonthRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.MonthRequest)
	if req.Year != 0 {
		r.URL.Path += fmt.Sprintf("/%d/%d", req.Year, int(req.Month))
	}
	return nil
}

// decodeHTTPError maps an error response back to the domain error it was
// encoded from.
func decodeHTTPError(r *http.Response) error {
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Message == "" {
		w.Message = r.Status
	}

	switch r.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", tasksvc.ErrInvalidArgument, w.Message)
	case http.StatusNotFound:
		return tasksvc.ErrTaskNotFound
	}
	return errors.New(w.Message)
}

func decodeHTTPCreateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, decodeHTTPError(r)
	}
	if r.StatusCode != http.StatusCreated {
		return taskendpoint.CreateTaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.CreateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPTasksResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, decodeHTTPError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.TasksResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.TasksResponse
	err := json.NewDecoder(r.Body).Decode(&resp.Tasks)
	return resp, err
}

func decodeHTTPTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, decodeHTTPError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.TaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.TaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPUpdateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, decodeHTTPError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.UpdateTaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.UpdateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPDeleteTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, decodeHTTPError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.DeleteTaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.DeleteTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPMonthResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, decodeHTTPError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.MonthResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.MonthResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func encodeHTTPCreatedResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(response)
}

func encodeHTTPTasksResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	resp := response.(taskendpoint.TasksResponse)
	if resp.Err != nil {
		errorEncoder(ctx, resp.Err, w)
		return nil
	}

	tasks := resp.Tasks
	if tasks == nil {
		tasks = []tasksvc.Task{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(tasks)
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
