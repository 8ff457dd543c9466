package taskendpoint

import (
	"context"
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todocal/authsvc"
	"github.com/ichigozero/todocal/calendar"
	"github.com/ichigozero/todocal/tasksvc"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskservice"
)

type Set struct {
	CreateTaskEndpoint endpoint.Endpoint
	TasksEndpoint      endpoint.Endpoint
	TaskEndpoint       endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
	MonthEndpoint      endpoint.Endpoint
}

func New(svc taskservice.Service, logger log.Logger) Set {
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(svc)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(svc)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(svc)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = MakeUpdateTaskEndpoint(svc)
		updateTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateTask"))(updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = MakeDeleteTaskEndpoint(svc)
		deleteTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTask"))(deleteTaskEndpoint)
	}

	var monthEndpoint endpoint.Endpoint
	{
		monthEndpoint = MakeMonthEndpoint(svc)
		monthEndpoint = LoggingMiddleware(log.With(logger, "method", "Month"))(monthEndpoint)
	}

	return Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
		MonthEndpoint:      monthEndpoint,
	}
}

// The Set methods below let a Set be used as a client-side Service. The
// owner scope is carried by the token in ctx, so a is not sent.

func (s Set) CreateTask(ctx context.Context, _ tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	resp, err := s.CreateTaskEndpoint(ctx, CreateTaskRequest{
		Title:       task.Title,
		Description: task.Description,
		Date:        task.Date,
		Priority:    task.Priority,
		Completed:   task.Completed,
	})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(CreateTaskResponse)
	return response.Task, response.Err
}

func (s Set) Tasks(ctx context.Context, _ tasksvc.Auth) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(ctx, TasksRequest{})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) TasksDue(ctx context.Context, _ tasksvc.Auth, d calendar.Date) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(ctx, TasksRequest{Date: &d})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, _ tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(ctx, TaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) UpdateTask(ctx context.Context, _ tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	resp, err := s.UpdateTaskEndpoint(ctx, UpdateTaskRequest{
		TaskID:      taskID,
		Title:       p.Title,
		Description: p.Description,
		Date:        p.Date,
		Priority:    p.Priority,
		Completed:   p.Completed,
	})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(UpdateTaskResponse)
	return response.Task, response.Err
}

func (s Set) DeleteTask(ctx context.Context, _ tasksvc.Auth, taskID string) error {
	resp, err := s.DeleteTaskEndpoint(ctx, DeleteTaskRequest{TaskID: taskID})
	if err != nil {
		return err
	}
	response := resp.(DeleteTaskResponse)
	return response.Err
}

func (s Set) Month(ctx context.Context, _ tasksvc.Auth, year int, month time.Month) (calendar.Month, error) {
	resp, err := s.MonthEndpoint(ctx, MonthRequest{Year: year, Month: month})
	if err != nil {
		return calendar.Month{}, err
	}
	response := resp.(MonthResponse)
	return response.Month, response.Err
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return CreateTaskResponse{Err: err}, nil
		}

		req := request.(CreateTaskRequest)
		t, err := s.CreateTask(ctx, auth, tasksvc.Task{
			Title:       req.Title,
			Description: req.Description,
			Date:        req.Date,
			Priority:    req.Priority,
			Completed:   req.Completed,
		})
		return CreateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return TasksResponse{Err: err}, nil
		}

		req := request.(TasksRequest)

		var t []tasksvc.Task
		if req.Date != nil {
			t, err = s.TasksDue(ctx, auth, *req.Date)
		} else {
			t, err = s.Tasks(ctx, auth)
		}
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return TaskResponse{Err: err}, nil
		}

		req := request.(TaskRequest)
		t, err := s.Task(ctx, auth, req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return UpdateTaskResponse{Err: err}, nil
		}

		req := request.(UpdateTaskRequest)
		t, err := s.UpdateTask(ctx, auth, req.TaskID, tasksvc.Patch{
			Title:       req.Title,
			Description: req.Description,
			Date:        req.Date,
			Priority:    req.Priority,
			Completed:   req.Completed,
		})
		return UpdateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return DeleteTaskResponse{Err: err}, nil
		}

		req := request.(DeleteTaskRequest)
		err = s.DeleteTask(ctx, auth, req.TaskID)
		if err != nil {
			return DeleteTaskResponse{Err: err}, nil
		}
		return DeleteTaskResponse{Message: "Task deleted"}, nil
	}
}

func MakeMonthEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		auth, err := claims(ctx)
		if err != nil {
			return MonthResponse{Err: err}, nil
		}

		req := request.(MonthRequest)
		m, err := s.Month(ctx, auth, req.Year, req.Month)
		return MonthResponse{Month: m, Err: err}, nil
	}
}

// claims resolves the owner scope from the parsed JWT claims. Without claims
// the request is unscoped, which is only reachable when the transport does
// not require a token.
func claims(ctx context.Context) (tasksvc.Auth, error) {
	v := ctx.Value(kitjwt.JWTClaimsContextKey)
	if v == nil {
		return tasksvc.Auth{}, nil
	}

	claims, ok := v.(stdjwt.MapClaims)
	if !ok {
		return tasksvc.Auth{}, tasksvc.ErrClaimsInvalid
	}

	userID, ok := claims[authsvc.ClaimUserID].(string)
	if !ok || userID == "" {
		return tasksvc.Auth{}, tasksvc.ErrClaimsInvalid
	}

	username, _ := claims[authsvc.ClaimUsername].(string)

	return tasksvc.Auth{UserID: userID, Username: username}, nil
}

var (
	_ endpoint.Failer = CreateTaskResponse{}
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = UpdateTaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
	_ endpoint.Failer = MonthResponse{}
)

type CreateTaskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Date        time.Time        `json:"date"`
	Priority    tasksvc.Priority `json:"priority,omitempty"`
	Completed   bool             `json:"completed"`
}

// Single task responses embed the task so it encodes as a bare object.

type CreateTaskResponse struct {
	tasksvc.Task
	Err error `json:"-"`
}

func (r CreateTaskResponse) Failed() error { return r.Err }

// TasksRequest lists every task in scope, or only those due on Date.
type TasksRequest struct {
	Date *calendar.Date
}

type TasksResponse struct {
	Tasks []tasksvc.Task
	Err   error
}

func (r TasksResponse) Failed() error { return r.Err }

type TaskRequest struct {
	TaskID string
}

type TaskResponse struct {
	tasksvc.Task
	Err error `json:"-"`
}

func (r TaskResponse) Failed() error { return r.Err }

type UpdateTaskRequest struct {
	TaskID      string            `json:"-"`
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Date        *time.Time        `json:"date,omitempty"`
	Priority    *tasksvc.Priority `json:"priority,omitempty"`
	Completed   *bool             `json:"completed,omitempty"`
}

type UpdateTaskResponse struct {
	tasksvc.Task
	Err error `json:"-"`
}

func (r UpdateTaskResponse) Failed() error { return r.Err }

type DeleteTaskRequest struct {
	TaskID string
}

type DeleteTaskResponse struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (r DeleteTaskResponse) Failed() error { return r.Err }

// MonthRequest with a zero Year asks for the current month.
type MonthRequest struct {
	Year  int
	Month time.Month
}

type MonthResponse struct {
	calendar.Month
	Err error `json:"-"`
}

func (r MonthResponse) Failed() error { return r.Err }
