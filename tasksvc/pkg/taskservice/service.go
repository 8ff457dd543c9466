package taskservice

import (
	"context"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todocal/calendar"
	"github.com/ichigozero/todocal/tasksvc"
	"github.com/twinj/uuid"
)

type Service interface {
	CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error)
	Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error)
	TasksDue(ctx context.Context, a tasksvc.Auth, d calendar.Date) ([]tasksvc.Task, error)
	Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) error
	// Month returns the calendar grid of the given month. A zero year
	// selects the current month.
	Month(ctx context.Context, a tasksvc.Auth, year int, month time.Month) (calendar.Month, error)
}

func New(t tasksvc.TaskRepository, cal *calendar.Calendar, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t, cal)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
	cal   *calendar.Calendar
	now   func() time.Time
}

func NewBasicService(t tasksvc.TaskRepository, cal *calendar.Calendar) Service {
	if cal == nil {
		cal = calendar.New()
	}
	return basicService{tasks: t, cal: cal, now: time.Now}
}

func (s basicService) CreateTask(_ context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	if strings.TrimSpace(task.Title) == "" || task.Date.IsZero() {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if task.Priority == "" {
		task.Priority = tasksvc.PriorityMedium
	}
	if !task.Priority.Valid() {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	task.ID = uuid.NewV4().String()
	task.Date = task.Date.UTC()
	task.UserID = a.UserID
	task.CreatedAt = s.now().UTC()

	return s.tasks.Create(task)
}

func (s basicService) Tasks(_ context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	return s.tasks.FindAll(a.UserID)
}

func (s basicService) TasksDue(_ context.Context, a tasksvc.Auth, d calendar.Date) ([]tasksvc.Task, error) {
	tasks, err := s.tasks.FindAll(a.UserID)
	if err != nil {
		return nil, err
	}
	return s.cal.TasksOn(tasks, d), nil
}

func (s basicService) Task(_ context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	if taskID == "" {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	return s.tasks.Find(a.UserID, taskID)
}

func (s basicService) UpdateTask(_ context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if taskID == "" {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if err := p.Validate(); err != nil {
		return tasksvc.Task{}, err
	}

	task, err := s.tasks.Find(a.UserID, taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}
	return s.tasks.Update(p.Apply(task))
}

func (s basicService) DeleteTask(_ context.Context, a tasksvc.Auth, taskID string) error {
	if taskID == "" {
		return tasksvc.ErrInvalidArgument
	}
	return s.tasks.Delete(a.UserID, taskID)
}

func (s basicService) Month(_ context.Context, a tasksvc.Auth, year int, month time.Month) (calendar.Month, error) {
	ym := calendar.YearMonth{Year: year, Month: month}
	if year == 0 {
		ym = s.cal.Current()
	}
	if ym.Year < 1 || ym.Month < time.January || ym.Month > time.December {
		return calendar.Month{}, tasksvc.ErrInvalidArgument
	}

	tasks, err := s.tasks.FindAll(a.UserID)
	if err != nil {
		return calendar.Month{}, err
	}
	return s.cal.Month(ym, tasks), nil
}
