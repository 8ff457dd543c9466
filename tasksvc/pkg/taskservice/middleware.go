package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todocal/calendar"
	"github.com/ichigozero/todocal/tasksvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateTask",
			"user_id", a.UserID,
			"task_id", t.ID,
			"title", task.Title,
			"date", task.Date,
			"priority", task.Priority,
			"err", err,
		)
	}()
	return mw.next.CreateTask(ctx, a, task)
}

func (mw loggingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Tasks",
			"user_id", a.UserID,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, a)
}

func (mw loggingMiddleware) TasksDue(ctx context.Context, a tasksvc.Auth, d calendar.Date) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "TasksDue",
			"user_id", a.UserID,
			"date", d,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.TasksDue(ctx, a, d)
}

func (mw loggingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, a, taskID)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateTask",
			"user_id", a.UserID,
			"task_id", taskID,
			"completed", t.Completed,
			"err", err,
		)
	}()
	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTask",
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.DeleteTask(ctx, a, taskID)
}

func (mw loggingMiddleware) Month(ctx context.Context, a tasksvc.Auth, year int, month time.Month) (m calendar.Month, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Month",
			"user_id", a.UserID,
			"year", m.Year,
			"month", int(m.Month),
			"err", err,
		)
	}()
	return mw.next.Month(ctx, a, year, month)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	defer mw.observe("create_task", time.Now())
	return mw.next.CreateTask(ctx, a, task)
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	defer mw.observe("tasks", time.Now())
	return mw.next.Tasks(ctx, a)
}

func (mw instrumentingMiddleware) TasksDue(ctx context.Context, a tasksvc.Auth, d calendar.Date) ([]tasksvc.Task, error) {
	defer mw.observe("tasks_due", time.Now())
	return mw.next.TasksDue(ctx, a, d)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	defer mw.observe("task", time.Now())
	return mw.next.Task(ctx, a, taskID)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	defer mw.observe("update_task", time.Now())
	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) error {
	defer mw.observe("delete_task", time.Now())
	return mw.next.DeleteTask(ctx, a, taskID)
}

func (mw instrumentingMiddleware) Month(ctx context.Context, a tasksvc.Auth, year int, month time.Month) (calendar.Month, error) {
	defer mw.observe("month", time.Now())
	return mw.next.Month(ctx, a, year, month)
}
