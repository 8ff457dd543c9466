package userservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todocal/usersvc"
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

func (mw loggingMiddleware) Create(ctx context.Context, username, password string) (user usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Create", "username", username, "id", user.ID, "err", err)
	}()
	return mw.next.Create(ctx, username, password)
}

func (mw loggingMiddleware) Authenticate(ctx context.Context, username, password string) (user usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Authenticate", "username", username, "id", user.ID, "err", err)
	}()
	return mw.next.Authenticate(ctx, username, password)
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

func (mw instrumentingMiddleware) Create(ctx context.Context, username, password string) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "create").Add(1)
		mw.requestLatency.With("method", "create").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Create(ctx, username, password)
}

func (mw instrumentingMiddleware) Authenticate(ctx context.Context, username, password string) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "authenticate").Add(1)
		mw.requestLatency.With("method", "authenticate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Authenticate(ctx, username, password)
}
