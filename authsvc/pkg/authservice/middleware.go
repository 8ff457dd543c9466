package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todocal/authsvc"
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

func (mw loggingMiddleware) Register(ctx context.Context, username, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Register", "username", username, "err", err)
	}()
	return mw.next.Register(ctx, username, password)
}

func (mw loggingMiddleware) Login(ctx context.Context, username, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Login", "username", username, "err", err)
	}()
	return mw.next.Login(ctx, username, password)
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

func (mw instrumentingMiddleware) Register(ctx context.Context, username, password string) (authsvc.Session, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "register").Add(1)
		mw.requestLatency.With("method", "register").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Register(ctx, username, password)
}

func (mw instrumentingMiddleware) Login(ctx context.Context, username, password string) (authsvc.Session, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "login").Add(1)
		mw.requestLatency.With("method", "login").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Login(ctx, username, password)
}
