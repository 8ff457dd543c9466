package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/ichigozero/todocal/calendar"
	"github.com/ichigozero/todocal/tasksvc"
	"github.com/ichigozero/todocal/tasksvc/db/memory"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todocal/tasksvc/pkg/tasktransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobin(t *testing.T) {
	logger := log.NewNopLogger()
	repo := memory.NewTaskRepository()

	var hits [2]int64
	var instances []string
	for i := range hits {
		i := i
		svc := taskservice.New(repo, calendar.New(), logger)
		h := tasktransport.NewHTTPHandler(taskendpoint.New(svc, logger), nil, logger)

		mux := http.NewServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&hits[i], 1)
			h.ServeHTTP(w, r)
		})))

		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		instances = append(instances, srv.URL)
	}

	set := New(sd.FixedInstancer(instances), APIPath, logger, 3, time.Second)
	ctx := context.Background()

	// Endpointers receive their instances asynchronously.
	require.Eventually(t, func() bool {
		_, err := set.CreateTask(ctx, tasksvc.Auth{}, tasksvc.Task{})
		return errors.Is(err, tasksvc.ErrInvalidArgument)
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := set.Tasks(ctx, tasksvc.Auth{})
		return err == nil
	}, time.Second, 10*time.Millisecond)

	created, err := set.CreateTask(ctx, tasksvc.Auth{}, tasksvc.Task{
		Title: "balanced",
		Date:  time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tasks, err := set.Tasks(ctx, tasksvc.Auth{})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, created.ID, tasks[0].ID)
	}

	assert.NotZero(t, atomic.LoadInt64(&hits[0]))
	assert.NotZero(t, atomic.LoadInt64(&hits[1]))
}

func TestNoInstances(t *testing.T) {
	set := New(sd.FixedInstancer{}, APIPath, log.NewNopLogger(), 1, 100*time.Millisecond)

	_, err := set.Tasks(context.Background(), tasksvc.Auth{})
	assert.Error(t, err)
}
