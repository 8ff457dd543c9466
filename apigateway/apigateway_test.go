package apigateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todocal/authsvc"
	"github.com/ichigozero/todocal/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todocal/authsvc/pkg/authservice"
	"github.com/ichigozero/todocal/authsvc/pkg/authtransport"
	"github.com/ichigozero/todocal/calendar"
	"github.com/ichigozero/todocal/tasksvc"
	taskmemory "github.com/ichigozero/todocal/tasksvc/db/memory"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todocal/tasksvc/pkg/tasktransport"
	usermemory "github.com/ichigozero/todocal/usersvc/db/memory"
	"github.com/ichigozero/todocal/usersvc/pkg/userservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newGateway(t *testing.T, origin string) (*httptest.Server, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := log.NewLogfmtLogger(log.NewSyncWriter(&buf))

	tokenizer := authservice.NewTokenizer("gateway-secret", time.Hour)
	cookies := authtransport.NewCookieCodec("very-secret", "a-lots-of-secret", time.Hour, false)

	users := userservice.New(usermemory.NewUserRepository(), bcrypt.MinCost, logger)
	authSvc := authservice.New(users, tokenizer, logger)
	authHandler := authtransport.NewHTTPHandler(authendpoint.New(authSvc, logger), cookies, logger)

	taskSvc := taskservice.New(taskmemory.NewTaskRepository(), calendar.New(), logger)
	taskHandler := tasktransport.NewHTTPHandler(
		taskendpoint.New(taskSvc, logger),
		&tasktransport.Authenticator{KeyFunc: tokenizer.KeyFunc(), Cookies: cookies},
		logger,
	)

	h := New(authHandler, taskHandler, Options{
		Environment: "test",
		Port:        "8080",
		CORSOrigin:  origin,
		Metrics:     http.NotFoundHandler(),
	}, logger)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, &buf
}

func call(t *testing.T, srv *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func register(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()

	resp := call(t, srv, "POST", "/api/auth/register", "", `{"username":"`+username+`","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var s authsvc.Session
	decode(t, resp, &s)
	require.NotEmpty(t, s.Token)
	return s.Token
}

func TestEndToEnd(t *testing.T) {
	srv, logs := newGateway(t, "")

	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")

	resp := call(t, srv, "POST", "/api/auth/login", "", `{"username":"alice","password":"secret123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s authsvc.Session
	decode(t, resp, &s)
	assert.Equal(t, "alice", s.Username)

	resp = call(t, srv, "POST", "/api/auth/login", "", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, srv, "GET", "/api/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, srv, "POST", "/api/tasks", alice, `{"title":"Standup","date":"2024-03-04T09:00:00Z"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created tasksvc.Task
	decode(t, resp, &created)
	assert.Equal(t, tasksvc.PriorityMedium, created.Priority)

	resp = call(t, srv, "GET", "/api/tasks/"+created.ID, bob, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, srv, "GET", "/api/tasks", bob, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tasks []tasksvc.Task
	decode(t, resp, &tasks)
	assert.Empty(t, tasks)

	resp = call(t, srv, "GET", "/api/calendar/2024/3", alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var month calendar.Month
	decode(t, resp, &month)
	require.Len(t, month.Days, 31)
	require.Len(t, month.Days[3].Tasks, 1)
	assert.Equal(t, "Standup", month.Days[3].Tasks[0].Title)

	resp = call(t, srv, "DELETE", "/api/tasks/"+created.ID, alice, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, logs.String(), "path=/api/tasks")
	assert.Contains(t, logs.String(), "status=401")
}

func TestOperationalRoutes(t *testing.T) {
	srv, _ := newGateway(t, "")

	resp := call(t, srv, "GET", "/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]interface{}
	decode(t, resp, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["environment"])
	assert.Equal(t, "8080", health["port"])
	assert.NotEmpty(t, health["timestamp"])

	resp = call(t, srv, "GET", "/", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var root map[string]interface{}
	decode(t, resp, &root)
	assert.Equal(t, "Server is running", root["message"])

	resp = call(t, srv, "GET", "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var nf map[string]string
	decode(t, resp, &nf)
	assert.Equal(t, "Not found", nf["message"])
}

func TestCORS(t *testing.T) {
	srv, _ := newGateway(t, "http://localhost:3000")

	req, err := http.NewRequest("OPTIONS", srv.URL+"/api/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp2 := call(t, srv, "GET", "/health", "", "")
	assert.Equal(t, "http://localhost:3000", resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSAnyOrigin(t *testing.T) {
	srv, _ := newGateway(t, "")

	req, err := http.NewRequest("OPTIONS", srv.URL+"/api/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}
