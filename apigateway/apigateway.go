// Package apigateway mounts the auth and task handlers under a single HTTP
// tree together with the operational routes.
package apigateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	AuthPrefix = "/api/auth"
	APIPrefix  = "/api"
)

type Options struct {
	Environment string
	Port        string
	// CORSOrigin is the allowed browser origin. Empty allows any origin.
	CORSOrigin string
	// Metrics serves /metrics. Defaults to the default Prometheus registry.
	Metrics http.Handler
}

// New routes /api/auth to auth and the rest of /api to tasks.
func New(auth, tasks http.Handler, opts Options, logger log.Logger) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	now := func() time.Time { return time.Now().UTC() }

	r := mux.NewRouter()

	r.Methods("GET").Path("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":     "Server is running",
			"timestamp":   now(),
			"environment": opts.Environment,
		})
	})
	r.Methods("GET").Path("/health").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"timestamp":   now(),
			"environment": opts.Environment,
			"port":        opts.Port,
		})
	})
	r.Methods("GET").Path("/metrics").Handler(opts.Metrics)

	r.PathPrefix(AuthPrefix + "/").Handler(http.StripPrefix(AuthPrefix, auth))
	r.PathPrefix(APIPrefix + "/").Handler(http.StripPrefix(APIPrefix, tasks))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	})

	var h http.Handler = r
	h = CORS(opts.CORSOrigin)(h)
	h = RequestLogger(logger)(h)
	return h
}

// CORS answers preflight requests with 204 and sets the allow headers on
// every response. Credentials are only allowed for a configured origin; an
// empty origin allows any site without cookies.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin == "" {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", strings.Join([]string{
					http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
				}, ", "))
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func(begin time.Time) {
				l := level.Info(logger)
				if rec.status >= http.StatusInternalServerError {
					l = level.Error(logger)
				}
				l.Log(
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"took", time.Since(begin),
				)
			}(time.Now())
			next.ServeHTTP(rec, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
