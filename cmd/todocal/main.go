package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/todocal/apigateway"
	"github.com/ichigozero/todocal/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todocal/authsvc/pkg/authservice"
	"github.com/ichigozero/todocal/authsvc/pkg/authtransport"
	"github.com/ichigozero/todocal/config"
	"github.com/ichigozero/todocal/tasksvc"
	taskclient "github.com/ichigozero/todocal/tasksvc/client"
	taskgorm "github.com/ichigozero/todocal/tasksvc/db/gorm"
	taskjson "github.com/ichigozero/todocal/tasksvc/db/jsonfile"
	taskmemory "github.com/ichigozero/todocal/tasksvc/db/memory"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todocal/tasksvc/pkg/tasktransport"
	"github.com/ichigozero/todocal/usersvc"
	usergorm "github.com/ichigozero/todocal/usersvc/db/gorm"
	userjson "github.com/ichigozero/todocal/usersvc/db/jsonfile"
	usermemory "github.com/ichigozero/todocal/usersvc/db/memory"
	"github.com/ichigozero/todocal/usersvc/pkg/userservice"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/twinj/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fs := flag.NewFlagSet("todocal", flag.ExitOnError)
	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")

	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = level.NewFilter(logger, levelOption(cfg.LogLevel))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	tasks, users, err := openStores(cfg)
	if err != nil {
		level.Error(logger).Log("during", "open store", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("store", cfg.Store)

	fieldKeys := []string{"method"}
	counter := func(subsystem string) *kitprometheus.Counter {
		return kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: "api",
			Subsystem: subsystem,
			Name:      "request_count",
			Help:      "Number of requests received.",
		}, fieldKeys)
	}
	latency := func(subsystem string) *kitprometheus.Summary {
		return kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: "api",
			Subsystem: subsystem,
			Name:      "request_latency_microseconds",
			Help:      "Total duration of requests in microseconds.",
		}, fieldKeys)
	}

	var userService userservice.Service
	{
		userService = userservice.New(users, cfg.Auth.BcryptCost, logger)
		userService = userservice.InstrumentingMiddleware(counter("user_service"), latency("user_service"))(userService)
	}

	tokenizer := authservice.NewTokenizer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	cookies := authtransport.NewCookieCodec(cfg.Auth.CookieHashKey, cfg.Auth.CookieBlockKey, cfg.Auth.TokenTTL, cfg.Auth.SecureCookie)

	var authService authservice.Service
	{
		authService = authservice.New(userService, tokenizer, logger)
		authService = authservice.InstrumentingMiddleware(counter("auth_service"), latency("auth_service"))(authService)
	}

	var taskService taskservice.Service
	{
		taskService = taskservice.New(tasks, cfg.NewCalendar(), logger)
		taskService = taskservice.InstrumentingMiddleware(counter("task_service"), latency("task_service"))(taskService)
	}

	var authenticator *tasktransport.Authenticator
	if cfg.Auth.Enabled {
		authenticator = &tasktransport.Authenticator{KeyFunc: tokenizer.KeyFunc(), Cookies: cookies}
	} else {
		level.Warn(logger).Log("msg", "authentication disabled, task routes are unscoped")
	}

	var (
		authHTTPHandler = authtransport.NewHTTPHandler(authendpoint.New(authService, logger), cookies, logger)
		taskHTTPHandler = tasktransport.NewHTTPHandler(taskendpoint.New(taskService, logger), authenticator, logger)
		httpHandler     = apigateway.New(authHTTPHandler, taskHTTPHandler, apigateway.Options{
			Environment: cfg.Env,
			Port:        cfg.Port(),
			CORSOrigin:  cfg.CORSOrigin,
		}, logger)
	)

	if cfg.ConsulAddr != "" {
		registrar, err := newRegistrar(cfg, logger)
		if err != nil {
			level.Error(logger).Log("during", "consul", "err", err)
			os.Exit(1)
		}
		registrar.Register()
		defer registrar.Deregister()
	}

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		server := &http.Server{Handler: httpHandler}
		g.Add(func() error {
			level.Info(logger).Log("transport", "HTTP", "addr", cfg.HTTPAddr, "env", cfg.Env)
			return server.Serve(httpListener)
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				level.Warn(logger).Log("transport", "HTTP", "during", "Shutdown", "err", err)
				server.Close()
			}
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
}

func openStores(cfg config.Config) (tasksvc.TaskRepository, usersvc.UserRepository, error) {
	switch cfg.Store {
	case config.StoreFile:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, err
		}
		return taskjson.NewTaskRepository(cfg.TasksFile()), userjson.NewUserRepository(cfg.UsersFile()), nil

	case config.StoreSQLite, config.StorePostgres:
		var dialector libgorm.Dialector
		if cfg.Store == config.StorePostgres {
			dialector = postgres.Open(cfg.DatabaseURL)
		} else {
			path := cfg.SQLiteFile()
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, err
			}
			dialector = sqlite.Open(path)
		}

		db, err := libgorm.Open(dialector, &libgorm.Config{})
		if err != nil {
			return nil, nil, err
		}
		if err := db.AutoMigrate(&tasksvc.Task{}, &usersvc.User{}); err != nil {
			return nil, nil, err
		}
		return taskgorm.NewTaskRepository(db), usergorm.NewUserRepository(db), nil

	default:
		return taskmemory.NewTaskRepository(), usermemory.NewUserRepository(), nil
	}
}

func newRegistrar(cfg config.Config, logger log.Logger) (*consulsd.Registrar, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.ConsulAddr

	consulClient, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}

	host, port, err := net.SplitHostPort(cfg.HTTPAddr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = "localhost"
	}
	p, _ := strconv.Atoi(port)

	asr := &api.AgentServiceRegistration{
		ID:      uuid.NewV4().String(),
		Name:    taskclient.ServiceName,
		Address: host,
		Port:    p,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port)),
			Interval: "10s",
			Timeout:  "1s",
		},
	}
	return consulsd.NewRegistrar(consulsd.NewClient(consulClient), asr, logger), nil
}

func levelOption(s string) level.Option {
	switch s {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}
