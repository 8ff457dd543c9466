package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todocal/authsvc/pkg/authtransport"
	"github.com/ichigozero/todocal/calendar"
	"github.com/ichigozero/todocal/tasksvc"
	"github.com/ichigozero/todocal/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todocal/tasksvc/pkg/tasktransport"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

type cli struct {
	addr      string
	tokenFile string
	logger    log.Logger
	stdout    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("todoctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		addr      = fs.String("addr", getEnv("TODOCAL_ADDR", "http://localhost:8080"), "todocal server address")
		tokenFile = fs.String("token.file", getEnv("TODOCAL_TOKEN_FILE", defaultTokenFile()), "file holding the session token")
		verbose   = fs.Bool("v", false, "log HTTP client errors")
	)
	fs.Usage = usageFor(fs, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	c := &cli{
		addr:      strings.TrimSuffix(*addr, "/"),
		tokenFile: *tokenFile,
		logger:    log.NewNopLogger(),
		stdout:    stdout,
	}
	if *verbose {
		c.logger = log.With(log.NewLogfmtLogger(stderr), "ts", log.DefaultTimestampUTC)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register", "login":
		return c.session(ctx, cmd, rest)
	case "logout":
		return c.logout()
	case "tasks":
		return c.tasks(ctx, rest)
	case "add":
		return c.add(ctx, rest)
	case "done":
		return c.done(ctx, rest)
	case "rm":
		return c.rm(ctx, rest)
	case "calendar":
		return c.calendar(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *cli) session(ctx context.Context, cmd string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: %s <username> <password>", errUsage, cmd)
	}
	svc, err := authtransport.NewHTTPClient(c.addr+"/api/auth", c.logger)
	if err != nil {
		return err
	}

	login := svc.Login
	if cmd == "register" {
		login = svc.Register
	}
	s, err := login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.tokenFile), 0o700); err != nil {
		return err
	}
	if err := ioutil.WriteFile(c.tokenFile, []byte(s.Token), 0o600); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Logged in as %s\n", s.Username)
	return nil
}

func (c *cli) logout() error {
	if err := os.Remove(c.tokenFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	fmt.Fprintln(c.stdout, "Logged out")
	return nil
}

// client returns the task service and a context carrying the stored token.
func (c *cli) client(ctx context.Context) (taskservice.Service, context.Context, error) {
	b, err := ioutil.ReadFile(c.tokenFile)
	if err == nil {
		if tk := strings.TrimSpace(string(b)); tk != "" {
			ctx = context.WithValue(ctx, kitjwt.JWTTokenContextKey, tk)
		}
	}
	svc, err := tasktransport.NewHTTPClient(c.addr+"/api", c.logger)
	return svc, ctx, err
}

func (c *cli) tasks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	date := fs.String("date", "", "only tasks due on `YYYY-MM-DD`")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, ctx, err := c.client(ctx)
	if err != nil {
		return err
	}

	var tasks []tasksvc.Task
	if *date != "" {
		d, err := calendar.ParseDate(*date)
		if err != nil {
			return err
		}
		tasks, err = svc.TasksDue(ctx, tasksvc.Auth{}, d)
		if err != nil {
			return err
		}
	} else {
		tasks, err = svc.Tasks(ctx, tasksvc.Auth{})
		if err != nil {
			return err
		}
	}

	if len(tasks) == 0 {
		fmt.Fprintln(c.stdout, "No tasks")
		return nil
	}
	w := tabwriter.NewWriter(c.stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tDONE\tPRIORITY\tTITLE")
	for _, t := range tasks {
		done := ""
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date.Format("2006-01-02"), done, t.Priority, t.Title)
	}
	return w.Flush()
}

func (c *cli) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var (
		priority    = fs.String("priority", "", "high, medium or low")
		description = fs.String("description", "", "task description")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("%w: add [-priority p] [-description d] <YYYY-MM-DD> <title>", errUsage)
	}

	date, err := tasksvc.ParseDate(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("date %q: %w", fs.Arg(0), err)
	}

	svc, ctx, err := c.client(ctx)
	if err != nil {
		return err
	}
	task, err := svc.CreateTask(ctx, tasksvc.Auth{}, tasksvc.Task{
		Title:       strings.Join(fs.Args()[1:], " "),
		Description: *description,
		Date:        date,
		Priority:    tasksvc.Priority(*priority),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Created %s\n", task.ID)
	return nil
}

func (c *cli) done(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: done <task-id>", errUsage)
	}
	svc, ctx, err := c.client(ctx)
	if err != nil {
		return err
	}

	completed := true
	task, err := svc.UpdateTask(ctx, tasksvc.Auth{}, args[0], tasksvc.Patch{Completed: &completed})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Completed %s\n", task.Title)
	return nil
}

func (c *cli) rm(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rm <task-id>", errUsage)
	}
	svc, ctx, err := c.client(ctx)
	if err != nil {
		return err
	}
	if err := svc.DeleteTask(ctx, tasksvc.Auth{}, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Task deleted")
	return nil
}

func (c *cli) calendar(ctx context.Context, args []string) error {
	var ym calendar.YearMonth
	switch len(args) {
	case 0:
	case 1:
		var err error
		if ym, err = calendar.ParseYearMonth(args[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: calendar [YYYY-MM]", errUsage)
	}

	svc, ctx, err := c.client(ctx)
	if err != nil {
		return err
	}
	m, err := svc.Month(ctx, tasksvc.Auth{}, ym.Year, ym.Month)
	if err != nil {
		return err
	}
	return calendar.Render(c.stdout, m)
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".todocal-token"
	}
	return filepath.Join(dir, "todocal", "token")
}

func usageFor(fs *flag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintf(w, "USAGE\n")
		fmt.Fprintf(w, "  todoctl [flags] <command> [args]\n")
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "COMMANDS\n")
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fmt.Fprintf(tw, "\tregister <username> <password>\tcreate an account and store its token\n")
		fmt.Fprintf(tw, "\tlogin <username> <password>\tstore a session token\n")
		fmt.Fprintf(tw, "\tlogout\tforget the stored token\n")
		fmt.Fprintf(tw, "\ttasks [-date YYYY-MM-DD]\tlist tasks\n")
		fmt.Fprintf(tw, "\tadd [-priority p] <YYYY-MM-DD> <title>\tcreate a task\n")
		fmt.Fprintf(tw, "\tdone <task-id>\tmark a task completed\n")
		fmt.Fprintf(tw, "\trm <task-id>\tdelete a task\n")
		fmt.Fprintf(tw, "\tcalendar [YYYY-MM]\tshow a month\n")
		tw.Flush()
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "FLAGS\n")
		tw = tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(tw, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		tw.Flush()
		fmt.Fprintf(w, "\n")
	}
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}
