package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/labstack/gommon/log"
	"github.com/mattn/go-isatty"

	"github.com/infokelas/kelas/internal/api"
	"github.com/infokelas/kelas/internal/config"
	"github.com/infokelas/kelas/internal/dashboard"
	"github.com/infokelas/kelas/internal/fakeapi"
	"github.com/infokelas/kelas/internal/logging"
	"github.com/infokelas/kelas/internal/portal"
	"github.com/infokelas/kelas/internal/query"
	"github.com/infokelas/kelas/internal/session"
	"github.com/infokelas/kelas/internal/storage"
	"github.com/infokelas/kelas/internal/validate"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config string `help:"Config file, replacing the default layers." placeholder:"FILE"`
	API    string `name:"api" help:"Portal API base URL." placeholder:"URL"`
	Dir    string `help:"Directory for the session and preferences." placeholder:"DIR"`
}

// CLI is the top-level command structure for kelas.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`

	Login          LoginCmd          `cmd:"" help:"Sign in with your email or NIM."`
	Logout         LogoutCmd         `cmd:"" help:"Sign out and forget the stored session."`
	Whoami         ProfileShowCmd    `cmd:"" help:"Show the signed-in student."`
	Profile        ProfileCmd        `cmd:"" help:"Show or update your profile."`
	Classes        ClassesCmd        `cmd:"" help:"List your classes."`
	Class          ClassCmd          `cmd:"" help:"Show a class and its subjects."`
	Join           JoinCmd           `cmd:"" help:"Join a class by code."`
	Schedule       ScheduleCmd       `cmd:"" help:"Show the weekly schedule."`
	Materials      MaterialsCmd      `cmd:"" help:"List materials of a class or subject."`
	Material       MaterialCmd       `cmd:"" help:"Show one material."`
	Assignments    AssignmentsCmd    `cmd:"" help:"List assignments of a class or subject."`
	Assignment     AssignmentCmd     `cmd:"" help:"Show one assignment."`
	Announcements  AnnouncementsCmd  `cmd:"" help:"Show announcements."`
	ForgotPassword ForgotPasswordCmd `cmd:"" help:"Request a password reset code."`
	ResetPassword  ResetPasswordCmd  `cmd:"" help:"Set a new password with a reset code."`
	Theme          ThemeCmd          `cmd:"" help:"Show or set the dashboard theme."`
	Dashboard      DashboardCmd      `cmd:"" help:"Open the interactive dashboard."`
	Setup          ConfigCmd         `cmd:"" name:"config" help:"Write or locate the config file."`
	Devserver      DevserverCmd      `cmd:"" help:"Serve a fake portal API for local development."`
}

// errSessionExpired ends the dashboard when the server rejects the token.
var errSessionExpired = errors.New("session expired")

// app is the wiring every portal command runs on.
type app struct {
	cfg     *config.Config
	store   *storage.FileStore
	api     *api.Client
	cache   *query.Client
	catalog *portal.Catalog
	session *session.Manager
	logs    io.Closer
}

// loadConfig loads the layered config, env overrides and flags, in that order.
func (g *Globals) loadConfig() (*config.Config, error) {
	if err := config.LoadDotenv(".env"); err != nil {
		return nil, err
	}
	paths := config.DefaultPaths()
	if g.Config != "" {
		paths = []string{g.Config}
	}
	cfg, err := config.LoadLayered(paths...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if g.API != "" {
		cfg.API.BaseURL = g.API
	}
	if g.Dir != "" {
		cfg.Storage.Dir = g.Dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open builds the app and restores any stored session.
func (g *Globals) open() (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logs, err := logging.Open(cfg.Log.File)
	if err != nil {
		return nil, err
	}
	logger := func(component string) *log.Logger {
		return logging.New(component, logs, level)
	}

	store := storage.NewFileStore(cfg.Storage.Dir)
	client := api.New(cfg.API.BaseURL, store,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger("api")),
	)
	cache := query.New(
		query.WithPolicy(query.Policy{
			Retry:           cfg.Cache.Retry,
			RetryDelay:      cfg.Cache.RetryDelay,
			RefetchOnAccess: cfg.Cache.RefetchOnAccess,
		}),
		query.WithLogger(logger("query")),
	)
	catalog := portal.NewCatalog(client, portal.StaleTimes{
		Default:       cfg.Cache.StaleTime,
		Profile:       cfg.Cache.ProfileStaleTime,
		Announcements: cfg.Cache.AnnouncementsStaleTime,
	})
	sess := session.New(client, cache, store, session.WithLogger(logger("session")))
	if _, _, err := sess.Restore(); err != nil {
		logger("kelas").Warnf("restoring session: %v", err)
	}

	return &app{
		cfg:     cfg,
		store:   store,
		api:     client,
		cache:   cache,
		catalog: catalog,
		session: sess,
		logs:    logs,
	}, nil
}

// Close waits for background fetches and closes the log file.
func (a *app) Close() error {
	a.cache.Wait()
	return a.logs.Close()
}

// requireSession fails fast when no one is signed in.
func (a *app) requireSession() error {
	if !a.session.SignedIn() {
		return session.ErrNotSignedIn
	}
	return nil
}

// signalContext is cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// --- Dashboard command ---

// DashboardCmd opens the interactive dashboard TUI.
type DashboardCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the dashboard TUI.
func (d *DashboardCmd) Run(g *Globals, w io.Writer) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("dashboard: requires a terminal (TTY)")
	}
	a, err := g.open()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	defer a.Close()
	if err := a.requireSession(); err != nil {
		return err
	}

	m := dashboard.New(dashboard.Deps{
		Cache:   a.cache,
		Catalog: a.catalog,
		Session: a.session,
		Themes:  a.store,
	})
	prog := tea.NewProgram(m, tea.WithAltScreen())
	unsubscribe := dashboard.Subscribe(a.cache, prog.Send)
	defer unsubscribe()
	return d.run(w, true, prog)
}

// run executes the tea program and reports how the dashboard ended.
func (d *DashboardCmd) run(w io.Writer, isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("dashboard: requires a terminal (TTY)")
	}
	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	m, ok := final.(dashboard.Model)
	if !ok {
		return nil
	}
	switch {
	case m.Expired():
		return errSessionExpired
	case m.LoggedOut():
		_, _ = fmt.Fprintln(w, "Signed out.")
	}
	return nil
}

// --- Devserver command ---

// DevserverCmd runs the fake portal API.
type DevserverCmd struct {
	Addr  string `help:"Listen address." default:"127.0.0.1:8080"`
	Quiet bool   `help:"Do not log requests."`
}

// Run serves until interrupted.
func (d *DevserverCmd) Run(w io.Writer) error {
	var opts []fakeapi.Option
	if !d.Quiet {
		opts = append(opts, fakeapi.WithRequestLog(w))
	}
	srv := fakeapi.New(opts...)

	ctx, stop := signalContext()
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(d.Addr) }()
	_, _ = fmt.Fprintf(w, "Fake portal on http://%s/api\n", d.Addr)
	_, _ = fmt.Fprintf(w, "Sign in with %s or %s, password %s\n", fakeapi.DemoEmail, fakeapi.DemoNIM, fakeapi.DemoPassword)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Exit codes.
const (
	exitSuccess = 0
	exitRequest = 1 // The portal or local validation rejected the request.
	exitSetup   = 2
	exitAuth    = 3
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, session.ErrNotSignedIn) || errors.Is(err, errSessionExpired) || api.IsAuth(err) {
		return exitAuth
	}
	var apiErr *api.Error
	var verr *validate.Error
	if errors.As(err, &apiErr) || errors.As(err, &verr) {
		return exitRequest
	}
	return exitSetup
}

// describe turns err into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrNotSignedIn):
		return "not signed in, run `kelas login` first"
	case errors.Is(err, errSessionExpired):
		return "session expired, run `kelas login` again"
	}
	return api.Message(err)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("kelas"),
		kong.Description("Student portal client: classes, schedules, materials and announcements."),
		kong.UsageOnError(),
		kong.Vars{"version": version + " " + commit + " " + date},
		kong.Bind(&cli.Globals),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
		os.Exit(exitCode(err))
	}
}
