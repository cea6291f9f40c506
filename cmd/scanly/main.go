package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/scanly/internal/api"
	"github.com/zombor/scanly/internal/session"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// app holds the state shared by every command
type app struct {
	apiURL   *string
	dbPath   *string
	logLevel *string

	logger  *slog.Logger
	store   *session.BoltTokenStore
	session *session.Session
	client  *api.Client
	auth    *session.Authenticator
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := a.command()

	if err := root.Parse(os.Args[1:], ff.WithEnvVarPrefix("SCANLY")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := a.setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	err := root.Run(ctx)
	a.close()
	if err != nil {
		if errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging installs a charmbracelet/log handler as the slog default
func (a *app) setupLogging() error {
	level, err := log.ParseLevel(*a.logLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
	})
	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)
	return nil
}

// open loads the persisted session. A token the API no longer accepts is
// dropped and the command continues signed out.
func (a *app) open(ctx context.Context) error {
	slog.Debug("Initializing session store...", "path", *a.dbPath)
	store, err := session.NewBoltTokenStore(*a.dbPath)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	a.store = store
	a.session = session.New(store, a.logger)
	a.client = api.NewClient(*a.apiURL, a.session, a.logger)
	a.auth = session.NewAuthenticator(a.session, a.client)

	if err := a.auth.Init(ctx); err != nil {
		slog.Warn("Could not restore session", "error", err)
	}
	return nil
}

// requireUser opens the session and fails unless someone is signed in
func (a *app) requireUser(ctx context.Context) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	if !a.session.Authenticated() {
		return errors.New("not signed in; run `scanly login` first")
	}
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("Failed to close session store", "error", err)
		}
	}
}
