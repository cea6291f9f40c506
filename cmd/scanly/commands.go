package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/schollz/progressbar/v3"

	"github.com/zombor/scanly/internal/common"
	"github.com/zombor/scanly/internal/extraction"
	"github.com/zombor/scanly/internal/history"
	"github.com/zombor/scanly/internal/receipt"
	"github.com/zombor/scanly/internal/render"
	"github.com/zombor/scanly/internal/web"
)

// command builds the command tree
func (a *app) command() *ff.Command {
	rootFlags := ff.NewFlagSet("scanly")
	a.apiURL = rootFlags.StringLong("api-url", "http://localhost:8000", "receipts API base URL")
	a.dbPath = rootFlags.StringLong("db", "scanly.db", "session database file path")
	a.logLevel = rootFlags.StringLong("log-level", "info", "log level: debug, info, warn, error")

	root := &ff.Command{
		Name:      "scanly",
		Usage:     "scanly [FLAGS] <SUBCOMMAND>",
		ShortHelp: "scan receipts and manage their history",
		Flags:     rootFlags,
	}

	root.Subcommands = []*ff.Command{
		a.serveCommand(rootFlags),
		a.loginCommand(rootFlags),
		a.signupCommand(rootFlags),
		a.logoutCommand(rootFlags),
		a.whoamiCommand(rootFlags),
		a.extractCommand(rootFlags),
		a.historyCommand(rootFlags),
		a.showCommand(rootFlags),
		a.deleteCommand(rootFlags),
		a.exportCommand(rootFlags),
		{
			Name:      "version",
			Usage:     "scanly version",
			ShortHelp: "print the version",
			Flags:     ff.NewFlagSet("version").SetParent(rootFlags),
			Exec: func(ctx context.Context, args []string) error {
				fmt.Println(version)
				return nil
			},
		},
	}
	return root
}

func (a *app) serveCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("serve").SetParent(parent)
	port := fs.IntLong("port", 8080, "HTTP server port")

	return &ff.Command{
		Name:      "serve",
		Usage:     "scanly serve [FLAGS]",
		ShortHelp: "run the web front end",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := a.open(ctx); err != nil {
				return err
			}

			server := web.NewServer(a.client, a.session, a.logger)
			defer server.Close()

			addr := fmt.Sprintf(":%d", *port)
			errc := make(chan error, 1)
			go func() {
				errc <- server.Start(addr)
			}()

			slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "api", *a.apiURL)

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serving: %w", err)
			case <-ctx.Done():
				slog.Info("Shutting down...")
				return nil
			}
		},
	}
}

func (a *app) loginCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("login").SetParent(parent)
	email := fs.StringLong("email", "", "account email")
	password := fs.StringLong("password", "", "account password (or SCANLY_PASSWORD)")

	return &ff.Command{
		Name:      "login",
		Usage:     "scanly login --email EMAIL --password PASSWORD",
		ShortHelp: "sign in and remember the session",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := a.open(ctx); err != nil {
				return err
			}
			user, err := a.auth.Authenticate(ctx, *email, *password)
			if err != nil {
				return errors.New(common.Message(err, "Invalid username or password"))
			}
			fmt.Println(render.Success("Signed in as " + user.DisplayName()))
			return nil
		},
	}
}

func (a *app) signupCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("signup").SetParent(parent)
	email := fs.StringLong("email", "", "account email")
	password := fs.StringLong("password", "", "account password, at least 6 characters (or SCANLY_PASSWORD)")

	return &ff.Command{
		Name:      "signup",
		Usage:     "scanly signup --email EMAIL --password PASSWORD",
		ShortHelp: "create an account",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := a.open(ctx); err != nil {
				return err
			}
			if _, err := a.auth.Register(ctx, *email, *password); err != nil {
				return errors.New(common.Message(err, "Failed to create account. Please try again."))
			}
			fmt.Println(render.Success("Account created successfully! Please sign in."))
			return nil
		},
	}
}

func (a *app) logoutCommand(parent *ff.FlagSet) *ff.Command {
	return &ff.Command{
		Name:      "logout",
		Usage:     "scanly logout",
		ShortHelp: "forget the stored session",
		Flags:     ff.NewFlagSet("logout").SetParent(parent),
		Exec: func(ctx context.Context, args []string) error {
			if err := a.open(ctx); err != nil {
				return err
			}
			if err := a.session.Logout(); err != nil {
				return fmt.Errorf("signing out: %w", err)
			}
			fmt.Println(render.Success("Signed out"))
			return nil
		},
	}
}

func (a *app) whoamiCommand(parent *ff.FlagSet) *ff.Command {
	return &ff.Command{
		Name:      "whoami",
		Usage:     "scanly whoami",
		ShortHelp: "show the signed-in user",
		Flags:     ff.NewFlagSet("whoami").SetParent(parent),
		Exec: func(ctx context.Context, args []string) error {
			if err := a.requireUser(ctx); err != nil {
				return err
			}
			user := a.session.User()
			fmt.Println(render.TitleStyle.Render(user.DisplayName()))
			fmt.Println(render.SubtleStyle.Render(user.Email))
			return nil
		},
	}
}

func (a *app) extractCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("extract").SetParent(parent)
	quiet := fs.BoolLong("quiet", "hide the upload progress")

	return &ff.Command{
		Name:      "extract",
		Usage:     "scanly extract [FLAGS] FILE",
		ShortHelp: "upload a receipt image or PDF and show the extracted data",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("extract requires exactly one file")
			}
			if err := a.requireUser(ctx); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}

			upload := extraction.Upload{Filename: filepath.Base(args[0]), Data: data}
			var bar *progressbar.ProgressBar
			if !*quiet {
				bar = progressbar.DefaultBytes(-1, "Uploading "+upload.Filename)
				upload.Progress = bar
			}

			controller := extraction.New(a.client, a.logger)
			defer controller.Close()

			result, err := controller.Extract(ctx, upload)
			if bar != nil {
				bar.Finish()
				fmt.Println()
			}
			if err != nil {
				return errors.New(controller.Err())
			}

			render.Extracted(os.Stdout, result)
			return nil
		},
	}
}

// filterFlags registers the history filter flags on fs
func filterFlags(fs *ff.FlagSet) func() receipt.Filters {
	from := fs.StringLong("from", "", "only receipts on or after this date (YYYY-MM-DD)")
	to := fs.StringLong("to", "", "only receipts on or before this date (YYYY-MM-DD)")
	merchant := fs.StringLong("merchant", "", "merchant name contains")
	minAmount := fs.StringLong("min", "", "minimum total")
	maxAmount := fs.StringLong("max", "", "maximum total")

	return func() receipt.Filters {
		return receipt.ParseFilters(receipt.FilterInput{
			DateFrom:  *from,
			DateTo:    *to,
			Merchant:  *merchant,
			MinAmount: *minAmount,
			MaxAmount: *maxAmount,
		})
	}
}

// loadHistory fetches every receipt and applies the filters
func (a *app) loadHistory(ctx context.Context, filters receipt.Filters) (*history.Controller, error) {
	controller := history.New(a.client, a.logger)
	if err := controller.Load(ctx); err != nil {
		return nil, errors.New(controller.Err())
	}
	controller.SetFilters(filters)
	return controller, nil
}

func (a *app) historyCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("history").SetParent(parent)
	filters := filterFlags(fs)

	return &ff.Command{
		Name:      "history",
		Usage:     "scanly history [FLAGS]",
		ShortHelp: "list scanned receipts with statistics",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := a.requireUser(ctx); err != nil {
				return err
			}
			controller, err := a.loadHistory(ctx, filters())
			if err != nil {
				return err
			}
			defer controller.Close()

			fmt.Println(render.Stats(controller.Summary()))
			render.Receipts(os.Stdout, controller.Receipts())
			return nil
		},
	}
}

func (a *app) showCommand(parent *ff.FlagSet) *ff.Command {
	return &ff.Command{
		Name:      "show",
		Usage:     "scanly show ID",
		ShortHelp: "show one receipt with its items",
		Flags:     ff.NewFlagSet("show").SetParent(parent),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("show requires a receipt ID")
			}
			if err := a.requireUser(ctx); err != nil {
				return err
			}
			r, err := a.client.GetReceipt(ctx, args[0])
			if err != nil {
				return errors.New(common.Message(err, "Failed to load receipt"))
			}
			render.Receipt(os.Stdout, *r)
			return nil
		},
	}
}

func (a *app) deleteCommand(parent *ff.FlagSet) *ff.Command {
	return &ff.Command{
		Name:      "delete",
		Usage:     "scanly delete ID",
		ShortHelp: "delete a receipt",
		Flags:     ff.NewFlagSet("delete").SetParent(parent),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("delete requires a receipt ID")
			}
			if err := a.requireUser(ctx); err != nil {
				return err
			}
			controller := history.New(a.client, a.logger)
			defer controller.Close()
			if err := controller.DeleteByID(ctx, args[0]); err != nil {
				return errors.New(controller.Err())
			}
			fmt.Println(render.Success("Receipt deleted successfully!"))
			return nil
		},
	}
}

func (a *app) exportCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("export").SetParent(parent)
	filters := filterFlags(fs)
	format := fs.StringLong("format", "csv", "export format: csv or xlsx")
	out := fs.StringLong("out", ".", "directory to write the export to")

	return &ff.Command{
		Name:      "export",
		Usage:     "scanly export [FLAGS]",
		ShortHelp: "download the filtered history as CSV or Excel",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if *format != "csv" && *format != "xlsx" {
				return fmt.Errorf("unknown format %q", *format)
			}
			if err := a.requireUser(ctx); err != nil {
				return err
			}
			controller, err := a.loadHistory(ctx, filters())
			if err != nil {
				return err
			}
			defer controller.Close()
			receipts := controller.Receipts()

			var data []byte
			switch *format {
			case "csv":
				data = []byte(receipt.ToCSV(receipts))
			case "xlsx":
				data, err = receipt.ToXLSX(receipts)
				if err != nil {
					return fmt.Errorf("building workbook: %w", err)
				}
			}

			downloads, err := receipt.NewDownloads(*out)
			if err != nil {
				return err
			}
			path, err := downloads.Save(receipt.ExportFilename(time.Now(), *format), data)
			if err != nil {
				return err
			}
			fmt.Println(render.Success(fmt.Sprintf("Exported %d receipts to %s", len(receipts), path)))
			return nil
		},
	}
}
