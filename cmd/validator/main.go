// cmd/validator/main.go
//
// This is the entry point for the protest validator CLI.
// Running `validator protests.xlsx` from a project directory opens the review
// TUI on that workbook.
//
// Flow:
// 1. Make sure .validator/ exists and read config.yaml
// 2. Open the workbook through the store the config selects
// 3. Load the session and launch the TUI (optionally with a file watcher)

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/protest-validator/internal/config"
	"github.com/kingrea/protest-validator/internal/logbook"
	"github.com/kingrea/protest-validator/internal/logging"
	"github.com/kingrea/protest-validator/internal/session"
	"github.com/kingrea/protest-validator/internal/store"
	"github.com/kingrea/protest-validator/internal/submission"
	"github.com/kingrea/protest-validator/internal/tui"
	"github.com/kingrea/protest-validator/internal/watch"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	sheet      string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "validator [workbook]",
		Short: "Review protest submissions one record at a time",
		Long: `validator opens a workbook of activist-submitted protest reports and walks a
human reviewer through each pending record: check the evidence link, correct
the date or place, classify the event and mark it validated or rejected.

The workbook may be .xlsx, .csv or a SQLite database. When no path is given
the workbook recorded in .validator/config.yaml is reopened.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(flags, args)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml (default .validator/config.yaml)")
	root.PersistentFlags().StringVar(&flags.sheet, "sheet", "", "worksheet holding the submissions")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "write debug entries to the validator log")
	root.AddCommand(newSummaryCmd(flags))
	return root
}

// environment is everything a command needs once the workbook is open.
type environment struct {
	cfg      *config.Config
	logger   *zap.Logger
	closer   io.Closer
	session  *session.Session
	workbook string
	explicit bool
}

func (e *environment) Close() {
	if e == nil {
		return
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

// openEnvironment reads configuration, opens the workbook and loads the
// session.
func openEnvironment(flags *globalFlags, args []string) (*environment, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if err := config.InitValidatorDir(cwd); err != nil {
		return nil, fmt.Errorf("initializing .validator directory: %w", err)
	}
	cfg, err := config.NewConfig(cwd, flags.configPath)
	if err != nil {
		return nil, err
	}
	if sheet := strings.TrimSpace(flags.sheet); sheet != "" {
		cfg.Project.Store.Sheet = sheet
	}

	env := &environment{cfg: cfg}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		env.workbook, err = filepath.Abs(args[0])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", args[0], err)
		}
		env.explicit = true
	} else {
		env.workbook = cfg.WorkbookPath()
	}
	if env.workbook == "" {
		return nil, errors.New("no workbook given: pass a path or set workbook in .validator/config.yaml")
	}

	env.logger, env.closer, err = logging.New(cwd, flags.verbose)
	if err != nil {
		return nil, err
	}
	env.logger = env.logger.With(zap.String("workbook", filepath.Base(env.workbook)))

	st, err := store.Open(env.workbook, store.OptionsFromConfig(cfg))
	if err != nil {
		env.Close()
		return nil, err
	}
	machine := submission.NewMachine(submission.NewClassificationSet(cfg.Classifications()...))
	env.session = session.New(st, machine,
		session.WithAutosaveEvery(cfg.AutosaveEvery()),
		session.WithLogger(env.logger),
		session.WithWatchedPath(env.workbook),
	)
	if err := env.session.Load(); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

func runReview(flags *globalFlags, args []string) error {
	env, err := openEnvironment(flags, args)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.explicit {
		if err := env.cfg.SetWorkbook(env.workbook); err != nil {
			env.logger.Warn("could not remember workbook", zap.Error(err))
		}
	}

	book, err := logbook.New(filepath.Join(env.cfg.LogsDir(), "journey.log"))
	if err != nil {
		env.logger.Warn("journey log unavailable", zap.Error(err))
	}
	defer book.Close()

	opts := []tui.AppOption{
		tui.WithLogbook(book),
		tui.WithLogger(env.logger),
		tui.WithURLOpener(tui.BrowserOpener(env.cfg.BrowserCommand())),
		tui.WithWorkbookName(filepath.Base(env.workbook)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if env.cfg.WatchEnabled() {
		w, err := watch.New(env.workbook, watch.WithLogger(env.logger))
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			env.logger.Warn("workbook watcher disabled", zap.Error(err))
			if w != nil {
				w.Stop()
			}
		} else {
			defer w.Stop()
			opts = append(opts, tui.WithWatchEvents(w.Events()))
		}
	}

	// Run blocks until the validator quits
	p := tea.NewProgram(tui.NewApp(env.session, opts...), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	if err := env.session.LastSaveError(); err != nil && env.session.Dirty() {
		return fmt.Errorf("exited with unsaved changes: %w", err)
	}
	return nil
}
