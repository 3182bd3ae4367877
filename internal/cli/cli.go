package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klokku/agenda/internal/app"
	"github.com/klokku/agenda/internal/config"
	"github.com/klokku/agenda/internal/logger"
	"github.com/klokku/agenda/internal/shell"
	"github.com/klokku/agenda/pkg/schedule"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	Storage    string
	Driver     string
}

// ListFlags holds flags for the list command
type ListFlags struct {
	View     string
	Days     int
	Category string
}

// ExportFlags holds flags for the export command
type ExportFlags struct {
	Out string
}

// environment carries what every command needs once configuration is loaded.
type environment struct {
	cfg       config.Application
	deps      *app.Dependencies
	logCloser io.Closer
}

func (e *environment) close() {
	if e.deps != nil {
		e.deps.Close()
	}
	if e.logCloser != nil {
		e.logCloser.Close()
	}
}

// NewRootCommand builds the agenda command tree reading from in and writing to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	flags := &GlobalFlags{}
	listFlags := &ListFlags{}
	exportFlags := &ExportFlags{}

	root := &cobra.Command{
		Use:   "agenda",
		Short: "Personal event scheduler",
		Long: `Agenda keeps dated, timed events with a category, warns about overlapping
events and lists what is coming up.

Examples:
  agenda                       # interactive shell
  agenda list --view week
  agenda export --out agenda.ics
  agenda serve                 # HTTP API`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), flags, in, out)
		},
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", config.DefaultPath, "path to YAML config file (optional)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level (overrides config)")
	root.PersistentFlags().StringVar(&flags.Driver, "driver", "", "storage driver: file, sqlite or postgres (overrides config)")
	root.PersistentFlags().StringVar(&flags.Storage, "storage", "", "events file or sqlite database path (overrides config)")

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runShell(cmd.Context(), flags, in, out)
			},
		},
		createServeCommand(flags),
		createListCommand(flags, listFlags, out),
		createExportCommand(flags, exportFlags, out),
	)
	return root
}

// Execute runs the root command against stdin/stdout, cancelling on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand(os.Stdin, os.Stdout).ExecuteContext(ctx)
}

func createServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := prepare(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.close()
			return app.NewApplication(env.cfg, env.deps).Run(cmd.Context())
		},
	}
}

func createListCommand(flags *GlobalFlags, listFlags *ListFlags, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print events in chronological order",
		Long: `Print events in chronological order.

Examples:
  agenda list
  agenda list --view today
  agenda list --days 3
  agenda list --category lecture`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := prepare(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.close()

			query := env.deps.Query
			var events []schedule.Event
			switch {
			case listFlags.Category != "":
				events = query.ByCategory(listFlags.Category)
			case cmd.Flags().Changed("days"):
				if events, err = query.NextDays(listFlags.Days); err != nil {
					return err
				}
			case listFlags.View == "today":
				events = query.Today()
			case listFlags.View == "week":
				events = query.Week()
			case listFlags.View == "all":
				events = query.SortedAll()
			default:
				return fmt.Errorf("unknown view %q (expected all, today or week)", listFlags.View)
			}

			if len(events) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			for i, e := range events {
				fmt.Fprintf(out, "%d. [%s %s] %s (%s)\n", i+1, e.Date, e.Time, e.Name, e.Category)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listFlags.View, "view", "all", "all, today or week")
	cmd.Flags().IntVar(&listFlags.Days, "days", schedule.DefaultWeekDays, "list events from today through today+N days")
	cmd.Flags().StringVar(&listFlags.Category, "category", "", "only events of this category")
	return cmd
}

func createExportCommand(flags *GlobalFlags, exportFlags *ExportFlags, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all events as iCalendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := prepare(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer env.close()

			events := env.deps.Store.All()
			if exportFlags.Out == "" || exportFlags.Out == "-" {
				return schedule.WriteICS(out, events, time.Now())
			}
			if err := schedule.WriteICSFile(exportFlags.Out, events, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported %d events to %s\n", len(events), exportFlags.Out)
			return nil
		},
	}
	cmd.Flags().StringVar(&exportFlags.Out, "out", "", "output file, stdout when empty")
	return cmd
}

func runShell(ctx context.Context, flags *GlobalFlags, in io.Reader, out io.Writer) error {
	env, err := prepare(ctx, flags)
	if err != nil {
		return err
	}
	defer env.close()

	if err := shell.New(env.deps.Store, env.deps.Query, in, out).Run(ctx); err != nil {
		return err
	}
	return env.deps.Store.Close(ctx)
}

// prepare loads configuration, applies flag overrides, configures logging and opens the store.
func prepare(ctx context.Context, flags *GlobalFlags) (*environment, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	if flags.Driver != "" {
		cfg.Storage.Driver = flags.Driver
	}
	if flags.Storage != "" {
		cfg.Storage.Path = flags.Storage
	}

	env := &environment{cfg: cfg}
	if env.logCloser, err = logger.Configure(cfg.Log, os.Stderr); err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}

	if env.deps, err = app.BuildDependencies(ctx, cfg); err != nil {
		env.close()
		return nil, err
	}
	log.Debugf("loaded %d events", len(env.deps.Store.All()))
	return env, nil
}
