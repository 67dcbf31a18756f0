package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/cocoaheadsnl/cloudsync"
	"github.com/cocoaheadsnl/cloudsync/internal/output"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
)

// Execute runs the cloudsync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command. With no subcommand it
// runs one full sync.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "cloudsync",
		Short:   "Sync CocoaHeadsNL events, contributors and jobs into CloudKit",
		Version: a.version,
		Long: `cloudsync pulls contributors from GitHub, events from Meetup and job
postings from the jobs feed, and reconciles each set with the records in the
CloudKit container. Matching is by business key, so existing records are
updated in place and new ones inserted. Job postings that left the feed are
deleted.

Stages run in order: contributors, events, jobs. The first failing stage
stops the run; earlier stages are not rolled back.`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setupCommand,
		RunE:              a.runSync,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.SetOut(a.out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.ConfigFile, "config", "", "config file (default is $HOME/.cloudsync.yaml)")
	flags.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolVarP(&a.flags.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.StringVar(&a.flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.StringVarP(&a.flags.Format, "format", "o", "", "summary format: text, table, json, yaml")

	rootCmd.Flags().BoolVar(&a.flags.DryRun, "dry-run", false, "plan every stage without writing")
	rootCmd.Flags().StringArrayVar(&a.flags.Only, "only", nil, "run only the named stage (repeatable): contributors, events, jobs")
	rootCmd.Flags().BoolVar(&a.flags.Memory, "memory", false, "use an empty in-memory store instead of CloudKit")

	rootCmd.SetVersionTemplate("cloudsync {{.Version}}\n")

	rootCmd.AddCommand(a.CreateVersionCommand())

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	if a.flags.ConfigFile != "" {
		config, err := LoadConfig(a.flags.ConfigFile)
		if err != nil {
			return err
		}
		a.config = config
	}
	a.config.UpdateFromFlags(&a.flags)

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)

	return nil
}

// runSync runs one sync and prints its summary, including on failure.
func (a *App) runSync(cmd *cobra.Command, _ []string) error {
	format, err := output.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}

	client, err := a.Client()
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), a.logger)
	res, syncErr := client.Sync(ctx,
		cloudsync.WithDryRun(a.config.DryRun),
		cloudsync.WithStages(a.config.Only...),
	)
	if res != nil {
		if err := output.NewFormatter(format).Format(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	}
	return syncErr
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cloudsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
