package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:          "siteplanner",
		Short:        "Fill site polygons with development transplanted from a reference library",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "settings file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(generateCmd(&flags))
	rootCmd.AddCommand(validateCmd(&flags))
	rootCmd.AddCommand(matchCmd(&flags))
	rootCmd.AddCommand(serveCmd(&flags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func generateCmd(flags *globalFlags) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [project-path]",
		Short: "Fill every site polygon and write the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), flags, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.runID, "out", "o", "", "run directory name under the project's output dir (default: random UUID)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database to record the run in")
	return cmd
}

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate a project and its inputs without generating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), flags, args[0])
		},
	}
}

func matchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "match [project-path]",
		Short: "Find the closest query perception for each site perception",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), cmd.OutOrStdout(), flags, args[0])
		},
	}
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port   int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve [project-path]",
		Short: "Start the local HTTP API for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, args[0], port, dbPath)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (default from settings, 3000)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database holding runs")
	return cmd
}
