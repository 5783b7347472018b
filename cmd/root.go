/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/chatporter/internal/export"
	"github.com/fulmenhq/chatporter/internal/ops"
	"github.com/fulmenhq/chatporter/pkg/buildinfo"
	"github.com/fulmenhq/chatporter/pkg/exitcode"
	"github.com/fulmenhq/chatporter/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatporter",
		Short: "Export WhatsApp chat logs into durable HTML, Markdown, and archive artifacts",
		Long: `Chatporter turns an exported WhatsApp chat log into a set of durable
artifacts: self-contained and thumbnail HTML renderings, a Markdown
transcript, an attachment sidecar, a raw-source archive, and integrity
manifests. Publishing is atomic per artifact, collisions are detected up
front, and a cancelled or failed run rolls the destination back.

Examples:
   chatporter export chat.txt --dest ~/Exports    # Full export
   chatporter export chat.txt --dest ~/Exports --html max --markdown
   chatporter preflight chat.txt --dest ~/Exports # Collision scan only
   chatporter envinfo                             # Show system information`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json-logs", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("chatporter {{.Version}}\n")

	// Grouped help by command group (Export → Support)
	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		reg := ops.GetRegistry()
		cmd.Println(cmd.Long)
		cmd.Println()
		cmd.Println("Export Commands:")
		for _, c := range reg.GetCommandsByGroup(ops.GroupExport) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Support Commands:")
		for _, c := range reg.GetCommandsByGroup(ops.GroupSupport) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Flags:")
		cmd.Print(cmd.UsageString())
	})

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(exportCmd)
	cmd.AddCommand(preflightCmd)
	cmd.AddCommand(versionCmd)
	cmd.AddCommand(envinfoCmd)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the root command and maps failures onto the process exit
// code taxonomy. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor classifies an error into the exit code taxonomy.
func exitCodeFor(err error) int {
	var ce *configError
	var ve *export.ValidationError
	var oe *export.OutputExistsError
	var se *export.SuffixArtifactsError
	switch {
	case errors.As(err, &ce):
		return exitcode.ConfigError
	case errors.As(err, &ve):
		return exitcode.ValidationError
	case errors.As(err, &oe), errors.As(err, &se):
		return exitcode.CollisionsFound
	case errors.Is(err, export.ErrRunActive):
		return exitcode.GeneralError
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled):
		return exitcode.Cancelled
	case errors.Is(err, os.ErrPermission):
		return exitcode.PermissionError
	case errors.Is(err, fs.ErrNotExist), isPathError(err):
		return exitcode.FileSystemError
	default:
		return exitcode.GeneralError
	}
}

func isPathError(err error) bool {
	var pe *fs.PathError
	return errors.As(err, &pe)
}

// errCancelled marks a user-chosen cancellation (decision prompt or ^C).
var errCancelled = errors.New("cancelled")

// configError marks failures in loading or validating configuration so
// they map to their own exit code.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func init() {
	registerSubcommands(rootCmd)
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "chatporter",
	}

	if err := logger.Initialize(config); err != nil {
		if _, writeErr := os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n"); writeErr != nil {
			_ = writeErr
		}
		os.Exit(exitcode.ConfigError)
	}
}
