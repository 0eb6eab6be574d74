package cli

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/ui"
	"github.com/fragmede/shopterm/internal/watch"
)

var version = "dev" // set with -ldflags at build time

type globalFlags struct {
	apiURL   string
	logLevel string
}

// NewRootCmd builds the command tree. Without a subcommand it starts the TUI.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "shopterm",
		Short: "shopterm - browse and buy from the shop in your terminal",
		Long: `shopterm is a terminal client for the shop API.

Run it without arguments to open the interactive browser. Settings come from
SHOPTERM_* environment variables or a .env file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "API base URL (overrides SHOPTERM_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shopterm version %s\n", version)
		},
	})
	rootCmd.AddCommand(newLoginCmd(flags))
	rootCmd.AddCommand(newLogoutCmd(flags))
	rootCmd.AddCommand(newWhoamiCmd(flags))
	rootCmd.AddCommand(newOrdersCmd(flags))
	rootCmd.AddCommand(newDoctorCmd(flags))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func runTUI(flags *globalFlags) error {
	e, err := setup(flags)
	if err != nil {
		return err
	}
	defer e.Close()

	watcher := watch.New(e.client, e.db, e.cfg.WatchInterval, e.log)
	app := ui.NewApp(e.cfg, e.client, e.db, watcher, e.log)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	app.SetProgram(program)
	e.gateway.OnSessionTerminated(ui.TerminatedNotifier(program))

	_, err = program.Run()
	watcher.Stop()
	if err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// commandError turns API errors into something a shell user can act on.
func commandError(action string, err error) error {
	if errors.Is(err, api.ErrSessionTerminated) || api.IsStatus(err, 401) {
		return fmt.Errorf("%s: %s\nRun 'shopterm login' to sign in again", action, api.Message(err))
	}
	return fmt.Errorf("%s: %s", action, api.Message(err))
}
