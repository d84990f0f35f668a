// Package cli provides the command-line interface for chottu-desktop.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chottu/chottu-desktop/internal/config"
	"github.com/chottu/chottu-desktop/internal/constants"
	"github.com/chottu/chottu-desktop/internal/core"
	"github.com/chottu/chottu-desktop/internal/credentials"
	"github.com/chottu/chottu-desktop/internal/http"
	"github.com/chottu/chottu-desktop/internal/logging"
	"github.com/chottu/chottu-desktop/internal/version"
)

var (
	// Global flags
	serverURL    string
	settingsPath string
	verbose      bool
	debug        bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc

	// newTokenStore builds the secure token store; tests swap it for a fake.
	newTokenStore = func() core.TokenStore { return credentials.NewDefaultStore() }
)

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.BinaryName,
		Short: constants.AppName + " - pair this computer with your Chottu account",
		Long: constants.AppName + ` ` + version.Version + ` - Built: ` + version.BuildTime + `

Without arguments the desktop window opens (when a display is available).
The commands below do the same work from a terminal:

  pair    - pair this device using the code shown in the Chottu app
  token   - show, set or clear the stored device token
  config  - read and write local settings
  status  - check the server and the stored token`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Pairing server URL (overrides server_url setting)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file path (default: "+config.GetDefaultSettingsPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newPairCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// newEngine resolves configuration (settings file, environment, then flags)
// and builds the engine used by every command.
func newEngine() (*core.Engine, error) {
	store := config.NewDefaultSettingsStore()
	if settingsPath != "" {
		store = config.NewSettingsStore(settingsPath)
	}

	cfg, err := config.Load(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w", store.Path(), err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if verbose || debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}

	// The proxy password is never stored; ask for it once per run.
	if http.NeedsProxyPassword(cfg) && isTerminal(os.Stdin) {
		pw, err := promptSecret(os.Stdin, os.Stderr, fmt.Sprintf("Proxy password for %s: ", cfg.ProxyUser))
		if err != nil {
			return nil, fmt.Errorf("failed to read proxy password: %w", err)
		}
		cfg.ProxyPassword = pw
	}

	return core.NewEngine(cfg, core.Options{
		Settings: store,
		Tokens:   newTokenStore(),
		Logger:   GetLogger().Child("engine"),
	})
}

// describe wraps err with the user-facing message.
func describe(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", core.Describe(err))
}
