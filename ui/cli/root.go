// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/toeirei/tunnelmaster/buildvars"
	"github.com/toeirei/tunnelmaster/internal/api"
	"github.com/toeirei/tunnelmaster/internal/config"
	"github.com/toeirei/tunnelmaster/internal/core"
	"github.com/toeirei/tunnelmaster/internal/i18n"
	"github.com/toeirei/tunnelmaster/internal/logging"
	"github.com/toeirei/tunnelmaster/ui/tui"
	"golang.org/x/term"
)

const skipSetup = "tunnelmaster/skip-setup"

var (
	cfgFile string
	verbose bool

	appConfig config.Config
	client    *api.Client
	console   *core.Console

	// replaced in tests
	writeClipboard = clipboard.WriteAll
	isTerminal     = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	runTUI         = tui.Run
)

// setupServices loads the configuration and builds the API client and the
// console shared by all commands.
func setupServices(cmd *cobra.Command) error {
	path, err := configPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), path)
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// first run: persist the defaults so there is a file to edit
		if written, writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		} else {
			logging.Infof("wrote default config to %s", written)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if err := logging.SetLevel(appConfig.Log.Level); err != nil {
		logging.Warnf("%v; keeping the current log level", err)
	}
	if verbose {
		logging.SetDebug(true)
	}
	i18n.Init(appConfig.Language)

	if err := appConfig.Validate(); err != nil {
		return err
	}
	client, err = api.NewClient(appConfig.API.URL,
		api.WithBasicAuth(appConfig.API.User, appConfig.API.Password),
		api.WithTimeout(appConfig.API.Timeout),
	)
	if err != nil {
		return err
	}
	console = core.NewConsole(client)
	return nil
}

func configPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") || cfgFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfgFile); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	path := cfgFile
	return &path, nil
}

// NewRootCmd creates the root command with all subcommands attached. Each
// call returns a fresh tree so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tunnelmaster",
		Short: "Tunnelmaster manages tunnels, their routes and install tokens.",
		Long: `Tunnelmaster is a console for a reverse-tunnel server. It lists, creates,
edits and deletes tunnel endpoints and the routes bound to them, and
rotates or reveals the per-tunnel install tokens.

Running without a subcommand in a terminal launches the interactive TUI.`,
		Version:       buildvars.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return setupServices(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return cmd.Help()
			}
			return runTUI(cmd.Context(), console)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: tunnelmaster.yaml in the user config dir)")
	addConfigFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newTunnelsCmd(),
		newRoutesCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return cmd
}

// addConfigFlags declares one flag per config key; viper binds them by name.
func addConfigFlags(fs *pflag.FlagSet) {
	fs.String("api.url", "", "Base URL of the tunnel server API")
	fs.String("api.user", "", "User for HTTP basic authentication")
	fs.String("api.password", "", "Password for HTTP basic authentication")
	fs.Duration("api.timeout", 0, "Per-request timeout (0 disables)")
	fs.String("language", "", `Interface language ("en", "de")`)
	fs.String("log.level", "", "Log level (debug, info, warn, error)")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := buildvars.Resolve(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

// Execute runs the CLI entrypoint. The main package handles process exit.
func Execute() error {
	return NewRootCmd().Execute()
}
