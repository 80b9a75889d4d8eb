// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/toeirei/keymaster-remote/internal/core"
	"github.com/toeirei/keymaster-remote/internal/i18n"
	"github.com/toeirei/keymaster-remote/internal/logging"
)

// Component is the registry component name of the command line.
const Component = "cli"

const skipCoreAnnotation = "kmremote/skip-core"

var (
	cfgFile      string
	debugLogging bool

	// app is the registry of the running command.
	app *core.Core
	// newCore builds the registry; tests replace it to add plugins.
	newCore = core.New
)

// Execute runs the command line. The caller handles process exit.
func Execute() error {
	defer closeCore()
	return NewRootCmd().Execute()
}

const rootLong = `Keymaster Remote manages authentication keys, the network object directory and
the configuration of a remote administration installation.

Running without a subcommand prints the status.`

// NewRootCmd creates the root command. Each call returns a fresh tree so
// tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "kmremote",
		Short:             "Keymaster Remote administers computers from a central console.",
		Long:              rootLong,
		SilenceUsage:      true,
		PersistentPreRunE: openCore,
		RunE:              runStatus,
		Version:           compositeVersion(),
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug logging")
	cmd.PersistentFlags().String("language", "en", `output language ("en", "de")`)

	cmd.AddCommand(
		newStatusCmd(),
		newAuthCmd(),
		newAuthKeysCmd(),
		newConfigCmd(),
		newDirectoryCmd(),
		newPluginsCmd(),
		newVersionCmd(),
	)
	return cmd
}

func skipCore(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[skipCoreAnnotation] = "true"
	return cmd
}

// openCore builds the registry for cmd unless cmd opts out.
func openCore(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipCoreAnnotation] == "true" {
		return nil
	}
	if app != nil {
		return nil
	}

	flags := pflag.NewFlagSet("config", pflag.ContinueOnError)
	if f := cmd.Flags().Lookup("language"); f != nil && f.Changed {
		flags.AddFlag(f)
	}

	c, err := newCore(core.Options{
		Component:     Component,
		ConfigFile:    cfgFile,
		Flags:         flags,
		LogonPrompter: terminalPrompter{},
	})
	if err != nil {
		return err
	}
	app = c
	if debugLogging {
		logging.SetDebug(true)
	}
	if err := i18n.Init(c.Config().Current().Language); err != nil {
		logging.Warnf("translations unavailable: %v", err)
	}
	return nil
}

func closeCore() {
	if app == nil {
		return
	}
	if err := app.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	app = nil
}

// requireCore returns the registry opened for the running command.
func requireCore() (*core.Core, error) {
	if app == nil {
		return nil, errors.New("core registry not initialised")
	}
	return app, nil
}
