// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/toeirei/keymaster-remote/internal/core"
	"github.com/toeirei/keymaster-remote/internal/i18n"
	"github.com/toeirei/keymaster-remote/internal/tui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show platform, plugins and authentication status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().Bool("tui", false, "show the interactive status view")
	return cmd
}

// configuredMethods returns authentication.methods from the configuration.
func configuredMethods(c *core.Core) (core.MethodSet, error) {
	return core.ParseMethodSet(c.Config().Current().Authentication.Methods)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	c, err := requireCore()
	if err != nil {
		return err
	}
	methods, err := configuredMethods(c)
	if err != nil {
		return err
	}

	if useTUI, _ := cmd.Flags().GetBool("tui"); useTUI {
		return tui.Run(c, methods)
	}

	// Status never prompts; only key files are tried.
	if methods.Has(core.KeyFileAuthentication) {
		if _, err := c.InitAuthentication(core.Methods(core.KeyFileAuthentication)); err != nil {
			return err
		}
	}

	none := i18n.T("status.none")
	orNone := func(s string) string {
		if s == "" {
			return none
		}
		return s
	}
	Info(cmd, "%s", c.ApplicationName())
	printTable(cmd.OutOrStdout(), []string{"", ""}, [][]string{
		{i18n.T("status.platform"), c.Platform().Name()},
		{i18n.T("status.plugins"), strconv.Itoa(len(c.PluginManager().Plugins()))},
		{i18n.T("status.auth"), c.State().String()},
		{i18n.T("status.key"), orNone(c.AuthenticationKeyName())},
		{i18n.T("status.config"), orNone(c.Config().File())},
	})
	return nil
}
