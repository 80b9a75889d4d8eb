// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/toeirei/keymaster-remote/internal/i18n"
)

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect registered plugins",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			plugins := c.PluginManager().Plugins()
			if len(plugins) == 0 {
				Print(cmd, "%s", i18n.T("plugins.none"))
				return nil
			}
			active := c.Platform().UID()
			rows := make([][]string, 0, len(plugins))
			for _, p := range plugins {
				mark := ""
				if p.UID() == active {
					mark = "*"
				}
				rows = append(rows, []string{mark, p.Name(), p.Version(), p.UID().String(), p.Description()})
			}
			printTable(cmd.OutOrStdout(), []string{"", "NAME", "VERSION", "UID", "DESCRIPTION"}, rows)
			return nil
		},
	})
	return cmd
}
