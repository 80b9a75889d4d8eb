// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/toeirei/keymaster-remote/internal/i18n"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the configuration",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd(), newConfigExportCmd(), newConfigImportCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all settings as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			var value any
			if len(args) == 0 {
				value = c.Config().Values()
			} else if value = c.Config().Get(args[0]); value == nil {
				return errors.New(i18n.T("config.unset", args[0]))
			}
			if s, ok := value.(string); ok {
				Print(cmd, "%s", s)
				return nil
			}
			out, err := yaml.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshal %v: %w", args, err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting and save the configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			if err := c.Config().Set(args[0], args[1]); err != nil {
				return err
			}
			path, err := c.Config().Save()
			if err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("config.saved", path))
			return nil
		},
	}
}

func newConfigExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write a compressed snapshot of every setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return err
			}
			if err := c.Config().Export(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("config.exported", args[0]))
			return nil
		},
	}
}

func newConfigImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a snapshot written by export and save the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := c.Config().Import(f); err != nil {
				return err
			}
			path, err := c.Config().Save()
			if err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("config.imported", args[0]))
			Info(cmd, "%s", i18n.T("config.saved", path))
			return nil
		},
	}
}
