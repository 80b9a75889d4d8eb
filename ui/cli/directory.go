// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/toeirei/keymaster-remote/internal/directory"
	"github.com/toeirei/keymaster-remote/internal/i18n"
)

func newDirectoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "directory",
		Aliases: []string{"dir"},
		Short:   "Manage the network object directory",
	}
	cmd.AddCommand(newDirectoryListCmd(), newDirectoryAddCmd(), newDirectoryRemoveCmd())
	return cmd
}

// parseParent parses an optional parent UID; empty means the top level.
func parseParent(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid parent %q: %w", s, err)
	}
	return id, nil
}

func newDirectoryListCmd() *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the objects below a parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			p, err := parseParent(parent)
			if err != nil {
				return err
			}
			objs, err := c.NetworkObjectDirectoryManager().Objects(cmd.Context(), p)
			if err != nil {
				return err
			}
			if len(objs) == 0 {
				Print(cmd, "%s", i18n.T("directory.empty"))
				return nil
			}
			rows := make([][]string, 0, len(objs))
			for _, o := range objs {
				rows = append(rows, []string{o.UID.String(), string(o.Type), o.Name, o.HostAddress, o.MacAddress})
			}
			printTable(cmd.OutOrStdout(), []string{"UID", "TYPE", "NAME", "ADDRESS", "MAC"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent location UID")
	return cmd
}

func newDirectoryAddCmd() *cobra.Command {
	var parent, address, mac string
	cmd := &cobra.Command{
		Use:   "add <location|host> <name>",
		Short: "Add a location or host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			typ, err := directory.ParseObjectType(args[0])
			if err != nil {
				return err
			}
			p, err := parseParent(parent)
			if err != nil {
				return err
			}
			o, err := c.NetworkObjectDirectoryManager().Add(cmd.Context(), directory.NetworkObject{
				Type:        typ,
				Name:        args[1],
				HostAddress: address,
				MacAddress:  mac,
				ParentUID:   p,
			})
			if err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("directory.added", o.Type, o.Name, o.UID))
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent location UID")
	cmd.Flags().StringVar(&address, "address", "", "host name or IP address of a host")
	cmd.Flags().StringVar(&mac, "mac", "", "MAC address of a host")
	return cmd
}

func newDirectoryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <uid>",
		Short: "Remove an object and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid uid %q: %w", args[0], err)
			}
			if err := c.NetworkObjectDirectoryManager().Remove(cmd.Context(), id); err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("directory.removed", id))
			return nil
		},
	}
}
