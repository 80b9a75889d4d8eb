// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/toeirei/keymaster-remote/internal/core"
	"github.com/toeirei/keymaster-remote/internal/i18n"
	"github.com/toeirei/keymaster-remote/internal/state"
)

// ErrAuthenticationUnavailable is returned by auth check when no method is
// ready.
var ErrAuthenticationUnavailable = errors.New("authentication unavailable")

func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication bootstrap",
	}
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Initialise authentication with the requested methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireCore()
			if err != nil {
				return err
			}
			methods, err := configuredMethods(c)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("methods") {
				raw, _ := cmd.Flags().GetString("methods")
				if methods, err = core.ParseMethodSet(raw); err != nil {
					return err
				}
			}

			if withPassphrase, _ := cmd.Flags().GetBool("passphrase"); withPassphrase && methods.Has(core.KeyFileAuthentication) {
				pass, err := readPassword(i18n.T("authkeys.prompt.passphrase"))
				if err != nil {
					return err
				}
				state.Passphrases.Set(state.AnyKey, pass)
				pass.Zero()
				defer state.Passphrases.Clear()
			}

			ok, err := c.InitAuthentication(methods)
			if err != nil {
				return err
			}
			if !ok {
				Error(cmd, "%s", i18n.T("auth.check.failed", methods))
				return ErrAuthenticationUnavailable
			}
			Info(cmd, "%s", i18n.T("auth.check.ok", c.State()))
			if name := c.AuthenticationKeyName(); name != "" {
				Print(cmd, "%s", i18n.T("auth.check.key", name))
			}
			return nil
		},
	}
	checkCmd.Flags().Bool("passphrase", false, "prompt for the passphrase of an encrypted key file")
	checkCmd.Flags().String("methods", "", `comma separated methods ("keyfile", "logon"); defaults to authentication.methods`)
	authCmd.AddCommand(checkCmd)
	return authCmd
}
