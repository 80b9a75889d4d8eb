// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/toeirei/keymaster-remote/internal/authkeys"
	"github.com/toeirei/keymaster-remote/internal/cryptocore"
	"github.com/toeirei/keymaster-remote/internal/i18n"
	"github.com/toeirei/keymaster-remote/internal/security"
)

// writeClipboard is swapped in tests; headless CI has no clipboard.
var writeClipboard = clipboard.WriteAll

func authKeyManager() (*authkeys.Manager, error) {
	c, err := requireCore()
	if err != nil {
		return nil, err
	}
	return authkeys.FromCore(c), nil
}

// optionalPassphrase prompts for a new passphrase when ask is set.
func optionalPassphrase(ask bool) (security.Secret, error) {
	if !ask {
		return nil, nil
	}
	return promptNewPassphrase()
}

func newAuthKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "authkeys",
		Aliases: []string{"keys"},
		Short:   "Manage authentication key pairs",
	}
	cmd.AddCommand(
		newAuthKeysCreateCmd(),
		newAuthKeysDeleteCmd(),
		newAuthKeysListCmd(),
		newAuthKeysExportCmd(),
		newAuthKeysImportCmd(),
		newAuthKeysExtractCmd(),
	)
	return cmd
}

func newAuthKeysCreateCmd() *cobra.Command {
	var withPassphrase bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Generate a new key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := authKeyManager()
			if err != nil {
				return err
			}
			passphrase, err := optionalPassphrase(withPassphrase)
			if err != nil {
				return err
			}
			defer passphrase.Zero()

			k, err := m.Create(args[0], passphrase)
			if err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("authkeys.created", k.Name, k.Fingerprint))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withPassphrase, "passphrase", false, "protect the private key with a passphrase")
	return cmd
}

func newAuthKeysDeleteCmd() *cobra.Command {
	var kindFlag string
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a key pair or one half of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := authKeyManager()
			if err != nil {
				return err
			}
			kinds := []authkeys.Kind{authkeys.Private, authkeys.Public}
			if kindFlag != "" {
				k, err := authkeys.ParseKind(kindFlag)
				if err != nil {
					return err
				}
				kinds = []authkeys.Kind{k}
			}
			for _, k := range kinds {
				if err := m.Delete(args[0], k); err != nil {
					return err
				}
				Info(cmd, "%s", i18n.T("authkeys.deleted", k, args[0]))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", `"private" or "public"; both when empty`)
	return cmd
}

func newAuthKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored key pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := authKeyManager()
			if err != nil {
				return err
			}
			keys, err := m.List()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				Print(cmd, "%s", i18n.T("authkeys.none"))
				return nil
			}
			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, []string{k.Name, yesNo(k.HasPrivate), yesNo(k.HasPublic), k.Fingerprint})
			}
			printTable(cmd.OutOrStdout(), []string{"NAME", "PRIVATE", "PUBLIC", "FINGERPRINT"}, rows)
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newAuthKeysExportCmd() *cobra.Command {
	var (
		kindFlag       string
		output         string
		toClipboard    bool
		withPassphrase bool
	)
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export one half of a key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := authKeyManager()
			if err != nil {
				return err
			}
			kind, err := authkeys.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			passphrase, err := optionalPassphrase(withPassphrase && kind == authkeys.Private)
			if err != nil {
				return err
			}
			defer passphrase.Zero()

			var buf bytes.Buffer
			if err := m.Export(args[0], kind, &buf, passphrase); err != nil {
				return err
			}
			switch {
			case toClipboard:
				if err := writeClipboard(buf.String()); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				Info(cmd, "%s", i18n.T("authkeys.exported_clipboard", kind, args[0]))
			case output == "" || output == "-":
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			default:
				mode := os.FileMode(0o644)
				if kind == authkeys.Private {
					mode = 0o600
				}
				if err := os.WriteFile(output, buf.Bytes(), mode); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				Info(cmd, "%s", i18n.T("authkeys.exported", kind, args[0]))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", string(authkeys.Public), `"private" or "public"`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&toClipboard, "clipboard", false, "copy to the clipboard")
	cmd.Flags().BoolVar(&withPassphrase, "passphrase", false, "seal an exported private key with a passphrase")
	return cmd
}

func newAuthKeysImportCmd() *cobra.Command {
	var (
		kindFlag string
		input    string
	)
	cmd := &cobra.Command{
		Use:   "import <name>",
		Short: "Import one half of a key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := authKeyManager()
			if err != nil {
				return err
			}
			kind, err := authkeys.ParseKind(kindFlag)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}

			var passphrase security.Secret
			if kind == authkeys.Private && cryptocore.IsSealed(data) {
				if passphrase, err = readPassword(i18n.T("authkeys.prompt.passphrase")); err != nil {
					return err
				}
			}
			defer passphrase.Zero()

			if err := m.Import(args[0], kind, bytes.NewReader(data), passphrase); err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("authkeys.imported", kind, args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", string(authkeys.Public), `"private" or "public"`)
	cmd.Flags().StringVarP(&input, "input", "i", "", "read from file instead of stdin")
	return cmd
}

func newAuthKeysExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <name>",
		Short: "Derive the public key from a private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := authKeyManager()
			if err != nil {
				return err
			}
			k, err := m.Extract(args[0])
			if err != nil {
				return err
			}
			Info(cmd, "%s", i18n.T("authkeys.extracted", k.Name, k.Fingerprint))
			return nil
		},
	}
}
