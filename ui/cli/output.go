// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/toeirei/keymaster-remote/internal/i18n"
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Print writes a plain line to the command's output.
func Print(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

// Info writes an informational line to the command's output.
func Info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render(fmt.Sprintf(format, args...)))
}

// Error writes an error line to the command's error output.
func Error(cmd *cobra.Command, format string, args ...any) {
	msg := fmt.Sprintf("%s: %s", i18n.T("error.prefix"), fmt.Sprintf(format, args...))
	fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(msg))
}

// printTable writes rows under header as aligned columns.
func printTable(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}
