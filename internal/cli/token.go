package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chottu/chottu-desktop/internal/credentials"
)

// newTokenCmd creates the 'token' command group.
func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored device token",
	}
	tokenCmd.AddCommand(newTokenShowCmd())
	tokenCmd.AddCommand(newTokenSetCmd())
	tokenCmd.AddCommand(newTokenClearCmd())
	return tokenCmd
}

func newTokenShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored device token (masked unless --reveal)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Events().Close()

			token, err := engine.LoadToken()
			if errors.Is(err, credentials.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not paired")
				return nil
			}
			if err != nil {
				return describe(err)
			}

			if !reveal {
				token = maskToken(token)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the full token")
	return cmd
}

func newTokenSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [token]",
		Short: "Store a device token obtained elsewhere",
		Long: `Store a device token obtained elsewhere.

Without an argument the token is read from stdin; on a terminal the
input is not echoed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Events().Close()

			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				token, err = promptSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Device token: ")
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
			}

			if err := engine.SaveToken(token); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token saved")
			return nil
		},
	}
}

func newTokenClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored device token (unpair locally)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Events().Close()

			if err := engine.ClearToken(); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token cleared")
			return nil
		},
	}
}

// maskToken keeps the first and last four characters of long tokens.
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
