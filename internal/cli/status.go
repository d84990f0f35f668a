package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the server and the stored device token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Events().Close()

			st, err := engine.ServerStatus(GetContext())
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server:      %s\n", st.ServerURL)
			fmt.Fprintf(out, "Reachable:   %s\n", yesNo(st.Reachable))
			fmt.Fprintf(out, "Paired:      %s\n", yesNo(st.Paired))
			if st.Paired && st.Reachable {
				fmt.Fprintf(out, "Token valid: %s\n", yesNo(st.TokenValid))
			}
			if st.Message != "" {
				fmt.Fprintf(out, "\n%s\n", st.Message)
			}
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
