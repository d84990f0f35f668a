package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/chottu/chottu-desktop/internal/config"
	"github.com/chottu/chottu-desktop/internal/constants"
	"github.com/chottu/chottu-desktop/internal/version"
)

// newVersionCmd creates the 'version' command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and file locations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", constants.AppName, version.Version)
			fmt.Fprintf(out, "Built:    %s\n", version.BuildTime)
			fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "Settings: %s\n", config.GetDefaultSettingsPath())
			fmt.Fprintf(out, "Logs:     %s\n", config.LogDirectory())
		},
	}
}
