// Chottu Desktop - desktop companion for the Chottu service.
//
// - No args + display available -> GUI mode
// - No args + no display -> CLI help
// - --gui -> GUI mode
// - --cli -> CLI mode (force)
// - CLI subcommands/flags -> CLI mode
//
// Build with: wails build
package main

import (
	"embed"
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/chottu/chottu-desktop/internal/cli"
	"github.com/chottu/chottu-desktop/internal/wailsapp"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if isCLIMode(os.Args) {
		os.Args = slices.DeleteFunc(os.Args, func(a string) bool { return a == "--cli" })
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	// Suppress GTK ibus input method warnings on Linux.
	if runtime.GOOS == "linux" && os.Getenv("GTK_IM_MODULE") == "" {
		os.Setenv("GTK_IM_MODULE", "none")
	}
	wailsapp.Assets = assets
	if err := wailsapp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isCLIMode determines whether to run in CLI mode based on arguments and environment.
//
// CLI mode when --cli is present, any other argument is present, or no
// display is available on Linux. GUI mode when --gui is present or there are
// no arguments and a display is available.
func isCLIMode(args []string) bool {
	if slices.Contains(args, "--cli") {
		return true
	}
	if slices.Contains(args, "--gui") {
		return false
	}

	if len(args) <= 1 {
		if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return true
		}
		return false
	}

	// Unknown arguments: let cobra report them.
	return true
}
