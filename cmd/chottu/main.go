// Command chottu is the headless build of Chottu Desktop: the CLI without
// the Wails GUI, for servers and scripted setups.
package main

import (
	"os"

	"github.com/chottu/chottu-desktop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
