package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newPairCmd creates the 'pair' command.
func newPairCmd() *cobra.Command {
	var deviceName string

	cmd := &cobra.Command{
		Use:   "pair [code]",
		Short: "Pair this device with the code shown in the Chottu app",
		Long: `Pair this device with a Chottu server.

Open the Chottu app, choose "Add device" and enter the code it shows.
The device token returned by the server is saved in the system
credential store; it is never written to the settings file.

The server comes from --server, CHOTTU_SERVER_URL or the server_url setting.
The device name defaults to this computer's hostname.`,
		Example: `  chottu-desktop pair 445566 --server https://pair.chottu.app --name MyLaptop`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Events().Close()

			cfg := engine.GetConfig()
			if strings.TrimSpace(cfg.ServerURL) == "" {
				return fmt.Errorf("no server configured: pass --server or run 'config set server_url <url>'")
			}

			code := ""
			if len(args) == 1 {
				code = args[0]
			} else {
				code, err = promptLine(cmd.InOrStdin(), cmd.ErrOrStderr(), "Pair code: ")
				if errors.Is(err, errNotInteractive) {
					return fmt.Errorf("pair code required: pass it as an argument or on stdin")
				}
				if err != nil {
					return err
				}
			}

			GetLogger().Debug().Str("server", cfg.ServerURL).Msg("Starting pairing")
			res, err := engine.PairDevice(GetContext(), "", code, deviceName)
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Paired as %q with %s\n", res.DeviceName, cfg.ServerURL)
			if len(res.Scopes) > 0 {
				fmt.Fprintf(out, "Scopes: %s\n", strings.Join(res.Scopes, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&deviceName, "name", "n", "", "Device name shown in the Chottu app (default: hostname)")
	return cmd
}
