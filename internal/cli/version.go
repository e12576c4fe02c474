package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/askiada/go-stagerun/internal/cli.Version=...".
var Version = "dev"

func newVersionCmd(a *app) *cobra.Command {
	var flagJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		RunE: func(*cobra.Command, []string) error {
			if !flagJSON {
				_, err := fmt.Fprintf(a.stdout, "stagerun %s\n", Version)

				return err
			}

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(map[string]string{
				"version": Version,
				"go":      runtime.Version(),
				"go_os":   runtime.GOOS,
				"go_arch": runtime.GOARCH,
			})
		},
	}

	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print detailed JSON version info")

	return cmd
}
