package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if jsonOut {
			return printJSON(cmd, map[string]string{"version": version})
		}
		cmd.Printf("profrank version %s\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
