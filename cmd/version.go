package cmd

import (
	"fmt"

	"github.com/birmacher/dealing-with-ai/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the version of the gateway`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Dealing with AI gateway v%s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
