package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run:   displayVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// SetVersion registers the build information displayed by the version command
func SetVersion(version, commit, date, builtBy string) {
	setApp(version, commit, date, builtBy)
}

func displayVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("imapfetch version %s", appVersion)
	if appCommit != "" {
		fmt.Printf(" commit %q", appCommit)
	}
	if appDate != "" {
		fmt.Printf(" built on %s", appDate)
	}
	if appBuiltBy != "" {
		fmt.Printf(" by %s", appBuiltBy)
	}
	fmt.Println("")
}
