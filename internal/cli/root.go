package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "mustdo",
	Short: "mustdo - a personal to-do list with deadline alarms",
	Long: `mustdo keeps a small list of reminders, each with an optional HH:MM
deadline. When a deadline passes, the alarm sounds until you stop it.

Tasks are stored in a JSON file next to .mustdo.yaml (or in $MUSTDO_HOME).
Use "mustdo watch" or "mustdo dashboard" to keep the deadline scanner running.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mustdo %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// requireEngine returns the shared engine or an error when the app has not
// been wired.
func requireEngine() error {
	if Engine == nil {
		return fmt.Errorf("task engine not initialized")
	}
	return nil
}
