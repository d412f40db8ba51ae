package cli

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the latest source health snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().HealthSummary(cmd.Context())
	},
}
