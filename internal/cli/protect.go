package cli

import (
	"github.com/spf13/cobra"
)

var protectCancelReason string

var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Manage spot take-profit and stop-loss protection",
}

var protectPreflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check the active protection provider before trading",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ProtectionPreflight(cmd.Context())
	},
}

var protectActivateCmd = &cobra.Command{
	Use:   "activate <file>",
	Short: "Activate protection for a position from a JSON input file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ActivateProtection(cmd.Context(), args[0])
	},
}

var protectCancelCmd = &cobra.Command{
	Use:   "cancel <position-id>",
	Short: "Cancel protection for a position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CancelProtection(cmd.Context(), args[0], protectCancelReason)
	},
}

var protectReconcileCmd = &cobra.Command{
	Use:   "reconcile [position-id...]",
	Short: "Refresh local protection records against the provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ReconcileProtection(cmd.Context(), args)
	},
}

func init() {
	protectCancelCmd.Flags().StringVar(&protectCancelReason, "reason", "manual cancel", "Reason recorded with the cancellation")

	protectCmd.AddCommand(protectPreflightCmd)
	protectCmd.AddCommand(protectActivateCmd)
	protectCmd.AddCommand(protectCancelCmd)
	protectCmd.AddCommand(protectReconcileCmd)
}
