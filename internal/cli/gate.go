package cli

import (
	"github.com/spf13/cobra"
)

var gateCmd = &cobra.Command{
	Use:   "gate <candidates-file>",
	Short: "Resolve which strategy candidate the win-rate gate admits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ResolveGate(args[0])
	},
}
