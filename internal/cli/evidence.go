package cli

import (
	"github.com/spf13/cobra"

	"trust-plane/internal/app"
	"trust-plane/internal/evidence"
)

var (
	evidenceSurface  string
	evidenceStrategy string
	evidencePNGPath  string
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Record and inspect trade execution evidence",
}

var evidencePutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Record one trade evidence document from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().UpsertEvidence(cmd.Context(), args[0])
	},
}

var evidenceGetCmd = &cobra.Command{
	Use:   "get <trade-id>",
	Short: "Print the evidence record for one trade",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().GetEvidence(cmd.Context(), args[0])
	},
}

var evidenceSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print slippage percentiles and the outcome histogram",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SummarizeEvidence(cmd.Context(), evidence.Filter{
			Surface:    evidenceSurface,
			StrategyID: evidenceStrategy,
		})
	},
}

var evidenceChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Export the slippage distribution as a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ChartEvidence(cmd.Context(), app.ChartEvidenceOptions{
			Surface:    evidenceSurface,
			StrategyID: evidenceStrategy,
			PNGPath:    evidencePNGPath,
		})
	},
}

func init() {
	evidenceSummaryCmd.Flags().StringVar(&evidenceSurface, "surface", "", "Filter by trading surface")
	evidenceSummaryCmd.Flags().StringVar(&evidenceStrategy, "strategy", "", "Filter by strategy id")

	evidenceChartCmd.Flags().StringVar(&evidenceSurface, "surface", "", "Filter by trading surface")
	evidenceChartCmd.Flags().StringVar(&evidenceStrategy, "strategy", "", "Filter by strategy id")
	evidenceChartCmd.Flags().StringVar(&evidencePNGPath, "png", "", "Path to write the PNG chart")
	evidenceChartCmd.MarkFlagRequired("png")

	evidenceCmd.AddCommand(evidencePutCmd)
	evidenceCmd.AddCommand(evidenceGetCmd)
	evidenceCmd.AddCommand(evidenceSummaryCmd)
	evidenceCmd.AddCommand(evidenceChartCmd)
}
