package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trust-plane/internal/app"
)

var (
	manifestFamily  string
	manifestSurface string
	manifestFrom    string
	manifestTo      string
	manifestRecords string
	manifestPersist bool
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Build a dataset manifest from a JSON record batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := time.Parse(time.RFC3339, manifestFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}
		to, err := time.Parse(time.RFC3339, manifestTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		return getApp().BuildManifest(cmd.Context(), app.ManifestOptions{
			Family:      manifestFamily,
			Surface:     manifestSurface,
			From:        from,
			To:          to,
			RecordsPath: manifestRecords,
			Persist:     manifestPersist,
		})
	},
}

func init() {
	manifestCmd.Flags().StringVar(&manifestFamily, "family", "", "Dataset family (e.g. backtest_trades)")
	manifestCmd.Flags().StringVar(&manifestSurface, "surface", "", "Trading surface the records came from")
	manifestCmd.Flags().StringVar(&manifestFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	manifestCmd.Flags().StringVar(&manifestTo, "to", "", "End timestamp (RFC3339, exclusive)")
	manifestCmd.Flags().StringVar(&manifestRecords, "records", "", "Path to a JSON array of records")
	manifestCmd.Flags().BoolVar(&manifestPersist, "persist", false, "Persist the manifest to the local store and mirrors")

	manifestCmd.MarkFlagRequired("family")
	manifestCmd.MarkFlagRequired("from")
	manifestCmd.MarkFlagRequired("to")
	manifestCmd.MarkFlagRequired("records")
}
