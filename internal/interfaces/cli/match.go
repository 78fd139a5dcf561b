package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/CyberTrace-Intelligence/internal/application/linkage"
)

func newMatchCommand(a *app) *cobra.Command {
	var (
		crossThreshold  float64
		withinThreshold float64
		semantic        bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find linked reports across and within the record stores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			svc, err := a.linkage()
			if err != nil {
				return err
			}

			// A flag left at its default means "use the configured
			// threshold"; an explicit value, including 0, overrides it.
			crossIn := linkage.Input{Semantic: semantic}
			if cmd.Flags().Changed("cross-threshold") {
				crossIn.Threshold = &crossThreshold
			}
			withinIn := linkage.Input{Semantic: semantic}
			if cmd.Flags().Changed("within-threshold") {
				withinIn.Threshold = &withinThreshold
			}

			cross, err := svc.CrossStore(cmd.Context(), crossIn)
			if err != nil {
				return err
			}
			within, err := svc.WithinStore(cmd.Context(), linkage.StoreVictim, withinIn)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"cross_db_matches":  cross.Pairs,
				"within_db_matches": within.Pairs,
				"cross_db_details":  cross.Matches,
				"within_db_details": within.Matches,
			})
		},
	}

	cmd.Flags().Float64Var(&crossThreshold, "cross-threshold", 0, "cross-store score floor (default from config)")
	cmd.Flags().Float64Var(&withinThreshold, "within-threshold", 0, "within-store score floor (default from config)")
	cmd.Flags().BoolVar(&semantic, "semantic", false, "also compare free-text fields with embeddings")
	return cmd
}
