package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Show AI matched employees",
}

var smartCmd = &cobra.Command{
	Use:   "smart",
	Short: "Show smart matches, from the cache unless --refresh is given",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		e := setup("matches smart")

		refresh, _ := cmd.Flags().GetBool("refresh")
		if err := e.showSmart(ctx, refresh); err != nil {
			e.logger.Fatal("showing smart matches", zap.Error(err))
		}
	},
}

// showSmart prints the cached smart matches. Matches are only generated when
// refresh is set; a cache miss prints the hint instead.
func (e *env) showSmart(ctx context.Context, refresh bool) error {
	e.dashboard.Init(ctx)
	if refresh {
		if err := e.dashboard.RefreshSmart(ctx); err != nil {
			return err
		}
	}
	return e.printMatches(ctx)
}

var customCmd = &cobra.Command{
	Use:   "custom",
	Short: "Show matches for customized preferences",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		e := setup("matches custom")

		prefs, hash, err := customizedPreferences(cmd, e.config.Matching)
		if err != nil {
			e.logger.Fatal("reading preferences", zap.Error(err))
		}
		e.logger.Debug("customized preferences", zap.String("preferences_hash", hash))

		if err := e.dashboard.SubmitCustomization(ctx, prefs); err != nil {
			e.logger.Fatal("generating customized matches", zap.Error(err))
		}

		if err := e.printMatches(ctx); err != nil {
			e.logger.Fatal("printing matches", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(matchesCmd)
	matchesCmd.AddCommand(smartCmd, customCmd)

	smartCmd.Flags().BoolP("refresh", "r", false, "generate fresh matches even when cached ones exist")
	addPreferenceFlags(customCmd)
}
