package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/refmatch/refmatch/internal/matching"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show what is cached for the current user",
	Long: "Reads the cached smart matches and, when customization flags are given, " +
		"the customized matches cached under the hash of those preferences.",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		e := setup("cache")

		var (
			hash          string
			smart, custom matching.Lookup
		)

		withPrefs := preferencesGiven(cmd)
		if withPrefs {
			var err error
			if _, hash, err = customizedPreferences(cmd, e.config.Matching); err != nil {
				e.logger.Fatal("reading preferences", zap.Error(err))
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			smart = e.service.CachedSmartMatches(gctx)
			return nil
		})
		if withPrefs {
			g.Go(func() error {
				custom = e.service.CachedCustomizedMatches(gctx, hash)
				return nil
			})
		}
		_ = g.Wait()

		logLookup(e.logger, matching.ModeSmart, "", smart)
		if withPrefs {
			logLookup(e.logger, matching.ModeCustomized, hash, custom)
		}
	},
}

func logLookup(logger *zap.Logger, mode, hash string, lookup matching.Lookup) {
	fields := []zap.Field{
		zap.String("mode", mode),
		zap.String("status", string(lookup.Status)),
	}
	if hash != "" {
		fields = append(fields, zap.String("preferences_hash", hash))
	}
	if lookup.Hit() {
		fields = append(fields, zap.Int("matches", len(lookup.Result.Matches)))
	}
	if lookup.Err != nil {
		fields = append(fields, zap.Error(lookup.Err))
	}

	logger.Info("cache status", fields...)
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	addPreferenceFlags(cacheCmd)
}
