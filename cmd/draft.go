package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/ai"
	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/matching"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a referral request to a matched employee with AI",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		e := setup("draft")

		employeeID, _ := cmd.Flags().GetInt("employee")
		if employeeID <= 0 {
			e.logger.Fatal("--employee is required")
		}

		prefs := matching.Preferences{}
		if preferencesGiven(cmd) {
			var err error
			if prefs, err = preferencesFromFlags(cmd, e.config.Matching); err != nil {
				e.logger.Fatal("reading preferences", zap.Error(err))
			}
			if err := e.dashboard.SubmitCustomization(ctx, prefs); err != nil {
				e.logger.Fatal("generating customized matches", zap.Error(err))
			}
		} else {
			e.dashboard.Init(ctx)
			if !e.dashboard.View().Loaded {
				if err := e.dashboard.RefreshSmart(ctx); err != nil {
					e.logger.Fatal("generating smart matches", zap.Error(err))
				}
			}
		}

		list, _, err := e.visibleMatches(ctx)
		if err != nil {
			e.logger.Fatal("filtering matches", zap.Error(err))
		}

		match := list.FindByEmployeeID(employeeID)
		if match == nil {
			e.logger.Fatal("employee is not in the current matches", zap.Int("employee_id", employeeID))
		}

		if err := e.draft(ctx, match, prefs); err != nil {
			e.logger.Fatal("drafting referral request", zap.Error(err))
		}
	},
}

func (e *env) draft(ctx context.Context, match *api.MatchedEmployee, prefs matching.Preferences) error {
	drafter, err := newDrafter(ctx, e.config.AI, e.logger)
	if err != nil {
		return err
	}

	sess, err := e.session.Session(ctx)
	if err != nil {
		return err
	}

	draft, err := drafter.Draft(ctx, &ai.DraftRequest{
		CandidateName: sess.User.Name,
		TargetRole:    prefs.TargetRole,
		Skills:        prefs.SpecificSkills,
		Tone:          e.config.AI.Tone,
		Match:         match,
	})
	if err != nil {
		return err
	}

	e.logger.Info("referral request drafted",
		zap.Int("employee_id", match.EmployeeID),
		zap.String("employee", match.Name),
	)

	fmt.Printf("Subject: %s\n\n%s\n", draft.Subject, draft.Message)
	return nil
}

func init() {
	rootCmd.AddCommand(draftCmd)

	draftCmd.Flags().IntP("employee", "e", 0, "employee id from the current matches")
	addPreferenceFlags(draftCmd)
}
