package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/dashboard"
	"github.com/refmatch/refmatch/internal/matching"
)

const (
	PromptShow                = "Show matches"
	PromptRefresh             = "Refresh smart matches"
	PromptCustomize           = "Customize matches"
	PromptSmartMode           = "Switch to smart matches"
	PromptCustomizedMode      = "Switch to customized matches"
	PromptReset               = "Reset to smart matches"
	PromptReportByCompany     = "Report by company"
	PromptMatchesToFile       = "Dump matches to file"
	PromptAppendToExcludeFile = "Append all matches to exclude file"
	PromptDraft               = "Draft a referral request"
	PromptExit                = "Exit"
	PromptBack                = "back"
	PromptKeep                = "keep empty"
)

var errExit = errors.New("exit requested")

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Browse smart and customized matches interactively",
	Run: func(_ *cobra.Command, _ []string) {
		runDashboard()
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard() {
	ctx := context.Background()
	e := setup("dashboard")

	e.dashboard.Init(ctx)
	if err := e.printMatches(ctx); err != nil {
		e.logger.Fatal("printing matches", zap.Error(err))
	}

	for {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Matches (%s)", e.dashboard.Mode()),
			Items: e.actions(),
			Size:  12,
		}

		_, action, err := prompt.Run()
		if err != nil {
			e.logger.Fatal("exiting", zap.Error(err))
		}

		if err := e.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			if errors.Is(err, dashboard.ErrSuperseded) {
				continue
			}
			// Matching failures keep the previous list on screen.
			e.logger.Error("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

func (e *env) actions() []string {
	items := []string{PromptShow, PromptRefresh, PromptCustomize}

	if e.dashboard.Mode() == dashboard.ModeSmart {
		items = append(items, PromptCustomizedMode)
	} else {
		items = append(items, PromptSmartMode, PromptReset)
	}

	items = append(items, PromptReportByCompany, PromptMatchesToFile)

	if e.config.Matching.ExcludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}
	if e.config.AI.Enabled {
		items = append(items, PromptDraft)
	}

	return append(items, PromptExit)
}

func (e *env) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptShow:
		return e.printMatches(ctx)
	case PromptRefresh:
		if err := e.dashboard.SetMode(dashboard.ModeSmart); err != nil {
			return err
		}
		if err := e.dashboard.RefreshSmart(ctx); err != nil {
			return err
		}
		return e.printMatches(ctx)
	case PromptCustomize:
		return e.customize(ctx)
	case PromptSmartMode:
		if err := e.dashboard.SetMode(dashboard.ModeSmart); err != nil {
			return err
		}
		return e.printMatches(ctx)
	case PromptCustomizedMode:
		if err := e.dashboard.SetMode(dashboard.ModeCustomized); err != nil {
			return err
		}
		return e.printMatches(ctx)
	case PromptReset:
		e.dashboard.ResetToSmart()
		return e.printMatches(ctx)
	case PromptReportByCompany:
		return e.reportByCompany(ctx)
	case PromptMatchesToFile:
		return e.dumpMatches(ctx)
	case PromptAppendToExcludeFile:
		return e.appendToExcludeFile(ctx)
	case PromptDraft:
		return e.chooseAndDraft(ctx)
	case PromptExit:
		e.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (e *env) customize(ctx context.Context) error {
	e.dashboard.OpenCustomization()

	prefs, err := askPreferences(e.dashboard.View().Preferences, e.config.Matching)
	if err != nil {
		e.dashboard.CloseCustomization()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return nil
		}
		return err
	}

	if err := e.dashboard.SubmitCustomization(ctx, prefs); err != nil {
		return err
	}
	return e.printMatches(ctx)
}

func askPreferences(previous *matching.Preferences, defaults *MatchingConfig) (matching.Preferences, error) {
	prefs := matching.Preferences{TargetCompany: defaults.TargetCompany}
	if previous != nil {
		prefs = *previous
	}

	texts := []struct {
		label string
		dst   *string
	}{
		{"Target company", &prefs.TargetCompany},
		{"Target role", &prefs.TargetRole},
		{"Specific skills", &prefs.SpecificSkills},
		{"Additional requirements", &prefs.AdditionalRequirements},
	}
	for _, t := range texts {
		p := promptui.Prompt{Label: t.label, Default: *t.dst, AllowEdit: true}
		v, err := p.Run()
		if err != nil {
			return prefs, err
		}
		*t.dst = strings.TrimSpace(v)
	}

	selects := []struct {
		label string
		items []string
		dst   *string
	}{
		{"Priority focus", []string{matching.FocusBalanced, matching.FocusSkills, matching.FocusPerformance, matching.FocusMentorship}, &prefs.PriorityFocus},
		{"Experience level", []string{"any", "entry", "mid", "senior", "lead"}, &prefs.ExperienceLevel},
		{"Response time importance", []string{"medium", "low", "high"}, &prefs.ResponseTimeImportance},
	}
	for _, s := range selects {
		p := promptui.Select{Label: s.label, Items: append([]string{PromptKeep}, s.items...)}
		_, v, err := p.Run()
		if err != nil {
			return prefs, err
		}
		if v != PromptKeep {
			*s.dst = v
		}
	}

	return prefs, prefs.Validate()
}

func (e *env) appendToExcludeFile(ctx context.Context) error {
	excludeFile := e.config.Matching.ExcludeFile

	list, _, err := e.visibleMatches(ctx)
	if err != nil {
		return err
	}

	excluded, err := matching.ExcludedEmployeesFromFile(excludeFile)
	if err != nil {
		return err
	}

	excluded.Append(list.ToExcluded())

	if err = excluded.ToFile(excludeFile); err != nil {
		return err
	}

	e.logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("count", list.Len()))
	return nil
}

func (e *env) chooseAndDraft(ctx context.Context) error {
	list, view, err := e.visibleMatches(ctx)
	if err != nil {
		return err
	}

	items := make([]string, 0, list.Len()+1)
	for _, m := range list.Items {
		items = append(items, fmt.Sprintf("%d %s / %s / %s / %.0f", m.EmployeeID, m.Name, m.Position, m.Company, m.OverallScore))
	}

	employeePrompt := promptui.Select{
		Label: "Choose an employee and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := employeePrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	id, err := strconv.Atoi(strings.Split(selected, " ")[0])
	if err != nil {
		return fmt.Errorf("parse employee id from %q: %w", selected, err)
	}

	match := list.FindByEmployeeID(id)
	if match == nil {
		return fmt.Errorf("there is no such employee id %d", id)
	}

	prefs := matching.Preferences{}
	if view.Preferences != nil {
		prefs = *view.Preferences
	}

	return e.draft(ctx, match, prefs)
}
