package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Millstreamu/StockTrak/app"
	"github.com/Millstreamu/StockTrak/outfmt"
	"github.com/Millstreamu/StockTrak/rules"
)

var actionablesStatus string
var snoozeUntil string

func runActionablesCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	w, err := newWriter()
	if err != nil {
		return err
	}

	if _, err := a.EvaluateActionables(cmd.Context()); err != nil {
		return err
	}
	actionables, err := a.Store.ListActionables(cmd.Context(), rules.Status(actionablesStatus))
	if err != nil {
		return err
	}
	table := rules.RenderTable(actionables)
	return w.PrintRenderTable(outfmt.Actionables, "Actionables", table)
}

// resolveActionable accepts a full uuid or the unambiguous id prefix shown in
// the actionables table.
func resolveActionable(cmd *cobra.Command, a *app.App, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	actionables, err := a.Store.ListActionables(cmd.Context(), "")
	if err != nil {
		return uuid.Nil, err
	}
	var match uuid.UUID
	found := 0
	for _, act := range actionables {
		if strings.HasPrefix(act.ID.String(), arg) {
			match = act.ID
			found++
		}
	}
	switch found {
	case 0:
		return uuid.Nil, fmt.Errorf("no actionable matches id %q", arg)
	case 1:
		return match, nil
	default:
		return uuid.Nil, fmt.Errorf("id %q is ambiguous (%d matches)", arg, found)
	}
}

func runSnoozeCmd(cmd *cobra.Command, args []string) error {
	until, err := time.Parse("2006-01-02", snoozeUntil)
	if err != nil {
		return fmt.Errorf("invalid --until date %q (want 2006-01-02)", snoozeUntil)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveActionable(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.Store.SetActionableStatus(cmd.Context(), id, rules.StatusSnoozed, &until); err != nil {
		return err
	}
	fmt.Printf("Snoozed %s until %s\n", id, until.Format("2006-01-02"))
	return nil
}

func runDismissCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveActionable(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.Store.SetActionableStatus(cmd.Context(), id, rules.StatusDismissed, nil); err != nil {
		return err
	}
	fmt.Printf("Dismissed %s\n", id)
	return nil
}

var actionablesCmd = &cobra.Command{
	Use:   "actionables",
	Short: "Evaluate rules and list actionable reminders",
	Long: `Runs the rule pack (CGT discount window, concentration, overweight
and loss thresholds) over the current derived state and lists the results.
Rules are read-only over lots and positions; they never change ledger state.`,
	Args: cobra.NoArgs,
	RunE: runActionablesCmd,
}

var snoozeCmd = &cobra.Command{
	Use:   "snooze ACTIONABLE_ID",
	Short: "Snooze an actionable until a date",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnoozeCmd,
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss ACTIONABLE_ID",
	Short: "Dismiss an actionable permanently",
	Args:  cobra.ExactArgs(1),
	RunE:  runDismissCmd,
}

func init() {
	RootCmd.AddCommand(actionablesCmd)
	actionablesCmd.AddCommand(snoozeCmd)
	actionablesCmd.AddCommand(dismissCmd)

	actionablesCmd.Flags().StringVar(&actionablesStatus, "status", "",
		"Only show actionables with this status: open, snoozed, dismissed or done")
	snoozeCmd.Flags().StringVar(&snoozeUntil, "until", "", "Snooze end date, 2006-01-02 (required)")
	snoozeCmd.MarkFlagRequired("until")
}
