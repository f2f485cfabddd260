package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dashboard"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Inspect and navigate the profile wizard",
}

var wizardStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each step's completion and the current step",
	RunE:  runWizardStatus,
}

var wizardGotoCmd = &cobra.Command{
	Use:   "goto <index>",
	Short: "Move to a step, if it is completed or not past the current one",
	Args:  cobra.ExactArgs(1),
	RunE:  runWizardGoto,
}

func init() {
	wizardCmd.AddCommand(wizardStatusCmd)
	wizardCmd.AddCommand(wizardGotoCmd)
}

func runWizardStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := newClient().Onboarding(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "role: %s  status: %s\n", resp.Role, resp.Status)
	for i, st := range resp.Steps {
		mark := " "
		if st.Complete {
			mark = "x"
		}
		cur := " "
		if i == resp.Cursor {
			cur = ">"
		}
		fmt.Fprintf(out, "%s [%s] %d %s\n", cur, mark, i, st.Title)
	}
	if resp.Finished {
		fmt.Fprintln(out, "all steps complete")
	}
	return nil
}

func runWizardGoto(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("step index %q: %w", args[0], err)
	}
	viewer, err := viewerFromToken(token)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	sess := dashboard.New(newClient(), viewer, logger())
	if err := sess.Connect(ctx); err != nil {
		return err
	}
	defer sess.Disconnect()

	if !sess.GoToStep(index) {
		return fmt.Errorf("step %d is not reachable yet", index)
	}
	if w := sess.Summary().Wizard; w != nil {
		printState(cmd.OutOrStdout(), *w)
	}
	return nil
}

func printState(out io.Writer, st onboarding.State) {
	for i, step := range st.Flow.Steps {
		mark := " "
		if st.Vector[i] {
			mark = "x"
		}
		cur := " "
		if onboarding.Cursor(i) == st.Cursor {
			cur = ">"
		}
		fmt.Fprintf(out, "%s [%s] %d %s\n", cur, mark, i, step.Title)
	}
}
