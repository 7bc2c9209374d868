package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bckt-go/internal/bckt"
	"bckt-go/internal/fs"
)

// target command
var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage backup targets",
}

// excludesFromFlags merges --excludes with the patterns of --excludes-from
// and checks every pattern parses.
func excludesFromFlags(cmd *cobra.Command) (string, error) {
	excludes, _ := cmd.Flags().GetString("excludes")
	from, _ := cmd.Flags().GetString("excludes-from")

	patterns := bckt.SplitExcludes(excludes)
	if from != "" {
		lines, err := fs.ParseExcludeFile(from)
		if err != nil {
			return "", err
		}
		patterns = append(patterns, lines...)
	}

	joined := fs.JoinExcludes(patterns)
	if _, err := fs.NewExcludeMatcher(bckt.SplitExcludes(joined)); err != nil {
		return "", err
	}
	return joined, nil
}

var targetAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Register a directory as a backup target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		freq, _ := cmd.Flags().GetString("freq")
		budget, _ := cmd.Flags().GetFloat64("budget")
		strategy, _ := cmd.Flags().GetString("strategy")
		excludes, err := excludesFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "AddTarget", args)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.AddTarget(bckt.NewTarget{
			Name:         name,
			Path:         args[0],
			Excludes:     excludes,
			Frequency:    freq,
			BudgetMax:    budget,
			PushStrategy: strategy,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Added target %s (%s), %s, %s, budget $%.2f\n",
			t.Name, t.Path, t.Frequency, t.PushStrategy, t.BudgetMax)
		return nil
	},
}

var targetEditCmd = &cobra.Command{
	Use:   "edit NAME",
	Short: "Change the policy of a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var edit bckt.TargetEdit
		flags := cmd.Flags()

		if flags.Changed("excludes") || flags.Changed("excludes-from") {
			excludes, err := excludesFromFlags(cmd)
			if err != nil {
				return err
			}
			edit.Excludes = &excludes
		}
		if flags.Changed("freq") {
			freq, _ := flags.GetString("freq")
			edit.Frequency = &freq
		}
		if flags.Changed("budget") {
			budget, _ := flags.GetFloat64("budget")
			edit.BudgetMax = &budget
		}
		if flags.Changed("strategy") {
			strategy, _ := flags.GetString("strategy")
			edit.PushStrategy = &strategy
		}
		if edit == (bckt.TargetEdit{}) {
			return fmt.Errorf("nothing to change: pass --freq, --budget, --strategy or --excludes")
		}

		a, err := newApp(cmd, "EditTarget", args)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.EditTarget(args[0], edit)
		if err != nil {
			return err
		}
		fmt.Printf("Updated target %s: %s, %s, budget $%.2f, excludes %q\n",
			t.Name, t.Frequency, t.PushStrategy, t.BudgetMax, t.Excludes)
		return nil
	},
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, "SetTargetActive", args)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.SetTargetActive(args[0], active)
			if err != nil {
				return err
			}
			state := "paused"
			if t.IsActive {
				state = "active"
			}
			fmt.Printf("Target %s is %s\n", t.Name, state)
			return nil
		},
	}
}

var (
	targetPauseCmd   = setActiveCmd("pause", "Stop archiving and pushing a target", false)
	targetUnpauseCmd = setActiveCmd("unpause", "Resume a paused target", true)
)

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the status of every target",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		a, err := newApp(cmd, "TargetStatuses", args)
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.TargetStatuses(cmd.Context(), "", verbose)
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No targets. Add one with: bckt target add PATH")
			return nil
		}

		w := newTable()
		header := "NAME\tACTIVE\tPATH\tFREQ\tSTRATEGY\tBUDGET\tLAST\tBEHIND\tPUSHED\tLOCAL\tREMOTE\tCOST/MO\tREASON"
		if verbose {
			header += "\tNEW\tWOULD PUSH"
		}
		fmt.Fprintln(w, header)

		for _, st := range statuses {
			t := st.Target
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t$%.2f\t%s\t%d\t%s\t%d\t%d\t%s\t%s",
				t.Name, yesNo(t.IsActive), t.Path, t.Frequency, t.PushStrategy, t.BudgetMax,
				formatMinutes(st.SinceLast), st.CyclesBehind, formatTime(st.LastPushedAt),
				st.LocalCount, st.RemoteCount, formatCost(st.MonthlyCost), orDash(string(t.LastReason)))
			if verbose {
				newFiles, wouldPush := "-", "-"
				if st.Changes != nil {
					newFiles = yesNo(st.Changes.HasNewFiles)
				}
				if st.Push != nil {
					wouldPush = yesNo(st.WouldPush)
				}
				fmt.Fprintf(w, "\t%s\t%s", newFiles, wouldPush)
			}
			fmt.Fprintln(w)
		}
		return w.Flush()
	},
}

var targetInfoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show the details and decisions of one target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "TargetStatuses", args)
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.TargetStatuses(cmd.Context(), args[0], true)
		if err != nil {
			return err
		}
		st := statuses[0]
		t := st.Target

		w := newTable()
		row := func(k string, v any) { fmt.Fprintf(w, "%s\t%v\n", k, v) }
		row("Name", t.Name)
		row("Path", t.Path)
		row("Active", yesNo(t.IsActive))
		row("Frequency", t.Frequency)
		row("Push strategy", t.PushStrategy)
		row("Budget", fmt.Sprintf("$%.2f per %d days", t.BudgetMax, bckt.RetentionDays))
		row("Excludes", orDash(strings.ReplaceAll(t.Excludes, ":", " ")))
		row("Last reason", orDash(string(t.LastReason)))
		if t.PreMarkerAt.Valid {
			row("Pre marker", t.PreMarkerAt.Time.Local().Format("2006-01-02 15:04:05"))
		}
		if t.PostMarkerAt.Valid {
			row("Post marker", t.PostMarkerAt.Time.Local().Format("2006-01-02 15:04:05"))
		}
		row("Archives", st.ArchiveCount)
		if st.LastArchive != nil {
			row("Last archive", fmt.Sprintf("%s (%s, %s ago)", st.LastArchive.Filename,
				formatKB(st.LastArchive.SizeKb), formatMinutes(st.SinceLast)))
		}
		row("Cycles behind", st.CyclesBehind)
		row("Last pushed", formatTime(st.LastPushedAt))
		row("Local copies", st.LocalCount)
		row("Remote copies", st.RemoteCount)
		row("Monthly cost", formatCost(st.MonthlyCost))
		if st.UncompressedKB > 0 {
			row("Source size", formatKB(st.UncompressedKB))
		}
		if st.Changes != nil {
			row("New files", st.Changes.Message)
		}
		if st.Push != nil {
			row("Push due", yesNo(st.Push.Decision.Due))
			row("Would push", yesNo(st.WouldPush))
			row("Push decision", st.Push.Decision.Message)
		}
		return w.Flush()
	},
}

func init() {
	targetCmd.AddCommand(targetAddCmd)
	targetCmd.AddCommand(targetEditCmd)
	targetCmd.AddCommand(targetPauseCmd)
	targetCmd.AddCommand(targetUnpauseCmd)
	targetCmd.AddCommand(targetListCmd)
	targetCmd.AddCommand(targetInfoCmd)

	targetAddCmd.Flags().String("name", "", "Target name (default: derived from the path)")
	for _, c := range []*cobra.Command{targetAddCmd, targetEditCmd} {
		c.Flags().String("freq", string(bckt.DefaultFrequency), "Archive frequency: never, hourly, daily, weekly, monthly")
		c.Flags().Float64("budget", bckt.DefaultBudgetMax, "Remote budget in dollars per retention period")
		c.Flags().String("strategy", string(bckt.DefaultPushStrategy), "Push strategy: budget_priority, schedule_priority, content_priority")
		c.Flags().String("excludes", "", "Colon-separated exclude patterns")
		c.Flags().String("excludes-from", "", "File with one exclude pattern per line")
	}
}
