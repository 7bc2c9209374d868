package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"bckt-go/internal/bckt"
	"bckt-go/internal/model"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func formatKB(kb int64) string {
	if kb <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(kb) * 1024)
}

func formatMinutes(m float64) string {
	if m < 0 {
		return "never"
	}
	return time.Duration(m * float64(time.Minute)).Round(time.Minute).String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatCost(c float64) string {
	if c == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.4f", c)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printRunSummary(s *bckt.RunSummary) {
	w := newTable()
	fmt.Fprintln(w, "TARGET\tOUTCOME\tREASON\tARCHIVE\tSIZE\tPUSH\tERROR")
	for _, r := range s.Results {
		push := r.PushMessage
		if r.Pushed {
			push = "pushed"
		}
		errText := r.Error
		if r.PushError != "" {
			errText = r.PushError
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Target, r.Outcome, orDash(string(r.Reason)), orDash(r.Archive), formatKB(r.SizeKB), push, errText)
	}
	w.Flush()

	fmt.Println()
	for _, o := range model.Outcomes {
		if n := s.Counts[o]; n > 0 {
			fmt.Printf("%-20s %d\n", o, n)
		}
	}
	fmt.Printf("%-20s %d\n", "pushed", s.Pushed)
	fmt.Printf("elapsed %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
