package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"bckt-go/internal/app"
)

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and manage archives",
}

func optionalTarget(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

var archiveListCmd = &cobra.Command{
	Use:   "list [TARGET]",
	Short: "List archives with their location and cost",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListArchives", args)
		if err != nil {
			return err
		}
		defer a.Close()

		views, err := a.ListArchives(cmd.Context(), optionalTarget(args))
		if err != nil {
			return err
		}
		if len(views) == 0 {
			fmt.Println("No archives.")
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "ID\tTARGET\tFILE\tLOCATION\tSIZE\tCAPTURED\tPUSHED\tCOST/MO\tDIGEST")
		orphans := 0
		for _, v := range views {
			if v.Location.IsOrphan() {
				orphans++
			}
			id, pushed, digest := "-", "-", "-"
			if v.Archive != nil {
				id = strconv.FormatInt(v.Archive.ID, 10)
				if v.Archive.RemotePushAt.Valid {
					pushed = formatTime(v.Archive.RemotePushAt.Time)
				}
				if len(v.Archive.Digest) >= 12 {
					digest = v.Archive.Digest[:12]
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				id, orDash(v.TargetName), v.Filename, v.Location, formatKB(v.SizeKB),
				v.CapturedAt.Local().Format("2006-01-02 15:04"), pushed, formatCost(v.MonthlyCost), digest)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if orphans > 0 {
			fmt.Printf("\n%d artifact(s) without a record; bckt db repair adopts them.\n", orphans)
		}
		return nil
	},
}

var archiveLastCmd = &cobra.Command{
	Use:   "last [TARGET]",
	Short: "Print the newest archive that still exists",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "LastArchive", args)
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.LastArchive(cmd.Context(), optionalTarget(args))
		if err != nil {
			return err
		}
		if v == nil {
			return fmt.Errorf("no archive found")
		}
		fmt.Println(v.Filename)
		return nil
	},
}

func pruneCmd(use, short string, aggressive bool) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " [TARGET]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			a, err := newApp(cmd, "Prune", args)
			if err != nil {
				return err
			}
			defer a.Close()

			freed, err := a.Prune(cmd.Context(), optionalTarget(args), aggressive, dryRun)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(freed))
			for n := range freed {
				names = append(names, n)
			}
			sort.Strings(names)

			verb := "Freed"
			if dryRun {
				verb = "Would free"
			}
			for _, n := range names {
				if freed[n] > 0 {
					fmt.Printf("%s %s from %s\n", verb, formatKB(freed[n]), n)
				}
			}
			fmt.Printf("%s %s in total\n", verb, formatKB(freed.Total()))
			return nil
		},
	}
	c.Flags().Bool("dry-run", false, "Report what would be deleted")
	return c
}

var (
	archivePruneCmd           = pruneCmd("prune", "Keep the three newest local copies per target", false)
	archiveAggressivePruneCmd = pruneCmd("aggressive-prune", "Delete local copies already pushed and keep only the newest", true)
)

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Extract a local archive into the restore folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid archive id %q", args[0])
		}

		a, err := newApp(cmd, "Restore", args)
		if err != nil {
			return err
		}
		defer a.Close()

		dest, err := a.Restore(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Restored into %s\n", dest)
		return nil
	},
}

var archiveDecryptCmd = &cobra.Command{
	Use:   "decrypt SRC DST",
	Short: "Decrypt an archive downloaded from the vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if err := app.DecryptArchive(cfg.Encryption, args[0], args[1], pass); err != nil {
			return err
		}
		fmt.Printf("Decrypted %s to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveLastCmd)
	archiveCmd.AddCommand(archivePruneCmd)
	archiveCmd.AddCommand(archiveAggressivePruneCmd)
	archiveCmd.AddCommand(archiveRestoreCmd)
	archiveCmd.AddCommand(archiveDecryptCmd)
}
