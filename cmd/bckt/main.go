package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bckt-go/internal/app"
	"bckt-go/internal/bckt"
	"bckt-go/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
	stop()
}

// loadConfig reads the config file with the rc file and BCKT_* overrides applied.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], defaults["rc_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Run", "AddTarget").
func newApp(cmd *cobra.Command, operation string, args []string) (*app.App, error) {
	return newAppWithOptions(cmd, operation, args, app.Options{})
}

func newAppWithOptions(cmd *cobra.Command, operation string, args []string, opts app.Options) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	opts.NoCache, _ = cmd.Flags().GetBool("no-cache")

	a, err := app.NewApp(cmd.Context(), cfg, operation, strings.Join(args, " "), opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "bckt",
	Short:         "Snapshot backups with budgeted cloud pushes",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID:        %s\n", hostID)
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Working Folder: %s\n", cfg.WorkingFolder)
		fmt.Println("Next: bckt db init")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Vault.S3SecretAccessKey != "" {
			cfg.Vault.S3SecretAccessKey = "********"
		}

		fmt.Printf("# Configuration from %s with environment overrides\n\n", path)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the archive encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.Encryption.PrivateKeyPath); err == nil && !force {
			return fmt.Errorf("private key already exists at %s (use --force to replace it)", cfg.Encryption.PrivateKeyPath)
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}
		if pass == "" {
			return fmt.Errorf("passphrase must not be empty")
		}

		recipient, err := app.SetupKeys(cfg.Encryption, pass)
		if err != nil {
			return err
		}
		fmt.Printf("Recipient:   %s\n", recipient)
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Check that the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ValidateVault", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Vault OK")
		return nil
	},
}

// readPassphrase prompts on stderr and reads without echo from a terminal,
// or a single line when stdin is piped.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// run command
var runCmd = &cobra.Command{
	Use:   "run [TARGET]",
	Short: "Archive and push due targets",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions(cmd)

		a, err := newApp(cmd, "Run", args)
		if err != nil {
			return err
		}
		defer a.Close()

		target := ""
		if len(args) > 0 {
			target = args[0]
		}

		summary, err := a.Run(cmd.Context(), target, opts)
		if summary != nil {
			printRunSummary(summary)
		}
		if err != nil {
			return err
		}
		if summary.Failures > 0 {
			return fmt.Errorf("%d target(s) failed", summary.Failures)
		}
		return nil
	},
}

func runOptions(cmd *cobra.Command) bckt.RunOptions {
	ignoreSchedule, _ := cmd.Flags().GetBool("ignore-schedule")
	forcePush, _ := cmd.Flags().GetBool("force-push")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return bckt.RunOptions{IgnoreSchedule: ignoreSchedule, ForcePush: forcePush, DryRun: dryRun}
}

// schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run all targets on the configured cron spec until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, _ := cmd.Flags().GetString("spec")

		a, err := newApp(cmd, "Schedule", args)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Schedule(cmd.Context(), spec, runOptions(cmd))
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				d := r.FinishedAt.Time.Sub(r.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-15s  %s  %-8s  %-10s  %s\n",
				shortID(r.ID),
				r.Command,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Status,
				duration,
				r.Parameters,
			)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the record store",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and migrate it to the latest schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAppWithOptions(cmd, "InitDatabase", args, app.Options{SkipMigrationCheck: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.InitDatabase(); err != nil {
			return err
		}
		fmt.Println("Database initialized")
		return nil
	},
}

var dbRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Reconcile archive records with local and remote artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cmd, "Repair", args)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Repair(cmd.Context(), dryRun)
		if err != nil {
			return err
		}

		prefix := ""
		if dryRun {
			prefix = "would have "
		}
		fmt.Printf("Checked %d record(s)\n", report.Checked)
		fmt.Printf("  %scorrected remote flag:    %d\n", prefix, report.RemoteFixed)
		fmt.Printf("  %srecovered pre-marker:     %d\n", prefix, report.PreMarkerFixed)
		fmt.Printf("  %snormalized filename:      %d\n", prefix, report.FilenameFixed)
		fmt.Printf("  %screated from orphans:     %d\n", prefix, report.Created)
		for _, gap := range report.Gaps {
			fmt.Printf("  skipped %s\n", gap.Error())
		}
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the database to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", args[0], err)
		}

		a, err := newApp(cmd, "BackupDatabase", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(dest); err != nil {
			return err
		}
		fmt.Printf("Database copied to %s\n", dest)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging and extra columns")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Ignore cached listings and scans")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.Flags().Bool("force", false, "Replace an existing key pair")
	configCmd.AddCommand(configVaultCmd)

	// run flags, shared by schedule
	for _, c := range []*cobra.Command{runCmd, scheduleCmd} {
		c.Flags().Bool("ignore-schedule", false, "Archive targets even when not due")
		c.Flags().Bool("force-push", false, "Push the latest archive even when the strategy says not due")
		c.Flags().Bool("dry-run", false, "Log decisions without archiving, deleting or pushing")
	}
	scheduleCmd.Flags().String("spec", "", "Cron spec overriding [schedule] spec")

	// db subcommands
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbRepairCmd)
	dbCmd.AddCommand(dbBackupCmd)
	dbRepairCmd.Flags().Bool("dry-run", false, "Report corrections without writing them")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(dbCmd)
}
