package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"applydiff/config"
	"applydiff/engine"
	"applydiff/git"
	"applydiff/logger"
	"applydiff/session"
	"applydiff/source"
)

var previewCmd = &cobra.Command{
	Use:   "preview [patch-file]",
	Short: "Show what a patch would do, without writing anything",
	Long: `Parses a patch from the given file, a stdin pipe, or the clipboard and
simulates it against the project tree. Block outcomes and the diff are
exactly what apply would produce.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEngine(args, false)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply [patch-file]",
	Short: "Apply a patch to the project tree, with backup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEngine(args, true)
	},
}

func runEngine(args []string, apply bool) error {
	root, err := resolveRoot()
	if err != nil {
		return fmt.Errorf("failed to detect project root: %w", err)
	}

	patchFile := ""
	if len(args) == 1 {
		patchFile = args[0]
	}
	patch, err := source.Read(patchFile)
	if err != nil {
		return err
	}

	if dirty, err := git.IsDirty(root); err == nil && dirty {
		fmt.Println("Warning: worktree has uncommitted changes")
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	eng := engine.NewWithConfig(root, logger.New(logger.NewRID()), cfg)

	var report *engine.Report
	if apply {
		report, err = eng.Apply(patch)
	} else {
		report, err = eng.Preview(patch)
	}
	if err != nil {
		return err
	}

	printReport(report, apply)

	if apply {
		if s, err := session.Load(root); err == nil {
			s.RecordReport(root, report)
			if err := s.Save(); err != nil {
				fmt.Printf("Warning: could not save session: %v\n", err)
			}
		}
	}
	return nil
}

func printReport(report *engine.Report, applied bool) {
	verb := "would apply"
	if applied {
		verb = "applied"
	}
	fmt.Printf("%d block(s) %s, %d failed\n", report.OK, verb, report.Fail)

	for _, o := range report.Outcomes {
		if o.Status == engine.StatusApplied {
			fmt.Printf("  #%d %s: %s\n", o.Index+1, o.File, o.Status)
		} else {
			fmt.Printf("  #%d %s: %s (%s)\n", o.Index+1, o.File, o.Status, o.Detail)
		}
	}

	if report.Diff != "" {
		fmt.Println()
		fmt.Print(report.Diff)
	}
	if report.BackupDir != "" {
		fmt.Printf("\nBackup: %s\n", report.BackupDir)
	}
}
