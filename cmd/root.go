package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"applydiff/config"
	"applydiff/tui"
	"applydiff/workspace"
)

var rootFlag string

var rootCmd = &cobra.Command{
	Use:   "applydiff",
	Short: "applydiff applies AI-generated patches to a project tree",
	Long: `applydiff takes search-and-replace patch blocks an AI proposed,
finds each block's target with a layered fuzzy matcher, and applies it
without corrupting line endings or escaping the project root. Every apply
is backed up first.`,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := resolveRoot()
		if err != nil {
			fmt.Printf("Error detecting project root: %v\n", err)
			os.Exit(1)
		}

		cfg, err := config.Load(root)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		if err := tui.Start(root, cfg); err != nil {
			fmt.Printf("Error starting TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// resolveRoot returns the project root: the --root flag if given, otherwise
// the detected workspace.
func resolveRoot() (string, error) {
	if rootFlag != "" {
		info, err := os.Stat(rootFlag)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", rootFlag)
		}
		return rootFlag, nil
	}
	return workspace.Detect()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlag, "root", "r", "", "Project root (default: detected workspace)")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(configCmd)
}
