package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"applydiff/prompts"
	"applydiff/session"
	"applydiff/source"
)

var (
	promptCopy bool
	promptBare bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the AI briefing for the next patch exchange",
	Long: `Builds the briefing to paste in front of your request to an AI: session
health, heavily patched files, and the armored patch format instructions.
With --bare only the format instructions are printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := prompts.PatchFormat()

		if !promptBare {
			root, err := resolveRoot()
			if err != nil {
				return fmt.Errorf("failed to detect project root: %w", err)
			}
			s, err := session.Load(root)
			if err != nil {
				return err
			}
			text = s.Briefing()
			if err := s.Save(); err != nil {
				fmt.Printf("Warning: could not save session: %v\n", err)
			}
		}

		if promptCopy {
			if err := source.WriteClipboard(text); err != nil {
				return err
			}
			fmt.Println("Briefing copied to clipboard")
			return nil
		}
		fmt.Print(text)
		return nil
	},
}

func init() {
	promptCmd.Flags().BoolVar(&promptCopy, "copy", false, "Copy the briefing to the clipboard instead of printing it")
	promptCmd.Flags().BoolVar(&promptBare, "bare", false, "Print only the patch format instructions, no session health")
}
