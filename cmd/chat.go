package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"applydiff/config"
	"applydiff/engine"
	"applydiff/llm"
	"applydiff/logger"
	"applydiff/session"
)

var chatApply bool

var chatCmd = &cobra.Command{
	Use:   "chat <request...>",
	Short: "Send a change request to the configured model and preview its patch",
	Long: `Sends the session briefing plus your request to an OpenAI-compatible
endpoint, expects a patch document back, and previews it. With --apply the
returned patch is applied directly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot()
		if err != nil {
			return fmt.Errorf("failed to detect project root: %w", err)
		}

		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		client, err := llm.NewClient(cfg)
		if err != nil {
			return err
		}

		s, err := session.Load(root)
		if err != nil {
			return err
		}
		briefing := s.Briefing()
		if err := s.Save(); err != nil {
			fmt.Printf("Warning: could not save session: %v\n", err)
		}

		request := strings.Join(args, " ")
		fmt.Printf("Asking %s…\n", cfg.Model)
		reply, err := client.RequestPatch(context.Background(), briefing, request)
		if err != nil {
			return err
		}

		eng := engine.NewWithConfig(root, logger.New(logger.NewRID()), cfg)

		var report *engine.Report
		if chatApply {
			report, err = eng.Apply([]byte(reply))
		} else {
			report, err = eng.Preview([]byte(reply))
		}
		if err != nil {
			fmt.Println("The model's reply was not a valid patch:")
			fmt.Println(reply)
			return err
		}

		printReport(report, chatApply)
		if chatApply {
			if se, err := session.Load(root); err == nil {
				se.RecordReport(root, report)
				se.Save()
			}
		} else {
			fmt.Println("\nRun with --apply to write these changes")
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatApply, "apply", false, "Apply the returned patch instead of previewing it")
}
