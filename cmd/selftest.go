package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"applydiff/selftest"
)

var selftestFixtures string

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the fixture gauntlet against the built-in engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := selftest.Run(selftestFixtures)
		if err != nil {
			return err
		}
		fmt.Print(report.Render())
		if !report.OK() {
			return fmt.Errorf("self-test failed")
		}
		return nil
	},
}

func init() {
	selftestCmd.Flags().StringVar(&selftestFixtures, "fixtures", "selftest/testdata/gauntlet", "Fixture directory to run")
}
