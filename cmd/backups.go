package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"applydiff/backup"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List and restore apply backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup directories, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot()
		if err != nil {
			return err
		}
		dirs, err := backup.List(root)
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			fmt.Println("No backups")
			return nil
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
		return nil
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore [name]",
	Short: "Restore a backup into the project tree (default: the latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := resolveRoot()
		if err != nil {
			return err
		}

		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			latest, ok := backup.Latest(root)
			if !ok {
				return fmt.Errorf("no backups to restore")
			}
			name = latest
		}

		if err := backup.Restore(root, name); err != nil {
			return err
		}
		fmt.Printf("Restored %s\n", name)
		return nil
	},
}

func init() {
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
}
