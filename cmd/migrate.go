package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		return formatter(cmd).Format(map[string]string{
			"database": a.DB.Path(),
			"status":   "migrated",
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
