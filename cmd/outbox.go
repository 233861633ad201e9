package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/discussions/internal/presentation"
)

var (
	outboxUserID int64
	outboxLimit  int
	reportCourse string
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect the notification outbox",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued notifications of a recipient, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ns, err := a.Notifier.ListOutbox(cmd.Context(), outboxUserID, outboxLimit)
		if err != nil {
			return err
		}
		return formatter(cmd).Format(presentation.FromDomainNotifications(ns))
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect profanity reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profanity reports, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		reports, err := a.DB.ReportStore().ListReports(cmd.Context(), reportCourse)
		if err != nil {
			return err
		}
		return formatter(cmd).Format(presentation.FromDomainReports(reports))
	},
}

func init() {
	notificationsListCmd.Flags().Int64Var(&outboxUserID, "user", 0, "Recipient user id")
	notificationsListCmd.Flags().IntVar(&outboxLimit, "limit", 0, "Maximum entries (default 50)")
	_ = notificationsListCmd.MarkFlagRequired("user")
	notificationsCmd.AddCommand(notificationsListCmd)

	reportsListCmd.Flags().StringVar(&reportCourse, "course", "", "Only reports of this course")
	reportsCmd.AddCommand(reportsListCmd)

	rootCmd.AddCommand(notificationsCmd, reportsCmd)
}
