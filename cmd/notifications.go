package cmd

import (
	"fmt"
	"time"

	"github.com/iksnae/sahayak/internal"
	"github.com/spf13/cobra"
)

var notificationsUnread bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show notifications about new and updated schemes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.requireLogin(); err != nil {
			return err
		}
		err = internal.ShowProgress(cmd.Context(), "Fetching notifications", func() error {
			return a.store.FetchNotifications(cmd.Context())
		})
		if err != nil {
			return fmt.Errorf("failed to fetch notifications: %s", describeError(err))
		}

		list := a.store.State().Notifications
		if notificationsUnread {
			unread := list[:0]
			for _, n := range list {
				if !n.IsRead {
					unread = append(unread, n)
				}
			}
			list = unread
		}
		displayNotifications(cmd.OutOrStdout(), list, time.Now())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.Flags().BoolVar(&notificationsUnread, "unread", false, "Only show unread notifications")
}
