package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Anonymous message commands",
	}

	cmd.AddCommand(newMessagesListCmd())
	cmd.AddCommand(newMessagesSendCmd())

	return cmd
}

func newMessagesListCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages received by the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MessagePage

			path := fmt.Sprintf("/api/v1/me/messages?page=%d&limit=%d", page, limit)
			if err := client.Get(path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Messages per page (max 100)")

	return cmd
}

func newMessagesSendCmd() *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "send <username>",
		Short: "Send an anonymous message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/users/" + url.PathEscape(args[0]) + "/messages"
			if err := client.Post(path, map[string]string{"content": content}, nil); err != nil {
				return err
			}

			output(cmd).PrintMessage("Message sent to " + args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&content, "message", "m", "", "Message text (required)")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
