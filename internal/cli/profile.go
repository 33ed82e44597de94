package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile commands",
	}

	cmd.AddCommand(newProfileUpdateCmd())

	return cmd
}

func newProfileUpdateCmd() *cobra.Command {
	var name, avatar string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update display name and/or avatar URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{}
			if cmd.Flags().Changed("name") {
				req["display_name"] = name
			}
			if cmd.Flags().Changed("avatar") {
				req["avatar_url"] = avatar
			}
			if len(req) == 0 {
				return errors.New("at least one of --name or --avatar is required")
			}

			var result Account
			if err := client.Patch("/api/v1/me/profile", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar URL")

	return cmd
}
