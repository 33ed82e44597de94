package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/sagespace/internal/validation"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account lifecycle commands",
	}

	cmd.AddCommand(newAccountRegisterCmd())
	cmd.AddCommand(newAccountVerifyCmd())
	cmd.AddCommand(newAccountResendCmd())
	cmd.AddCommand(newAccountLoginCmd())
	cmd.AddCommand(newAccountLogoutCmd())
	cmd.AddCommand(newAccountMeCmd())
	cmd.AddCommand(newAccountPasswordCmd())
	cmd.AddCommand(newAccountAcceptingCmd())
	cmd.AddCommand(newAccountAvailableCmd())

	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	var user, email, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account and send a verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"username": user,
				"email":    email,
				"password": pass,
			}
			var result CodeSent

			if err := client.Post("/api/v1/accounts/register", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username, 8-15 letters, digits or underscores (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountVerifyCmd() *cobra.Command {
	var email, code string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an email address with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"email": email,
				"code":  code,
			}
			var result Account

			if err := client.Post("/api/v1/accounts/verify", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&code, "code", "", "6-digit verification code (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func newAccountResendCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Send a new verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CodeSent

			if err := client.Post("/api/v1/accounts/resend", map[string]string{"email": email}, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	var identifier, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email or username",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"identifier": identifier,
				"password":   pass,
			}
			var result AuthResult

			if err := client.Post("/api/v1/accounts/login", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&identifier, "user", "", "Username or email (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}
			output(cmd).PrintMessage("Signed out")
			return nil
		},
	}
}

func newAccountMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Account

			if err := client.Get("/api/v1/me", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newAccountPasswordCmd() *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the password of the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"current_password": current,
				"new_password":     next,
			}

			if err := client.Post("/api/v1/me/password", req, nil); err != nil {
				return err
			}

			output(cmd).PrintMessage("Password changed")
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Current password (required)")
	cmd.Flags().StringVar(&next, "new", "", "New password (required)")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}

func newAccountAcceptingCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "accepting on|off",
		Short:     "Turn anonymous messages on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var accepting bool
			switch strings.ToLower(args[0]) {
			case "on", "true", "yes":
				accepting = true
			case "off", "false", "no":
				accepting = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}

			var result AcceptingResult
			if err := client.Put("/api/v1/me/accepting-messages", map[string]bool{"accepting": accepting}, &result); err != nil {
				return err
			}

			out := output(cmd)
			if cfg.Output == "json" {
				out.Print(result)
			} else if result.Accepting {
				out.PrintMessage("Accepting messages")
			} else {
				out.PrintMessage("Not accepting messages")
			}
			return nil
		},
	}
}

func newAccountAvailableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "available <username>",
		Short: "Check whether a username is free",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validation.Username(args[0]) {
				return fmt.Errorf("invalid username %q: use 8-15 letters, digits or underscores", args[0])
			}

			var result Availability

			path := "/api/v1/accounts/username-available?username=" + url.QueryEscape(args[0])
			if err := client.Get(path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
