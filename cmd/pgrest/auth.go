package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/edgeflare/pgrest/pkg/auth"
	"github.com/spf13/cobra"
)

var errNoAccessToken = errors.New("an access token is required (--access-token or PGREST_ACCESSTOKEN)")

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, manage passwords and administer users",
	}

	cmd.AddCommand(
		newSignUpCmd(a),
		newSignInCmd(a),
		newRefreshCmd(a),
		newUserCmd(a),
		newRecoverCmd(a),
		newResetPasswordCmd(a),
		newClaimsCmd(a),
		newUsersCmd(a),
	)
	return cmd
}

func newSignUpCmd(a *app) *cobra.Command {
	var (
		req  auth.SignUpRequest
		data string
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a user and print the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if data != "" {
				if err := readJSON(data, cmd.InOrStdin(), &req.Data); err != nil {
					return err
				}
			}
			if err := a.clients(); err != nil {
				return err
			}
			s, err := a.auth.SignUp(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Phone, "phone", "", "phone number")
	f.StringVar(&req.Password, "password", "", "password")
	f.StringVar(&data, "data", "", "user metadata as a JSON object")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newSignInCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password and print the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			s, err := a.auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", "", "email address")
	f.StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh REFRESH_TOKEN",
		Short: "Exchange a refresh token for a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			s, err := a.auth.Refresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Print the user owning the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AccessToken == "" {
				return errNoAccessToken
			}
			if err := a.clients(); err != nil {
				return err
			}
			user, err := a.auth.GetUser(cmd.Context(), a.cfg.AccessToken)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
}

func newRecoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover EMAIL",
		Short: "Send a password recovery email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			return a.auth.ForgotPassword(cmd.Context(), args[0])
		},
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var password, otp string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for the user owning the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AccessToken == "" {
				return errNoAccessToken
			}
			if err := a.clients(); err != nil {
				return err
			}
			return a.auth.ResetPassword(cmd.Context(), password, a.cfg.AccessToken, otp)
		},
	}

	f := cmd.Flags()
	f.StringVar(&password, "password", "", "new password")
	f.StringVar(&otp, "otp", "", "one-time code from the recovery email")
	cmd.MarkFlagRequired("password")
	return cmd
}

// newClaimsCmd decodes the access token locally. Nothing is sent.
func newClaimsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "claims",
		Short: "Print the claims of the access token without verifying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &auth.Session{AccessToken: a.cfg.AccessToken}
			claims, err := s.Claims()
			if err != nil {
				if errors.Is(err, auth.ErrNoSession) {
					return errNoAccessToken
				}
				return err
			}
			if s.Expired(time.Now(), 0) {
				a.logger.Warn("access token has expired")
			}
			return printJSON(cmd.OutOrStdout(), claims)
		},
	}
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer users; requires the service role key",
	}

	var page, perPage int
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			users, err := a.auth.ListUsers(cmd.Context(), page, perPage)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), users)
		},
	}
	list.Flags().IntVar(&page, "page", 0, "page number, starting at 1")
	list.Flags().IntVar(&perPage, "per-page", 0, "users per page")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Print one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			user, err := a.auth.GetUserByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clients(); err != nil {
				return err
			}
			if err := a.auth.DeleteUser(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete user %s: %w", args[0], err)
			}
			return nil
		},
	}

	cmd.AddCommand(list, get, del)
	return cmd
}
