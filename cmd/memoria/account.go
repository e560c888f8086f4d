package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memoria-app/memoria/internal/model/auth"
	"github.com/memoria-app/memoria/internal/service/account"
	"github.com/memoria-app/memoria/internal/service/gate"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		Long: `Sign in with a username and password.

The password is read from the first line of stdin when --password is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if decision := a.gate.Navigate(gate.PathLogin); decision.Redirect != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Already logged in.")
				return nil
			}
			if password == "" {
				var err error
				if password, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			if err := a.account.Login(cmd.Context(), username, password); err != nil {
				return displayError(err, account.MsgLoginFailed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", strings.TrimSpace(username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var req auth.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if decision := a.gate.Navigate(gate.PathRegister); decision.Redirect != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Already logged in. Run `memoria logout` to register a new account.")
				return nil
			}
			if req.Password2 == "" {
				req.Password2 = req.Password
			}

			if err := a.account.Register(cmd.Context(), req); err != nil {
				return displayError(err, account.MsgRegisterFailed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are now logged in.\n", strings.TrimSpace(req.Username))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&req.Username, "username", "u", "", "username")
	flags.StringVar(&req.Email, "email", "", "email address")
	flags.StringVarP(&req.Password, "password", "p", "", "password")
	flags.StringVar(&req.Password2, "confirm", "", "password confirmation (defaults to --password)")
	flags.StringVar(&req.FirstName, "first-name", "", "first name")
	flags.StringVar(&req.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.account.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			state := "logged out"
			if a.gate.Authenticated() {
				state = "logged in"
			}
			fmt.Fprintf(out, "Status:      %s\n", state)
			fmt.Fprintf(out, "Server:      %s\n", a.cfg.Client.BaseURL)
			fmt.Fprintf(out, "Credentials: %s\n", a.creds.Path())
			return nil
		},
	}
}

func readSecret(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return strings.TrimRight(scanner.Text(), "\r"), nil
}
