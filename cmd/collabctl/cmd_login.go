package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print an access token",
	Long: `Sign in with email and password and print the access token.

Export it for later commands:
  export COLLAB_TOKEN=$(collabctl login --email me@example.com)`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", os.Getenv("COLLAB_PASSWORD"), "account password (or set COLLAB_PASSWORD)")
	_ = loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginPassword == "" {
		return errors.New("password is required")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := newClient().Login(ctx, loginEmail, loginPassword)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "signed in as %s (%s, %s)\n", resp.User.Email, resp.User.Role, resp.User.Status)
	fmt.Fprintln(cmd.OutOrStdout(), resp.AccessToken)
	return nil
}
