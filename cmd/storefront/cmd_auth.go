package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/storefront"
	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				if password, err = readLine(cmd, "Password: "); err != nil {
					return err
				}
			}
			resp, err := c.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", displayName(resp.User), resp.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCmd(c *cli) *cobra.Command {
	var req storefront.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				var err error
				if req.Password, err = readLine(cmd, "Password: "); err != nil {
					return err
				}
			}
			resp, err := c.auth.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			if c.session.Authenticated() {
				fmt.Fprintf(cmd.OutOrStdout(), "Account created, signed in as %s\n", displayName(resp.User))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Account created. Run `storefront login` to sign in.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.auth.Logout(cmd.Context())
			c.cart.Reset()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoAmICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			me, err := c.auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", me.Email, me.Role)
			// Me may have refreshed the token, so read the claims afterwards.
			if claims, err := c.session.Claims(); err == nil && !claims.Expiry().IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "access token valid until %s\n", claims.Expiry().Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" && err != nil {
		return "", errors.New("no password given")
	}
	return line, nil
}

func displayName(u storefront.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
