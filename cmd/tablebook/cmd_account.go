package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/model"
)

func (c *cli) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> [password]",
		Short: "Create a customer account (password read from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			username, password, err := credentials(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := a.auth.Create(cmd.Context(), username, password, model.RoleCustomer); err != nil {
				return err
			}
			if err := a.audit.RecordAction(cmd.Context(), model.RoleCustomer, username, "Registered account", "Username: "+username, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. Log in with: tablebook login %s\n", username, username)
			return nil
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> [password]",
		Short: "Sign in; later commands act as this account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			username, password, err := credentials(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			role, err := a.auth.Verify(cmd.Context(), username, password)
			if err != nil {
				a.log.WithFields(logrus.Fields{"username": username}).Warnf("login failed: %v", err)
				return err
			}
			sess, err := a.sessions.Save(username, role)
			if err != nil {
				return err
			}
			if err := a.audit.RecordLogin(cmd.Context(), role, username, password); err != nil {
				// An unaudited login must not leave a usable session behind.
				return errors.Join(err, a.sessions.Clear())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s %s until %s\n", role, username, sess.Exp.Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.sessions.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.app.sessions.Load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), session expires %s\n", sess.Username, sess.Role, sess.Exp.Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func (c *cli) staffAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <username> [password]",
		Short: "Create a receptionist account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			actor, err := a.session(model.RoleAdmin)
			if err != nil {
				return err
			}
			username, password, err := credentials(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := a.auth.Create(cmd.Context(), username, password, model.RoleReceptionist); err != nil {
				if aerr := a.audit.RecordError(cmd.Context(), actor.Role, actor.Username, "Failed to create receptionist account", err.Error(), nil); aerr != nil {
					a.log.WithError(aerr).Warn("audit failed account creation")
				}
				return err
			}
			if err := a.audit.RecordAction(cmd.Context(), actor.Role, actor.Username, "Created receptionist account", "Username: "+username, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Receptionist %s created\n", username)
			return nil
		},
	}
}
