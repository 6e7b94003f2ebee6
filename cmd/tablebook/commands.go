package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/config"
)

// cli carries the per-invocation app from the root hooks to the commands.
type cli struct {
	app *app
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "tablebook",
		Short: "Book, change and cancel restaurant tables",
		Long: `tablebook manages a fixed pool of restaurant tables.

Customers register and book under their own name; receptionists and the
admin manage every booking.  Log in once and later commands act as you.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.close()
			}
		},
	}

	staffCmd := &cobra.Command{Use: "staff", Short: "Manage receptionist accounts (admin)"}
	staffCmd.AddCommand(c.staffAddCmd())

	eventsCmd := &cobra.Command{Use: "events", Short: "Work with the reservation event feed"}
	eventsCmd.AddCommand(c.eventsConsumeCmd())

	root.AddCommand(
		// accounts
		c.registerCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		staffCmd,
		// reservations
		c.reserveCmd(),
		c.updateCmd(),
		c.cancelCmd(),
		c.showCmd(),
		c.listCmd(),
		c.tablesCmd(),
		c.existsCmd(),
		// audit
		c.logsCmd(),
		eventsCmd,
	)
	return root
}

// credentials takes username and password from args, reading the password
// from in when only the username was given.
func credentials(args []string, in io.Reader) (string, string, error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return args[0], strings.TrimRight(line, "\r\n"), nil
}
