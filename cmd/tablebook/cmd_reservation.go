package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/account"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/reservation"
	"github.com/iliyamo/table-reservation/internal/validate"
)

func (c *cli) reserveCmd() *cobra.Command {
	var name, phone, date, tm, party, table string
	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Book a table",
		Example: `  tablebook reserve --phone 123-456-7890 --party 2 --date 2025-06-01 --time 19:00 --table 1
  tablebook reserve --name Alice --phone 123-456-7890 --party 2 --date 2025-06-01 --time 19:00 --table 1   # staff`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			actor, err := a.session()
			if err != nil {
				return err
			}
			customer, err := bookingName(actor, name)
			if err != nil {
				return err
			}
			size, err := partyFlag(party)
			if err != nil {
				return err
			}
			num, err := tableFlag(table)
			if err != nil {
				return err
			}
			id, err := a.mgr.Reserve(cmd.Context(), actor, reservation.ReserveRequest{
				Name:       customer,
				Phone:      phone,
				PartySize:  size,
				Date:       date,
				Time:       tm,
				TableIndex: num - 1,
			})
			if id != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Reserved table %d for %s: %s\n", num, customer, id)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "customer name (staff only; customers book under their username)")
	f.StringVar(&phone, "phone", "", "contact number, XXX-XXX-XXXX")
	f.StringVar(&party, "party", "", "number of guests")
	f.StringVar(&date, "date", "", "date, YYYY-MM-DD")
	f.StringVar(&tm, "time", "", "time, HH:MM (24h)")
	f.StringVar(&table, "table", "", "table number, starting at 1")
	for _, req := range []string{"phone", "party", "date", "time", "table"} {
		_ = cmd.MarkFlagRequired(req)
	}
	return cmd
}

// bookingName picks the name a new booking is filed under.
func bookingName(actor reservation.Actor, flag string) (string, error) {
	if actor.Role.IsStaff() {
		if flag == "" {
			return "", errors.New("--name is required when staff book for a customer")
		}
		return flag, nil
	}
	if flag != "" && flag != actor.Username {
		return "", fmt.Errorf("%w: customers book under their own name", account.ErrForbidden)
	}
	return actor.Username, nil
}

// partyFlag and tableFlag accept plain decimal digits only.  The table
// number is not bounded here; the manager reports an out-of-range table.
func partyFlag(s string) (int, error) {
	n, ok := validate.NumericInput(s, 1, math.MaxInt)
	if !ok {
		return 0, &reservation.ValidationError{Field: "party size", Message: "must be a whole number of at least 1"}
	}
	return n, nil
}

func tableFlag(s string) (int, error) {
	n, ok := validate.NumericInput(s, 0, math.MaxInt)
	if !ok {
		return 0, &reservation.ValidationError{Field: "table", Message: "must be a whole table number"}
	}
	return n, nil
}

// ensureHasBookings stops a customer with nothing booked before the
// manager looks up an ID.
func (c *cli) ensureHasBookings(actor reservation.Actor) error {
	if actor.Role == model.RoleCustomer && !c.app.mgr.HasReservations(actor.Username) {
		return fmt.Errorf("%w: %s has no reservations", reservation.ErrNotFound, actor.Username)
	}
	return nil
}

func (c *cli) updateCmd() *cobra.Command {
	var newID, name, phone, date, tm, party, table string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a reservation; unset flags keep their value",
		Example: `  tablebook update "ID 1A" --table 4
  tablebook update "ID 1A" --date 2025-06-02 --time 20:30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			actor, err := a.session()
			if err != nil {
				return err
			}
			if err := c.ensureHasBookings(actor); err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			var req reservation.UpdateRequest
			if changed("new-id") {
				req.NewID = &newID
			}
			if changed("name") {
				req.Name = &name
			}
			if changed("phone") {
				req.Phone = &phone
			}
			if changed("party") {
				size, err := partyFlag(party)
				if err != nil {
					return err
				}
				req.PartySize = &size
			}
			if changed("date") {
				req.Date = &date
			}
			if changed("time") {
				req.Time = &tm
			}
			if changed("table") {
				num, err := tableFlag(table)
				if err != nil {
					return err
				}
				idx := num - 1
				req.TableIndex = &idx
			}
			res, err := a.mgr.Update(cmd.Context(), actor, args[0], req)
			if err != nil && reservation.KindOf(err) != reservation.KindPersistence && reservation.KindOf(err) != reservation.KindAudit {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated reservation:")
			printReservations(cmd.OutOrStdout(), []model.Reservation{res})
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&newID, "new-id", "", "new reservation ID (admin only)")
	f.StringVar(&name, "name", "", "customer name (staff only)")
	f.StringVar(&phone, "phone", "", "contact number, XXX-XXX-XXXX")
	f.StringVar(&party, "party", "", "number of guests")
	f.StringVar(&date, "date", "", "date, YYYY-MM-DD")
	f.StringVar(&tm, "time", "", "time, HH:MM (24h)")
	f.StringVar(&table, "table", "", "table number, starting at 1")
	return cmd
}

func (c *cli) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a reservation and free its table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			actor, err := a.session()
			if err != nil {
				return err
			}
			if err := c.ensureHasBookings(actor); err != nil {
				return err
			}
			if err := a.mgr.Cancel(cmd.Context(), actor, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", model.CanonicalID(args[0]))
			return nil
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.app.session()
			if err != nil {
				return err
			}
			res, err := c.app.mgr.Get(args[0])
			if err != nil {
				return err
			}
			if actor.Role == model.RoleCustomer && res.CustomerName != actor.Username {
				return fmt.Errorf("%w: %s belongs to another customer", reservation.ErrForbidden, res.ID)
			}
			printReservations(cmd.OutOrStdout(), []model.Reservation{res})
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var customer string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reservations (customers see only their own)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			actor, err := a.session()
			if err != nil {
				return err
			}
			var list []model.Reservation
			switch {
			case !actor.Role.IsStaff():
				list = a.mgr.ListByCustomer(actor.Username)
			case customer != "":
				list = a.mgr.ListByCustomer(customer)
			default:
				list = a.mgr.ListAll()
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reservations found.")
				return nil
			}
			printReservations(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "only this customer's bookings (staff)")
	return cmd
}

func (c *cli) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show which tables are free",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.session(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, free := range c.app.mgr.Tables() {
				state := "Booked"
				if free {
					state = "Available"
				}
				fmt.Fprintf(out, "Table %d: %s\n", i+1, state)
			}
			return nil
		},
	}
}

func (c *cli) existsCmd() *cobra.Command {
	var excluding string
	cmd := &cobra.Command{
		Use:   "exists <id>",
		Short: "Report whether a reservation ID is in use (staff)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.session(model.RoleReceptionist, model.RoleAdmin); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.app.mgr.IDExists(args[0], excluding))
			return nil
		},
	}
	cmd.Flags().StringVar(&excluding, "excluding", "", "ignore this reservation ID")
	return cmd
}

func printReservations(w io.Writer, list []model.Reservation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tPARTY\tDATE\tTIME\tTABLE")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%d\n",
			r.ID, r.CustomerName, r.PhoneNumber, r.PartySize, r.Date, r.Time, r.TableNumber())
	}
	_ = tw.Flush()
}
