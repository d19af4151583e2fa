package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/campsite-bookings/internal/booking"
	"github.com/example/campsite-bookings/internal/store"
)

func newBookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Inspect and work bookings",
	}
	cmd.AddCommand(newBookingListCmd())
	cmd.AddCommand(newBookingShowCmd())
	cmd.AddCommand(newBookingStatusCmd())
	cmd.AddCommand(newBookingEditCmd())
	return cmd
}

func newBookingListCmd() *cobra.Command {
	var (
		status   string
		from     string
		to       string
		archived bool
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List bookings (active by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			var recs []booking.Record
			if archived {
				recs, err = a.store.ListArchive(ctx)
			} else {
				var f store.Filter
				if status != "" {
					f.Status, err = booking.ParseStatus(status)
					if err != nil {
						return err
					}
				}
				if from != "" && to != "" {
					f.From, err = time.ParseInLocation("2006-01-02", from, a.cfg.Location)
					if err != nil {
						return fmt.Errorf("invalid --from (want YYYY-MM-DD)")
					}
					f.To, err = time.ParseInLocation("2006-01-02", to, a.cfg.Location)
					if err != nil {
						return fmt.Errorf("invalid --to (want YYYY-MM-DD)")
					}
				}
				recs, err = a.store.ListActive(ctx, f)
			}
			if err != nil {
				return err
			}

			for _, rec := range recs {
				b, t := rec.Booking, rec.Tracking
				fmt.Fprintf(os.Stdout, "%-14s %-10s %-24s %s..%s size=%d facilities=%s\n",
					b.ID, t.Status, b.GroupName,
					b.Arriving.In(a.cfg.Location).Format("2006-01-02 15:04"),
					b.Departing.In(a.cfg.Location).Format("2006-01-02 15:04"),
					b.GroupSize, strings.Join(b.Facilities, ","))
			}
			return nil
		},
	}

	c.Flags().StringVar(&status, "status", "", "filter by status")
	c.Flags().StringVar(&from, "from", "", "window start YYYY-MM-DD (with --to)")
	c.Flags().StringVar(&to, "to", "", "window end YYYY-MM-DD (with --from)")
	c.Flags().BoolVar(&archived, "archived", false, "list the archive partition instead")
	return c
}

func newBookingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <booking-id>",
		Short: "Show a booking, its history, allowed transitions and clashes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := a.store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			b, t := rec.Booking, rec.Tracking

			fmt.Fprintf(os.Stdout, "%s  [%s]\n", b.ID, t.Status)
			fmt.Fprintf(os.Stdout, "  group:      %s (%s, size %d)\n", b.GroupName, b.GroupType, b.GroupSize)
			fmt.Fprintf(os.Stdout, "  leader:     %s  %s  %s\n", b.LeaderName, b.LeaderEmail, b.LeaderPhone)
			fmt.Fprintf(os.Stdout, "  stay:       %s .. %s\n",
				b.Arriving.In(a.cfg.Location).Format("2006-01-02 15:04"),
				b.Departing.In(a.cfg.Location).Format("2006-01-02 15:04"))
			fmt.Fprintf(os.Stdout, "  facilities: %s\n", strings.Join(b.Facilities, ", "))
			fmt.Fprintf(os.Stdout, "  cost:       %d\n", b.CostEstimate)
			if t.PendQuestion != "" {
				fmt.Fprintf(os.Stdout, "  pending:    %s\n", t.PendQuestion)
			}
			if t.CancelReason != "" {
				fmt.Fprintf(os.Stdout, "  cancelled:  %s\n", t.CancelReason)
			}
			if t.BookersComment != "" {
				fmt.Fprintf(os.Stdout, "  comment:    %s\n", t.BookersComment)
			}

			next := booking.Transitions(t.Status)
			labels := make([]string, len(next))
			for i, s := range next {
				labels[i] = string(s)
			}
			fmt.Fprintf(os.Stdout, "  next:       %s\n", strings.Join(labels, ", "))

			clashes, err := a.detector.ClashesFor(ctx, rec)
			if err != nil {
				return err
			}
			for _, c := range clashes {
				fmt.Fprintf(os.Stdout, "  CLASH:      %s (%s) %s..%s\n",
					c.Booking.ID, c.Tracking.Status,
					c.Booking.Arriving.In(a.cfg.Location).Format("2006-01-02 15:04"),
					c.Booking.Departing.In(a.cfg.Location).Format("2006-01-02 15:04"))
			}

			if len(t.Notes) > 0 {
				fmt.Fprintln(os.Stdout, "  notes:")
				for _, n := range t.Notes {
					fmt.Fprintf(os.Stdout, "    %s\n", n)
				}
			}
			return nil
		},
	}
}

func newBookingStatusCmd() *cobra.Command {
	var reason string

	c := &cobra.Command{
		Use:   "status <booking-id> <target>",
		Short: "Request a status transition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			target, err := booking.ParseStatus(args[1])
			if err != nil {
				return err
			}
			t, err := a.workflow.RequestTransition(ctx, args[0], target, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s is now %s\n", args[0], t.Status)
			return nil
		},
	}

	c.Flags().StringVar(&reason, "reason", "", "cancellation reason or pending question")
	return c
}

func newBookingEditCmd() *cobra.Command {
	var (
		groupName  string
		groupSize  int
		leaderName string
		phone      string
		email      string
		arriving   string
		departing  string
		facilities string
		cost       int64
	)

	c := &cobra.Command{
		Use:   "edit <booking-id>",
		Short: "Edit booking fields (only while New/Pending/Confirmed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer cleanup()

			var patch booking.FieldPatch
			flags := cmd.Flags()
			if flags.Changed("group-name") {
				patch.GroupName = &groupName
			}
			if flags.Changed("group-size") {
				patch.GroupSize = &groupSize
			}
			if flags.Changed("leader-name") {
				patch.LeaderName = &leaderName
			}
			if flags.Changed("phone") {
				patch.LeaderPhone = &phone
			}
			if flags.Changed("email") {
				patch.LeaderEmail = &email
			}
			if flags.Changed("cost") {
				patch.CostEstimate = &cost
			}
			if flags.Changed("facilities") {
				patch.Facilities = splitCSV(facilities)
			}
			if flags.Changed("arriving") {
				t, err := time.ParseInLocation("2006-01-02 15:04", arriving, a.cfg.Location)
				if err != nil {
					return fmt.Errorf("invalid --arriving (want YYYY-MM-DD HH:MM)")
				}
				patch.Arriving = &t
			}
			if flags.Changed("departing") {
				t, err := time.ParseInLocation("2006-01-02 15:04", departing, a.cfg.Location)
				if err != nil {
					return fmt.Errorf("invalid --departing (want YYYY-MM-DD HH:MM)")
				}
				patch.Departing = &t
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change")
			}

			rec, err := a.workflow.UpdateBookingFields(ctx, args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "updated %s\n", rec.Booking.ID)
			return nil
		},
	}

	c.Flags().StringVar(&groupName, "group-name", "", "group name")
	c.Flags().IntVar(&groupSize, "group-size", 0, "group size")
	c.Flags().StringVar(&leaderName, "leader-name", "", "leader name")
	c.Flags().StringVar(&phone, "phone", "", "leader phone")
	c.Flags().StringVar(&email, "email", "", "leader email")
	c.Flags().StringVar(&arriving, "arriving", "", "arrival YYYY-MM-DD HH:MM")
	c.Flags().StringVar(&departing, "departing", "", "departure YYYY-MM-DD HH:MM")
	c.Flags().StringVar(&facilities, "facilities", "", "comma-separated facility list")
	c.Flags().Int64Var(&cost, "cost", 0, "cost estimate in minor currency units")
	return c
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
