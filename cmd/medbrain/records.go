package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard"
	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/screens"
	"github.com/mrsinham/medbrain/internal/client"
	"github.com/mrsinham/medbrain/internal/poll"
)

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"rec"},
		Short:   "Browse your prescriptions",
	}

	// records list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List prescriptions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.listRecords(cmd.Context())
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			printRecords(cmd.OutOrStdout(), recs)
			return nil
		},
	}
	listCmd.Flags().Bool("json", false, "Print the records as JSON")

	// records show
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one prescription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.identity(cmd.Context()); err != nil {
				return err
			}
			rec, err := a.client.GetPrescription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			for _, f := range screens.RecordFields(rec) {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", f.Label+":", f.Value)
			}
			return nil
		},
	}
	showCmd.Flags().Bool("json", false, "Print the record as JSON")

	// records watch
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the prescription list up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, _ := cmd.Flags().GetBool("plain")
			a, err := setup(cmd, !plain)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.identity(cmd.Context()); err != nil {
				return err
			}
			interval, _ := cmd.Flags().GetDuration("interval")
			if interval <= 0 {
				interval = a.cfg.PollInterval
			}

			if !plain {
				load := func(id string) (client.Record, error) {
					ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout)
					defer cancel()
					return a.client.GetPrescription(ctx, id)
				}
				return wizard.RunRecords(a.listRecords, load, interval, a.logger)
			}
			return a.watchPlain(cmd, interval)
		},
	}
	watchCmd.Flags().Bool("plain", false, "Print each refresh instead of opening the browser")
	watchCmd.Flags().Duration("interval", 0, "Refresh interval (defaults to POLL_INTERVAL)")

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)
	cmd.AddCommand(watchCmd)
	return cmd
}

// listRecords fetches the signed-in user's records, newest first. The client
// already orders them.
func (a *app) listRecords(ctx context.Context) ([]client.Record, error) {
	if a.client.Token() == "" {
		return nil, errNotSignedIn
	}
	return a.client.ListPrescriptions(ctx)
}

// watchPlain prints the list whenever it changes, until interrupted.
func (a *app) watchPlain(cmd *cobra.Command, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var last string
	updates := make(chan poll.Update[[]client.Record], 1)
	r := poll.New(interval, a.listRecords, func(u poll.Update[[]client.Record]) {
		// Keep only the newest pending update
		select {
		case <-updates:
		default:
		}
		updates <- u
	}, a.logger)
	r.Start()
	defer r.Stop(2 * time.Second)

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			if u.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Refresh failed: %v\n", u.Err)
				continue
			}
			key := recordsKey(u.Value)
			if key == last {
				continue
			}
			last = key
			fmt.Fprintf(out, "== %s ==\n", time.Now().Format("15:04:05"))
			printRecords(out, u.Value)
		}
	}
}

func recordsKey(recs []client.Record) string {
	data, _ := json.Marshal(recs)
	return string(data)
}

func printRecords(w io.Writer, recs []client.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No prescriptions yet.")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%-26s %-12s %-24s %s (%d medicines)\n", r.ID, r.Date, r.DoctorName, r.HospitalName, len(r.Medicines))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
