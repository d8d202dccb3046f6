package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard"
	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/screens"
	"github.com/mrsinham/medbrain/internal/attachment"
	"github.com/mrsinham/medbrain/internal/flows"
	"github.com/mrsinham/medbrain/internal/geo"
	"github.com/mrsinham/medbrain/internal/pa"
	"github.com/mrsinham/medbrain/internal/session"
)

func rxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rx",
		Aliases: []string{"prescription"},
		Short:   "Record prescriptions",
	}

	cmd.AddCommand(rxNewCmd())
	cmd.AddCommand(rxCreateCmd())
	cmd.AddCommand(rxPACmd())
	cmd.AddCommand(rxInspectCmd())
	return cmd
}

func rxNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Record a prescription step by step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			s, _, err := a.newSession(cmd.Context(), flows.Prescription, flows.PrescriptionSender(a.client))
			if err != nil {
				return err
			}

			// Prefill from a draft when asked
			from, _ := cmd.Flags().GetString("from")
			if from != "" {
				d, err := wizard.LoadDraft(from)
				if err != nil {
					return err
				}
				// Problems are fixed in the wizard
				if err := wizard.Fill(s, d, a.resolver(filepath.Dir(from))); err != nil {
					a.logger.Warn().Err(err).Msg("draft is incomplete")
				}
			}

			noLocate, _ := cmd.Flags().GetBool("no-locate")
			opts := wizard.Options{
				Resolve:    a.resolver(""),
				Complete:   rxCompletion,
				AllowDraft: true,
				Timeout:    a.cfg.Timeout,
			}
			if !noLocate {
				opts.Locator, err = a.locator()
				if err != nil {
					return err
				}
			}

			r, err := wizard.Run(s, opts)
			if err != nil {
				return err
			}
			if r.Status == session.StatusSucceeded {
				fmt.Fprintf(cmd.OutOrStdout(), "Prescription saved: %s\n", r.RecordID)
			}
			return nil
		},
	}
	cmd.Flags().String("from", "", "Start from a YAML draft")
	cmd.Flags().Bool("no-locate", false, "Do not look the location up")
	return cmd
}

// locator returns GEO_LAT/GEO_LNG when set, then GEO_URL when set.
func (a *app) locator() (geo.Locator, error) {
	var chain geo.Chain
	lat, lng, ok, err := a.cfg.StaticLocation()
	if err != nil {
		return nil, err
	}
	if ok {
		chain = append(chain, geo.Static{Lat: lat, Lng: lng})
	}
	if a.cfg.GeoURL != "" {
		chain = append(chain, geo.NewHTTP(a.cfg.GeoURL, a.cfg.Timeout, a.logger))
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

func rxCompletion(r session.Result) screens.CompletionMsg {
	return screens.CompletionMsg{
		Title:  "Prescription saved",
		Fields: []screens.Field{{Label: "Record", Value: r.RecordID}},
		Hints: []string{
			"medbrain records show " + r.RecordID,
			"medbrain records list",
		},
	}
}

func rxCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a prescription from a YAML draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			if from == "" {
				return fmt.Errorf("--from is required")
			}

			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := wizard.LoadDraft(from)
			if err != nil {
				return err
			}

			s, _, err := a.newSession(cmd.Context(), flows.Prescription, flows.PrescriptionSender(a.client))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := wizard.Fill(s, d, a.resolver(filepath.Dir(from))); err != nil {
				return fmt.Errorf("draft %s: %w", from, err)
			}

			r, err := s.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if r.Status == session.StatusFailed {
				return fmt.Errorf("saving prescription: %w", r.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prescription saved: %s\n", r.RecordID)
			return nil
		},
	}
	cmd.Flags().String("from", "", "YAML draft to submit (required)")
	return cmd
}

func rxPACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pa",
		Short: "Hand the prescription to a physician assistant with a QR code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := pa.NewRequest(a.cfg.PAFormURL)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prescription ID: %s\n", req.PrescriptionID)
			fmt.Fprintf(out, "Form: %s\n", req.URL)

			if path, _ := cmd.Flags().GetString("png"); path != "" {
				size, _ := cmd.Flags().GetInt("size")
				if err := req.WritePNG(path, size); err != nil {
					return err
				}
				fmt.Fprintf(out, "QR code written to %s\n", path)
				return nil
			}

			if noQR, _ := cmd.Flags().GetBool("no-qr"); noQR {
				return nil
			}
			qr, err := req.Terminal()
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, qr)
			return nil
		},
	}
	cmd.Flags().String("png", "", "Write the QR code to this PNG file instead of the terminal")
	cmd.Flags().Int("size", 256, "PNG size in pixels")
	cmd.Flags().Bool("no-qr", false, "Only print the id and the form link")
	return cmd
}

func rxInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Check a document the way it would be attached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			att, err := attachment.Load(args[0], a.attachmentOptions())
			if err != nil {
				var uerr *attachment.UnsupportedInputError
				if errors.As(err, &uerr) {
					return fmt.Errorf("%s cannot be attached: %s", uerr.Name, uerr.Reason)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if name, _ := cmd.Flags().GetString("tag"); name != "" {
				v, err := att.Value(name)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
				return nil
			}

			fmt.Fprintln(out, att.Describe())
			for _, t := range att.Summary {
				fmt.Fprintf(out, "  %-24s %s\n", t.Name, t.Value)
			}
			return nil
		},
	}
	cmd.Flags().String("tag", "", "Print one DICOM attribute, e.g. PatientName")
	return cmd
}
