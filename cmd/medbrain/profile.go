package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard"
	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/screens"
	"github.com/mrsinham/medbrain/internal/flows"
	"github.com/mrsinham/medbrain/internal/session"
	"github.com/mrsinham/medbrain/internal/util"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and update your medical profile",
	}

	// profile show
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Full name: %s\n", id.FullName)
			fmt.Fprintf(out, "Email:     %s\n", id.Email)
			if id.Mobile != "" {
				fmt.Fprintf(out, "Mobile:    %s\n", id.Mobile)
			}
			if id.Gender != "" {
				fmt.Fprintf(out, "Gender:    %s\n", id.Gender)
			}
			if id.Age > 0 {
				fmt.Fprintf(out, "Age:       %d\n", id.Age)
			}
			return nil
		},
	}

	// profile edit
	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Fill in your medical profile step by step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			s, id, err := a.newSession(cmd.Context(), flows.Profile, flows.ProfileSender(a.client))
			if err != nil {
				return err
			}
			if err := flows.PrefillProfile(s, id); err != nil {
				return err
			}

			r, err := wizard.Run(s, wizard.Options{
				Timeout: a.cfg.Timeout,
				Complete: func(session.Result) screens.CompletionMsg {
					return screens.CompletionMsg{
						Title:  "Profile updated",
						Fields: []screens.Field{{Label: "Name", Value: id.DisplayName()}},
					}
				},
			})
			if err != nil {
				return err
			}
			if r.Status == session.StatusSucceeded {
				fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
			}
			return nil
		},
	}

	// profile set
	setCmd := &cobra.Command{
		Use:   "set key=value...",
		Short: "Update profile fields, e.g. bloodType=O+ city=Pune",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args)
			if err != nil {
				return err
			}

			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			s, id, err := a.newSession(cmd.Context(), flows.Profile, flows.ProfileSender(a.client))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := flows.PrefillProfile(s, id); err != nil {
				return err
			}
			if err := checkProfileKeys(s.Flow(), fields); err != nil {
				return err
			}
			d := &wizard.Draft{Flow: flows.Profile, Fields: fields}
			if err := wizard.Fill(s, d, a.resolver("")); err != nil {
				return err
			}

			r, err := s.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if r.Status == session.StatusFailed {
				return fmt.Errorf("updating profile: %w", r.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile updated (%d fields).\n", len(fields))
			return nil
		},
	}

	cmd.AddCommand(showCmd)
	cmd.AddCommand(editCmd)
	cmd.AddCommand(setCmd)
	return cmd
}

// parseAssignments splits key=value arguments.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// checkProfileKeys rejects unknown keys with a suggestion.
func checkProfileKeys(flow *session.Flow, fields map[string]string) error {
	var known []string
	for _, st := range flow.Steps {
		for _, fs := range st.Fields {
			known = append(known, fs.Key)
		}
	}
	for k := range fields {
		if _, ok := flow.Field(k); ok {
			continue
		}
		if s := util.Closest(k, known, 3); s != "" {
			return fmt.Errorf("unknown profile field %q, did you mean %q?", k, s)
		}
		return fmt.Errorf("unknown profile field %q", k)
	}
	return nil
}
