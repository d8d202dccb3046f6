package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard"
	"github.com/mrsinham/medbrain/internal/flows"
	"github.com/mrsinham/medbrain/internal/session"
)

func quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Answer six questions and get a predicted disease",
		Long: "Answer six questions and get a predicted disease.\n\n" +
			"The prediction is not a diagnosis. Please consult a doctor.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, _ := cmd.Flags().GetStringSlice("answers")
			a, err := setup(cmd, len(answers) == 0)
			if err != nil {
				return err
			}
			defer a.Close()

			s, _, err := a.newSession(cmd.Context(), flows.Quiz, flows.QuizSender(a.client))
			if err != nil {
				return err
			}

			if len(answers) == 0 {
				r, err := wizard.RunQuiz(s, a.cfg.Timeout)
				if err != nil {
					return err
				}
				if r.Status == session.StatusSucceeded {
					fmt.Fprintf(cmd.OutOrStdout(), "Predicted Disease: %s\n", r.RecordID)
				}
				return nil
			}

			defer s.Close()
			if err := answerAll(s, answers); err != nil {
				return err
			}
			r, err := s.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if r.Status == session.StatusFailed {
				return fmt.Errorf("prediction failed: %w", r.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Predicted Disease: %s\n", r.RecordID)
			return nil
		},
	}
	cmd.Flags().StringSlice("answers", nil, "Answer every question at once: age,gender,country,symptom1,symptom2,symptom3")
	return cmd
}

// answerAll gives each question of s its answer, in order.
func answerAll(s *session.Session, answers []string) error {
	total := len(s.Flow().Steps)
	if len(answers) != total {
		return fmt.Errorf("expected %d answers, got %d", total, len(answers))
	}

	for _, answer := range answers {
		step, index, _, ok := s.Current()
		if !ok {
			return fmt.Errorf("quiz ended early")
		}
		fs := step.Fields[0]
		v, err := session.Of(fs.Kind, strings.TrimSpace(answer))
		if err != nil {
			return fmt.Errorf("answer %d: %w", index+1, err)
		}
		if err := s.Set(fs.Key, v); err != nil {
			return err
		}
		verdict, err := s.Advance()
		if err != nil {
			return err
		}
		if err := verdict.Err(); err != nil {
			return fmt.Errorf("answer %d (%s): %w", index+1, step.Prompt, err)
		}
	}
	return nil
}
