package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/internal/config"
	"github.com/mrsinham/medbrain/internal/sandbox"
)

func sandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run in-memory record, session, prediction and chat services for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.SandboxAddr
			}
			seed, _ := cmd.Flags().GetInt64("seed")
			records, _ := cmd.Flags().GetInt("records")

			srv := sandbox.New(sandbox.Options{
				Secret:      []byte(a.cfg.SandboxSecret),
				Logger:      a.logger.With().Str("component", "sandbox").Logger(),
				Seed:        seed,
				SeedRecords: records,
			})

			token, err := srv.Issue(sandbox.DemoEmail)
			if err != nil {
				return err
			}
			printSandboxEnv(cmd, addr, token)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(addr)
			}()

			// Graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			a.logger.Info().Msg("shutting down sandbox")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (defaults to SANDBOX_ADDR)")
	cmd.Flags().Int64("seed", 1, "Seed of the generated demo records")
	cmd.Flags().Int("records", 5, "Number of demo records")
	return cmd
}

// printSandboxEnv prints the settings pointing the client at the sandbox.
func printSandboxEnv(cmd *cobra.Command, addr, token string) {
	base := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		base = "http://localhost" + addr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# Demo account: %s / %s\n", sandbox.DemoEmail, sandbox.DemoPassword)
	fmt.Fprintf(out, "export %s_API_URL=%s/api\n", config.EnvPrefix, base)
	fmt.Fprintf(out, "export %s_PREDICT_URL=%s/predict\n", config.EnvPrefix, base)
	fmt.Fprintf(out, "export %s_CHAT_URL=%s/api/content\n", config.EnvPrefix, base)
	fmt.Fprintf(out, "export %s_TOKEN=%s\n", config.EnvPrefix, token)
}
