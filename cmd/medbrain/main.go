package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard"
	"github.com/mrsinham/medbrain/internal/attachment"
	"github.com/mrsinham/medbrain/internal/auth"
	"github.com/mrsinham/medbrain/internal/client"
	"github.com/mrsinham/medbrain/internal/config"
	"github.com/mrsinham/medbrain/internal/flows"
	"github.com/mrsinham/medbrain/internal/logging"
	"github.com/mrsinham/medbrain/internal/session"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "medbrain",
		Short:         "MedBrain terminal client: prescriptions, symptom checker and health assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := rootCmd.PersistentFlags()
	f.String("config", "", "Load settings from a file (KEY=value lines, YAML or JSON)")
	f.String("api-url", "", "Record and session service base URL")
	f.String("predict-url", "", "Symptom prediction service URL")
	f.String("chat-url", "", "Health assistant service URL")
	f.String("token", "", "Session token (defaults to MEDBRAIN_TOKEN)")
	f.Duration("timeout", 0, "Timeout of every outbound call")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-format", "", "Log format: console or json")
	f.String("log-file", "", "Write logs to this file")

	rootCmd.AddCommand(recordsCmd())
	rootCmd.AddCommand(rxCmd())
	rootCmd.AddCommand(quizCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(sandboxCmd())
	rootCmd.AddCommand(versionCmd())

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\nRun '%s --help' for usage", err, cmd.CommandPath())
	})
	return rootCmd
}

// errNotSignedIn wraps auth.ErrUnauthenticated with the way out.
var errNotSignedIn = fmt.Errorf("%w: run \"medbrain login\" first", auth.ErrUnauthenticated)

// app holds what every command needs: settings, a logger and a client.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
	client *client.Client
}

// setup loads the settings and builds the logger and client. Interactive
// commands only log to LOG_FILE because the terminal belongs to the UI.
func setup(cmd *cobra.Command, interactive bool) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, closer := zerolog.Nop(), io.Closer(nopCloser{})
	if !interactive || cfg.LogFile != "" {
		logger, closer, err = logging.New(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			File:   cfg.LogFile,
			Out:    cmd.ErrOrStderr(),
		})
		if err != nil {
			return nil, err
		}
	}

	c := client.New(client.Options{
		APIURL:     cfg.APIURL,
		PredictURL: cfg.PredictURL,
		ChatURL:    cfg.ChatURL,
		Paths: client.Paths{
			Records: cfg.RecordsPath,
			Session: cfg.SessionPath,
			Profile: cfg.ProfilePath,
			Login:   cfg.LoginPath,
		},
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})

	return &app{cfg: cfg, logger: logger, closer: closer, client: c}, nil
}

func (a *app) Close() {
	if err := a.closer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// identity asks the session service who is signed in.
func (a *app) identity(ctx context.Context) (auth.Identity, error) {
	id, err := a.client.Check(ctx)
	if errors.Is(err, auth.ErrUnauthenticated) {
		return auth.Identity{}, errNotSignedIn
	}
	if err != nil {
		return auth.Identity{}, fmt.Errorf("checking session: %w", err)
	}
	return id, nil
}

// newSession opens a session of the named flow for the signed-in user.
func (a *app) newSession(ctx context.Context, name string, sender session.Sender) (*session.Session, auth.Identity, error) {
	id, err := a.identity(ctx)
	if err != nil {
		return nil, auth.Identity{}, err
	}
	flow, err := flows.Load(name)
	if err != nil {
		return nil, auth.Identity{}, err
	}
	s, err := session.New(flow, session.Options{
		Identity:       id,
		Sender:         sender,
		Logger:         a.logger.With().Str("flow", name).Logger(),
		RevealInterval: a.cfg.RevealInterval,
	})
	if err != nil {
		return nil, auth.Identity{}, err
	}
	return s, id, nil
}

// attachmentOptions applies ATTACHMENT_MAX_SIZE.
func (a *app) attachmentOptions() attachment.Options {
	// Validate already parsed it
	n, _ := a.cfg.MaxAttachmentBytes()
	return attachment.Options{MaxBytes: n}
}

// resolver loads file fields relative to dir with the configured size limit.
func (a *app) resolver(dir string) wizard.Resolver {
	return wizard.ResolveWith(dir, a.attachmentOptions())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "medbrain %s\n", version)
		},
	}
}
