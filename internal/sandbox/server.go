// Package sandbox serves in-memory stand-ins for the record, session,
// prediction and chat services, so the client can be used and tested offline.
package sandbox

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/internal/auth"
	"github.com/mrsinham/medbrain/internal/client"
)

// Demo account created by every sandbox.
const (
	DemoEmail    = "demo@medbrain.dev"
	DemoPassword = "demo"
)

// Options configures a sandbox.
type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	Logger   zerolog.Logger
	// Seed makes the generated records reproducible.
	Seed int64
	// SeedRecords is the number of records generated for the demo account.
	SeedRecords int
	// ListWithoutCreatedAt leaves createdAt out of the list response, like
	// services that only keep insertion order.
	ListWithoutCreatedAt bool
}

// account is a registered user.
type account struct {
	identity auth.Identity
	password string
	profile  map[string]any
}

// Server is the sandbox HTTP server.
type Server struct {
	echo   *echo.Echo
	issuer *auth.Issuer
	logger zerolog.Logger
	now    func() time.Time

	// bareList strips createdAt from listed records
	bareList bool

	mu       sync.RWMutex
	accounts map[string]*account
	records  map[string][]client.Record
}

// New creates a sandbox with the demo account and its seeded records.
func New(opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("medbrain-sandbox")
	}

	s := &Server{
		echo:     echo.New(),
		issuer:   auth.NewIssuer(opts.Secret, opts.TokenTTL),
		logger:   opts.Logger,
		now:      time.Now,
		accounts: make(map[string]*account),
		records:  make(map[string][]client.Record),
		bareList: opts.ListWithoutCreatedAt,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	demo := &account{
		identity: auth.Identity{
			Subject:  "demo",
			FullName: "Demo Patient",
			Email:    DemoEmail,
			Mobile:   "+1 555 0100",
			Gender:   "Female",
			Age:      34,
		},
		password: DemoPassword,
		profile:  map[string]any{},
	}
	s.accounts[DemoEmail] = demo

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	s.records[demo.identity.Subject] = seedRecords(rng, opts.SeedRecords, s.now())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.Use(RequestID())
	s.echo.Use(Logger(s.logger))
	s.echo.Use(Recovery(s.logger))

	api := s.echo.Group("/api")
	api.POST(client.DefaultPaths.Login, s.handleLogin)

	authed := RequireAuth(s.issuer)
	api.GET(client.DefaultPaths.Session, s.handleCheck, authed)
	api.POST(client.DefaultPaths.Profile, s.handleUpdateProfile, authed)
	api.GET(client.DefaultPaths.Records, s.handleListRecords, authed)
	api.POST(client.DefaultPaths.Records, s.handleCreateRecord, authed)
	api.GET(client.DefaultPaths.Records+"/:id", s.handleGetRecord, authed)

	s.echo.POST("/predict", s.handlePredict)
	s.echo.POST("/api/content", s.handleChat)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("sandbox listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Issue returns a session token for the account with email.
func (s *Server) Issue(email string) (string, error) {
	s.mu.RLock()
	acc, ok := s.accounts[email]
	s.mu.RUnlock()
	if !ok {
		return "", auth.ErrUnauthenticated
	}
	return s.issuer.Issue(acc.identity)
}

// Records returns a copy of the records stored for subject.
func (s *Server) Records(subject string) []client.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]client.Record(nil), s.records[subject]...)
}

// Profile returns a copy of the stored profile of the account with email.
func (s *Server) Profile(email string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[email]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(acc.profile))
	for k, v := range acc.profile {
		out[k] = v
	}
	return out
}

func (s *Server) accountFor(id auth.Identity) (*account, bool) {
	for _, acc := range s.accounts {
		if acc.identity.Subject == id.Subject {
			return acc, true
		}
	}
	return nil, false
}
