package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/internal/session"
)

var (
	// ErrPermissionDenied is returned when location capture is not allowed.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnavailable is returned when no position could be determined.
	ErrUnavailable = errors.New("location unavailable")
)

// Locator performs a one-shot position lookup.
type Locator interface {
	Locate(ctx context.Context) (session.Coordinates, error)
}

// Static always returns the same position.
type Static session.Coordinates

// Locate implements Locator.
func (s Static) Locate(context.Context) (session.Coordinates, error) {
	c := session.Coordinates(s)
	if !c.Valid() {
		return session.Coordinates{}, fmt.Errorf("%w: invalid static position %s", ErrUnavailable, c)
	}
	return c, nil
}

// Denied refuses every lookup.
type Denied struct{}

// Locate implements Locator.
func (Denied) Locate(context.Context) (session.Coordinates, error) {
	return session.Coordinates{}, ErrPermissionDenied
}

// HTTP looks the position up from an IP geolocation endpoint. Responses with
// lat/lon, lat/lng or latitude/longitude keys are accepted.
type HTTP struct {
	URL    string
	Client *http.Client
	Logger zerolog.Logger
}

// NewHTTP creates an HTTP locator with the given timeout.
func NewHTTP(url string, timeout time.Duration, logger zerolog.Logger) *HTTP {
	return &HTTP{URL: url, Client: &http.Client{Timeout: timeout}, Logger: logger}
}

type lookupResponse struct {
	Status    string   `json:"status"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Lng       *float64 `json:"lng"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r lookupResponse) coordinates() (session.Coordinates, bool) {
	lat := first(r.Lat, r.Latitude)
	lng := first(r.Lon, r.Lng, r.Longitude)
	if lat == nil || lng == nil {
		return session.Coordinates{}, false
	}
	return session.Coordinates{Lat: *lat, Lng: *lng}, true
}

func first(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// Locate implements Locator.
func (h *HTTP) Locate(ctx context.Context) (session.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return session.Coordinates{}, fmt.Errorf("building lookup: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		h.Logger.Warn().Err(err).Str("url", h.URL).Msg("location lookup failed")
		return session.Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return session.Coordinates{}, ErrPermissionDenied
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return session.Coordinates{}, fmt.Errorf("%w: lookup returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return session.Coordinates{}, fmt.Errorf("%w: decoding lookup: %v", ErrUnavailable, err)
	}
	if out.Status != "" && out.Status != "success" {
		return session.Coordinates{}, fmt.Errorf("%w: lookup status %q", ErrUnavailable, out.Status)
	}
	c, ok := out.coordinates()
	if !ok || !c.Valid() {
		return session.Coordinates{}, fmt.Errorf("%w: lookup carried no position", ErrUnavailable)
	}

	h.Logger.Debug().Str("position", c.String()).Msg("location resolved")
	return c, nil
}

// Chain tries each locator in order and returns the first position found.
type Chain []Locator

// Locate implements Locator. The last error is returned when every locator fails.
func (c Chain) Locate(ctx context.Context) (session.Coordinates, error) {
	err := ErrUnavailable
	for _, l := range c {
		pos, lerr := l.Locate(ctx)
		if lerr == nil {
			return pos, nil
		}
		if ctx.Err() != nil {
			return session.Coordinates{}, ctx.Err()
		}
		err = lerr
	}
	return session.Coordinates{}, err
}
