package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mrsinham/medbrain/internal/auth"
)

// flexInt decodes a JSON number or numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*f = flexInt(n)
	return nil
}

type identityPayload struct {
	ID       string  `json:"_id"`
	FullName string  `json:"fullName"`
	Age      flexInt `json:"age"`
	Mobile   string  `json:"mobile"`
	Gender   string  `json:"gender"`
	Email    string  `json:"email"`
	Token    string  `json:"token"`
}

func (p identityPayload) identity() auth.Identity {
	return auth.Identity{
		Subject:  p.ID,
		FullName: p.FullName,
		Age:      int(p.Age),
		Mobile:   p.Mobile,
		Gender:   p.Gender,
		Email:    p.Email,
	}
}

// Check asks the session service who is signed in. A missing or rejected token
// yields auth.ErrUnauthenticated.
func (c *Client) Check(ctx context.Context) (auth.Identity, error) {
	if c.token == "" {
		return auth.Identity{}, auth.ErrUnauthenticated
	}

	var p identityPayload
	_, err := c.do(ctx, request{
		op:     "check session",
		method: http.MethodGet,
		url:    c.apiURL + c.paths.Session,
		auth:   true,
	}, &p)
	if err != nil {
		return auth.Identity{}, err
	}

	id := p.identity()
	id.Token = c.token
	if local, err := auth.FromToken(c.token, time.Now()); err == nil {
		id.ExpiresAt = local.ExpiresAt
		id = local.Merge(id)
	}
	return id, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (auth.Identity, error) {
	r, err := jsonRequest("login", http.MethodPost, c.apiURL+c.paths.Login, map[string]string{
		"email":    email,
		"password": password,
	}, false)
	if err != nil {
		return auth.Identity{}, err
	}

	var p identityPayload
	resp, err := c.do(ctx, r, &p)
	if err != nil {
		return auth.Identity{}, err
	}

	token := p.Token
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.CookieName && ck.Value != "" {
			token = ck.Value
		}
	}
	if token == "" {
		return auth.Identity{}, errors.New("login: response carried no session token")
	}

	id := p.identity()
	id.Token = token
	if local, err := auth.FromToken(token, time.Now()); err == nil {
		id.ExpiresAt = local.ExpiresAt
		id = local.Merge(id)
	}
	return id, nil
}

// UpdateProfile posts profile fields to the session service.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) error {
	r, err := jsonRequest("update profile", http.MethodPost, c.apiURL+c.paths.Profile, fields, true)
	if err != nil {
		return err
	}
	var ack json.RawMessage
	_, err = c.do(ctx, r, &ack)
	return err
}
