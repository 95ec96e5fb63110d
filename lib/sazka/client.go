// Package sazka scrapes bonus calendars from the Sazka website using an authenticated session.
package sazka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
)

const (
	DefaultBaseURL  = "https://www.sazka.cz"
	DefaultLocation = "Europe/Prague"

	loginPath       = "/api/authentication/login"
	bonusesPath     = "/bonusy-a-souteze"
	bonusPopupsPath = "/api/landing-page/bonus-popups"

	cookiePlayerID     = "PlayerID"
	cookieSessionToken = "SessionToken"
)

type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) validate() error {
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return &AuthError{Message: fmt.Sprintf("invalid email address %q", c.Email)}
	}
	if c.Password == "" {
		return &AuthError{Message: "password must not be empty"}
	}
	return nil
}

// Session identifies an authenticated browsing session.
type Session struct {
	PlayerID string
	Token    string
}

type Client struct {
	creds    Credentials
	http     *http.Client
	baseURL  *url.URL
	location *time.Location
	session  *Session
}

type Option func(*Client)

func WithHTTPClient(cl *http.Client) Option {
	return func(c *Client) { c.http = cl }
}

func WithBaseURL(u *url.URL) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLocation sets the zone for timestamps that carry no offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

// New returns an unauthenticated client. Call Login before fetching anything.
func New(creds Credentials, opts ...Option) *Client {
	baseURL, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		creds:   creds,
		http:    http.DefaultClient,
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.location == nil {
		loc, err := time.LoadLocation(DefaultLocation)
		if err != nil {
			loc = time.UTC
		}
		c.location = loc
	}
	return c
}

// Connect creates a client and logs in.
func Connect(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	c := New(creds, opts...)
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	PlayerID     opaqueString `json:"playerId"`
	SessionToken opaqueString `json:"sessionToken"`
}

// Login exchanges the credentials for a session. It is not retried; on failure the
// client keeps no session.
func (c *Client) Login(ctx context.Context) error {
	c.session = nil
	if err := c.creds.validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	err := requests.URL(c.endpoint(loginPath)).
		Client(c.http).
		Post().
		BodyJSON(loginRequest{Email: c.creds.Email, Password: c.creds.Password}).
		AddValidator(checkLoginStatus).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return authErr
		}
		return &ConnectionError{Op: "login", Err: err}
	}

	var res loginResponse
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		return dataErrorf(err, "could not decode the login response")
	}
	if res.PlayerID == "" || res.SessionToken == "" {
		return &DataError{Message: "the login response did not include playerId and sessionToken"}
	}

	c.session = &Session{PlayerID: string(res.PlayerID), Token: string(res.SessionToken)}
	return nil
}

func checkLoginStatus(res *http.Response) error {
	switch {
	case res.StatusCode >= 400 && res.StatusCode < 500:
		body, _ := io.ReadAll(res.Body)
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &AuthError{Message: msg}
	case res.StatusCode < 200 || res.StatusCode > 299:
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}

// fetch returns the raw body of target, sending the session cookies.
func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	if c.session == nil {
		return nil, &AuthError{Message: "the client is not authenticated"}
	}

	var buf bytes.Buffer
	err := requests.URL(target).
		Client(c.http).
		Cookie(cookiePlayerID, c.session.PlayerID).
		Cookie(cookieSessionToken, c.session.Token).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: "fetch " + target, Err: err}
	}
	return buf.Bytes(), nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// opaqueString accepts a JSON string or number and keeps its text.
type opaqueString string

func (s *opaqueString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = opaqueString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*s = opaqueString(n)
	}
	return nil
}
