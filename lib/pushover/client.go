// Package pushover sends push notifications through the Pushover message API.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/carlmjohnson/requests"
)

const (
	DefaultBaseURL = "https://api.pushover.net/1/"

	validatePath = "users/validate.json"
	messagesPath = "messages.json"

	headerLimit     = "X-Limit-App-Limit"
	headerRemaining = "X-Limit-App-Remaining"
	headerReset     = "X-Limit-App-Reset"

	unknownError = "Failed to get the error message"

	formContentType = "application/x-www-form-urlencoded"
)

// Limits is the application's message quota as reported with each send.
type Limits struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

type Client struct {
	token   string
	user    string
	http    *http.Client
	baseURL *url.URL
}

type Option func(*Client)

func WithHTTPClient(cl *http.Client) Option {
	return func(c *Client) { c.http = cl }
}

// WithBaseURL points the client at another API root. A trailing slash is added when missing.
func WithBaseURL(u *url.URL) Option {
	return func(c *Client) {
		base := *u
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		c.baseURL = &base
	}
}

// NewClient checks the token and user key with the API and returns a client holding them.
// No client is returned when validation fails.
func NewClient(ctx context.Context, token, user string, opts ...Option) (*Client, error) {
	baseURL, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		token:   token,
		user:    user,
		http:    http.DefaultClient,
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) validate(ctx context.Context) error {
	if utf8.RuneCountInString(c.token) != credentialLen {
		return &AuthError{Message: "API token must be exactly 30 characters"}
	}
	if utf8.RuneCountInString(c.user) != credentialLen {
		return &AuthError{Message: "User key must be exactly 30 characters"}
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.user)

	res, err := c.post(ctx, validatePath, []byte(form.Encode()), formContentType)
	if err != nil {
		return &ConnectionError{Op: "validate", Err: err}
	}
	if msg, failed := res.failure(); failed {
		return &AuthError{Message: msg}
	}
	if err := res.checkStatus(); err != nil {
		return &ConnectionError{Op: "validate", Err: err}
	}
	if !res.decoded {
		return &ConnectionError{Op: "validate", Err: errors.New("could not decode the API response")}
	}
	return nil
}

// SendMessage delivers a copy of m using the client's token and user key.
// The returned Limits are informational; a spent quota is not an error.
func (c *Client) SendMessage(ctx context.Context, m *Message) (Limits, error) {
	msg := *m
	msg.Token = c.token
	msg.User = c.user
	if err := msg.Validate(); err != nil {
		return Limits{}, err
	}

	body, contentType, err := encode(&msg)
	if err != nil {
		return Limits{}, err
	}

	res, err := c.post(ctx, messagesPath, body, contentType)
	if err != nil {
		return Limits{}, &ConnectionError{Op: "send message", Err: err}
	}
	if text, failed := res.failure(); failed {
		return Limits{}, &APIError{Message: text}
	}
	if err := res.checkStatus(); err != nil {
		return Limits{}, &ConnectionError{Op: "send message", Err: err}
	}
	if !res.decoded {
		return Limits{}, &APIError{Message: "could not decode the API response"}
	}
	return res.limits(), nil
}

// encode returns the request body and its content type, multipart when a binary attachment is present.
func encode(m *Message) ([]byte, string, error) {
	values := m.values()
	if len(m.Attachment) == 0 {
		return []byte(values.Encode()), formContentType, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, values.Get(k)); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("attachment", "attachment")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(m.Attachment); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

type apiResponse struct {
	status  int
	header  http.Header
	decoded bool
	body    struct {
		Status *int     `json:"status"`
		Errors []string `json:"errors"`
	}
}

// post sends body to path. Every HTTP status is accepted so that the API's own
// status flag can be inspected first.
func (c *Client) post(ctx context.Context, path string, body []byte, contentType string) (*apiResponse, error) {
	res := &apiResponse{}
	err := requests.URL(c.endpoint(path)).
		Client(c.http).
		Post().
		BodyBytes(body).
		ContentType(contentType).
		AddValidator(func(*http.Response) error { return nil }).
		Handle(func(r *http.Response) error {
			res.status = r.StatusCode
			res.header = r.Header
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				return err
			}
			res.decoded = json.Unmarshal(raw, &res.body) == nil
			return nil
		}).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// failure reports whether the decoded body carries status 0, with the first error message.
func (r *apiResponse) failure() (string, bool) {
	if !r.decoded {
		return "", false
	}
	if r.body.Status != nil && *r.body.Status != 0 {
		return "", false
	}
	if len(r.body.Errors) == 0 {
		return unknownError, true
	}
	return capitalize(r.body.Errors[0]), true
}

func (r *apiResponse) checkStatus() error {
	if r.status < 200 || r.status > 299 {
		return fmt.Errorf("unexpected status %d", r.status)
	}
	return nil
}

func (r *apiResponse) limits() Limits {
	l := Limits{
		Limit:     headerInt(r.header, headerLimit),
		Remaining: headerInt(r.header, headerRemaining),
	}
	if reset := headerInt(r.header, headerReset); reset > 0 {
		l.Reset = time.Unix(int64(reset), 0).UTC()
	}
	return l
}

func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(h.Get(key)))
	if err != nil {
		return 0
	}
	return n
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}
