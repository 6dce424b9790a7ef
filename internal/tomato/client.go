// Package tomato drives the web admin console of Tomato-family router
// firmware. The firmware has no metrics or remote-shell API; the console's
// shell.cgi endpoint happens to execute shell commands and return their
// stdout, and this package is the narrow adapter that isolates all
// knowledge of that endpoint's quirks behind RunCommand.
package tomato

import (
	"context"
	"crypto/tls"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"tomato-exporter/internal/config"
)

// DefaultTimeout bounds a single console request. Embedded routers are
// slow: shell.cgi forks a shell per command and a loaded MIPS SoC can
// take whole seconds to answer.
const DefaultTimeout = 10 * time.Second

const consolePage = "shell.cgi"

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateValid
	stateExpired
)

// Client owns one device's console transport and session state. It is not
// safe for concurrent use; callers serialize access per device.
type Client struct {
	device  *config.Device
	base    string
	httpCli *http.Client
	extract TokenExtractor
	strip   OutputStripper

	token string
	state sessionState
}

// Option applies options to Client
type Option func(*Client)

// WithTimeout bounds each console request, authentication included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpCli.Timeout = d
	}
}

// WithTLS talks https to the console regardless of the configured scheme.
func WithTLS(insecure bool) Option {
	return func(c *Client) {
		c.httpCli.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
		}
		c.base = "https://" + hostPort(c.device, "https")
	}
}

// WithTokenExtractor overrides how the session token is located in the
// login response. Firmware builds disagree on the exact markup.
func WithTokenExtractor(e TokenExtractor) Option {
	return func(c *Client) {
		c.extract = e
	}
}

// WithOutputStripper overrides how command stdout is isolated from the
// console page chrome.
func WithOutputStripper(s OutputStripper) Option {
	return func(c *Client) {
		c.strip = s
	}
}

// NewClient creates a console client for one device. The session starts
// unauthenticated; the first command triggers a login.
func NewClient(d *config.Device, opts ...Option) *Client {
	scheme := d.Scheme
	if scheme == "" {
		scheme = "http"
	}

	c := &Client{
		device:  d,
		base:    scheme + "://" + hostPort(d, scheme),
		httpCli: &http.Client{Timeout: DefaultTimeout},
		extract: DefaultTokenExtractor,
		strip:   DefaultOutputStripper,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

func hostPort(d *config.Device, scheme string) string {
	port := d.Port
	if port == "" {
		if scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return d.Address + ":" + port
}

// Login authenticates against the console root with Basic auth and
// extracts the session token the UI scripts use to authorize console
// calls. A non-success status means the credentials were refused; a
// success status without a locatable token means the firmware renders a
// page this exporter does not understand.
func (c *Client) Login(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return fmt.Errorf("tomato: build login request: %w", err)
	}
	req.SetBasicAuth(c.device.User, c.device.Password)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("tomato: login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrAuthRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", ErrAuthRejected, resp.StatusCode)
	}

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tomato: read login response: %w", err)
	}

	token, ok := c.extract(string(b))
	if !ok {
		return ErrMalformedAuthResponse
	}

	log.WithFields(log.Fields{
		"device": c.device.Name,
	}).Debug("session established")

	c.token = token
	c.state = stateValid

	return nil
}

// RunCommand executes a shell command through the console endpoint and
// returns its stdout with UI chrome stripped.
func (c *Client) RunCommand(ctx context.Context, command string) (string, error) {
	body, err := c.submit(ctx, consolePage, url.Values{
		"action":      {"execute"},
		"nojs":        {"1"},
		"working_dir": {"/www"},
		"command":     {command},
	})
	if err != nil {
		return "", err
	}

	out := c.strip(body)
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyOutput
	}

	return out, nil
}

// FetchPage issues an authenticated console request to an arbitrary page,
// for collectors that scrape the UI's data endpoints (status-data.jsx,
// update.cgi) instead of running shell commands. The body is returned
// unstripped; those pages have their own formats.
func (c *Client) FetchPage(ctx context.Context, page string, form url.Values) (string, error) {
	if form == nil {
		form = url.Values{}
	}
	return c.submit(ctx, page, form)
}

// submit sends one authenticated console request, refreshing the session
// exactly once if the router rejects a previously valid token.
func (c *Client) submit(ctx context.Context, page string, form url.Values) (string, error) {
	if c.state != stateValid {
		if err := c.Login(ctx); err != nil {
			return "", err
		}
	}

	body, status, err := c.post(ctx, page, form)
	if err != nil {
		return "", err
	}

	if unauthorized(status) {
		c.state = stateExpired
		log.WithFields(log.Fields{
			"device": c.device.Name,
			"page":   page,
		}).Debug("session expired, re-authenticating")

		if err := c.Login(ctx); err != nil {
			return "", err
		}

		body, status, err = c.post(ctx, page, form)
		if err != nil {
			return "", err
		}
		if unauthorized(status) {
			c.state = stateExpired
			return "", ErrUnauthorized
		}
	}

	if status < 200 || status > 299 {
		return "", fmt.Errorf("tomato: %s: unexpected status %d", page, status)
	}

	return body, nil
}

func (c *Client) post(ctx context.Context, page string, form url.Values) (string, int, error) {
	form.Set("_http_id", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+page, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("tomato: build request: %w", err)
	}
	req.SetBasicAuth(c.device.User, c.device.Password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("tomato: %s: %w", page, err)
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("tomato: %s: read response: %w", page, err)
	}

	return string(b), resp.StatusCode, nil
}

func unauthorized(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
