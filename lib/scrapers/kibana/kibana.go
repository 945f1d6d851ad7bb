// Package kibana drives a Kibana-style analytics UI through a browser
// session: authenticate, open a saved report view, harvest the results
// table. The UI has no public API and its markup drifts between
// releases, so every element lookup runs through an ordered candidate
// chain and failures carry enough context to debug offline.
package kibana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"appointments-backend/lib/browser"
	"appointments-backend/lib/selector"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/kibana")

var (
	// a whole logical login field could not be resolved after all
	// candidates, fatal to the run
	ErrAuthFieldNotFound = errors.New("login field not found")
	// authentication explicitly or inferentially failed
	ErrSessionRejected = errors.New("session rejected")
	// the report view rendered without a results table
	ErrNoResultsSurface = errors.New("no results table on report view")
)

// SessionState classifies the outcome of login verification.
type SessionState int

const (
	SessionRejected SessionState = iota
	SessionVerified
	// the browser left the login surface but no positive success
	// marker was seen; treated as usable, reported as a warning
	SessionAmbiguous
)

func (s SessionState) String() string {
	switch s {
	case SessionVerified:
		return "verified"
	case SessionAmbiguous:
		return "ambiguous"
	default:
		return "rejected"
	}
}

// Selectors holds the ordered locator candidates for every logical UI
// target. Order matters: the most release-specific locator goes first,
// the most generic last.
type Selectors struct {
	IdpEntry       []string
	Username       []string
	Password       []string
	Submit         []string
	SuccessMarkers []string
	ErrorMarkers   []string
	ResultsTable   []string
}

func DefaultSelectors() Selectors {
	return Selectors{
		IdpEntry: []string{
			`[data-test-subj="loginCard-elasticsearch"]`,
			`text="Log in with Elasticsearch"`,
			`button:has-text("Elasticsearch")`,
		},
		Username: []string{
			`input[name="username"]`,
			`input[type="email"]`,
			`input[type="text"]`,
			`#username`,
		},
		Password: []string{
			`input[type="password"]`,
			`input[name="password"]`,
			`#password`,
		},
		Submit: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
			`button:has-text("Log in")`,
			`form button`,
		},
		SuccessMarkers: []string{
			`[data-test-subj="kibanaChrome"]`,
			`.euiHeader`,
			`nav[aria-label="Primary"]`,
			`.kbnAppWrapper`,
		},
		ErrorMarkers: []string{
			`.euiCallOut--danger`,
			`.alert-danger`,
			`.error`,
		},
		ResultsTable: []string{
			`[data-test-subj="discoverDocTable"] table`,
			`.euiDataGrid`,
			`.kuiTable table`,
			`table`,
		},
	}
}

type ClientOptions struct {
	BaseUrl string
	Page    browser.Page
	// zero value falls back to DefaultSelectors
	Selectors Selectors
	// bound on each individual candidate wait, default 3s
	PerTryTimeout time.Duration
	// fixed settle interval between verification rounds, default 3s
	SettleInterval time.Duration
	// verification rounds before classifying by URL, default 3
	VerifyRounds int
}

type Client struct {
	baseUrl *url.URL
	page    browser.Page
	sel     Selectors

	perTry       time.Duration
	settle       time.Duration
	verifyRounds int
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.Page == nil {
		return nil, fmt.Errorf("a page was not provided")
	}

	sel := opts.Selectors
	if len(sel.Username) == 0 {
		sel = DefaultSelectors()
	}
	perTry := opts.PerTryTimeout
	if perTry == 0 {
		perTry = time.Second * 3
	}
	settle := opts.SettleInterval
	if settle == 0 {
		settle = time.Second * 3
	}
	rounds := opts.VerifyRounds
	if rounds == 0 {
		rounds = 3
	}

	return &Client{
		baseUrl:      baseUrl,
		page:         opts.Page,
		sel:          sel,
		perTry:       perTry,
		settle:       settle,
		verifyRounds: rounds,
	}, nil
}

// reports whether the address still looks like a login or auth surface
func onAuthSurface(rawUrl string) bool {
	lower := strings.ToLower(rawUrl)
	return strings.Contains(lower, "login") || strings.Contains(lower, "auth")
}

// Login drives the multi-step login flow: optional identity-provider
// entry, credentials entry, submission, then a bounded verification
// loop. The returned state is meaningful even on error.
func (c *Client) Login(ctx context.Context, username, password string) (SessionState, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	err := c.page.Goto(c.baseUrl.String(), time.Second*30)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reach login surface")
		return SessionRejected, err
	}
	if err := c.page.WaitForLoad(time.Second * 15); err != nil {
		slog.DebugContext(ctx, "load state did not settle before login", "err", err)
	}

	// some deployments go straight to the credentials form, a missing
	// identity provider entry is not an error
	if entry, ok := selector.Resolve(ctx, c.page, c.sel.IdpEntry, c.perTry); ok {
		slog.InfoContext(ctx, "entering through identity provider control")
		if err := entry.Click(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to click identity provider entry")
			return SessionRejected, err
		}
		if err := c.page.WaitForLoad(time.Second * 10); err != nil {
			slog.DebugContext(ctx, "load state did not settle after idp entry", "err", err)
		}
	} else {
		slog.DebugContext(ctx, "no identity provider entry, continuing to credentials")
	}

	usernameField, ok := selector.Resolve(ctx, c.page, c.sel.Username, c.perTry)
	if !ok {
		span.SetStatus(codes.Error, "username field not found")
		return SessionRejected, fmt.Errorf("%w: username", ErrAuthFieldNotFound)
	}
	if err := usernameField.Fill(username); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fill username")
		return SessionRejected, err
	}

	passwordField, ok := selector.Resolve(ctx, c.page, c.sel.Password, c.perTry)
	if !ok {
		span.SetStatus(codes.Error, "password field not found")
		return SessionRejected, fmt.Errorf("%w: password", ErrAuthFieldNotFound)
	}
	if err := passwordField.Fill(password); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fill password")
		return SessionRejected, err
	}

	// absence of a submit control is never fatal, a key press on the
	// password field submits the form on every observed release
	if submit, ok := selector.Resolve(ctx, c.page, c.sel.Submit, c.perTry); ok {
		if err := submit.Click(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to click submit")
			return SessionRejected, err
		}
	} else {
		slog.InfoContext(ctx, "no submit control found, pressing Enter")
		if err := passwordField.Press("Enter"); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to press Enter")
			return SessionRejected, err
		}
	}

	state, err := c.verify(ctx)
	span.SetAttributes(attribute.String("session_state", state.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return state, err
}

const (
	successProbeTimeout = time.Second * 2
	errorProbeTimeout   = time.Second * 1
)

func (c *Client) verify(ctx context.Context) (SessionState, error) {
	ctx, span := tracer.Start(ctx, "client:verify")
	defer span.End()

	for round := 1; round <= c.verifyRounds; round++ {
		c.page.Sleep(c.settle)
		slog.DebugContext(ctx, "verification round", "round", round, "url", c.page.URL())

		if _, ok := selector.Resolve(ctx, c.page, c.sel.SuccessMarkers, successProbeTimeout); ok {
			return SessionVerified, nil
		}

		if marker, ok := selector.Resolve(ctx, c.page, c.sel.ErrorMarkers, errorProbeTimeout); ok {
			text, err := marker.InnerText()
			if err != nil {
				text = "(unreadable error marker)"
			}
			return SessionRejected, fmt.Errorf("%w: %s", ErrSessionRejected, strings.TrimSpace(text))
		}

		if !onAuthSurface(c.page.URL()) {
			slog.WarnContext(ctx, "left the login surface without a positive marker", "url", c.page.URL())
			return SessionAmbiguous, nil
		}
	}

	finalUrl := c.page.URL()
	if onAuthSurface(finalUrl) {
		return SessionRejected, fmt.Errorf(
			"%w: still on login surface after %d rounds: %s",
			ErrSessionRejected, c.verifyRounds, finalUrl,
		)
	}
	slog.WarnContext(ctx, "verification rounds exhausted off the login surface", "url", finalUrl)
	return SessionAmbiguous, nil
}

// cookie names observed across hosted deployments
var sessionCookieNames = []string{"sid", "elastic_session"}

// LoginWithCookie seeds the browser context with an existing session
// cookie instead of driving the credentials flow, then verifies the
// session the same way Login does.
func (c *Client) LoginWithCookie(ctx context.Context, sessionCookie string) (SessionState, error) {
	ctx, span := tracer.Start(ctx, "client:LoginWithCookie")
	defer span.End()

	// navigate first so the cookie domain context exists
	err := c.page.Goto(c.baseUrl.String(), time.Second*30)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reach base url")
		return SessionRejected, err
	}

	host := c.baseUrl.Hostname()
	var cookies []browser.Cookie
	for _, name := range sessionCookieNames {
		for _, domain := range []string{host, "." + host} {
			cookies = append(cookies, browser.Cookie{
				Name:     name,
				Value:    sessionCookie,
				Domain:   domain,
				Path:     "/",
				HttpOnly: true,
				Secure:   true,
			})
		}
	}
	if err := c.page.SetCookies(cookies...); err != nil {
		slog.WarnContext(ctx, "failed to seed session cookies", "err", err)
	}

	err = c.page.Goto(c.baseUrl.JoinPath("app", "home").String(), time.Second*30)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reach home app")
		return SessionRejected, err
	}
	if err := c.page.WaitForLoad(time.Second * 20); err != nil {
		slog.DebugContext(ctx, "load state did not settle after cookie seed", "err", err)
	}

	if onAuthSurface(c.page.URL()) {
		err := fmt.Errorf("%w: cookie session bounced to login: %s", ErrSessionRejected, c.page.URL())
		span.SetStatus(codes.Error, err.Error())
		return SessionRejected, err
	}
	if _, ok := selector.Resolve(ctx, c.page, c.sel.SuccessMarkers, successProbeTimeout); ok {
		return SessionVerified, nil
	}
	slog.WarnContext(ctx, "could not verify cookie session with a ui marker, continuing")
	return SessionAmbiguous, nil
}
