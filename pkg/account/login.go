package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/connector"
	"github.com/audiconnect/audi-control/pkg/protocol"
)

const (
	DefaultLoginAttempts   = 3
	DefaultLoginRetryDelay = 2 * time.Second

	// TokenExpiryMargin is how long before expiry an access token is renewed.
	TokenExpiryMargin = time.Minute

	throttledMarker = "login.error.throttled"
	maxRedirects    = 10
)

var ErrMissingCredentials = errors.New("username, password and country are required")

// Credentials identify an account. They are only held in memory.
type Credentials struct {
	Username string
	Password string
	Country  string
	SPIN     string
	APILevel action.APILevel
}

type loginConfig struct {
	region     *Region
	client     *http.Client
	userAgent  string
	attempts   int
	retryDelay time.Duration
}

// LoginOption customizes Login.
type LoginOption func(*loginConfig)

// WithRegion overrides the region derived from Credentials.Country.
func WithRegion(region Region) LoginOption {
	return func(c *loginConfig) {
		c.region = &region
	}
}

// WithHTTPClient sets the client used for API requests after login. The identity provider is
// contacted with a separate client that holds session cookies.
func WithHTTPClient(client *http.Client) LoginOption {
	return func(c *loginConfig) {
		c.client = client
	}
}

// WithUserAgent sets the application name reported in the User-Agent header.
func WithUserAgent(app string) LoginOption {
	return func(c *loginConfig) {
		c.userAgent = app
	}
}

// WithRetries sets how many times Login attempts to authenticate and how long it waits between
// attempts. Throttling and rejected credentials are never retried.
func WithRetries(attempts int, delay time.Duration) LoginOption {
	return func(c *loginConfig) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts = attempts
		c.retryDelay = delay
	}
}

// Login authenticates against the identity provider of the credentials' region and returns an
// Account whose access token is renewed automatically.
func Login(ctx context.Context, creds Credentials, options ...LoginOption) (*Account, error) {
	if creds.Username == "" || creds.Password == "" || creds.Country == "" {
		return nil, ErrMissingCredentials
	}
	cfg := loginConfig{attempts: DefaultLoginAttempts, retryDelay: DefaultLoginRetryDelay}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.region == nil {
		region, err := RegionByCountry(creds.Country)
		if err != nil {
			return nil, err
		}
		cfg.region = &region
	}
	if cfg.client == nil {
		cfg.client = &http.Client{}
	}
	userAgent := buildUserAgent(cfg.userAgent)

	var token *oauth2.Token
	var err error
	for attempt := 1; attempt <= cfg.attempts; attempt++ {
		token, err = authorize(ctx, cfg.region, cfg.client, creds, userAgent)
		if err == nil {
			break
		}
		if errors.Is(err, protocol.ErrThrottled) || errors.Is(err, protocol.ErrUnauthorized) || attempt == cfg.attempts {
			return nil, err
		}
		log.Warning("Login attempt %d of %d failed: %s", attempt, cfg.attempts, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.retryDelay):
		}
	}

	oauthConfig := cfg.region.oauthConfig()
	// Refreshes happen after Login returns, so they must not use ctx.
	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, cfg.client)
	tokens := oauth2.ReuseTokenSourceWithExpiry(token, oauthConfig.TokenSource(refreshCtx, token), TokenExpiryMargin)

	acct := New(*cfg.region, tokens, userAgent)
	acct.conn.SetHTTPClient(cfg.client)
	acct.spin = creds.SPIN
	acct.level = creds.APILevel
	acct.readClaims(token)
	log.Info("Logged in to %s region as %s", cfg.region.Country, log.Mask(creds.Username))
	return acct, nil
}

func (r *Region) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: r.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   r.AuthURL,
			TokenURL:  r.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: r.RedirectURL,
		Scopes:      r.Scopes,
	}
}

// loginSession walks the identity provider's HTML forms. It keeps cookies between pages and stops
// at the redirect that carries the authorization code.
type loginSession struct {
	client    *http.Client
	userAgent string
}

func newLoginSession(region *Region, base *http.Client, userAgent string) (*loginSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{
		Transport: base.Transport,
		Timeout:   base.Timeout,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			target := req.URL.String()
			if strings.HasPrefix(target, region.RedirectURL) || strings.Contains(target, "login.error") {
				return http.ErrUseLastResponse
			}
			req.Header.Set("User-Agent", userAgent)
			return nil
		},
	}
	return &loginSession{client: client, userAgent: userAgent}, nil
}

func (s *loginSession) do(request *http.Request) (*http.Response, error) {
	request.Header.Set("User-Agent", s.userAgent)
	log.Debug("Login: %s %s", request.Method, request.URL.Redacted())
	response, err := s.client.Do(request)
	if err != nil {
		return nil, &protocol.CommandError{Err: err, PossibleSuccess: false, PossibleTemporary: true}
	}
	return response, nil
}

// loginForm is an HTML form scraped from the identity provider, with its hidden inputs.
type loginForm struct {
	action *url.URL
	values url.Values
}

func parseLoginForm(response *http.Response) (*loginForm, error) {
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned %s", response.Status)
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(response.Body, connector.MaxResponseLength))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
	}
	form := doc.Find("form#emailPasswordForm, form#credentialsForm").First()
	if form.Length() == 0 {
		form = doc.Find("form").First()
	}
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: login page has no form", protocol.ErrBadResponse)
	}

	target, _ := form.Attr("action")
	action, err := response.Request.URL.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid form action %q", protocol.ErrBadResponse, target)
	}
	values := url.Values{}
	form.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		if name, ok := input.Attr("name"); ok && name != "" {
			values.Set(name, input.AttrOr("value", ""))
		}
	})
	for _, required := range []string{"_csrf", "relayState", "hmac"} {
		if values.Get(required) == "" {
			log.Debug("Login form is missing %s", required)
		}
	}
	return &loginForm{action: action, values: values}, nil
}

func (s *loginSession) submit(ctx context.Context, form *loginForm) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, form.action.String(), strings.NewReader(form.values.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(request)
}

// checkRedirect inspects a response the session refused to follow. It returns the authorization
// code, or an error if the identity provider redirected to an error page.
func checkRedirect(response *http.Response) (string, error) {
	location := response.Header.Get("Location")
	if location == "" {
		return "", nil
	}
	if strings.Contains(location, throttledMarker) {
		return "", protocol.ErrThrottled
	}
	target, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: invalid redirect", protocol.ErrBadResponse)
	}
	query := target.Query()
	if target.RawQuery == "" && target.Fragment != "" {
		query, _ = url.ParseQuery(target.Fragment)
	}
	if code := query.Get("code"); code != "" {
		return code, nil
	}
	if reason := query.Get("error"); reason != "" {
		return "", fmt.Errorf("%w: %s", protocol.ErrUnauthorized, reason)
	}
	return "", nil
}

// isRedirect returns true for responses the session stopped at.
func isRedirect(response *http.Response) bool {
	return response.StatusCode >= 300 && response.StatusCode < 400
}

// authorize performs one complete login: authorization request, e-mail form, password form, and
// code exchange.
func authorize(ctx context.Context, region *Region, base *http.Client, creds Credentials, userAgent string) (*oauth2.Token, error) {
	session, err := newLoginSession(region, base, userAgent)
	if err != nil {
		return nil, err
	}
	config := region.oauthConfig()
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	authURL := config.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("nonce", uuid.NewString()),
		oauth2.SetAuthURLParam("prompt", "login"),
	)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return nil, err
	}
	response, err := session.do(request)
	if err != nil {
		return nil, err
	}
	if isRedirect(response) {
		response.Body.Close()
		_, err := checkRedirect(response)
		if err == nil {
			err = fmt.Errorf("%w: unexpected redirect before login", protocol.ErrBadResponse)
		}
		return nil, err
	}
	form, err := parseLoginForm(response)
	if err != nil {
		return nil, err
	}

	form.values.Set("email", creds.Username)
	if response, err = session.submit(ctx, form); err != nil {
		return nil, err
	}
	if isRedirect(response) {
		response.Body.Close()
		_, err := checkRedirect(response)
		if err == nil {
			err = fmt.Errorf("%w: e-mail address rejected", protocol.ErrUnauthorized)
		}
		return nil, err
	}
	if form, err = parseLoginForm(response); err != nil {
		return nil, err
	}

	form.values.Set("email", creds.Username)
	form.values.Set("password", creds.Password)
	if response, err = session.submit(ctx, form); err != nil {
		return nil, err
	}
	response.Body.Close()
	code, err := checkRedirect(response)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: identity provider did not issue an authorization code", protocol.ErrUnauthorized)
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	token, err := config.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusTooManyRequests {
			return nil, protocol.ErrThrottled
		}
		return nil, fmt.Errorf("could not exchange authorization code: %w", err)
	}
	return token, nil
}
