package inet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/connector"
	"github.com/audiconnect/audi-control/pkg/protocol"
)

const (
	// DefaultRateLimit is the sustained number of requests per second a Connection sends. The
	// backend locks accounts that poll aggressively, and unlocking requires waiting it out.
	DefaultRateLimit = rate.Limit(1)
	// DefaultBurst is the number of requests that may be sent back-to-back before DefaultRateLimit
	// applies.
	DefaultBurst = 3

	// RequestIDHeader carries a unique id per request for correlation with backend logs.
	RequestIDHeader = "X-Request-Id"
)

func ReadWithContext(ctx context.Context, r io.Reader, p []byte) ([]byte, error) {
	bytesRead := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n, err := r.Read(p[bytesRead:])
		bytesRead += n
		if err == io.EOF {
			return p[:bytesRead], nil
		}
		if err != nil {
			return p[:bytesRead], err
		}
		if bytesRead == len(p) {
			return p[:bytesRead], nil
		}
	}
}

type HttpError struct {
	Code    int
	Message string
}

func (e *HttpError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(e.Code), e.Message)
}

// Unwrap maps the status code onto the protocol error taxonomy, so callers can use errors.Is with
// protocol.ErrThrottled and friends.
func (e *HttpError) Unwrap() error {
	switch {
	case e.Code == http.StatusTooManyRequests || strings.Contains(strings.ToLower(e.Message), "throttled"):
		return protocol.ErrThrottled
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return protocol.ErrUnauthorized
	case e.Code == http.StatusNotFound:
		return protocol.ErrVehicleNotFound
	case e.Code == http.StatusNotImplemented:
		return protocol.ErrUnsupported
	case e.Code == http.StatusServiceUnavailable:
		return protocol.ErrBusy
	}
	return nil
}

func (e *HttpError) MayHaveSucceeded() bool {
	if e.Code >= 400 && e.Code < 500 {
		return false
	}
	return e.Code != http.StatusServiceUnavailable && e.Code != http.StatusNotImplemented
}

func (e *HttpError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusBadGateway
}

// Connection implements the connector.Connector interface by sending authenticated requests to a
// regional API server.
type Connection struct {
	UserAgent string
	client    *http.Client
	baseURL   string
	tokens    oauth2.TokenSource
	limiter   *rate.Limiter
}

var _ connector.Connector = (*Connection)(nil)

// NewConnection creates a Connection. Each request is authorized with the current token from
// tokens, which is responsible for refreshing expired tokens.
func NewConnection(baseURL string, tokens oauth2.TokenSource, userAgent string) *Connection {
	return &Connection{
		UserAgent: userAgent,
		client:    &http.Client{},
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		tokens:    tokens,
		limiter:   rate.NewLimiter(DefaultRateLimit, DefaultBurst),
	}
}

// SetHTTPClient replaces the http.Client used to send requests.
func (c *Connection) SetHTTPClient(client *http.Client) {
	c.client = client
}

// SetLimiter replaces the rate limiter. A nil limiter disables client-side throttling.
func (c *Connection) SetLimiter(limiter *rate.Limiter) {
	c.limiter = limiter
}

// BaseURL returns the API server the Connection talks to.
func (c *Connection) BaseURL() string {
	return c.baseURL
}

func (c *Connection) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "https://") || strings.HasPrefix(endpoint, "http://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
}

// loggedBody returns the form of body that may appear in debug logs.
func loggedBody(ctx context.Context, body []byte) string {
	if connector.SensitiveBodies(ctx) && len(body) > 0 {
		return log.Mask(string(body))
	}
	return string(body)
}

func (c *Connection) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.Send(ctx, http.MethodGet, endpoint, nil, nil)
}

func (c *Connection) Send(ctx context.Context, method, endpoint string, command interface{}, header http.Header) ([]byte, error) {
	var body []byte
	if command != nil {
		var ok bool
		if body, ok = command.([]byte); !ok {
			var err error
			body, err = json.Marshal(command)
			if err != nil {
				return nil, err
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &protocol.CommandError{Err: err, PossibleSuccess: false, PossibleTemporary: true}
		}
	}

	url := c.url(endpoint)
	log.Debug("Sending %s request to %s: %s", method, url, loggedBody(ctx, body))
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &protocol.CommandError{Err: err, PossibleSuccess: false, PossibleTemporary: false}
	}

	for name, values := range header {
		for _, v := range values {
			request.Header.Add(name, v)
		}
	}
	request.Header.Set("User-Agent", c.UserAgent)
	request.Header.Set("Accept", "application/json")
	request.Header.Set(RequestIDHeader, uuid.New().String())
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) {
				return nil, fmt.Errorf("%w: could not renew access token: %s", protocol.ErrUnauthorized, retrieveErr)
			}
			return nil, fmt.Errorf("could not obtain access token: %w", err)
		}
		token.SetAuthHeader(request)
	}

	result, err := c.client.Do(request)
	if err != nil {
		return nil, &protocol.CommandError{Err: err, PossibleSuccess: method != http.MethodGet, PossibleTemporary: true}
	}
	defer result.Body.Close()

	body = make([]byte, connector.MaxResponseLength+1)
	body, err = ReadWithContext(ctx, result.Body, body)
	if err != nil {
		return nil, &protocol.CommandError{Err: err, PossibleSuccess: true, PossibleTemporary: false}
	}

	if len(body) == connector.MaxResponseLength+1 {
		return nil, protocol.NewError("response exceeds maximum length", true, true)
	}

	log.Debug("Server returned %d: %s: %s", result.StatusCode, http.StatusText(result.StatusCode), loggedBody(ctx, body))
	if result.StatusCode >= 200 && result.StatusCode < 300 {
		return body, nil
	}
	return body, &HttpError{Code: result.StatusCode, Message: strings.TrimSpace(string(body))}
}
