package vehicle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/cache"
	"github.com/audiconnect/audi-control/pkg/connector"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
)

// SecurityTokenHeader carries the token obtained by answering an S-PIN challenge.
const SecurityTokenHeader = "X-SecurityToken"

// DefaultRetryInterval is the wait between attempts when the backend reports a transient error.
var DefaultRetryInterval = 2 * time.Second

var (
	// ErrRequiresElectric indicates the command only exists for electric vehicles (api_level 1).
	ErrRequiresElectric = fmt.Errorf("%w: command requires an electric vehicle (api_level 1)", protocol.ErrUnsupported)
)

// Details describe a vehicle as listed on the account.
type Details struct {
	Title     string
	Model     string
	ModelYear int
	CSID      string
}

// A Vehicle represents a car registered to an Audi Connect account.
type Vehicle struct {
	vin           string
	conn          connector.Connector
	level         action.APILevel
	spin          string
	tokens        *cache.TokenCache
	details       Details
	RetryInterval time.Duration
}

// NewVehicle creates a new Vehicle. The spin may be empty, in which case commands that require an
// S-PIN fail with [protocol.ErrRequiresSPIN]. The tokens cache may be nil.
func NewVehicle(conn connector.Connector, vin string, level action.APILevel, spin string, tokens *cache.TokenCache) *Vehicle {
	if tokens == nil {
		tokens = cache.New(0)
	}
	return &Vehicle{
		vin:           strings.ToUpper(vin),
		conn:          conn,
		level:         level,
		spin:          spin,
		tokens:        tokens,
		RetryInterval: DefaultRetryInterval,
	}
}

func (v *Vehicle) VIN() string {
	return v.vin
}

// SetDetails attaches account information that Status reports alongside live vehicle data.
func (v *Vehicle) SetDetails(details Details) {
	v.details = details
}

func (v *Vehicle) Details() Details {
	return v.details
}

func (v *Vehicle) APILevel() action.APILevel {
	return v.level
}

func (v *Vehicle) SPINAvailable() bool {
	return v.spin != ""
}

func (v *Vehicle) endpoint(path string) string {
	return fmt.Sprintf("vehicle/v1/vehicles/%s/%s", v.vin, path)
}

// get fetches a vehicle endpoint, retrying transient failures until ctx expires.
func (v *Vehicle) get(ctx context.Context, path string) ([]byte, error) {
	return v.retry(ctx, func() ([]byte, error) {
		return v.conn.Get(ctx, v.endpoint(path))
	})
}

func (v *Vehicle) retry(ctx context.Context, send func() ([]byte, error)) ([]byte, error) {
	for {
		body, err := send()
		if err == nil {
			return body, nil
		}
		if !protocol.ShouldRetry(err) {
			return body, err
		}
		log.Debug("Retrying after transient error: %s", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(v.RetryInterval):
			continue
		}
	}
}

// execute sends a request built by the action package. Requests that require an S-PIN are
// authorized with a security token first.
func (v *Vehicle) execute(ctx context.Context, request *action.Request) ([]byte, error) {
	var header http.Header
	if request.Security != nil {
		if v.spin == "" {
			if !request.Security.Optional {
				return nil, protocol.ErrRequiresSPIN
			}
			log.Debug("No S-PIN configured; sending %s without security token", request.Security)
		} else {
			token, err := v.securityToken(ctx, *request.Security)
			if err != nil {
				return nil, err
			}
			header = http.Header{}
			header.Set(SecurityTokenHeader, token)
		}
	}

	body, err := v.retry(ctx, func() ([]byte, error) {
		return v.conn.Send(ctx, request.Method, v.endpoint(request.Path), request.Body, header)
	})
	if err != nil && header != nil {
		var httpErr *inet.HttpError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusForbidden {
			// The token may have been revoked early; don't reuse it.
			v.tokens.Invalidate(v.vin, request.Security.String())
		}
	}
	return body, err
}

func (v *Vehicle) executeAction(ctx context.Context, request *action.Request, err error) error {
	if err != nil {
		return err
	}
	_, err = v.execute(ctx, request)
	return err
}

func (v *Vehicle) requireElectric() error {
	if v.level != action.APILevelElectric {
		return ErrRequiresElectric
	}
	return nil
}
