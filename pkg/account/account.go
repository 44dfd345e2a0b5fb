package account

import (
	"context"
	_ "embed" // Used to embed version for use with user agent
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/cache"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

var (
	//go:embed version.txt
	libraryVersion string
)

func buildUserAgent(app string) string {
	library := strings.TrimSpace("audi-control/" + libraryVersion)
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return library
	}
	path := strings.Split(build.Path, "/")
	if len(path) == 0 {
		return library
	}

	if app == "" {
		app = path[len(path)-1]
		var version string
		if build.Main.Version != "(devel)" && build.Main.Version != "" {
			version = build.Main.Version
		} else {
			for _, info := range build.Settings {
				if info.Key == "vcs.revision" {
					if len(info.Value) > 8 {
						version = info.Value[0:8]
					}
					break
				}
			}
		}

		if version != "" {
			app = fmt.Sprintf("%s/%s", app, version)
		}
	}

	return fmt.Sprintf("%s %s", app, library)
}

// Account allows interaction with an Audi Connect account.
type Account struct {
	// The default UserAgent is constructed from the application's build info, but can be
	// overridden with WithUserAgent.
	UserAgent string
	// Subject and Expiry are read from the access token issued at login, when it is a JWT.
	Subject string
	Expiry  time.Time
	Region  Region

	conn           *inet.Connection
	spin           string
	level          action.APILevel
	securityTokens *cache.TokenCache
}

// New returns an [Account] that sends requests to region's API servers using tokens. Most callers
// should use [Login] instead.
func New(region Region, tokens oauth2.TokenSource, userAgent string) *Account {
	return &Account{
		UserAgent:      userAgent,
		Region:         region,
		conn:           inet.NewConnection(region.APIBaseURL, tokens, userAgent),
		securityTokens: cache.New(0),
	}
}

// SetSPIN sets the S-PIN used by vehicles returned from GetVehicle.
func (a *Account) SetSPIN(spin string) {
	a.spin = spin
}

// SetAPILevel sets the API level of vehicles returned from GetVehicle.
func (a *Account) SetAPILevel(level action.APILevel) {
	a.level = level
}

// Connection returns the authenticated connection to the account's API servers.
func (a *Account) Connection() *inet.Connection {
	return a.conn
}

// We don't verify JWTs; the token came straight from the token endpoint over TLS.
func (a *Account) readClaims(token *oauth2.Token) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, claims); err != nil {
		log.Debug("Access token is not a JWT: %s", err)
		if !token.Expiry.IsZero() {
			a.Expiry = token.Expiry
		}
		return
	}
	if sub, err := claims.GetSubject(); err == nil {
		a.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		a.Expiry = exp.Time
	} else {
		a.Expiry = token.Expiry
	}
}

// VehicleSummary describes a vehicle registered to the account.
type VehicleSummary struct {
	VIN       string `json:"vin" yaml:"vin"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	ModelYear int    `json:"model_year,omitempty" yaml:"model_year,omitempty"`
	CSID      string `json:"csid,omitempty" yaml:"csid,omitempty"`
	// Name and Notes come from the local configuration file, not the account.
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

type vehicleRecord struct {
	VIN       string `json:"vin"`
	Nickname  string `json:"nickname"`
	Model     string `json:"model"`
	ModelYear int    `json:"modelYear"`
	CSID      string `json:"csid"`
}

// Vehicles lists the vehicles registered to the account.
func (a *Account) Vehicles(ctx context.Context) ([]VehicleSummary, error) {
	body, err := a.conn.Get(ctx, "vehicle/v2/vehicles")
	if err != nil {
		return nil, fmt.Errorf("could not fetch vehicle list: %w", err)
	}
	var list struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
	}

	vehicles := make([]VehicleSummary, 0, len(list.Data))
	for _, raw := range list.Data {
		var record vehicleRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
		}
		vehicles = append(vehicles, VehicleSummary{
			VIN:       strings.ToUpper(record.VIN),
			Title:     record.Nickname,
			Model:     record.Model,
			ModelYear: record.ModelYear,
			CSID:      record.CSID,
			Raw:       raw,
		})
	}
	log.Debug("Account has %d vehicles", len(vehicles))
	return vehicles, nil
}

// GetVehicle returns the Vehicle belonging to the account with the provided vin. It returns a
// [protocol.VehicleNotFoundError] listing the account's VINs if there is no such vehicle.
func (a *Account) GetVehicle(ctx context.Context, vin string) (*vehicle.Vehicle, error) {
	vehicles, err := a.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	vin = strings.ToUpper(strings.TrimSpace(vin))
	available := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		if v.VIN == vin {
			car := vehicle.NewVehicle(a.conn, vin, a.level, a.spin, a.securityTokens)
			car.SetDetails(vehicle.Details{Title: v.Title, Model: v.Model, ModelYear: v.ModelYear, CSID: v.CSID})
			return car, nil
		}
		available = append(available, v.VIN)
	}
	return nil, &protocol.VehicleNotFoundError{VIN: vin, Available: available}
}

// WriteText writes one vehicle per line.
func (v VehicleSummary) WriteText(w io.Writer) error {
	line := v.VIN
	if v.Name != "" {
		line += fmt.Sprintf(" (%s)", v.Name)
	}
	var details []string
	for _, d := range []string{v.Title, v.Model} {
		if d != "" {
			details = append(details, d)
		}
	}
	if v.ModelYear != 0 {
		details = append(details, fmt.Sprintf("%d", v.ModelYear))
	}
	if len(details) > 0 {
		line += ": " + strings.Join(details, ", ")
	}
	if v.Notes != "" {
		line += " [" + v.Notes + "]"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
