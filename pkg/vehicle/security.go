// File implements S-PIN authorization and commands that require it.

package vehicle

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/connector"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
)

// SecurityTokenLifetime is how long a security token is reused before a new S-PIN challenge is
// answered.
var SecurityTokenLifetime = 5 * time.Minute

var (
	ErrInvalidSPIN = errors.New("S-PIN must be exactly four digits")

	spinRE = regexp.MustCompile(`^[0-9]{4}$`)
)

// ValidateSPIN returns ErrInvalidSPIN unless spin is four digits.
func ValidateSPIN(spin string) error {
	if !spinRE.MatchString(spin) {
		return ErrInvalidSPIN
	}
	return nil
}

type pinChallenge struct {
	SecurityPinAuthInfo struct {
		SecurityToken           string `json:"securityToken"`
		SecurityPinTransmission struct {
			Challenge            string `json:"challenge"`
			HashProcedureVersion int    `json:"hashProcedureVersion"`
		} `json:"securityPinTransmission"`
	} `json:"securityPinAuthInfo"`
}

type pinAuthentication struct {
	SecurityPinAuthentication struct {
		SecurityPin struct {
			Challenge       string `json:"challenge"`
			SecurityPinHash string `json:"securityPinHash"`
		} `json:"securityPin"`
		SecurityToken string `json:"securityToken"`
	} `json:"securityPinAuthentication"`
}

type pinResult struct {
	SecurityToken string `json:"securityToken"`
}

// HashSPIN answers an S-PIN challenge. Both the PIN digits and the challenge are interpreted as
// hex-encoded bytes; the result is the upper-case hex SHA-512 of their concatenation.
func HashSPIN(spin, challenge string) (string, error) {
	if err := ValidateSPIN(spin); err != nil {
		return "", err
	}
	pinBytes, err := hex.DecodeString(spin)
	if err != nil {
		return "", ErrInvalidSPIN
	}
	challengeBytes, err := hex.DecodeString(challenge)
	if err != nil {
		return "", fmt.Errorf("%w: malformed S-PIN challenge", protocol.ErrBadResponse)
	}
	digest := sha512.Sum512(append(pinBytes, challengeBytes...))
	return strings.ToUpper(hex.EncodeToString(digest[:])), nil
}

// securityToken returns a token that authorizes op, answering a fresh S-PIN challenge unless a
// valid token is cached.
func (v *Vehicle) securityToken(ctx context.Context, op action.Operation) (string, error) {
	if token, ok := v.tokens.Get(v.vin, op.String()); ok {
		log.Debug("Using cached security token for %s", op)
		return token, nil
	}

	log.Debug("Requesting S-PIN challenge for %s", op)
	ctx = connector.WithSensitiveBodies(ctx)
	body, err := v.conn.Get(ctx, v.endpoint("spin/challenge?operation="+url.QueryEscape(op.String())))
	if err != nil {
		return "", fmt.Errorf("could not request S-PIN challenge: %w", err)
	}
	var challenge pinChallenge
	if err := json.Unmarshal(body, &challenge); err != nil {
		return "", fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
	}
	info := challenge.SecurityPinAuthInfo
	if info.SecurityToken == "" || info.SecurityPinTransmission.Challenge == "" {
		return "", fmt.Errorf("%w: S-PIN challenge missing", protocol.ErrBadResponse)
	}

	hash, err := HashSPIN(v.spin, info.SecurityPinTransmission.Challenge)
	if err != nil {
		return "", err
	}
	var answer pinAuthentication
	answer.SecurityPinAuthentication.SecurityPin.Challenge = info.SecurityPinTransmission.Challenge
	answer.SecurityPinAuthentication.SecurityPin.SecurityPinHash = hash
	answer.SecurityPinAuthentication.SecurityToken = info.SecurityToken

	body, err = v.conn.Send(ctx, http.MethodPost, "vehicle/v1/spin/complete", answer, nil)
	if err != nil {
		var httpErr *inet.HttpError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusForbidden {
			return "", fmt.Errorf("S-PIN rejected: %w", err)
		}
		return "", fmt.Errorf("could not complete S-PIN challenge: %w", err)
	}
	var result pinResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
	}
	if result.SecurityToken == "" {
		return "", fmt.Errorf("%w: no security token issued", protocol.ErrBadResponse)
	}
	v.tokens.Update(v.vin, op.String(), result.SecurityToken, SecurityTokenLifetime)
	return result.SecurityToken, nil
}

// Lock locks the vehicle. Requires an S-PIN.
func (v *Vehicle) Lock(ctx context.Context) error {
	return v.executeAction(ctx, action.Lock(), nil)
}

// Unlock unlocks the vehicle. Requires an S-PIN.
func (v *Vehicle) Unlock(ctx context.Context) error {
	return v.executeAction(ctx, action.Unlock(), nil)
}

// RefreshResult reports the outcome of RefreshData.
type RefreshResult string

const (
	RefreshInitiated RefreshResult = "initiated"
	// RefreshDisabled means the owner turned off remote data refresh for this vehicle (or the
	// daily quota is exhausted). It is not an error.
	RefreshDisabled RefreshResult = "disabled"
)

// RefreshData asks the vehicle to upload fresh status data.
func (v *Vehicle) RefreshData(ctx context.Context) (RefreshResult, error) {
	_, err := v.execute(ctx, action.RefreshData())
	if err != nil {
		var httpErr *inet.HttpError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusForbidden && !errors.Is(err, protocol.ErrThrottled) {
			return RefreshDisabled, nil
		}
		return "", err
	}
	return RefreshInitiated, nil
}
