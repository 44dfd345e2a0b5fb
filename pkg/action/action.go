// Package action builds the REST requests behind each remote vehicle command.
//
// Builders only describe a request; the vehicle package resolves the endpoint against the vehicle,
// obtains an S-PIN security token when the request needs one, and sends it.
package action

import "errors"

var (
	ErrInvalidChargeTarget = errors.New("target charge must be between 20% and 100%")
	ErrInvalidChargingMode = errors.New("charging mode must be 'manual' or 'timer'")
	ErrInvalidDuration     = errors.New("duration must be between 1 and 60 minutes")
	ErrInvalidTemperature  = errors.New("temperature out of range")
)

// APILevel distinguishes combustion vehicles, which use the legacy remote services, from electric
// vehicles. It changes request payloads and which commands are valid.
type APILevel int

const (
	APILevelCombustion APILevel = 0
	APILevelElectric   APILevel = 1
)

func (l APILevel) String() string {
	switch l {
	case APILevelCombustion:
		return "gas"
	case APILevelElectric:
		return "electric"
	}
	return "unknown"
}

// Operation identifies a security-sensitive remote operation. The backend issues S-PIN security
// tokens per operation.
type Operation struct {
	Service   string
	Operation string
	// Optional operations send a security token when an S-PIN is configured and are attempted
	// without one otherwise.
	Optional bool
}

func (o Operation) String() string {
	return o.Service + "/operations/" + o.Operation
}

// Request describes a single REST call against a vehicle.
type Request struct {
	Method string
	// Path is relative to the vehicle's endpoint, e.g. "access/lock".
	Path string
	// Body is JSON encoded when non-nil.
	Body interface{}
	// Security is non-nil when the request must carry an S-PIN security token.
	Security *Operation
}

// RequiresSPIN returns true if the request cannot be sent without an S-PIN.
func (r *Request) RequiresSPIN() bool {
	return r.Security != nil && !r.Security.Optional
}
