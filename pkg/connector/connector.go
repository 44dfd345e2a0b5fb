package connector

import (
	"context"
	"net/http"
)

// MaxResponseLength caps the maximum byte-length of responses that connectors must support.
const MaxResponseLength = 1000000

// Connector sends requests to the vehicle cloud API on behalf of an authenticated account.
//
// Endpoints are paths relative to the regional API base URL (e.g., "vehicle/v1/vehicles").
type Connector interface {
	// Get fetches endpoint and returns the response body.
	Get(ctx context.Context, endpoint string) ([]byte, error)

	// Send issues a request with the given method. A non-nil body is JSON encoded unless it is
	// already a []byte. The extra header may be nil.
	//
	// Depending on the error, the backend may have received and even acted on the request. If the
	// returned error implements the protocol.Error interface, then the client may be able to
	// determine if this is the case.
	Send(ctx context.Context, method, endpoint string, body interface{}, header http.Header) ([]byte, error)
}

type sensitiveKey struct{}

// WithSensitiveBodies marks requests sent with the returned context as carrying secrets (S-PIN
// hashes, security tokens). Connectors must not log their request or response bodies.
func WithSensitiveBodies(ctx context.Context) context.Context {
	return context.WithValue(ctx, sensitiveKey{}, true)
}

// SensitiveBodies returns true if ctx was created by [WithSensitiveBodies].
func SensitiveBodies(ctx context.Context) bool {
	sensitive, _ := ctx.Value(sensitiveKey{}).(bool)
	return sensitive
}
