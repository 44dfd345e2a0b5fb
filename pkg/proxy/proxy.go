package proxy

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/cli"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
)

const (
	DefaultTimeout      = 60 * time.Second
	maxRequestBodyBytes = 4096
	vinLength           = 17
)

// Proxy exposes an HTTP API for sending vehicle commands.
type Proxy struct {
	Timeout time.Duration

	// APIKey, if set, must be presented by clients as a bearer token.
	APIKey string

	// Resolve maps a path component to a VIN. The default upper-cases it.
	Resolve func(nameOrVIN string) string

	acct    cli.Account
	vinLock sync.Map
}

// lockVIN locks a VIN-specific mutex, blocking until the operation succeeds or ctx expires.
func (p *Proxy) lockVIN(ctx context.Context, vin string) error {
	lock := make(chan bool, 1)
	for {
		if obj, loaded := p.vinLock.LoadOrStore(vin, lock); loaded {
			select {
			case <-obj.(chan bool):
				// The goroutine that reads from the channel doesn't necessarily own the mutex. This
				// allows the mutex owner to delete the entry from the map, limiting the size of the
				// map to the number of concurrent vehicle commands.
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			return nil
		}
	}
}

// unlockVIN releases a VIN-specific mutex.
func (p *Proxy) unlockVIN(vin string) {
	obj, ok := p.vinLock.Load(vin)
	if !ok {
		panic("called unlock without owning mutex")
	}
	p.vinLock.Delete(vin)  // Allow someone else to claim the mutex
	close(obj.(chan bool)) // Unblock goroutines
}

// New creates an http proxy that sends commands on behalf of acct.
func New(acct cli.Account) *Proxy {
	return &Proxy{
		Timeout: DefaultTimeout,
		Resolve: strings.ToUpper,
		acct:    acct,
	}
}

// Response contains a server's response to a client request.
type Response struct {
	Response   interface{} `json:"response"`
	Error      string      `json:"error,omitempty"`
	ErrDetails string      `json:"error_description,omitempty"`
}

type carResponse struct {
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// statusCode picks the HTTP status returned to the client for err. An upstream authentication
// failure is a 502 so that clients can tell it apart from a rejected API key.
func statusCode(err error) int {
	var httpErr *inet.HttpError
	switch {
	case errors.Is(err, protocol.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, protocol.ErrUnauthorized):
		return http.StatusBadGateway
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, protocol.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrRequiresSPIN), errors.Is(err, protocol.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case protocol.Temporary(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, reply *Response) {
	jsonBytes, err := json.Marshal(reply)
	if err != nil {
		log.Error("Error serializing reply %+v: %s", reply, err)
		code = http.StatusInternalServerError
		jsonBytes = []byte("{\"error\": \"internal server error\"}")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	jsonBytes = append(jsonBytes, '\n')
	w.Write(jsonBytes)
}

func writeJSONError(w http.ResponseWriter, code int, err error) {
	reply := Response{}
	if err == nil {
		reply.Error = http.StatusText(code)
	} else if protocol.IsNominalError(err) {
		// The request was well-formed but the command could not be carried out.
		code = http.StatusOK
		reply.Response = &carResponse{Reason: err.Error()}
	} else {
		if code == 0 {
			code = statusCode(err)
		}
		reply.Error = http.StatusText(code)
		reply.ErrDetails = err.Error()
	}
	if code != http.StatusOK {
		log.Error("Returning error %s: %s", http.StatusText(code), err)
	}
	writeJSON(w, code, &reply)
}

func (p *Proxy) authorized(req *http.Request) bool {
	if p.APIKey == "" {
		return true
	}
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(p.APIKey)) == 1
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Info("Received %s request for %s", req.Method, req.URL.Path)

	if !p.authorized(req) {
		writeJSONError(w, http.StatusUnauthorized, nil)
		return
	}

	path := strings.Split(strings.TrimSuffix(req.URL.Path, "/"), "/")
	if len(path) < 4 || path[1] != "api" || path[2] != "1" || path[3] != "vehicles" {
		writeJSONError(w, http.StatusNotFound, nil)
		return
	}
	if len(path) == 4 {
		p.handleVehicleList(w, req)
		return
	}

	vin := p.Resolve(path[4])
	if len(vin) != vinLength {
		writeJSONError(w, http.StatusNotFound, errors.New("expected 17-character VIN or configured vehicle name in path"))
		return
	}
	switch {
	case len(path) == 6 && path[5] == "status":
		p.handleVehicleData(w, req, vin, func(ctx context.Context, car cli.Vehicle) (interface{}, error) {
			status, err := car.Status(ctx)
			if err != nil {
				return nil, err
			}
			if req.URL.Query().Get("raw") == "" {
				status.Raw = nil
			}
			return status, nil
		})
	case len(path) == 6 && path[5] == "trips":
		p.handleVehicleData(w, req, vin, func(ctx context.Context, car cli.Vehicle) (interface{}, error) {
			return car.TripData(ctx)
		})
	case len(path) == 7 && path[5] == "command":
		p.handleVehicleCommand(w, req, path[6], vin)
	default:
		writeJSONError(w, http.StatusNotFound, nil)
	}
}

func (p *Proxy) handleVehicleList(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), p.Timeout)
	defer cancel()

	vehicles, err := p.acct.Vehicles(ctx)
	if err != nil {
		writeJSONError(w, 0, err)
		return
	}
	if vehicles == nil {
		vehicles = []account.VehicleSummary{}
	}
	for i := range vehicles {
		vehicles[i].Raw = nil
	}
	writeJSON(w, http.StatusOK, &Response{Response: vehicles})
}

func (p *Proxy) handleVehicleData(w http.ResponseWriter, req *http.Request, vin string, fetch func(context.Context, cli.Vehicle) (interface{}, error)) {
	if req.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, nil)
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), p.Timeout)
	defer cancel()

	car, err := p.acct.GetVehicle(ctx, vin)
	if err != nil {
		writeJSONError(w, 0, err)
		return
	}
	data, err := fetch(ctx, car)
	if err != nil {
		writeJSONError(w, 0, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response{Response: data})
}

func (p *Proxy) handleVehicleCommand(w http.ResponseWriter, req *http.Request, command, vin string) {
	log.Debug("Executing %s on %s", command, vin)
	if req.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, nil)
		return
	}

	run, err := extractCommandAction(req, command)
	if err != nil {
		writeJSONError(w, 0, err)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), p.Timeout)
	defer cancel()

	// Serialize commands sent to a specific VIN. The backend rejects a command while another one
	// is pending for the same vehicle.
	if err := p.lockVIN(ctx, vin); err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer p.unlockVIN(vin)

	car, err := p.acct.GetVehicle(ctx, vin)
	if err != nil {
		writeJSONError(w, 0, err)
		return
	}
	if err := run(ctx, car); err != nil {
		if errors.Is(err, action.ErrInvalidChargeTarget) || errors.Is(err, action.ErrInvalidTemperature) {
			err = &protocol.NominalError{Details: err}
		}
		writeJSONError(w, 0, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response{Response: &carResponse{Result: true}})
}

func extractCommandAction(req *http.Request, command string) (Action, error) {
	var params RequestParameters
	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBodyBytes+1))
	if err != nil {
		return nil, &inet.HttpError{Code: http.StatusBadRequest, Message: "could not read request body"}
	}
	if len(body) > maxRequestBodyBytes {
		return nil, &inet.HttpError{Code: http.StatusRequestEntityTooLarge, Message: fmt.Sprintf("request body exceeds %d bytes", maxRequestBodyBytes)}
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			return nil, &inet.HttpError{Code: http.StatusBadRequest, Message: "error occurred while parsing request parameters"}
		}
	}

	return ExtractCommandAction(command, params)
}
