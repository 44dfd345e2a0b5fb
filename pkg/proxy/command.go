package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/cli"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

// ErrRefreshDisabled is reported when the vehicle owner turned off remote data refresh.
var ErrRefreshDisabled = errors.New("data refresh is disabled for this vehicle")

// RequestParameters allows simple type check
type RequestParameters map[string]interface{}

// Action executes a command against a vehicle.
type Action func(ctx context.Context, car cli.Vehicle) error

// ExtractCommandAction use command to define which action should be executed. Parameters are
// validated before any request is sent to the vehicle.
func ExtractCommandAction(command string, params RequestParameters) (Action, error) {
	switch command {
	// Security
	case "lock":
		return func(ctx context.Context, car cli.Vehicle) error { return car.Lock(ctx) }, nil
	case "unlock":
		return func(ctx context.Context, car cli.Vehicle) error { return car.Unlock(ctx) }, nil
	// Climate controls
	case "climate_start":
		opts, err := params.climateOptions()
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, car cli.Vehicle) error { return car.StartClimate(ctx, opts) }, nil
	case "climate_stop":
		return func(ctx context.Context, car cli.Vehicle) error { return car.StopClimate(ctx) }, nil
	case "preheater_start":
		minutes, err := params.getNumber("duration_min", false)
		if err != nil {
			return nil, err
		}
		duration := action.DefaultPreHeaterDuration
		if minutes != 0 {
			duration = time.Duration(minutes) * time.Minute
		}
		if _, err := action.PreHeaterStart(duration); err != nil {
			return nil, &protocol.NominalError{Details: err}
		}
		return func(ctx context.Context, car cli.Vehicle) error { return car.StartPreHeater(ctx, duration) }, nil
	case "preheater_stop":
		return func(ctx context.Context, car cli.Vehicle) error { return car.StopPreHeater(ctx) }, nil
	case "window_heating_start":
		return func(ctx context.Context, car cli.Vehicle) error { return car.StartWindowHeating(ctx) }, nil
	case "window_heating_stop":
		return func(ctx context.Context, car cli.Vehicle) error { return car.StopWindowHeating(ctx) }, nil
	// Charging
	case "charge_start":
		mode, err := params.chargingMode(false)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, car cli.Vehicle) error { return car.StartCharging(ctx, mode) }, nil
	case "charge_stop":
		return func(ctx context.Context, car cli.Vehicle) error { return car.StopCharging(ctx) }, nil
	case "set_charge_target":
		percent, err := params.getNumber("percent", true)
		if err != nil {
			return nil, err
		}
		if _, err := action.SetChargeTarget(int(percent)); err != nil {
			return nil, &protocol.NominalError{Details: err}
		}
		return func(ctx context.Context, car cli.Vehicle) error { return car.SetChargeTarget(ctx, int(percent)) }, nil
	case "set_charging_mode":
		mode, err := params.chargingMode(true)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, car cli.Vehicle) error { return car.SetChargingMode(ctx, mode) }, nil
	// Data
	case "refresh_data":
		return func(ctx context.Context, car cli.Vehicle) error {
			result, err := car.RefreshData(ctx)
			if err == nil && result == vehicle.RefreshDisabled {
				return &protocol.NominalError{Details: ErrRefreshDisabled}
			}
			return err
		}, nil
	default:
		return nil, &inet.HttpError{Code: http.StatusNotFound, Message: "invalid_command"}
	}
}

func (p RequestParameters) climateOptions() (action.ClimateOptions, error) {
	opts := action.DefaultClimateOptions()
	celsius, err := p.getNumber("temperature_c", false)
	if err != nil {
		return opts, err
	}
	if celsius != 0 {
		opts.TemperatureC = int(celsius)
	}
	fahrenheit, err := p.getNumber("temperature_f", false)
	if err != nil {
		return opts, err
	}
	if fahrenheit != 0 {
		f := int(fahrenheit)
		opts.TemperatureF = &f
	}

	flags := []struct {
		key   string
		value *bool
	}{
		{"glass_heating", &opts.GlassHeating},
		{"seat_fl", &opts.SeatFrontLeft},
		{"seat_fr", &opts.SeatFrontRight},
		{"seat_rl", &opts.SeatRearLeft},
		{"seat_rr", &opts.SeatRearRight},
		{"climatisation_at_unlock", &opts.ClimatisationAtUnlock},
	}
	for _, flag := range flags {
		if *flag.value, err = p.getBool(flag.key, false); err != nil {
			return opts, err
		}
	}

	// Payload shape doesn't matter here, only the range checks.
	if _, err := action.ClimateStart(action.APILevelElectric, opts); err != nil {
		return opts, &protocol.NominalError{Details: err}
	}
	return opts, nil
}

func (p RequestParameters) chargingMode(required bool) (action.ChargingMode, error) {
	mode, err := p.getString("mode", required)
	if err != nil {
		return "", err
	}
	if mode == "" {
		return action.ChargingModeManual, nil
	}
	parsed, err := action.ParseChargingMode(mode)
	if err != nil {
		return "", invalidParamError("mode")
	}
	return parsed, nil
}

func (p RequestParameters) getString(key string, required bool) (string, error) {
	value, exists := p[key]

	if exists {
		if strValue, isString := value.(string); isString {
			return strValue, nil
		}
		return "", invalidParamError(key)
	}

	if !required {
		return "", nil
	}

	return "", missingParamError(key)
}

func (p RequestParameters) getBool(key string, required bool) (bool, error) {
	value, exists := p[key]
	if exists {
		if val, isBool := value.(bool); isBool {
			return val, nil
		}
		return false, invalidParamError(key)
	}

	if !required {
		return false, nil
	}

	return false, missingParamError(key)
}

func (p RequestParameters) getNumber(key string, required bool) (float64, error) {
	value, exists := p[key]
	if exists {
		switch num := value.(type) {
		case float64:
			return num, nil
		case int:
			return float64(num), nil
		}
		return 0, invalidParamError(key)
	}

	if !required {
		return 0, nil
	}

	return 0, missingParamError(key)
}

func missingParamError(key string) error {
	return &protocol.NominalError{Details: fmt.Errorf("missing %s param", key)}
}

func invalidParamError(key string) error {
	return &protocol.NominalError{Details: fmt.Errorf("invalid %s param", key)}
}
