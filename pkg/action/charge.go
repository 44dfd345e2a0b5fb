package action

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	MinChargeTarget = 20
	MaxChargeTarget = 100
)

// ChargingMode controls when charging starts once the vehicle is plugged in.
type ChargingMode string

const (
	ChargingModeManual ChargingMode = "manual"
	ChargingModeTimer  ChargingMode = "timer"
)

// ParseChargingMode accepts "manual" or "timer" in any case.
func ParseChargingMode(s string) (ChargingMode, error) {
	switch mode := ChargingMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ChargingModeManual, ChargingModeTimer:
		return mode, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChargingMode, s)
}

// ChargeStart starts charging immediately (manual) or according to the vehicle's departure timers.
func ChargeStart(mode ChargingMode) (*Request, error) {
	if _, err := ParseChargingMode(string(mode)); err != nil {
		return nil, err
	}
	return &Request{
		Method: http.MethodPost,
		Path:   "charging/start",
		Body:   map[string]string{"chargeMode": string(mode)},
	}, nil
}

// ChargeStop stops charging.
func ChargeStop() *Request {
	return &Request{Method: http.MethodPost, Path: "charging/stop"}
}

// SetChargeTarget sets the target state of charge in percent.
func SetChargeTarget(percent int) (*Request, error) {
	if percent < MinChargeTarget || percent > MaxChargeTarget {
		return nil, fmt.Errorf("%w: got %d%%", ErrInvalidChargeTarget, percent)
	}
	return &Request{
		Method: http.MethodPut,
		Path:   "charging/settings",
		Body:   map[string]int{"targetSOC_pct": percent},
	}, nil
}

// SetChargingMode changes the charging mode without starting a charge.
func SetChargingMode(mode ChargingMode) (*Request, error) {
	if _, err := ParseChargingMode(string(mode)); err != nil {
		return nil, err
	}
	return &Request{
		Method: http.MethodPut,
		Path:   "charging/mode",
		Body:   map[string]string{"chargeMode": string(mode)},
	}, nil
}
