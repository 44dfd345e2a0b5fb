// File implements commands related to vehicle charging. All of them require an electric vehicle.

package vehicle

import (
	"context"

	"github.com/audiconnect/audi-control/pkg/action"
)

// StartCharging starts charging now (manual) or according to departure timers (timer).
func (v *Vehicle) StartCharging(ctx context.Context, mode action.ChargingMode) error {
	if err := v.requireElectric(); err != nil {
		return err
	}
	request, err := action.ChargeStart(mode)
	return v.executeAction(ctx, request, err)
}

func (v *Vehicle) StopCharging(ctx context.Context) error {
	if err := v.requireElectric(); err != nil {
		return err
	}
	return v.executeAction(ctx, action.ChargeStop(), nil)
}

// SetChargeTarget sets the target state of charge. The percent must be between 20 and 100.
func (v *Vehicle) SetChargeTarget(ctx context.Context, percent int) error {
	if err := v.requireElectric(); err != nil {
		return err
	}
	request, err := action.SetChargeTarget(percent)
	return v.executeAction(ctx, request, err)
}

// SetChargingMode changes the charging mode without starting a charge.
func (v *Vehicle) SetChargingMode(ctx context.Context, mode action.ChargingMode) error {
	if err := v.requireElectric(); err != nil {
		return err
	}
	request, err := action.SetChargingMode(mode)
	return v.executeAction(ctx, request, err)
}
