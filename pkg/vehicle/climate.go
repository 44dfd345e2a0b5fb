// File implements climate, auxiliary heater, and window heating commands.

package vehicle

import (
	"context"
	"time"

	"github.com/audiconnect/audi-control/pkg/action"
)

// StartClimate turns on climate control. Combustion vehicles only honor the target temperature.
func (v *Vehicle) StartClimate(ctx context.Context, opts action.ClimateOptions) error {
	request, err := action.ClimateStart(v.level, opts)
	return v.executeAction(ctx, request, err)
}

func (v *Vehicle) StopClimate(ctx context.Context) error {
	return v.executeAction(ctx, action.ClimateStop(), nil)
}

// StartPreHeater runs the auxiliary heater for duration. Requires an S-PIN.
func (v *Vehicle) StartPreHeater(ctx context.Context, duration time.Duration) error {
	request, err := action.PreHeaterStart(duration)
	return v.executeAction(ctx, request, err)
}

// StopPreHeater stops the auxiliary heater. Requires an S-PIN.
func (v *Vehicle) StopPreHeater(ctx context.Context) error {
	return v.executeAction(ctx, action.PreHeaterStop(), nil)
}

func (v *Vehicle) StartWindowHeating(ctx context.Context) error {
	return v.executeAction(ctx, action.WindowHeating(true), nil)
}

func (v *Vehicle) StopWindowHeating(ctx context.Context) error {
	return v.executeAction(ctx, action.WindowHeating(false), nil)
}
