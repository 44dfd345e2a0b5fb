package cli

import (
	"context"
	"time"

	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

//go:generate mockgen -destination=../../mocks/client.go -package=mocks -mock_names=Account=Account,Vehicle=Vehicle github.com/audiconnect/audi-control/pkg/cli Account,Vehicle

// Account is the part of an [account.Account] that command-line tools use.
type Account interface {
	Vehicles(ctx context.Context) ([]account.VehicleSummary, error)
	GetVehicle(ctx context.Context, vin string) (Vehicle, error)
}

// Vehicle is the part of a [vehicle.Vehicle] that command-line tools use.
type Vehicle interface {
	VIN() string
	Status(ctx context.Context) (*vehicle.Status, error)
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	StartClimate(ctx context.Context, opts action.ClimateOptions) error
	StopClimate(ctx context.Context) error
	StartPreHeater(ctx context.Context, duration time.Duration) error
	StopPreHeater(ctx context.Context) error
	StartWindowHeating(ctx context.Context) error
	StopWindowHeating(ctx context.Context) error
	StartCharging(ctx context.Context, mode action.ChargingMode) error
	StopCharging(ctx context.Context) error
	SetChargeTarget(ctx context.Context, percent int) error
	SetChargingMode(ctx context.Context, mode action.ChargingMode) error
	RefreshData(ctx context.Context) (vehicle.RefreshResult, error)
	TripData(ctx context.Context) (*vehicle.TripData, error)
}

var _ Vehicle = (*vehicle.Vehicle)(nil)

// remoteAccount adapts an account.Account to the Account interface and labels vehicles with names
// from the configuration file.
type remoteAccount struct {
	*account.Account
	config *Config
}

func (r *remoteAccount) Vehicles(ctx context.Context) ([]account.VehicleSummary, error) {
	vehicles, err := r.Account.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	r.config.Annotate(vehicles)
	return vehicles, nil
}

func (r *remoteAccount) GetVehicle(ctx context.Context, vin string) (Vehicle, error) {
	car, err := r.Account.GetVehicle(ctx, vin)
	if err != nil {
		return nil, err
	}
	return car, nil
}
