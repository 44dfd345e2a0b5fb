package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
)

// Door and trunk summaries reported in Status.DoorsTrunkStatus.
const (
	DoorsOpen   = "Open"
	DoorsLocked = "Locked"
	DoorsClosed = "Closed"
)

const kelvinOffset = 273.15

// Position is the last parking position reported by the vehicle.
type Position struct {
	Latitude  float64    `json:"lat" yaml:"lat"`
	Longitude float64    `json:"lon" yaml:"lon"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Status is a snapshot of vehicle data. Fields the vehicle does not report are nil.
type Status struct {
	VIN                      string     `json:"vin" yaml:"vin"`
	Title                    string     `json:"title,omitempty" yaml:"title,omitempty"`
	Model                    string     `json:"model,omitempty" yaml:"model,omitempty"`
	ModelYear                int        `json:"model_year,omitempty" yaml:"model_year,omitempty"`
	CSID                     string     `json:"csid,omitempty" yaml:"csid,omitempty"`
	LastUpdateTime           *time.Time `json:"last_update_time,omitempty" yaml:"last_update_time,omitempty"`
	MileageKm                *int       `json:"mileage_km,omitempty" yaml:"mileage_km,omitempty"`
	RangeKm                  *int       `json:"range_km,omitempty" yaml:"range_km,omitempty"`
	Position                 *Position  `json:"position,omitempty" yaml:"position,omitempty"`
	TankLevelPct             *int       `json:"tank_level_pct,omitempty" yaml:"tank_level_pct,omitempty"`
	StateOfChargePct         *int       `json:"state_of_charge_pct,omitempty" yaml:"state_of_charge_pct,omitempty"`
	ChargingState            *string    `json:"charging_state,omitempty" yaml:"charging_state,omitempty"`
	RemainingChargingTimeMin *int       `json:"remaining_charging_time_min,omitempty" yaml:"remaining_charging_time_min,omitempty"`
	ClimatisationState       *string    `json:"climatisation_state,omitempty" yaml:"climatisation_state,omitempty"`
	OutdoorTemperatureC      *float64   `json:"outdoor_temperature_c,omitempty" yaml:"outdoor_temperature_c,omitempty"`
	DoorsTrunkStatus         *string    `json:"doors_trunk_status,omitempty" yaml:"doors_trunk_status,omitempty"`
	AnyWindowOpen            *bool      `json:"any_window_open,omitempty" yaml:"any_window_open,omitempty"`
	ServiceInspectionDays    *int       `json:"service_inspection_days,omitempty" yaml:"service_inspection_days,omitempty"`
	ServiceInspectionKm      *int       `json:"service_inspection_km,omitempty" yaml:"service_inspection_km,omitempty"`
	OilLevelPct              *float64   `json:"oil_level_pct,omitempty" yaml:"oil_level_pct,omitempty"`

	// Raw holds the unparsed status payload.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

type openingStatus struct {
	Name   string   `json:"name"`
	Status []string `json:"status"`
}

func (o openingStatus) has(state string) bool {
	for _, s := range o.Status {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

// selectiveStatus mirrors the subset of the selectivestatus response that Status exposes.
type selectiveStatus struct {
	Access struct {
		AccessStatus struct {
			Value *struct {
				OverallStatus        string          `json:"overallStatus"`
				CarCapturedTimestamp *time.Time      `json:"carCapturedTimestamp"`
				Doors                []openingStatus `json:"doors"`
				Windows              []openingStatus `json:"windows"`
			} `json:"value"`
		} `json:"accessStatus"`
	} `json:"access"`
	Measurements struct {
		OdometerStatus struct {
			Value *struct {
				Odometer *int `json:"odometer"`
			} `json:"value"`
		} `json:"odometerStatus"`
		RangeStatus struct {
			Value *struct {
				TotalRangeKm *int `json:"totalRange_km"`
			} `json:"value"`
		} `json:"rangeStatus"`
		FuelLevelStatus struct {
			Value *struct {
				CurrentFuelLevelPct *int `json:"currentFuelLevel_pct"`
				CurrentSOCPct       *int `json:"currentSOC_pct"`
			} `json:"value"`
		} `json:"fuelLevelStatus"`
		TemperatureOutsideStatus struct {
			Value *struct {
				TemperatureOutsideK *float64 `json:"temperatureOutside_K"`
			} `json:"value"`
		} `json:"temperatureOutsideStatus"`
	} `json:"measurements"`
	Charging struct {
		ChargingStatus struct {
			Value *struct {
				ChargingState                      *string `json:"chargingState"`
				RemainingChargingTimeToCompleteMin *int    `json:"remainingChargingTimeToComplete_min"`
			} `json:"value"`
		} `json:"chargingStatus"`
		BatteryStatus struct {
			Value *struct {
				CurrentSOCPct *int `json:"currentSOC_pct"`
			} `json:"value"`
		} `json:"batteryStatus"`
	} `json:"charging"`
	Climatisation struct {
		ClimatisationStatus struct {
			Value *struct {
				ClimatisationState *string `json:"climatisationState"`
			} `json:"value"`
		} `json:"climatisationStatus"`
	} `json:"climatisation"`
	VehicleHealthInspection struct {
		MaintenanceStatus struct {
			Value *struct {
				InspectionDueDays *int `json:"inspectionDue_days"`
				InspectionDueKm   *int `json:"inspectionDue_km"`
			} `json:"value"`
		} `json:"maintenanceStatus"`
	} `json:"vehicleHealthInspection"`
	OilLevel struct {
		OilLevelStatus struct {
			Value *struct {
				OilLevelPct *float64 `json:"oilLevel_pct"`
			} `json:"value"`
		} `json:"oilLevelStatus"`
	} `json:"oilLevel"`
}

type parkingPosition struct {
	Data struct {
		Latitude             float64    `json:"lat"`
		Longitude            float64    `json:"lon"`
		CarCapturedTimestamp *time.Time `json:"carCapturedTimestamp"`
	} `json:"data"`
}

// ParseStatus converts a selectivestatus payload into a Status.
func ParseStatus(vin string, payload []byte) (*Status, error) {
	var s selectiveStatus
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
	}
	status := &Status{VIN: vin, Raw: json.RawMessage(payload)}

	if access := s.Access.AccessStatus.Value; access != nil {
		status.LastUpdateTime = access.CarCapturedTimestamp
		if len(access.Doors) > 0 {
			doors := summarizeDoors(access.Doors, access.OverallStatus)
			status.DoorsTrunkStatus = &doors
		}
		if len(access.Windows) > 0 {
			open := false
			for _, w := range access.Windows {
				if w.has("open") {
					open = true
				}
			}
			status.AnyWindowOpen = &open
		}
	}
	if m := s.Measurements.OdometerStatus.Value; m != nil {
		status.MileageKm = m.Odometer
	}
	if m := s.Measurements.RangeStatus.Value; m != nil {
		status.RangeKm = m.TotalRangeKm
	}
	if m := s.Measurements.FuelLevelStatus.Value; m != nil {
		status.TankLevelPct = m.CurrentFuelLevelPct
		status.StateOfChargePct = m.CurrentSOCPct
	}
	if m := s.Measurements.TemperatureOutsideStatus.Value; m != nil && m.TemperatureOutsideK != nil {
		c := *m.TemperatureOutsideK - kelvinOffset
		c = math.Round(c*10) / 10
		status.OutdoorTemperatureC = &c
	}
	if c := s.Charging.ChargingStatus.Value; c != nil {
		status.ChargingState = c.ChargingState
		status.RemainingChargingTimeMin = c.RemainingChargingTimeToCompleteMin
	}
	if b := s.Charging.BatteryStatus.Value; b != nil && b.CurrentSOCPct != nil {
		status.StateOfChargePct = b.CurrentSOCPct
	}
	if c := s.Climatisation.ClimatisationStatus.Value; c != nil {
		status.ClimatisationState = c.ClimatisationState
	}
	if m := s.VehicleHealthInspection.MaintenanceStatus.Value; m != nil {
		status.ServiceInspectionDays = m.InspectionDueDays
		status.ServiceInspectionKm = m.InspectionDueKm
	}
	if o := s.OilLevel.OilLevelStatus.Value; o != nil {
		status.OilLevelPct = o.OilLevelPct
	}
	return status, nil
}

func summarizeDoors(doors []openingStatus, overall string) string {
	locked := true
	for _, d := range doors {
		if d.has("open") {
			return DoorsOpen
		}
		if !d.has("locked") {
			locked = false
		}
	}
	if locked || strings.EqualFold(overall, "safe") {
		return DoorsLocked
	}
	return DoorsClosed
}

// Status fetches the current vehicle status, including the parking position when the vehicle
// reports one.
func (v *Vehicle) Status(ctx context.Context) (*Status, error) {
	payload, err := v.get(ctx, "selectivestatus?jobs=all")
	if err != nil {
		return nil, fmt.Errorf("could not fetch status: %w", err)
	}
	status, err := ParseStatus(v.vin, payload)
	if err != nil {
		return nil, err
	}
	status.Title = v.details.Title
	status.Model = v.details.Model
	status.ModelYear = v.details.ModelYear
	status.CSID = v.details.CSID
	position, err := v.Position(ctx)
	if err != nil {
		if !isUnsupported(err) {
			return nil, err
		}
		log.Debug("Parking position unavailable: %s", err)
	}
	status.Position = position
	return status, nil
}

// Position returns the last parking position. It returns (nil, nil) while the vehicle is moving.
func (v *Vehicle) Position(ctx context.Context) (*Position, error) {
	payload, err := v.get(ctx, "parkingposition")
	if err != nil {
		return nil, fmt.Errorf("could not fetch parking position: %w", err)
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, nil
	}
	var p parkingPosition
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
	}
	return &Position{
		Latitude:  p.Data.Latitude,
		Longitude: p.Data.Longitude,
		Timestamp: p.Data.CarCapturedTimestamp,
	}, nil
}

// isUnsupported reports whether err means the vehicle or its subscription lacks a data service.
func isUnsupported(err error) bool {
	if errors.Is(err, protocol.ErrUnsupported) {
		return true
	}
	var httpErr *inet.HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Code == http.StatusNotFound || httpErr.Code == http.StatusForbidden
	}
	return false
}

type fieldWriter struct {
	w   io.Writer
	err error
}

func (f *fieldWriter) printf(label, format string, args ...interface{}) {
	if f.err != nil {
		return
	}
	_, f.err = fmt.Fprintf(f.w, "%-28s "+format+"\n", append([]interface{}{label + ":"}, args...)...)
}

// WriteText writes the fields that are set, one per line.
func (s *Status) WriteText(w io.Writer) error {
	f := &fieldWriter{w: w}
	f.printf("VIN", "%s", s.VIN)
	if s.Title != "" {
		f.printf("Title", "%s", s.Title)
	}
	if s.Model != "" {
		f.printf("Model", "%s", s.Model)
	}
	if s.ModelYear != 0 {
		f.printf("Model year", "%d", s.ModelYear)
	}
	if s.CSID != "" {
		f.printf("CSID", "%s", s.CSID)
	}
	if s.LastUpdateTime != nil {
		f.printf("Last update", "%s", s.LastUpdateTime.Local().Format(time.RFC1123))
	}
	if s.MileageKm != nil {
		f.printf("Mileage", "%d km", *s.MileageKm)
	}
	if s.RangeKm != nil {
		f.printf("Range", "%d km", *s.RangeKm)
	}
	if s.TankLevelPct != nil {
		f.printf("Tank level", "%d%%", *s.TankLevelPct)
	}
	if s.StateOfChargePct != nil {
		f.printf("State of charge", "%d%%", *s.StateOfChargePct)
	}
	if s.ChargingState != nil {
		f.printf("Charging state", "%s", *s.ChargingState)
	}
	if s.RemainingChargingTimeMin != nil {
		f.printf("Remaining charging time", "%d min", *s.RemainingChargingTimeMin)
	}
	if s.ClimatisationState != nil {
		f.printf("Climatisation", "%s", *s.ClimatisationState)
	}
	if s.OutdoorTemperatureC != nil {
		f.printf("Outdoor temperature", "%.1f °C", *s.OutdoorTemperatureC)
	}
	if s.DoorsTrunkStatus != nil {
		f.printf("Doors and trunk", "%s", *s.DoorsTrunkStatus)
	}
	if s.AnyWindowOpen != nil {
		f.printf("Any window open", "%t", *s.AnyWindowOpen)
	}
	if s.ServiceInspectionDays != nil {
		f.printf("Service inspection due", "%d days", *s.ServiceInspectionDays)
	}
	if s.ServiceInspectionKm != nil {
		f.printf("Service inspection due", "%d km", *s.ServiceInspectionKm)
	}
	if s.OilLevelPct != nil {
		f.printf("Oil level", "%.0f%%", *s.OilLevelPct)
	}
	if s.Position != nil {
		f.printf("Position", "%.6f, %.6f", s.Position.Latitude, s.Position.Longitude)
	}
	return f.err
}
