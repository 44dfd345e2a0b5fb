package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/protocol"
)

// TripKind selects the trip statistics counter. Short-term counters reset after a long stop;
// long-term counters accumulate until reset by the driver.
type TripKind string

const (
	ShortTerm TripKind = "shortterm"
	LongTerm  TripKind = "longterm"
)

// Trip is one set of trip statistics.
type Trip struct {
	TripID                     int64      `json:"trip_id" yaml:"trip_id"`
	MileageKm                  *float64   `json:"mileage,omitempty" yaml:"mileage,omitempty"`
	StartMileageKm             *float64   `json:"start_mileage,omitempty" yaml:"start_mileage,omitempty"`
	AverageSpeedKmh            *float64   `json:"average_speed,omitempty" yaml:"average_speed,omitempty"`
	TravelTimeMin              *int       `json:"travel_time,omitempty" yaml:"travel_time,omitempty"`
	AverageFuelConsumption     *float64   `json:"average_fuel_consumption,omitempty" yaml:"average_fuel_consumption,omitempty"`
	AverageElectricConsumption *float64   `json:"average_electric_consumption,omitempty" yaml:"average_electric_consumption,omitempty"`
	ZeroEmissionDistanceKm     *float64   `json:"zero_emission_distance,omitempty" yaml:"zero_emission_distance,omitempty"`
	Timestamp                  *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// TripData holds the current and last-reset values of both trip counters. Counters the vehicle
// does not provide are nil.
type TripData struct {
	ShortTermCurrent *Trip `json:"short_term_current,omitempty" yaml:"short_term_current,omitempty"`
	ShortTermReset   *Trip `json:"short_term_reset,omitempty" yaml:"short_term_reset,omitempty"`
	LongTermCurrent  *Trip `json:"long_term_current,omitempty" yaml:"long_term_current,omitempty"`
	LongTermReset    *Trip `json:"long_term_reset,omitempty" yaml:"long_term_reset,omitempty"`
}

type apiTrip struct {
	ID                               int64      `json:"id"`
	MileageKm                        *float64   `json:"mileage_km"`
	StartMileageKm                   *float64   `json:"startMileage_km"`
	AverageSpeedKmph                 *float64   `json:"averageSpeed_kmph"`
	TravelTimeMin                    *int       `json:"travelTime_min"`
	AverageFuelConsumption           *float64   `json:"averageFuelConsumption"`
	AverageElectricEngineConsumption *float64   `json:"averageElectricEngineConsumption"`
	ZeroEmissionDistanceKm           *float64   `json:"zeroEmissionDistance_km"`
	TripEndTimestamp                 *time.Time `json:"tripEndTimestamp"`
}

func (t *apiTrip) trip() *Trip {
	if t == nil {
		return nil
	}
	return &Trip{
		TripID:                     t.ID,
		MileageKm:                  t.MileageKm,
		StartMileageKm:             t.StartMileageKm,
		AverageSpeedKmh:            t.AverageSpeedKmph,
		TravelTimeMin:              t.TravelTimeMin,
		AverageFuelConsumption:     t.AverageFuelConsumption,
		AverageElectricConsumption: t.AverageElectricEngineConsumption,
		ZeroEmissionDistanceKm:     t.ZeroEmissionDistanceKm,
		Timestamp:                  t.TripEndTimestamp,
	}
}

type tripResponse struct {
	Data struct {
		Current *apiTrip `json:"current"`
		Reset   *apiTrip `json:"reset"`
	} `json:"data"`
}

// Trip returns the current and last-reset statistics of one counter.
func (v *Vehicle) Trip(ctx context.Context, kind TripKind) (current, reset *Trip, err error) {
	payload, err := v.retry(ctx, func() ([]byte, error) {
		return v.conn.Get(ctx, fmt.Sprintf("vehicle/v1/trips/%s/%s", v.vin, kind))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not fetch %s trip data: %w", kind, err)
	}
	var response tripResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", protocol.ErrBadResponse, err)
	}
	return response.Data.Current.trip(), response.Data.Reset.trip(), nil
}

// TripData fetches both trip counters. A counter the vehicle does not support is left nil.
func (v *Vehicle) TripData(ctx context.Context) (*TripData, error) {
	data := &TripData{}
	var err error
	data.ShortTermCurrent, data.ShortTermReset, err = v.Trip(ctx, ShortTerm)
	if err != nil && !isUnsupported(err) {
		return nil, err
	} else if err != nil {
		log.Debug("Short-term trip data unavailable: %s", err)
	}
	data.LongTermCurrent, data.LongTermReset, err = v.Trip(ctx, LongTerm)
	if err != nil && !isUnsupported(err) {
		return nil, err
	} else if err != nil {
		log.Debug("Long-term trip data unavailable: %s", err)
	}
	return data, nil
}

// WriteText writes each available trip as a block of fields.
func (d *TripData) WriteText(w io.Writer) error {
	trips := []struct {
		title string
		trip  *Trip
	}{
		{"Short-term trip (current)", d.ShortTermCurrent},
		{"Short-term trip (since reset)", d.ShortTermReset},
		{"Long-term trip (current)", d.LongTermCurrent},
		{"Long-term trip (since reset)", d.LongTermReset},
	}
	f := &fieldWriter{w: w}
	found := false
	for _, t := range trips {
		if t.trip == nil {
			continue
		}
		if found && f.err == nil {
			_, f.err = fmt.Fprintln(w)
		}
		found = true
		if f.err == nil {
			_, f.err = fmt.Fprintln(w, t.title)
		}
		t.trip.writeFields(f)
	}
	if !found && f.err == nil {
		_, f.err = fmt.Fprintln(w, "No trip data available")
	}
	return f.err
}

func (t *Trip) writeFields(f *fieldWriter) {
	f.printf("  Trip ID", "%d", t.TripID)
	if t.Timestamp != nil {
		f.printf("  Ended", "%s", t.Timestamp.Local().Format(time.RFC1123))
	}
	if t.MileageKm != nil {
		f.printf("  Distance", "%.1f km", *t.MileageKm)
	}
	if t.StartMileageKm != nil {
		f.printf("  Start mileage", "%.0f km", *t.StartMileageKm)
	}
	if t.TravelTimeMin != nil {
		f.printf("  Travel time", "%d min", *t.TravelTimeMin)
	}
	if t.AverageSpeedKmh != nil {
		f.printf("  Average speed", "%.1f km/h", *t.AverageSpeedKmh)
	}
	if t.AverageFuelConsumption != nil {
		f.printf("  Average fuel consumption", "%.1f l/100km", *t.AverageFuelConsumption)
	}
	if t.AverageElectricConsumption != nil {
		f.printf("  Average electric consumption", "%.1f kWh/100km", *t.AverageElectricConsumption)
	}
	if t.ZeroEmissionDistanceKm != nil {
		f.printf("  Zero emission distance", "%.1f km", *t.ZeroEmissionDistanceKm)
	}
}
