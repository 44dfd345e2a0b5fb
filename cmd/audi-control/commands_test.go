package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/audiconnect/audi-control/mocks"
	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/output"
	"github.com/audiconnect/audi-control/pkg/protocol"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

const testVIN = "WAUZZZ4G7EN123456"

func newTestEnvironment(t *testing.T, format output.Format) (*environment, *mocks.Account, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	acct := mocks.NewAccount(ctrl)
	var out bytes.Buffer
	env := &environment{
		acct:    acct,
		printer: output.NewPrinter(format, &out),
		resolve: func(nameOrVIN string) string {
			if strings.EqualFold(nameOrVIN, "etron") {
				return testVIN
			}
			return strings.ToUpper(nameOrVIN)
		},
		spin:  true,
		level: action.APILevelElectric,
	}
	return env, acct, &out
}

func expectVehicle(t *testing.T, acct *mocks.Account) *mocks.Vehicle {
	t.Helper()
	car := mocks.NewVehicle(gomock.NewController(t))
	car.EXPECT().VIN().Return(testVIN).AnyTimes()
	acct.EXPECT().GetVehicle(gomock.Any(), testVIN).Return(car, nil)
	return car
}

func TestCheckReadiness(t *testing.T) {
	type params struct {
		command  string
		haveSPIN bool
		level    action.APILevel
		err      error
	}
	testCases := []params{
		{command: "status", level: action.APILevelCombustion},
		{command: "lock", err: ErrRequiresSPIN},
		{command: "lock", haveSPIN: true},
		{command: "unlock", err: ErrRequiresSPIN},
		{command: "preheater-start", err: ErrRequiresSPIN},
		{command: "preheater-stop", err: ErrRequiresSPIN},
		{command: "climate-start"},
		{command: "charge-start", level: action.APILevelCombustion, err: vehicle.ErrRequiresElectric},
		{command: "charge-stop", level: action.APILevelCombustion, err: vehicle.ErrRequiresElectric},
		{command: "set-charge-target", level: action.APILevelCombustion, err: vehicle.ErrRequiresElectric},
		{command: "set-charging-mode", level: action.APILevelElectric},
		{command: "launch-rocket", err: ErrUnknownCommand},
	}
	for _, test := range testCases {
		_, err := checkReadiness(test.command, test.haveSPIN, test.level)
		if !errors.Is(err, test.err) {
			t.Errorf("%s: expected error %v, got %v", test.command, test.err, err)
		}
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	_, err := lookup("stauts")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if !strings.Contains(err.Error(), "did you mean status?") {
		t.Errorf("missing suggestion: %s", err)
	}

	_, err = lookup("xyzzyxyzzy")
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("unexpected suggestion for unrelated input: %s", err)
	}
}

func TestPrepareValidatesArguments(t *testing.T) {
	type params struct {
		args []string
		err  error
	}
	testCases := []params{
		{args: []string{"status"}, err: ErrCommandLineArgs},
		{args: []string{"status", testVIN, "extra"}, err: ErrCommandLineArgs},
		{args: []string{"status", testVIN, "--raw"}},
		{args: []string{"list-vehicles"}},
		{args: []string{"status", "--bogus", testVIN}, err: ErrCommandLineArgs},
		{args: []string{"set-charge-target", testVIN, "80"}},
		{args: []string{"set-charge-target", testVIN, "80%"}},
		{args: []string{"set-charge-target", testVIN, "19"}, err: action.ErrInvalidChargeTarget},
		{args: []string{"set-charge-target", testVIN, "101"}, err: action.ErrInvalidChargeTarget},
		{args: []string{"set-charge-target", testVIN, "lots"}, err: ErrCommandLineArgs},
		{args: []string{"set-charging-mode", testVIN, "Timer"}},
		{args: []string{"set-charging-mode", testVIN, "eco"}, err: action.ErrInvalidChargingMode},
		{args: []string{"preheater-start", testVIN, "--duration", "61"}, err: action.ErrInvalidDuration},
		{args: []string{"preheater-start", testVIN, "--duration", "15"}},
		{args: []string{"climate-start", testVIN, "--temp", "35"}, err: action.ErrInvalidTemperature},
		{args: []string{"climate-start", testVIN, "--temp-f", "72"}},
		{args: []string{"climate-start", testVIN, "--temp", "twenty"}, err: ErrCommandLineArgs},
	}
	for _, test := range testCases {
		env, _, _ := newTestEnvironment(t, output.FormatText)
		_, err := prepare(env, test.args)
		if !errors.Is(err, test.err) {
			t.Errorf("%v: expected error %v, got %v", test.args, test.err, err)
		}
	}
}

func TestLockResolvesVehicleName(t *testing.T) {
	env, acct, out := newTestEnvironment(t, output.FormatText)
	car := expectVehicle(t, acct)
	car.EXPECT().Lock(gomock.Any()).Return(nil)

	if err := execute(context.Background(), env, []string{"lock", "etron"}); err != nil {
		t.Fatalf("lock failed: %s", err)
	}
	if !strings.Contains(out.String(), "Vehicle locked") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestChargeTargetRejectedBeforeNetwork(t *testing.T) {
	// The mock fails the test if GetVehicle is called.
	env, _, _ := newTestEnvironment(t, output.FormatText)
	err := execute(context.Background(), env, []string{"set-charge-target", testVIN, "10"})
	if !errors.Is(err, action.ErrInvalidChargeTarget) {
		t.Errorf("expected ErrInvalidChargeTarget, got %v", err)
	}
}

func TestClimateStartOptions(t *testing.T) {
	env, acct, _ := newTestEnvironment(t, output.FormatText)
	car := expectVehicle(t, acct)
	fahrenheit := 72
	car.EXPECT().StartClimate(gomock.Any(), action.ClimateOptions{
		TemperatureC:  action.DefaultClimateTemperatureC,
		TemperatureF:  &fahrenheit,
		GlassHeating:  true,
		SeatFrontLeft: true,
	}).Return(nil)

	args := []string{"climate-start", testVIN, "--temp-f", "72", "--glass-heating", "--seat-fl"}
	if err := execute(context.Background(), env, args); err != nil {
		t.Fatalf("climate-start failed: %s", err)
	}
}

func TestChargeStartTimer(t *testing.T) {
	env, acct, _ := newTestEnvironment(t, output.FormatText)
	car := expectVehicle(t, acct)
	car.EXPECT().StartCharging(gomock.Any(), action.ChargingModeTimer).Return(nil)

	if err := execute(context.Background(), env, []string{"charge-start", testVIN, "--timer"}); err != nil {
		t.Fatalf("charge-start failed: %s", err)
	}
}

func TestPreHeaterDuration(t *testing.T) {
	env, acct, _ := newTestEnvironment(t, output.FormatText)
	car := expectVehicle(t, acct)
	car.EXPECT().StartPreHeater(gomock.Any(), 30*time.Minute).Return(nil)

	if err := execute(context.Background(), env, []string{"preheater-start", testVIN}); err != nil {
		t.Fatalf("preheater-start failed: %s", err)
	}
}

func TestStatusJSON(t *testing.T) {
	mileage := 12345
	status := func() *vehicle.Status {
		return &vehicle.Status{VIN: testVIN, MileageKm: &mileage, Raw: json.RawMessage(`{"measurements":{}}`)}
	}

	for _, raw := range []bool{false, true} {
		env, acct, out := newTestEnvironment(t, output.FormatJSON)
		car := expectVehicle(t, acct)
		car.EXPECT().Status(gomock.Any()).Return(status(), nil)

		args := []string{"status", testVIN}
		if raw {
			args = append(args, "--raw")
		}
		if err := execute(context.Background(), env, args); err != nil {
			t.Fatalf("status failed: %s", err)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %s\n%s", err, out.String())
		}
		if decoded["vin"] != testVIN || decoded["mileage_km"] != float64(mileage) {
			t.Errorf("unexpected document %v", decoded)
		}
		if _, ok := decoded["raw"]; ok != raw {
			t.Errorf("raw=%v: raw payload present = %v", raw, ok)
		}
	}
}

func TestListVehiclesJSONEmpty(t *testing.T) {
	env, acct, out := newTestEnvironment(t, output.FormatJSON)
	acct.EXPECT().Vehicles(gomock.Any()).Return(nil, nil)

	if err := execute(context.Background(), env, []string{"list-vehicles"}); err != nil {
		t.Fatalf("list-vehicles failed: %s", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("expected empty JSON list, got %q", out.String())
	}
}

func TestListVehiclesText(t *testing.T) {
	env, acct, out := newTestEnvironment(t, output.FormatText)
	acct.EXPECT().Vehicles(gomock.Any()).Return([]account.VehicleSummary{
		{VIN: testVIN, Title: "Audi e-tron", Raw: json.RawMessage(`{"vin":"` + testVIN + `"}`)},
	}, nil)

	if err := execute(context.Background(), env, []string{"list-vehicles", "--raw"}); err != nil {
		t.Fatalf("list-vehicles failed: %s", err)
	}
	if !strings.Contains(out.String(), testVIN) || !strings.Contains(out.String(), "=== Raw data for "+testVIN+" ===") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRefreshDisabled(t *testing.T) {
	env, acct, out := newTestEnvironment(t, output.FormatJSON)
	car := expectVehicle(t, acct)
	car.EXPECT().RefreshData(gomock.Any()).Return(vehicle.RefreshDisabled, nil)

	if err := execute(context.Background(), env, []string{"refresh-data", testVIN}); err != nil {
		t.Fatalf("refresh-data failed: %s", err)
	}
	var result commandResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not valid JSON: %s", err)
	}
	if result.Result != string(vehicle.RefreshDisabled) || result.VIN != testVIN {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestVehicleErrorsPropagate(t *testing.T) {
	env, acct, _ := newTestEnvironment(t, output.FormatText)
	notFound := &protocol.VehicleNotFoundError{VIN: testVIN, Available: []string{"WAUZZZOTHER"}}
	acct.EXPECT().GetVehicle(gomock.Any(), testVIN).Return(nil, notFound)

	err := execute(context.Background(), env, []string{"trip-data", testVIN})
	if !errors.Is(err, protocol.ErrVehicleNotFound) {
		t.Errorf("expected ErrVehicleNotFound, got %v", err)
	}
}

func TestEveryCommandHasHelp(t *testing.T) {
	for _, name := range commandNames() {
		info := commands[name]
		if info.help == "" || info.handler == nil {
			t.Errorf("command %s is incomplete", name)
		}
		if info.vehicle && (len(info.args) == 0 || info.args[0].name != "VIN") {
			t.Errorf("vehicle command %s must take a VIN first", name)
		}
		var usage bytes.Buffer
		info.Usage(name, &usage)
		if !strings.HasPrefix(usage.String(), "Usage: "+name) {
			t.Errorf("unexpected usage for %s: %q", name, usage.String())
		}
	}
}
