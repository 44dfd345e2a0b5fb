package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/pflag"

	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/cli"
	"github.com/audiconnect/audi-control/pkg/output"
	"github.com/audiconnect/audi-control/pkg/protocol"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrRequiresSPIN    = protocol.ErrRequiresSPIN
)

// maxSuggestionDistance bounds the edit distance of "did you mean" suggestions.
const maxSuggestionDistance = 3

type Argument struct {
	name string
	help string
}

// options holds the values of command-specific flags. A fresh copy is parsed for every command so
// that shell lines don't leak flags into each other.
type options struct {
	raw                   bool
	temperatureC          int
	temperatureF          int
	glassHeating          bool
	seatFrontLeft         bool
	seatFrontRight        bool
	seatRearLeft          bool
	seatRearRight         bool
	climatisationAtUnlock bool
	timer                 bool
	duration              int
}

// environment is shared by all commands of one process.
type environment struct {
	acct    cli.Account
	printer *output.Printer
	resolve func(nameOrVIN string) string
	raw     bool
	spin    bool
	level   action.APILevel
}

type Handler func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error

type Command struct {
	help         string
	vehicle      bool // True if the first argument is a VIN (or configured vehicle name)
	requiresSPIN bool // True if the backend rejects the command without an S-PIN
	electricOnly bool // True if the command requires api_level 1
	args         []Argument
	optional     []Argument
	flags        func(fs *pflag.FlagSet, opts *options)
	validate     func(args map[string]string, opts *options) error
	handler      Handler
}

// invocation is a command whose arguments have been parsed and checked.
type invocation struct {
	name     string
	info     *Command
	keywords map[string]string
	opts     *options
}

var vinArgument = Argument{name: "VIN", help: "Vehicle identification number or configured vehicle name"}

func rawFlag(fs *pflag.FlagSet, opts *options) {
	fs.BoolVar(&opts.raw, "raw", false, "Include the raw API response")
}

func suggest(name string) string {
	best := ""
	bestDistance := maxSuggestionDistance + 1
	for command := range commands {
		if d := levenshtein.ComputeDistance(name, command); d < bestDistance || (d == bestDistance && command < best) {
			best = command
			bestDistance = d
		}
	}
	return best
}

func lookup(commandName string) (*Command, error) {
	info, ok := commands[commandName]
	if !ok {
		if suggestion := suggest(commandName); suggestion != "" {
			return nil, fmt.Errorf("%w: %s (did you mean %s?)", ErrUnknownCommand, commandName, suggestion)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, commandName)
	}
	return info, nil
}

func checkReadiness(commandName string, haveSPIN bool, level action.APILevel) (*Command, error) {
	info, err := lookup(commandName)
	if err != nil {
		return nil, err
	}
	if info.requiresSPIN && !haveSPIN {
		return nil, ErrRequiresSPIN
	}
	if info.electricOnly && level != action.APILevelElectric {
		return nil, vehicle.ErrRequiresElectric
	}
	return info, nil
}

// prepare parses args and runs every check that doesn't require a network connection.
func prepare(env *environment, args []string) (*invocation, error) {
	if len(args) == 0 {
		return nil, errors.New("missing COMMAND")
	}
	info, err := checkReadiness(args[0], env.spin, env.level)
	if err != nil {
		return nil, err
	}

	opts := &options{raw: env.raw}
	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if info.flags != nil {
		info.flags(fs, opts)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return &invocation{name: args[0], info: info}, fmt.Errorf("%w: %s", ErrCommandLineArgs, err)
	}
	opts.raw = opts.raw || env.raw

	positional := fs.Args()
	inv := &invocation{name: args[0], info: info, keywords: make(map[string]string), opts: opts}
	if len(positional) < len(info.args) || len(positional) > len(info.args)+len(info.optional) {
		return inv, fmt.Errorf("%w: got %d arguments (%d required, %d optional)",
			ErrCommandLineArgs, len(positional), len(info.args), len(info.optional))
	}
	for i, argInfo := range info.args {
		inv.keywords[argInfo.name] = positional[i]
	}
	for i, argInfo := range info.optional {
		if len(info.args)+i >= len(positional) {
			break
		}
		inv.keywords[argInfo.name] = positional[len(info.args)+i]
	}
	if info.validate != nil {
		if err := info.validate(inv.keywords, opts); err != nil {
			return inv, err
		}
	}
	return inv, nil
}

func (inv *invocation) run(ctx context.Context, env *environment) error {
	var car cli.Vehicle
	if inv.info.vehicle {
		var err error
		if car, err = env.acct.GetVehicle(ctx, env.resolve(inv.keywords["VIN"])); err != nil {
			return err
		}
	}
	return inv.info.handler(ctx, env, car, inv.keywords, inv.opts)
}

func execute(ctx context.Context, env *environment, args []string) error {
	inv, err := prepare(env, args)
	if err == nil {
		err = inv.run(ctx, env)
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) && inv != nil {
		inv.info.Usage(inv.name, os.Stdout)
	}
	return err
}

func (c *Command) Usage(name string, w io.Writer) {
	fmt.Fprintf(w, "Usage: %s", name)
	if c.flags != nil {
		fmt.Fprintf(w, " [OPTION...]")
	}
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(w, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " [")
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(w, " ]")
	}
	fmt.Fprintf(w, "\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Fprintf(w, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	if c.flags != nil {
		fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
		c.flags(fs, &options{})
		fmt.Fprintf(w, "Options:\n%s", fs.FlagUsages())
	}
	if c.requiresSPIN {
		fmt.Fprintf(w, "Requires an S-PIN.\n")
	}
	if c.electricOnly {
		fmt.Fprintf(w, "Electric vehicles only (api_level 1).\n")
	}
}

func climateOptions(opts *options) action.ClimateOptions {
	climate := action.ClimateOptions{
		TemperatureC:          opts.temperatureC,
		GlassHeating:          opts.glassHeating,
		SeatFrontLeft:         opts.seatFrontLeft,
		SeatFrontRight:        opts.seatFrontRight,
		SeatRearLeft:          opts.seatRearLeft,
		SeatRearRight:         opts.seatRearRight,
		ClimatisationAtUnlock: opts.climatisationAtUnlock,
	}
	if opts.temperatureF != 0 {
		f := opts.temperatureF
		climate.TemperatureF = &f
	}
	return climate
}

func parseChargeTarget(s string) (int, error) {
	percent, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return 0, fmt.Errorf("%w: PERCENT must be an integer", ErrCommandLineArgs)
	}
	if percent < action.MinChargeTarget || percent > action.MaxChargeTarget {
		return 0, fmt.Errorf("%w: got %d%%", action.ErrInvalidChargeTarget, percent)
	}
	return percent, nil
}

// commandResult is printed by commands that have no other output, so that --json always produces
// a document.
type commandResult struct {
	Command string `json:"command" yaml:"command"`
	VIN     string `json:"vin" yaml:"vin"`
	Result  string `json:"result" yaml:"result"`
}

func done(env *environment, car cli.Vehicle, name, message string) error {
	if env.printer.Machine() {
		return env.printer.Print(commandResult{Command: name, VIN: car.VIN(), Result: "ok"})
	}
	env.printer.Message("%s", message)
	return nil
}

// simple builds a handler for commands that take no options and return nothing but an error.
func simple(name, progress, message string, call func(cli.Vehicle, context.Context) error) Handler {
	return func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
		env.printer.Message(progress, car.VIN())
		if err := call(car, ctx); err != nil {
			return err
		}
		return done(env, car, name, message)
	}
}

var commands = map[string]*Command{
	"list-vehicles": &Command{
		help:  "List vehicles on the account",
		flags: rawFlag,
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			vehicles, err := env.acct.Vehicles(ctx)
			if err != nil {
				return err
			}
			if !opts.raw {
				for i := range vehicles {
					vehicles[i].Raw = nil
				}
			}
			if vehicles == nil {
				vehicles = []account.VehicleSummary{}
			}
			if err := env.printer.Print(vehicles); err != nil {
				return err
			}
			for _, v := range vehicles {
				if err := env.printer.Raw("Raw data for "+v.VIN, v.Raw); err != nil {
					return err
				}
			}
			return nil
		},
	},
	"status": &Command{
		help:    "Fetch vehicle status",
		vehicle: true,
		args:    []Argument{vinArgument},
		flags:   rawFlag,
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			status, err := car.Status(ctx)
			if err != nil {
				return err
			}
			if !opts.raw {
				status.Raw = nil
			}
			if err := env.printer.Print(status); err != nil {
				return err
			}
			return env.printer.Raw("Raw data for "+status.VIN, status.Raw)
		},
	},
	"lock": &Command{
		help:         "Lock vehicle",
		vehicle:      true,
		requiresSPIN: true,
		args:         []Argument{vinArgument},
		handler:      simple("lock", "Locking %s...", "Vehicle locked", cli.Vehicle.Lock),
	},
	"unlock": &Command{
		help:         "Unlock vehicle",
		vehicle:      true,
		requiresSPIN: true,
		args:         []Argument{vinArgument},
		handler:      simple("unlock", "Unlocking %s...", "Vehicle unlocked", cli.Vehicle.Unlock),
	},
	"climate-start": &Command{
		help:    "Turn on climate control",
		vehicle: true,
		args:    []Argument{vinArgument},
		flags: func(fs *pflag.FlagSet, opts *options) {
			fs.IntVar(&opts.temperatureC, "temp", action.DefaultClimateTemperatureC, "Target temperature in `celsius`")
			fs.IntVar(&opts.temperatureF, "temp-f", 0, "Target temperature in `fahrenheit`; overrides --temp")
			fs.BoolVar(&opts.glassHeating, "glass-heating", false, "Enable window heating")
			fs.BoolVar(&opts.seatFrontLeft, "seat-fl", false, "Heat the front left seat")
			fs.BoolVar(&opts.seatFrontRight, "seat-fr", false, "Heat the front right seat")
			fs.BoolVar(&opts.seatRearLeft, "seat-rl", false, "Heat the rear left seat")
			fs.BoolVar(&opts.seatRearRight, "seat-rr", false, "Heat the rear right seat")
			fs.BoolVar(&opts.climatisationAtUnlock, "climatisation-at-unlock", false, "Start climate control when the vehicle is unlocked")
		},
		validate: func(args map[string]string, opts *options) error {
			_, err := action.ClimateStart(action.APILevelElectric, climateOptions(opts))
			return err
		},
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			climate := climateOptions(opts)
			if climate.TemperatureF != nil {
				env.printer.Message("Starting climate control on %s at %d°F...", car.VIN(), *climate.TemperatureF)
			} else {
				env.printer.Message("Starting climate control on %s at %d°C...", car.VIN(), climate.TemperatureC)
			}
			if err := car.StartClimate(ctx, climate); err != nil {
				return err
			}
			return done(env, car, "climate-start", "Climate control started")
		},
	},
	"climate-stop": &Command{
		help:    "Turn off climate control",
		vehicle: true,
		args:    []Argument{vinArgument},
		handler: simple("climate-stop", "Stopping climate control on %s...", "Climate control stopped", cli.Vehicle.StopClimate),
	},
	"preheater-start": &Command{
		help:         "Start the auxiliary heater",
		vehicle:      true,
		requiresSPIN: true,
		args:         []Argument{vinArgument},
		flags: func(fs *pflag.FlagSet, opts *options) {
			fs.IntVar(&opts.duration, "duration", int(action.DefaultPreHeaterDuration/time.Minute), "Heating duration in `minutes` (1-60)")
		},
		validate: func(args map[string]string, opts *options) error {
			_, err := action.PreHeaterStart(time.Duration(opts.duration) * time.Minute)
			return err
		},
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			env.printer.Message("Starting auxiliary heater on %s for %d minutes...", car.VIN(), opts.duration)
			if err := car.StartPreHeater(ctx, time.Duration(opts.duration)*time.Minute); err != nil {
				return err
			}
			return done(env, car, "preheater-start", "Auxiliary heater started")
		},
	},
	"preheater-stop": &Command{
		help:         "Stop the auxiliary heater",
		vehicle:      true,
		requiresSPIN: true,
		args:         []Argument{vinArgument},
		handler:      simple("preheater-stop", "Stopping auxiliary heater on %s...", "Auxiliary heater stopped", cli.Vehicle.StopPreHeater),
	},
	"window-heating-start": &Command{
		help:    "Start window heating",
		vehicle: true,
		args:    []Argument{vinArgument},
		handler: simple("window-heating-start", "Starting window heating on %s...", "Window heating started", cli.Vehicle.StartWindowHeating),
	},
	"window-heating-stop": &Command{
		help:    "Stop window heating",
		vehicle: true,
		args:    []Argument{vinArgument},
		handler: simple("window-heating-stop", "Stopping window heating on %s...", "Window heating stopped", cli.Vehicle.StopWindowHeating),
	},
	"charge-start": &Command{
		help:         "Start charging",
		vehicle:      true,
		electricOnly: true,
		args:         []Argument{vinArgument},
		flags: func(fs *pflag.FlagSet, opts *options) {
			fs.BoolVar(&opts.timer, "timer", false, "Charge according to the departure timers instead of immediately")
		},
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			mode := action.ChargingModeManual
			if opts.timer {
				mode = action.ChargingModeTimer
			}
			env.printer.Message("Starting %s charging on %s...", mode, car.VIN())
			if err := car.StartCharging(ctx, mode); err != nil {
				return err
			}
			return done(env, car, "charge-start", "Charging started")
		},
	},
	"charge-stop": &Command{
		help:         "Stop charging",
		vehicle:      true,
		electricOnly: true,
		args:         []Argument{vinArgument},
		handler:      simple("charge-stop", "Stopping charging on %s...", "Charging stopped", cli.Vehicle.StopCharging),
	},
	"set-charge-target": &Command{
		help:         "Set the target state of charge",
		vehicle:      true,
		electricOnly: true,
		args: []Argument{
			vinArgument,
			Argument{name: "PERCENT", help: "Target state of charge (20-100)"},
		},
		validate: func(args map[string]string, opts *options) error {
			_, err := parseChargeTarget(args["PERCENT"])
			return err
		},
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			percent, err := parseChargeTarget(args["PERCENT"])
			if err != nil {
				return err
			}
			env.printer.Message("Setting charge target of %s to %d%%...", car.VIN(), percent)
			if err := car.SetChargeTarget(ctx, percent); err != nil {
				return err
			}
			return done(env, car, "set-charge-target", fmt.Sprintf("Charge target set to %d%%", percent))
		},
	},
	"set-charging-mode": &Command{
		help:         "Set the charging mode",
		vehicle:      true,
		electricOnly: true,
		args: []Argument{
			vinArgument,
			Argument{name: "MODE", help: "One of: manual, timer"},
		},
		validate: func(args map[string]string, opts *options) error {
			_, err := action.ParseChargingMode(args["MODE"])
			return err
		},
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			mode, err := action.ParseChargingMode(args["MODE"])
			if err != nil {
				return err
			}
			env.printer.Message("Setting charging mode of %s to %s...", car.VIN(), mode)
			if err := car.SetChargingMode(ctx, mode); err != nil {
				return err
			}
			return done(env, car, "set-charging-mode", fmt.Sprintf("Charging mode set to %s", mode))
		},
	},
	"refresh-data": &Command{
		help:    "Ask the vehicle to upload fresh status data",
		vehicle: true,
		args:    []Argument{vinArgument},
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			env.printer.Message("Requesting data refresh from %s...", car.VIN())
			result, err := car.RefreshData(ctx)
			if err != nil {
				return err
			}
			if env.printer.Machine() {
				return env.printer.Print(commandResult{Command: "refresh-data", VIN: car.VIN(), Result: string(result)})
			}
			if result == vehicle.RefreshDisabled {
				env.printer.Message("Data refresh is disabled for this vehicle; status shows the last reported values")
				return nil
			}
			env.printer.Message("Data refresh initiated")
			return nil
		},
	},
	"trip-data": &Command{
		help:    "Fetch short-term and long-term trip statistics",
		vehicle: true,
		args:    []Argument{vinArgument},
		handler: func(ctx context.Context, env *environment, car cli.Vehicle, args map[string]string, opts *options) error {
			trips, err := car.TripData(ctx)
			if err != nil {
				return err
			}
			return env.printer.Print(trips)
		},
	},
}

// commandNames returns the sorted list of dispatchable commands.
func commandNames() []string {
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
