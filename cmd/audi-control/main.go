package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/pflag"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/cli"
	"github.com/audiconnect/audi-control/pkg/output"
	"github.com/audiconnect/audi-control/pkg/protocol"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Credentials are read from OPTIONs, then AUDI_* environment variables, then the configuration
   file, then the system keyring (see audi-password).
 * VIN arguments also accept a vehicle name from the configuration file.
 * Lock, unlock, and auxiliary heater commands require an S-PIN.
 * Run "shell" to enter several commands without logging in again.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	pflag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	labels := append(commandNames(), "shell")
	maxLength := 0
	for _, command := range labels {
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	for _, command := range commandNames() {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
	fmt.Printf("  %s%s %s\n", "shell", strings.Repeat(" ", maxLength-len("shell")), "Read commands from standard input")
}

func reportError(err error) {
	var notFound *protocol.VehicleNotFoundError
	switch {
	case errors.Is(err, protocol.ErrThrottled):
		writeErr("The account is temporarily throttled by the server. Wait before trying again: %s", err)
	case errors.Is(err, protocol.ErrUnauthorized):
		writeErr("Authentication failed: %s", err)
		writeErr("Check your credentials. You may need to accept updated terms in the myAudi app.")
	case errors.Is(err, protocol.ErrRequiresSPIN):
		writeErr("This command requires an S-PIN. Provide one with --spin, $%s or the configuration file.", cli.EnvAudiSPIN)
	case errors.Is(err, vehicle.ErrRequiresElectric):
		writeErr("This command requires an electric vehicle. Set --api-level 1 if yours is one.")
	case errors.As(err, &notFound):
		writeErr("Vehicle %s not found. Available vehicles: %s", notFound.VIN, strings.Join(notFound.Available, ", "))
	case protocol.MayHaveSucceeded(err):
		writeErr("Couldn't verify success: %s", err)
	default:
		writeErr("Failed to execute command: %s", err)
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		log.Debug("Error chain: %T: %s", e, e)
	}
}

func runCommand(env *environment, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, env, args); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

func runInteractiveShell(env *environment, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if args[0] == "help" {
			help(args[1:])
			continue
		}
		runCommand(env, args, timeout)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func help(args []string) bool {
	if len(args) == 0 {
		Usage()
		return true
	}
	info, err := lookup(args[0])
	if err != nil {
		writeErr("%s", err)
		return false
	}
	info.Usage(args[0], os.Stdout)
	return true
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		jsonOutput     bool
		yamlOutput     bool
		raw            bool
		commandTimeout time.Duration
		connTimeout    time.Duration
	)
	config := cli.NewConfig()
	pflag.Usage = Usage
	pflag.CommandLine.SetInterspersed(false)
	pflag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	pflag.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	pflag.BoolVar(&yamlOutput, "yaml", false, "Print results as YAML")
	pflag.BoolVar(&raw, "raw", false, "Include raw API responses in the output")
	pflag.DurationVar(&commandTimeout, "timeout", 60*time.Second, "Set timeout for each command.")
	pflag.DurationVar(&connTimeout, "connect-timeout", 60*time.Second, "Set timeout for logging in.")

	config.RegisterCommandLineFlags(pflag.CommandLine)
	pflag.Parse()
	if !debug {
		if debugEnv, ok := os.LookupEnv("AUDI_VERBOSE"); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	}
	if jsonOutput && yamlOutput {
		writeErr("--json and --yaml are mutually exclusive")
		return
	}
	format := output.FormatText
	if jsonOutput {
		format = output.FormatJSON
	} else if yamlOutput {
		format = output.FormatYAML
	}

	args := pflag.Args()
	if len(args) == 0 {
		Usage()
		return
	}
	if args[0] == "help" {
		if help(args[1:]) {
			status = 0
		}
		return
	}

	config.ReadFromEnvironment()
	if err := config.ReadFromConfigFile(); err != nil {
		writeErr("Error reading configuration file: %s", err)
		return
	}

	env := &environment{
		printer: output.NewPrinter(format, os.Stdout),
		resolve: config.ResolveVIN,
		raw:     raw,
		spin:    config.SPIN != "",
		level:   config.APILevel.Level,
	}
	shell := args[0] == "shell"
	if !shell {
		if inv, err := prepare(env, args); err != nil {
			reportError(err)
			if errors.Is(err, ErrCommandLineArgs) && inv != nil {
				inv.info.Usage(inv.name, os.Stderr)
			}
			return
		}
	}

	if err := config.LoadCredentials(); err != nil {
		writeErr("Error loading credentials: %s", err)
		return
	}
	if debug {
		config.Describe(os.Stderr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	acct, err := config.Connect(ctx, account.WithUserAgent("audi-control"))
	if err != nil {
		reportError(err)
		return
	}
	env.acct = acct

	if shell {
		status = runInteractiveShell(env, commandTimeout)
	} else {
		status = runCommand(env, args, commandTimeout)
	}
}
