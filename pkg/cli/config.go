/*
Package cli facilitates building command-line applications that control vehicles through an Audi
Connect account. It defines a [Config] type that merges command-line flags (using the
[github.com/spf13/pflag] package), environment variables, and a JSON configuration file into one
set of credentials.

The package uses [keyring]'s platform-agnostic interface for storing the account password in an
OS-dependent credential store. The keyring is only consulted when no other source provides a
password.

# Examples

	config := cli.NewConfig()
	config.RegisterCommandLineFlags(pflag.CommandLine) // Adds -u, -p, -c, --spin, etc.
	pflag.Parse()
	config.ReadFromEnvironment() // Fills in missing fields using environment variables
	if err := config.ReadFromConfigFile(); err != nil {
		panic(err)
	}
	if err := config.LoadCredentials(); err != nil { // Falls back to the keyring for the password
		panic(err)
	}

	acct, err := config.Connect(ctx)
	if err != nil {
		panic(err)
	}
	car, err := acct.GetVehicle(ctx, config.ResolveVIN("my-car"))

Precedence is flags, then environment, then the configuration file, then the keyring. Values that
are already populated are never overwritten by a lower-precedence source.
*/
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/99designs/keyring"
	"github.com/spf13/pflag"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvAudiUsername     = "AUDI_USERNAME"
	EnvAudiPassword     = "AUDI_PASSWORD"
	EnvAudiCountry      = "AUDI_COUNTRY"
	EnvAudiSPIN         = "AUDI_SPIN"
	EnvAudiAPILevel     = "AUDI_API_LEVEL"
	EnvAudiConfig       = "AUDI_CONFIG"
	EnvAudiKeyringType  = "AUDI_KEYRING_TYPE"
	EnvAudiKeyringPass  = "AUDI_KEYRING_PASSWORD"
	EnvAudiKeyringPath  = "AUDI_KEYRING_PATH"
	EnvAudiKeyringDebug = "AUDI_KEYRING_DEBUG"
)

// DefaultConfigFile is read when neither --config nor $AUDI_CONFIG is set.
const DefaultConfigFile = "config.json"

var (
	ErrMissingCredentials = account.ErrMissingCredentials
	ErrInvalidAPILevel    = errors.New("api_level must be 0 (gas) or 1 (electric)")
	ErrKeyNotFound        = keyring.ErrKeyNotFound
)

// Config value sources reported by [Config.Describe].
const (
	sourceFlag        = "command line"
	sourceEnvironment = "environment"
	sourceFile        = "config file"
	sourceKeyring     = "keyring"
)

// VehicleConfig is an entry of the configuration file's vehicle list. Name can be used in place
// of the VIN on the command line.
type VehicleConfig struct {
	VIN       string      `json:"vin"`
	Name      string      `json:"name,omitempty"`
	Model     string      `json:"model,omitempty"`
	ModelYear json.Number `json:"model_year,omitempty"`
	CSID      string      `json:"csid,omitempty"`
	Notes     string      `json:"notes,omitempty"`
}

// FileConfig is the format of the JSON configuration file.
type FileConfig struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Country  string          `json:"country"`
	SPIN     string          `json:"spin"`
	APILevel *int            `json:"api_level"`
	Vehicles []VehicleConfig `json:"vehicles"`
}

// APILevel is a command-line flag holding an [action.APILevel]. It accepts 0, 1, "gas", or
// "electric".
type APILevel struct {
	Level action.APILevel
	set   bool
}

func (a *APILevel) Set(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "gas", "combustion":
		a.Level = action.APILevelCombustion
	case "1", "electric":
		a.Level = action.APILevelElectric
	default:
		return ErrInvalidAPILevel
	}
	a.set = true
	return nil
}

func (a *APILevel) String() string {
	return strconv.Itoa(int(a.Level))
}

func (a *APILevel) Type() string {
	return "level"
}

// IsSet returns true if a value was provided by any source.
func (a *APILevel) IsSet() bool {
	return a.set
}

// Config fields determine how a client authenticates to the account and its vehicles.
type Config struct {
	Username    string
	Password    string
	Country     string
	SPIN        string
	APILevel    APILevel
	ConfigFile  string
	Vehicles    []VehicleConfig
	Backend     keyring.Config
	BackendType backendType
	Debug       bool // Enable keyring debug messages

	flags    *pflag.FlagSet
	sources  map[string]string
	password *string // Keyring password, not the account password.
}

func NewConfig() *Config {
	c := Config{
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
		sources: make(map[string]string),
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword
	return &c
}

func (c *Config) RegisterCommandLineFlags(fs *pflag.FlagSet) {
	c.flags = fs
	fs.StringVarP(&c.Username, "username", "u", "", "Account `email` address. Defaults to $AUDI_USERNAME.")
	fs.StringVarP(&c.Password, "password", "p", "", "Account `password`. Defaults to $AUDI_PASSWORD.")
	fs.StringVarP(&c.Country, "country", "c", "", "Account `country` ("+strings.Join(account.Countries(), "|")+"). Defaults to $AUDI_COUNTRY.")
	fs.StringVar(&c.SPIN, "spin", "", "Four-digit S-PIN for lock, unlock, and the auxiliary heater. Defaults to $AUDI_SPIN.")
	fs.Var(&c.APILevel, "api-level", "Vehicle API level: 0 for gas, 1 for electric. Defaults to $AUDI_API_LEVEL.")
	fs.StringVar(&c.ConfigFile, "config", "", "Configuration `file`. Defaults to $AUDI_CONFIG or "+DefaultConfigFile+".")

	var names []string
	for _, name := range keyring.AvailableBackends() {
		names = append(names, string(name))
	}
	sort.Strings(names)
	fs.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $AUDI_KEYRING_TYPE.")
	fs.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
	fs.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
}

func (c *Config) setFrom(field, source string) {
	if c.sources == nil {
		c.sources = make(map[string]string)
	}
	c.sources[field] = source
}

func (c *Config) source(field, flagName string) string {
	if c.flags != nil && c.flags.Changed(flagName) {
		return sourceFlag
	}
	if s, ok := c.sources[field]; ok {
		return s
	}
	return "unset"
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag parsing will prevent the environment from overriding
// explicit command-line parameters and avoid potentially misleading debug log messages.
func (c *Config) ReadFromEnvironment() {
	fill := func(field *string, name, env string, secret bool) {
		if *field != "" {
			return
		}
		if value := os.Getenv(env); value != "" {
			*field = value
			c.setFrom(name, sourceEnvironment)
			if secret {
				value = log.Mask(value)
			}
			log.Debug("Set %s to '%s'", name, value)
		}
	}
	fill(&c.Username, "username", EnvAudiUsername, false)
	fill(&c.Password, "password", EnvAudiPassword, true)
	fill(&c.Country, "country", EnvAudiCountry, false)
	fill(&c.SPIN, "spin", EnvAudiSPIN, true)
	fill(&c.ConfigFile, "config", EnvAudiConfig, false)

	if !c.APILevel.IsSet() {
		if value, ok := os.LookupEnv(EnvAudiAPILevel); ok {
			if err := c.APILevel.Set(value); err != nil {
				log.Warning("Ignoring $%s: %s", EnvAudiAPILevel, err)
			} else {
				c.setFrom("api_level", sourceEnvironment)
				log.Debug("Set api_level to %s", c.APILevel.Level)
			}
		}
	}

	if c.BackendType.String() == string(keyring.InvalidBackend) {
		if err := c.BackendType.Set(os.Getenv(EnvAudiKeyringType)); err == nil {
			log.Debug("Set keyring type to '%s'", c.BackendType)
		}
	}
	if c.password == nil {
		password := os.Getenv(EnvAudiKeyringPass)
		c.password = &password
		if len(password) > 0 {
			log.Debug("Set keyring File Password to %s", log.Mask(password))
		}
	}
	if c.Backend.FileDir == "" || c.Backend.FileDir == keyringDirectory {
		if dir := os.Getenv(EnvAudiKeyringPath); dir != "" {
			c.Backend.FileDir = dir
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
	}
	if !c.Debug {
		_, c.Debug = os.LookupEnv(EnvAudiKeyringDebug)
		log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
	}
	keyring.Debug = c.Debug
}

// ReadFromConfigFile populates unset fields of c from c.ConfigFile (or [DefaultConfigFile]).
//
// A missing file is not an error. A file that cannot be read or parsed is logged and ignored.
func (c *Config) ReadFromConfigFile() error {
	path := c.ConfigFile
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("No configuration file at %s", path)
			return nil
		}
		log.Warning("Ignoring unreadable configuration file %s: %s", path, err)
		return nil
	}

	var file FileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		log.Warning("Ignoring malformed configuration file %s: %s", path, err)
		return nil
	}
	log.Debug("Loaded configuration file %s", path)

	fill := func(field *string, name, value string) {
		if *field == "" && value != "" {
			*field = value
			c.setFrom(name, sourceFile)
		}
	}
	fill(&c.Username, "username", file.Username)
	fill(&c.Password, "password", file.Password)
	fill(&c.Country, "country", file.Country)
	fill(&c.SPIN, "spin", file.SPIN)
	if !c.APILevel.IsSet() && file.APILevel != nil {
		if err := c.APILevel.Set(strconv.Itoa(*file.APILevel)); err != nil {
			log.Warning("Ignoring api_level in %s: %s", path, err)
		} else {
			c.setFrom("api_level", sourceFile)
		}
	}
	c.Vehicles = append(c.Vehicles, file.Vehicles...)
	return nil
}

// LoadCredentials fills in the password from the system keyring if no other source provided it,
// then validates the credentials. Call this method before [Config.Connect] to prevent interactive
// keyring prompts from counting against timeouts.
func (c *Config) LoadCredentials() error {
	if c.Password == "" && c.Username != "" {
		password, err := c.LoadPasswordFromKeyring()
		switch {
		case err == nil:
			c.Password = password
			c.setFrom("password", sourceKeyring)
		case errors.Is(err, ErrKeyNotFound):
			log.Debug("No password for %s in keyring", log.Mask(c.Username))
		default:
			log.Debug("Could not read keyring: %s", err)
		}
	}

	var missing []string
	for _, field := range []struct{ name, value string }{
		{"username", c.Username},
		{"password", c.Password},
		{"country", c.Country},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w (missing %s; use -u/-p/-c, environment variables, or %s)",
			ErrMissingCredentials, strings.Join(missing, ", "), DefaultConfigFile)
	}
	if _, err := account.RegionByCountry(c.Country); err != nil {
		return err
	}
	if c.SPIN != "" {
		if err := vehicle.ValidateSPIN(c.SPIN); err != nil {
			return err
		}
	}
	return nil
}

// Credentials returns the account credentials held by c.
func (c *Config) Credentials() account.Credentials {
	return account.Credentials{
		Username: c.Username,
		Password: c.Password,
		Country:  strings.ToUpper(c.Country),
		SPIN:     c.SPIN,
		APILevel: c.APILevel.Level,
	}
}

// ResolveVIN maps a vehicle name from the configuration file (case-insensitive) to its VIN.
// Anything else is treated as a VIN.
func (c *Config) ResolveVIN(nameOrVIN string) string {
	nameOrVIN = strings.TrimSpace(nameOrVIN)
	for _, v := range c.Vehicles {
		if v.Name != "" && strings.EqualFold(v.Name, nameOrVIN) {
			log.Debug("Resolved vehicle name %s to %s", v.Name, v.VIN)
			return strings.ToUpper(v.VIN)
		}
	}
	return strings.ToUpper(nameOrVIN)
}

// Annotate copies names and notes from the configuration file onto matching vehicles.
func (c *Config) Annotate(vehicles []account.VehicleSummary) {
	for i := range vehicles {
		for _, v := range c.Vehicles {
			if strings.EqualFold(v.VIN, vehicles[i].VIN) {
				vehicles[i].Name = v.Name
				vehicles[i].Notes = v.Notes
			}
		}
	}
}

// Describe writes the effective configuration to w with secrets masked.
func (c *Config) Describe(w io.Writer) error {
	configFile := c.ConfigFile
	if configFile == "" {
		configFile = DefaultConfigFile
	}
	rows := [][3]string{
		{"username", c.Username, c.source("username", "username")},
		{"password", log.Mask(c.Password), c.source("password", "password")},
		{"country", c.Country, c.source("country", "country")},
		{"spin", log.Mask(c.SPIN), c.source("spin", "spin")},
		{"api_level", c.APILevel.Level.String(), c.source("api_level", "api-level")},
		{"config", configFile, c.source("config", "config")},
		{"vehicles", strconv.Itoa(len(c.Vehicles)), sourceFile},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-10s %-30s (%s)\n", row[0]+":", row[1], row[2]); err != nil {
			return err
		}
	}
	return nil
}

// Connect logs in to the configured account.
func (c *Config) Connect(ctx context.Context, options ...account.LoginOption) (Account, error) {
	acct, err := account.Login(ctx, c.Credentials(), options...)
	if err != nil {
		return nil, err
	}
	return &remoteAccount{Account: acct, config: c}, nil
}
