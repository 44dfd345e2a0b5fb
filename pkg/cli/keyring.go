package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName     = "audi-control"
	keyringPasswordService = "password"
	keyringDirectory       = "~/.audi_control_keys"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func (b backendType) Type() string {
	return "type"
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}
	password, err := PromptPassword(prompt)
	if err != nil {
		return "", err
	}
	c.password = &password
	return password, nil
}

// PromptPassword reads a password from the terminal without echoing it. The prompt is written to
// stdout, or to stderr if stdout is redirected.
func PromptPassword(prompt string) (string, error) {
	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		} else {
			w = os.Stderr
		}
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	return string(b), nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	return keyring.Open(c.Backend)
}

func (c *Config) passwordKey() string {
	return keyringPasswordService + "." + strings.ToLower(c.Username)
}

// LoadPasswordFromKeyring loads the account password for c.Username from the system keyring.
func (c *Config) LoadPasswordFromKeyring() (string, error) {
	if c.Username == "" {
		return "", ErrMissingCredentials
	}
	kr, err := c.openKeyring()
	if err != nil {
		return "", err
	}

	item, err := kr.Get(c.passwordKey())
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("could not load password: %s", err)
	}
	return string(item.Data), nil
}

// SavePasswordToKeyring writes the account password for c.Username to the system keyring.
func (c *Config) SavePasswordToKeyring(password string) error {
	if c.Username == "" {
		return ErrMissingCredentials
	}
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}

	if err := kr.Set(keyring.Item{
		Key:   c.passwordKey(),
		Data:  []byte(password),
		Label: "Audi Connect password for " + c.Username,
	}); err != nil {
		return fmt.Errorf("failed to enroll password in keyring: %s", err)
	}
	return nil
}

// DeletePasswordFromKeyring removes the account password for c.Username from the system keyring.
func (c *Config) DeletePasswordFromKeyring() error {
	if c.Username == "" {
		return ErrMissingCredentials
	}
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	return kr.Remove(c.passwordKey())
}
