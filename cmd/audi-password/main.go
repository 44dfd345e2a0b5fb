// Utility for storing the account password in the system keyring

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/audiconnect/audi-control/pkg/cli"
)

func usage() {
	w := os.Stderr
	fmt.Fprintf(w, "usage: %s [-u username] [--delete] [file]\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Saves the account password for username in the system keyring, where audi-control")
	fmt.Fprintln(w, "finds it when no other source provides a password. The password is read from file,")
	fmt.Fprintln(w, "from stdin if it is not a terminal, or from an interactive prompt.")
	fmt.Fprintf(w, "The username defaults to $%s or the configuration file.\n\n", cli.EnvAudiUsername)
	pflag.PrintDefaults()
}

func readPassword(args []string) (string, error) {
	var data []byte
	var err error
	switch {
	case len(args) == 1:
		data, err = os.ReadFile(args[0])
	case !term.IsTerminal(int(os.Stdin.Fd())):
		data, err = io.ReadAll(os.Stdin)
	default:
		password, err := cli.PromptPassword("Password")
		if err != nil {
			return "", err
		}
		confirmation, err := cli.PromptPassword("Confirm password")
		if err != nil {
			return "", err
		}
		if password != confirmation {
			return "", fmt.Errorf("passwords do not match")
		}
		return password, nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func main() {
	returnCode := 1
	defer func() {
		os.Exit(returnCode)
	}()

	var remove bool
	config := cli.NewConfig()
	config.RegisterCommandLineFlags(pflag.CommandLine)
	pflag.BoolVar(&remove, "delete", false, "Remove the stored password instead of saving one")
	pflag.Usage = usage
	pflag.Parse()
	config.ReadFromEnvironment()
	if err := config.ReadFromConfigFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading configuration file: %s\n", err)
		return
	}

	if config.Username == "" {
		fmt.Fprintf(os.Stderr, "Must provide a username with -u, $%s or the configuration file\n", cli.EnvAudiUsername)
		return
	}
	if pflag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Too many command-line arguments")
		return
	}

	if remove {
		if err := config.DeletePasswordFromKeyring(); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing password from keyring: %s\n", err)
			return
		}
		returnCode = 0
		return
	}

	password, err := readPassword(pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %s\n", err)
		return
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "Refusing to save an empty password")
		return
	}
	if err := config.SavePasswordToKeyring(password); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving password to keyring: %s\n", err)
		return
	}

	returnCode = 0
}
