package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/cli"
	"github.com/audiconnect/audi-control/pkg/proxy"
)

const defaultPort = 8443

const (
	EnvTlsCert = "AUDI_HTTP_PROXY_TLS_CERT"
	EnvTlsKey  = "AUDI_HTTP_PROXY_TLS_KEY"
	EnvHost    = "AUDI_HTTP_PROXY_HOST"
	EnvPort    = "AUDI_HTTP_PROXY_PORT"
	EnvTimeout = "AUDI_HTTP_PROXY_TIMEOUT"
	EnvAPIKey  = "AUDI_HTTP_PROXY_API_KEY"
	EnvVerbose = "AUDI_VERBOSE"
)

const nonLocalhostWarning = `
Do not listen on a network interface without setting an API key. Unauthorized clients may be used
to create excessive traffic from your IP address to the vehicle servers, which lock accounts that
send too many requests.`

type HttpProxyConfig struct {
	keyFilename  string
	certFilename string
	verbose      bool
	host         string
	port         int
	timeout      time.Duration
	connTimeout  time.Duration
	apiKey       string
}

var (
	httpConfig = &HttpProxyConfig{}
)

func init() {
	pflag.StringVar(&httpConfig.certFilename, "cert", "", "TLS certificate chain `file`. A self-signed certificate is generated if omitted.")
	pflag.StringVar(&httpConfig.keyFilename, "tls-key", "", "Server TLS private key `file`")
	pflag.BoolVar(&httpConfig.verbose, "verbose", false, "Enable verbose logging")
	pflag.StringVar(&httpConfig.host, "host", "localhost", "Proxy server `hostname`")
	pflag.IntVar(&httpConfig.port, "port", defaultPort, "`Port` to listen on")
	pflag.DurationVar(&httpConfig.timeout, "timeout", proxy.DefaultTimeout, "Timeout interval when sending commands")
	pflag.DurationVar(&httpConfig.connTimeout, "connect-timeout", 60*time.Second, "Timeout interval when logging in")
	pflag.StringVar(&httpConfig.apiKey, "api-key", "", "Bearer `token` clients must present")
}

func Usage() {
	out := os.Stderr
	fmt.Fprintf(out, "Usage: %s [OPTION...]\n", os.Args[0])
	fmt.Fprintf(out, "\nA server that exposes a REST API for sending commands to the vehicles on one account")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, nonLocalhostWarning)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	pflag.PrintDefaults()
}

func main() {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	}()

	config := cli.NewConfig()
	pflag.Usage = Usage
	config.RegisterCommandLineFlags(pflag.CommandLine)
	pflag.Parse()
	if err = readFromEnvironment(); err != nil {
		return
	}
	config.ReadFromEnvironment()
	if err = config.ReadFromConfigFile(); err != nil {
		return
	}

	if httpConfig.verbose {
		log.SetLevel(log.LevelDebug)
	}

	if httpConfig.host != "localhost" && httpConfig.apiKey == "" {
		fmt.Fprintln(os.Stderr, nonLocalhostWarning)
	}
	if (httpConfig.certFilename == "") != (httpConfig.keyFilename == "") {
		err = errors.New("provide both --cert and --tls-key, or neither")
		return
	}

	if err = config.LoadCredentials(); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpConfig.connTimeout)
	acct, err := config.Connect(ctx, account.WithUserAgent("audi-http-proxy"))
	cancel()
	if err != nil {
		return
	}

	log.Debug("Creating proxy")
	p := proxy.New(acct)
	p.Timeout = httpConfig.timeout
	p.APIKey = httpConfig.apiKey
	p.Resolve = config.ResolveVIN
	addr := fmt.Sprintf("%s:%d", httpConfig.host, httpConfig.port)
	log.Info("Listening on %s", addr)

	if httpConfig.certFilename != "" {
		server := &http.Server{Addr: addr, Handler: p, ReadHeaderTimeout: 10 * time.Second}
		err = Serve(server, httpConfig.certFilename, httpConfig.keyFilename)
		return
	}
	server, certPEM, err := NewServer(addr, httpConfig.host, p)
	if err != nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Using self-signed certificate:\n%s", certPEM)
	err = Serve(server, "", "")
}

// readFromEnvironment applies configuration from environment variables.
// Values are not overwritten.
func readFromEnvironment() error {
	if httpConfig.certFilename == "" {
		httpConfig.certFilename = os.Getenv(EnvTlsCert)
	}

	if httpConfig.keyFilename == "" {
		httpConfig.keyFilename = os.Getenv(EnvTlsKey)
	}

	if httpConfig.apiKey == "" {
		httpConfig.apiKey = os.Getenv(EnvAPIKey)
	}

	if httpConfig.host == "localhost" {
		host, ok := os.LookupEnv(EnvHost)
		if ok {
			httpConfig.host = host
		}
	}

	if !httpConfig.verbose {
		if verbose, ok := os.LookupEnv(EnvVerbose); ok {
			httpConfig.verbose = verbose != "false" && verbose != "0"
		}
	}

	var err error
	if httpConfig.port == defaultPort {
		if port, ok := os.LookupEnv(EnvPort); ok {
			httpConfig.port, err = strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("invalid port: %s", port)
			}
		}
	}

	if httpConfig.timeout == proxy.DefaultTimeout {
		if timeoutEnv, ok := os.LookupEnv(EnvTimeout); ok {
			httpConfig.timeout, err = time.ParseDuration(timeoutEnv)
			if err != nil {
				return fmt.Errorf("invalid timeout: %s", timeoutEnv)
			}
		}
	}

	return nil
}
