package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/bridge"
	"github.com/ardelias/blueberry/pkg/channel"
	"github.com/ardelias/blueberry/pkg/cli"
	"github.com/ardelias/blueberry/pkg/connector/ble/goble"
	"github.com/ardelias/blueberry/pkg/plugin"
)

const (
	EnvTlsCert = "BLUEBERRY_BRIDGE_TLS_CERT"
	EnvTlsKey  = "BLUEBERRY_BRIDGE_TLS_KEY"
	EnvTimeout = "BLUEBERRY_BRIDGE_TIMEOUT"

	secretLength    = 32
	shutdownTimeout = 5 * time.Second
)

const nonLocalhostWarning = `
Do not listen on a network interface without configuring a bridge secret. Unauthorized clients
could connect to, and send data to, any Bluetooth device bonded with this host.`

type BridgeConfig struct {
	keyFilename  string
	certFilename string
	selfSigned   bool
	timeout      time.Duration
	genSecret    bool
	tokenSubject string
}

var (
	bridgeConfig = &BridgeConfig{}
)

func init() {
	flag.StringVar(&bridgeConfig.certFilename, "cert", "", "TLS certificate chain `file`")
	flag.StringVar(&bridgeConfig.keyFilename, "tls-key", "", "Server TLS private key `file`")
	flag.BoolVar(&bridgeConfig.selfSigned, "self-signed", false, "Serve TLS with a generated self-signed certificate")
	flag.DurationVar(&bridgeConfig.timeout, "timeout", bridge.DefaultTimeout, "Timeout interval for method calls other than send")
	flag.BoolVar(&bridgeConfig.genSecret, "gen-secret", false, "Generate a bridge secret, save it to the keyring and exit")
	flag.StringVar(&bridgeConfig.tokenSubject, "token", "", "Print a bearer token for `subject` signed with the bridge secret and exit")
}

func Usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [OPTION...]\n", os.Args[0])
	fmt.Fprintf(out, "\nA server that exposes the blueberry method channel over HTTP and websockets")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, nonLocalhostWarning)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	flag.PrintDefaults()
}

// readFromEnvironment applies configuration from environment variables.
// Values are not overwritten.
func readFromEnvironment() error {
	if bridgeConfig.certFilename == "" {
		bridgeConfig.certFilename = os.Getenv(EnvTlsCert)
	}

	if bridgeConfig.keyFilename == "" {
		bridgeConfig.keyFilename = os.Getenv(EnvTlsKey)
	}

	if bridgeConfig.timeout == bridge.DefaultTimeout {
		if timeoutEnv, ok := os.LookupEnv(EnvTimeout); ok {
			timeout, err := time.ParseDuration(timeoutEnv)
			if err != nil {
				return fmt.Errorf("invalid timeout: %s", timeoutEnv)
			}
			bridgeConfig.timeout = timeout
		}
	}
	return nil
}

func generateSecret(config *cli.Config) error {
	secret := make([]byte, secretLength)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	if err := config.SaveBridgeSecret(secret); err != nil {
		return err
	}
	fmt.Println("Bridge secret saved to the system keyring.")
	return nil
}

func printToken(config *cli.Config, subject string) error {
	secret, err := config.BridgeSecret()
	if err != nil {
		return err
	}
	token, err := bridge.NewToken(secret, subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	config, err := cli.NewConfig(cli.FlagAll)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}

	defer func() {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	}()

	flag.Usage = Usage
	config.RegisterCommandLineFlags()
	flag.Parse()
	if err = readFromEnvironment(); err != nil {
		return
	}
	config.ReadFromEnvironment()

	if config.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	if bridgeConfig.genSecret {
		err = generateSecret(config)
		return
	}
	if bridgeConfig.tokenSubject != "" {
		err = printToken(config, bridgeConfig.tokenSubject)
		return
	}

	secret, err := config.BridgeSecret()
	if errors.Is(err, cli.ErrNoSecret) {
		log.Warning("No bridge secret configured; requests will not be authenticated")
		if config.Host != "" && config.Host != cli.DefaultHost {
			fmt.Fprintln(os.Stderr, nonLocalhostWarning)
		}
		err = nil
	} else if err != nil {
		return
	}

	provider, err := config.Provider()
	if err != nil {
		if goble.IsAdapterError(err) {
			err = errors.New(goble.AdapterErrorHelpMessage(err))
		}
		return
	}

	p := plugin.New(provider, config.PluginConfig())
	defer p.Close()

	b := bridge.New(channel.NewDispatcher(p), p, secret)
	b.Timeout = bridgeConfig.timeout

	addr := config.BridgeAddr()
	server, certPEM, err := NewServer(addr, b, bridgeConfig.selfSigned)
	if err != nil {
		return
	}
	if certPEM != "" {
		log.Info("Using self-signed certificate:\n%s", certPEM)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("Shutting down...")
		b.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warning("Error shutting down: %s", err)
		}
	}()

	log.Info("Listening on %s", addr)
	switch {
	case bridgeConfig.selfSigned:
		err = server.ListenAndServeTLS("", "")
	case bridgeConfig.certFilename != "" || bridgeConfig.keyFilename != "":
		err = server.ListenAndServeTLS(bridgeConfig.certFilename, bridgeConfig.keyFilename)
	default:
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	log.Info("Server stopped after %d requests", b.Requests())
}
