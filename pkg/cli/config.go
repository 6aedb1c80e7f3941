/*
Package cli facilitates building command-line applications around the blueberry plugin. It
defines a [Config] type that can be used to register common command-line flags (using the Golang
flag package) and environment variable equivalents.

The package uses [keyring]'s platform-agnostic interface for storing the bridge's token-signing
secret in an OS-dependent credential store.

# Examples

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for the adapter, timeouts, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables

	provider, err := config.Provider()
	if err != nil {
		panic(err)
	}
	p := plugin.New(provider, config.PluginConfig())
	defer p.Close()
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/99designs/keyring"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/connector/ble"
	"github.com/ardelias/blueberry/pkg/connector/ble/goble"
	"github.com/ardelias/blueberry/pkg/plugin"
)

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvAdapter        = "BLUEBERRY_ADAPTER"
	EnvRFCOMMChannel  = "BLUEBERRY_RFCOMM_CHANNEL"
	EnvSendTimeout    = "BLUEBERRY_SEND_TIMEOUT"
	EnvConnectTimeout = "BLUEBERRY_CONNECT_TIMEOUT"
	EnvReadBuffer     = "BLUEBERRY_READ_BUFFER"
	EnvPollInterval   = "BLUEBERRY_POLL_INTERVAL"
	EnvVerbose        = "BLUEBERRY_VERBOSE"
	EnvHost           = "BLUEBERRY_HOST"
	EnvPort           = "BLUEBERRY_PORT"
	EnvBridgeSecret   = "BLUEBERRY_BRIDGE_SECRET"
	EnvKeyringType    = "BLUEBERRY_KEYRING_TYPE"
	EnvKeyringPass    = "BLUEBERRY_KEYRING_PASSWORD"
	EnvKeyringPath    = "BLUEBERRY_KEYRING_PATH"
	EnvKeyringDebug   = "BLUEBERRY_KEYRING_DEBUG"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 4443
)

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagBluetooth Flag = 1 // Enable adapter, RFCOMM and timeout options.
	FlagBridge    Flag = 2 // Enable bridge listener and secret options.
	FlagAll       Flag = FlagBluetooth | FlagBridge
)

var (
	ErrNoSecret    = errors.New("bridge secret not configured")
	ErrKeyNotFound = keyring.ErrKeyNotFound
)

// Config fields determine how the plugin reaches the Bluetooth stack and how the bridge listens.
type Config struct {
	Flags Flag // Controls which set of environment variables/CLI flags to use.

	AdapterID      string
	RFCOMMChannel  uint
	DisableHCI     bool
	SendTimeout    time.Duration
	ConnectTimeout time.Duration
	ReadBufferSize int
	PollInterval   time.Duration
	Verbose        bool

	Host string
	Port int

	Backend      keyring.Config
	BackendType  backendType
	KeyringDebug bool // Enable keyring debug messages

	password *string
	secret   []byte
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

// RegisterCommandLineFlags adds c's options to the default flag set.
func (c *Config) RegisterCommandLineFlags() {
	c.RegisterFlags(flag.CommandLine)
}

func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.Verbose, "debug", false, "Enable verbose debugging messages. Defaults to $BLUEBERRY_VERBOSE.")
	if c.Flags.isSet(FlagBluetooth) {
		fs.UintVar(&c.RFCOMMChannel, "rfcomm-channel", 0, "RFCOMM `channel` to connect to. Defaults to $BLUEBERRY_RFCOMM_CHANNEL or 1.")
		fs.DurationVar(&c.SendTimeout, "send-timeout", 0, "Maximum `duration` of a send. Defaults to $BLUEBERRY_SEND_TIMEOUT or no timeout.")
		fs.DurationVar(&c.ConnectTimeout, "connect-timeout", 0, "Maximum `duration` of a connect. Defaults to $BLUEBERRY_CONNECT_TIMEOUT or no timeout.")
		fs.IntVar(&c.ReadBufferSize, "read-buffer", 0, "Maximum response size in `bytes`. Defaults to $BLUEBERRY_READ_BUFFER or 4096.")
		fs.DurationVar(&c.PollInterval, "poll-interval", 0, "Discovery polling `interval` when LE scanning is unavailable. Defaults to $BLUEBERRY_POLL_INTERVAL or 1s.")
		c.registerCommandLineFlagsOsSpecific(fs)
	}
	if c.Flags.isSet(FlagBridge) {
		fs.StringVar(&c.Host, "host", "", "Bridge listening `host`. Defaults to $BLUEBERRY_HOST or localhost.")
		fs.IntVar(&c.Port, "port", 0, "Bridge listening `port`. Defaults to $BLUEBERRY_PORT or 4443.")

		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		fs.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $BLUEBERRY_KEYRING_TYPE.")
		fs.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		fs.BoolVar(&c.KeyringDebug, "keyring-debug", false, "Enable keyring debug logging")
	}
}

func lookupDuration(name string) (time.Duration, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warning("Ignoring invalid $%s: %s", name, err)
		return 0, false
	}
	return d, true
}

func lookupInt(name string) (int, bool) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		log.Warning("Ignoring invalid $%s: %q", name, value)
		return 0, false
	}
	return n, true
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if !c.Verbose {
		if verbose, ok := os.LookupEnv(EnvVerbose); ok {
			c.Verbose = verbose != "false" && verbose != "0"
		}
	}
	if c.Flags.isSet(FlagBluetooth) {
		if c.AdapterID == "" {
			c.AdapterID = os.Getenv(EnvAdapter)
			log.Debug("Set adapter to '%s'", c.AdapterID)
		}
		if c.RFCOMMChannel == 0 {
			if n, ok := lookupInt(EnvRFCOMMChannel); ok {
				c.RFCOMMChannel = uint(n)
				log.Debug("Set RFCOMM channel to %d", c.RFCOMMChannel)
			}
		}
		if c.SendTimeout == 0 {
			if d, ok := lookupDuration(EnvSendTimeout); ok {
				c.SendTimeout = d
				log.Debug("Set send timeout to %s", d)
			}
		}
		if c.ConnectTimeout == 0 {
			if d, ok := lookupDuration(EnvConnectTimeout); ok {
				c.ConnectTimeout = d
				log.Debug("Set connect timeout to %s", d)
			}
		}
		if c.ReadBufferSize == 0 {
			if n, ok := lookupInt(EnvReadBuffer); ok {
				c.ReadBufferSize = n
				log.Debug("Set read buffer size to %d", n)
			}
		}
		if c.PollInterval == 0 {
			if d, ok := lookupDuration(EnvPollInterval); ok {
				c.PollInterval = d
				log.Debug("Set poll interval to %s", d)
			}
		}
	}
	if c.Flags.isSet(FlagBridge) {
		if c.Host == "" {
			c.Host = os.Getenv(EnvHost)
		}
		if c.Port == 0 {
			if n, ok := lookupInt(EnvPort); ok {
				c.Port = n
			}
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvKeyringPass)
			c.password = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvKeyringPath)
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
		if !c.KeyringDebug {
			_, c.KeyringDebug = os.LookupEnv(EnvKeyringDebug)
		}
		if c.secret == nil {
			if secret := os.Getenv(EnvBridgeSecret); secret != "" {
				c.secret = []byte(secret)
				log.Debug("Set bridge secret from environment")
			}
		}
	}
}

// PluginConfig returns the plugin settings described by c. Unset values keep the plugin defaults;
// in particular, a zero send timeout means sends never time out.
func (c *Config) PluginConfig() plugin.Config {
	cfg := plugin.DefaultConfig()
	cfg.SendTimeout = c.SendTimeout
	cfg.ConnectTimeout = c.ConnectTimeout
	if c.ReadBufferSize > 0 {
		cfg.ReadBufferSize = c.ReadBufferSize
	}
	if c.PollInterval > 0 {
		cfg.PollInterval = c.PollInterval
	}
	return cfg
}

func (c *Config) ProviderConfig() (goble.Config, error) {
	if c.RFCOMMChannel > 30 {
		return goble.Config{}, fmt.Errorf("invalid RFCOMM channel %d (must be 1-30)", c.RFCOMMChannel)
	}
	return goble.Config{
		AdapterID:     c.AdapterID,
		RFCOMMChannel: uint8(c.RFCOMMChannel),
		DisableHCI:    c.DisableHCI,
	}, nil
}

// Provider opens the host Bluetooth stack.
func (c *Config) Provider() (ble.Provider, error) {
	cfg, err := c.ProviderConfig()
	if err != nil {
		return nil, err
	}
	return goble.NewProvider(cfg)
}

// BridgeAddr returns the bridge listening address.
func (c *Config) BridgeAddr() string {
	host, port := c.Host, c.Port
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
