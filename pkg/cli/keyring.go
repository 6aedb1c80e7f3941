package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName = "io.ardelias.blueberry"
	keyringSecretItem  = "bridge-secret"
	keyringDirectory   = "~/.blueberry_keys"
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

// Set restricts the keyring to one backend. An empty value leaves the choice to the keyring.
func (b backendType) Set(v string) error {
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	value := keyring.BackendType(v)
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage %q", v)
}

// promptOutput returns the terminal a password prompt can be written to.
func promptOutput() (io.Writer, error) {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		if term.IsTerminal(int(f.Fd())) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no terminal output available for password prompt")
}

// getPassword unlocks file-backed keyrings. The password comes from $BLUEBERRY_KEYRING_PASSWORD
// or an interactive prompt, and is remembered for the lifetime of c.
func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}

	w, err := promptOutput()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	password := string(b)
	c.password = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	if c.KeyringDebug {
		keyring.Debug = true
	}
	return keyring.Open(c.Backend)
}

// BridgeSecret returns the secret used to sign and verify bridge tokens. A secret set through
// the environment takes precedence over the keyring. It returns ErrNoSecret if neither holds one.
func (c *Config) BridgeSecret() ([]byte, error) {
	if c.secret != nil {
		return c.secret, nil
	}
	kr, err := c.openKeyring()
	if err != nil {
		return nil, err
	}
	item, err := kr.Get(keyringSecretItem)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNoSecret
	}
	if err != nil {
		return nil, fmt.Errorf("could not load bridge secret: %s", err)
	}
	c.secret = item.Data
	return c.secret, nil
}

// SaveBridgeSecret writes secret to the system keyring.
func (c *Config) SaveBridgeSecret(secret []byte) error {
	if len(secret) == 0 {
		return ErrNoSecret
	}
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}

	if err := kr.Set(keyring.Item{
		Key:         keyringSecretItem,
		Data:        secret,
		Label:       "blueberry bridge secret",
		Description: "HS256 key for blueberry bridge bearer tokens",
	}); err != nil {
		return fmt.Errorf("failed to enroll bridge secret in keyring: %s", err)
	}
	c.secret = secret
	return nil
}

// DeleteBridgeSecret removes the bridge secret from the system keyring.
func (c *Config) DeleteBridgeSecret() error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	c.secret = nil
	return kr.Remove(keyringSecretItem)
}
