package udtcfg

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cellforge/udtforge/udtscript"
	"golang.org/x/term"
)

var (
	// ErrNoKey is returned when a command needs the signing key but the
	// config names no key source.
	ErrNoKey = errors.New("no private key configured, set one of " +
		"key.privkey, key.keyfile or key.prompt")
)

// PromptFunc reads a secret from the user.
type PromptFunc func(prompt string) ([]byte, error)

// TerminalPrompt reads a secret from the terminal without echoing it.
func TerminalPrompt(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	return secret, err
}

// LoadKey returns the signing key from the configured source.
func LoadKey(cfg *KeyConfig, prompt PromptFunc) (*udtscript.Key, error) {
	var keyHex string
	switch {
	case cfg.PrivateKey != "":
		keyHex = cfg.PrivateKey

	case cfg.KeyFile != "":
		content, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read key file: %w", err)
		}
		keyHex = string(content)

	case cfg.Prompt:
		secret, err := prompt("Private key (hex): ")
		if err != nil {
			return nil, fmt.Errorf("unable to read key: %w", err)
		}
		keyHex = string(secret)

	default:
		return nil, ErrNoKey
	}

	key, err := udtscript.NewKeyFromHex(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return key, nil
}
