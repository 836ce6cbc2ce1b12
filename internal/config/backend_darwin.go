//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.genreach.app"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "genreach")
	}
	return "genreach-data"
}

// APIKeyHint tells the user where the OpenRouter key can be put.
func APIKeyHint() string {
	return fmt.Sprintf("set %s or add it to the macOS Keychain (service %s, account %s)",
		apiKeyEnv, keychainService, keychainAccount)
}

// defaultsStore keeps keys in the com.genreach.app UserDefaults domain.
type defaultsStore struct {
	domain string
}

func newPlatformStore() store {
	return defaultsStore{domain: defaultsDomain}
}

// missing reports the exit status `defaults` uses for an absent key.
func missing(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

func (s defaultsStore) Get(key string, typ keyType) (string, bool, error) {
	out, err := exec.Command("defaults", "read", s.domain, key).CombinedOutput()
	raw := strings.TrimSpace(string(out))
	if err != nil {
		if missing(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading default %s: %w: %s", key, err, raw)
	}
	// Booleans written with -bool read back as 1 or 0.
	if typ == kBool {
		switch raw {
		case "1":
			raw = "true"
		case "0":
			raw = "false"
		}
	}
	return raw, true, nil
}

func (s defaultsStore) Set(key string, typ keyType, raw string) error {
	args := []string{"write", s.domain, key}
	switch typ {
	case kInt:
		args = append(args, "-int", raw)
	case kBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		args = append(args, "-bool", strconv.FormatBool(b))
	default:
		args = append(args, "-string", raw)
	}
	if out, err := exec.Command("defaults", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("writing default %s: %w: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s defaultsStore) Unset(key string) error {
	err := exec.Command("defaults", "delete", s.domain, key).Run()
	if err != nil && !missing(err) {
		return fmt.Errorf("deleting default %s: %w", key, err)
	}
	return nil
}
