package config

import (
	"fmt"
	"os"
)

// KeyInfo is one row of `genreach config show`. FromEnv marks a value
// that came from its GENREACH_* variable rather than the store.
type KeyInfo struct {
	Key     string
	EnvVar  string
	Value   string
	FromEnv bool
}

// ShowAll lists the effective non-secret settings of cfg in table order.
func ShowAll(cfg Config) []KeyInfo {
	rows := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		if s.secret {
			continue
		}
		rows = append(rows, KeyInfo{
			Key:     s.key,
			EnvVar:  s.env,
			Value:   fmt.Sprint(s.extract(cfg)),
			FromEnv: s.env != "" && os.Getenv(s.env) != "",
		})
	}
	return rows
}

// SetKey writes a config key to the platform store.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformStore(), key, value)
}

// UnsetKey removes a stored key so its default applies again.
func UnsetKey(key string) error {
	return unsetKeyWith(newPlatformStore(), key)
}

func lookupSpec(key string) (keySpec, error) {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return keySpec{}, fmt.Errorf("cannot store secret %q in config; use environment variable %s", key, s.env)
		}
		return s, nil
	}
	return keySpec{}, fmt.Errorf("unknown config key: %q", key)
}

func setKeyWith(b store, key, value string) error {
	s, err := lookupSpec(key)
	if err != nil {
		return err
	}
	if _, err := parseValue(s.typ, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return b.Set(key, s.typ, value)
}

func unsetKeyWith(b store, key string) error {
	if _, err := lookupSpec(key); err != nil {
		return err
	}
	return b.Unset(key)
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
