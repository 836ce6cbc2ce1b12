//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	dir := xdgDir("XDG_DATA_HOME", ".local", "share")
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "genreach", "secrets.json")
}

// secretLookup reads the OpenRouter key from the secrets file that stands
// in for the macOS Keychain:
//
//	{"genreach": {"openrouter_api_key": "sk-or-..."}}
func secretLookup() ([]byte, error) {
	path := secretsFilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	val, ok := secrets[keychainService][keychainAccount]
	if !ok {
		return nil, fmt.Errorf("%s has no %s.%s entry", path, keychainService, keychainAccount)
	}
	return []byte(val), nil
}
