//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append([]string{home}, fallback...)...)
	}
	return ""
}

func defaultDataDir() string {
	dir := xdgDir("XDG_DATA_HOME", ".local", "share")
	if dir == "" {
		return "genreach-data"
	}
	return filepath.Join(dir, "genreach")
}

func configFilePath() string {
	dir := xdgDir("XDG_CONFIG_HOME", ".config")
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "genreach", "config.json")
}

// APIKeyHint tells the user where the OpenRouter key can be put.
func APIKeyHint() string {
	return fmt.Sprintf(`set %s or add {"%s":{"%s":"<key>"}} to %s`,
		apiKeyEnv, keychainService, keychainAccount, secretsFilePath())
}

// fileStore keeps keys grouped by section, the part of the key before the
// first dot:
//
//	{"server": {"port": 4100}, "browser": {"headless": true}}
type fileStore struct {
	path string
	data map[string]map[string]any
}

func newPlatformStore() store {
	s := &fileStore{path: configFilePath(), data: map[string]map[string]any{}}
	s.load()
	return s
}

func splitKey(key string) (section, name string) {
	section, name, _ = strings.Cut(key, ".")
	return section, name
}

func (s *fileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", s.path, err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", s.path, err)
		s.data = map[string]map[string]any{}
	}
}

func (s *fileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *fileStore) Get(key string, typ keyType) (string, bool, error) {
	section, name := splitKey(key)
	v, ok := s.data[section][name]
	if !ok {
		return "", false, nil
	}
	switch val := v.(type) {
	case string:
		return val, true, nil
	case bool:
		return strconv.FormatBool(val), true, nil
	case float64:
		if typ == kInt && (val != math.Trunc(val) || val < math.MinInt || val > math.MaxInt) {
			return "", true, fmt.Errorf("value %v for %s is not a valid integer", val, key)
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true, nil
	}
	return "", true, fmt.Errorf("invalid value type for %s", key)
}

func (s *fileStore) Set(key string, typ keyType, raw string) error {
	v, err := parseValue(typ, raw)
	if err != nil {
		return err
	}
	if typ == kDuration {
		// Durations stay in the form the user wrote.
		v = raw
	}
	section, name := splitKey(key)
	if s.data[section] == nil {
		s.data[section] = map[string]any{}
	}
	s.data[section][name] = v
	return s.save()
}

func (s *fileStore) Unset(key string) error {
	section, name := splitKey(key)
	if _, ok := s.data[section][name]; !ok {
		return nil
	}
	delete(s.data[section], name)
	if len(s.data[section]) == 0 {
		delete(s.data, section)
	}
	return s.save()
}
