package config

import "path/filepath"

// store persists what `genreach config set` writes. Values cross the
// interface as the text a user typed; the key's type decides how the
// platform keeps them (typed defaults entries on macOS, JSON numbers and
// booleans in the sectioned config file elsewhere).
type store interface {
	Get(key string, typ keyType) (raw string, ok bool, err error)
	Set(key string, typ keyType, raw string) error
	Unset(key string) error
}

// The OpenRouter key lives in the platform secret store under these names.
const (
	keychainService = "genreach"
	keychainAccount = "openrouter_api_key"
)

// Where Model.APIKey came from.
const (
	KeyFromEnv      = "env"
	KeyFromKeychain = "keychain"
)

// browserProfileDir is the Chromium profile kept under the data directory
// when browser.user_data_dir is unset, so a LinkedIn login survives runs.
func browserProfileDir(dataDir string) string {
	return filepath.Join(dataDir, "chromium")
}
