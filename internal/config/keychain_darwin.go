//go:build darwin

package config

import "os/exec"

// secretLookup reads the OpenRouter key from the login Keychain.
func secretLookup() ([]byte, error) {
	return exec.Command(
		"security", "find-generic-password",
		"-s", keychainService,
		"-a", keychainAccount,
		"-w",
	).Output()
}
