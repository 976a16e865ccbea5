// Package keyring stores BYOK provider API keys in the OS credential store
// instead of plaintext config files, the same approach the reference takes
// for locally-cached secrets.
package keyring

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "10x-core"

// Save stores apiKey under account in the OS keyring.
func Save(account, apiKey string) error {
	if err := keyring.Set(service, account, apiKey); err != nil {
		return fmt.Errorf("keyring: save %s: %w", account, err)
	}
	return nil
}

// Load retrieves the API key previously stored for account. It returns
// keyring.ErrNotFound (unwrapped) when nothing is stored so callers can
// fall back to prompting, matching the reference's fallback-to-prompt flow.
func Load(account string) (string, error) {
	key, err := keyring.Get(service, account)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", err
		}
		return "", fmt.Errorf("keyring: load %s: %w", account, err)
	}
	return key, nil
}

// Delete removes a stored API key. Deleting a key that doesn't exist is not
// an error.
func Delete(account string) error {
	err := keyring.Delete(service, account)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("keyring: delete %s: %w", account, err)
	}
	return nil
}
