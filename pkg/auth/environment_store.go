package auth

import (
	"os"
	"time"
)

// APIKeyEnv is the environment variable holding the Pexels API key
const APIKeyEnv = "PEXELS_API_KEY"

// EnvironmentStore implements CredentialStore on top of PEXELS_API_KEY.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the key from the environment under the requested name,
// or "env" when no name is given
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	apiKey := os.Getenv(APIKeyEnv)
	if apiKey == "" {
		return nil, ErrCredentialsNotFound
	}

	if name == "" {
		name = "env"
	}

	return &Account{
		Name:         name,
		APIKey:       apiKey,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if the variable is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(APIKeyEnv) != ""
}
