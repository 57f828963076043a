// Package envsecrets supplies registry credentials from the environment,
// the way CI systems inject repository secrets.
package envsecrets

import (
	"context"
	"fmt"
	"os"

	"github.com/pachlabs/pach-trigger/internal/trigger/domain"
)

const (
	usernameEnv = "DOCKERHUB_USERNAME"
	tokenEnv    = "DOCKERHUB_TOKEN"
)

// Provider implements ports.SecretsPort. Credentials are read lazily at
// publish time, so a skipped run never requires them.
type Provider struct{}

// New creates the env-backed secrets provider.
func New() Provider {
	return Provider{}
}

// RegistryCredentials reads the registry username and token.
func (Provider) RegistryCredentials(_ context.Context) (domain.RegistryCredentials, error) {
	username := os.Getenv(usernameEnv)
	if username == "" {
		return domain.RegistryCredentials{}, fmt.Errorf("%s is not set", usernameEnv)
	}
	token := os.Getenv(tokenEnv)
	if token == "" {
		return domain.RegistryCredentials{}, fmt.Errorf("%s is not set", tokenEnv)
	}
	return domain.RegistryCredentials{Username: username, Token: token}, nil
}
