package credentials

import (
	"fmt"
	"os"
	"strings"
)

// EnvStore reads credentials from environment variables. The key is uppercased
// and prefixed, so "access_token" maps to HTTPKIT_ACCESS_TOKEN. The store is
// read-only; token refresh cannot persist through it.
type EnvStore struct {
	prefix string
}

func NewEnvStore() *EnvStore {
	return &EnvStore{prefix: "HTTPKIT_"}
}

func (e *EnvStore) Get(key string) (string, bool, error) {
	v, ok := os.LookupEnv(e.varName(key))
	return v, ok, nil
}

func (e *EnvStore) Set(key, value string) error {
	return fmt.Errorf("environment credentials are read-only, cannot set %q", key)
}

func (e *EnvStore) Remove(key string) error {
	return fmt.Errorf("environment credentials are read-only, cannot remove %q", key)
}

func (e *EnvStore) varName(key string) string {
	return e.prefix + strings.ToUpper(key)
}
