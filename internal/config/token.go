package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const (
	tokenService = "sealbox"
	tokenAccount = "api_token"
	tokenEnv     = "SEALBOX_API_TOKEN"
)

// GetAPIToken returns the bearer token protecting the local API. Lookup
// order: SEALBOX_API_TOKEN env var, then the platform secret store. If no
// token exists yet one is generated and stored, so first run needs no setup.
func GetAPIToken() (string, error) {
	if t := strings.TrimSpace(os.Getenv(tokenEnv)); t != "" {
		return t, nil
	}

	if out, err := keychainGet(tokenService, tokenAccount); err == nil {
		if t := strings.TrimSpace(string(out)); t != "" {
			return t, nil
		}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := keychainSet(tokenService, tokenAccount, token); err != nil {
		return "", fmt.Errorf("storing api token: %w", err)
	}
	return token, nil
}
