package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore implements CredentialStore using environment
// variables of the form SOCIALHARVEST_<PLATFORM>_SESSION_ID. It reads
// the same variables the config loader honors, so CI and containers can
// authenticate without a stored credential file.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func envPrefix(platformName string) string {
	return "SOCIALHARVEST_" + strings.ToUpper(platformName) + "_"
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(platformName, username string) (*Credentials, error) {
	if platformName == "" {
		return nil, ErrInvalidCredentials
	}

	prefix := envPrefix(platformName)
	sessionID := os.Getenv(prefix + "SESSION_ID")
	csrfToken := os.Getenv(prefix + "CSRF_TOKEN")
	accessToken := os.Getenv(prefix + "ACCESS_TOKEN")
	userAgent := os.Getenv(prefix + "USER_AGENT")

	if sessionID == "" && accessToken == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables don't carry an account name
	if username == "" {
		username = "default"
	}

	return &Credentials{
		Platform:     platformName,
		Username:     username,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		AccessToken:  accessToken,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns the environment credentials for every known platform
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	var all []*Credentials
	for _, platformName := range []string{"instagram", "youtube", "tiktok", "twitter"} {
		if creds, err := e.Retrieve(platformName, ""); err == nil {
			all = append(all, creds)
		}
	}
	if all == nil {
		return []*Credentials{}, nil
	}
	return all, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(platformName, username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(platformName, username string) bool {
	if platformName == "" {
		return false
	}
	prefix := envPrefix(platformName)
	return os.Getenv(prefix+"SESSION_ID") != "" || os.Getenv(prefix+"ACCESS_TOKEN") != ""
}
