// Package config resolves runtime configuration from the environment.
package config

import (
	"context"
	"errors"
	"os"

	"cloud.google.com/go/compute/metadata"
)

const (
	projectIDEnv       = "CHATLINE_PROJECT_ID"
	apiKeyEnv          = "CHATLINE_API_KEY"
	storageBucketEnv   = "CHATLINE_STORAGE_BUCKET"
	credentialsFileEnv = "CHATLINE_CREDENTIALS_FILE"
	emulatorHostEnv    = "CHATLINE_EMULATOR_HOST"
)

var errNoProjectID = errors.New("project id not set and metadata server unavailable")

type Config struct {
	// ProjectID of the backing Firebase project.
	ProjectID string
	// APIKey is the Identity Toolkit web API key used for sign-in.
	APIKey string
	// StorageBucket holds avatars; empty disables the storage component.
	StorageBucket string
	// CredentialsFile points at a service account key; empty uses
	// application default credentials.
	CredentialsFile string
	// EmulatorHost, when set, routes auth REST calls to a local emulator.
	EmulatorHost string
}

// FromEnv reads CHATLINE_* variables. When the project id is absent it
// falls back to the GCE metadata server.
func FromEnv(ctx context.Context) (Config, error) {
	cfg := Config{
		ProjectID:       os.Getenv(projectIDEnv),
		APIKey:          os.Getenv(apiKeyEnv),
		StorageBucket:   os.Getenv(storageBucketEnv),
		CredentialsFile: os.Getenv(credentialsFileEnv),
		EmulatorHost:    os.Getenv(emulatorHostEnv),
	}
	if cfg.ProjectID == "" {
		if !metadata.OnGCE() {
			return cfg, errNoProjectID
		}
		projectID, err := metadata.ProjectIDWithContext(ctx)
		if err != nil {
			return cfg, err
		}
		cfg.ProjectID = projectID
	}
	return cfg, nil
}
