// Package device derives a best-effort fingerprint for the current host.
//
// The fingerprint is advisory only: it lets the backend associate an
// anonymous session with a previously-seen device, but it is neither
// unique nor durable, and repeated anonymous sign-ins on the same device
// may still mint distinct identities. Callers must not treat it as a
// guarantee of identity reuse.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

const fingerprintPrefix = "fp1-"

var machineIDFiles = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// Fingerprint returns a stable-ish identifier for this host. It prefers
// the OS machine id; failing that it uses a random id persisted under
// the user config dir, so at least the same installation fingerprints
// consistently.
func Fingerprint() (string, error) {
	if id := machineID(); id != "" {
		return derive(id), nil
	}
	id, err := persistedID()
	if err != nil {
		return "", err
	}
	return derive(id), nil
}

func machineID() string {
	for _, path := range machineIDFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	return ""
}

// persistedID reads or creates a random per-installation id.
func persistedID() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "chatline", "device_id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", err
	}
	return id, nil
}

func derive(seed string) string {
	h := sha256.Sum256([]byte(seed + "\x00" + runtime.GOOS + "/" + runtime.GOARCH))
	return fingerprintPrefix + hex.EncodeToString(h[:16])
}
