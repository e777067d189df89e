// ABOUTME: YAML-backed persistence of the signed-in user's identity.
// ABOUTME: Stores the user name in _identity.yaml inside the data directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const identityFileName = "_identity.yaml"

// IdentityStore persists who is signed in on this installation.
type IdentityStore struct {
	dataDir string // root directory for chirp data
}

// identityFile is the YAML structure for _identity.yaml.
type identityFile struct {
	UserName string `yaml:"user_name"`
}

// NewIdentityStore creates an identity store rooted at dataDir.
func NewIdentityStore(dataDir string) *IdentityStore {
	return &IdentityStore{dataDir: dataDir}
}

func (s *IdentityStore) path() string {
	return filepath.Join(s.dataDir, identityFileName)
}

// GetIdentity returns the signed-in user name, or empty string if unset.
func (s *IdentityStore) GetIdentity() (string, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read identity: %w", err)
	}

	var id identityFile
	if err := yaml.Unmarshal(data, &id); err != nil {
		return "", fmt.Errorf("failed to parse identity: %w", err)
	}
	return id.UserName, nil
}

// SetIdentity persists the user name.
func (s *IdentityStore) SetIdentity(name string) error {
	data, err := yaml.Marshal(&identityFile{UserName: name})
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	return atomicWrite(s.path(), data)
}

// ClearIdentity signs the user out.
func (s *IdentityStore) ClearIdentity() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return nil
}

// atomicWrite writes data to a temp file next to path and renames it into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
