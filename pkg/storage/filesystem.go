package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d-kuro/useraccount/pkg/constants"
)

// FileSystemStore implements SecretStore with one JSON file per scope.
// Files are written with owner-only permissions; this backend is meant for
// hosts without a platform secret service.
type FileSystemStore struct {
	baseDir string
	appName string
}

// NewFileSystemStore creates a filesystem-based store.
// If baseDir is empty, it will use the default directory (~/.useraccount).
func NewFileSystemStore(baseDir, appName string) (*FileSystemStore, error) {
	if baseDir == "" {
		var err error
		baseDir, err = getDefaultStorageDir()
		if err != nil {
			return nil, err
		}
	}

	if err := ensureDir(baseDir); err != nil {
		return nil, err
	}

	return &FileSystemStore{
		baseDir: baseDir,
		appName: appName,
	}, nil
}

// Save implements SecretStore.Save.
func (fs *FileSystemStore) Save(scope, key, value string) error {
	data, err := json.MarshalIndent(record{Key: key, Value: value}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secret for %s: %w", scope, err)
	}

	path := fs.pathFor(scope)
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("failed to write secret file at %s: %w", path, ErrStoragePermission)
		}
		return fmt.Errorf("failed to write secret file at %s: %w", path, err)
	}
	return nil
}

// Load implements SecretStore.Load.
func (fs *FileSystemStore) Load(scope string) (string, string, error) {
	path := fs.pathFor(scope)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("secret file does not exist at %s: %w", path, ErrStorageNotFound)
		}
		return "", "", fmt.Errorf("failed to read secret file at %s: %w", path, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", "", fmt.Errorf("failed to parse secret JSON at %s: %w", path, ErrStorageCorrupted)
	}
	return rec.Key, rec.Value, nil
}

// Available implements SecretStore.Available.
func (fs *FileSystemStore) Available() error {
	info, err := os.Stat(fs.baseDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrStorageUnavailable, fs.baseDir)
	}
	return nil
}

// GetStoragePath returns the directory holding the secret files.
func (fs *FileSystemStore) GetStoragePath() string {
	return fs.baseDir
}

func (fs *FileSystemStore) pathFor(scope string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(ServiceName(fs.appName, scope))
	return filepath.Join(fs.baseDir, name+constants.SecretFileSuffix)
}

// getDefaultStorageDir returns the default directory for storing secrets.
func getDefaultStorageDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DefaultStorageDir), nil
}

// ensureDir creates the directory if it doesn't exist.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
