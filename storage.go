package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// storageInterface defines operations for local filesystem management.
// Implemented by *storage for production and mock types in tests.
type storageInterface interface {
	// catalogPath returns the path of the SQLite catalog database.
	catalogPath() string

	// modelPath returns the absolute destination path for an artifact.
	modelPath(fileName string) string

	// newLock returns the cross-process fetch lock for an artifact.
	newLock(fileName string) (Locker, error)

	// createTemp creates a temporary file next to the destination so the
	// final rename never crosses a filesystem boundary.
	createTemp(fileName string) (*os.File, error)

	// replaceFile moves src onto dst, fully overwriting any existing
	// file. The destination is never left partially written.
	replaceFile(src, dst string) error

	// removeFile deletes an artifact file. Missing files are not an error.
	removeFile(fileName string) error

	// fileExists reports whether an artifact file is present on disk.
	fileExists(fileName string) bool
}

// storage handles all local filesystem operations for model artifacts.
// Implements storageInterface.
type storage struct {
	// baseDir is the base directory for all storage operations.
	baseDir string

	// lockTimeout is the maximum duration to wait for fetch lock acquisition.
	lockTimeout time.Duration
}

// Ensure storage implements storageInterface.
var _ storageInterface = (*storage)(nil)

// envVarName constructs an environment variable name from the app name.
// Converts appName to uppercase and appends "_MODELS_DIR".
// Example: envVarName("hushtype") returns "HUSHTYPE_MODELS_DIR".
func envVarName(appName string) string {
	return strings.ToUpper(appName) + "_MODELS_DIR"
}

// newStorage creates a new storage instance for the given configuration.
func newStorage(cfg Config) (*storage, error) {
	var baseDir string

	// Priority: env var > Config.DataDir > platform default
	if envDir := os.Getenv(envVarName(cfg.AppName)); envDir != "" {
		baseDir = envDir
	} else if cfg.DataDir != "" {
		baseDir = cfg.DataDir
	} else {
		defaultDir, err := getDefaultDataDir(cfg.AppName)
		if err != nil {
			return nil, fmt.Errorf("failed to get default data dir: %w", err)
		}
		baseDir = defaultDir
	}

	s := &storage{baseDir: baseDir, lockTimeout: DefaultLockTimeout}

	if err := s.ensureDir(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return s, nil
}

// catalogPath returns the path of the SQLite catalog database.
func (s *storage) catalogPath() string {
	return filepath.Join(s.baseDir, "catalog.db")
}

// modelPath returns the absolute destination path for an artifact.
// The path is derived deterministically from the file name alone.
func (s *storage) modelPath(fileName string) string {
	return filepath.Join(s.baseDir, fileName)
}

// lockPath returns the cross-process lock file path for an artifact,
// creating the lock directory on first use.
func (s *storage) lockPath(fileName string) (string, error) {
	dir := filepath.Join(s.baseDir, ".locks")
	if err := s.ensureDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName+".lock"), nil
}

// newLock returns the fetch lock for an artifact, bound to the
// storage's configured acquisition timeout.
func (s *storage) newLock(fileName string) (Locker, error) {
	path, err := s.lockPath(fileName)
	if err != nil {
		return nil, err
	}
	lock, err := newFileLock(path, s.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: creating fetch lock: %v", ErrStorage, err)
	}
	return lock, nil
}

// createTemp creates a temporary download file in the models directory.
// Keeping it beside the destination guarantees replaceFile is a rename,
// not a copy.
func (s *storage) createTemp(fileName string) (*os.File, error) {
	f, err := os.CreateTemp(s.baseDir, "."+fileName+".fetch-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp file: %v", ErrStorage, err)
	}
	return f, nil
}

// replaceFile moves src onto dst with remove-then-rename semantics.
func (s *storage) replaceFile(src, dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to remove previous file: %v", ErrStorage, err)
	}
	if err := os.Rename(src, dst); err != nil {
		os.Remove(src) // don't leave the temp file behind
		return fmt.Errorf("%w: failed to move file into place: %v", ErrStorage, err)
	}
	return nil
}

// removeFile deletes an artifact file. Missing files are not an error.
func (s *storage) removeFile(fileName string) error {
	if err := os.Remove(s.modelPath(fileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to remove model file: %v", ErrStorage, err)
	}
	return nil
}

// fileExists reports whether an artifact file is present on disk.
func (s *storage) fileExists(fileName string) bool {
	info, err := os.Stat(s.modelPath(fileName))
	return err == nil && !info.IsDir()
}

// ensureDir creates a directory and all parent directories if they don't exist.
func (s *storage) ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrStorage, path, err)
	}
	return nil
}
