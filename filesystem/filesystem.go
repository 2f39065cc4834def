package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound = errors.New("filesystem: file not found")
	ErrInvalidPath  = errors.New("filesystem: invalid path")
	ErrOutsideRoot  = errors.New("filesystem: path escapes root directory")
)

type Filesystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte) error
	DeleteFile(path string) error

	IsFile(path string) (bool, error)
	CreateDirectory(path string) error
}

type localFileSystem struct{}

func NewLocalFileSystem() Filesystem {
	return &localFileSystem{}
}

func (filesystem *localFileSystem) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return content, err
}

// WriteFile replaces the file content, creating parent directories first.
func (filesystem *localFileSystem) WriteFile(path string, content []byte) error {
	if path == "" {
		return ErrInvalidPath
	}

	if err := filesystem.CreateDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("closing file error", "path", path, "error", closeErr)
		}
	}()

	if _, err := file.Write(content); err != nil {
		return err
	}
	return file.Sync()
}

func (filesystem *localFileSystem) DeleteFile(path string) error {
	isFile, err := filesystem.IsFile(path)
	if err != nil {
		return err
	}
	if !isFile {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	return os.Remove(path)
}

// IsFile reports whether path exists and is not a directory.
func (filesystem *localFileSystem) IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (filesystem *localFileSystem) CreateDirectory(path string) error {
	return os.MkdirAll(path, 0770)
}

// SafeJoin joins paths onto root and fails with ErrOutsideRoot when the
// result, once cleaned, is not root itself or somewhere below it.
func SafeJoin(root string, paths ...string) (string, error) {
	base, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	joined, err := filepath.Abs(filepath.Join(append([]string{base}, paths...)...))
	if err != nil {
		return "", err
	}

	if joined != base && !strings.HasPrefix(joined, base+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return joined, nil
}
