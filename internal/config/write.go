package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrConfigExists is returned by WriteDefault when the target exists and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes DefaultConfig to path as TOML. An existing file is
// left alone unless force is set, in which case it is first copied to
// path+".bak". It returns the backup path, or "" when none was made.
func WriteDefault(path string, force bool) (string, error) {
	var backup string
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && !force:
		return "", fmt.Errorf("%w: %s", ErrConfigExists, path)
	case err == nil:
		backup = path + ".bak"
		if err := os.WriteFile(backup, existing, 0o644); err != nil {
			return "", fmt.Errorf("backing up %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("reading config file: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# pianod configuration. Remove a key to fall back to its default.\n\n")
	if err := toml.NewEncoder(&buf).Encode(DefaultConfig()); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return backup, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config-*.toml.tmp")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("permission denied writing to %s", dir)
		}
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	_ = os.Chmod(tmpPath, mode)

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}
	tmpPath = ""
	return nil
}
