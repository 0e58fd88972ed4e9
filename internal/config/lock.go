package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrLocked is returned when another instance holds the lock file.
var ErrLocked = errors.New("another instance is already running")

// Lock keeps a second bridge from running on the same storage.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the lock file at path and writes the own pid into it.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory of lock file %q: %w", path, err)
	}
	f, err := lockFile(path)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			if pid := readPid(path); pid != "" {
				return nil, fmt.Errorf("%w (pid %s, lock file %s)", ErrLocked, pid, path)
			}
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("cannot lock %q: %w", path, err)
	}
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{path: path, file: f}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unlockFile(l.path, l.file)
	l.file = nil
	return err
}

func readPid(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
