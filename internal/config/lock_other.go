//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package config

import (
	"os"
)

// Without flock the file itself is the lock. A crashed instance leaves
// it behind and it has to be removed by hand.
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		return nil, ErrLocked
	}
	return f, err
}

func unlockFile(path string, f *os.File) error {
	err := f.Close()
	if rerr := os.Remove(path); err == nil {
		err = rerr
	}
	return err
}
