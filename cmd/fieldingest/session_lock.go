package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"fieldingest/internal/config"
)

// sessionLock keeps two operators from ingesting the same catalog folder at
// once on this machine.
type sessionLock struct {
	path string
	lock *flock.Flock
}

func acquireSessionLock(cfg *config.Config, catalogFolder string) (*sessionLock, error) {
	name := strings.TrimSpace(catalogFolder)
	if name == "" {
		return nil, errors.New("session lock: catalog folder is unknown")
	}
	path := filepath.Join(cfg.LockDir(), name+".lock")
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another fieldingest session is already ingesting %s", name)
	}
	return &sessionLock{path: path, lock: lock}, nil
}

func (l *sessionLock) Release() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
}
