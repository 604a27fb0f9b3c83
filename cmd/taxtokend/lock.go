// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// stateLock is an exclusive flock on the state directory's lock file.
// It guarantees a single daemon per state directory: SQLite would
// serialize writers, but two daemons would still disagree on heights
// and interleave journal segments.
type stateLock struct {
	fd   int
	path string
}

// acquireLock takes the lock without blocking. A second daemon fails
// fast instead of queueing behind the first.
func acquireLock(path string) (*stateLock, error) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("state directory is in use by another daemon (lock file %s)", path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &stateLock{fd: fd, path: path}, nil
}

// Release drops the lock. The lock file itself stays behind; the
// flock dies with the descriptor.
func (l *stateLock) Release() {
	unix.Flock(l.fd, unix.LOCK_UN)
	unix.Close(l.fd)
}
