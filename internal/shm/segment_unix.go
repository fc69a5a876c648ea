// SPDX-License-Identifier: MPL-2.0

//go:build unix

package shm

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"smce-runner/pkg/platform"

	"golang.org/x/sys/unix"
)

// handle is the POSIX backing of a Segment: the open file descriptor and the
// path that names the segment.
type handle struct {
	fd   int
	path string
}

// segmentDir returns where segment files live. Linux keeps them on the
// /dev/shm tmpfs, the same place shm_open(3) uses; other systems use the
// temp dir.
func segmentDir() string {
	if runtime.GOOS == platform.Linux {
		if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
			return "/dev/shm"
		}
	}
	return os.TempDir()
}

// Path returns the filesystem path that backs a segment with the given name.
func Path(name string) string {
	return filepath.Join(segmentDir(), name)
}

func create(name string, size int) (*Segment, error) {
	path := Path(name)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, fmt.Errorf("%w: %s", ErrSegmentExists, name)
		}
		return nil, fmt.Errorf("create segment %s: %w", name, err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		discard(fd, path)
		return nil, fmt.Errorf("size segment %s to %d bytes: %w", name, size, err)
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		discard(fd, path)
		return nil, fmt.Errorf("map segment %s: %w", name, err)
	}

	return &Segment{name: name, mem: mem, owner: true, h: handle{fd: fd, path: path}}, nil
}

func open(name string) (*Segment, error) {
	path := Path(name)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, name)
		}
		return nil, fmt.Errorf("open segment %s: %w", name, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("stat segment %s: %w", name, err)
	}
	if st.Size <= 0 || st.Size > MaxSize {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: segment %s has %d bytes", ErrInvalidSegmentSize, name, st.Size)
	}

	mem, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("map segment %s: %w", name, err)
	}

	return &Segment{name: name, mem: mem, h: handle{fd: fd, path: path}}, nil
}

func (s *Segment) release() error {
	var errs []error
	if err := unix.Munmap(s.mem); err != nil {
		errs = append(errs, fmt.Errorf("unmap segment %s: %w", s.name, err))
	}
	if err := unix.Close(s.h.fd); err != nil {
		errs = append(errs, fmt.Errorf("close segment %s: %w", s.name, err))
	}
	if s.owner {
		if err := unix.Unlink(s.h.path); err != nil && !errors.Is(err, unix.ENOENT) {
			errs = append(errs, fmt.Errorf("unlink segment %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// discard undoes a half-finished create.
func discard(fd int, path string) {
	if err := unix.Close(fd); err != nil {
		slog.Debug("segment fd close failed", "path", path, "error", err)
	}
	if err := unix.Unlink(path); err != nil {
		slog.Debug("segment unlink failed", "path", path, "error", err)
	}
}
