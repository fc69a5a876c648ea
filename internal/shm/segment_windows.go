// SPDX-License-Identifier: MPL-2.0

//go:build windows

package shm

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = modkernel32.NewProc("OpenFileMappingW")
)

// handle is the Windows backing of a Segment: the file mapping object and
// the base address of the mapped view.
type handle struct {
	mapping windows.Handle
	addr    uintptr
}

// mappingName places segments in the session namespace so a sketch started
// by the runner sees the same object without extra privileges.
func mappingName(name string) string {
	return `Local\` + name
}

func create(name string, size int) (*Segment, error) {
	namep, err := windows.UTF16PtrFromString(mappingName(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSegmentName, name)
	}

	// GetLastError must be read on the thread that made the call.
	runtime.LockOSThread()
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE,
		uint32(uint64(size)>>32), uint32(size), namep)
	lastErr := windows.GetLastError()
	runtime.UnlockOSThread()

	if h == 0 {
		return nil, fmt.Errorf("create segment %s: %w", name, err)
	}
	if errors.Is(lastErr, windows.ERROR_ALREADY_EXISTS) {
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("%w: %s", ErrSegmentExists, name)
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("map segment %s: %w", name, err)
	}

	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &Segment{name: name, mem: mem, owner: true, h: handle{mapping: h, addr: addr}}, nil
}

func open(name string) (*Segment, error) {
	namep, err := windows.UTF16PtrFromString(mappingName(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSegmentName, name)
	}

	r, _, callErr := procOpenFileMappingW.Call(
		uintptr(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE), 0, uintptr(unsafe.Pointer(namep)))
	if r == 0 {
		if errors.Is(callErr, windows.ERROR_FILE_NOT_FOUND) {
			return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, name)
		}
		return nil, fmt.Errorf("open segment %s: %w", name, callErr)
	}
	h := windows.Handle(r)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, 0)
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("map segment %s: %w", name, err)
	}

	var info windows.MemoryBasicInformation
	if err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info)); err != nil {
		_ = windows.UnmapViewOfFile(addr)
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("query segment %s: %w", name, err)
	}
	size := int(info.RegionSize)
	if size > MaxSize {
		size = MaxSize
	}

	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &Segment{name: name, mem: mem, h: handle{mapping: h, addr: addr}}, nil
}

// release unmaps the view and closes the mapping handle. The kernel object
// disappears once the last handle to it, in any process, is closed.
func (s *Segment) release() error {
	var errs []error
	if err := windows.UnmapViewOfFile(s.h.addr); err != nil {
		errs = append(errs, fmt.Errorf("unmap segment %s: %w", s.name, err))
	}
	if err := windows.CloseHandle(s.h.mapping); err != nil {
		errs = append(errs, fmt.Errorf("close segment %s: %w", s.name, err))
	}
	return errors.Join(errs...)
}
