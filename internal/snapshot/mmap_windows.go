//go:build windows

package snapshot

import (
	"os"
	"syscall"
	"unsafe"
)

// mmapFile memory-maps a file for reading (Windows implementation).
func mmapFile(f *os.File, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	handle, err := syscall.CreateFileMapping(
		syscall.Handle(f.Fd()),
		nil,
		syscall.PAGE_READONLY,
		uint32(size>>32), //nolint:gosec // G115: high dword of the mapping size
		uint32(size),     //nolint:gosec // G115: low dword of the mapping size
		nil,
	)
	if err != nil {
		return nil, err
	}
	defer syscall.CloseHandle(handle) //nolint:errcheck // the view keeps the mapping alive

	addr, err := syscall.MapViewOfFile(handle, syscall.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// munmapFile unmaps a memory-mapped file (Windows implementation).
func munmapFile(data []byte) error {
	if data == nil {
		return nil
	}
	return syscall.UnmapViewOfFile(uintptr(unsafe.Pointer(&data[0])))
}
