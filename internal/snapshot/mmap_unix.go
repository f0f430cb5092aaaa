//go:build unix

package snapshot

import (
	"os"
	"syscall"
)

// mmapFile memory-maps a file for reading (Unix implementation).
func mmapFile(f *os.File, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
}

// munmapFile unmaps a memory-mapped file (Unix implementation).
func munmapFile(data []byte) error {
	if data == nil {
		return nil
	}
	return syscall.Munmap(data)
}
