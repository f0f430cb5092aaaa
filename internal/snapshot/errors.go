package snapshot

import "errors"

// Common errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrTensorNotFound     = errors.New("tensor not found")
	ErrOutOfBounds        = errors.New("tensor extends beyond data section")
)
