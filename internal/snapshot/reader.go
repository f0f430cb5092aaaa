package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/slab-ml/slab/internal/tensor"
)

// Reader provides memory-mapped access to a .slab file. The header is
// parsed and the data checksum verified on Open; tensor bytes are touched
// on demand through the OS page cache.
//
// Always Close the reader to unmap the file.
type Reader struct {
	file   *os.File
	data   []byte // mmap'd region, read-only
	header Header
	byName map[string]TensorMeta
	dataAt int64
	closed bool
}

// Open memory-maps a .slab file and validates its header and checksum.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	data, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	r := &Reader{file: file, data: data}
	if err := r.parse(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) parse() error {
	if len(r.data) < PreludeSize {
		return fmt.Errorf("file too small: %d bytes", len(r.data))
	}
	if string(r.data[0:4]) != MagicBytes {
		return ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(r.data[4:8]); v != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(r.data[8:16])
	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	var stored [ChecksumSize]byte
	copy(stored[:], r.data[16:16+ChecksumSize])

	jsonEnd := int64(PreludeSize) + int64(headerSize)
	if jsonEnd > int64(len(r.data)) {
		return fmt.Errorf("header size %d exceeds file size", headerSize)
	}
	if err := json.Unmarshal(r.data[PreludeSize:jsonEnd], &r.header); err != nil {
		return fmt.Errorf("failed to parse header: %w", err)
	}

	r.dataAt = align(jsonEnd)
	if r.dataAt > int64(len(r.data)) {
		r.dataAt = int64(len(r.data)) // empty data section
	}
	if sha256.Sum256(r.data[r.dataAt:]) != stored {
		return ErrChecksumMismatch
	}

	r.byName = make(map[string]TensorMeta, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		if meta.Offset < 0 || meta.Offset+meta.Size > int64(len(r.data))-r.dataAt {
			return fmt.Errorf("%w: %q", ErrOutOfBounds, meta.Name)
		}
		r.byName[meta.Name] = meta
	}
	return nil
}

// Names returns the stored tensor names in file order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// Metadata returns the free-form metadata map stored with the snapshot.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// Tensor copies the named tensor out of the mapped region into fresh
// contiguous storage.
func (r *Reader) Tensor(name string) (*tensor.RawTensor, error) {
	meta, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	dt, err := parseDType(meta.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}
	shape := tensor.Shape(meta.Shape)
	if want := int64(shape.NumElements() * dt.Size()); want != meta.Size {
		return nil, fmt.Errorf("tensor %q: size %d does not match shape %v of %s", name, meta.Size, shape, dt)
	}

	out, err := tensor.NewRaw(shape, dt, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}
	start := r.dataAt + meta.Offset
	copy(out.Bytes(), r.data[start:start+meta.Size])
	return out, nil
}

// Tensors loads every stored tensor.
func (r *Reader) Tensors() (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(r.byName))
	for name := range r.byName {
		t, err := r.Tensor(name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

// Close unmaps the file and closes it. Safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var first error
	if r.data != nil {
		if err := munmapFile(r.data); err != nil {
			first = err
		}
		r.data = nil
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
