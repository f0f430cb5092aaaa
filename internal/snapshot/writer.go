package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/slab-ml/slab/internal/tensor"
)

// Save writes the named tensors to path in .slab format. Tensor order in
// the file is the sorted key order, so saving the same map twice produces
// identical bytes. Non-contiguous views are compacted before writing.
func Save(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		Tensors:       make([]TensorMeta, 0, len(names)),
		Metadata:      metadata,
	}

	var data bytes.Buffer
	for _, name := range names {
		c := tensors[name].Contiguous()
		raw := c.Bytes()

		offset := align(int64(data.Len()))
		for int64(data.Len()) < offset {
			data.WriteByte(0)
		}
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  c.DType().String(),
			Shape:  []int(c.Shape()),
			Offset: offset,
			Size:   int64(len(raw)),
		})
		data.Write(raw)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	checksum := sha256.Sum256(data.Bytes())

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(MagicBytes); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := file.Write(checksum[:]); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Pad so the data section starts 64-byte aligned.
	pos := int64(PreludeSize + len(headerJSON))
	if padding := align(pos) - pos; padding > 0 {
		if _, err := file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := file.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}
