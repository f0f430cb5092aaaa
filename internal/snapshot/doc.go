// Package snapshot provides the native .slab format for saving and loading
// named tensors.
//
//	Format Structure:
//	  [4 bytes:  Magic "SLAB"]
//	  [4 bytes:  Version (uint32 LE)]
//	  [8 bytes:  Header Size (uint64 LE)]
//	  [32 bytes: SHA-256 checksum of the data section]
//	  [Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// Tensors are written densely in row-major order. Loading memory-maps the
// file, verifies the checksum and copies each tensor into fresh storage.
//
// Example usage:
//
//	tensors := map[string]*tensor.RawTensor{"weights": w}
//	if err := snapshot.Save("model.slab", tensors, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	r, err := snapshot.Open("model.slab")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	w, err := r.Tensor("weights")
package snapshot
