package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/slab-ml/slab/internal/tensor"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "round.slab")

	w := tensor.Consec(tensor.Shape{3, 4})
	b, err := tensor.FromSlice([]int64{-1, 0, 1}, tensor.Shape{3})
	if err != nil {
		t.Fatal(err)
	}
	in := map[string]*tensor.RawTensor{"weights": w, "bias": b}

	if err := Save(path, in, map[string]string{"note": "test"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if got := r.Metadata()["note"]; got != "test" {
		t.Errorf("metadata note = %q, want %q", got, "test")
	}
	// File order is sorted key order.
	names := r.Names()
	if len(names) != 2 || names[0] != "bias" || names[1] != "weights" {
		t.Errorf("names = %v, want [bias weights]", names)
	}

	got, err := r.Tensor("weights")
	if err != nil {
		t.Fatalf("Tensor: %v", err)
	}
	if !got.EqualData(w) {
		t.Error("weights did not round-trip")
	}
	gotB, err := r.Tensor("bias")
	if err != nil {
		t.Fatalf("Tensor: %v", err)
	}
	if !gotB.EqualData(b) {
		t.Error("bias did not round-trip")
	}
}

func TestSaveNonContiguousView(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "view.slab")

	src := tensor.Consec(tensor.Shape{3, 3})
	view := src.Transpose()

	if err := Save(path, map[string]*tensor.RawTensor{"t": view}, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := r.Tensor("t")
	if err != nil {
		t.Fatal(err)
	}
	if !got.EqualData(view) {
		t.Error("transposed view did not round-trip")
	}
	if !got.IsContiguous() {
		t.Error("loaded tensor must be contiguous")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.slab")
	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestOpenDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.slab")

	w := tensor.Consec(tensor.Shape{8})
	if err := Save(path, map[string]*tensor.RawTensor{"w": w}, nil); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xFF // flip a data byte
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = Open(path)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestTensorNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.slab")
	if err := Save(path, map[string]*tensor.RawTensor{"w": tensor.Consec(tensor.Shape{2})}, nil); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.Tensor("nope"); !errors.Is(err, ErrTensorNotFound) {
		t.Errorf("err = %v, want ErrTensorNotFound", err)
	}
}

func TestAllDTypesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dtypes.slab")

	in := map[string]*tensor.RawTensor{
		"f16": tensor.Full(tensor.Shape{2}, 1.5, tensor.Float16, tensor.CPU),
		"c64": tensor.Full(tensor.Shape{2}, complex64(1+2i), tensor.Complex64, tensor.CPU),
		"b":   tensor.Full(tensor.Shape{2}, true, tensor.Bool, tensor.CPU),
		"u8":  tensor.Full(tensor.Shape{2}, 200, tensor.Uint8, tensor.CPU),
	}
	if err := Save(path, in, nil); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	out, err := r.Tensors()
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range in {
		if !out[name].EqualData(want) {
			t.Errorf("tensor %q did not round-trip", name)
		}
	}
}
