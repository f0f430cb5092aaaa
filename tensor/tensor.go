// Copyright 2026 The slab Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public strided-array API for slab.
//
// A RawTensor is a shape/strides/offset view over a reference-counted
// storage buffer shared by all views derived from it. View-producing
// operations never copy; writes through a view mutate every alias.
//
// Example:
//
//	x := tensor.Consec(tensor.Shape{3, 3})
//	row := x.Select(0, 1)   // shares storage with x
//	_ = row.Fill(0)         // zeroes x's second row
package tensor

import (
	"github.com/slab-ml/slab/internal/tensor"
)

// Type aliases for the public API

// DType is a constraint for tensor element types.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32   DataType = tensor.Float32
	Float64   DataType = tensor.Float64
	Float16   DataType = tensor.Float16
	Int32     DataType = tensor.Int32
	Int64     DataType = tensor.Int64
	Uint8     DataType = tensor.Uint8
	Bool      DataType = tensor.Bool
	Complex64 DataType = tensor.Complex64
)

// Device represents the compute device a tensor lives on.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	WebGPU Device = tensor.WebGPU
)

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// RawTensor is a strided view over shared storage.
type RawTensor = tensor.RawTensor

// Creation functions

// NewRaw creates a contiguous zero-initialized tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a contiguous tensor filled with zeros.
func Zeros(shape Shape, dtype DataType, device Device) *RawTensor {
	return tensor.Zeros(shape, dtype, device)
}

// Full creates a tensor filled with a scalar value.
func Full(shape Shape, value any, dtype DataType, device Device) *RawTensor {
	return tensor.Full(shape, value, dtype, device)
}

// FromSlice creates a tensor from a Go slice, copying the data.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// Arange creates a 1D int64 tensor with values in [start, end).
func Arange(start, end int64) *RawTensor {
	return tensor.Arange(start, end)
}

// ArangeF creates a 1D float32 tensor with values in [start, end).
func ArangeF(start, end int) *RawTensor {
	return tensor.ArangeF(start, end)
}

// Consec creates a float32 tensor counting up from 1 in row-major order.
func Consec(shape Shape, start ...float32) *RawTensor {
	return tensor.Consec(shape, start...)
}

// Flat reinterprets a tensor's whole backing buffer as []T.
func Flat[T DType](r *RawTensor) []T {
	return tensor.Flat[T](r)
}

// BroadcastShapes broadcasts two shapes under NumPy rules.
func BroadcastShapes(a, b Shape) (Shape, error) {
	return tensor.BroadcastShapes(a, b)
}
