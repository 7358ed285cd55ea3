// Package tensor implements small dense N-dimensional float64 arrays with an
// explicit outer-broadcast contract.
//
// Arrays are stored row-major in a flat slice, the same layout the rest of the
// codebase uses for BLAS-style kernels. The package deliberately does not
// implement general elementwise broadcasting; the only broadcast operation it
// supports is the documented outer product of batch axes used by the
// likelihood engine.
package tensor

import (
	"fmt"
)

// ShapeError reports an invalid or mismatched array shape.
type ShapeError struct {
	Op     string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tensor: %s: %s", e.Op, e.Detail)
}

// Array is a dense N-dimensional float64 array in row-major order.
//
// A zero-dimensional Array (empty Shape) is a scalar and holds exactly one
// element. Arrays are not safe for concurrent mutation; all operations in this
// package treat their inputs as read-only.
type Array struct {
	Data  []float64
	Shape []int
}

// Size returns the number of elements implied by shape. The empty shape has
// size 1 (a scalar).
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// New creates an Array from a flat data slice and a shape. It returns a
// ShapeError if any axis is non-positive or the data length does not match
// the shape.
func New(data []float64, shape ...int) (Array, error) {
	for _, d := range shape {
		if d <= 0 {
			return Array{}, &ShapeError{Op: "New", Detail: fmt.Sprintf("non-positive axis length %d in shape %v", d, shape)}
		}
	}
	if len(data) != Size(shape) {
		return Array{}, &ShapeError{Op: "New", Detail: fmt.Sprintf("data length %d does not match shape %v (size %d)", len(data), shape, Size(shape))}
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return Array{Data: data, Shape: s}, nil
}

// MustNew is New for literal shapes known to be valid. It panics on error and
// is intended for tests and internal constants.
func MustNew(data []float64, shape ...int) Array {
	a, err := New(data, shape...)
	if err != nil {
		panic(err)
	}
	return a
}

// Scalar returns a zero-dimensional Array holding v.
func Scalar(v float64) Array {
	return Array{Data: []float64{v}, Shape: nil}
}

// Vector returns a one-dimensional Array over data. The slice is not copied.
func Vector(data []float64) Array {
	return Array{Data: data, Shape: []int{len(data)}}
}

// Zeros returns an Array of the given shape filled with zeros.
func Zeros(shape ...int) Array {
	s := make([]int, len(shape))
	copy(s, shape)
	return Array{Data: make([]float64, Size(s)), Shape: s}
}

// Full returns an Array of the given shape filled with v.
func Full(v float64, shape ...int) Array {
	a := Zeros(shape...)
	for i := range a.Data {
		a.Data[i] = v
	}
	return a
}

// NDim returns the number of axes.
func (a Array) NDim() int { return len(a.Shape) }

// Len returns the total number of elements.
func (a Array) Len() int { return len(a.Data) }

// IsScalar reports whether the array is zero-dimensional.
func (a Array) IsScalar() bool { return len(a.Shape) == 0 }

// ScalarValue returns the single element of a scalar array.
func (a Array) ScalarValue() float64 { return a.Data[0] }

// LastDim returns the length of the trailing axis, or 1 for a scalar.
func (a Array) LastDim() int {
	if len(a.Shape) == 0 {
		return 1
	}
	return a.Shape[len(a.Shape)-1]
}

// Batch returns the shape without the trailing axis. For vectors and scalars
// the batch shape is empty.
func (a Array) Batch() []int {
	if len(a.Shape) <= 1 {
		return nil
	}
	return a.Shape[:len(a.Shape)-1]
}

// Row returns the i-th slice along the flattened leading axes, i.e. the i-th
// vector of length LastDim. The returned slice aliases the array data.
func (a Array) Row(i int) []float64 {
	n := a.LastDim()
	return a.Data[i*n : (i+1)*n]
}

// NumRows returns the number of trailing-axis vectors in the array.
func (a Array) NumRows() int {
	if len(a.Data) == 0 {
		return 0
	}
	return len(a.Data) / a.LastDim()
}

// Clone returns a deep copy of the array.
func (a Array) Clone() Array {
	d := make([]float64, len(a.Data))
	copy(d, a.Data)
	s := make([]int, len(a.Shape))
	copy(s, a.Shape)
	return Array{Data: d, Shape: s}
}

// Reshape returns a view of the same data under a new shape. The total size
// must be preserved.
func (a Array) Reshape(shape ...int) (Array, error) {
	if Size(shape) != len(a.Data) {
		return Array{}, &ShapeError{Op: "Reshape", Detail: fmt.Sprintf("cannot reshape %v (size %d) to %v", a.Shape, len(a.Data), Size(shape))}
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return Array{Data: a.Data, Shape: s}, nil
}

// SameShape reports whether two shapes are identical.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Concat concatenates shape slices into a new shape.
func Concat(shapes ...[]int) []int {
	n := 0
	for _, s := range shapes {
		n += len(s)
	}
	out := make([]int, 0, n)
	for _, s := range shapes {
		out = append(out, s...)
	}
	return out
}

// Ravel converts a multi-index into a flat offset for the given shape.
func Ravel(index, shape []int) (int, error) {
	if len(index) != len(shape) {
		return 0, &ShapeError{Op: "Ravel", Detail: fmt.Sprintf("index rank %d does not match shape rank %d", len(index), len(shape))}
	}
	off := 0
	for i, ix := range index {
		if ix < 0 || ix >= shape[i] {
			return 0, &ShapeError{Op: "Ravel", Detail: fmt.Sprintf("index %v out of range for shape %v", index, shape)}
		}
		off = off*shape[i] + ix
	}
	return off, nil
}

// Unravel converts a flat offset into a multi-index for the given shape.
func Unravel(off int, shape []int) []int {
	idx := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		idx[i] = off % shape[i]
		off /= shape[i]
	}
	return idx
}

// Select returns the elements of the trailing axis where mask is true, for
// every leading batch index. The batch shape is preserved.
func Select(a Array, mask []bool) (Array, error) {
	if a.LastDim() != len(mask) {
		return Array{}, &ShapeError{Op: "Select", Detail: fmt.Sprintf("mask length %d does not match trailing axis %d", len(mask), a.LastDim())}
	}
	kept := 0
	for _, m := range mask {
		if m {
			kept++
		}
	}
	if kept == 0 {
		return Array{}, &ShapeError{Op: "Select", Detail: "mask selects no elements"}
	}
	rows := a.NumRows()
	out := make([]float64, rows*kept)
	o := 0
	for r := 0; r < rows; r++ {
		row := a.Row(r)
		for j, m := range mask {
			if m {
				out[o] = row[j]
				o++
			}
		}
	}
	shape := Concat(a.Batch(), []int{kept})
	return Array{Data: out, Shape: shape}, nil
}
