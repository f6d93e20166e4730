// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"fmt"

	"github.com/gogpu/spvreflect/spirv"
)

// ScalarType is the component type of a primitive.
type ScalarType uint8

const (
	ScalarInvalid ScalarType = iota
	ScalarBool
	ScalarInt8
	ScalarUint8
	ScalarInt16
	ScalarUint16
	ScalarInt32
	ScalarUint32
	ScalarInt64
	ScalarUint64
	ScalarFloat16
	ScalarFloat32
	ScalarFloat64
)

type scalarTrait struct {
	name   string
	kind   spirv.ScalarKind
	width  uint32 // bits
	signed bool
}

// scalarTraits is the single source of per-scalar facts.
var scalarTraits = map[ScalarType]scalarTrait{
	ScalarBool:    {"bool", spirv.ScalarBool, 32, false},
	ScalarInt8:    {"i8", spirv.ScalarInt, 8, true},
	ScalarUint8:   {"u8", spirv.ScalarInt, 8, false},
	ScalarInt16:   {"i16", spirv.ScalarInt, 16, true},
	ScalarUint16:  {"u16", spirv.ScalarInt, 16, false},
	ScalarInt32:   {"i32", spirv.ScalarInt, 32, true},
	ScalarUint32:  {"u32", spirv.ScalarInt, 32, false},
	ScalarInt64:   {"i64", spirv.ScalarInt, 64, true},
	ScalarUint64:  {"u64", spirv.ScalarInt, 64, false},
	ScalarFloat16: {"f16", spirv.ScalarFloat, 16, true},
	ScalarFloat32: {"f32", spirv.ScalarFloat, 32, true},
	ScalarFloat64: {"f64", spirv.ScalarFloat, 64, true},
}

type scalarKey struct {
	kind   spirv.ScalarKind
	width  uint32
	signed bool
}

var scalarByKey map[scalarKey]ScalarType

func init() {
	scalarByKey = make(map[scalarKey]ScalarType, len(scalarTraits))
	for t, tr := range scalarTraits {
		scalarByKey[scalarKey{tr.kind, tr.width, tr.signed}] = t
	}
}

// String returns the WGSL-style scalar name.
func (t ScalarType) String() string {
	if tr, ok := scalarTraits[t]; ok {
		return tr.name
	}
	return "invalid"
}

// Size returns the byte size of one component.
func (t ScalarType) Size() uint32 {
	return scalarTraits[t].width / 8
}

// Signed reports whether t is a signed integer or a float.
func (t ScalarType) Signed() bool {
	return scalarTraits[t].signed
}

// scalarOf resolves decoder numeric traits to a ScalarType.
func scalarOf(n spirv.Numeric) (ScalarType, bool) {
	signed := n.Signed
	if n.Kind == spirv.ScalarBool {
		signed = false
	}
	if n.Kind == spirv.ScalarFloat {
		signed = true
	}
	t, ok := scalarByKey[scalarKey{n.Kind, n.Width, signed}]
	return t, ok
}

// PrimitiveType describes a scalar, vector or matrix.
type PrimitiveType struct {
	Scalar ScalarType

	// Components is the vector width (1 for scalars). For matrices it is
	// the column height.
	Components uint32

	// Columns and Rows are zero for scalars and vectors.
	Columns      uint32
	Rows         uint32
	MatrixStride uint32
	RowMajor     bool
}

// IsMatrix reports whether t is a matrix.
func (t PrimitiveType) IsMatrix() bool {
	return t.Columns > 0
}

// Size returns the byte size of t.
func (t PrimitiveType) Size() uint32 {
	scalar := t.Scalar.Size()
	if !t.IsMatrix() {
		return t.Components * scalar
	}
	major, minor := t.Columns, t.Rows
	if t.RowMajor {
		major, minor = t.Rows, t.Columns
	}
	stride := t.MatrixStride
	if stride == 0 {
		stride = minor * scalar
	}
	return stride * major
}

// String returns the WGSL-style type name, e.g. "vec3<f32>".
func (t PrimitiveType) String() string {
	switch {
	case t.IsMatrix():
		s := fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, t.Scalar)
		if t.RowMajor {
			s += " row_major"
		}
		return s
	case t.Components > 1:
		return fmt.Sprintf("vec%d<%s>", t.Components, t.Scalar)
	default:
		return t.Scalar.String()
	}
}

func primitiveTypeOf(n spirv.Numeric) (PrimitiveType, *Error) {
	scalar, ok := scalarOf(n)
	if !ok {
		return PrimitiveType{}, newError(ErrMalformedModule, "unsupported scalar: kind %d width %d", n.Kind, n.Width)
	}
	if n.Components == 0 || n.Components > 4 || n.Columns > 4 {
		return PrimitiveType{}, newError(ErrMalformedModule, "unsupported shape: %d components, %d columns", n.Components, n.Columns)
	}
	t := PrimitiveType{Scalar: scalar, Components: n.Components}
	if n.Columns > 0 {
		t.Columns, t.Rows = n.Columns, n.Rows
		t.MatrixStride, t.RowMajor = n.MatrixStride, n.RowMajor
	}
	return t, nil
}
