// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gogpu/spvreflect/spirv"
)

func TestScalarTraits(t *testing.T) {
	for scalar, tr := range scalarTraits {
		assert.Equal(t, scalar, scalarByKey[scalarKey{tr.kind, tr.width, tr.signed}], tr.name)
		assert.Equal(t, tr.width/8, scalar.Size())
	}
	assert.Equal(t, "invalid", ScalarInvalid.String())
	assert.Len(t, scalarByKey, len(scalarTraits))
}

func TestPrimitiveTypeOf(t *testing.T) {
	tests := []struct {
		name string
		in   spirv.Numeric
		want string
		size uint32
	}{
		{"f16", spirv.Numeric{Kind: spirv.ScalarFloat, Width: 16, Components: 1}, "f16", 2},
		{"i64", spirv.Numeric{Kind: spirv.ScalarInt, Width: 64, Signed: true, Components: 1}, "i64", 8},
		{"uvec2", spirv.Numeric{Kind: spirv.ScalarInt, Width: 32, Components: 2}, "vec2<u32>", 8},
		{"mat2x3 row-major", spirv.Numeric{Kind: spirv.ScalarFloat, Width: 32, Components: 3, Columns: 2, Rows: 3, MatrixStride: 16, RowMajor: true}, "mat2x3<f32> row_major", 48},
		{"mat2 packed", spirv.Numeric{Kind: spirv.ScalarFloat, Width: 32, Components: 2, Columns: 2, Rows: 2}, "mat2x2<f32>", 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := primitiveTypeOf(tt.in)
			assert.Nil(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.size, got.Size())
		})
	}

	_, err := primitiveTypeOf(spirv.Numeric{Kind: spirv.ScalarFloat, Width: 24, Components: 1})
	assert.NotNil(t, err)
	_, err = primitiveTypeOf(spirv.Numeric{Kind: spirv.ScalarFloat, Width: 32, Components: 5})
	assert.NotNil(t, err)
}
