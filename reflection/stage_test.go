// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvreflect/spirv"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{0, "none"},
		{StageVertex, "vertex"},
		{StageVertex | StageFragment, "vertex|fragment"},
		{StageCompute, "compute"},
		{AllStages, "vertex|tess_control|tess_eval|geometry|fragment|compute"},
		{StageFragment | 1<<10, "fragment|0x400"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stage.String())
		})
	}
}

func TestStage_SetOperations(t *testing.T) {
	s := StageVertex | StageGeometry | StageFragment
	assert.Equal(t, 3, s.Count())
	assert.Equal(t, []Stage{StageVertex, StageGeometry, StageFragment}, s.Split())
	assert.True(t, s.Has(StageVertex|StageFragment))
	assert.False(t, s.Has(StageVertex|StageCompute))
	assert.True(t, s.Has(0))
	assert.Empty(t, Stage(0).Split())
}

func TestParseStage(t *testing.T) {
	for name, want := range map[string]Stage{
		"vertex": StageVertex, "VERT": StageVertex, " frag ": StageFragment,
		"tesc": StageTessControl, "tese": StageTessEval, "geom": StageGeometry,
		"cs": StageCompute, "ps": StageFragment,
	} {
		got, err := ParseStage(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseStage("mesh")
	requireKind(t, err, ErrInvalidArgument)
}

func TestStageOf(t *testing.T) {
	s, ok := StageOf(spirv.ExecutionModelGLCompute)
	assert.True(t, ok)
	assert.Equal(t, StageCompute, s)

	_, ok = StageOf(spirv.ExecutionModelKernel)
	assert.False(t, ok)
}
