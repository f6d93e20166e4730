// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/gogpu/spvreflect/spirv"
)

// Stage is a bitset of shader stages. Bit values follow Vulkan's
// VkShaderStageFlagBits.
type Stage uint32

const (
	StageVertex      Stage = 1 << iota // Vertex shader
	StageTessControl                   // Tessellation control shader
	StageTessEval                      // Tessellation evaluation shader
	StageGeometry                      // Geometry shader
	StageFragment                      // Fragment shader
	StageCompute                       // Compute shader
)

// MaxStages is the largest number of stage trees Merge accepts.
const MaxStages = 6

// AllStages is the union of every graphics and compute stage.
const AllStages = StageVertex | StageTessControl | StageTessEval | StageGeometry | StageFragment | StageCompute

var stageNames = [MaxStages]string{"vertex", "tess_control", "tess_eval", "geometry", "fragment", "compute"}

// stageAliases maps the names accepted by ParseStage.
var stageAliases = map[string]Stage{
	"vertex": StageVertex, "vert": StageVertex, "vs": StageVertex,
	"tess_control": StageTessControl, "tesc": StageTessControl, "hs": StageTessControl,
	"tess_eval": StageTessEval, "tese": StageTessEval, "ds": StageTessEval,
	"geometry": StageGeometry, "geom": StageGeometry, "gs": StageGeometry,
	"fragment": StageFragment, "frag": StageFragment, "fs": StageFragment, "ps": StageFragment,
	"compute": StageCompute, "comp": StageCompute, "cs": StageCompute,
}

// String returns the stage names joined with "|", or "none".
func (s Stage) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for i, name := range stageNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if rest := s &^ AllStages; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Has reports whether s contains every stage of other.
func (s Stage) Has(other Stage) bool {
	return s&other == other
}

// Count returns the number of stages in s.
func (s Stage) Count() int {
	return bits.OnesCount32(uint32(s))
}

// Split returns the single-stage masks of s in ascending bit order.
func (s Stage) Split() []Stage {
	out := make([]Stage, 0, s.Count())
	for rest := s; rest != 0; rest &= rest - 1 {
		out = append(out, rest&-rest)
	}
	return out
}

// ParseStage converts a stage name such as "vertex", "frag" or "cs".
func ParseStage(name string) (Stage, error) {
	if s, ok := stageAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, nil
	}
	return 0, newError(ErrInvalidArgument, "unknown shader stage %q", name)
}

// StageOf maps a SPIR-V execution model to its stage bit.
func StageOf(model spirv.ExecutionModel) (Stage, bool) {
	switch model {
	case spirv.ExecutionModelVertex:
		return StageVertex, true
	case spirv.ExecutionModelTessellationControl:
		return StageTessControl, true
	case spirv.ExecutionModelTessellationEvaluation:
		return StageTessEval, true
	case spirv.ExecutionModelGeometry:
		return StageGeometry, true
	case spirv.ExecutionModelFragment:
		return StageFragment, true
	case spirv.ExecutionModelGLCompute:
		return StageCompute, true
	default:
		return 0, false
	}
}
