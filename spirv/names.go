package spirv

import "strconv"

var opcodeNames = map[OpCode]string{
	0: "OpNop", 1: "OpUndef", 3: "OpSource", 4: "OpSourceExtension",
	5: "OpName", 6: "OpMemberName", 7: "OpString", 10: "OpExtension",
	11: "OpExtInstImport", 12: "OpExtInst", 14: "OpMemoryModel",
	15: "OpEntryPoint", 16: "OpExecutionMode", 17: "OpCapability",
	19: "OpTypeVoid", 20: "OpTypeBool", 21: "OpTypeInt", 22: "OpTypeFloat",
	23: "OpTypeVector", 24: "OpTypeMatrix", 25: "OpTypeImage",
	26: "OpTypeSampler", 27: "OpTypeSampledImage", 28: "OpTypeArray",
	29: "OpTypeRuntimeArray", 30: "OpTypeStruct", 31: "OpTypeOpaque",
	32: "OpTypePointer", 33: "OpTypeFunction", 41: "OpConstantTrue",
	42: "OpConstantFalse", 43: "OpConstant", 44: "OpConstantComposite",
	45: "OpConstantSampler", 46: "OpConstantNull", 48: "OpSpecConstantTrue",
	49: "OpSpecConstantFalse", 50: "OpSpecConstant",
	51: "OpSpecConstantComposite", 52: "OpSpecConstantOp",
	54: "OpFunction", 55: "OpFunctionParameter", 56: "OpFunctionEnd",
	57: "OpFunctionCall", 59: "OpVariable", 61: "OpLoad", 62: "OpStore",
	65: "OpAccessChain", 71: "OpDecorate", 72: "OpMemberDecorate",
	86: "OpSampledImage", 87: "OpImageSampleImplicitLod",
	248: "OpLabel", 249: "OpBranch", 253: "OpReturn", 254: "OpReturnValue",
	5341: "OpTypeAccelerationStructureKHR",
}

var decorationNames = map[Decoration]string{
	0: "RelaxedPrecision", 1: "SpecId", 2: "Block", 3: "BufferBlock",
	4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
	8: "GLSLShared", 9: "GLSLPacked", 11: "BuiltIn", 13: "NoPerspective",
	14: "Flat", 18: "Invariant", 19: "Restrict", 20: "Aliased",
	21: "Volatile", 23: "Coherent", 24: "NonWritable", 25: "NonReadable",
	30: "Location", 31: "Component", 32: "Index", 33: "Binding",
	34: "DescriptorSet", 35: "Offset", 43: "InputAttachmentIndex",
	44: "Alignment",
}

var storageClassNames = map[StorageClass]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
	8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
	12: "StorageBuffer",
}

var executionModelNames = map[ExecutionModel]string{
	0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
	3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
}

var dimNames = map[Dim]string{
	0: "1D", 1: "2D", 2: "3D", 3: "Cube", 4: "Rect", 5: "Buffer", 6: "SubpassData",
}

// String returns the SPIR-V mnemonic, or "Op<n>" for opcodes without one.
func (op OpCode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "Op" + strconv.Itoa(int(op))
}

func (d Decoration) String() string {
	if s, ok := decorationNames[d]; ok {
		return s
	}
	return strconv.FormatUint(uint64(d), 10)
}

func (c StorageClass) String() string {
	if s, ok := storageClassNames[c]; ok {
		return s
	}
	return strconv.FormatUint(uint64(c), 10)
}

func (m ExecutionModel) String() string {
	if s, ok := executionModelNames[m]; ok {
		return s
	}
	return strconv.FormatUint(uint64(m), 10)
}

func (d Dim) String() string {
	if s, ok := dimNames[d]; ok {
		return s
	}
	return strconv.FormatUint(uint64(d), 10)
}
