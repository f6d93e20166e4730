package spirv

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator

	// HeaderWords is the number of words preceding the first instruction.
	HeaderWords = 5
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Common capabilities
const (
	CapabilityMatrix                 Capability = 0 // Implied by Shader
	CapabilityShader                 Capability = 1
	CapabilityFloat64                Capability = 10
	CapabilityInt64                  Capability = 11
	CapabilityInt16                  Capability = 22
	CapabilityInt8                   Capability = 39
	CapabilityRuntimeDescriptorArray Capability = 5302
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes understood by the reader, the decoder and the builder.
const (
	OpNop                       OpCode = 0
	OpSource                    OpCode = 3
	OpName                      OpCode = 5
	OpMemberName                OpCode = 6
	OpString                    OpCode = 7
	OpExtension                 OpCode = 10
	OpExtInstImport             OpCode = 11
	OpMemoryModel               OpCode = 14
	OpEntryPoint                OpCode = 15
	OpExecutionMode             OpCode = 16
	OpCapability                OpCode = 17
	OpTypeVoid                  OpCode = 19
	OpTypeBool                  OpCode = 20
	OpTypeInt                   OpCode = 21
	OpTypeFloat                 OpCode = 22
	OpTypeVector                OpCode = 23
	OpTypeMatrix                OpCode = 24
	OpTypeImage                 OpCode = 25
	OpTypeSampler               OpCode = 26
	OpTypeSampledImage          OpCode = 27
	OpTypeArray                 OpCode = 28
	OpTypeRuntimeArray          OpCode = 29
	OpTypeStruct                OpCode = 30
	OpTypePointer               OpCode = 32
	OpTypeFunction              OpCode = 33
	OpConstantTrue              OpCode = 41
	OpConstantFalse             OpCode = 42
	OpConstant                  OpCode = 43
	OpConstantComposite         OpCode = 44
	OpSpecConstant              OpCode = 50
	OpFunction                  OpCode = 54
	OpFunctionParameter         OpCode = 55
	OpFunctionEnd               OpCode = 56
	OpVariable                  OpCode = 59
	OpLoad                      OpCode = 61
	OpStore                     OpCode = 62
	OpAccessChain               OpCode = 65
	OpDecorate                  OpCode = 71
	OpMemberDecorate            OpCode = 72
	OpLabel                     OpCode = 248
	OpBranch                    OpCode = 249
	OpReturn                    OpCode = 253
	OpReturnValue               OpCode = 254
	OpTypeAccelerationStructure OpCode = 5341
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Common decorations
const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationRowMajor      Decoration = 4
	DecorationColMajor      Decoration = 5
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationNonWritable   Decoration = 24
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

// ExecutionModel represents the pipeline stage of an entry point.
type ExecutionModel uint32

// Execution models
const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelKernel                 ExecutionModel = 6
)

// ExecutionMode represents a SPIR-V execution mode.
type ExecutionMode uint32

// Execution modes
const (
	ExecutionModeOriginUpperLeft ExecutionMode = 7
	ExecutionModeLocalSize       ExecutionMode = 17
)

// AddressingModel represents a SPIR-V addressing model.
type AddressingModel uint32

// Addressing models
const (
	AddressingModelLogical AddressingModel = 0
)

// MemoryModel represents a SPIR-V memory model.
type MemoryModel uint32

// Memory models
const (
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelVulkan  MemoryModel = 3
)

// FunctionControl represents function control flags.
type FunctionControl uint32

// Function controls
const (
	FunctionControlNone FunctionControl = 0
)

// Dim is the dimensionality of an image type.
type Dim uint32

// Image dimensionalities
const (
	Dim1D          Dim = 0
	Dim2D          Dim = 1
	Dim3D          Dim = 2
	DimCube        Dim = 3
	DimRect        Dim = 4
	DimBuffer      Dim = 5
	DimSubpassData Dim = 6
)

// versionToWord converts Version to SPIR-V word format.
func versionToWord(v Version) uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}

// versionFromWord is the inverse of versionToWord.
func versionFromWord(w uint32) Version {
	return Version{Major: uint8(w >> 16), Minor: uint8(w >> 8)}
}
