// Package spirv decodes the resource interface of SPIR-V binaries.
//
// The package is split in three parts. ReadInstructions validates the
// header and splits a module into instructions. Decode walks those
// instructions and reports what a pipeline layout needs to know about the
// module: its entry points, its descriptor bindings and its push-constant
// block.
//
//	module, err := spirv.Decode(words)
//	if err != nil {
//		return err
//	}
//	for _, b := range module.Bindings {
//		fmt.Println(b.Set, b.Binding, b.Type, b.Name)
//	}
//
// Block members are reported with byte offsets, sizes and padded sizes,
// together with their scalar, vector, matrix and array traits. Decode
// never evaluates function bodies.
//
// ModuleBuilder goes the other way and assembles modules from types,
// decorations and variables. It is used to synthesise test inputs:
//
//	b := spirv.NewModuleBuilder(spirv.Version1_3)
//	b.AddCapability(spirv.CapabilityShader)
//	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//	f32 := b.AddTypeFloat(32)
//	words := b.Words()
//
// Disassemble prints a listing of the instructions relevant to reflection.
//
// See https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html for the
// binary format.
package spirv
