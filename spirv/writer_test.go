package spirv

import (
	"encoding/binary"
	"testing"
)

func TestModuleBuilder_Header(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)
	builder.AddCapability(CapabilityShader)
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	builder.AddTypeFloat(32)

	header, instructions, err := ReadInstructions(builder.Words())
	if err != nil {
		t.Fatalf("ReadInstructions: %v", err)
	}
	if header.Version != Version1_3 {
		t.Errorf("version = %v, want 1.3", header.Version)
	}
	if header.Generator != GeneratorID {
		t.Errorf("generator = 0x%08X, want 0x%08X", header.Generator, GeneratorID)
	}
	if header.Bound != 2 {
		t.Errorf("bound = %d, want 2", header.Bound)
	}
	if header.Schema != 0 {
		t.Errorf("schema = %d, want 0", header.Schema)
	}
	if len(instructions) != 3 {
		t.Fatalf("got %d instructions, want 3", len(instructions))
	}
}

// Annotations must precede the types they decorate in the logical layout,
// even when the builder receives them afterwards.
func TestModuleBuilder_SectionOrder(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)
	f32 := builder.AddTypeFloat(32)
	block := builder.AddTypeStruct(f32)
	builder.AddDecorate(block, DecorationBlock)
	builder.AddMemberDecorate(block, 0, DecorationOffset, 0)
	builder.AddName(block, "Params")
	builder.AddCapability(CapabilityShader)

	_, instructions, err := ReadInstructions(builder.Words())
	if err != nil {
		t.Fatalf("ReadInstructions: %v", err)
	}
	want := []OpCode{OpCapability, OpName, OpDecorate, OpMemberDecorate, OpTypeFloat, OpTypeStruct}
	if len(instructions) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(instructions), len(want))
	}
	for i, op := range want {
		if instructions[i].Opcode != op {
			t.Errorf("instruction %d = %v, want %v", i, instructions[i].Opcode, op)
		}
	}
}

func TestInstructionBuilder_String(t *testing.T) {
	tests := []struct {
		name  string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 2},
		{"camera", 2},
		{"viewProjection", 4},
	}
	for _, tt := range tests {
		builder := NewInstructionBuilder()
		builder.AddString(tt.name)
		inst := builder.Build(OpName)
		if len(inst.Words) != tt.words {
			t.Errorf("%q: %d words, want %d", tt.name, len(inst.Words), tt.words)
		}
		got, n := readString(inst.Words, 0)
		if got != tt.name || n != tt.words {
			t.Errorf("readString = %q, %d; want %q, %d", got, n, tt.name, tt.words)
		}
	}
}

func TestModuleBuilder_WordsMatchBytes(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	floatType := builder.AddTypeFloat(32)
	uintType := builder.AddTypeInt(32, false)
	length := builder.AddConstant(uintType, 4)
	builder.AddTypeArray(floatType, length)
	builder.AddTypeRuntimeArray(floatType)

	words := builder.Words()
	data := builder.Build()

	if len(data) != len(words)*4 {
		t.Fatalf("Build produced %d bytes for %d words", len(data), len(words))
	}
	for i, word := range words {
		if got := binary.LittleEndian.Uint32(data[i*4:]); got != word {
			t.Errorf("word %d: bytes encode 0x%08X, want 0x%08X", i, got, word)
		}
	}
}

func TestModuleBuilder_IDAllocation(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	first := builder.AllocID()
	f32 := builder.AddTypeFloat(32)
	last := builder.AllocID()

	if first != 1 || f32 != 2 || last != 3 {
		t.Errorf("ids = %d, %d, %d; want 1, 2, 3", first, f32, last)
	}
	if _, _, err := ReadInstructions(builder.Words()); err != nil {
		t.Fatalf("ReadInstructions: %v", err)
	}
}
