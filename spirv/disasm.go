package spirv

import (
	"bufio"
	"fmt"
	"io"
)

// Disassemble writes a textual listing of a module in the style of
// spirv-dis. Reflection-relevant instructions (debug names, annotations,
// types, constants, variables) are printed with decoded operands; other
// instructions fall back to a raw operand list.
func Disassemble(w io.Writer, words []uint32) error {
	header, instructions, err := ReadInstructions(words)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "; SPIR-V\n")
	fmt.Fprintf(out, "; Version: %d.%d\n", header.Version.Major, header.Version.Minor)
	fmt.Fprintf(out, "; Generator: 0x%08X\n", header.Generator)
	fmt.Fprintf(out, "; Bound: %d\n", header.Bound)
	fmt.Fprintf(out, "; Schema: %d\n\n", header.Schema)

	for _, inst := range instructions {
		printInstruction(out, inst)
	}
	return out.Flush()
}

func id(n uint32) string {
	return fmt.Sprintf("%%%d", n)
}

// minOperands guards the decoded forms below against truncated operands.
var minOperands = map[OpCode]int{
	OpEntryPoint: 3, OpName: 2, OpMemberName: 3, OpDecorate: 2, OpMemberDecorate: 3,
	OpTypeVector: 3, OpTypeMatrix: 3, OpTypeImage: 3, OpTypePointer: 3,
	OpConstant: 2, OpSpecConstant: 2, OpVariable: 3,
}

// resultFirst lists opcodes whose first operand is the result ID.
var resultFirst = map[OpCode]bool{
	OpTypeVoid: true, OpTypeBool: true, OpTypeInt: true, OpTypeFloat: true,
	OpTypeVector: true, OpTypeMatrix: true, OpTypeImage: true, OpTypeSampler: true,
	OpTypeSampledImage: true, OpTypeArray: true, OpTypeRuntimeArray: true,
	OpTypeStruct: true, OpTypePointer: true, OpTypeFunction: true,
	OpTypeAccelerationStructure: true, OpExtInstImport: true, OpLabel: true,
}

//nolint:gocyclo,cyclop // one case per opcode
func printInstruction(out io.Writer, inst Instruction) {
	ops := inst.Words
	name := inst.Opcode.String()
	if len(ops) == 0 {
		fmt.Fprintf(out, "               %s\n", name)
		return
	}

	op := inst.Opcode
	if len(ops) < minOperands[op] {
		op = OpNop
	}

	switch op {
	case OpCapability:
		fmt.Fprintf(out, "               %s %d\n", name, ops[0])

	case OpEntryPoint:
		str, strWords := readString(ops, 2)
		fmt.Fprintf(out, "               %s %s %s \"%s\"", name, ExecutionModel(ops[0]), id(ops[1]), str)
		for i := 2 + strWords; i < len(ops); i++ {
			fmt.Fprintf(out, " %s", id(ops[i]))
		}
		fmt.Fprintln(out)

	case OpName:
		str, _ := readString(ops, 1)
		fmt.Fprintf(out, "               %s %s \"%s\"\n", name, id(ops[0]), str)

	case OpMemberName:
		str, _ := readString(ops, 2)
		fmt.Fprintf(out, "               %s %s %d \"%s\"\n", name, id(ops[0]), ops[1], str)

	case OpDecorate:
		fmt.Fprintf(out, "               %s %s %s", name, id(ops[0]), Decoration(ops[1]))
		for _, op := range ops[2:] {
			fmt.Fprintf(out, " %d", op)
		}
		fmt.Fprintln(out)

	case OpMemberDecorate:
		fmt.Fprintf(out, "               %s %s %d %s", name, id(ops[0]), ops[1], Decoration(ops[2]))
		for _, op := range ops[3:] {
			fmt.Fprintf(out, " %d", op)
		}
		fmt.Fprintln(out)

	case OpTypeInt, OpTypeFloat:
		fmt.Fprintf(out, "%10s = %s", id(ops[0]), name)
		for _, op := range ops[1:] {
			fmt.Fprintf(out, " %d", op)
		}
		fmt.Fprintln(out)

	case OpTypeVector, OpTypeMatrix:
		fmt.Fprintf(out, "%10s = %s %s %d\n", id(ops[0]), name, id(ops[1]), ops[2])

	case OpTypeImage:
		fmt.Fprintf(out, "%10s = %s %s %s", id(ops[0]), name, id(ops[1]), Dim(ops[2]))
		for _, op := range ops[3:] {
			fmt.Fprintf(out, " %d", op)
		}
		fmt.Fprintln(out)

	case OpTypePointer:
		fmt.Fprintf(out, "%10s = %s %s %s\n", id(ops[0]), name, StorageClass(ops[1]), id(ops[2]))

	case OpConstant, OpSpecConstant:
		fmt.Fprintf(out, "%10s = %s %s", id(ops[1]), name, id(ops[0]))
		for _, op := range ops[2:] {
			fmt.Fprintf(out, " %d", op)
		}
		fmt.Fprintln(out)

	case OpVariable:
		fmt.Fprintf(out, "%10s = %s %s %s\n", id(ops[1]), name, id(ops[0]), StorageClass(ops[2]))

	default:
		if resultFirst[inst.Opcode] {
			fmt.Fprintf(out, "%10s = %s", id(ops[0]), name)
			for _, op := range ops[1:] {
				fmt.Fprintf(out, " %s", id(op))
			}
			fmt.Fprintln(out)
			return
		}
		fmt.Fprintf(out, "               %s", name)
		for _, op := range ops {
			fmt.Fprintf(out, " %s", id(op))
		}
		fmt.Fprintln(out)
	}
}
