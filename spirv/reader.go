package spirv

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"
)

// DecodeError reports a SPIR-V binary that cannot be read or whose
// resource interface cannot be described.
type DecodeError struct {
	// Offset is the word offset of the offending instruction, or -1.
	Offset  int
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("spirv: word %d: %s", e.Offset, e.Message)
	}
	return "spirv: " + e.Message
}

func decodeErrorf(offset int, format string, args ...any) *DecodeError {
	return &DecodeError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// Header is the five-word SPIR-V module header.
type Header struct {
	Version   Version
	Generator uint32
	Bound     uint32
	Schema    uint32
}

// WordsFromBytes converts a little-endian SPIR-V binary into words.
func WordsFromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, decodeErrorf(-1, "binary length %d is not a multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

// ReadInstructions validates the module header and splits the
// instruction stream. Modules written with the opposite endianness are
// byte-swapped; the input slice is never modified.
func ReadInstructions(words []uint32) (Header, []Instruction, error) {
	if len(words) < HeaderWords {
		return Header{}, nil, decodeErrorf(-1, "module too small: %d words", len(words))
	}
	switch words[0] {
	case MagicNumber:
	case bits.ReverseBytes32(MagicNumber):
		swapped := make([]uint32, len(words))
		for i, w := range words {
			swapped[i] = bits.ReverseBytes32(w)
		}
		words = swapped
	default:
		return Header{}, nil, decodeErrorf(0, "invalid magic number 0x%08X", words[0])
	}

	header := Header{
		Version:   versionFromWord(words[1]),
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}

	instructions := make([]Instruction, 0, len(words)/4)
	for offset := HeaderWords; offset < len(words); {
		first := words[offset]
		wordCount := int(first >> 16)
		if wordCount == 0 || offset+wordCount > len(words) {
			return Header{}, nil, decodeErrorf(offset, "invalid word count %d", wordCount)
		}
		instructions = append(instructions, Instruction{
			Opcode: OpCode(first & 0xFFFF),
			Words:  words[offset+1 : offset+wordCount],
		})
		offset += wordCount
	}
	return header, instructions, nil
}

// readString decodes a null-terminated literal string starting at
// operand index start and returns it with the number of words consumed.
func readString(operands []uint32, start int) (string, int) {
	var sb strings.Builder
	for i := start; i < len(operands); i++ {
		w := operands[i]
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return sb.String(), i - start + 1
			}
			sb.WriteByte(c)
		}
	}
	return sb.String(), len(operands) - start
}
