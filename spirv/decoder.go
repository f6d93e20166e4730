package spirv

import (
	"sort"
)

// DescriptorType classifies a resource binding the way Vulkan does.
type DescriptorType uint8

const (
	DescriptorTypeSampler DescriptorType = iota
	DescriptorTypeCombinedImageSampler
	DescriptorTypeSampledImage
	DescriptorTypeStorageImage
	DescriptorTypeUniformTexelBuffer
	DescriptorTypeStorageTexelBuffer
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer
	DescriptorTypeInputAttachment
	DescriptorTypeAccelerationStructure
)

// String returns a human-readable descriptor type name.
func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeSampler:
		return "Sampler"
	case DescriptorTypeCombinedImageSampler:
		return "CombinedImageSampler"
	case DescriptorTypeSampledImage:
		return "SampledImage"
	case DescriptorTypeStorageImage:
		return "StorageImage"
	case DescriptorTypeUniformTexelBuffer:
		return "UniformTexelBuffer"
	case DescriptorTypeStorageTexelBuffer:
		return "StorageTexelBuffer"
	case DescriptorTypeUniformBuffer:
		return "UniformBuffer"
	case DescriptorTypeStorageBuffer:
		return "StorageBuffer"
	case DescriptorTypeInputAttachment:
		return "InputAttachment"
	case DescriptorTypeAccelerationStructure:
		return "AccelerationStructure"
	default:
		return "Unknown"
	}
}

// IsBuffer reports whether the descriptor is backed by a struct block.
func (t DescriptorType) IsBuffer() bool {
	return t == DescriptorTypeUniformBuffer || t == DescriptorTypeStorageBuffer
}

// ScalarKind is the numeric class of a scalar, vector or matrix component.
type ScalarKind uint8

const (
	ScalarBool ScalarKind = iota
	ScalarInt
	ScalarFloat
)

// Numeric describes a scalar, vector or matrix block member.
type Numeric struct {
	Kind   ScalarKind
	Width  uint32 // bits
	Signed bool

	// Components is the vector width, or the column height of a matrix.
	Components uint32

	// Columns and Rows are zero unless the member is a matrix.
	Columns      uint32
	Rows         uint32
	MatrixStride uint32
	RowMajor     bool
}

// IsMatrix reports whether n describes a matrix.
func (n Numeric) IsMatrix() bool {
	return n.Columns > 0
}

// ArrayTraits describes the array dimensions wrapping a member or binding.
type ArrayTraits struct {
	// Dims lists dimensions outermost first; 0 marks a runtime-sized one.
	Dims []uint32
	// Strides is the byte stride of each dimension (block members only).
	Strides []uint32
}

// IsArray reports whether any dimension is present.
func (a ArrayTraits) IsArray() bool {
	return len(a.Dims) > 0
}

// Unbounded reports whether any dimension is runtime-sized.
func (a ArrayTraits) Unbounded() bool {
	for _, d := range a.Dims {
		if d == 0 {
			return true
		}
	}
	return false
}

// ImageTraits mirrors the operands of OpTypeImage.
type ImageTraits struct {
	Dim           Dim
	Depth         uint32
	Arrayed       bool
	Multisampled  bool
	Sampled       uint32 // 1 sampled, 2 storage
	Format        uint32
	SampledKind   ScalarKind
	SampledSigned bool
}

// BlockVariable is a struct block or one of its members.
type BlockVariable struct {
	Name     string
	TypeName string

	// Offset is relative to the containing struct. For push-constant
	// blocks it is the first byte the block occupies.
	Offset     uint32
	Size       uint32
	PaddedSize uint32

	Numeric Numeric
	Array   ArrayTraits
	Struct  bool
	Members []BlockVariable
}

// DescriptorBinding is a resource variable decorated with a set and binding.
type DescriptorBinding struct {
	Name        string
	TypeName    string
	Set         uint32
	Binding     uint32
	Type        DescriptorType
	Array       ArrayTraits
	Image       ImageTraits
	NonWritable bool

	// Block is set for uniform and storage buffers.
	Block *BlockVariable
}

// EntryPoint is an OpEntryPoint declaration.
type EntryPoint struct {
	Name     string
	Model    ExecutionModel
	Function uint32
}

// Module holds the reflection facts of one SPIR-V binary.
type Module struct {
	Header        Header
	EntryPoints   []EntryPoint
	Bindings      []DescriptorBinding
	PushConstants []BlockVariable
}

// maxTypeDepth bounds struct and array nesting.
const maxTypeDepth = 64

type decoration struct {
	set, binding       uint32
	hasSet, hasBinding bool
	block, bufferBlock bool
	nonWritable        bool
	arrayStride        uint32
}

type memberDecoration struct {
	offset       uint32
	matrixStride uint32
	rowMajor     bool
	nonWritable  bool
}

type decoder struct {
	names       map[uint32]string
	memberNames map[uint32]map[uint32]string
	decorations map[uint32]*decoration
	members     map[uint32]map[uint32]*memberDecoration
	types       map[uint32]Instruction
	constants   map[uint32]uint32
	variables   []Instruction
	entryPoints []EntryPoint
}

// Decode reads a SPIR-V module and extracts its resource interface:
// entry points, descriptor bindings and push-constant blocks.
func Decode(words []uint32) (*Module, error) {
	header, instructions, err := ReadInstructions(words)
	if err != nil {
		return nil, err
	}

	d := &decoder{
		names:       make(map[uint32]string),
		memberNames: make(map[uint32]map[uint32]string),
		decorations: make(map[uint32]*decoration),
		members:     make(map[uint32]map[uint32]*memberDecoration),
		types:       make(map[uint32]Instruction),
		constants:   make(map[uint32]uint32),
	}
	for _, inst := range instructions {
		if err := d.collect(inst); err != nil {
			return nil, err
		}
	}

	module := &Module{Header: header, EntryPoints: d.entryPoints}
	for _, v := range d.variables {
		pointerType, id, storage := v.Words[0], v.Words[1], StorageClass(v.Words[2])
		switch storage {
		case StorageClassUniformConstant, StorageClassUniform, StorageClassStorageBuffer:
			dec := d.decorations[id]
			if dec == nil || !dec.hasBinding {
				continue
			}
			binding, err := d.binding(id, pointerType, storage, dec)
			if err != nil {
				return nil, err
			}
			module.Bindings = append(module.Bindings, binding)
		case StorageClassPushConstant:
			block, err := d.pushConstant(id, pointerType)
			if err != nil {
				return nil, err
			}
			module.PushConstants = append(module.PushConstants, block)
		}
	}
	return module, nil
}

func requireOperands(inst Instruction, n int) error {
	if len(inst.Words) < n {
		return decodeErrorf(-1, "%s: expected at least %d operands, got %d", inst.Opcode, n, len(inst.Words))
	}
	return nil
}

func (d *decoder) decoration(id uint32) *decoration {
	dec, ok := d.decorations[id]
	if !ok {
		dec = &decoration{}
		d.decorations[id] = dec
	}
	return dec
}

func (d *decoder) memberDecoration(id, member uint32) *memberDecoration {
	byMember, ok := d.members[id]
	if !ok {
		byMember = make(map[uint32]*memberDecoration)
		d.members[id] = byMember
	}
	md, ok := byMember[member]
	if !ok {
		md = &memberDecoration{}
		byMember[member] = md
	}
	return md
}

//nolint:gocyclo,cyclop // one case per opcode
func (d *decoder) collect(inst Instruction) error {
	ops := inst.Words
	switch inst.Opcode {
	case OpEntryPoint:
		if err := requireOperands(inst, 3); err != nil {
			return err
		}
		name, _ := readString(ops, 2)
		d.entryPoints = append(d.entryPoints, EntryPoint{Name: name, Model: ExecutionModel(ops[0]), Function: ops[1]})

	case OpName:
		if err := requireOperands(inst, 2); err != nil {
			return err
		}
		d.names[ops[0]], _ = readString(ops, 1)

	case OpMemberName:
		if err := requireOperands(inst, 3); err != nil {
			return err
		}
		byMember, ok := d.memberNames[ops[0]]
		if !ok {
			byMember = make(map[uint32]string)
			d.memberNames[ops[0]] = byMember
		}
		byMember[ops[1]], _ = readString(ops, 2)

	case OpDecorate:
		if err := requireOperands(inst, 2); err != nil {
			return err
		}
		return d.decorate(ops)

	case OpMemberDecorate:
		if err := requireOperands(inst, 3); err != nil {
			return err
		}
		return d.decorateMember(ops)

	case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeMatrix,
		OpTypeImage, OpTypeSampler, OpTypeSampledImage, OpTypeArray, OpTypeRuntimeArray,
		OpTypeStruct, OpTypePointer, OpTypeFunction, OpTypeAccelerationStructure:
		if err := requireOperands(inst, 1); err != nil {
			return err
		}
		d.types[ops[0]] = inst

	case OpConstant, OpSpecConstant:
		if err := requireOperands(inst, 3); err != nil {
			return err
		}
		d.constants[ops[1]] = ops[2]

	case OpVariable:
		if err := requireOperands(inst, 3); err != nil {
			return err
		}
		if StorageClass(ops[2]) != StorageClassFunction {
			d.variables = append(d.variables, inst)
		}
	}
	return nil
}

func (d *decoder) decorate(ops []uint32) error {
	param := func() (uint32, error) {
		if len(ops) < 3 {
			return 0, decodeErrorf(-1, "OpDecorate %s on %%%d: missing operand", Decoration(ops[1]), ops[0])
		}
		return ops[2], nil
	}

	dec := d.decoration(ops[0])
	var err error
	switch Decoration(ops[1]) {
	case DecorationDescriptorSet:
		dec.set, err = param()
		dec.hasSet = true
	case DecorationBinding:
		dec.binding, err = param()
		dec.hasBinding = true
	case DecorationBlock:
		dec.block = true
	case DecorationBufferBlock:
		dec.bufferBlock = true
	case DecorationNonWritable:
		dec.nonWritable = true
	case DecorationArrayStride:
		dec.arrayStride, err = param()
	}
	return err
}

func (d *decoder) decorateMember(ops []uint32) error {
	param := func() (uint32, error) {
		if len(ops) < 4 {
			return 0, decodeErrorf(-1, "OpMemberDecorate %s on %%%d member %d: missing operand", Decoration(ops[2]), ops[0], ops[1])
		}
		return ops[3], nil
	}

	var err error
	switch Decoration(ops[2]) {
	case DecorationOffset:
		d.memberDecoration(ops[0], ops[1]).offset, err = param()
	case DecorationMatrixStride:
		d.memberDecoration(ops[0], ops[1]).matrixStride, err = param()
	case DecorationRowMajor:
		d.memberDecoration(ops[0], ops[1]).rowMajor = true
	case DecorationColMajor:
		d.memberDecoration(ops[0], ops[1]).rowMajor = false
	case DecorationNonWritable:
		d.memberDecoration(ops[0], ops[1]).nonWritable = true
	}
	return err
}

func (d *decoder) typeOf(id uint32) (Instruction, error) {
	t, ok := d.types[id]
	if !ok {
		return Instruction{}, decodeErrorf(-1, "unknown type %%%d", id)
	}
	return t, nil
}

func (d *decoder) pointee(pointerType uint32) (Instruction, error) {
	ptr, err := d.typeOf(pointerType)
	if err != nil {
		return Instruction{}, err
	}
	if ptr.Opcode != OpTypePointer || len(ptr.Words) < 3 {
		return Instruction{}, decodeErrorf(-1, "type %%%d is not a pointer", pointerType)
	}
	return d.typeOf(ptr.Words[2])
}

func (d *decoder) arrayLength(t Instruction) (uint32, error) {
	if t.Opcode == OpTypeRuntimeArray {
		return 0, nil
	}
	if len(t.Words) < 3 {
		return 0, decodeErrorf(-1, "array type %%%d has no length", t.Words[0])
	}
	n, ok := d.constants[t.Words[2]]
	if !ok || n == 0 {
		return 0, decodeErrorf(-1, "array type %%%d: length %%%d is not a positive constant", t.Words[0], t.Words[2])
	}
	return n, nil
}

// unwrapArrays strips array types from t, recording dimensions and
// ArrayStride decorations, and returns the element type.
func (d *decoder) unwrapArrays(t Instruction, traits *ArrayTraits) (Instruction, error) {
	for depth := 0; t.Opcode == OpTypeArray || t.Opcode == OpTypeRuntimeArray; depth++ {
		if depth > maxTypeDepth || len(t.Words) < 2 {
			return Instruction{}, decodeErrorf(-1, "malformed array type %%%d", t.Words[0])
		}
		n, err := d.arrayLength(t)
		if err != nil {
			return Instruction{}, err
		}
		var stride uint32
		if dec := d.decorations[t.Words[0]]; dec != nil {
			stride = dec.arrayStride
		}
		traits.Dims = append(traits.Dims, n)
		traits.Strides = append(traits.Strides, stride)
		if t, err = d.typeOf(t.Words[1]); err != nil {
			return Instruction{}, err
		}
	}
	return t, nil
}

func (d *decoder) binding(id, pointerType uint32, storage StorageClass, dec *decoration) (DescriptorBinding, error) {
	t, err := d.pointee(pointerType)
	if err != nil {
		return DescriptorBinding{}, err
	}

	b := DescriptorBinding{
		Name:        d.names[id],
		Set:         dec.set,
		Binding:     dec.binding,
		NonWritable: dec.nonWritable,
	}
	if t, err = d.unwrapArrays(t, &b.Array); err != nil {
		return DescriptorBinding{}, err
	}
	b.Array.Strides = nil
	b.TypeName = d.names[t.Words[0]]

	switch t.Opcode {
	case OpTypeSampler:
		b.Type = DescriptorTypeSampler

	case OpTypeSampledImage:
		if err := requireOperands(t, 2); err != nil {
			return DescriptorBinding{}, err
		}
		img, err := d.typeOf(t.Words[1])
		if err != nil {
			return DescriptorBinding{}, err
		}
		if b.Image, err = d.imageTraits(img); err != nil {
			return DescriptorBinding{}, err
		}
		b.Type = DescriptorTypeCombinedImageSampler

	case OpTypeImage:
		if b.Image, err = d.imageTraits(t); err != nil {
			return DescriptorBinding{}, err
		}
		switch {
		case b.Image.Dim == DimBuffer && b.Image.Sampled == 2:
			b.Type = DescriptorTypeStorageTexelBuffer
		case b.Image.Dim == DimBuffer:
			b.Type = DescriptorTypeUniformTexelBuffer
		case b.Image.Dim == DimSubpassData:
			b.Type = DescriptorTypeInputAttachment
		case b.Image.Sampled == 2:
			b.Type = DescriptorTypeStorageImage
		default:
			b.Type = DescriptorTypeSampledImage
		}

	case OpTypeAccelerationStructure:
		b.Type = DescriptorTypeAccelerationStructure

	case OpTypeStruct:
		sd := d.decorations[t.Words[0]]
		if storage == StorageClassStorageBuffer || (sd != nil && sd.bufferBlock) {
			b.Type = DescriptorTypeStorageBuffer
		} else {
			b.Type = DescriptorTypeUniformBuffer
		}
		block, err := d.structVariable(t, 0)
		if err != nil {
			return DescriptorBinding{}, err
		}
		block.PaddedSize = alignUp(block.Size, 16)
		assignPadding(&block, block.PaddedSize)
		b.Block = &block
		b.NonWritable = b.NonWritable || d.membersNonWritable(t)

	default:
		return DescriptorBinding{}, decodeErrorf(-1, "variable %%%d: unsupported resource type %s", id, t.Opcode)
	}

	if b.Name == "" {
		b.Name = b.TypeName
	}
	if b.Block != nil {
		b.Block.Name = b.Name
	}
	return b, nil
}

// membersNonWritable reports whether every member of struct t carries
// NonWritable, which is how glslang marks readonly buffers.
func (d *decoder) membersNonWritable(t Instruction) bool {
	n := len(t.Words) - 1
	if n <= 0 {
		return false
	}
	byMember := d.members[t.Words[0]]
	for i := range n {
		md := byMember[uint32(i)]
		if md == nil || !md.nonWritable {
			return false
		}
	}
	return true
}

func (d *decoder) imageTraits(img Instruction) (ImageTraits, error) {
	if img.Opcode != OpTypeImage || len(img.Words) < 8 {
		return ImageTraits{}, decodeErrorf(-1, "type %%%d is not a well-formed image", img.Words[0])
	}
	traits := ImageTraits{
		Dim:           Dim(img.Words[2]),
		Depth:         img.Words[3],
		Arrayed:       img.Words[4] != 0,
		Multisampled:  img.Words[5] != 0,
		Sampled:       img.Words[6],
		Format:        img.Words[7],
		SampledKind:   ScalarFloat,
		SampledSigned: true,
	}
	if sampled, ok := d.types[img.Words[1]]; ok {
		switch sampled.Opcode {
		case OpTypeInt:
			traits.SampledKind = ScalarInt
			traits.SampledSigned = len(sampled.Words) > 2 && sampled.Words[2] == 1
		case OpTypeBool:
			traits.SampledKind = ScalarBool
		}
	}
	return traits, nil
}

func (d *decoder) pushConstant(id, pointerType uint32) (BlockVariable, error) {
	t, err := d.pointee(pointerType)
	if err != nil {
		return BlockVariable{}, err
	}
	if t.Opcode != OpTypeStruct {
		return BlockVariable{}, decodeErrorf(-1, "push constant %%%d is not a struct", id)
	}
	block, err := d.structVariable(t, 0)
	if err != nil {
		return BlockVariable{}, err
	}
	assignPadding(&block, block.Size)

	block.Name = d.names[id]
	if block.Name == "" {
		block.Name = block.TypeName
	}
	if len(block.Members) > 0 {
		first := block.Members[0].Offset
		for _, m := range block.Members[1:] {
			first = min(first, m.Offset)
		}
		block.Offset = first
		block.Size -= first
	}
	return block, nil
}

func (d *decoder) structVariable(t Instruction, depth int) (BlockVariable, error) {
	if depth > maxTypeDepth {
		return BlockVariable{}, decodeErrorf(-1, "struct %%%d nests too deeply", t.Words[0])
	}
	structID := t.Words[0]
	v := BlockVariable{TypeName: d.names[structID], Struct: true}
	for i, memberType := range t.Words[1:] {
		var md memberDecoration
		if p := d.members[structID][uint32(i)]; p != nil {
			md = *p
		}
		m, err := d.member(memberType, md, depth+1)
		if err != nil {
			return BlockVariable{}, err
		}
		m.Name = d.memberNames[structID][uint32(i)]
		v.Members = append(v.Members, m)
		v.Size = max(v.Size, m.Offset+m.Size)
	}
	return v, nil
}

func (d *decoder) member(typeID uint32, md memberDecoration, depth int) (BlockVariable, error) {
	m := BlockVariable{Offset: md.offset}
	t, err := d.typeOf(typeID)
	if err != nil {
		return BlockVariable{}, err
	}
	if t, err = d.unwrapArrays(t, &m.Array); err != nil {
		return BlockVariable{}, err
	}

	var elemSize uint32
	switch t.Opcode {
	case OpTypeStruct:
		s, err := d.structVariable(t, depth)
		if err != nil {
			return BlockVariable{}, err
		}
		m.Struct = true
		m.TypeName = s.TypeName
		m.Members = s.Members
		elemSize = s.Size
	case OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeMatrix:
		if err := d.numeric(t, &m.Numeric); err != nil {
			return BlockVariable{}, err
		}
		m.TypeName = d.names[t.Words[0]]
		m.Numeric.MatrixStride = md.matrixStride
		m.Numeric.RowMajor = md.rowMajor
		elemSize = numericSize(m.Numeric)
	default:
		return BlockVariable{}, decodeErrorf(-1, "unsupported block member type %s (%%%d)", t.Opcode, t.Words[0])
	}

	m.Size = arraySize(&m.Array, elemSize)
	return m, nil
}

func (d *decoder) numeric(t Instruction, n *Numeric) error {
	switch t.Opcode {
	case OpTypeBool:
		n.Kind, n.Width, n.Components = ScalarBool, 32, 1
	case OpTypeInt:
		if err := requireOperands(t, 3); err != nil {
			return err
		}
		n.Kind, n.Width, n.Signed, n.Components = ScalarInt, t.Words[1], t.Words[2] == 1, 1
	case OpTypeFloat:
		if err := requireOperands(t, 2); err != nil {
			return err
		}
		n.Kind, n.Width, n.Signed, n.Components = ScalarFloat, t.Words[1], true, 1
	case OpTypeVector:
		if err := requireOperands(t, 3); err != nil {
			return err
		}
		component, err := d.typeOf(t.Words[1])
		if err != nil {
			return err
		}
		if err := d.numeric(component, n); err != nil {
			return err
		}
		if n.Components != 1 || n.Columns != 0 {
			return decodeErrorf(-1, "vector %%%d has a non-scalar component", t.Words[0])
		}
		n.Components = t.Words[2]
	case OpTypeMatrix:
		if err := requireOperands(t, 3); err != nil {
			return err
		}
		column, err := d.typeOf(t.Words[1])
		if err != nil {
			return err
		}
		if column.Opcode != OpTypeVector {
			return decodeErrorf(-1, "matrix %%%d column is not a vector", t.Words[0])
		}
		if err := d.numeric(column, n); err != nil {
			return err
		}
		n.Columns, n.Rows = t.Words[2], n.Components
	default:
		return decodeErrorf(-1, "type %s is not numeric", t.Opcode)
	}
	if n.Width == 0 || n.Width%8 != 0 {
		return decodeErrorf(-1, "type %%%d has unsupported width %d", t.Words[0], n.Width)
	}
	return nil
}

func numericSize(n Numeric) uint32 {
	scalar := n.Width / 8
	if !n.IsMatrix() {
		return n.Components * scalar
	}
	major, minor := n.Columns, n.Rows
	if n.RowMajor {
		major, minor = n.Rows, n.Columns
	}
	stride := n.MatrixStride
	if stride == 0 {
		stride = minor * scalar
	}
	return stride * major
}

// arraySize fills in missing strides and returns the byte size of the
// whole member; runtime-sized arrays report 0.
func arraySize(a *ArrayTraits, elemSize uint32) uint32 {
	if len(a.Dims) == 0 {
		return elemSize
	}
	inner := elemSize
	for i := len(a.Dims) - 1; i >= 0; i-- {
		if a.Strides[i] == 0 {
			a.Strides[i] = inner
		}
		inner = a.Strides[i] * a.Dims[i]
	}
	if a.Unbounded() {
		return 0
	}
	return a.Strides[0] * a.Dims[0]
}

// assignPadding distributes padded sizes: each member extends to the next
// member's offset and the last one to the end of its parent.
func assignPadding(v *BlockVariable, padded uint32) {
	v.PaddedSize = padded
	if !v.Struct || len(v.Members) == 0 {
		return
	}
	extent := padded
	if n := len(v.Array.Strides); n > 0 {
		extent = v.Array.Strides[n-1]
	}

	order := make([]int, len(v.Members))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return v.Members[order[a]].Offset < v.Members[order[b]].Offset
	})
	for k, i := range order {
		next := extent
		if k+1 < len(order) {
			next = v.Members[order[k+1]].Offset
		}
		var p uint32
		if next > v.Members[i].Offset {
			p = next - v.Members[i].Offset
		}
		assignPadding(&v.Members[i], p)
	}
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}
