package dwarfinfo

// Tag is the recognized DWARF tag set.
type Tag int

const (
	TagUnknown Tag = iota
	TagCompileUnit
	TagBaseType
	TagPointerType
	TagStructureType
	TagUnionType
	TagArrayType
	TagSubrangeType
	TagTypedef
	TagConstType
	TagVolatileType
	TagEnumerationType
	TagEnumerator
	TagMember
	TagSubprogram
	TagLexicalBlock
	TagInlinedSubroutine
	TagVariable
	TagFormalParameter
)

// LocKind discriminates a DIE's DW_AT_location.
type LocKind int

const (
	LocNone LocKind = iota
	LocAddr
	LocConst
	LocFbreg
	LocBreg
	LocReg
	LocCFA
)

// DIE is a single debugging information entry.
type DIE struct {
	Offset uint32
	Parent uint32
	Depth  int
	Tag    Tag

	Name   string
	TypeRef uint32
	HasType bool

	ByteSize    int
	HasByteSize bool

	LowPC  uint32
	HighPC uint32
	// HighPCIsOffset is true when DW_AT_high_pc encodes a length relative
	// to low_pc rather than an absolute address.
	HighPCIsOffset bool

	LocKind   LocKind
	LocReg    int
	LocOffset int64

	DataMemberLocation int64
	HasMemberLocation  bool

	UpperBound int64
	HasUpperBound bool
	Count         int64
	HasCount      bool

	Encoding string

	AbstractOrigin uint32
	HasAbstractOrigin bool

	Children []uint32
}

// rangeContains reports whether pc falls within the DIE's [low,high) range,
// resolving an offset-encoded high_pc.
func (d *DIE) rangeContains(pc uint32) bool {
	high := d.HighPC
	if d.HighPCIsOffset {
		high = d.LowPC + d.HighPC
	}
	return pc >= d.LowPC && pc < high
}

func (d *DIE) rangeSize() uint32 {
	high := d.HighPC
	if d.HighPCIsOffset {
		high = d.LowPC + d.HighPC
	}
	if high <= d.LowPC {
		return 0
	}
	return high - d.LowPC
}

// Symbol is a name/address pair from the symbol table.
type Symbol struct {
	Name string
	Addr uint32
}

// Variable is a global/static distilled from DIEs or STABS.
type Variable struct {
	Name        string
	Addr        uint32
	TypeRef     uint32
	HasTypeRef  bool
	ByteSize    int
	HasByteSize bool
}

// FDERow is one row of an FDE's CFA program result.
type FDERow struct {
	Loc        uint32
	CFAReg     int
	CFAOffset  int64
}

// FDE is Frame Description Entry with a sorted row table.
type FDE struct {
	PCStart, PCEnd     uint32
	DefaultCFAReg      int
	DefaultCFAOffset   int64
	Rows               []FDERow // sorted by Loc
}

// TypeKind enumerates the type-graph node kinds.
type TypeKind int

const (
	TypeBase TypeKind = iota
	TypePointer
	TypeStruct
	TypeArray
	TypeTypedef
	TypeConst
	TypeVolatile
	TypeEnum
	TypeInvalid
)

// Encoding classifies a base type's representation.
type Encoding int

const (
	EncUnknown Encoding = iota
	EncSigned
	EncUnsigned
	EncFloat
	EncBoolean
)

// TypeMember is one field of a TypeStruct node.
type TypeMember struct {
	Name   string
	Offset int64
	Type   uint32 // index into Index.types
}

// Type is a node of the type graph, which may be cyclic via pointer
// targets.
type Type struct {
	Kind       TypeKind
	Name       string
	ByteSize   int
	Encoding   Encoding
	TargetType uint32 // index into Index.types, valid for Pointer/Typedef/Const/Volatile/Array
	HasTarget  bool
	Members    []TypeMember
	ArrayCount int64
}
