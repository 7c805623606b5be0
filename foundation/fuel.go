package foundation

// OpCategory groups OpType values for metrics and for the base-cost table,
//.1's closed operation taxonomy.
type OpCategory int

const (
	CategoryMemory OpCategory = iota
	CategoryCollection
	CategoryChecksum
	CategoryControlFlow
	CategoryArithmetic
	CategoryFunctionCall
	CategoryOther
)

func (c OpCategory) String() string {
	switch c {
	case CategoryMemory:
		return "memory"
	case CategoryCollection:
		return "collection"
	case CategoryChecksum:
		return "checksum"
	case CategoryControlFlow:
		return "control-flow"
	case CategoryArithmetic:
		return "arithmetic"
	case CategoryFunctionCall:
		return "function-call"
	default:
		return "other"
	}
}

// OpType is the closed set of billable operations
type OpType int

const (
	MemAlloc OpType = iota
	MemDealloc
	MemRead
	MemWrite
	MemCopy
	MemGrow

	CollCreate
	CollPush
	CollPop
	CollLookup
	CollInsert
	CollRemove
	CollValidate
	CollMutate
	CollClear
	CollTruncate
	CollIterate
	CollRead
	CollWrite
	CollPeek

	ChecksumCalc
	ChecksumFull

	ControlFlow
	Arithmetic
	FunctionCall
	Other

	numOpTypes
)

var opNames = [numOpTypes]string{
	MemAlloc: "mem.alloc", MemDealloc: "mem.dealloc", MemRead: "mem.read",
	MemWrite: "mem.write", MemCopy: "mem.copy", MemGrow: "mem.grow",
	CollCreate: "coll.create", CollPush: "coll.push", CollPop: "coll.pop",
	CollLookup: "coll.lookup", CollInsert: "coll.insert", CollRemove: "coll.remove",
	CollValidate: "coll.validate", CollMutate: "coll.mutate", CollClear: "coll.clear",
	CollTruncate: "coll.truncate", CollIterate: "coll.iterate", CollRead: "coll.read",
	CollWrite: "coll.write", CollPeek: "coll.peek",
	ChecksumCalc: "checksum.calc", ChecksumFull: "checksum.full",
	ControlFlow: "control-flow", Arithmetic: "arithmetic",
	FunctionCall: "function-call", Other: "other",
}

func (o OpType) String() string {
	if o >= 0 && o < numOpTypes {
		return opNames[o]
	}
	return "unknown"
}

// Category reports the OpCategory an OpType belongs to.
func (o OpType) Category() OpCategory {
	switch {
	case o >= MemAlloc && o <= MemGrow:
		return CategoryMemory
	case o >= CollCreate && o <= CollPeek:
		return CategoryCollection
	case o == ChecksumCalc || o == ChecksumFull:
		return CategoryChecksum
	case o == ControlFlow:
		return CategoryControlFlow
	case o == Arithmetic:
		return CategoryArithmetic
	case o == FunctionCall:
		return CategoryFunctionCall
	default:
		return CategoryOther
	}
}

// baseCosts is the closed base-cost table, in fuel units.
var baseCosts = [numOpTypes]uint64{
	MemAlloc: 10, MemDealloc: 8, MemRead: 1, MemWrite: 2, MemCopy: 3, MemGrow: 50,

	CollCreate: 12, CollPush: 5, CollPop: 5, CollLookup: 3, CollInsert: 7,
	CollRemove: 6, CollValidate: 15, CollMutate: 4, CollClear: 10,
	CollTruncate: 8, CollIterate: 1, CollRead: 3, CollWrite: 7, CollPeek: 3,

	ChecksumCalc: 20, ChecksumFull: 100,

	ControlFlow: 1, Arithmetic: 1, FunctionCall: 5, Other: 1,
}

// BaseCost returns the closed-table base fuel cost for op.
func BaseCost(op OpType) uint64 {
	if op >= 0 && op < numOpTypes {
		return baseCosts[op]
	}
	return baseCosts[Other]
}
