package component

// ValueType is the closed set of value types this linker reasons about
// for import/export compatibility.
type ValueType int

const (
	I32 ValueType = iota
	I64
	F32
	F64
	FuncRef
	ExternRef
)

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// Value is a single runtime value of one of the ValueType kinds, used at
// the host-function ABI boundary and for start-function arguments.
type Value struct {
	Type ValueType
	I32  int32
	I64  int64
	F32  float32
	F64  float64
	Ref  uint32 // funcref/externref handle, 0 = null
}

// FuncType is a function signature: ordered parameter and result value
// types.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Equal reports whether two FuncTypes are interchangeable: parameter and
// result lists must match element-wise on value-type identity.
func (f FuncType) Equal(other FuncType) bool {
	if len(f.Params) != len(other.Params) || len(f.Results) != len(other.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// MemType describes an imported or exported linear memory's shape.
type MemType struct {
	Min    uint32
	Max    *uint32
	Shared bool
}

// CompatibleWithImport reports whether this exported memory can satisfy
// an import declaring want: the importer may not ask for a larger
// minimum than the exporter guarantees, and an importer-declared max
// requires the exporter to declare one at least as tight.
func (exported MemType) CompatibleWithImport(want MemType) bool {
	if want.Min > exported.Min {
		return false
	}
	if want.Max != nil {
		if exported.Max == nil || *exported.Max > *want.Max {
			return false
		}
	}
	return true
}

// TableType describes an imported or exported table's shape.
type TableType struct {
	ElemType ValueType
	Min      uint32
	Max      *uint32
}

// CompatibleWithImport applies the same min/max rule as MemType, plus
// element-type identity.
func (exported TableType) CompatibleWithImport(want TableType) bool {
	if exported.ElemType != want.ElemType {
		return false
	}
	if want.Min > exported.Min {
		return false
	}
	if want.Max != nil {
		if exported.Max == nil || *exported.Max > *want.Max {
			return false
		}
	}
	return true
}

// GlobalType describes an imported or exported global's shape.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// CompatibleWithImport requires identical value type and mutability.
func (exported GlobalType) CompatibleWithImport(want GlobalType) bool {
	return exported.ValType == want.ValType && exported.Mutable == want.Mutable
}
