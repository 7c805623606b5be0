package component

import (
	"context"

	"github.com/wrtgo/wrtgo/memresource"
)

// ExportKind discriminates the four kinds of entity a component can
// import or export.
type ExportKind int

const (
	KindFunc ExportKind = iota
	KindMemory
	KindTable
	KindGlobal
)

func (k ExportKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindMemory:
		return "memory"
	case KindTable:
		return "table"
	case KindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// ExportDecl is one export a ComponentDefinition advertises. Exactly one
// of FuncType/MemType/TableType/GlobalType is populated, per Kind.
type ExportDecl struct {
	Name       string
	Kind       ExportKind
	FuncType   FuncType
	MemType    MemType
	TableType  TableType
	GlobalType GlobalType
}

// ImportDecl is one import a ComponentDefinition requires. Module is kept
// for diagnostics only; resolution collapses the module
// namespace and matches on Name+Kind+type compatibility alone.
type ImportDecl struct {
	Module     string
	Name       string
	Kind       ExportKind
	FuncType   FuncType
	MemType    MemType
	TableType  TableType
	GlobalType GlobalType
}

// Metadata is decoder-supplied descriptive information about a parsed
// component, carried through unmodified.
type Metadata struct {
	Name            string
	Version         string
	StartFuncName   string // empty if the component has no start function
	StartFuncParams []ValueType
}

// Decoder parses a component's raw bytes into its export/import surface.
// The real binary/text-format decoder is out of scope for this module;
// callers wire a decoder of their own at the host integration boundary. See component/componenttest for an in-memory test double.
type Decoder interface {
	ParseComponent(bytes []byte) (exports []ExportDecl, imports []ImportDecl, meta Metadata, err error)
}

// DataSegmentProvider is re-exported from memresource: ComponentInstance
// threads it straight through to LinearMemory.InitFromSegment for
// memory.init/data.drop, so there is exactly one definition of the
// interface shape.
type DataSegmentProvider = memresource.DataSegmentProvider

// HostFunction is the resolved-import-to-host-callable ABI: a host
// function bound to satisfy a component's func import.
type HostFunction func(ctx context.Context, args []Value) ([]Value, error)
