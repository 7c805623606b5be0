package component

// ComponentDefinition is an immutable, registered component: its raw
// bytes plus decoder-parsed exports/imports/metadata.
type ComponentDefinition struct {
	ID      string
	Bytes   []byte
	Exports []ExportDecl
	Imports []ImportDecl
	Meta    Metadata
}

func (d *ComponentDefinition) export(name string, kind ExportKind) (ExportDecl, bool) {
	for _, e := range d.Exports {
		if e.Name == name && e.Kind == kind {
			return e, true
		}
	}
	return ExportDecl{}, false
}

// CircularDependencyMode governs how the linker's topological sort
// reacts to a cycle in the dependency graph.
type CircularDependencyMode int

const (
	Reject CircularDependencyMode = iota
	Warn
	Allow
)

func (m CircularDependencyMode) String() string {
	switch m {
	case Reject:
		return "reject"
	case Warn:
		return "warn"
	default:
		return "allow"
	}
}

// resolvedImport binds one of a definition's imports to the provider
// component and export that satisfies it.
type resolvedImport struct {
	importDecl ImportDecl
	providerID string
	export     ExportDecl
	hostFunc   HostFunction
}
