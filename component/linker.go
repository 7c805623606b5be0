package component

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/internal/obs"
	"github.com/wrtgo/wrtgo/memresource"
	"github.com/wrtgo/wrtgo/wrterr"
)

// InstantiateConfig carries per-instance resource limits and host
// bindings used at Instantiate time.
type InstantiateConfig struct {
	MinMemoryPages  uint32
	MaxMemoryPages  *uint32
	MemoryBudget    uint64
	MaxResources    int
	Level           foundation.VerificationLevel
	HostFunctions   map[string]HostFunction // name -> host-satisfied import
	StartValidation ValidationLevel
	StartTimeout    time.Duration
}

// ComponentLinker registers components, builds their dependency graph,
// resolves imports to exports, and drives instantiation in topological
// order.
type ComponentLinker struct {
	mu sync.Mutex

	maxComponents int
	cycleMode     CircularDependencyMode
	decoder       Decoder

	components        map[string]*ComponentDefinition
	registrationOrder []string
	graph             *LinkGraph

	instances      map[uint32]*ComponentInstance
	nextInstanceID uint32

	counter *foundation.Counter
	logger  zerolog.Logger
}

// NewComponentLinker constructs a linker bounded to maxComponents
// registered definitions, using decoder to parse added component bytes.
func NewComponentLinker(maxComponents int, cycleMode CircularDependencyMode, decoder Decoder, counter *foundation.Counter) *ComponentLinker {
	if counter == nil {
		counter = foundation.NewCounter()
	}
	return &ComponentLinker{
		maxComponents: maxComponents,
		cycleMode:     cycleMode,
		decoder:       decoder,
		components:    make(map[string]*ComponentDefinition),
		graph:         newLinkGraph(),
		instances:     make(map[uint32]*ComponentInstance),
		counter:       counter,
		logger:        obs.WithComponent("linker"),
	}
}

// AddComponent registers a component's raw bytes under id, parsing its
// exports/imports via the linker's decoder.
func (l *ComponentLinker) AddComponent(id string, bytes []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(bytes) == 0 {
		return wrterr.New(wrterr.Validation, "component bytes must not be empty")
	}
	if _, exists := l.components[id]; exists {
		return wrterr.Errorf(wrterr.Validation, "component %q already registered", id)
	}
	if len(l.components) >= l.maxComponents {
		return wrterr.Errorf(wrterr.ResourceExhausted, "linker at max_components=%d", l.maxComponents)
	}

	exports, imports, meta, err := l.decoder.ParseComponent(bytes)
	if err != nil {
		return wrterr.Errorf(wrterr.Parse, "decode component %q: %v", id, err)
	}

	l.components[id] = &ComponentDefinition{
		ID:      id,
		Bytes:   bytes,
		Exports: exports,
		Imports: imports,
		Meta:    meta,
	}
	l.registrationOrder = append(l.registrationOrder, id)
	l.graph.addNode(id)
	l.rebuildGraphEdges()
	l.counter.Record(foundation.CollCreate, foundation.Standard)
	l.logger.Debug().Str("component_id", id).Int("exports", len(exports)).Int("imports", len(imports)).Msg("component registered")
	return nil
}

// rebuildGraphEdges recomputes provider->dependent edges from the
// current registry, purely for topological-ordering purposes: it mirrors
// the flat first-registered-wins scan resolveImport performs at
// Instantiate time, but ignores host-function bindings and config, since
// those never affect inter-component ordering. Must be called with mu
// held.
func (l *ComponentLinker) rebuildGraphEdges() {
	l.graph.edges = make(map[string][]string)
	for _, importerID := range l.registrationOrder {
		def := l.components[importerID]
		for _, imp := range def.Imports {
			for _, candidateID := range l.registrationOrder {
				if candidateID == importerID {
					continue
				}
				export, ok := l.components[candidateID].export(imp.Name, imp.Kind)
				if ok && compatible(imp, export) {
					l.graph.addEdge(candidateID, importerID)
					break
				}
			}
		}
	}
}

// RemoveComponent unregisters id, failing if any instance still
// references it.
func (l *ComponentLinker) RemoveComponent(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.components[id]; !ok {
		return wrterr.Errorf(wrterr.ComponentNotFound, "no such component %q", id)
	}
	for _, inst := range l.instances {
		if inst.ComponentID == id {
			return wrterr.Errorf(wrterr.Validation, "component %q still has live instance %d", id, inst.ID)
		}
	}
	delete(l.components, id)
	l.graph.removeNode(id)
	for i, rid := range l.registrationOrder {
		if rid == id {
			l.registrationOrder = append(l.registrationOrder[:i], l.registrationOrder[i+1:]...)
			break
		}
	}
	l.rebuildGraphEdges()
	return nil
}

// resolveImport is a flat, first-registered-wins scan: the module
// namespace is collapsed, and ties are broken by registration order.
func (l *ComponentLinker) resolveImport(importerID string, imp ImportDecl, cfg *InstantiateConfig) (resolvedImport, error) {
	if cfg != nil {
		if hf, ok := cfg.HostFunctions[imp.Name]; ok && imp.Kind == KindFunc {
			return resolvedImport{importDecl: imp, providerID: "", export: ExportDecl{Name: imp.Name, Kind: KindFunc, FuncType: imp.FuncType}, hostFunc: hf}, nil
		}
	}

	for _, candidateID := range l.registrationOrder {
		if candidateID == importerID {
			continue
		}
		def := l.components[candidateID]
		export, ok := def.export(imp.Name, imp.Kind)
		if !ok {
			continue
		}
		if !compatible(imp, export) {
			continue
		}
		return resolvedImport{importDecl: imp, providerID: candidateID, export: export}, nil
	}
	return resolvedImport{}, wrterr.Errorf(wrterr.IncompatibleImport, "no compatible provider for import %q", imp.Name)
}

func compatible(imp ImportDecl, export ExportDecl) bool {
	switch imp.Kind {
	case KindFunc:
		return imp.FuncType.Equal(export.FuncType)
	case KindMemory:
		return export.MemType.CompatibleWithImport(imp.MemType)
	case KindTable:
		return export.TableType.CompatibleWithImport(imp.TableType)
	case KindGlobal:
		return export.GlobalType.CompatibleWithImport(imp.GlobalType)
	default:
		return false
	}
}

// Instantiate resolves every import of component id, creates and
// initializes a ComponentInstance, and transitions it to Ready.
func (l *ComponentLinker) Instantiate(ctx context.Context, id string, cfg *InstantiateConfig) (uint32, error) {
	l.mu.Lock()
	def, ok := l.components[id]
	if !ok {
		l.mu.Unlock()
		return 0, wrterr.Errorf(wrterr.ComponentNotFound, "no such component %q", id)
	}
	if cfg == nil {
		cfg = &InstantiateConfig{MinMemoryPages: 1, MemoryBudget: 16 << 20, MaxResources: 1024}
	}

	var resolved []ResolvedImportBinding
	for _, imp := range def.Imports {
		r, err := l.resolveImport(id, imp, cfg)
		if err != nil {
			l.mu.Unlock()
			return 0, err
		}
		binding := ResolvedImportBinding{
			Import:             r.importDecl,
			ProviderExportName: r.export.Name,
			HostFunc:           r.hostFunc,
		}
		if r.providerID != "" {
			for _, providerInst := range l.instances {
				if providerInst.ComponentID == r.providerID {
					binding.ProviderInstanceID = providerInst.ID
					break
				}
			}
		}
		resolved = append(resolved, binding)
	}

	l.nextInstanceID++
	instanceID := l.nextInstanceID
	l.mu.Unlock()

	provider := foundation.NewMemoryProvider(cfg.MemoryBudget, cfg.Level, id, l.counter)
	mem, err := memresource.NewLinearMemory(cfg.MinMemoryPages, cfg.MaxMemoryPages, false, provider)
	if err != nil {
		return 0, err
	}
	inst := &ComponentInstance{
		ID:          instanceID,
		ComponentID: id,
		def:         def,
		state:       Instantiating,
		resolved:    resolved,
		memories:    memresource.NewMemorySet(mem),
		resources:   memresource.NewResourceTable(cfg.MaxResources, cfg.Level, l.counter, nil),
		provider:    provider,
		counter:     l.counter,
		level:       cfg.Level,
	}
	obs.LinkerInstancesTotal.WithLabelValues(inst.state.String()).Inc()

	// The start function is driven through CallFunction, which requires
	// Ready; the instance is not yet reachable through Instance() here.
	inst.transition(Ready)
	if err := l.runStartFunction(ctx, inst, cfg); err != nil {
		inst.transition(Failed)
		inst.failureMsg = err.Error()
		l.mu.Lock()
		l.instances[instanceID] = inst
		l.mu.Unlock()
		return instanceID, err
	}

	inst.transition(Ready)
	l.mu.Lock()
	l.instances[instanceID] = inst
	l.mu.Unlock()
	l.logger.Info().Str("component_id", id).Uint32("instance_id", instanceID).Msg("instance ready")
	return instanceID, nil
}

func (l *ComponentLinker) runStartFunction(ctx context.Context, inst *ComponentInstance, cfg *InstantiateConfig) error {
	if inst.def.Meta.StartFuncName == "" {
		return nil
	}
	v := NewStartFunctionValidator(cfg.StartValidation, cfg.StartTimeout, l.dependencyAvailable(inst))
	report, err := v.Validate(ctx, inst, inst.def.Meta.StartFuncName, inst.def.Meta.StartFuncParams)
	if err != nil {
		return err
	}
	if !report.Passed {
		return wrterr.Errorf(wrterr.Validation, "start function %q failed validation: %s", inst.def.Meta.StartFuncName, report.FailureReason)
	}
	return nil
}

// dependencyAvailable resolves Open Question 2: instead of a
// hard-coded-success stub, it queries this instance's actually resolved
// import bindings.
func (l *ComponentLinker) dependencyAvailable(inst *ComponentInstance) func(name string) bool {
	return func(name string) bool {
		for _, r := range inst.resolved {
			if r.Import.Name == name {
				return true
			}
		}
		return false
	}
}

// Instance returns the instance registered under id.
func (l *ComponentLinker) Instance(id uint32) (*ComponentInstance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	inst, ok := l.instances[id]
	if !ok {
		return nil, wrterr.Errorf(wrterr.InstanceNotFound, "no such instance %d", id)
	}
	return inst, nil
}

// LinkAll instantiates every registered component in topological
// (dependency-first) order.
func (l *ComponentLinker) LinkAll(ctx context.Context, cfg *InstantiateConfig) ([]uint32, error) {
	l.mu.Lock()
	order, warnings, err := l.graph.topoSort(l.cycleMode)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		l.logger.Warn().Msg(w)
	}

	ids := make([]uint32, 0, len(order))
	for _, componentID := range order {
		instanceID, err := l.Instantiate(ctx, componentID, cfg)
		if err != nil {
			return ids, err
		}
		ids = append(ids, instanceID)
	}
	return ids, nil
}
