package component_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrtgo/wrtgo/component"
	"github.com/wrtgo/wrtgo/component/componenttest"
	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/wrterr"
)

func addExportDecl() component.ExportDecl {
	return component.ExportDecl{
		Name: "add",
		Kind: component.KindFunc,
		FuncType: component.FuncType{
			Params:  []component.ValueType{component.I32, component.I32},
			Results: []component.ValueType{component.I32},
		},
	}
}

func TestLinkerHappyPath(t *testing.T) {
	counter := foundation.NewCounter()
	linker := component.NewComponentLinker(8, component.Reject, componenttest.FakeDecoder{}, counter)

	aBytes := componenttest.Encode(componenttest.Descriptor{
		Name:    "A",
		Exports: []component.ExportDecl{addExportDecl()},
	})
	bBytes := componenttest.Encode(componenttest.Descriptor{
		Name: "B",
		Imports: []component.ImportDecl{{
			Name: "add", Kind: component.KindFunc,
			FuncType: component.FuncType{Params: []component.ValueType{component.I32, component.I32}, Results: []component.ValueType{component.I32}},
		}},
		Exports: []component.ExportDecl{{
			Name: "main", Kind: component.KindFunc,
			FuncType: component.FuncType{Results: []component.ValueType{component.I32}},
		}},
	})

	require.NoError(t, linker.AddComponent("A", aBytes))
	require.NoError(t, linker.AddComponent("B", bBytes))

	ctx := context.Background()
	ids, err := linker.LinkAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	var bInstance *component.ComponentInstance
	for _, id := range ids {
		inst, err := linker.Instance(id)
		require.NoError(t, err)
		if inst.ComponentID == "B" {
			bInstance = inst
		}
		assert.Equal(t, component.Ready, inst.State())
	}
	require.NotNil(t, bInstance)

	fuelBefore := counter.Fuel()
	results, err := bInstance.CallFunction(ctx, "main", nil, func(ctx context.Context, fn component.ExportDecl, args []component.Value) ([]component.Value, error) {
		counter.Record(foundation.Arithmetic, foundation.Off)
		counter.Record(foundation.Arithmetic, foundation.Off)
		return []component.Value{{Type: component.I32, I32: 5}}, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int32(5), results[0].I32)
	assert.Greater(t, counter.Fuel(), fuelBefore, "function-call plus two arithmetic units must advance fuel")
}

func TestLinkerRejectsCycle(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Reject, componenttest.FakeDecoder{}, nil)

	aBytes := componenttest.Encode(componenttest.Descriptor{
		Name:    "A",
		Imports: []component.ImportDecl{{Name: "fromB", Kind: component.KindFunc}},
		Exports: []component.ExportDecl{{Name: "fromA", Kind: component.KindFunc}},
	})
	bBytes := componenttest.Encode(componenttest.Descriptor{
		Name:    "B",
		Imports: []component.ImportDecl{{Name: "fromA", Kind: component.KindFunc}},
		Exports: []component.ExportDecl{{Name: "fromB", Kind: component.KindFunc}},
	})

	require.NoError(t, linker.AddComponent("A", aBytes))
	require.NoError(t, linker.AddComponent("B", bBytes))

	ctx := context.Background()
	ids, err := linker.LinkAll(ctx, nil)
	require.Error(t, err)
	assert.Empty(t, ids)
	kind, ok := wrterr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, wrterr.CircularDependency, kind)
}

func mutuallyDependentDescriptors() (aBytes, bBytes []byte) {
	aBytes = componenttest.Encode(componenttest.Descriptor{
		Name:    "A",
		Imports: []component.ImportDecl{{Name: "fromB", Kind: component.KindFunc}},
		Exports: []component.ExportDecl{{Name: "fromA", Kind: component.KindFunc}},
	})
	bBytes = componenttest.Encode(componenttest.Descriptor{
		Name:    "B",
		Imports: []component.ImportDecl{{Name: "fromA", Kind: component.KindFunc}},
		Exports: []component.ExportDecl{{Name: "fromB", Kind: component.KindFunc}},
	})
	return aBytes, bBytes
}

func TestLinkerWarnModeContinuesPastCycle(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Warn, componenttest.FakeDecoder{}, nil)
	aBytes, bBytes := mutuallyDependentDescriptors()
	require.NoError(t, linker.AddComponent("A", aBytes))
	require.NoError(t, linker.AddComponent("B", bBytes))

	ids, err := linker.LinkAll(context.Background(), nil)
	require.NoError(t, err, "Warn mode must not abort on a cycle")
	assert.Len(t, ids, 2)
}

func TestLinkerAllowModeContinuesPastCycle(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Allow, componenttest.FakeDecoder{}, nil)
	aBytes, bBytes := mutuallyDependentDescriptors()
	require.NoError(t, linker.AddComponent("A", aBytes))
	require.NoError(t, linker.AddComponent("B", bBytes))

	ids, err := linker.LinkAll(context.Background(), nil)
	require.NoError(t, err, "Allow mode must not abort on a cycle")
	assert.Len(t, ids, 2)
}

func startFuncDescriptor(name string) componenttest.Descriptor {
	return componenttest.Descriptor{
		Name:          name,
		StartFuncName: "init",
		Exports: []component.ExportDecl{{
			Name: "init", Kind: component.KindFunc,
			FuncType: component.FuncType{Results: []component.ValueType{component.I32}},
		}},
	}
}

func TestLinkerRunsStartFunctionValidationAtStandardLevel(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Reject, componenttest.FakeDecoder{}, nil)
	require.NoError(t, linker.AddComponent("S", componenttest.Encode(startFuncDescriptor("S"))))

	id, err := linker.Instantiate(context.Background(), "S", &component.InstantiateConfig{
		MinMemoryPages:  1,
		MemoryBudget:    16 << 20,
		MaxResources:    16,
		StartValidation: component.ValidationStandard,
	})
	require.NoError(t, err)

	inst, err := linker.Instance(id)
	require.NoError(t, err)
	assert.Equal(t, component.Ready, inst.State())
}

func TestLinkerRunsStartFunctionValidationAtCompleteLevel(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Reject, componenttest.FakeDecoder{}, nil)
	require.NoError(t, linker.AddComponent("S", componenttest.Encode(startFuncDescriptor("S"))))

	id, err := linker.Instantiate(context.Background(), "S", &component.InstantiateConfig{
		MinMemoryPages:  1,
		MemoryBudget:    16 << 20,
		MaxResources:    16,
		StartValidation: component.ValidationComplete,
	})
	require.NoError(t, err, "a start function with declared results must not fail Complete validation's return-value check")

	inst, err := linker.Instance(id)
	require.NoError(t, err)
	assert.Equal(t, component.Ready, inst.State())
}

func TestLinkerRejectsTypeMismatch(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Reject, componenttest.FakeDecoder{}, nil)

	aBytes := componenttest.Encode(componenttest.Descriptor{
		Name: "A",
		Exports: []component.ExportDecl{{
			Name: "f", Kind: component.KindFunc,
			FuncType: component.FuncType{Params: []component.ValueType{component.I32}, Results: []component.ValueType{component.I32}},
		}},
	})
	bBytes := componenttest.Encode(componenttest.Descriptor{
		Name: "B",
		Imports: []component.ImportDecl{{
			Name: "f", Kind: component.KindFunc,
			FuncType: component.FuncType{Params: []component.ValueType{component.I32}, Results: []component.ValueType{component.I64}},
		}},
	})

	require.NoError(t, linker.AddComponent("A", aBytes))
	require.NoError(t, linker.AddComponent("B", bBytes))

	ctx := context.Background()
	_, err := linker.Instantiate(ctx, "B", nil)
	require.Error(t, err)
	kind, ok := wrterr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, wrterr.IncompatibleImport, kind)
}

func TestLinkerAddComponentRejectsEmptyBytesAndDuplicateID(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Reject, componenttest.FakeDecoder{}, nil)

	err := linker.AddComponent("A", nil)
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.Validation, kind)

	aBytes := componenttest.Encode(componenttest.Descriptor{Name: "A"})
	require.NoError(t, linker.AddComponent("A", aBytes))
	err = linker.AddComponent("A", aBytes)
	require.Error(t, err)
	kind, _ = wrterr.KindOf(err)
	assert.Equal(t, wrterr.Validation, kind)
}

func TestInstanceTerminateIsIdempotentlyRejected(t *testing.T) {
	linker := component.NewComponentLinker(8, component.Reject, componenttest.FakeDecoder{}, nil)
	aBytes := componenttest.Encode(componenttest.Descriptor{Name: "A"})
	require.NoError(t, linker.AddComponent("A", aBytes))

	ctx := context.Background()
	id, err := linker.Instantiate(ctx, "A", nil)
	require.NoError(t, err)
	inst, err := linker.Instance(id)
	require.NoError(t, err)

	require.NoError(t, inst.Terminate())
	err = inst.Terminate()
	require.Error(t, err)
	kind, _ := wrterr.KindOf(err)
	assert.Equal(t, wrterr.InvalidState, kind)
}
