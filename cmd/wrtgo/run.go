package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wrtgo/wrtgo/component"
	"github.com/wrtgo/wrtgo/wrterr"
)

var runCmd = &cobra.Command{
	Use:   "run MANIFEST",
	Short: "Link a manifest, then call one exported function on one of its instances",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("entry", "", "component.function to call (required)")
	_ = runCmd.MarkFlagRequired("entry")
}

func runRun(cmd *cobra.Command, args []string) error {
	entry, _ := cmd.Flags().GetString("entry")
	componentID, fnName, err := splitEntry(entry)
	if err != nil {
		return err
	}

	cfg, err := loadRuntimeConfig(cmd.Flags())
	if err != nil {
		return err
	}
	manifest, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	linker, err := buildLinker(manifest, cfg)
	if err != nil {
		return err
	}

	ids, err := linker.LinkAll(context.Background(), instantiateConfig(manifest, cfg))
	if err != nil {
		return err
	}

	var target *component.ComponentInstance
	for _, instanceID := range ids {
		inst, err := linker.Instance(instanceID)
		if err != nil {
			return err
		}
		if inst.ComponentID == componentID {
			target = inst
			break
		}
	}
	if target == nil {
		return wrterr.Errorf(wrterr.ComponentNotFound, "no instance of component %q in manifest", componentID)
	}

	results, err := target.CallFunction(context.Background(), fnName, nil, noBodyDispatch)
	if err != nil {
		return err
	}

	fmt.Printf("%s.%s() -> %s\n", componentID, fnName, formatResults(results))
	return nil
}

func splitEntry(entry string) (componentID, fnName string, err error) {
	idx := strings.LastIndex(entry, ".")
	if idx <= 0 || idx == len(entry)-1 {
		return "", "", wrterr.Errorf(wrterr.Validation, "--entry must be of the form component.function, got %q", entry)
	}
	return entry[:idx], entry[idx+1:], nil
}

// noBodyDispatch stands in for calling an export's actual function body:
// this module decodes declarative descriptors, not executable Wasm code
// (out of scope), so invoking an export can only report its signature and
// return zero-valued results of the declared result types.
func noBodyDispatch(ctx context.Context, fn component.ExportDecl, args []component.Value) ([]component.Value, error) {
	results := make([]component.Value, len(fn.FuncType.Results))
	for i, t := range fn.FuncType.Results {
		results[i] = component.Value{Type: t}
	}
	return results, nil
}

func formatResults(results []component.Value) string {
	if len(results) == 0 {
		return "()"
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = formatValue(r)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v component.Value) string {
	switch v.Type {
	case component.I32:
		return fmt.Sprintf("i32:%d", v.I32)
	case component.I64:
		return fmt.Sprintf("i64:%d", v.I64)
	case component.F32:
		return fmt.Sprintf("f32:%v", v.F32)
	case component.F64:
		return fmt.Sprintf("f64:%v", v.F64)
	default:
		return fmt.Sprintf("%s:%d", v.Type, v.Ref)
	}
}
