package component

import (
	"context"
	"time"

	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/wrterr"
)

// ValidationLevel controls how strictly a start function's side effects
// are judged.
type ValidationLevel int

const (
	ValidationNone ValidationLevel = iota
	ValidationBasic
	ValidationStandard
	ValidationStrict
	ValidationComplete
)

func (v ValidationLevel) String() string {
	switch v {
	case ValidationNone:
		return "None"
	case ValidationBasic:
		return "Basic"
	case ValidationStandard:
		return "Standard"
	case ValidationStrict:
		return "Strict"
	case ValidationComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Severity classifies a SideEffect's impact.
type Severity int

const (
	Info Severity = iota
	Warning
	SeverityError
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case SeverityError:
		return "Error"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// SideEffectKind is the closed set of observable start-function actions.
type SideEffectKind int

const (
	EffectMemoryAllocation SideEffectKind = iota
	EffectResourceCreation
	EffectExternalCall
	EffectStateModification
	EffectIO
	EffectTimeRead
)

// SideEffect is one observed action during a start function's execution,
// with its severity, a human-readable description,
// and the fuel counter value at the moment it occurred.
type SideEffect struct {
	Kind         SideEffectKind
	Severity     Severity
	Description  string
	FuelAtEffect uint64
}

// ValidationReport is the outcome of running a start function under the
// validator, with aggregated timing and memory-delta data.
type ValidationReport struct {
	Passed        bool
	FailureReason string
	SideEffects   []SideEffect
	Results       []Value
	Elapsed       time.Duration
	FuelConsumed  uint64
	MemoryDelta   uint64
}

// StartFunctionValidator runs a component's start function under a
// per-call timeout, collects its side effects, and judges pass/fail
// against a ValidationLevel.
type StartFunctionValidator struct {
	level               ValidationLevel
	timeout             time.Duration
	dependencyAvailable func(name string) bool
}

// NewStartFunctionValidator constructs a validator. dependencyAvailable
// is queried live against the linker's resolved-import table rather than
// assumed to always succeed.
func NewStartFunctionValidator(level ValidationLevel, timeout time.Duration, dependencyAvailable func(name string) bool) *StartFunctionValidator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StartFunctionValidator{level: level, timeout: timeout, dependencyAvailable: dependencyAvailable}
}

// Validate prepares arguments for fnName from params (substituting zero
// values for anything the instance can't supply), drives the instance's
// function under the configured timeout, and judges the collected side
// effects against the validator's level.
func (v *StartFunctionValidator) Validate(ctx context.Context, inst *ComponentInstance, fnName string, params []ValueType) (ValidationReport, error) {
	if v.level == ValidationNone {
		return ValidationReport{Passed: true}, nil
	}

	args := make([]Value, len(params))
	for i, t := range params {
		args[i] = Value{Type: t}
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	fuelBefore := inst.counter.Fuel()

	type callResult struct {
		results []Value
		effects []SideEffect
		err     error
	}
	done := make(chan callResult, 1)
	go func() {
		results, effects, err := v.runTracked(callCtx, inst, fnName, args)
		done <- callResult{results, effects, err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		return ValidationReport{Passed: false, FailureReason: "start function exceeded timeout"}, wrterr.Errorf(wrterr.DeadlineExceeded, "start function %q exceeded %s", fnName, v.timeout)
	}

	report := ValidationReport{
		SideEffects:  res.effects,
		Results:      res.results,
		Elapsed:      time.Since(start),
		FuelConsumed: inst.counter.Fuel() - fuelBefore,
	}

	if res.err != nil {
		report.Passed = false
		report.FailureReason = res.err.Error()
		return report, nil
	}

	report.Passed, report.FailureReason = v.judge(report)
	return report, nil
}

func (v *StartFunctionValidator) runTracked(ctx context.Context, inst *ComponentInstance, fnName string, args []Value) ([]Value, []SideEffect, error) {
	var effects []SideEffect

	for _, binding := range inst.resolved {
		if binding.HostFunc != nil {
			continue
		}
		if !v.dependencyAvailable(binding.Import.Name) {
			effects = append(effects, SideEffect{
				Kind:         EffectExternalCall,
				Severity:     Critical,
				Description:  "required import " + binding.Import.Name + " has no resolved provider",
				FuelAtEffect: inst.counter.Fuel(),
			})
		}
	}

	results, err := inst.CallFunction(ctx, fnName, args, func(ctx context.Context, fn ExportDecl, args []Value) ([]Value, error) {
		inst.counter.Record(foundation.CollCreate, inst.level)
		effects = append(effects, SideEffect{
			Kind:         EffectStateModification,
			Severity:     Info,
			Description:  "start function " + fn.Name + " executed",
			FuelAtEffect: inst.counter.Fuel(),
		})
		// This module decodes declarative descriptors, not executable Wasm
		// code (out of scope), so driving the body can only report zero-
		// valued results of the declared result types.
		results := make([]Value, len(fn.FuncType.Results))
		for i, t := range fn.FuncType.Results {
			results[i] = Value{Type: t}
		}
		return results, nil
	})
	return results, effects, err
}

func (v *StartFunctionValidator) judge(r ValidationReport) (bool, string) {
	var worst Severity = Info
	var worstDesc string
	for _, e := range r.SideEffects {
		if e.Severity > worst {
			worst = e.Severity
			worstDesc = e.Description
		}
	}

	switch v.level {
	case ValidationBasic:
		return true, ""
	case ValidationStandard:
		if worst >= Critical {
			return false, "critical side effect: " + worstDesc
		}
		return true, ""
	case ValidationStrict:
		if worst >= SeverityError {
			return false, "error-or-above side effect: " + worstDesc
		}
		return true, ""
	case ValidationComplete:
		if worst >= Warning {
			return false, "warning-or-above side effect: " + worstDesc
		}
		if len(r.Results) == 0 {
			return false, "no return value produced"
		}
		return true, ""
	default:
		return true, ""
	}
}
