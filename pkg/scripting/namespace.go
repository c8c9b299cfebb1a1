package scripting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja"

	"github.com/voss/swarmtool/pkg/toolstore"
)

// Namespace is one immutable snapshot of the callable tool set: the
// concatenation of every store source compiled into a single program, plus
// the native bindings. A namespace is never patched; the registry replaces
// it wholesale. Executions run the program in a fresh VM, so an in-flight
// call keeps its snapshot even after the registry has published a newer one,
// and concurrent calls never share interpreter state.
type Namespace struct {
	program  *goja.Program
	names    map[string]struct{}
	ordered  []string
	bindings Bindings
}

// BuildNamespace compiles the full set of tool sources into one namespace in
// which every tool function can reference every other tool function and
// every native capability by name. Any compile failure fails the whole
// build; partial namespaces are never produced.
func BuildNamespace(tools []toolstore.Tool, bindings Bindings) (*Namespace, error) {
	var sb strings.Builder
	names := make(map[string]struct{}, len(tools))
	ordered := make([]string, 0, len(tools))

	for _, tool := range tools {
		// Compile each source on its own first so an error names the tool
		// that caused it rather than a line in the concatenation.
		if err := Compile(tool.Name, tool.Source); err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		sb.WriteString(tool.Source)
		sb.WriteString("\n")
		names[tool.Name] = struct{}{}
		ordered = append(ordered, tool.Name)
	}
	sort.Strings(ordered)

	program, err := goja.Compile("namespace", sb.String(), false)
	if err != nil {
		return nil, asCompileError(err)
	}

	return &Namespace{
		program:  program,
		names:    names,
		ordered:  ordered,
		bindings: bindings,
	}, nil
}

// Has reports whether a tool function is defined in this namespace.
func (ns *Namespace) Has(name string) bool {
	_, ok := ns.names[name]
	return ok
}

// Names returns the tool names in this namespace in lexicographic order.
func (ns *Namespace) Names() []string {
	out := make([]string, len(ns.ordered))
	copy(out, ns.ordered)
	return out
}

// Execute calls a tool function with zero or one string argument. A
// tool calling another tool, or a native capability, is an ordinary
// in-namespace call and never leaves the VM.
func (ns *Namespace) Execute(name string, args ...string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("%w: got %d", ErrArityMismatch, len(args))
	}
	if !ns.Has(name) {
		return "", fmt.Errorf("%w: %s", toolstore.ErrToolNotFound, name)
	}

	vm := goja.New()
	for capName, fn := range ns.bindings {
		if err := vm.Set(capName, fn); err != nil {
			return "", fmt.Errorf("failed to bind capability %s: %w", capName, err)
		}
	}

	if _, err := vm.RunProgram(ns.program); err != nil {
		// The program compiled at build time, so only a top-level statement
		// throwing at definition time lands here.
		return "", &RuntimeError{Tool: name, Message: err.Error()}
	}

	fn, ok := goja.AssertFunction(vm.Get(name))
	if !ok {
		// The source file exists but does not define a function matching its
		// own name.
		return "", fmt.Errorf("%w: %s defines no callable", toolstore.ErrToolNotFound, name)
	}

	callArgs := make([]goja.Value, 0, 1)
	if len(args) == 1 {
		callArgs = append(callArgs, vm.ToValue(args[0]))
	}

	result, err := fn(goja.Undefined(), callArgs...)
	if err != nil {
		return "", &RuntimeError{Tool: name, Message: err.Error()}
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return "", nil
	}
	return result.String(), nil
}
