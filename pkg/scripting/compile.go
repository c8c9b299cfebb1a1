package scripting

import (
	"regexp"
	"strconv"

	"github.com/dop251/goja"
)

// NativeFunc is the shape of a native capability as seen from script code:
// string arguments in, string out, and a returned error surfaces inside the
// script as a thrown exception.
type NativeFunc func(args ...string) (string, error)

// Bindings maps capability names to native functions. The same bindings are
// installed into every VM a namespace spawns, so tool source can call
// read_file, scrape_url, etc. by name.
type Bindings map[string]NativeFunc

// goja reports syntax errors as "SyntaxError: <file>: Line 3:7 ...". Pull
// the position out of the message rather than depending on goja's internal
// error types.
var positionPattern = regexp.MustCompile(`Line (\d+):(\d+)`)

func asCompileError(err error) *CompileError {
	ce := &CompileError{Message: err.Error()}
	if m := positionPattern.FindStringSubmatch(err.Error()); m != nil {
		ce.Line, _ = strconv.Atoi(m[1])
		ce.Col, _ = strconv.Atoi(m[2])
	}
	return ce
}

// Compile checks a single tool's source in isolation. Used as a pre-flight
// before a source is admitted to the store; a failure here leaves store and
// namespace untouched.
func Compile(name, source string) error {
	if _, err := goja.Compile(name, source, false); err != nil {
		return asCompileError(err)
	}
	return nil
}
