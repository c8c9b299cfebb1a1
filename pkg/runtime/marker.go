package runtime

import (
	"strings"

	"github.com/voss/swarmtool/pkg/toolstore"
)

const markerPrefix = "[TOOL:"

// ParseToolCall extracts the first tool invocation marker from free text.
// The marker form is "[TOOL: name(arg)]" with at most one argument; empty
// parentheses mean a zero-argument call. The argument is taken verbatim,
// whitespace-trimmed, with a single level of surrounding quotes removed.
//
// The runtime itself never scans text for markers; this is a helper for the
// conversational loop driving Execute.
func ParseToolCall(text string) (name string, args []string, found bool) {
	start := strings.Index(text, markerPrefix)
	if start < 0 {
		return "", nil, false
	}
	rest := text[start+len(markerPrefix):]

	end := strings.Index(rest, "]")
	if end < 0 {
		return "", nil, false
	}
	content := strings.TrimSpace(rest[:end])

	open := strings.Index(content, "(")
	if open < 0 || !strings.HasSuffix(content, ")") {
		return "", nil, false
	}

	name = strings.TrimSpace(content[:open])
	if toolstore.ValidateName(name) != nil {
		return "", nil, false
	}

	arg := strings.TrimSpace(content[open+1 : len(content)-1])
	arg = trimQuotes(arg)
	if arg == "" {
		return name, nil, true
	}
	return name, []string{arg}, true
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
