// Package safety assigns a risk level to tool source text by statically
// scanning it for references to native capabilities. This is a best-effort
// lexical filter feeding a human approval step, not an execution sandbox: a
// tool that builds a capability name at runtime will not be caught here.
package safety

import (
	"fmt"
	"regexp"
)

// RiskLevel classifies how much damage a tool could do through the native
// capabilities it references. Levels are ordered: Safe < LowRisk <
// MediumRisk < HighRisk.
type RiskLevel int

const (
	// Safe: pure arithmetic, string, and control-flow logic with no
	// capability references.
	Safe RiskLevel = iota
	// LowRisk: reads runtime metadata or talks to peers (list_tools,
	// inspect_tool, send_message).
	LowRisk
	// MediumRisk: reads external data (read_file, scrape_url).
	MediumRisk
	// HighRisk: writes, mutates runtime state, or references a capability
	// the classifier does not recognize.
	HighRisk
)

var riskNames = map[RiskLevel]string{
	Safe:       "safe",
	LowRisk:    "low",
	MediumRisk: "medium",
	HighRisk:   "high",
}

// String returns the wire name of the level.
func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	for level, name := range riskNames {
		if name == string(text) {
			*r = level
			return nil
		}
	}
	return fmt.Errorf("unknown risk level: %q", string(text))
}

// capabilityLevels maps every native capability name to the risk of a tool
// referencing it. Capabilities that mutate the runtime or the host
// (write_file, remove_tool, clone_agent, start_server) and capabilities with
// unpredictable reach (search) sit at the top.
var capabilityLevels = map[string]RiskLevel{
	"list_tools":   LowRisk,
	"inspect_tool": LowRisk,
	"send_message": LowRisk,
	"read_file":    MediumRisk,
	"scrape_url":   MediumRisk,
	"write_file":   HighRisk,
	"remove_tool":  HighRisk,
	"clone_agent":  HighRisk,
	"search":       HighRisk,
	"start_server": HighRisk,
}

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Classify scans source for identifiers that name native capabilities and
// returns the maximum level referenced. A source with no capability
// references is Safe. Classification happens once, at proposal intake; the
// recorded level is never recomputed.
func Classify(source string) RiskLevel {
	level := Safe
	for _, ident := range identPattern.FindAllString(source, -1) {
		capLevel, ok := capabilityLevels[ident]
		if !ok {
			continue
		}
		if capLevel > level {
			level = capLevel
		}
		if level == HighRisk {
			break
		}
	}
	return level
}

// CapabilityLevel returns the risk level assigned to a single capability
// name. Unknown names classify HighRisk (fail conservative).
func CapabilityLevel(name string) RiskLevel {
	if level, ok := capabilityLevels[name]; ok {
		return level
	}
	return HighRisk
}
