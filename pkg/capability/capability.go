// Package capability is the fixed set of built-in operations available both
// to tool scripts (bound into every namespace VM by name) and to the
// runtime's own callers.
package capability

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voss/swarmtool/pkg/gateway"
	"github.com/voss/swarmtool/pkg/scrape"
	"github.com/voss/swarmtool/pkg/scripting"
)

// ToolManager is the slice of the runtime the capabilities need: listing,
// inspecting, and removing tools. Removal triggers a namespace rebuild on
// the runtime side.
type ToolManager interface {
	ListTools() ([]string, error)
	InspectTool(name string) (string, error)
	RemoveTool(name string) error
}

// Set holds the native capabilities wired to their backends.
type Set struct {
	tools     ToolManager
	scraper   *scrape.Scraper
	peers     *gateway.Client
	storeDir  string
	configPth string
}

// Config wires a capability set.
type Config struct {
	Tools       ToolManager
	Scraper     *scrape.Scraper
	PeerClient  *gateway.Client
	StoreDir    string // tool store directory, copied by clone_agent
	ConfigPath  string // optional config file, copied by clone_agent if present
	PeerTimeout time.Duration
}

// NewSet creates the native capability set.
func NewSet(cfg Config) (*Set, error) {
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool manager is required")
	}
	if cfg.Scraper == nil {
		cfg.Scraper = scrape.New(scrape.Config{})
	}
	if cfg.PeerClient == nil {
		cfg.PeerClient = gateway.NewClient(cfg.PeerTimeout)
	}
	return &Set{
		tools:     cfg.Tools,
		scraper:   cfg.Scraper,
		peers:     cfg.PeerClient,
		storeDir:  cfg.StoreDir,
		configPth: cfg.ConfigPath,
	}, nil
}

// ListTools returns the current tool names, lexicographic.
func (s *Set) ListTools() ([]string, error) {
	return s.tools.ListTools()
}

// InspectTool returns a tool's source text.
func (s *Set) InspectTool(name string) (string, error) {
	return s.tools.InspectTool(name)
}

// RemoveTool deletes a tool and rebuilds the namespace without it.
func (s *Set) RemoveTool(name string) error {
	return s.tools.RemoveTool(name)
}

// ReadFile returns the contents of a file.
func (s *Set) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes content to a file, creating or truncating it.
func (s *Set) WriteFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ScrapeURL fetches a URL and returns its readable text, truncated to the
// scraper's word limit.
func (s *Set) ScrapeURL(url string) (string, error) {
	return s.scraper.Scrape(url)
}

// SendMessage posts a generic message to a peer gateway.
func (s *Set) SendMessage(url, body string) (string, error) {
	return s.peers.SendMessage(url, body)
}

// Bindings exposes the capability set under its script-visible names. Each
// wrapper validates argument count; a returned error surfaces in the script
// as a thrown exception.
func (s *Set) Bindings() scripting.Bindings {
	return scripting.Bindings{
		"list_tools": func(args ...string) (string, error) {
			if err := wantArgs("list_tools", args, 0); err != nil {
				return "", err
			}
			names, err := s.ListTools()
			if err != nil {
				return "", err
			}
			return strings.Join(names, ", "), nil
		},
		"inspect_tool": func(args ...string) (string, error) {
			if err := wantArgs("inspect_tool", args, 1); err != nil {
				return "", err
			}
			return s.InspectTool(args[0])
		},
		"remove_tool": func(args ...string) (string, error) {
			if err := wantArgs("remove_tool", args, 1); err != nil {
				return "", err
			}
			if err := s.RemoveTool(args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("removed %s", args[0]), nil
		},
		"read_file": func(args ...string) (string, error) {
			if err := wantArgs("read_file", args, 1); err != nil {
				return "", err
			}
			return s.ReadFile(args[0])
		},
		"write_file": func(args ...string) (string, error) {
			if err := wantArgs("write_file", args, 2); err != nil {
				return "", err
			}
			if err := s.WriteFile(args[0], args[1]); err != nil {
				return "", err
			}
			return fmt.Sprintf("wrote %s", args[0]), nil
		},
		"search": func(args ...string) (string, error) {
			if err := wantArgs("search", args, 1); err != nil {
				return "", err
			}
			return s.Search(args[0]), nil
		},
		"scrape_url": func(args ...string) (string, error) {
			if err := wantArgs("scrape_url", args, 1); err != nil {
				return "", err
			}
			return s.ScrapeURL(args[0])
		},
		"send_message": func(args ...string) (string, error) {
			if err := wantArgs("send_message", args, 2); err != nil {
				return "", err
			}
			return s.SendMessage(args[0], args[1])
		},
		"clone_agent": func(args ...string) (string, error) {
			if err := wantArgs("clone_agent", args, 1); err != nil {
				return "", err
			}
			if err := s.CloneAgent(args[0]); err != nil {
				return "", err
			}
			log.Info().Str("target", args[0]).Msg("Agent cloned")
			return fmt.Sprintf("cloned to %s", args[0]), nil
		},
	}
}

func wantArgs(name string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s takes %d argument(s), got %d", name, n, len(args))
	}
	return nil
}
