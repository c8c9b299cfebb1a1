package toolstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Ext is the on-disk extension for tool source files. The filename minus the
// extension is the tool name.
const Ext = ".js"

// ErrToolNotFound is returned when a named tool does not exist in the store.
var ErrToolNotFound = errors.New("tool not found")

// ErrInvalidName is returned when a tool name cannot be used as a filename
// or as a script identifier.
var ErrInvalidName = errors.New("invalid tool name")

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateName reports whether name is usable both as a store filename and
// as a function identifier. Rejecting anything else keeps a tool name from
// ever escaping the store directory.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Store is the disk-backed source of truth mapping tool name to source text.
// The namespace published by the registry is always reproducible by
// recompiling the store's current contents.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("tool store directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tool store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+Ext)
}

// LoadAll reads every tool file in the store, sorted by name for
// deterministic listing and deterministic namespace builds.
func (s *Store) LoadAll() ([]Tool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool store: %w", err)
	}

	tools := make([]Tool, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), Ext)
		if err := ValidateName(name); err != nil {
			log.Warn().Str("file", entry.Name()).Msg("Skipping tool file with invalid name")
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read tool %s: %w", name, err)
		}
		tools = append(tools, Tool{Name: name, Source: string(data), Origin: OriginLocal})
	}

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

// List returns the current tool names in lexicographic order.
func (s *Store) List() ([]string, error) {
	tools, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	return names, nil
}

// Read returns the source text of a single tool byte-for-byte.
func (s *Store) Read(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		return "", fmt.Errorf("failed to read tool %s: %w", name, err)
	}
	return string(data), nil
}

// Exists reports whether a tool file is present.
func (s *Store) Exists(name string) bool {
	if err := ValidateName(name); err != nil {
		return false
	}
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Save durably writes a tool's source, overwriting any existing source for
// the same name. The prior source is unrecoverable. The write goes through a
// temp file and an atomic rename so a concurrent rebuild never observes a
// half-written tool file.
func (s *Store) Save(name, source string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp tool file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write tool %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync tool %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close tool %s: %w", name, err)
	}

	// Atomic replace
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace tool %s: %w", name, err)
	}

	log.Debug().Str("tool", name).Int("bytes", len(source)).Msg("Tool saved")
	return nil
}

// Delete removes a tool file. Returns ErrToolNotFound if absent.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		return fmt.Errorf("failed to delete tool %s: %w", name, err)
	}
	log.Debug().Str("tool", name).Msg("Tool deleted")
	return nil
}
