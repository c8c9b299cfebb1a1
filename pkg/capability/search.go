package capability

import "fmt"

// Search is a deterministic placeholder, not a real search backend. A real
// deployment would call out to a search API here; keeping it a stub keeps
// the capability contract (query in, text out) testable without a key.
func (s *Set) Search(query string) string {
	return fmt.Sprintf("Search results for %q:\n1. No search backend is configured; this is a stub result.\n2. Wire a real provider to replace it.", query)
}
