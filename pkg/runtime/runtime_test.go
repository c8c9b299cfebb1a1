package runtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voss/swarmtool/pkg/scripting"
	"github.com/voss/swarmtool/pkg/toolstore"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(Config{ToolsDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestRuntime_CreateInspect_RoundTrip(t *testing.T) {
	rt := newTestRuntime(t)

	src := "function t(x) {\n  return x;\n}\n"
	require.NoError(t, rt.Create("t", src))

	got, err := rt.InspectTool("t")
	require.NoError(t, err)
	assert.Equal(t, src, got, "inspect must return the source byte-for-byte")
}

func TestRuntime_Composition(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("tool_a", `function tool_a(x) { return x + "_A"; }`))
	require.NoError(t, rt.Create("tool_b", `function tool_b(x) { return tool_a(x) + "_B"; }`))

	got, err := rt.Execute("tool_b", "test")
	require.NoError(t, err)
	assert.Equal(t, "test_A_B", got)
}

func TestRuntime_OverwriteLosesHistory(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("sq", `function sq(x) { return "v1:" + x; }`))
	v2 := `function sq(x) { return "v2:" + x; }`
	require.NoError(t, rt.Create("sq", v2))

	got, err := rt.InspectTool("sq")
	require.NoError(t, err)
	assert.Equal(t, v2, got)

	out, err := rt.Execute("sq", "7")
	require.NoError(t, err)
	assert.Equal(t, "v2:7", out, "execution must reflect only the overwriting source")
}

func TestRuntime_Removal(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("t", "function t() { return 1; }"))
	require.NoError(t, rt.RemoveTool("t"))

	names, err := rt.ListTools()
	require.NoError(t, err)
	assert.NotContains(t, names, "t")

	_, err = rt.InspectTool("t")
	assert.ErrorIs(t, err, toolstore.ErrToolNotFound)

	_, err = rt.Execute("t")
	assert.ErrorIs(t, err, toolstore.ErrToolNotFound)

	assert.ErrorIs(t, rt.RemoveTool("t"), toolstore.ErrToolNotFound)
}

func TestRuntime_Create_CompileErrorLeavesStateUntouched(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("good", "function good() { return 1; }"))

	err := rt.Create("bad", "function bad( {")
	var ce *scripting.CompileError
	require.ErrorAs(t, err, &ce)

	names, err := rt.ListTools()
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, names)

	_, err = rt.InspectTool("bad")
	assert.ErrorIs(t, err, toolstore.ErrToolNotFound)
}

func TestRuntime_Execute_ArityMismatch(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("id", "function id(x) { return x; }"))

	_, err := rt.Execute("id", "a", "b")
	assert.ErrorIs(t, err, scripting.ErrArityMismatch)
}

func TestRuntime_ApprovalFlow(t *testing.T) {
	rt := newTestRuntime(t)

	src := `function shared(x) { return "shared:" + x; }`
	require.NoError(t, rt.Propose("shared", src, "peer1"))

	pending := rt.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "shared", pending[0].Name)
	assert.Equal(t, "peer1", pending[0].SenderID)

	// Pending proposals are invisible to the namespace and the store.
	names, err := rt.ListTools()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, rt.Approve("shared", ""))

	names, err = rt.ListTools()
	require.NoError(t, err)
	assert.Contains(t, names, "shared")
	assert.Empty(t, rt.Pending())

	got, err := rt.Execute("shared", "x")
	require.NoError(t, err)
	assert.Equal(t, "shared:x", got)

	// Approving the same entry again fails: it is gone.
	assert.Error(t, rt.Approve("shared", ""))
}

func TestRuntime_Reject_NeverTouchesStore(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Propose("spam", "function spam() { return 1; }", "peer9"))
	require.NoError(t, rt.Reject("spam", "peer9"))

	assert.Empty(t, rt.Pending())
	names, err := rt.ListTools()
	require.NoError(t, err)
	assert.Empty(t, names)

	assert.Error(t, rt.Reject("spam", "peer9"))
}

func TestRuntime_Approve_CompileFailureKeepsProposal(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Propose("broken", "function broken( {", "peer1"))

	err := rt.Approve("broken", "peer1")
	var ce *scripting.CompileError
	require.ErrorAs(t, err, &ce)

	// The decision can be retried or the entry rejected; it is still queued.
	require.Len(t, rt.Pending(), 1)
	names, err := rt.ListTools()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRuntime_Propose_DuplicatePending(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Propose("t", "function t() { return 1; }", "peer1"))
	assert.Error(t, rt.Propose("t", "function t() { return 2; }", "peer1"))
}

func TestRuntime_Propose_InvalidName(t *testing.T) {
	rt := newTestRuntime(t)
	assert.ErrorIs(t, rt.Propose("../evil", "function x() {}", "peer1"), toolstore.ErrInvalidName)
}

func TestRuntime_ListTools_Lexicographic(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("zeta", "function zeta() { return 1; }"))
	require.NoError(t, rt.Create("alpha", "function alpha() { return 2; }"))

	names, err := rt.ListTools()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestRuntime_ConcurrentExecuteAndCreate(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("stable", `function stable(x) { return x + "_S"; }`))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := rt.Execute("stable", "x")
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
			if got != "x_S" {
				select {
				case errCh <- fmt.Errorf("unexpected result %q", got):
				default:
				}
				return
			}
		}
	}()

	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("unrelated_%d", i)
		src := fmt.Sprintf("function %s() { return %d; }", name, i)
		require.NoError(t, rt.Create(name, src))
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errCh:
		t.Fatalf("concurrent execute observed a broken namespace: %v", err)
	default:
	}
}

type countingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *countingBroadcaster) Broadcast(event string, data interface{}) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func TestRuntime_SetBroadcasterConcurrentWithWrites(t *testing.T) {
	rt := newTestRuntime(t)
	b := &countingBroadcaster{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			rt.SetBroadcaster(b)
		}
	}()

	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("late_%d", i)
		require.NoError(t, rt.Create(name, fmt.Sprintf("function %s() { return %d; }", name, i)))
	}
	wg.Wait()

	rt.SetBroadcaster(b)
	require.NoError(t, rt.Create("final", "function final() { return 1; }"))

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Contains(t, b.events, "tool.created")
}

func TestRuntime_CapabilitiesWiredIntoNamespace(t *testing.T) {
	rt := newTestRuntime(t)

	require.NoError(t, rt.Create("alpha", "function alpha() { return 1; }"))
	require.NoError(t, rt.Create("catalog", "function catalog() { return list_tools(); }"))

	got, err := rt.Execute("catalog")
	require.NoError(t, err)
	assert.Equal(t, "alpha, catalog", got)
}

func TestRuntime_LoadsExistingStoreAtStartup(t *testing.T) {
	dir := t.TempDir()

	first, err := New(Config{ToolsDir: dir})
	require.NoError(t, err)
	require.NoError(t, first.Create("persisted", `function persisted() { return "still here"; }`))
	require.NoError(t, first.Close())

	second, err := New(Config{ToolsDir: dir})
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Execute("persisted")
	require.NoError(t, err)
	assert.Equal(t, "still here", got)
}
