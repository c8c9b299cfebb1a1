package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voss/swarmtool/pkg/safety"
)

func TestQueue_Enqueue_ClassifiesAtIntake(t *testing.T) {
	q := NewQueue()

	p, err := q.Enqueue("saver", "function saver(p) { write_file(p, \"x\"); }", "peer1")
	require.NoError(t, err)

	assert.Equal(t, "saver", p.Name)
	assert.Equal(t, "peer1", p.SenderID)
	assert.Equal(t, safety.HighRisk, p.Risk)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.ReceivedAt.IsZero())
}

func TestQueue_Enqueue_DuplicateKey(t *testing.T) {
	q := NewQueue()

	_, err := q.Enqueue("t", "function t() { return 1; }", "peer1")
	require.NoError(t, err)

	_, err = q.Enqueue("t", "function t() { return 2; }", "peer1")
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	// Same name from a different sender is a distinct proposal.
	_, err = q.Enqueue("t", "function t() { return 3; }", "peer2")
	assert.NoError(t, err)
}

func TestQueue_Pending_ArrivalOrder(t *testing.T) {
	q := NewQueue()

	_, err := q.Enqueue("third_tool", "function third_tool() { return 3; }", "a")
	require.NoError(t, err)
	_, err = q.Enqueue("first_tool", "function first_tool() { return 1; }", "b")
	require.NoError(t, err)

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "third_tool", pending[0].Name, "pending order is arrival order, not name order")
	assert.Equal(t, "first_tool", pending[1].Name)
}

func TestQueue_Get_EmptySenderMatchesEarliest(t *testing.T) {
	q := NewQueue()

	_, err := q.Enqueue("t", "function t() { return 1; }", "peer1")
	require.NoError(t, err)
	_, err = q.Enqueue("t", "function t() { return 2; }", "peer2")
	require.NoError(t, err)

	p, err := q.Get("t", "")
	require.NoError(t, err)
	assert.Equal(t, "peer1", p.SenderID)

	p, err = q.Get("t", "peer2")
	require.NoError(t, err)
	assert.Equal(t, "peer2", p.SenderID)

	_, err = q.Get("t", "peer3")
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestQueue_Remove_SecondRemovalFails(t *testing.T) {
	q := NewQueue()

	_, err := q.Enqueue("t", "function t() { return 1; }", "peer1")
	require.NoError(t, err)

	require.NoError(t, q.Remove("t", "peer1"))
	assert.ErrorIs(t, q.Remove("t", "peer1"), ErrProposalNotFound)
	assert.Empty(t, q.Pending())
}

func TestQueue_RiskImmutableAfterIntake(t *testing.T) {
	q := NewQueue()

	_, err := q.Enqueue("calc", "function calc(x) { return x * 2; }", "peer1")
	require.NoError(t, err)

	p, err := q.Get("calc", "peer1")
	require.NoError(t, err)
	assert.Equal(t, safety.Safe, p.Risk)

	// Mutating the returned copy must not affect the queued entry.
	p.Risk = safety.HighRisk
	again, err := q.Get("calc", "peer1")
	require.NoError(t, err)
	assert.Equal(t, safety.Safe, again.Risk)
}
