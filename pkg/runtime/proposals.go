package runtime

import (
	"github.com/rs/zerolog/log"

	"github.com/voss/swarmtool/internal/observability"
	"github.com/voss/swarmtool/pkg/approval"
	"github.com/voss/swarmtool/pkg/scripting"
	"github.com/voss/swarmtool/pkg/toolstore"
)

// Propose classifies an externally supplied tool and queues it for a
// decision. Implements the gateway's proposal sink. The proposal touches
// neither store nor namespace until Approve.
func (rt *Runtime) Propose(name, source, senderID string) error {
	if err := toolstore.ValidateName(name); err != nil {
		return err
	}

	p, err := rt.queue.Enqueue(name, source, senderID)
	if err != nil {
		return err
	}

	rt.broadcast("proposal.enqueued", map[string]interface{}{
		"name":   p.Name,
		"sender": p.SenderID,
		"risk":   p.Risk.String(),
	})
	return nil
}

// Pending returns the queued proposals in arrival order.
func (rt *Runtime) Pending() []approval.Proposal {
	return rt.queue.Pending()
}

// Approve writes the proposal's source through to the store (creating or
// overwriting), publishes a rebuilt namespace, and removes the entry from
// the queue. An empty senderID matches the earliest pending proposal with
// that name. Approving the same entry twice fails the second time because
// the entry is gone.
//
// The source gets a compile check before it touches the store; on a compile
// failure the proposal stays queued so the decision can be retried or the
// entry rejected.
func (rt *Runtime) Approve(name, senderID string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	p, err := rt.queue.Get(name, senderID)
	if err != nil {
		return err
	}

	if err := scripting.Compile(p.Name, p.Source); err != nil {
		return err
	}
	if err := rt.store.Save(p.Name, p.Source); err != nil {
		return err
	}
	rt.origins[p.Name] = toolstore.OriginRemote
	if err := rt.rebuildLocked(); err != nil {
		return err
	}
	if err := rt.queue.Remove(p.Name, p.SenderID); err != nil {
		return err
	}

	observability.RecordProposalDecision("approved")
	log.Info().
		Str("tool", p.Name).
		Str("sender", p.SenderID).
		Stringer("risk", p.Risk).
		Msg("Proposal approved")
	rt.broadcast("proposal.approved", map[string]interface{}{
		"name":   p.Name,
		"sender": p.SenderID,
	})
	return nil
}

// Reject discards a pending proposal without ever touching the store or the
// namespace.
func (rt *Runtime) Reject(name, senderID string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	p, err := rt.queue.Get(name, senderID)
	if err != nil {
		return err
	}
	if err := rt.queue.Remove(p.Name, p.SenderID); err != nil {
		return err
	}

	observability.RecordProposalDecision("rejected")
	log.Info().Str("tool", p.Name).Str("sender", p.SenderID).Msg("Proposal rejected")
	rt.broadcast("proposal.rejected", map[string]interface{}{
		"name":   p.Name,
		"sender": p.SenderID,
	})
	return nil
}
