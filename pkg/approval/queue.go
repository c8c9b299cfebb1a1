// Package approval stages externally proposed tools until a human accepts or
// rejects them. A pending proposal never contributes to the store or the
// namespace; only the approval operation (orchestrated by the runtime) moves
// its source across that line.
package approval

import (
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/voss/swarmtool/internal/observability"
	"github.com/voss/swarmtool/pkg/safety"
)

// ErrAlreadyQueued is returned when a proposal with the same (name, sender)
// key is already pending.
var ErrAlreadyQueued = errors.New("proposal already queued")

// ErrProposalNotFound is returned when no pending proposal matches a lookup.
var ErrProposalNotFound = errors.New("proposal not found")

// Proposal is an externally proposed tool awaiting a decision. Risk is
// computed once at intake and never recomputed, even if the classifier's
// table changes while the proposal waits.
type Proposal struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Source     string           `json:"source"`
	SenderID   string           `json:"sender_id"`
	Risk       safety.RiskLevel `json:"risk"`
	ReceivedAt time.Time        `json:"received_at"`
}

type key struct {
	name   string
	sender string
}

// Queue holds pending proposals keyed by (name, sender), ordered by arrival.
type Queue struct {
	mu      sync.RWMutex
	entries map[key]*Proposal
	order   []key
}

// NewQueue creates an empty approval queue.
func NewQueue() *Queue {
	return &Queue{entries: make(map[key]*Proposal)}
}

// Enqueue classifies the source and stores the proposal. Returns the stored
// proposal, or ErrAlreadyQueued if the (name, sender) pair is already
// pending.
func (q *Queue) Enqueue(name, source, senderID string) (Proposal, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	k := key{name: name, sender: senderID}
	if _, exists := q.entries[k]; exists {
		return Proposal{}, fmt.Errorf("%w: %s from %s", ErrAlreadyQueued, name, senderID)
	}

	id, err := gonanoid.New()
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to generate proposal id: %w", err)
	}

	p := &Proposal{
		ID:         id,
		Name:       name,
		Source:     source,
		SenderID:   senderID,
		Risk:       safety.Classify(source),
		ReceivedAt: time.Now(),
	}
	q.entries[k] = p
	q.order = append(q.order, k)
	observability.SetProposalsPending(len(q.entries))

	log.Info().
		Str("tool", name).
		Str("sender", senderID).
		Stringer("risk", p.Risk).
		Msg("Tool proposal queued")

	return *p, nil
}

// Pending returns the pending proposals in arrival order.
func (q *Queue) Pending() []Proposal {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Proposal, 0, len(q.order))
	for _, k := range q.order {
		if p, ok := q.entries[k]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Get returns the pending proposal for (name, senderID). An empty senderID
// matches the earliest-arrived proposal with that name, so callers that saw
// a single entry in Pending can approve by name alone.
func (q *Queue) Get(name, senderID string) (Proposal, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if senderID != "" {
		if p, ok := q.entries[key{name: name, sender: senderID}]; ok {
			return *p, nil
		}
		return Proposal{}, fmt.Errorf("%w: %s from %s", ErrProposalNotFound, name, senderID)
	}

	for _, k := range q.order {
		if k.name == name {
			if p, ok := q.entries[k]; ok {
				return *p, nil
			}
		}
	}
	return Proposal{}, fmt.Errorf("%w: %s", ErrProposalNotFound, name)
}

// Remove deletes a pending proposal. A second removal of the same entry
// fails with ErrProposalNotFound, which is what makes a double approve fail.
func (q *Queue) Remove(name, senderID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	k := key{name: name, sender: senderID}
	if _, ok := q.entries[k]; !ok {
		return fmt.Errorf("%w: %s from %s", ErrProposalNotFound, name, senderID)
	}
	delete(q.entries, k)
	for i, ord := range q.order {
		if ord == k {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	observability.SetProposalsPending(len(q.entries))
	return nil
}

// Len returns the number of pending proposals.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}
