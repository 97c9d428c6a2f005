package chat

import (
	"context"
	"sync"
)

// Event is one chat line broadcast by a member.
type Event struct {
	From string
	Text string
}

// DeliveryPolicy decides what a broadcast does when a mailbox is full.
type DeliveryPolicy int

const (
	// PolicyBlock waits for the consumer to make room. The wait ends early when
	// the mailbox closes or the broadcaster's context is cancelled.
	PolicyBlock DeliveryPolicy = iota
	// PolicyDrop discards the event for that recipient only.
	PolicyDrop
)

func (p DeliveryPolicy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// Mailbox is a member's bounded inbox. Any session may deliver to it; only the
// owning session reads from it.
type Mailbox struct {
	events chan Event
	done   chan struct{}
	policy DeliveryPolicy

	closeOnce sync.Once
}

func newMailbox(capacity int, policy DeliveryPolicy) *Mailbox {
	if capacity <= 0 {
		capacity = 1
	}
	return &Mailbox{
		events: make(chan Event, capacity),
		done:   make(chan struct{}),
		policy: policy,
	}
}

// Events returns the receive side of the mailbox. It is never closed; watch Done.
func (m *Mailbox) Events() <-chan Event {
	return m.events
}

// Done is closed once the owner has left the room.
func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}

// deliver enqueues ev according to the mailbox policy. It returns
// ErrMailboxClosed when the owner is gone, errDropped when the event was
// discarded, or the context error if the broadcaster gave up waiting.
func (m *Mailbox) deliver(ctx context.Context, ev Event) error {
	select {
	case <-m.done:
		return ErrMailboxClosed
	default:
	}

	if m.policy == PolicyDrop {
		select {
		case m.events <- ev:
			return nil
		default:
			return errDropped
		}
	}

	select {
	case m.events <- ev:
		return nil
	case <-m.done:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailbox) close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}
