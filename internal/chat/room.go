package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ledzpl/budgetchat/internal/pkg/logx"
)

// DefaultMailboxCapacity is used when no WithMailboxCapacity option is given.
const DefaultMailboxCapacity = 16

// Option configures a Room.
type Option func(*Room)

// WithMailboxCapacity sets the buffer size of every member mailbox.
func WithMailboxCapacity(n int) Option {
	return func(r *Room) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithDeliveryPolicy sets what Broadcast does when a member mailbox is full.
func WithDeliveryPolicy(p DeliveryPolicy) Option {
	return func(r *Room) {
		r.policy = p
	}
}

// WithLogger replaces the room's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Room) {
		r.logger = logger
	}
}

type member struct {
	nick    string
	mailbox *Mailbox
}

// Room is the registry of present members and the fan-out point for their messages.
// All membership changes and snapshots happen under one lock; mailbox sends happen
// after it is released.
type Room struct {
	mu      sync.Mutex
	members map[string]*Mailbox
	order   []string
	closed  bool

	capacity int
	policy   DeliveryPolicy

	logger  zerolog.Logger
	dropLog rate.Sometimes
}

// NewRoom constructs an empty chat room.
func NewRoom(opts ...Option) *Room {
	r := &Room{
		members:  make(map[string]*Mailbox),
		capacity: DefaultMailboxCapacity,
		policy:   PolicyBlock,
		logger:   logx.Component("room"),
		dropLog:  rate.Sometimes{Interval: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryJoin registers nick and returns its mailbox together with the nicks that
// were present before it, in join order.
func (r *Room) TryJoin(nick string) (*Mailbox, []string, error) {
	if !validNick(nick) {
		return nil, nil, ErrInvalidNick
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, ErrServerShuttingDown
	}
	if _, taken := r.members[nick]; taken {
		return nil, nil, ErrNickTaken
	}

	roster := append([]string(nil), r.order...)
	mailbox := newMailbox(r.capacity, r.policy)
	r.members[nick] = mailbox
	r.order = append(r.order, nick)

	r.logger.Info().Str("nick", nick).Int("members", len(r.order)).Msg("member joined")
	return mailbox, roster, nil
}

// Leave removes nick and closes its mailbox. Unknown nicks are ignored.
func (r *Room) Leave(nick string) {
	r.mu.Lock()
	mailbox, ok := r.members[nick]
	if ok {
		r.removeLocked(nick)
	}
	r.mu.Unlock()

	if ok {
		mailbox.close()
	}
}

// release removes nick only while it still maps to mailbox, so a session that
// lost a reconnect race cannot evict the newer holder.
func (r *Room) release(nick string, mailbox *Mailbox) {
	r.mu.Lock()
	if current, ok := r.members[nick]; ok && current == mailbox {
		r.removeLocked(nick)
	}
	r.mu.Unlock()

	mailbox.close()
}

func (r *Room) removeLocked(nick string) {
	delete(r.members, nick)
	for i, n := range r.order {
		if n == nick {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info().Str("nick", nick).Int("members", len(r.order)).Msg("member left")
}

// Broadcast delivers text from the given member to everyone else present and
// returns how many mailboxes accepted it. Members that leave mid-broadcast are
// skipped. A non-nil error means ctx ended before delivery finished.
func (r *Room) Broadcast(ctx context.Context, from, text string) (int, error) {
	r.mu.Lock()
	targets := make([]member, 0, len(r.order))
	for _, nick := range r.order {
		if nick == from {
			continue
		}
		targets = append(targets, member{nick: nick, mailbox: r.members[nick]})
	}
	r.mu.Unlock()

	ev := Event{From: from, Text: text}
	delivered := 0
	for _, target := range targets {
		err := target.mailbox.deliver(ctx, ev)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrMailboxClosed):
			r.logger.Debug().Str("nick", target.nick).Msg("skipping departed member")
		case errors.Is(err, errDropped):
			r.dropLog.Do(func() {
				r.logger.Warn().Str("nick", target.nick).Str("from", from).Msg("mailbox full, dropping events")
			})
		default:
			return delivered, err
		}
	}
	return delivered, nil
}

// Members returns the present nicks in join order.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of present members.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Close empties the room and refuses further joins. Every member mailbox is
// closed, which ends the owning sessions' outbound relays.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	mailboxes := make([]*Mailbox, 0, len(r.members))
	for _, mb := range r.members {
		mailboxes = append(mailboxes, mb)
	}
	r.members = make(map[string]*Mailbox)
	r.order = nil
	r.mu.Unlock()

	for _, mb := range mailboxes {
		mb.close()
	}
	r.logger.Info().Int("members", len(mailboxes)).Msg("room closed")
}
