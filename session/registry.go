package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// Registry maps tags to sessions and subscriptions.
//
// Session and subscription tags share one namespace. The registry is filled during
// configuration and read afterwards; a session removes itself when it shuts down.
type Registry struct {
	sessions *xsync.MapOf[string, *Session]
	subs     *xsync.MapOf[string, *Subscription]
	opts     []Option
	logger   logger.Logger
}

// NewRegistry creates an empty registry. opts are applied to every session before the
// options given to CreateSession.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: xsync.NewMapOf[string, *Session](),
		subs:     xsync.NewMapOf[string, *Subscription](),
		opts:     opts,
		logger:   logger.GetLogger(),
	}

	if cfg, err := NewConfig(opts...); err == nil {
		r.logger = cfg.Logger()
	}

	return r
}

func (r *Registry) tagUsed(tag string) bool {
	if _, ok := r.sessions.Load(tag); ok {
		return true
	}
	_, ok := r.subs.Load(tag)

	return ok
}

// CreateSession creates and registers a session. It does not connect.
func (r *Registry) CreateSession(tag, endpoint string, client bridge.Client, opts ...Option) (*Session, error) {
	if r.tagUsed(tag) {
		return nil, fmt.Errorf("%w: session %q", ErrDuplicateTag, tag)
	}

	s, err := New(tag, endpoint, client, append(slices.Clone(r.opts), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", tag, err)
	}

	if _, loaded := r.sessions.LoadOrStore(tag, s); loaded {
		_ = s.Shutdown(context.Background())
		return nil, fmt.Errorf("%w: session %q", ErrDuplicateTag, tag)
	}
	s.onClose = r.release
	r.logger.Info("session created", "session", tag, "endpoint", endpoint)

	return s, nil
}

// CreateSubscription creates a subscription of the session registered as sessionTag.
func (r *Registry) CreateSubscription(tag, sessionTag string, opts ...SubscriptionOption) (*Subscription, error) {
	if r.tagUsed(tag) {
		return nil, fmt.Errorf("%w: subscription %q", ErrDuplicateTag, tag)
	}

	s, ok := r.sessions.Load(sessionTag)
	if !ok {
		return nil, fmt.Errorf("%w: session %q", ErrUnknownTag, sessionTag)
	}

	sub, err := s.NewSubscription(tag, opts...)
	if err != nil {
		return nil, fmt.Errorf("subscription %q: %w", tag, err)
	}
	r.subs.Store(tag, sub)

	return sub, nil
}

// BindItem binds the address addr to a local slot. tag names either a subscription, which
// monitors the item, or a session, which polls it.
func (r *Registry) BindItem(addr, tag string, slot uatype.Slot, opts ...ItemOption) (*Item, error) {
	if sub, ok := r.subs.Load(tag); ok {
		return sub.sess.AddItem(addr, slot, sub, opts...)
	}
	if s, ok := r.sessions.Load(tag); ok {
		return s.AddItem(addr, slot, nil, opts...)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
}

// BindLink binds a link of the form TAG;ns=N;s=ID or TAG;ns=N;i=NUM.
func (r *Registry) BindLink(link string, slot uatype.Slot, opts ...ItemOption) (*Item, error) {
	tag, addr, err := address.ParseLink(link)
	if err != nil {
		return nil, err
	}

	if sub, ok := r.subs.Load(tag); ok {
		return sub.sess.bind(addr, slot, sub, opts...)
	}
	if s, ok := r.sessions.Load(tag); ok {
		return s.bind(addr, slot, nil, opts...)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
}

// Session returns the session registered as tag.
func (r *Registry) Session(tag string) (*Session, bool) {
	return r.sessions.Load(tag)
}

// Subscription returns the subscription registered as tag.
func (r *Registry) Subscription(tag string) (*Subscription, bool) {
	return r.subs.Load(tag)
}

// Sessions returns the registered sessions ordered by tag.
func (r *Registry) Sessions() []*Session {
	sessions := make([]*Session, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, s *Session) bool {
		sessions = append(sessions, s)
		return true
	})
	slices.SortFunc(sessions, func(a, b *Session) int { return strings.Compare(a.tag, b.tag) })

	return sessions
}

// ConnectAll connects every session. A session that fails to connect keeps retrying in the
// background; the joined connect errors are returned.
func (r *Registry) ConnectAll(ctx context.Context) error {
	var errs []error
	for _, s := range r.Sessions() {
		if err := s.Connect(ctx); err != nil {
			r.logger.Warn("session connect failed, retrying in background", "session", s.tag, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close shuts every session down and empties the registry.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, s := range r.Sessions() {
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Registry) release(s *Session) {
	r.sessions.Compute(s.tag, func(old *Session, loaded bool) (*Session, bool) {
		return old, !loaded || old == s
	})
	for _, sub := range s.Subscriptions() {
		r.subs.Compute(sub.tag, func(old *Subscription, loaded bool) (*Subscription, bool) {
			return old, !loaded || old == sub
		})
	}
}
