package portal

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrSessionInitialized is returned when Initialize is called more than
// once for the process lifetime.
var ErrSessionInitialized = goerrors.New("session store already initialized", goerrors.CategoryConflict).
	WithTextCode("SESSION_ALREADY_INITIALIZED").
	WithCode(goerrors.CodeConflict)

// SessionListener receives every session snapshot change, in the order
// the identity provider emitted the underlying events.
type SessionListener func(session Session)

// SessionStoreOption customizes session store construction.
type SessionStoreOption func(*SessionStore)

// WithSessionStoreLogger overrides the default logger.
func WithSessionStoreLogger(logger Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionStoreClock injects a custom clock (useful for tests).
func WithSessionStoreClock(clock func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSessionStoreActivitySink sets the ActivitySink used to publish
// session lifecycle events.
func WithSessionStoreActivitySink(sink ActivitySink) SessionStoreOption {
	return func(s *SessionStore) {
		s.activitySink = normalizeActivitySink(sink)
	}
}

// SessionStore maintains the single live Session for the process and
// propagates every change to its subscribers. It has exactly one writer
// path (provider events and sign-out) and many readers.
type SessionStore struct {
	provider     IdentityProvider
	logger       Logger
	now          func() time.Time
	activitySink ActivitySink

	// emitMu serializes mutation + notification so subscribers observe
	// transitions in provider emission order.
	emitMu sync.Mutex
	mu     sync.RWMutex

	session     Session
	seq         uint64
	initialized bool
	transitions []SessionTransition

	listenerMu   sync.Mutex
	listeners    map[int]SessionListener
	nextListener int

	unsubscribe Unsubscribe
}

// NewSessionStore returns a store in the initializing state. Call
// Initialize exactly once to load the persisted credential and begin
// receiving provider change events.
func NewSessionStore(provider IdentityProvider, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		provider:     provider,
		logger:       defLogger{},
		now:          time.Now,
		activitySink: noopActivitySink{},
		session:      Session{Status: SessionInitializing},
		listeners:    map[int]SessionListener{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Initialize queries the identity provider for any persisted credential
// and marks the session ready with whatever identity (or none) comes
// back. A provider failure still yields a ready session with no
// identity: an unreachable provider must not block the application.
func (s *SessionStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return ErrSessionInitialized
	}
	s.initialized = true
	s.mu.Unlock()

	s.unsubscribe = s.provider.OnAuthStateChange(s.handleChange)

	s.mu.RLock()
	seq := s.seq
	s.mu.RUnlock()

	identity, err := s.provider.CurrentIdentity(ctx)
	if err != nil {
		s.logger.Warn("session store initial credential query failed", "error", err)
		identity = nil
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.RLock()
	raced := s.seq != seq
	s.mu.RUnlock()

	// A provider change event beat the initial query; the more recent
	// event is authoritative.
	if raced {
		return nil
	}

	s.applyLocked(transitionCauseInitialize, Session{Identity: identity, Status: SessionReady})

	s.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSessionReady,
		IdentityID: identityID(identity),
	})

	return nil
}

// Subscribe registers a listener invoked synchronously on every session
// change. The returned handle deregisters the listener and must be
// released on teardown of whichever component owns the subscription.
func (s *SessionStore) Subscribe(listener SessionListener) Unsubscribe {
	if listener == nil {
		return func() {}
	}

	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenerMu.Lock()
			delete(s.listeners, id)
			s.listenerMu.Unlock()
		})
	}
}

// Current returns the latest session snapshot.
func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// IsLoading is true exactly while the session is initializing.
func (s *SessionStore) IsLoading() bool {
	return s.Current().Status == SessionInitializing
}

// Transitions returns a copy of the append-only transition log.
func (s *SessionStore) Transitions() []SessionTransition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SessionTransition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

// Close releases the provider change subscription. Idempotent.
func (s *SessionStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// clear drops the current identity, leaving a ready session. No-op when
// nobody is signed in, so sign-out stays idempotent.
func (s *SessionStore) clear(cause string) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.applyLocked(cause, Session{Status: SessionReady})
}

func (s *SessionStore) handleChange(change AuthChange) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.seq++
	s.mu.Unlock()

	next := Session{Status: SessionReady}
	switch change.Event {
	case AuthEventSignedIn, AuthEventTokenRefreshed:
		next.Identity = change.Identity
	case AuthEventSignedOut:
		next.Identity = nil
	default:
		s.logger.Warn("session store ignoring unknown auth event", "event", change.Event)
		return
	}

	s.applyLocked(string(change.Event), next)
}

// applyLocked mutates the session and notifies listeners. Callers must
// hold emitMu. Readiness is monotonic: once ready, the session never
// regresses to initializing.
func (s *SessionStore) applyLocked(cause string, next Session) {
	s.mu.Lock()
	prev := s.session

	if next.Status == SessionInitializing && prev.Status == SessionReady {
		next.Status = SessionReady
	}

	if sameSession(prev, next) {
		s.mu.Unlock()
		return
	}

	s.session = next
	s.transitions = append(s.transitions, SessionTransition{
		Cause:      cause,
		From:       prev,
		To:         next,
		OccurredAt: s.now(),
	})
	s.mu.Unlock()

	for _, listener := range s.snapshotListeners() {
		listener(next)
	}
}

func (s *SessionStore) snapshotListeners() []SessionListener {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	// registration order
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}

	out := make([]SessionListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func (s *SessionStore) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	sink := normalizeActivitySink(s.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("session store activity sink error: %v", err)
	}
}

func sameSession(a, b Session) bool {
	return a.Status == b.Status && identityID(a.Identity) == identityID(b.Identity)
}

func identityID(identity Identity) string {
	if identity == nil {
		return ""
	}
	return identity.ID()
}
