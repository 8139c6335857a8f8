package collab

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Field names a mutable document field of a session.
type Field string

const (
	FieldCode     Field = "code"
	FieldLanguage Field = "language"
	FieldStdin    Field = "stdin"
)

// Event returns the broadcast event name for updates to the field.
func (f Field) Event() string { return string(f) + "-update" }

// Broker owns the session table. All mutation goes through its methods; the
// mutex preserves the single-writer semantics the protocol assumes.
type Broker struct {
	log             *zap.Logger
	idleThreshold   time.Duration
	sweepInterval   time.Duration
	maxParticipants int

	// now is injectable so sweep behavior is testable without waiting.
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	conns    map[string]string // connection ID -> session ID
}

// NewBroker creates an empty broker. idleThreshold is how long a session may
// go without activity before the sweeper deletes it; sweepInterval is how
// often RunSweeper checks; maxParticipants caps the room size (values < 1
// fall back to MaxParticipants).
func NewBroker(log *zap.Logger, idleThreshold, sweepInterval time.Duration, maxParticipants int) *Broker {
	if maxParticipants < 1 {
		maxParticipants = MaxParticipants
	}
	return &Broker{
		log:             log,
		idleThreshold:   idleThreshold,
		sweepInterval:   sweepInterval,
		maxParticipants: maxParticipants,
		now:             time.Now,
		sessions:        make(map[string]*session),
		conns:           make(map[string]string),
	}
}

// CreateResult is the enrollment info returned to a session's creator.
type CreateResult struct {
	SessionID    string        `json:"sessionId"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
}

// JoinResult is the full session snapshot returned to a late joiner. Existing
// members only get a participant-joined delta; the joiner needs everything.
type JoinResult struct {
	SessionID    string        `json:"sessionId"`
	Name         string        `json:"name"`
	Language     string        `json:"language"`
	Code         string        `json:"code"`
	Stdin        string        `json:"stdin"`
	Participants []Participant `json:"participants"`
}

// Create registers a new session with the caller as sole participant and
// binds the connection to it. A connection already in a session leaves it
// first.
func (b *Broker) Create(connID string, sender Sender, language, code, stdin string) (*CreateResult, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	name := randomName()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.leaveLocked(connID)

	now := b.now()
	s := &session{
		id:           id,
		language:     language,
		code:         code,
		stdin:        stdin,
		participants: make(map[string]*member),
		createdAt:    now,
		lastActivity: now,
	}
	s.participants[connID] = &member{
		Participant: Participant{SocketID: connID, Name: name, JoinedAt: now},
		sender:      sender,
	}
	b.sessions[id] = s
	b.conns[connID] = id

	b.log.Info("session created",
		zap.String("session_id", id),
		zap.String("participant", name))

	return &CreateResult{SessionID: id, Name: name, Participants: s.snapshot()}, nil
}

// Join adds the connection to an existing session and notifies the other
// participants. Returns ErrSessionNotFound or ErrSessionFull.
func (b *Broker) Join(connID string, sender Sender, sessionID string) (*JoinResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if len(s.participants) >= b.maxParticipants {
		return nil, ErrSessionFull
	}

	// A rejoin of the connection's own session must not pass through
	// leaveLocked: removing the sole participant would delete the session
	// out from under us. The entry is simply overwritten below.
	if b.conns[connID] != sessionID {
		b.leaveLocked(connID)
	}

	now := b.now()
	name := randomName()
	p := Participant{SocketID: connID, Name: name, JoinedAt: now}
	s.participants[connID] = &member{Participant: p, sender: sender}
	s.lastActivity = now
	b.conns[connID] = sessionID

	s.broadcast(connID, "participant-joined", p)

	b.log.Info("participant joined",
		zap.String("session_id", sessionID),
		zap.String("participant", name))

	return &JoinResult{
		SessionID:    sessionID,
		Name:         name,
		Language:     s.language,
		Code:         s.code,
		Stdin:        s.stdin,
		Participants: s.snapshot(),
	}, nil
}

// Update applies a field edit and relays it to the rest of the room. It is
// fire-and-forget: a connection with no live session (never joined, or swept
// away) is silently ignored, since that is almost always a race against a
// disconnect or the sweeper rather than a client bug. Concurrent edits are
// last-write-wins; there is no merge layer.
func (b *Broker) Update(connID string, field Field, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, m := b.boundSessionLocked(connID)
	if s == nil {
		return
	}

	switch field {
	case FieldCode:
		s.code = value
	case FieldLanguage:
		s.language = value
	case FieldStdin:
		s.stdin = value
	default:
		return
	}
	s.lastActivity = b.now()

	s.broadcast(connID, field.Event(), map[string]string{
		string(field): value,
		"updatedBy":   m.Name,
	})
}

// Leave removes the connection from its session, tells the remaining members,
// and deletes the session when it is now empty. Safe to call for connections
// that were never in a session.
func (b *Broker) Leave(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leaveLocked(connID)
}

func (b *Broker) leaveLocked(connID string) {
	s, m := b.boundSessionLocked(connID)
	delete(b.conns, connID)
	if s == nil {
		return
	}

	delete(s.participants, connID)
	s.broadcast(connID, "participant-left", map[string]string{
		"socketId": connID,
		"name":     m.Name,
	})

	if len(s.participants) == 0 {
		delete(b.sessions, s.id)
		b.log.Info("deleted empty session", zap.String("session_id", s.id))
	}
}

// boundSessionLocked resolves the caller's session and membership, if any.
func (b *Broker) boundSessionLocked(connID string) (*session, *member) {
	sessionID, ok := b.conns[connID]
	if !ok {
		return nil, nil
	}
	s, ok := b.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	m, ok := s.participants[connID]
	if !ok {
		return nil, nil
	}
	return s, m
}

// SessionCount reports the number of live sessions.
func (b *Broker) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// SweepOnce deletes every session idle for longer than the threshold,
// connected participants or not; this bounds memory growth from tabs left
// open with no edits. Deletion is silent: participants find out when their
// next action no-ops.
func (b *Broker) SweepOnce() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for id, s := range b.sessions {
		if now.Sub(s.lastActivity) <= b.idleThreshold {
			continue
		}
		for connID := range s.participants {
			delete(b.conns, connID)
		}
		delete(b.sessions, id)
		removed++
		b.log.Info("swept inactive session", zap.String("session_id", id))
	}
	return removed
}

// RunSweeper blocks, sweeping at the configured interval until ctx ends.
func (b *Broker) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.SweepOnce()
		}
	}
}
