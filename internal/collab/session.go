// Package collab implements the shared-editor sessions behind the "Invite"
// button: an in-memory table of sessions, each holding one document
// (code + language + stdin) and up to ten participants, with edits relayed
// to everyone else in the room.
package collab

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// MaxParticipants caps the room size.
const MaxParticipants = 10

var (
	// ErrSessionNotFound is returned when joining an unknown or expired session.
	ErrSessionNotFound = errors.New("Session not found or expired")
	// ErrSessionFull is returned when a session already has MaxParticipants.
	ErrSessionFull = errors.New("Session is full (max 10 participants)")
)

// Participant is one connected member of a session as exposed to clients.
type Participant struct {
	SocketID string    `json:"socketId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Sender delivers one event to a single connection. Implementations must not
// block: the broker calls Send while holding its lock.
type Sender interface {
	Send(event string, data any)
}

// member pairs the public participant info with its outbound channel.
type member struct {
	Participant
	sender Sender
}

// session is the broker-private state of one collaboration room.
type session struct {
	id           string
	language     string
	code         string
	stdin        string
	participants map[string]*member
	createdAt    time.Time
	lastActivity time.Time
}

func (s *session) snapshot() []Participant {
	out := make([]Participant, 0, len(s.participants))
	for _, m := range s.participants {
		out = append(out, m.Participant)
	}
	return out
}

// broadcast sends an event to every participant except the originator.
func (s *session) broadcast(exceptConnID, event string, data any) {
	for id, m := range s.participants {
		if id == exceptConnID {
			continue
		}
		m.sender.Send(event, data)
	}
}

// sessionIDAlphabet matches the URL-safe alphabet nanoid uses; 10 characters
// give 64^10 possible IDs, which is the whole access-control story for a
// session, so the bytes come from crypto/rand.
const (
	sessionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	sessionIDLength   = 10
)

// newSessionID generates an opaque 10-character session identifier.
func newSessionID() (string, error) {
	id := make([]byte, sessionIDLength)
	max := big.NewInt(int64(len(sessionIDAlphabet)))
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}
		id[i] = sessionIDAlphabet[n.Int64()]
	}
	return string(id), nil
}
