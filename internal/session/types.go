// Package session drives the per-user dialogue that collects a walk draft.
package session

import (
	"errors"

	"github.com/m3rciful/walkbot/internal/walk"
)

// State is the dialogue step a user is in.
type State string

const (
	StateIdle        State = "idle"
	StateTopic       State = "topic"
	StatePlace       State = "place"
	StateDatetime    State = "datetime"
	StateContact     State = "contact"
	StateDescription State = "description"
	StatePhoto       State = "photo"
	StatePreview     State = "preview"
)

// sequence is the forward order of the dialogue.
var sequence = []State{StateTopic, StatePlace, StateDatetime, StateContact, StateDescription, StatePhoto, StatePreview}

var stateFields = map[State]walk.Field{
	StateTopic:       walk.FieldTopic,
	StatePlace:       walk.FieldPlace,
	StateDatetime:    walk.FieldDatetime,
	StateContact:     walk.FieldContact,
	StateDescription: walk.FieldDescription,
	StatePhoto:       walk.FieldPhoto,
}

// ErrUnknownState is returned by SetState for values outside the enum.
var ErrUnknownState = errors.New("session: unknown state")

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	if s == StateIdle {
		return true
	}
	for _, st := range sequence {
		if st == s {
			return true
		}
	}
	return false
}

// Field returns the draft field collected in s; data-entry states only.
func (s State) Field() (walk.Field, bool) {
	f, ok := stateFields[s]
	return f, ok
}

// Active reports whether a dialogue is running.
func (s State) Active() bool {
	return s != StateIdle && s.Valid()
}

func (s State) next() State {
	for i, st := range sequence {
		if st == s && i+1 < len(sequence) {
			return sequence[i+1]
		}
	}
	return StatePreview
}

// StateFor returns the data-entry state that collects f.
func StateFor(f walk.Field) (State, bool) {
	for st, field := range stateFields {
		if field == f {
			return st, true
		}
	}
	return "", false
}

// Session is the dialogue state of one user.
type Session struct {
	State State      `json:"state"`
	Draft walk.Draft `json:"draft"`
	// Editing sends the next accepted field straight back to preview.
	Editing bool `json:"editing,omitempty"`
}

func (s Session) isBlank() bool {
	return s.State == StateIdle && !s.Editing && s.Draft.IsEmpty()
}
