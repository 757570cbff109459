package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/walkbot/internal/walk"
)

// Field limits in characters (runes), inclusive.
const (
	MaxTopicLen       = 100
	MaxPlaceLen       = 200
	MaxContactLen     = 100
	MaxDescriptionLen = 500
)

// SkipWord is accepted in the photo step regardless of case.
const SkipWord = "skip"

// InputKind classifies an inbound user event.
type InputKind int

const (
	InputText InputKind = iota
	InputLocation
	InputPhoto
	InputVoice
	InputDocument
	InputCommand
)

func (k InputKind) String() string {
	switch k {
	case InputText:
		return "text"
	case InputLocation:
		return "location"
	case InputPhoto:
		return "photo"
	case InputVoice:
		return "voice"
	case InputDocument:
		return "document"
	case InputCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Input is one inbound event from the user.
type Input struct {
	Kind InputKind
	Text string
	// Place is set for InputLocation.
	Place walk.Place
	// FileID is set for InputPhoto, InputVoice and InputDocument.
	FileID string
	// Skip marks text that matched a localized skip label.
	Skip bool
}

// TextInput classifies raw message text; a leading "/" makes it a command.
func TextInput(text string) Input {
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return Input{Kind: InputCommand, Text: text}
	}
	return Input{Kind: InputText, Text: text}
}

// LocationInput wraps a shared location.
func LocationInput(lat, lon float64) Input {
	return Input{Kind: InputLocation, Place: walk.GeoPlace(lat, lon)}
}

// PhotoInput wraps a photo attachment.
func PhotoInput(fileID string) Input {
	return Input{Kind: InputPhoto, FileID: fileID}
}

// VoiceInput wraps a voice message.
func VoiceInput(fileID string) Input {
	return Input{Kind: InputVoice, FileID: fileID}
}

// DocumentInput wraps a file attachment; no field accepts one.
func DocumentInput(fileID string) Input {
	return Input{Kind: InputDocument, FileID: fileID}
}

// Reason explains a rejected input.
type Reason string

const (
	ReasonTooLong      Reason = "too_long"
	ReasonEmpty        Reason = "empty"
	ReasonTextExpected Reason = "text_expected"
	ReasonWrongInput   Reason = "wrong_input"
	ReasonBadLocation  Reason = "bad_location"
)

// ValidationError reports input that does not fit the current field. The state is unchanged.
type ValidationError struct {
	Field  walk.Field
	Reason Reason
	Length int
	Limit  int
}

func (e *ValidationError) Error() string {
	if e.Reason == ReasonTooLong {
		return fmt.Sprintf("session: %s: %s (%d > %d)", e.Field, e.Reason, e.Length, e.Limit)
	}
	return fmt.Sprintf("session: %s: %s", e.Field, e.Reason)
}

var (
	// ErrIgnored is returned for input the dialogue does not consume: commands, or anything
	// outside a data-entry state.
	ErrIgnored = errors.New("session: input not consumed")
	// ErrNotInPreview is returned by Edit and Submit outside the preview step.
	ErrNotInPreview = errors.New("session: not in preview")
)

// Step is the outcome of an accepted input.
type Step struct {
	Field        walk.Field
	Value        any
	Next         State
	ClearEditing bool
}

// Transition validates in against the field collected in state and computes the next state.
// It has no side effects.
func Transition(state State, editing bool, in Input) (Step, error) {
	if in.Kind == InputCommand {
		return Step{}, ErrIgnored
	}
	field, ok := state.Field()
	if !ok {
		return Step{}, ErrIgnored
	}
	value, err := accept(field, in)
	if err != nil {
		return Step{}, err
	}
	return Step{Field: field, Value: value, Next: advance(state, editing), ClearEditing: editing}, nil
}

// advance is the single place where editing short-circuits the sequence.
func advance(state State, editing bool) State {
	if editing {
		return StatePreview
	}
	return state.next()
}

func accept(field walk.Field, in Input) (any, error) {
	switch field {
	case walk.FieldTopic:
		return boundedText(field, in, MaxTopicLen)
	case walk.FieldContact:
		return boundedText(field, in, MaxContactLen)
	case walk.FieldDescription:
		return boundedText(field, in, MaxDescriptionLen)
	case walk.FieldPlace:
		if in.Kind == InputLocation {
			if err := in.Place.Validate(); err != nil {
				return nil, &ValidationError{Field: field, Reason: ReasonBadLocation}
			}
			return in.Place, nil
		}
		text, err := boundedText(field, in, MaxPlaceLen)
		if err != nil {
			return nil, err
		}
		return walk.TextPlace(text), nil
	case walk.FieldDatetime:
		if in.Kind != InputText {
			return nil, &ValidationError{Field: field, Reason: ReasonTextExpected}
		}
		return in.Text, nil
	case walk.FieldPhoto:
		switch {
		case in.Kind == InputPhoto && in.FileID != "":
			return in.FileID, nil
		case in.Kind == InputText && (in.Skip || strings.EqualFold(strings.TrimSpace(in.Text), SkipWord)):
			return "", nil
		}
		return nil, &ValidationError{Field: field, Reason: ReasonWrongInput}
	}
	return nil, fmt.Errorf("%w: %q", walk.ErrUnknownField, field)
}

func boundedText(field walk.Field, in Input, limit int) (string, error) {
	if in.Kind != InputText {
		return "", &ValidationError{Field: field, Reason: ReasonTextExpected}
	}
	text := strings.TrimSpace(in.Text)
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return "", &ValidationError{Field: field, Reason: ReasonEmpty, Limit: limit}
	}
	if n > limit {
		return "", &ValidationError{Field: field, Reason: ReasonTooLong, Length: n, Limit: limit}
	}
	return text, nil
}
