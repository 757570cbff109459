package walk

import (
	"errors"
	"fmt"
)

// Field names a single draft attribute.
type Field string

const (
	FieldTopic       Field = "topic"
	FieldPlace       Field = "place"
	FieldDatetime    Field = "datetime"
	FieldContact     Field = "contact"
	FieldDescription Field = "description"
	FieldPhoto       Field = "photo"
)

// Fields lists draft fields in dialogue order.
var Fields = []Field{FieldTopic, FieldPlace, FieldDatetime, FieldContact, FieldDescription, FieldPhoto}

// ErrUnknownField is returned by Draft.Set for names outside Fields.
var ErrUnknownField = errors.New("walk: unknown draft field")

// ParseField maps a raw name (for example from callback data) to a Field.
func ParseField(name string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Draft holds the fields collected so far. The zero value is an empty draft.
type Draft struct {
	Topic       string `json:"topic,omitempty"`
	Place       Place  `json:"place"`
	Datetime    string `json:"datetime,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Description string `json:"description,omitempty"`
	// Photo is a Telegram file id; empty means no photo.
	Photo string `json:"photo,omitempty"`
}

// Set stores value into the named field. Values are type-checked, not validated.
func (d *Draft) Set(field Field, value any) error {
	switch field {
	case FieldPlace:
		switch v := value.(type) {
		case Place:
			d.Place = v
		case string:
			d.Place = TextPlace(v)
		default:
			return fmt.Errorf("walk: field %s: unexpected value type %T", field, value)
		}
		return nil
	case FieldTopic, FieldDatetime, FieldContact, FieldDescription, FieldPhoto:
		s, ok := value.(string)
		if !ok && value != nil {
			return fmt.Errorf("walk: field %s: unexpected value type %T", field, value)
		}
		switch field {
		case FieldTopic:
			d.Topic = s
		case FieldDatetime:
			d.Datetime = s
		case FieldContact:
			d.Contact = s
		case FieldDescription:
			d.Description = s
		case FieldPhoto:
			d.Photo = s
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// HasPhoto reports whether a photo is attached.
func (d Draft) HasPhoto() bool {
	return d.Photo != ""
}

// IsEmpty reports whether no field has been filled in.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}
