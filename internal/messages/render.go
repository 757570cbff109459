package messages

import (
	"strings"

	"github.com/m3rciful/walkbot/core/telegram/format"
	"github.com/m3rciful/walkbot/internal/session"
	"github.com/m3rciful/walkbot/internal/walk"
)

// Draft renders d as the HTML body shared by the preview, the moderator copy and the channel post.
func (c *Catalog) Draft(d walk.Draft) string {
	var b strings.Builder
	b.WriteString("📍 ")
	b.WriteString(format.Bold(d.Topic))
	b.WriteString("\n\n")
	if d.Description != "" {
		b.WriteString(format.EscapeHTML(d.Description))
		b.WriteString("\n\n")
	}
	switch d.Place.Kind {
	case walk.PlaceGeo:
		c.line(&b, "📫", KeyPostPlace, format.Link(d.Place.MapsURL(), d.Place.Coordinates()))
	case walk.PlaceText:
		c.line(&b, "📫", KeyPostPlace, format.EscapeHTML(d.Place.Text))
	}
	c.line(&b, "🗓", KeyPostWhen, format.EscapeHTML(d.Datetime))
	c.line(&b, "📌", KeyPostContact, format.EscapeHTML(d.Contact))
	out := strings.TrimRight(b.String(), "\n")
	if c.tags != "" {
		out += "\n\n" + c.tags
	}
	return out
}

func (c *Catalog) line(b *strings.Builder, icon, key, value string) {
	b.WriteString(icon)
	b.WriteString(" ")
	b.WriteString(c.Text(key))
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// Announcement renders a submitted announcement. With a photo the body becomes the caption,
// so it is fitted to format.CaptionLimit.
func (c *Catalog) Announcement(a walk.Announcement) string {
	if a.HasPhoto() {
		return c.Caption(a.Draft)
	}
	return c.Draft(a.Draft)
}

// Caption renders d within format.CaptionLimit, clipping the description first and then the
// datetime, the two fields that can outgrow it.
func (c *Catalog) Caption(d walk.Draft) string {
	out := c.Draft(d)
	for _, field := range []*string{&d.Description, &d.Datetime} {
		over := format.VisibleLen(out) - format.CaptionLimit
		if over <= 0 {
			break
		}
		*field = format.Clip(*field, format.UTF16Len(*field)-over)
		out = c.Draft(d)
	}
	return out
}

// Preview prefixes the rendered draft with the preview header.
func (c *Catalog) Preview(d walk.Draft) string {
	return c.Text(KeyPreviewHeader) + "\n\n" + c.Draft(d)
}

// Listing renders an announcement for /myevents with its status line.
func (c *Catalog) Listing(a walk.Announcement) string {
	return c.Draft(a.Draft) + "\n" + c.Text(KeyEventsStatus, c.Status(a.Status))
}

// Status returns the localized status label.
func (c *Catalog) Status(s walk.Status) string {
	switch s {
	case walk.StatusPending:
		return c.Text(KeyStatusPending)
	case walk.StatusPublished:
		return c.Text(KeyStatusPublished)
	case walk.StatusRejected:
		return c.Text(KeyStatusRejected)
	}
	return string(s)
}

// Prompt returns the question asked on entering state; editing selects the re-prompt wording.
func (c *Catalog) Prompt(state session.State, editing bool) string {
	keys, ok := prompts[state]
	if !ok {
		return ""
	}
	if editing {
		return c.Text(keys[1])
	}
	return c.Text(keys[0])
}

var prompts = map[session.State][2]string{
	session.StateTopic:       {KeyPromptTopic, KeyRepromptTopic},
	session.StatePlace:       {KeyPromptPlace, KeyRepromptPlace},
	session.StateDatetime:    {KeyPromptDatetime, KeyRepromptDatetime},
	session.StateContact:     {KeyPromptContact, KeyRepromptContact},
	session.StateDescription: {KeyPromptDescription, KeyRepromptDescription},
	session.StatePhoto:       {KeyPromptPhoto, KeyRepromptPhoto},
}

// Invalid explains a rejected input and restates the field rule.
func (c *Catalog) Invalid(err *session.ValidationError) string {
	switch err.Reason {
	case session.ReasonTooLong:
		if key, ok := tooLong[err.Field]; ok {
			return c.Text(key, err.Length, err.Limit)
		}
	case session.ReasonEmpty:
		return c.Text(KeyEmptyText)
	case session.ReasonBadLocation:
		return c.Text(KeyBadLocation)
	case session.ReasonWrongInput:
		return c.Text(KeyPhotoWrong)
	case session.ReasonTextExpected:
		if err.Field == walk.FieldPlace {
			return c.Text(KeyPlaceExpected)
		}
		return c.Text(KeyTextExpected)
	}
	return c.Text(KeyTextExpected)
}

var tooLong = map[walk.Field]string{
	walk.FieldTopic:       KeyTooLongTopic,
	walk.FieldPlace:       KeyTooLongPlace,
	walk.FieldContact:     KeyTooLongContact,
	walk.FieldDescription: KeyTooLongDescription,
}
