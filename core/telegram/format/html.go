// Package format builds Telegram HTML fragments from untrusted text.
package format

import (
	"html"
	"strings"
	"unicode/utf16"
)

// CaptionLimit is Telegram's cap on a media caption, counted by VisibleLen.
const CaptionLimit = 1024

// EscapeHTML escapes text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b>.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}

// Link renders an anchor; an empty href degrades to escaped text.
func Link(href, text string) string {
	if strings.TrimSpace(href) == "" {
		return EscapeHTML(text)
	}
	return `<a href="` + EscapeHTML(href) + `">` + EscapeHTML(text) + "</a>"
}

// Hashtags renders "#a #b", dropping empty tags and leading '#' or '@'.
func Hashtags(tags ...string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimLeft(strings.TrimSpace(t), "#@")
		if t == "" {
			continue
		}
		out = append(out, "#"+t)
	}
	return strings.Join(out, " ")
}

// VisibleLen counts what Telegram measures in an HTML message: UTF-16 code units of the text
// left after tags are stripped and entities decoded.
func VisibleLen(htmlText string) int {
	var b strings.Builder
	inTag := false
	for _, r := range htmlText {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return UTF16Len(html.UnescapeString(b.String()))
}

// UTF16Len is the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Clip shortens plain text to at most max UTF-16 units, marking a cut with "…".
func Clip(s string, max int) string {
	if UTF16Len(s) <= max {
		return s
	}
	if max <= 1 {
		return ""
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := utf16.RuneLen(r)
		if used+w > max-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return strings.TrimRight(b.String(), " \n") + "…"
}
