// Package messages holds the localized bot texts and renders announcements as Telegram HTML.
package messages

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/m3rciful/walkbot/core/telegram/format"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLocale is used when no locale is configured and for keys a locale lacks.
const DefaultLocale = "en"

// ErrUnknownLocale is returned by New for a locale without a catalog file.
var ErrUnknownLocale = errors.New("messages: unknown locale")

// Options configures a Catalog.
type Options struct {
	Locale string
	// Hashtag and Channel are rendered as tags under every post.
	Hashtag string
	Channel string
}

// Catalog resolves keys to texts of one locale, falling back to DefaultLocale.
type Catalog struct {
	locale   string
	texts    map[string]string
	fallback map[string]string
	tags     string
}

// Locales lists the embedded locale names.
func Locales() []string {
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func loadLocale(name string) (map[string]string, error) {
	data, err := localeFS.ReadFile(path.Join("locales", name+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocale, name)
	}
	if err != nil {
		return nil, err
	}
	texts := make(map[string]string)
	if err := yaml.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("messages: parse %s: %w", name, err)
	}
	return texts, nil
}

// New loads the catalog for opts.Locale.
func New(opts Options) (*Catalog, error) {
	locale := strings.ToLower(strings.TrimSpace(opts.Locale))
	if locale == "" {
		locale = DefaultLocale
	}
	fallback, err := loadLocale(DefaultLocale)
	if err != nil {
		return nil, err
	}
	texts := fallback
	if locale != DefaultLocale {
		if texts, err = loadLocale(locale); err != nil {
			return nil, err
		}
	}
	return &Catalog{
		locale:   locale,
		texts:    texts,
		fallback: fallback,
		tags:     format.Hashtags(opts.Hashtag, opts.Channel),
	}, nil
}

// Locale returns the resolved locale name.
func (c *Catalog) Locale() string {
	return c.locale
}

// Text formats the template stored under key with args. Unknown keys render as the key itself.
func (c *Catalog) Text(key string, args ...any) string {
	tmpl, ok := c.texts[key]
	if !ok {
		tmpl, ok = c.fallback[key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Matches reports whether input is the label stored under key, in this locale or the default one.
func (c *Catalog) Matches(key, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if label, ok := c.texts[key]; ok && strings.EqualFold(input, label) {
		return true
	}
	label, ok := c.fallback[key]
	return ok && strings.EqualFold(input, label)
}

// Labels returns the distinct labels stored under key, locale first, for alias matching.
func (c *Catalog) Labels(key string) []string {
	var out []string
	for _, src := range []map[string]string{c.texts, c.fallback} {
		label := strings.TrimSpace(src[key])
		if label != "" && !slices.Contains(out, label) {
			out = append(out, label)
		}
	}
	return out
}

// Missing lists keys the locale does not define itself.
func (c *Catalog) Missing() []string {
	var missing []string
	for _, key := range Keys {
		if strings.TrimSpace(c.texts[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
