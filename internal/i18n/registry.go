// Package i18n provides an immutable registry of locale dictionaries with dot-path keys
// validated against a source locale and an explicit fallback chain.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"
)

//go:embed locales/*.json
var localesFS embed.FS

// ErrUnknownKey indicates a key path that does not exist in the source dictionary.
var ErrUnknownKey = errors.New("unknown translation key")

// ErrUnknownLocale indicates a locale that has no dictionary.
var ErrUnknownLocale = errors.New("unknown locale")

// Locale is a language tag such as "en" or "es-MX".
type Locale string

// Base returns the language part of a regional tag ("es-MX" -> "es").
func (l Locale) Base() Locale {
	if i := strings.IndexAny(string(l), "-_"); i > 0 {
		return l[:i]
	}
	return l
}

// Dictionary is a decoded locale file: nested objects, strings and arrays.
type Dictionary map[string]any

// Options configures a Registry.
type Options struct {
	// Source is the locale whose keys are authoritative.
	Source Locale
	// Fallbacks are tried, in order, after the requested locale and its base language.
	Fallbacks []Locale
	// Dictionaries maps each locale to its content.
	Dictionaries map[Locale]Dictionary
}

// Registry resolves translations. It is immutable after construction and safe for
// concurrent use.
type Registry struct {
	source    Locale
	fallbacks []Locale
	dicts     map[Locale]Dictionary
	keys      map[Key]struct{}
}

// NewRegistry validates opts and indexes the source dictionary's keys.
func NewRegistry(opts Options) (*Registry, error) {
	src, ok := opts.Dictionaries[opts.Source]
	if !ok {
		return nil, fmt.Errorf("%w: source %q", ErrUnknownLocale, opts.Source)
	}
	for _, fb := range opts.Fallbacks {
		if _, ok := opts.Dictionaries[fb]; !ok {
			return nil, fmt.Errorf("%w: fallback %q", ErrUnknownLocale, fb)
		}
	}

	r := &Registry{
		source:    opts.Source,
		fallbacks: slices.Clone(opts.Fallbacks),
		dicts:     make(map[Locale]Dictionary, len(opts.Dictionaries)),
		keys:      make(map[Key]struct{}),
	}
	for l, d := range opts.Dictionaries {
		r.dicts[l] = d
	}
	collectKeys(map[string]any(src), "", r.keys)

	missing := lo.Filter(knownKeys, func(k Key, _ int) bool {
		_, ok := r.keys[k]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: source %q lacks %v", ErrUnknownKey, opts.Source, missing)
	}
	return r, nil
}

// Load builds a registry from the embedded locale files with "en" as source and
// fallback.
func Load() (*Registry, error) {
	dicts, err := ReadDictionaries(localesFS, "locales")
	if err != nil {
		return nil, err
	}
	return NewRegistry(Options{
		Source:       "en",
		Fallbacks:    []Locale{"en"},
		Dictionaries: dicts,
	})
}

// ReadDictionaries decodes every *.json file in dir; the file stem is the locale.
func ReadDictionaries(fsys fs.FS, dir string) (map[Locale]Dictionary, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading locales directory: %w", err)
	}

	dicts := make(map[Locale]Dictionary)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		var d Dictionary
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		dicts[Locale(strings.TrimSuffix(e.Name(), ".json"))] = d
	}
	return dicts, nil
}

// Locales lists the registered locales in sorted order.
func (r *Registry) Locales() []Locale {
	locales := lo.Keys(r.dicts)
	slices.Sort(locales)
	return locales
}

// Has reports whether locale has a dictionary.
func (r *Registry) Has(locale Locale) bool {
	_, ok := r.dicts[locale]
	return ok
}

// Key validates path against the source dictionary.
func (r *Registry) Key(path string) (Key, error) {
	k := Key(path)
	if _, ok := r.keys[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, path)
	}
	return k, nil
}

// MustKey is Key that panics on an unknown path.
func (r *Registry) MustKey(path string) Key {
	k, err := r.Key(path)
	if err != nil {
		panic(err)
	}
	return k
}

// Keys returns every valid key in sorted order.
func (r *Registry) Keys() []Key {
	keys := lo.Keys(r.keys)
	slices.Sort(keys)
	return keys
}

// chain is the lookup order for locale: itself, its base language, the configured
// fallbacks, then the source.
func (r *Registry) chain(locale Locale) []Locale {
	chain := append([]Locale{locale, locale.Base()}, r.fallbacks...)
	chain = append(chain, r.source)
	return lo.Filter(lo.Uniq(chain), func(l Locale, _ int) bool {
		return r.Has(l)
	})
}

// resolve walks the fallback chain and returns the first node found for path.
func (r *Registry) resolve(locale Locale, path string) (any, bool) {
	for _, l := range r.chain(locale) {
		if v, ok := lookup(r.dicts[l], path); ok {
			return v, true
		}
	}
	return nil, false
}

func lookup(d Dictionary, path string) (any, bool) {
	var node any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// collectKeys records every leaf path and every plural node.
func collectKeys(m map[string]any, prefix string, keys map[Key]struct{}) {
	for k, v := range m {
		p := k
		if prefix != "" {
			p = prefix + "." + k
		}
		child, ok := v.(map[string]any)
		if !ok {
			keys[Key(p)] = struct{}{}
			continue
		}
		if isPlural(child) {
			keys[Key(p)] = struct{}{}
		}
		collectKeys(child, p, keys)
	}
}

func isPlural(m map[string]any) bool {
	_, other := m["other"]
	_, one := m["one"]
	return other && one
}
