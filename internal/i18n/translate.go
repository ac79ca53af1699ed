package i18n

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Key is a dot-separated path into the source dictionary. Obtain keys from
// Registry.Key or use the constants below, which NewRegistry checks.
type Key string

const (
	KeySetAnAmount        Key = "common.setAnAmount"
	KeyNext               Key = "common.next"
	KeySats               Key = "common.sats"
	KeyPhoneInitHeader    Key = "PhoneInit.header"
	KeyPhoneInitText      Key = "PhoneInit.text"
	KeyPhoneInitPhone     Key = "PhoneInit.placeholder"
	KeyPhoneInitInvalid   Key = "PhoneInit.invalid"
	KeyPhoneVerifHeader   Key = "PhoneVerif.header"
	KeyPhoneVerifText     Key = "PhoneVerif.text"
	KeyPhoneVerifInvalid  Key = "PhoneVerif.invalid"
	KeyAmountRateHint     Key = "AmountInput.rateHint"
	KeyAmountSwitchTarget Key = "AmountInput.switchCurrency"
)

var knownKeys = []Key{
	KeySetAnAmount,
	KeyNext,
	KeySats,
	KeyPhoneInitHeader,
	KeyPhoneInitText,
	KeyPhoneInitPhone,
	KeyPhoneInitInvalid,
	KeyPhoneVerifHeader,
	KeyPhoneVerifText,
	KeyPhoneVerifInvalid,
	KeyAmountRateHint,
	KeyAmountSwitchTarget,
}

var placeholderRE = regexp.MustCompile(`\{\{(\w+)\}\}|%\{(\w+)\}`)

// Translate returns the text for key in locale, walking the fallback chain.
// A "count" option selects the zero/one/other branch of plural entries.
// Unresolvable keys yield a `[missing "<locale>.<key>" translation]` marker.
func (r *Registry) Translate(locale Locale, key Key, opts map[string]any) string {
	node, ok := r.resolve(locale, string(key))
	if !ok {
		return missing(locale, string(key))
	}

	switch v := node.(type) {
	case string:
		return interpolate(v, opts)
	case map[string]any:
		if s, ok := pluralize(v, opts); ok {
			return interpolate(s, opts)
		}
	}
	return missing(locale, string(key))
}

func missing(locale Locale, key string) string {
	return fmt.Sprintf("[missing %q translation]", string(locale)+"."+key)
}

func interpolate(s string, opts map[string]any) string {
	if len(opts) == 0 {
		return s
	}
	return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
		groups := placeholderRE.FindStringSubmatch(m)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		v, ok := opts[name]
		if !ok {
			return fmt.Sprintf("[missing %q value]", m)
		}
		return fmt.Sprint(v)
	})
}

func pluralize(node map[string]any, opts map[string]any) (string, bool) {
	branch := "other"
	count, ok := toInt(opts["count"])
	switch {
	case !ok:
	case count == 0:
		if _, ok := node["zero"]; ok {
			branch = "zero"
		}
	case count == 1:
		branch = "one"
	}
	s, ok := node[branch].(string)
	return s, ok
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// Translator is a Registry bound to one locale.
type Translator struct {
	registry *Registry
	locale   Locale
}

// Translator binds r to locale.
func (r *Registry) Translator(locale Locale) Translator {
	return Translator{registry: r, locale: locale}
}

// Locale returns the bound locale.
func (t Translator) Locale() Locale { return t.locale }

// T translates key in the bound locale.
func (t Translator) T(key Key, opts map[string]any) string {
	return t.registry.Translate(t.locale, key, opts)
}

// QuizQuestion is one card of structured quiz content.
type QuizQuestion struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
	Feedback []string `json:"feedback"`
}

// QuizSection groups quiz questions under a title.
type QuizSection struct {
	Title   string         `json:"title"`
	Content []QuizQuestion `json:"content"`
}

// Content is the result of a quiz lookup: either plain text or structured sections.
type Content struct {
	Text     string        `json:"text,omitempty"`
	Sections []QuizSection `json:"sections,omitempty"`
	Question *QuizQuestion `json:"question,omitempty"`
}

// QuizSections looks up structured quiz content. An empty path yields false, as does a
// path that resolves to nothing in the fallback chain. String nodes are interpolated;
// arrays decode to sections and objects to a single question.
func (r *Registry) QuizSections(locale Locale, path string, opts map[string]any) (Content, bool) {
	if path == "" {
		return Content{}, false
	}
	node, ok := r.resolve(locale, path)
	if !ok {
		return Content{}, false
	}

	switch v := node.(type) {
	case string:
		return Content{Text: interpolate(v, opts)}, true
	case []any:
		var sections []QuizSection
		if err := remarshal(v, &sections); err != nil {
			return Content{}, false
		}
		return Content{Sections: sections}, true
	case map[string]any:
		var q QuizQuestion
		if err := remarshal(v, &q); err != nil {
			return Content{}, false
		}
		return Content{Question: &q}, true
	}
	return Content{Text: fmt.Sprint(node)}, true
}

func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding quiz content: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding quiz content: %w", err)
	}
	return nil
}
