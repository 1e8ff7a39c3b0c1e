// Package translation fans English content out to the other site languages.
package translation

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
)

var errSourceEdit = errors.New("the source language row is edited through the item itself")

// Translator translates a text between two languages.
type Translator interface {
	Translate(ctx context.Context, text string, source, target i18n.Lang) (string, error)
}

// Fields maps the field names of one record to their text.
type Fields map[string]string

// Names returns the field names in a stable order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f Fields) Clone() Fields {
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// State marks how the text of a language row was produced.
type State string

const (
	StateSource   State = "source"   // the English row
	StateAuto     State = "auto"     // every field machine translated
	StateFallback State = "fallback" // at least one field holds the English text
	StateManual   State = "manual"   // edited by an admin in that language
)

func (s State) Valid() bool {
	switch s {
	case StateSource, StateAuto, StateFallback, StateManual:
		return true
	}
	return false
}

// Result of one field translation, reported to the Observer.
type Result string

const (
	ResultTranslated Result = "translated"
	ResultFallback   Result = "fallback"
	ResultCopied     Result = "copied"
)

// Observer is notified of every field going through a fanout.
type Observer interface {
	FieldTranslated(lang i18n.Lang, result Result)
}

type nopObserver struct{}

func (nopObserver) FieldTranslated(i18n.Lang, Result) {}

// Row is one language row of a translatable item.
type Row interface {
	GroupKey() string
	Language() i18n.Lang
	TranslationState() State
}

// States indexes the translation state of `rows` by language.
func States[R Row](rows []R) map[i18n.Lang]State {
	states := make(map[i18n.Lang]State, len(rows))
	for _, r := range rows {
		states[r.Language()] = r.TranslationState()
	}
	return states
}

// Pick returns, for each source row, the row of the same group found in `localized`,
// or the source row itself. fallbacks[i] is true when rows[i] is the source row.
func Pick[R Row](sources, localized []R) (rows []R, fallbacks []bool) {
	byGroup := make(map[string]R, len(localized))
	for _, r := range localized {
		byGroup[r.GroupKey()] = r
	}
	rows = make([]R, 0, len(sources))
	fallbacks = make([]bool, 0, len(sources))
	for _, src := range sources {
		if r, ok := byGroup[src.GroupKey()]; ok {
			rows = append(rows, r)
			fallbacks = append(fallbacks, false)
		} else {
			rows = append(rows, src)
			fallbacks = append(fallbacks, true)
		}
	}
	return rows, fallbacks
}

// Find returns the row of `lang` among the rows of one group.
func Find[R Row](rows []R, lang i18n.Lang) (R, bool) {
	for _, r := range rows {
		if r.Language() == lang {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// SortByLang orders the rows of one group by i18n.All.
func SortByLang[R Row](rows []R) []R {
	sorted := make([]R, 0, len(rows))
	for _, lang := range i18n.All() {
		if r, ok := Find(rows, lang); ok {
			sorted = append(sorted, r)
		}
	}
	return sorted
}

// CheckTarget validates the language of an admin translation edit.
func CheckTarget(lang, source i18n.Lang) error {
	if !lang.IsSupported() {
		return core.NewValidationError(i18n.ErrUnsupported, core.FieldError{Field: "lang", Error: i18n.ErrUnsupported.Error()})
	}
	if lang == source {
		return core.NewValidationError(errSourceEdit, core.FieldError{Field: "lang", Error: errSourceEdit.Error()})
	}
	return nil
}
