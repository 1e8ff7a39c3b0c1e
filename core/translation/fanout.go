package translation

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/trezcool/khidmat/core/i18n"
)

// Fanout translates the fields of an English record into the other languages.
//
// Calls are sequential: languages in i18n order, then fields in name order.
// A failed call keeps the English text of that field. There are no retries.
type Fanout struct {
	translator Translator
	observer   Observer
	source     i18n.Lang
}

func NewFanout(translator Translator, observer Observer) *Fanout {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Fanout{
		translator: translator,
		observer:   observer,
		source:     i18n.Default,
	}
}

// Source is the language every record is authored in.
func (f *Fanout) Source() i18n.Lang { return f.source }

// Outcome is the translation of one record into one language.
type Outcome struct {
	Lang      i18n.Lang
	Fields    Fields
	Fallbacks []string // names of the fields holding the English text
	Err       error    // translation errors; never set when Fallbacks is empty
}

// State is the translation state the outcome should be persisted with.
func (o Outcome) State() State {
	if len(o.Fallbacks) > 0 {
		return StateFallback
	}
	return StateAuto
}

// Run translates `src` into every target language (all but the source language when none is given).
// It always returns one Outcome per target. Once ctx is done every remaining field falls back.
func (f *Fanout) Run(ctx context.Context, src Fields, targets ...i18n.Lang) []Outcome {
	if len(targets) == 0 {
		targets = i18n.Except(f.source)
	}
	names := src.Names()

	outcomes := make([]Outcome, 0, len(targets))
	for _, lang := range targets {
		out := Outcome{Lang: lang, Fields: make(Fields, len(src))}
		var ctxErrReported bool

		for _, name := range names {
			text := src[name]
			if lang == f.source || strings.TrimSpace(text) == "" {
				out.Fields[name] = text
				f.observer.FieldTranslated(lang, ResultCopied)
				continue
			}

			if err := ctx.Err(); err != nil {
				out.Fields[name] = text
				out.Fallbacks = append(out.Fallbacks, name)
				if !ctxErrReported {
					out.Err = multierr.Append(out.Err, errors.Wrapf(err, "translating %s", lang))
					ctxErrReported = true
				}
				f.observer.FieldTranslated(lang, ResultFallback)
				continue
			}

			translated, err := f.translator.Translate(ctx, text, f.source, lang)
			if err != nil || strings.TrimSpace(translated) == "" {
				if err == nil {
					err = errors.New("empty translation")
				}
				out.Fields[name] = text
				out.Fallbacks = append(out.Fallbacks, name)
				out.Err = multierr.Append(out.Err, errors.Wrapf(err, "translating %s.%s", lang, name))
				f.observer.FieldTranslated(lang, ResultFallback)
				continue
			}
			out.Fields[name] = translated
			f.observer.FieldTranslated(lang, ResultTranslated)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// SaveFunc persists the row of one language.
type SaveFunc func(ctx context.Context, lang i18n.Lang, fields Fields, state State) error

type SyncOptions struct {
	// Force retranslates rows edited by an admin.
	Force bool
	// Targets restricts the languages to sync; all but the source language when empty.
	Targets []i18n.Lang
}

// LangReport describes what Sync did for one language.
type LangReport struct {
	Lang      i18n.Lang `json:"lang"`
	State     State     `json:"state"`
	Fallbacks []string  `json:"fallbacks,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type Report struct {
	Languages []LangReport `json:"languages"`
}

// FallbackCount returns the number of languages saved with at least one English field.
func (r Report) FallbackCount() int {
	var n int
	for _, l := range r.Languages {
		if !l.Skipped && l.State == StateFallback {
			n++
		}
	}
	return n
}

func (r Report) Lang(lang i18n.Lang) (LangReport, bool) {
	for _, l := range r.Languages {
		if l.Lang == lang {
			return l, true
		}
	}
	return LangReport{}, false
}

// SyncError is returned by Sync when some language rows could not be saved.
// The source row and the other languages are persisted by then.
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string { return e.Err.Error() }

func (e *SyncError) Unwrap() error { return e.Err }

// IsSyncError reports whether err is, or wraps, a *SyncError.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}

// Sync translates `src` and saves one row per target language.
// Languages whose `existing` row is manual are skipped unless opts.Force is set.
// A failing save does not stop the other languages; the returned *SyncError aggregates every save error.
// When it is nil, every language that was not skipped has a row holding either its translation
// or the English text.
func Sync(ctx context.Context, f *Fanout, src Fields, existing map[i18n.Lang]State, opts SyncOptions, save SaveFunc) (Report, error) {
	targets := opts.Targets
	if len(targets) == 0 {
		targets = i18n.Except(f.source)
	}

	var (
		report Report
		errs   error
	)
	for _, lang := range targets {
		if lang == f.source {
			continue
		}
		if existing[lang] == StateManual && !opts.Force {
			report.Languages = append(report.Languages, LangReport{Lang: lang, State: StateManual, Skipped: true})
			continue
		}

		out := f.Run(ctx, src, lang)[0]
		lr := LangReport{Lang: lang, State: out.State(), Fallbacks: out.Fallbacks}
		if out.Err != nil {
			lr.Error = out.Err.Error()
		}
		if err := save(ctx, lang, out.Fields, out.State()); err != nil {
			err = errors.Wrapf(err, "saving %s translation", lang)
			lr.Error = err.Error()
			errs = multierr.Append(errs, err)
		}
		report.Languages = append(report.Languages, lr)
	}
	if errs != nil {
		return report, &SyncError{Err: errs}
	}
	return report, nil
}
