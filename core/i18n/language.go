// Package i18n holds the languages the site is published in, the language
// negotiation of incoming requests and the static UI dictionary.
package i18n

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// Lang is a supported language code (ISO 639-1).
type Lang string

const (
	English Lang = "en"
	Arabic  Lang = "ar"
	Urdu    Lang = "ur"
	French  Lang = "fr"
	Russian Lang = "ru"
	Hindi   Lang = "hi"
	Chinese Lang = "zh"

	// Default is the fallback language of every lookup and the source of every translation.
	Default = English
)

// Dir is the writing direction of a language.
type Dir string

const (
	LTR Dir = "ltr"
	RTL Dir = "rtl"
)

var ErrUnsupported = errors.New("unsupported language")

var (
	// English first: the matcher falls back to the first tag.
	supported = []Lang{English, Arabic, Urdu, French, Russian, Hindi, Chinese}

	names = map[Lang]string{
		English: "English",
		Arabic:  "العربية",
		Urdu:    "اردو",
		French:  "Français",
		Russian: "Русский",
		Hindi:   "हिन्दी",
		Chinese: "中文",
	}

	rtl = map[Lang]bool{Arabic: true, Urdu: true}

	matcher = language.NewMatcher(tags())
)

func tags() []language.Tag {
	tt := make([]language.Tag, 0, len(supported))
	for _, l := range supported {
		tt = append(tt, language.Make(string(l)))
	}
	return tt
}

// All returns every supported language, Default first.
func All() []Lang {
	all := make([]Lang, len(supported))
	copy(all, supported)
	return all
}

// Targets returns every supported language except Default.
func Targets() []Lang {
	return Except(Default)
}

// Except returns the supported languages minus `excluded`.
func Except(excluded ...Lang) []Lang {
	langs := make([]Lang, 0, len(supported))
outer:
	for _, l := range supported {
		for _, ex := range excluded {
			if l == ex {
				continue outer
			}
		}
		langs = append(langs, l)
	}
	return langs
}

// Parse accepts a language code or a BCP 47 tag ("ar-AE", "ZH_hans") and returns the supported Lang.
func Parse(code string) (Lang, error) {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return "", ErrUnsupported
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", errors.Wrapf(ErrUnsupported, "%q", code)
	}
	base, _ := tag.Base()
	lang := Lang(base.String())
	if !lang.IsSupported() {
		return "", errors.Wrapf(ErrUnsupported, "%q", code)
	}
	return lang, nil
}

// MustParse is like Parse but returns Default for unsupported codes.
func MustParse(code string) Lang {
	if lang, err := Parse(code); err == nil {
		return lang
	}
	return Default
}

// Match negotiates the best supported language of an Accept-Language header value.
func Match(acceptLanguage string) Lang {
	tt, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tt) == 0 {
		return Default
	}
	return MatchTags(tt...)
}

// MatchTags returns the supported language closest to the preferred tags.
func MatchTags(preferred ...language.Tag) Lang {
	_, idx, confidence := matcher.Match(preferred...)
	if confidence == language.No || idx < 0 || idx >= len(supported) {
		return Default
	}
	return supported[idx]
}

func (l Lang) IsSupported() bool {
	for _, s := range supported {
		if s == l {
			return true
		}
	}
	return false
}

func (l Lang) Direction() Dir {
	if rtl[l] {
		return RTL
	}
	return LTR
}

// Name is the language name written in the language itself.
func (l Lang) Name() string {
	return names[l]
}

func (l Lang) Tag() language.Tag {
	return language.Make(string(l))
}

func (l Lang) String() string {
	return string(l)
}

// Direction returns the writing direction of `lang`.
func Direction(lang Lang) Dir {
	return lang.Direction()
}

// Info describes a language for clients building a language switcher.
type Info struct {
	Code      Lang   `json:"code"`
	Name      string `json:"name"`
	Direction Dir    `json:"dir"`
}

func Infos() []Info {
	infos := make([]Info, 0, len(supported))
	for _, l := range supported {
		infos = append(infos, Info{Code: l, Name: l.Name(), Direction: l.Direction()})
	}
	return infos
}
