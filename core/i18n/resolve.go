package i18n

import (
	"net/http"
	"strings"
	"time"
)

const (
	// Param is the path and query parameter used to select a language.
	Param = "lang"
	// CookieName stores the visitor's language preference.
	CookieName = "khidmat_lang"
)

// Resolve determines the language of the request, in order of precedence:
// the `pathLang` route value, the lang query param, the lang cookie, the Accept-Language header
// and finally Default. The bool reports whether the choice came from the query param and should
// be persisted with SetCookie.
func Resolve(r *http.Request, pathLang string) (Lang, bool) {
	if pathLang != "" {
		if lang, err := Parse(pathLang); err == nil {
			return lang, false
		}
	}
	if r == nil {
		return Default, false
	}

	if v := strings.TrimSpace(r.URL.Query().Get(Param)); v != "" {
		if lang, err := Parse(v); err == nil {
			return lang, true
		}
	}

	if cookie, err := r.Cookie(CookieName); err == nil {
		if lang, err := Parse(cookie.Value); err == nil {
			return lang, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		return Match(accept), false
	}

	return Default, false
}

// SetCookie persists the selected language on the response.
func SetCookie(w http.ResponseWriter, lang Lang) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
