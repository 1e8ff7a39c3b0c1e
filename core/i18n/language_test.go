package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		code    string
		want    Lang
		wantErr bool
	}{
		{code: "en", want: English},
		{code: "AR", want: Arabic},
		{code: " ar-AE ", want: Arabic},
		{code: "ur_PK", want: Urdu},
		{code: "fr-CA", want: French},
		{code: "ru", want: Russian},
		{code: "hi-IN", want: Hindi},
		{code: "zh-Hans", want: Chinese},
		{code: "de", wantErr: true},
		{code: "", wantErr: true},
		{code: "not a tag", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := Parse(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   Lang
	}{
		{name: "empty", accept: "", want: Default},
		{name: "garbage", accept: ";;;=", want: Default},
		{name: "exact", accept: "ar", want: Arabic},
		{name: "region", accept: "fr-BE,fr;q=0.9", want: French},
		{name: "weights", accept: "de;q=0.9,ru;q=0.8,en;q=0.1", want: Russian},
		{name: "unsupported only", accept: "de,it", want: Default},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.accept))
		})
	}
}

func TestDirection(t *testing.T) {
	for _, l := range All() {
		want := LTR
		if l == Arabic || l == Urdu {
			want = RTL
		}
		assert.Equal(t, want, Direction(l), string(l))
	}
}

func TestTargets(t *testing.T) {
	targets := Targets()
	assert.Len(t, targets, len(All())-1)
	assert.NotContains(t, targets, Default)
	assert.Equal(t, English, All()[0])
}

func TestResolve(t *testing.T) {
	req := func(query, cookie, accept string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/services"+query, nil)
		if cookie != "" {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		}
		if accept != "" {
			r.Header.Set("Accept-Language", accept)
		}
		return r
	}

	tests := []struct {
		name        string
		r           *http.Request
		pathLang    string
		want        Lang
		wantPersist bool
	}{
		{name: "nil request", want: Default},
		{name: "path wins", r: req("?lang=fr", "ru", "hi"), pathLang: "ar", want: Arabic},
		{name: "invalid path is ignored", r: req("?lang=fr", "", ""), pathLang: "xx", want: French, wantPersist: true},
		{name: "query over cookie", r: req("?lang=zh", "ru", "hi"), want: Chinese, wantPersist: true},
		{name: "cookie over header", r: req("", "ru", "hi"), want: Russian},
		{name: "invalid cookie", r: req("", "xx", "hi"), want: Hindi},
		{name: "header", r: req("", "", "ur-PK,en;q=0.5"), want: Urdu},
		{name: "default", r: req("", "", ""), want: Default},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, persist := Resolve(tt.r, tt.pathLang)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPersist, persist)
		})
	}
}

func TestSetCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, Arabic)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "ar", cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)
}
