package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/khidmat/core"
)

func newContext(target string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestOrdering_Bind(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []core.DBOrdering
	}{
		{name: "none", query: ""},
		{name: "ascending", query: "?ordering=title", want: []core.DBOrdering{{Field: "title", Ascending: true}}},
		{
			name: "mixed", query: "?ordering=-position,%20title%20,",
			want: []core.DBOrdering{{Field: "position"}, {Field: "title", Ascending: true}},
		},
		{name: "unknown fields dropped", query: "?ordering=password,-", want: []core.DBOrdering{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ord := new(Ordering)
			ord.Bind(newContext("/"+tt.query), "title", "position")
			assert.Equal(t, tt.want, ord.Orderings)
		})
	}
}

func TestTranslateFlags_Bind(t *testing.T) {
	tests := []struct {
		query string
		want  TranslateFlags
	}{
		{query: "", want: TranslateFlags{AutoTranslate: true}},
		{query: "?auto_translate=false", want: TranslateFlags{}},
		{query: "?force=1", want: TranslateFlags{AutoTranslate: true, Force: true}},
		{query: "?auto_translate=maybe&force=nope", want: TranslateFlags{AutoTranslate: true}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var flags TranslateFlags
			flags.Bind(newContext("/" + tt.query))
			assert.Equal(t, tt.want, flags)
		})
	}
}

func TestIPLimiter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"), "burst spent")
	assert.True(t, l.allow("10.0.0.2"), "other clients have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"), "one token per second")

	unlimited := newIPLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.allow("10.0.0.1"))
	}
}
