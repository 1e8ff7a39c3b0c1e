package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/review"
	testutil "github.com/trezcool/khidmat/tests"
)

func TestServer_home(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Khidmat API!", rec.Body.String())

	rec = app.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "khidmat_http_requests_total")
}

func TestServer_languages(t *testing.T) {
	app := setup(t)

	type langsResp struct {
		Current   i18n.Lang   `json:"current"`
		Dir       i18n.Dir    `json:"dir"`
		Languages []i18n.Info `json:"languages"`
	}

	tests := []struct {
		name       string
		path       string
		header     map[string]string
		wantLang   i18n.Lang
		wantDir    i18n.Dir
		wantCookie bool
	}{
		{name: "default", path: "/api/languages", wantLang: i18n.English, wantDir: i18n.LTR},
		{name: "query param is persisted", path: "/api/languages?lang=ur", wantLang: i18n.Urdu, wantDir: i18n.RTL, wantCookie: true},
		{name: "invalid query param", path: "/api/languages?lang=xx", wantLang: i18n.English, wantDir: i18n.LTR},
		{name: "cookie", path: "/api/languages", header: map[string]string{"Cookie": i18n.CookieName + "=fr"}, wantLang: i18n.French, wantDir: i18n.LTR},
		{
			name: "accept-language", path: "/api/languages", header: map[string]string{"Accept-Language": "ar-EG,ar;q=0.9,en;q=0.5"},
			wantLang: i18n.Arabic, wantDir: i18n.RTL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp langsResp
			decode(t, rec, &resp)
			assert.Equal(t, tt.wantLang, resp.Current)
			assert.Equal(t, tt.wantDir, resp.Dir)
			assert.Len(t, resp.Languages, len(i18n.All()))
			assert.Equal(t, tt.wantCookie, rec.Header().Get("Set-Cookie") != "")
		})
	}
}

func TestPublicApi_services(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	cleaning, _, err := app.offerings.Create(ctx, offering.NewOffering{Title: "Deep Cleaning", Summary: "Top to bottom", Position: 1}, true)
	require.NoError(t, err)
	_, _, err = app.offerings.Create(ctx, offering.NewOffering{Title: "Plumbing", Position: 2}, true)
	require.NoError(t, err)
	_, _, err = app.offerings.Create(ctx, offering.NewOffering{Title: "Hidden", IsActive: boolPtr(false)}, false)
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/fr/services", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "fr", rec.Header().Get("Content-Language"))

		var resp localized[[]offering.Localized]
		decode(t, rec, &resp)
		assert.Equal(t, i18n.French, resp.Lang)
		assert.Equal(t, i18n.LTR, resp.Dir)
		require.Len(t, resp.Data, 2, "inactive services are hidden")
		assert.Equal(t, testutil.Translated("Deep Cleaning", i18n.French), resp.Data[0].Title)
		assert.Equal(t, testutil.Translated("Plumbing", i18n.French), resp.Data[1].Title)
	})

	t.Run("list ordering", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/en/services?ordering=-position", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[[]offering.Localized]
		decode(t, rec, &resp)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "Plumbing", resp.Data[0].Title)
	})

	t.Run("detail rtl", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/ar/services/"+cleaning.Slug, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[offering.Localized]
		decode(t, rec, &resp)
		assert.Equal(t, i18n.RTL, resp.Dir)
		assert.Equal(t, testutil.Translated("Deep Cleaning", i18n.Arabic), resp.Data.Title)
		assert.False(t, resp.Data.FallbackUsed)
	})

	t.Run("inactive detail", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/en/services/hidden", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, marshal(t, errNotFound), rec.Body.String())
	})

	t.Run("unsupported language", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/de/services", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPublicApi_cache(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	_, token := app.editor(t)

	src, _, err := app.offerings.Create(ctx, offering.NewOffering{Title: "Deep Cleaning"}, true)
	require.NoError(t, err)

	get := func() string {
		rec := app.do(http.MethodGet, "/api/en/services/"+src.Slug, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[offering.Localized]
		decode(t, rec, &resp)
		return resp.Data.Title
	}
	assert.Equal(t, "Deep Cleaning", get())

	// writes that bypass the API are not seen until the namespace is invalidated
	_, _, err = app.offerings.Update(ctx, src.Slug, offering.UpdateOffering{Title: strPtr("Spring Cleaning")}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "Deep Cleaning", get(), "served from the cache")

	rec := app.do(http.MethodPut, "/api/admin/services/"+src.Slug+"?auto_translate=false", token, offering.UpdateOffering{Title: strPtr("Window Cleaning")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Window Cleaning", get(), "admin writes invalidate the namespace")

	t.Run("errors are not cached", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/en/services/plumbing", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)

		_, _, err := app.offerings.Create(ctx, offering.NewOffering{Title: "Plumbing"}, false)
		require.NoError(t, err)
		rec = app.do(http.MethodGet, "/api/en/services/plumbing", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPublicApi_blogs(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	post, _, err := app.blogs.Create(ctx, blog.NewPost{Title: "Spring Tips", Content: "Open the windows.", Tags: []string{"Cleaning"}, IsPublished: true}, true)
	require.NoError(t, err)
	_, _, err = app.blogs.Create(ctx, blog.NewPost{Title: "Draft", Content: "Soon."}, false)
	require.NoError(t, err)

	t.Run("list published", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/ur/blogs", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[[]blog.Localized]
		decode(t, rec, &resp)
		assert.Equal(t, i18n.RTL, resp.Dir)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, testutil.Translated("Spring Tips", i18n.Urdu), resp.Data[0].Title)
	})

	t.Run("draft is hidden", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/en/blogs/draft", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("comments", func(t *testing.T) {
		path := "/api/en/blogs/" + post.Slug + "/comments"

		rec := app.do(http.MethodPost, path, "", blog.NewComment{Name: "Sara", Email: "Sara@Mail.test", Content: "Great tips!"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created blog.Comment
		decode(t, rec, &created)
		assert.Empty(t, created.Email, "e-mails are never public")
		assert.False(t, created.IsApproved)

		rec = app.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[[]blog.Comment]
		decode(t, rec, &resp)
		assert.Empty(t, resp.Data, "comments await approval")

		_, token := app.editor(t)
		rec = app.do(http.MethodPut, "/api/admin/comments/"+created.ID+"/approve", token, map[string]bool{"approved": true})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = app.do(http.MethodGet, path, "", nil)
		decode(t, rec, &resp)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Great tips!", resp.Data[0].Content)
		assert.Empty(t, resp.Data[0].Email)
	})

	t.Run("comment validation", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/en/blogs/"+post.Slug+"/comments", "", blog.NewComment{Name: "Sara", Email: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "email")
		assert.Equal(t, "this field is required", fields["content"])
	})

	t.Run("comment on unknown post", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/en/blogs/nope/comments", "", blog.NewComment{Name: "Sara", Email: "sara@mail.test", Content: "Hi"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPublicApi_pages(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	_, _, err := app.faqs.Create(ctx, faq.NewFAQ{Question: "Do you work weekends?", Answer: "Yes."}, true)
	require.NoError(t, err)
	_, _, err = app.faqs.Create(ctx, faq.NewFAQ{Question: "Retired?", Answer: "No.", IsActive: boolPtr(false)}, true)
	require.NoError(t, err)
	_, _, err = app.about.Update(ctx, page.UpdateAbout{Title: "About us", Content: "Since 2010."}, true, false)
	require.NoError(t, err)
	_, _, err = app.statistics.Create(ctx, page.NewStatistic{Label: "Happy clients", Value: 1200, Suffix: "+"}, true)
	require.NoError(t, err)

	t.Run("faqs", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/hi/faqs", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[[]faq.Localized]
		decode(t, rec, &resp)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, testutil.Translated("Do you work weekends?", i18n.Hindi), resp.Data[0].Question)
	})

	t.Run("about", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/zh/about", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[page.LocalizedAbout]
		decode(t, rec, &resp)
		assert.Equal(t, testutil.Translated("About us", i18n.Chinese), resp.Data.Title)
	})

	t.Run("statistics", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/ru/statistics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[[]page.LocalizedStatistic]
		decode(t, rec, &resp)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, 1200, resp.Data[0].Value)
		assert.Equal(t, testutil.Translated("Happy clients", i18n.Russian), resp.Data[0].Label)
	})

	t.Run("dictionary", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/ar/i18n", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[map[string]string]
		decode(t, rec, &resp)
		assert.Equal(t, i18n.RTL, resp.Dir)
		assert.NotEmpty(t, resp.Data["contact.success"])
	})
}

func TestPublicApi_reviews(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	rec := app.do(http.MethodPost, "/api/fr/reviews", "", review.NewReview{Name: "Jean", Rating: 5, Content: "Parfait", IsApproved: true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var submitted review.Review
	decode(t, rec, &submitted)
	assert.Equal(t, i18n.French, submitted.Lang, "language of the page")
	assert.False(t, submitted.IsApproved, "public reviews await approval")
	assert.Len(t, app.mailer.Sent(), 1)

	_, err := app.reviews.Create(ctx, review.NewReview{Name: "Omar", Rating: 4, Content: "Good", Lang: i18n.Arabic, IsApproved: true})
	require.NoError(t, err)

	get := func(path string) []review.Review {
		rec := app.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp localized[[]review.Review]
		decode(t, rec, &resp)
		return resp.Data
	}
	require.Len(t, get("/api/fr/reviews"), 1, "only approved reviews")

	_, token := app.editor(t)
	rec = app.do(http.MethodPut, "/api/admin/reviews/"+submitted.ID+"/approve", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, get("/api/fr/reviews"), 2)
	only := get("/api/fr/reviews?only_lang=true")
	require.Len(t, only, 1)
	assert.Equal(t, "Jean", only[0].Name)

	t.Run("validation", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/en/reviews", "", review.NewReview{Name: "X", Rating: 9, Content: "Hmm"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "rating")
	})
}

func TestPublicApi_contact(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodPost, "/api/fr/contact", "", contact.NewSubmission{
		Name: "Amina", Email: "amina@mail.test", Phone: "+971 50 123 4567", Message: "Need a plumber",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":"Merci ! Nous vous contacterons rapidement."}`, rec.Body.String())

	sent := app.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "amina@mail.test", sent[0].ReplyTo.Address)

	subs, err := app.contacts.Query(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, i18n.French, subs[0].Lang)
	assert.Equal(t, "+971501234567", subs[0].Phone.String)

	t.Run("validation", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/en/contact", "", contact.NewSubmission{Name: "Amina", Email: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "message")
	})
}

func TestPublicApi_formRateLimit(t *testing.T) {
	app := setup(t, func(conf *core.Config) {
		conf.Server.FormRateLimit = 0.001
		conf.Server.FormRateBurst = 2
	})
	body := contact.NewSubmission{Name: "Amina", Email: "amina@mail.test", Message: "Hello"}

	for i := 0; i < 2; i++ {
		rec := app.do(http.MethodPost, "/api/en/contact", "", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := app.do(http.MethodPost, "/api/en/contact", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are not limited
	rec = app.do(http.MethodGet, "/api/en/faqs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
