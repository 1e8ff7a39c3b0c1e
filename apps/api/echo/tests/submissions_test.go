package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/review"
)

func TestSubmissionsApi_comments(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	_, token := app.editor(t)

	for _, title := range []string{"Spring Tips", "Winter Tips"} {
		_, _, err := app.blogs.Create(ctx, blog.NewPost{Title: title, Content: "...", IsPublished: true}, false)
		require.NoError(t, err)
	}
	c1, err := app.blogs.AddComment(ctx, "spring-tips", blog.NewComment{Name: "Sara", Email: "sara@mail.test", Content: "Nice"})
	require.NoError(t, err)
	c2, err := app.blogs.AddComment(ctx, "spring-tips", blog.NewComment{Name: "Ali", Email: "ali@mail.test", Content: "Spam"})
	require.NoError(t, err)
	c3, err := app.blogs.AddComment(ctx, "winter-tips", blog.NewComment{Name: "Lina", Email: "lina@mail.test", Content: "Cozy"})
	require.NoError(t, err)

	list := func(query string) []blog.Comment {
		rec := app.do(http.MethodGet, "/api/admin/comments"+query, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var comments []blog.Comment
		decode(t, rec, &comments)
		return comments
	}

	all := list("")
	require.Len(t, all, 3)
	assert.NotEmpty(t, all[0].Email, "admins see e-mails")
	assert.Len(t, list("?blog=spring-tips"), 2)

	rec := app.do(http.MethodPut, "/api/admin/comments/"+c1.ID+"/approve", token, map[string]bool{"approved": true})
	require.Equal(t, http.StatusOK, rec.Code)
	approved := list("?is_approved=true")
	require.Len(t, approved, 1)
	assert.Equal(t, c1.ID, approved[0].ID)

	rec = app.do(http.MethodPut, "/api/admin/comments/"+c1.ID+"/approve", token, map[string]bool{"approved": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, list("?is_approved=true"))

	rec = app.do(http.MethodGet, "/api/admin/comments/"+c3.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodDelete, "/api/admin/comments/"+c2.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/api/admin/comments/"+c2.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	v := url.Values{"id": {c1.ID, c3.ID}}
	rec = app.do(http.MethodDelete, "/api/admin/comments?"+v.Encode(), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, list(""))

	rec = app.do(http.MethodPut, "/api/admin/comments/"+c1.ID+"/approve", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionsApi_reviews(t *testing.T) {
	app := setup(t)
	_, token := app.editor(t)

	rec := app.do(http.MethodPost, "/api/admin/reviews", token, review.NewReview{Name: "Omar", Rating: 5, Content: "Excellent", Lang: i18n.Arabic, IsApproved: true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created review.Review
	decode(t, rec, &created)
	assert.True(t, created.IsApproved, "admins may publish right away")
	assert.Empty(t, app.mailer.Sent(), "no notification for admin entries")

	rec = app.do(http.MethodGet, "/api/ar/reviews?only_lang=true", "", nil)
	var public localized[[]review.Review]
	decode(t, rec, &public)
	require.Len(t, public.Data, 1)

	rec = app.do(http.MethodPut, "/api/admin/reviews/"+created.ID, token, review.UpdateReview{Rating: intPtr(3), IsApproved: boolPtr(false)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated review.Review
	decode(t, rec, &updated)
	assert.Equal(t, 3, updated.Rating)
	assert.Equal(t, "Excellent", updated.Content)

	rec = app.do(http.MethodGet, "/api/ar/reviews?only_lang=true", "", nil)
	decode(t, rec, &public)
	assert.Empty(t, public.Data, "unapproving invalidates the public list")

	rec = app.do(http.MethodGet, "/api/admin/reviews?is_approved=false&min_rating=3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []review.Review
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	rec = app.do(http.MethodPut, "/api/admin/reviews/"+created.ID, token, review.UpdateReview{Rating: intPtr(9)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodDelete, "/api/admin/reviews/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/api/admin/reviews/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionsApi_contacts(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	_, token := app.editor(t)

	sub, err := app.contacts.Submit(ctx, contact.NewSubmission{Name: "Amina", Email: "amina@mail.test", Message: "Need a plumber"})
	require.NoError(t, err)
	_, err = app.contacts.Submit(ctx, contact.NewSubmission{Name: "Yusuf", Email: "yusuf@mail.test", Message: "Painting quote"})
	require.NoError(t, err)

	list := func(query string) []contact.Submission {
		rec := app.do(http.MethodGet, "/api/admin/contacts"+query, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var subs []contact.Submission
		decode(t, rec, &subs)
		return subs
	}
	assert.Len(t, list(""), 2)
	assert.Len(t, list("?search=plumber"), 1)

	rec := app.do(http.MethodPut, "/api/admin/contacts/"+sub.ID+"/read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var read contact.Submission
	decode(t, rec, &read)
	assert.True(t, read.IsRead)

	unread := list("?is_read=false")
	require.Len(t, unread, 1)
	assert.Equal(t, "Yusuf", unread[0].Name)

	rec = app.do(http.MethodPut, "/api/admin/contacts/"+sub.ID+"/read", token, map[string]bool{"read": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list("?is_read=false"), 2)

	rec = app.do(http.MethodDelete, "/api/admin/contacts/"+sub.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, "/api/admin/contacts/"+sub.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = app.do(http.MethodDelete, "/api/admin/contacts/"+sub.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
