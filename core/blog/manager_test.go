package blog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
	"github.com/trezcool/khidmat/storage/database/inmem"
	"github.com/trezcool/khidmat/tests"
)

func setup(t *testing.T) *blog.Manager {
	t.Helper()
	validate, _ := testutil.NewValidator()
	repo := inmemdb.NewBlogRepository(inmemdb.NewDB())
	return blog.NewManager(repo, repo, translation.NewFanout(&testutil.Translator{}, nil), validate)
}

func TestManager_Posts(t *testing.T) {
	ctx := context.Background()
	mgr := setup(t)

	published, report, err := mgr.Create(ctx, blog.NewPost{
		Title:       "5 Signs of Termites",
		Excerpt:     "Know them early",
		Content:     "Mud tubes, hollow wood...",
		Tags:        []string{"Pests", " termites ", "pests", ""},
		IsPublished: true,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "5-signs-of-termites", published.Slug)
	assert.Equal(t, []string{"pests", "termites"}, published.Tags)
	assert.False(t, published.PublishedAt.IsZero())
	assert.Zero(t, report.FallbackCount())

	draft, _, err := mgr.Create(ctx, blog.NewPost{Title: "Summer AC Tips", Content: "Clean the filters."}, false)
	require.NoError(t, err)
	assert.True(t, draft.PublishedAt.IsZero())

	t.Run("drafts are hidden", func(t *testing.T) {
		_, err := mgr.Get(ctx, draft.Slug, i18n.English)
		assert.True(t, core.IsNotFound(err))

		yes := true
		list, err := mgr.List(ctx, i18n.Russian, &blog.QueryFilter{IsPublished: &yes}, nil)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, testutil.Translated(published.Title, i18n.Russian), list[0].Title)
	})

	t.Run("filter by tag", func(t *testing.T) {
		list, err := mgr.List(ctx, i18n.English, &blog.QueryFilter{Tag: "Termites"}, nil)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, published.Slug, list[0].Slug)
	})

	t.Run("publishing sets the date on every row", func(t *testing.T) {
		yes := true
		updated, _, err := mgr.Update(ctx, draft.Slug, blog.UpdatePost{IsPublished: &yes}, true, false)
		require.NoError(t, err)
		assert.False(t, updated.PublishedAt.IsZero())

		ar, err := mgr.Get(ctx, draft.Slug, i18n.Arabic)
		require.NoError(t, err)
		assert.False(t, ar.FallbackUsed)
		assert.Equal(t, updated.PublishedAt, ar.PublishedAt)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		_, _, err := mgr.Create(ctx, blog.NewPost{Slug: published.Slug, Title: "Other", Content: "x"}, false)
		assert.IsType(t, &core.ValidationError{}, err)
	})
}

func TestManager_Comments(t *testing.T) {
	ctx := context.Background()
	mgr := setup(t)

	post, _, err := mgr.Create(ctx, blog.NewPost{Title: "Ants", Content: "Keep sugar sealed.", IsPublished: true}, false)
	require.NoError(t, err)
	draft, _, err := mgr.Create(ctx, blog.NewPost{Title: "Draft", Content: "soon"}, false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		slug    string
		comment blog.NewComment
		wantErr bool
	}{
		{name: "valid", slug: post.Slug, comment: blog.NewComment{Name: " Amina ", Email: "AMINA@example.com", Content: "Thanks!"}},
		{name: "bad email", slug: post.Slug, comment: blog.NewComment{Name: "Amina", Email: "nope", Content: "Thanks!"}, wantErr: true},
		{name: "blank content", slug: post.Slug, comment: blog.NewComment{Name: "Amina", Email: "a@b.co", Content: "  "}, wantErr: true},
		{name: "draft post", slug: draft.Slug, comment: blog.NewComment{Name: "Amina", Email: "a@b.co", Content: "Hi"}, wantErr: true},
		{name: "unknown post", slug: "nope", comment: blog.NewComment{Name: "Amina", Email: "a@b.co", Content: "Hi"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := mgr.AddComment(ctx, tt.slug, tt.comment)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Amina", c.Name)
			assert.Equal(t, "amina@example.com", c.Email)
			assert.False(t, c.IsApproved)
		})
	}

	public, err := mgr.PublicComments(ctx, post.Slug)
	require.NoError(t, err)
	assert.Empty(t, public, "unapproved comments are hidden")

	all, err := mgr.QueryComments(ctx, &blog.CommentFilter{PostSlug: post.Slug}, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = mgr.ApproveComment(ctx, all[0].ID, true)
	require.NoError(t, err)
	public, err = mgr.PublicComments(ctx, post.Slug)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Empty(t, public[0].Email)

	require.NoError(t, mgr.Delete(ctx, post.Slug))
	_, err = mgr.GetComment(ctx, all[0].ID)
	assert.True(t, core.IsNotFound(err), "comments go with their post")
}
