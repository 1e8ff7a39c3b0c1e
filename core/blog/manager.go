package blog

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

var ErrSlugExists = errors.New("a blog post with this slug already exists")

type (
	Repository interface {
		SlugExists(ctx context.Context, slug string) (bool, error)
		SavePost(ctx context.Context, p Post) (Post, error)
		UpdateShared(ctx context.Context, slug string, shared Shared) error
		GetPost(ctx context.Context, slug string, lang i18n.Lang) (Post, error)
		GetTranslations(ctx context.Context, slug string) ([]Post, error)
		QueryPosts(ctx context.Context, lang i18n.Lang, filter *QueryFilter, ordering []core.DBOrdering) ([]Post, error)
		// DeletePosts deletes every language row of the post and its comments.
		DeletePosts(ctx context.Context, slug string) (int, error)
		QueryPending(ctx context.Context) ([]translation.PendingRow, error)
	}

	CommentRepository interface {
		CreateComment(ctx context.Context, c Comment) (Comment, error)
		GetComment(ctx context.Context, id string) (Comment, error)
		QueryComments(ctx context.Context, filter *CommentFilter, ordering []core.DBOrdering) ([]Comment, error)
		SetCommentApproved(ctx context.Context, id string, approved bool) (Comment, error)
		DeleteComments(ctx context.Context, ids ...string) (int, error)
	}

	Manager struct {
		repo     Repository
		comments CommentRepository
		fanout   *translation.Fanout
		validate *validator.Validate
	}
)

var _ translation.Source = (*Manager)(nil)

func NewManager(repo Repository, comments CommentRepository, fanout *translation.Fanout, validate *validator.Validate) *Manager {
	return &Manager{repo: repo, comments: comments, fanout: fanout, validate: validate}
}

func (m *Manager) Name() string { return "blogs" }

func (m *Manager) Create(ctx context.Context, np NewPost, autoTranslate bool) (Post, translation.Report, error) {
	if err := np.Validate(ctx, m.validate, m.repo); err != nil {
		return Post{}, translation.Report{}, err
	}

	now := time.Now().UTC()
	src := Post{
		Slug:        np.Slug,
		Lang:        m.fanout.Source(),
		Title:       np.Title,
		Excerpt:     np.Excerpt,
		Content:     np.Content,
		Author:      np.Author,
		ImageURL:    np.ImageURL,
		Tags:        np.Tags,
		IsPublished: np.IsPublished,
		State:       translation.StateSource,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if src.IsPublished {
		src.PublishedAt = now
	}
	src, err := m.repo.SavePost(ctx, src)
	if err != nil {
		return Post{}, translation.Report{}, errors.Wrap(err, "saving blog post")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, nil, translation.SyncOptions{})
	return src, report, err
}

func (m *Manager) Update(ctx context.Context, slug string, up UpdatePost, autoTranslate, force bool) (Post, translation.Report, error) {
	rows, err := m.repo.GetTranslations(ctx, slug)
	if err != nil {
		return Post{}, translation.Report{}, err
	}
	src, ok := translation.Find(rows, m.fanout.Source())
	if !ok {
		return Post{}, translation.Report{}, core.ErrNotFound
	}
	if err = up.Validate(m.validate); err != nil {
		return Post{}, translation.Report{}, err
	}

	now := time.Now().UTC()
	up.apply(&src, now)
	src.UpdatedAt = now
	if src, err = m.repo.SavePost(ctx, src); err != nil {
		return Post{}, translation.Report{}, errors.Wrap(err, "saving blog post")
	}
	if err = m.repo.UpdateShared(ctx, slug, src.Shared()); err != nil {
		return Post{}, translation.Report{}, errors.Wrap(err, "updating blog post translations")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, translation.States(rows), translation.SyncOptions{Force: force})
	return src, report, err
}

func (m *Manager) UpdateTranslation(ctx context.Context, slug string, lang i18n.Lang, tr Translation) (Post, error) {
	if err := translation.CheckTarget(lang, m.fanout.Source()); err != nil {
		return Post{}, err
	}
	if err := m.validate.Struct(tr); err != nil {
		return Post{}, err
	}
	src, err := m.repo.GetPost(ctx, slug, m.fanout.Source())
	if err != nil {
		return Post{}, err
	}

	row := src
	row.ID = ""
	row.Lang = lang
	row.State = translation.StateManual
	row.UpdatedAt = time.Now().UTC()
	row.SetFields(tr.Fields())
	return m.repo.SavePost(ctx, row)
}

func (m *Manager) Delete(ctx context.Context, slug string) error {
	n, err := m.repo.DeletePosts(ctx, slug)
	if err != nil {
		return errors.Wrap(err, "deleting blog post")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Get returns a published post in `lang`, or in English when that language row is missing.
func (m *Manager) Get(ctx context.Context, slug string, lang i18n.Lang) (Localized, error) {
	row, err := m.repo.GetPost(ctx, slug, lang)
	fallback := false
	if core.IsNotFound(err) && lang != m.fanout.Source() {
		row, err = m.repo.GetPost(ctx, slug, m.fanout.Source())
		fallback = true
	}
	if err != nil {
		return Localized{}, err
	}
	if !row.IsPublished {
		return Localized{}, core.ErrNotFound
	}
	return Localized{Post: row, FallbackUsed: fallback}, nil
}

// List returns the posts in `lang`, ordered and filtered on their English rows (newest first by default).
func (m *Manager) List(ctx context.Context, lang i18n.Lang, filter *QueryFilter, ordering []core.DBOrdering) ([]Localized, error) {
	if filter != nil {
		filter.Clean()
	}
	ordering = core.AllowedOrderings(ordering, "published_at", "title", "created_at", "updated_at")
	sources, err := m.repo.QueryPosts(ctx, m.fanout.Source(), filter, ordering)
	if err != nil {
		return nil, err
	}

	localized := sources
	if lang != m.fanout.Source() {
		if localized, err = m.repo.QueryPosts(ctx, lang, nil, nil); err != nil {
			return nil, err
		}
	}

	rows, fallbacks := translation.Pick(sources, localized)
	list := make([]Localized, 0, len(rows))
	for i, r := range rows {
		list = append(list, Localized{Post: r, FallbackUsed: fallbacks[i]})
	}
	return list, nil
}

func (m *Manager) Translations(ctx context.Context, slug string) ([]Post, error) {
	rows, err := m.repo.GetTranslations(ctx, slug)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, core.ErrNotFound
	}
	return translation.SortByLang(rows), nil
}

func (m *Manager) Pending(ctx context.Context) ([]translation.PendingRow, error) {
	return m.repo.QueryPending(ctx)
}

func (m *Manager) Retranslate(ctx context.Context, slug string, lang i18n.Lang) (translation.LangReport, error) {
	rows, err := m.repo.GetTranslations(ctx, slug)
	if err != nil {
		return translation.LangReport{}, err
	}
	src, ok := translation.Find(rows, m.fanout.Source())
	if !ok {
		return translation.LangReport{}, core.ErrNotFound
	}

	report, err := m.sync(ctx, src, translation.States(rows), translation.SyncOptions{Targets: []i18n.Lang{lang}})
	lr, _ := report.Lang(lang)
	return lr, err
}

func (m *Manager) sync(ctx context.Context, src Post, existing map[i18n.Lang]translation.State, opts translation.SyncOptions) (translation.Report, error) {
	return translation.Sync(ctx, m.fanout, src.Fields(), existing, opts,
		func(ctx context.Context, lang i18n.Lang, fields translation.Fields, state translation.State) error {
			row := src
			row.ID = ""
			row.Lang = lang
			row.State = state
			row.SetFields(fields)
			_, err := m.repo.SavePost(ctx, row)
			return err
		})
}

// Comments

// AddComment stores a visitor comment on a published post. It awaits approval.
func (m *Manager) AddComment(ctx context.Context, slug string, nc NewComment) (Comment, error) {
	post, err := m.repo.GetPost(ctx, slug, m.fanout.Source())
	if err != nil {
		return Comment{}, err
	}
	if !post.IsPublished {
		return Comment{}, core.ErrNotFound
	}
	if err = nc.Validate(m.validate); err != nil {
		return Comment{}, err
	}

	return m.comments.CreateComment(ctx, Comment{
		PostSlug:  slug,
		Name:      nc.Name,
		Email:     nc.Email,
		Content:   nc.Content,
		CreatedAt: time.Now().UTC(),
	})
}

// PublicComments returns the approved comments of a post, oldest first, without e-mails.
func (m *Manager) PublicComments(ctx context.Context, slug string) ([]Comment, error) {
	approved := true
	comments, err := m.comments.QueryComments(ctx, &CommentFilter{PostSlug: slug, IsApproved: &approved}, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i] = comments[i].Public()
	}
	return comments, nil
}

func (m *Manager) QueryComments(ctx context.Context, filter *CommentFilter, ordering []core.DBOrdering) ([]Comment, error) {
	ordering = core.AllowedOrderings(ordering, "created_at", "name", "blog_slug")
	return m.comments.QueryComments(ctx, filter, ordering)
}

func (m *Manager) GetComment(ctx context.Context, id string) (Comment, error) {
	return m.comments.GetComment(ctx, id)
}

func (m *Manager) ApproveComment(ctx context.Context, id string, approved bool) (Comment, error) {
	return m.comments.SetCommentApproved(ctx, id, approved)
}

func (m *Manager) DeleteComments(ctx context.Context, ids ...string) error {
	n, err := m.comments.DeleteComments(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
