package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

const (
	postColumns = `id, slug, lang, title, excerpt, content, author, image_url, tags, is_published, published_at,
	translation_state, created_at, updated_at`
	commentColumns = `id, blog_slug, name, email, content, is_approved, created_at`
)

type postRow struct {
	ID          string         `db:"id"`
	Slug        string         `db:"slug"`
	Lang        string         `db:"lang"`
	Title       string         `db:"title"`
	Excerpt     string         `db:"excerpt"`
	Content     string         `db:"content"`
	Author      string         `db:"author"`
	ImageURL    null.String    `db:"image_url"`
	Tags        pq.StringArray `db:"tags"`
	IsPublished bool           `db:"is_published"`
	PublishedAt null.Time      `db:"published_at"`
	State       string         `db:"translation_state"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toPostRow(p blog.Post) postRow {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return postRow{
		ID:          p.ID,
		Slug:        p.Slug,
		Lang:        string(p.Lang),
		Title:       p.Title,
		Excerpt:     p.Excerpt,
		Content:     p.Content,
		Author:      p.Author,
		ImageURL:    null.NewString(p.ImageURL, p.ImageURL != ""),
		Tags:        tags,
		IsPublished: p.IsPublished,
		PublishedAt: null.NewTime(p.PublishedAt.UTC(), !p.PublishedAt.IsZero()),
		State:       string(p.State),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func (r postRow) post() blog.Post {
	p := blog.Post{
		ID:          r.ID,
		Slug:        r.Slug,
		Lang:        i18n.Lang(r.Lang),
		Title:       r.Title,
		Excerpt:     r.Excerpt,
		Content:     r.Content,
		Author:      r.Author,
		ImageURL:    r.ImageURL.String,
		Tags:        r.Tags,
		IsPublished: r.IsPublished,
		State:       translation.State(r.State),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.PublishedAt.Valid {
		p.PublishedAt = r.PublishedAt.Time.UTC()
	}
	return p
}

func posts(rows []postRow) []blog.Post {
	list := make([]blog.Post, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.post())
	}
	return list
}

type commentRow struct {
	ID         string    `db:"id"`
	PostSlug   string    `db:"blog_slug"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Content    string    `db:"content"`
	IsApproved bool      `db:"is_approved"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r commentRow) comment() blog.Comment {
	return blog.Comment{
		ID:         r.ID,
		PostSlug:   r.PostSlug,
		Name:       r.Name,
		Email:      r.Email,
		Content:    r.Content,
		IsApproved: r.IsApproved,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type blogRepository struct {
	db *sqlx.DB
}

var (
	_ blog.Repository        = (*blogRepository)(nil)
	_ blog.CommentRepository = (*blogRepository)(nil)
)

// NewBlogRepository stores the posts and their comments.
func NewBlogRepository(db *sqlx.DB) *blogRepository {
	return &blogRepository{db: db}
}

func (repo *blogRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM blogs WHERE slug = $1)`, slug)
	return exists, errors.Wrap(err, "checking blog slug")
}

func (repo *blogRepository) SavePost(ctx context.Context, p blog.Post) (blog.Post, error) {
	row := toPostRow(p)
	row.ID = uuid.New().String()

	q, args, err := repo.db.BindNamed(`INSERT INTO blogs (`+postColumns+`)
		VALUES (:id, :slug, :lang, :title, :excerpt, :content, :author, :image_url, :tags, :is_published, :published_at,
			:translation_state, :created_at, :updated_at)
		ON CONFLICT (slug, lang) DO UPDATE SET
			title = EXCLUDED.title, excerpt = EXCLUDED.excerpt, content = EXCLUDED.content, author = EXCLUDED.author,
			image_url = EXCLUDED.image_url, tags = EXCLUDED.tags, is_published = EXCLUDED.is_published,
			published_at = EXCLUDED.published_at, translation_state = EXCLUDED.translation_state,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`, row)
	if err != nil {
		return blog.Post{}, errors.Wrap(err, "binding blog")
	}
	if err = repo.db.QueryRowxContext(ctx, q, args...).Scan(&row.ID, &row.CreatedAt); err != nil {
		return blog.Post{}, errors.Wrap(err, "saving blog")
	}
	return row.post(), nil
}

func (repo *blogRepository) UpdateShared(ctx context.Context, slug string, shared blog.Shared) error {
	row := toPostRow(blog.Post{
		Slug:        slug,
		Author:      shared.Author,
		ImageURL:    shared.ImageURL,
		Tags:        shared.Tags,
		IsPublished: shared.IsPublished,
		PublishedAt: shared.PublishedAt,
	})
	_, err := repo.db.NamedExecContext(ctx, `UPDATE blogs SET
		author = :author, image_url = :image_url, tags = :tags, is_published = :is_published, published_at = :published_at
		WHERE slug = :slug`, row)
	return errors.Wrap(err, "updating blog shared attributes")
}

func (repo *blogRepository) GetPost(ctx context.Context, slug string, lang i18n.Lang) (blog.Post, error) {
	var row postRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+postColumns+` FROM blogs WHERE slug = $1 AND lang = $2`, slug, string(lang))
	if err != nil {
		return blog.Post{}, trapNoRowsErr(err, "getting blog")
	}
	return row.post(), nil
}

func (repo *blogRepository) GetTranslations(ctx context.Context, slug string) ([]blog.Post, error) {
	var rows []postRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+postColumns+` FROM blogs WHERE slug = $1`, slug); err != nil {
		return nil, errors.Wrap(err, "getting blog translations")
	}
	return posts(rows), nil
}

func (repo *blogRepository) QueryPosts(ctx context.Context, lang i18n.Lang, filter *blog.QueryFilter, ordering []core.DBOrdering) ([]blog.Post, error) {
	var w where
	w.add("lang = ?", string(lang))
	if filter != nil {
		w.search(filter.Search, "title", "excerpt")
		if filter.Tag != "" {
			w.add("? = ANY (tags)", filter.Tag)
		}
		if filter.IsPublished != nil {
			w.add("is_published = ?", *filter.IsPublished)
		}
	}

	var rows []postRow
	q := `SELECT ` + postColumns + ` FROM blogs` + w.String() +
		core.OrderBy(ordering, "published_at DESC NULLS LAST, created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying blogs")
	}
	return posts(rows), nil
}

func (repo *blogRepository) DeletePosts(ctx context.Context, slug string) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM comments WHERE blog_slug = $1`, slug); err != nil {
		return 0, errors.Wrap(err, "deleting blog comments")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM blogs WHERE slug = $1`, slug)
	n, err := rowsAffected(res, err, "deleting blog")
	if err != nil {
		return 0, err
	}
	return n, errors.Wrap(tx.Commit(), "committing blog deletion")
}

func (repo *blogRepository) QueryPending(ctx context.Context) ([]translation.PendingRow, error) {
	var rows []pendingRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT slug AS group_key, lang FROM blogs WHERE translation_state = $1 ORDER BY slug, lang`, string(translation.StateFallback))
	if err != nil {
		return nil, errors.Wrap(err, "querying pending blogs")
	}
	return toPending(rows), nil
}

func (repo *blogRepository) CreateComment(ctx context.Context, c blog.Comment) (blog.Comment, error) {
	c.ID = uuid.New().String()
	row := commentRow{
		ID:         c.ID,
		PostSlug:   c.PostSlug,
		Name:       c.Name,
		Email:      c.Email,
		Content:    c.Content,
		IsApproved: c.IsApproved,
		CreatedAt:  c.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO comments (`+commentColumns+`)
		VALUES (:id, :blog_slug, :name, :email, :content, :is_approved, :created_at)`, row)
	if err != nil {
		return blog.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return row.comment(), nil
}

func (repo *blogRepository) GetComment(ctx context.Context, id string) (blog.Comment, error) {
	if !validUUID(id) {
		return blog.Comment{}, core.ErrNotFound
	}
	var row commentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id); err != nil {
		return blog.Comment{}, trapNoRowsErr(err, "getting comment")
	}
	return row.comment(), nil
}

func (repo *blogRepository) QueryComments(ctx context.Context, filter *blog.CommentFilter, ordering []core.DBOrdering) ([]blog.Comment, error) {
	var w where
	if filter != nil {
		if filter.PostSlug != "" {
			w.add("blog_slug = ?", filter.PostSlug)
		}
		if filter.IsApproved != nil {
			w.add("is_approved = ?", *filter.IsApproved)
		}
	}

	var rows []commentRow
	q := `SELECT ` + commentColumns + ` FROM comments` + w.String() + core.OrderBy(ordering, "created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]blog.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, r.comment())
	}
	return comments, nil
}

func (repo *blogRepository) SetCommentApproved(ctx context.Context, id string, approved bool) (blog.Comment, error) {
	if !validUUID(id) {
		return blog.Comment{}, core.ErrNotFound
	}
	var row commentRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE comments SET is_approved = $1 WHERE id = $2 RETURNING `+commentColumns, approved, id)
	if err != nil {
		return blog.Comment{}, trapNoRowsErr(err, "approving comment")
	}
	return row.comment(), nil
}

func (repo *blogRepository) DeleteComments(ctx context.Context, ids ...string) (int, error) {
	return deleteByIDs(ctx, repo.db, "comments", ids)
}
