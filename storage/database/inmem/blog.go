package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

type blogRepository struct {
	db       *table[blog.Post]
	comments *table[blog.Comment]
}

var (
	_ blog.Repository        = (*blogRepository)(nil)
	_ blog.CommentRepository = (*blogRepository)(nil)
)

func NewBlogRepository(db *DB) *blogRepository {
	return &blogRepository{db: db.posts, comments: db.comments}
}

func (repo *blogRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	return len(repo.db.filter(func(p blog.Post) bool { return p.Slug == slug })) > 0, nil
}

func (repo *blogRepository) SavePost(_ context.Context, p blog.Post) (blog.Post, error) {
	key := rowKey(p.Slug, p.Lang)
	if existing, ok := repo.db.get(key); ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = uuid.New().String()
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	repo.db.put(key, p)
	return p, nil
}

func (repo *blogRepository) UpdateShared(_ context.Context, slug string, shared blog.Shared) error {
	repo.db.updateWhere(
		func(p blog.Post) bool { return p.Slug == slug },
		func(p *blog.Post) {
			p.Author = shared.Author
			p.ImageURL = shared.ImageURL
			p.Tags = shared.Tags
			p.IsPublished = shared.IsPublished
			p.PublishedAt = shared.PublishedAt
		})
	return nil
}

func (repo *blogRepository) GetPost(_ context.Context, slug string, lang i18n.Lang) (blog.Post, error) {
	if p, ok := repo.db.get(rowKey(slug, lang)); ok {
		return p, nil
	}
	return blog.Post{}, core.ErrNotFound
}

func (repo *blogRepository) GetTranslations(_ context.Context, slug string) ([]blog.Post, error) {
	return repo.db.filter(func(p blog.Post) bool { return p.Slug == slug }), nil
}

func (repo *blogRepository) QueryPosts(_ context.Context, lang i18n.Lang, filter *blog.QueryFilter, ordering []core.DBOrdering) ([]blog.Post, error) {
	rows := repo.db.filter(func(p blog.Post) bool {
		if p.Lang != lang {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(p.Title, filter.Search) && !containsFold(p.Excerpt, filter.Search) {
			return false
		}
		if filter.Tag != "" && !hasTag(p.Tags, filter.Tag) {
			return false
		}
		return filter.IsPublished == nil || p.IsPublished == *filter.IsPublished
	})

	orderBy(rows, ordering, lessFuncs[blog.Post]{
		"published_at": func(a, b blog.Post) bool { return a.PublishedAt.Before(b.PublishedAt) },
		"title":        func(a, b blog.Post) bool { return a.Title < b.Title },
		"created_at":   func(a, b blog.Post) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"updated_at":   func(a, b blog.Post) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
	}, func(a, b blog.Post) bool {
		if a.PublishedAt.Equal(b.PublishedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.PublishedAt.After(b.PublishedAt)
	})
	return rows, nil
}

func (repo *blogRepository) DeletePosts(_ context.Context, slug string) (int, error) {
	n := repo.db.deleteWhere(func(p blog.Post) bool { return p.Slug == slug })
	if n > 0 {
		repo.comments.deleteWhere(func(c blog.Comment) bool { return c.PostSlug == slug })
	}
	return n, nil
}

func (repo *blogRepository) QueryPending(_ context.Context) ([]translation.PendingRow, error) {
	return pending(repo.db.filter(nil)), nil
}

func (repo *blogRepository) CreateComment(_ context.Context, c blog.Comment) (blog.Comment, error) {
	c.ID = uuid.New().String()
	repo.comments.put(c.ID, c)
	return c, nil
}

func (repo *blogRepository) GetComment(_ context.Context, id string) (blog.Comment, error) {
	if c, ok := repo.comments.get(id); ok {
		return c, nil
	}
	return blog.Comment{}, core.ErrNotFound
}

func (repo *blogRepository) QueryComments(_ context.Context, filter *blog.CommentFilter, ordering []core.DBOrdering) ([]blog.Comment, error) {
	rows := repo.comments.filter(func(c blog.Comment) bool {
		if filter == nil {
			return true
		}
		if filter.PostSlug != "" && c.PostSlug != filter.PostSlug {
			return false
		}
		return filter.IsApproved == nil || c.IsApproved == *filter.IsApproved
	})

	orderBy(rows, ordering, lessFuncs[blog.Comment]{
		"created_at": func(a, b blog.Comment) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"name":       func(a, b blog.Comment) bool { return a.Name < b.Name },
		"blog_slug":  func(a, b blog.Comment) bool { return a.PostSlug < b.PostSlug },
	}, func(a, b blog.Comment) bool { return a.CreatedAt.After(b.CreatedAt) })
	return rows, nil
}

func (repo *blogRepository) SetCommentApproved(_ context.Context, id string, approved bool) (blog.Comment, error) {
	c, ok := repo.comments.update(id, func(c *blog.Comment) { c.IsApproved = approved })
	if !ok {
		return blog.Comment{}, core.ErrNotFound
	}
	return c, nil
}

func (repo *blogRepository) DeleteComments(_ context.Context, ids ...string) (int, error) {
	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}
	return repo.comments.deleteWhere(func(c blog.Comment) bool { return toDelete[c.ID] }), nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
