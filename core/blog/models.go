// Package blog manages the blog posts, translated per language and grouped by slug, and their comments.
package blog

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

const (
	fieldTitle   = "title"
	fieldExcerpt = "excerpt"
	fieldContent = "content"
)

type Post struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Lang        i18n.Lang         `json:"lang"`
	Title       string            `json:"title"`
	Excerpt     string            `json:"excerpt"`
	Content     string            `json:"content"`
	Author      string            `json:"author"`
	ImageURL    string            `json:"image_url"`
	Tags        []string          `json:"tags"`
	IsPublished bool              `json:"is_published"`
	PublishedAt time.Time         `json:"published_at"` // UTC; zero until first published
	State       translation.State `json:"translation_state"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (p Post) GroupKey() string                    { return p.Slug }
func (p Post) Language() i18n.Lang                 { return p.Lang }
func (p Post) TranslationState() translation.State { return p.State }

func (p Post) Fields() translation.Fields {
	return translation.Fields{
		fieldTitle:   p.Title,
		fieldExcerpt: p.Excerpt,
		fieldContent: p.Content,
	}
}

func (p *Post) SetFields(f translation.Fields) {
	p.Title = f[fieldTitle]
	p.Excerpt = f[fieldExcerpt]
	p.Content = f[fieldContent]
}

func (p Post) Shared() Shared {
	return Shared{
		Author:      p.Author,
		ImageURL:    p.ImageURL,
		Tags:        p.Tags,
		IsPublished: p.IsPublished,
		PublishedAt: p.PublishedAt,
	}
}

// Shared holds the attributes every language row of a post has in common.
type Shared struct {
	Author      string
	ImageURL    string
	Tags        []string
	IsPublished bool
	PublishedAt time.Time
}

type Localized struct {
	Post
	FallbackUsed bool `json:"fallback_used"`
}

type NewPost struct {
	Slug        string   `json:"slug" validate:"omitempty,max=160,slug"`
	Title       string   `json:"title" validate:"required,notblank,max=255"`
	Excerpt     string   `json:"excerpt" validate:"max=1000"`
	Content     string   `json:"content" validate:"required,notblank"`
	Author      string   `json:"author" validate:"max=255"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"max=20,dive,required,max=50"`
	IsPublished bool     `json:"is_published"`
}

func (np *NewPost) Validate(ctx context.Context, validate *validator.Validate, repo Repository) error {
	np.Title = core.CleanString(np.Title)
	np.Slug = core.CleanString(np.Slug, true /* lower */)
	if np.Slug == "" {
		np.Slug = core.Slugify(np.Title)
	}
	np.Author = core.CleanString(np.Author)
	np.ImageURL = core.CleanString(np.ImageURL)
	np.Tags = cleanTags(np.Tags)

	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.Slug == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "slug", Error: "could not derive a slug from the title"})
	}

	exists, err := repo.SlugExists(ctx, np.Slug)
	if err != nil {
		return err
	}
	if exists {
		return core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	}
	return nil
}

// UpdatePost holds the changes to the English row; nil fields are left untouched.
type UpdatePost struct {
	Title       *string   `json:"title" validate:"omitempty,notblank,max=255"`
	Excerpt     *string   `json:"excerpt" validate:"omitempty,max=1000"`
	Content     *string   `json:"content" validate:"omitempty,notblank"`
	Author      *string   `json:"author" validate:"omitempty,max=255"`
	ImageURL    *string   `json:"image_url" validate:"omitempty,url"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	IsPublished *bool     `json:"is_published"`
}

func (up *UpdatePost) Validate(validate *validator.Validate) error {
	if up.Title != nil {
		title := core.CleanString(*up.Title)
		up.Title = &title
	}
	if up.Tags != nil {
		tags := cleanTags(*up.Tags)
		up.Tags = &tags
	}
	return validate.Struct(up)
}

func (up UpdatePost) apply(p *Post, now time.Time) {
	if up.Title != nil {
		p.Title = *up.Title
	}
	if up.Excerpt != nil {
		p.Excerpt = *up.Excerpt
	}
	if up.Content != nil {
		p.Content = *up.Content
	}
	if up.Author != nil {
		p.Author = core.CleanString(*up.Author)
	}
	if up.ImageURL != nil {
		p.ImageURL = core.CleanString(*up.ImageURL)
	}
	if up.Tags != nil {
		p.Tags = *up.Tags
	}
	if up.IsPublished != nil {
		p.IsPublished = *up.IsPublished
		if p.IsPublished && p.PublishedAt.IsZero() {
			p.PublishedAt = now
		}
	}
}

type Translation struct {
	Title   string `json:"title" validate:"required,notblank,max=255"`
	Excerpt string `json:"excerpt" validate:"max=1000"`
	Content string `json:"content" validate:"required,notblank"`
}

func (t Translation) Fields() translation.Fields {
	return translation.Fields{
		fieldTitle:   core.CleanString(t.Title),
		fieldExcerpt: t.Excerpt,
		fieldContent: t.Content,
	}
}

type QueryFilter struct {
	Search      string `query:"search"`
	Tag         string `query:"tag"`
	IsPublished *bool  `query:"is_published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Tag = core.CleanString(qf.Tag, true /* lower */)
}

// cleanTags lower-cases the tags and drops blanks and duplicates.
func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(core.CleanString(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		cleaned = append(cleaned, t)
	}
	return cleaned
}

type Comment struct {
	ID         string    `json:"id"`
	PostSlug   string    `json:"blog_slug"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Content    string    `json:"content"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public hides the commenter's e-mail.
func (c Comment) Public() Comment {
	c.Email = ""
	return c
}

type NewComment struct {
	Name    string `json:"name" validate:"required,notblank,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Content string `json:"content" validate:"required,notblank,max=2000"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.Content = strings.TrimSpace(nc.Content)
	return validate.Struct(nc)
}

type CommentFilter struct {
	PostSlug   string `query:"blog"`
	IsApproved *bool  `query:"is_approved"`
}
