// Package offering manages the home services the company sells (pest control, cleaning, ...).
// Every service has one row per language, grouped by slug.
package offering

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

// translated fields
const (
	fieldTitle           = "title"
	fieldSummary         = "summary"
	fieldDescription     = "description"
	fieldMetaTitle       = "meta_title"
	fieldMetaDescription = "meta_description"
)

type Offering struct {
	ID              string            `json:"id"`
	Slug            string            `json:"slug"`
	Lang            i18n.Lang         `json:"lang"`
	Title           string            `json:"title"`
	Summary         string            `json:"summary"`
	Description     string            `json:"description"`
	MetaTitle       string            `json:"meta_title"`
	MetaDescription string            `json:"meta_description"`
	Icon            string            `json:"icon"`
	ImageURL        string            `json:"image_url"`
	Position        int               `json:"position"`
	IsActive        bool              `json:"is_active"`
	State           translation.State `json:"translation_state"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (o Offering) GroupKey() string                    { return o.Slug }
func (o Offering) Language() i18n.Lang                 { return o.Lang }
func (o Offering) TranslationState() translation.State { return o.State }

func (o Offering) Fields() translation.Fields {
	return translation.Fields{
		fieldTitle:           o.Title,
		fieldSummary:         o.Summary,
		fieldDescription:     o.Description,
		fieldMetaTitle:       o.MetaTitle,
		fieldMetaDescription: o.MetaDescription,
	}
}

func (o *Offering) SetFields(f translation.Fields) {
	o.Title = f[fieldTitle]
	o.Summary = f[fieldSummary]
	o.Description = f[fieldDescription]
	o.MetaTitle = f[fieldMetaTitle]
	o.MetaDescription = f[fieldMetaDescription]
}

// Shared returns the attributes every language row of the service has in common.
func (o Offering) Shared() Shared {
	return Shared{Icon: o.Icon, ImageURL: o.ImageURL, Position: o.Position, IsActive: o.IsActive}
}

type Shared struct {
	Icon     string
	ImageURL string
	Position int
	IsActive bool
}

// Localized is an Offering read in a given language.
// FallbackUsed is set when the language row does not exist and the English row is served instead.
type Localized struct {
	Offering
	FallbackUsed bool `json:"fallback_used"`
}

type NewOffering struct {
	Slug            string `json:"slug" validate:"omitempty,max=120,slug"`
	Title           string `json:"title" validate:"required,notblank,max=255"`
	Summary         string `json:"summary" validate:"max=1000"`
	Description     string `json:"description"`
	MetaTitle       string `json:"meta_title" validate:"max=255"`
	MetaDescription string `json:"meta_description" validate:"max=500"`
	Icon            string `json:"icon" validate:"max=120"`
	ImageURL        string `json:"image_url" validate:"omitempty,url"`
	Position        int    `json:"position" validate:"min=0"`
	IsActive        *bool  `json:"is_active"`
}

func (no *NewOffering) Validate(ctx context.Context, validate *validator.Validate, repo Repository) error {
	no.Title = core.CleanString(no.Title)
	no.Slug = core.CleanString(no.Slug, true /* lower */)
	if no.Slug == "" {
		no.Slug = core.Slugify(no.Title)
	}
	no.Icon = core.CleanString(no.Icon)
	no.ImageURL = core.CleanString(no.ImageURL)

	if err := validate.Struct(no); err != nil {
		return err
	}
	if no.Slug == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "slug", Error: "could not derive a slug from the title"})
	}

	exists, err := repo.SlugExists(ctx, no.Slug)
	if err != nil {
		return err
	}
	if exists {
		return core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	}
	return nil
}

// UpdateOffering holds the changes to the English row; nil fields are left untouched.
// The slug cannot change.
type UpdateOffering struct {
	Title           *string `json:"title" validate:"omitempty,notblank,max=255"`
	Summary         *string `json:"summary" validate:"omitempty,max=1000"`
	Description     *string `json:"description"`
	MetaTitle       *string `json:"meta_title" validate:"omitempty,max=255"`
	MetaDescription *string `json:"meta_description" validate:"omitempty,max=500"`
	Icon            *string `json:"icon" validate:"omitempty,max=120"`
	ImageURL        *string `json:"image_url" validate:"omitempty,url"`
	Position        *int    `json:"position" validate:"omitempty,min=0"`
	IsActive        *bool   `json:"is_active"`
}

func (uo *UpdateOffering) Validate(validate *validator.Validate) error {
	if uo.Title != nil {
		title := core.CleanString(*uo.Title)
		uo.Title = &title
	}
	return validate.Struct(uo)
}

func (uo UpdateOffering) apply(o *Offering) {
	if uo.Title != nil {
		o.Title = *uo.Title
	}
	if uo.Summary != nil {
		o.Summary = *uo.Summary
	}
	if uo.Description != nil {
		o.Description = *uo.Description
	}
	if uo.MetaTitle != nil {
		o.MetaTitle = *uo.MetaTitle
	}
	if uo.MetaDescription != nil {
		o.MetaDescription = *uo.MetaDescription
	}
	if uo.Icon != nil {
		o.Icon = core.CleanString(*uo.Icon)
	}
	if uo.ImageURL != nil {
		o.ImageURL = core.CleanString(*uo.ImageURL)
	}
	if uo.Position != nil {
		o.Position = *uo.Position
	}
	if uo.IsActive != nil {
		o.IsActive = *uo.IsActive
	}
}

// Translation is an admin edit of one non-English row.
type Translation struct {
	Title           string `json:"title" validate:"required,notblank,max=255"`
	Summary         string `json:"summary" validate:"max=1000"`
	Description     string `json:"description"`
	MetaTitle       string `json:"meta_title" validate:"max=255"`
	MetaDescription string `json:"meta_description" validate:"max=500"`
}

func (t Translation) Fields() translation.Fields {
	return translation.Fields{
		fieldTitle:           core.CleanString(t.Title),
		fieldSummary:         t.Summary,
		fieldDescription:     t.Description,
		fieldMetaTitle:       t.MetaTitle,
		fieldMetaDescription: t.MetaDescription,
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
