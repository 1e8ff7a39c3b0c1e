// Package review manages customer reviews. Reviews are shown in the language they were written in.
package review

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
)

type Review struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content"`
	Lang       i18n.Lang `json:"lang"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewReview struct {
	Name       string    `json:"name" validate:"required,notblank,max=255"`
	Rating     int       `json:"rating" validate:"required,min=1,max=5"`
	Content    string    `json:"content" validate:"required,notblank,max=2000"`
	Lang       i18n.Lang `json:"lang" validate:"omitempty,lang"`
	IsApproved bool      `json:"is_approved"` // ignored on public submissions
}

func (nr *NewReview) clean() {
	nr.Name = core.CleanString(nr.Name)
	nr.Content = strings.TrimSpace(nr.Content)
	if nr.Lang == "" {
		nr.Lang = i18n.Default
	}
}

type UpdateReview struct {
	Name       *string `json:"name" validate:"omitempty,notblank,max=255"`
	Rating     *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Content    *string `json:"content" validate:"omitempty,notblank,max=2000"`
	IsApproved *bool   `json:"is_approved"`
}

type QueryFilter struct {
	IsApproved *bool     `query:"is_approved"`
	Lang       i18n.Lang `query:"lang"`
	MinRating  int       `query:"min_rating"`
}

type Repository interface {
	CreateReview(ctx context.Context, r Review) (Review, error)
	GetReview(ctx context.Context, id string) (Review, error)
	QueryReviews(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Review, error)
	UpdateReview(ctx context.Context, r Review) (Review, error)
	DeleteReviews(ctx context.Context, ids ...string) (int, error)
}

type Service struct {
	repo     Repository
	validate *validator.Validate
	mailer   core.EmailService
	inbox    mail.Address
}

func NewService(repo Repository, validate *validator.Validate, mailer core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, validate: validate, mailer: mailer, inbox: conf.ContactInbox()}
}

// Submit stores a visitor review. It is hidden until an admin approves it.
func (svc *Service) Submit(ctx context.Context, nr NewReview) (Review, error) {
	nr.IsApproved = false
	rev, err := svc.create(ctx, nr)
	if err != nil {
		return Review{}, err
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.inbox},
		Subject:      "New review awaiting approval",
		TemplateName: "review_submitted",
		TemplateData: rev,
	})
	return rev, nil
}

// Create stores a review entered by an admin.
func (svc *Service) Create(ctx context.Context, nr NewReview) (Review, error) {
	return svc.create(ctx, nr)
}

func (svc *Service) create(ctx context.Context, nr NewReview) (Review, error) {
	nr.clean()
	if err := svc.validate.Struct(nr); err != nil {
		return Review{}, err
	}
	rev, err := svc.repo.CreateReview(ctx, Review{
		Name:       nr.Name,
		Rating:     nr.Rating,
		Content:    nr.Content,
		Lang:       nr.Lang,
		IsApproved: nr.IsApproved,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return Review{}, errors.Wrap(err, "creating review")
	}
	return rev, nil
}

// Approved returns the approved reviews, newest first. An empty lang returns every language.
func (svc *Service) Approved(ctx context.Context, lang i18n.Lang) ([]Review, error) {
	approved := true
	return svc.repo.QueryReviews(ctx, &QueryFilter{IsApproved: &approved, Lang: lang}, nil)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Review, error) {
	ordering = core.AllowedOrderings(ordering, "created_at", "rating", "name")
	return svc.repo.QueryReviews(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Review, error) {
	return svc.repo.GetReview(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateReview) (Review, error) {
	rev, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}
	if ur.Name != nil {
		name := core.CleanString(*ur.Name)
		ur.Name = &name
	}
	if err = svc.validate.Struct(ur); err != nil {
		return Review{}, err
	}

	if ur.Name != nil {
		rev.Name = *ur.Name
	}
	if ur.Rating != nil {
		rev.Rating = *ur.Rating
	}
	if ur.Content != nil {
		rev.Content = strings.TrimSpace(*ur.Content)
	}
	if ur.IsApproved != nil {
		rev.IsApproved = *ur.IsApproved
	}
	return svc.repo.UpdateReview(ctx, rev)
}

func (svc *Service) SetApproved(ctx context.Context, id string, approved bool) (Review, error) {
	return svc.Update(ctx, id, UpdateReview{IsApproved: &approved})
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	n, err := svc.repo.DeleteReviews(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting reviews")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
