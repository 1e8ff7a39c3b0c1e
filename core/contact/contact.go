// Package contact stores the messages sent through the public contact form and notifies the company inbox.
package contact

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
)

type Submission struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       null.String `json:"phone"`
	ServiceSlug null.String `json:"service_slug"`
	Message     string      `json:"message"`
	Lang        i18n.Lang   `json:"lang"`
	IsRead      bool        `json:"is_read"`
	CreatedAt   time.Time   `json:"created_at"`
}

type NewSubmission struct {
	Name        string    `json:"name" validate:"required,notblank,max=255"`
	Email       string    `json:"email" validate:"required,email,max=255"`
	Phone       string    `json:"phone" validate:"omitempty,max=32,e164|numeric"`
	ServiceSlug string    `json:"service_slug" validate:"omitempty,max=120,slug"`
	Message     string    `json:"message" validate:"required,notblank,max=5000"`
	Lang        i18n.Lang `json:"lang" validate:"omitempty,lang"`
}

func (ns *NewSubmission) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(ns.Phone))
	ns.ServiceSlug = core.CleanString(ns.ServiceSlug, true /* lower */)
	ns.Message = strings.TrimSpace(ns.Message)
	if ns.Lang == "" {
		ns.Lang = i18n.Default
	}
}

type QueryFilter struct {
	Search string `query:"search"`
	IsRead *bool  `query:"is_read"`
}

type Repository interface {
	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	QuerySubmissions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error)
	SetSubmissionRead(ctx context.Context, id string, read bool) (Submission, error)
	DeleteSubmissions(ctx context.Context, ids ...string) (int, error)
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

// Submit stores the message and e-mails it to the company inbox, with the visitor as reply-to.
func (svc *Service) Submit(ctx context.Context, ns NewSubmission) (Submission, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		Name:        ns.Name,
		Email:       ns.Email,
		Phone:       null.NewString(ns.Phone, ns.Phone != ""),
		ServiceSlug: null.NewString(ns.ServiceSlug, ns.ServiceSlug != ""),
		Message:     ns.Message,
		Lang:        ns.Lang,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Submission{}, errors.Wrap(err, "creating contact submission")
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.inbox},
		ReplyTo:      &mail.Address{Name: sub.Name, Address: sub.Email},
		Subject:      "New contact request from " + sub.Name,
		TemplateName: "contact_submission",
		TemplateData: sub,
	})
	return sub, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Submission, error) {
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
	}
	ordering = core.AllowedOrderings(ordering, "created_at", "name", "email")
	return svc.repo.QuerySubmissions(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *Service) MarkRead(ctx context.Context, id string, read bool) (Submission, error) {
	return svc.repo.SetSubmissionRead(ctx, id, read)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	n, err := svc.repo.DeleteSubmissions(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting contact submissions")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
