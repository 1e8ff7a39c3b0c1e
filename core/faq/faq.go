// Package faq manages the frequently asked questions. The language rows of a question share a group key.
package faq

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

const (
	fieldQuestion = "question"
	fieldAnswer   = "answer"
)

type FAQ struct {
	ID        string            `json:"id"`
	Group     string            `json:"group_key"`
	Lang      i18n.Lang         `json:"lang"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Position  int               `json:"position"`
	IsActive  bool              `json:"is_active"`
	State     translation.State `json:"translation_state"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (f FAQ) GroupKey() string                    { return f.Group }
func (f FAQ) Language() i18n.Lang                 { return f.Lang }
func (f FAQ) TranslationState() translation.State { return f.State }

func (f FAQ) Fields() translation.Fields {
	return translation.Fields{fieldQuestion: f.Question, fieldAnswer: f.Answer}
}

func (f *FAQ) SetFields(fields translation.Fields) {
	f.Question = fields[fieldQuestion]
	f.Answer = fields[fieldAnswer]
}

type Localized struct {
	FAQ
	FallbackUsed bool `json:"fallback_used"`
}

type NewFAQ struct {
	Question string `json:"question" validate:"required,notblank,max=500"`
	Answer   string `json:"answer" validate:"required,notblank"`
	Position int    `json:"position" validate:"min=0"`
	IsActive *bool  `json:"is_active"`
}

type UpdateFAQ struct {
	Question *string `json:"question" validate:"omitempty,notblank,max=500"`
	Answer   *string `json:"answer" validate:"omitempty,notblank"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
	IsActive *bool   `json:"is_active"`
}

type Translation struct {
	Question string `json:"question" validate:"required,notblank,max=500"`
	Answer   string `json:"answer" validate:"required,notblank"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

type Repository interface {
	SaveFAQ(ctx context.Context, f FAQ) (FAQ, error)
	// UpdateShared sets the position and active flag of every language row of the group.
	UpdateShared(ctx context.Context, group string, position int, active bool) error
	GetFAQ(ctx context.Context, group string, lang i18n.Lang) (FAQ, error)
	GetTranslations(ctx context.Context, group string) ([]FAQ, error)
	QueryFAQs(ctx context.Context, lang i18n.Lang, filter *QueryFilter, ordering []core.DBOrdering) ([]FAQ, error)
	DeleteFAQs(ctx context.Context, group string) (int, error)
	QueryPending(ctx context.Context) ([]translation.PendingRow, error)
}

type Manager struct {
	repo     Repository
	fanout   *translation.Fanout
	validate *validator.Validate
}

var _ translation.Source = (*Manager)(nil)

func NewManager(repo Repository, fanout *translation.Fanout, validate *validator.Validate) *Manager {
	return &Manager{repo: repo, fanout: fanout, validate: validate}
}

func (m *Manager) Name() string { return "faqs" }

func (m *Manager) Create(ctx context.Context, nf NewFAQ, autoTranslate bool) (FAQ, translation.Report, error) {
	nf.Question = core.CleanString(nf.Question)
	if err := m.validate.Struct(nf); err != nil {
		return FAQ{}, translation.Report{}, err
	}

	now := time.Now().UTC()
	src := FAQ{
		Group:     uuid.New().String(),
		Lang:      m.fanout.Source(),
		Question:  nf.Question,
		Answer:    nf.Answer,
		Position:  nf.Position,
		IsActive:  nf.IsActive == nil || *nf.IsActive,
		State:     translation.StateSource,
		CreatedAt: now,
		UpdatedAt: now,
	}
	src, err := m.repo.SaveFAQ(ctx, src)
	if err != nil {
		return FAQ{}, translation.Report{}, errors.Wrap(err, "saving faq")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, nil, translation.SyncOptions{})
	return src, report, err
}

func (m *Manager) Update(ctx context.Context, group string, uf UpdateFAQ, autoTranslate, force bool) (FAQ, translation.Report, error) {
	rows, err := m.repo.GetTranslations(ctx, group)
	if err != nil {
		return FAQ{}, translation.Report{}, err
	}
	src, ok := translation.Find(rows, m.fanout.Source())
	if !ok {
		return FAQ{}, translation.Report{}, core.ErrNotFound
	}
	if uf.Question != nil {
		q := core.CleanString(*uf.Question)
		uf.Question = &q
	}
	if err = m.validate.Struct(uf); err != nil {
		return FAQ{}, translation.Report{}, err
	}

	if uf.Question != nil {
		src.Question = *uf.Question
	}
	if uf.Answer != nil {
		src.Answer = *uf.Answer
	}
	if uf.Position != nil {
		src.Position = *uf.Position
	}
	if uf.IsActive != nil {
		src.IsActive = *uf.IsActive
	}
	src.UpdatedAt = time.Now().UTC()
	if src, err = m.repo.SaveFAQ(ctx, src); err != nil {
		return FAQ{}, translation.Report{}, errors.Wrap(err, "saving faq")
	}
	if err = m.repo.UpdateShared(ctx, group, src.Position, src.IsActive); err != nil {
		return FAQ{}, translation.Report{}, errors.Wrap(err, "updating faq translations")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, translation.States(rows), translation.SyncOptions{Force: force})
	return src, report, err
}

func (m *Manager) UpdateTranslation(ctx context.Context, group string, lang i18n.Lang, tr Translation) (FAQ, error) {
	if err := translation.CheckTarget(lang, m.fanout.Source()); err != nil {
		return FAQ{}, err
	}
	tr.Question = core.CleanString(tr.Question)
	if err := m.validate.Struct(tr); err != nil {
		return FAQ{}, err
	}
	src, err := m.repo.GetFAQ(ctx, group, m.fanout.Source())
	if err != nil {
		return FAQ{}, err
	}

	row := src
	row.ID = ""
	row.Lang = lang
	row.State = translation.StateManual
	row.UpdatedAt = time.Now().UTC()
	row.SetFields(translation.Fields{fieldQuestion: tr.Question, fieldAnswer: tr.Answer})
	return m.repo.SaveFAQ(ctx, row)
}

func (m *Manager) Delete(ctx context.Context, group string) error {
	n, err := m.repo.DeleteFAQs(ctx, group)
	if err != nil {
		return errors.Wrap(err, "deleting faq")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m *Manager) Get(ctx context.Context, group string, lang i18n.Lang) (Localized, error) {
	row, err := m.repo.GetFAQ(ctx, group, lang)
	fallback := false
	if core.IsNotFound(err) && lang != m.fanout.Source() {
		row, err = m.repo.GetFAQ(ctx, group, m.fanout.Source())
		fallback = true
	}
	if err != nil {
		return Localized{}, err
	}
	return Localized{FAQ: row, FallbackUsed: fallback}, nil
}

func (m *Manager) List(ctx context.Context, lang i18n.Lang, filter *QueryFilter, ordering []core.DBOrdering) ([]Localized, error) {
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
	}
	ordering = core.AllowedOrderings(ordering, "position", "created_at", "updated_at")
	sources, err := m.repo.QueryFAQs(ctx, m.fanout.Source(), filter, ordering)
	if err != nil {
		return nil, err
	}

	localized := sources
	if lang != m.fanout.Source() {
		if localized, err = m.repo.QueryFAQs(ctx, lang, nil, nil); err != nil {
			return nil, err
		}
	}

	rows, fallbacks := translation.Pick(sources, localized)
	list := make([]Localized, 0, len(rows))
	for i, r := range rows {
		list = append(list, Localized{FAQ: r, FallbackUsed: fallbacks[i]})
	}
	return list, nil
}

func (m *Manager) Translations(ctx context.Context, group string) ([]FAQ, error) {
	rows, err := m.repo.GetTranslations(ctx, group)
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

func (m *Manager) Retranslate(ctx context.Context, group string, lang i18n.Lang) (translation.LangReport, error) {
	rows, err := m.repo.GetTranslations(ctx, group)
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

func (m *Manager) sync(ctx context.Context, src FAQ, existing map[i18n.Lang]translation.State, opts translation.SyncOptions) (translation.Report, error) {
	return translation.Sync(ctx, m.fanout, src.Fields(), existing, opts,
		func(ctx context.Context, lang i18n.Lang, fields translation.Fields, state translation.State) error {
			row := src
			row.ID = ""
			row.Lang = lang
			row.State = state
			row.SetFields(fields)
			_, err := m.repo.SaveFAQ(ctx, row)
			return err
		})
}
