// Package page manages the singleton "about us" page and the statistics shown on the home page.
package page

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

// AboutGroup is the group key of the about page rows.
const AboutGroup = "about"

const (
	fieldTitle   = "title"
	fieldContent = "content"
	fieldMission = "mission"
	fieldVision  = "vision"
)

type About struct {
	Lang      i18n.Lang         `json:"lang"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Mission   string            `json:"mission"`
	Vision    string            `json:"vision"`
	ImageURL  string            `json:"image_url"`
	State     translation.State `json:"translation_state"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (a About) GroupKey() string                    { return AboutGroup }
func (a About) Language() i18n.Lang                 { return a.Lang }
func (a About) TranslationState() translation.State { return a.State }

func (a About) Fields() translation.Fields {
	return translation.Fields{
		fieldTitle:   a.Title,
		fieldContent: a.Content,
		fieldMission: a.Mission,
		fieldVision:  a.Vision,
	}
}

func (a *About) SetFields(f translation.Fields) {
	a.Title = f[fieldTitle]
	a.Content = f[fieldContent]
	a.Mission = f[fieldMission]
	a.Vision = f[fieldVision]
}

type LocalizedAbout struct {
	About
	FallbackUsed bool `json:"fallback_used"`
}

// UpdateAbout replaces the English page; the first call creates it.
type UpdateAbout struct {
	Title    string `json:"title" validate:"required,notblank,max=255"`
	Content  string `json:"content" validate:"required,notblank"`
	Mission  string `json:"mission"`
	Vision   string `json:"vision"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

type AboutTranslation struct {
	Title   string `json:"title" validate:"required,notblank,max=255"`
	Content string `json:"content" validate:"required,notblank"`
	Mission string `json:"mission"`
	Vision  string `json:"vision"`
}

type AboutRepository interface {
	SaveAbout(ctx context.Context, a About) (About, error)
	// SetAboutImage sets the image of every language row.
	SetAboutImage(ctx context.Context, imageURL string) error
	GetAbout(ctx context.Context, lang i18n.Lang) (About, error)
	GetAboutTranslations(ctx context.Context) ([]About, error)
	QueryAboutPending(ctx context.Context) ([]translation.PendingRow, error)
}

type AboutManager struct {
	repo     AboutRepository
	fanout   *translation.Fanout
	validate *validator.Validate
}

var _ translation.Source = (*AboutManager)(nil)

func NewAboutManager(repo AboutRepository, fanout *translation.Fanout, validate *validator.Validate) *AboutManager {
	return &AboutManager{repo: repo, fanout: fanout, validate: validate}
}

func (m *AboutManager) Name() string { return "about" }

// Update saves the English page and, with autoTranslate, the other languages
// (the ones edited by an admin only with force).
func (m *AboutManager) Update(ctx context.Context, ua UpdateAbout, autoTranslate, force bool) (About, translation.Report, error) {
	ua.Title = core.CleanString(ua.Title)
	ua.ImageURL = core.CleanString(ua.ImageURL)
	if err := m.validate.Struct(ua); err != nil {
		return About{}, translation.Report{}, err
	}
	rows, err := m.repo.GetAboutTranslations(ctx)
	if err != nil {
		return About{}, translation.Report{}, err
	}

	src := About{
		Lang:      m.fanout.Source(),
		Title:     ua.Title,
		Content:   ua.Content,
		Mission:   ua.Mission,
		Vision:    ua.Vision,
		ImageURL:  ua.ImageURL,
		State:     translation.StateSource,
		UpdatedAt: time.Now().UTC(),
	}
	if src, err = m.repo.SaveAbout(ctx, src); err != nil {
		return About{}, translation.Report{}, errors.Wrap(err, "saving about page")
	}
	if err = m.repo.SetAboutImage(ctx, src.ImageURL); err != nil {
		return About{}, translation.Report{}, errors.Wrap(err, "updating about page translations")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, translation.States(rows), translation.SyncOptions{Force: force})
	return src, report, err
}

func (m *AboutManager) UpdateTranslation(ctx context.Context, lang i18n.Lang, tr AboutTranslation) (About, error) {
	if err := translation.CheckTarget(lang, m.fanout.Source()); err != nil {
		return About{}, err
	}
	tr.Title = core.CleanString(tr.Title)
	if err := m.validate.Struct(tr); err != nil {
		return About{}, err
	}
	src, err := m.repo.GetAbout(ctx, m.fanout.Source())
	if err != nil {
		return About{}, err
	}

	row := src
	row.Lang = lang
	row.State = translation.StateManual
	row.UpdatedAt = time.Now().UTC()
	row.SetFields(translation.Fields{
		fieldTitle:   tr.Title,
		fieldContent: tr.Content,
		fieldMission: tr.Mission,
		fieldVision:  tr.Vision,
	})
	return m.repo.SaveAbout(ctx, row)
}

func (m *AboutManager) Get(ctx context.Context, lang i18n.Lang) (LocalizedAbout, error) {
	row, err := m.repo.GetAbout(ctx, lang)
	fallback := false
	if core.IsNotFound(err) && lang != m.fanout.Source() {
		row, err = m.repo.GetAbout(ctx, m.fanout.Source())
		fallback = true
	}
	if err != nil {
		return LocalizedAbout{}, err
	}
	return LocalizedAbout{About: row, FallbackUsed: fallback}, nil
}

func (m *AboutManager) Translations(ctx context.Context) ([]About, error) {
	rows, err := m.repo.GetAboutTranslations(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, core.ErrNotFound
	}
	return translation.SortByLang(rows), nil
}

func (m *AboutManager) Pending(ctx context.Context) ([]translation.PendingRow, error) {
	return m.repo.QueryAboutPending(ctx)
}

func (m *AboutManager) Retranslate(ctx context.Context, _ string, lang i18n.Lang) (translation.LangReport, error) {
	rows, err := m.repo.GetAboutTranslations(ctx)
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

func (m *AboutManager) sync(ctx context.Context, src About, existing map[i18n.Lang]translation.State, opts translation.SyncOptions) (translation.Report, error) {
	return translation.Sync(ctx, m.fanout, src.Fields(), existing, opts,
		func(ctx context.Context, lang i18n.Lang, fields translation.Fields, state translation.State) error {
			row := src
			row.Lang = lang
			row.State = state
			row.SetFields(fields)
			_, err := m.repo.SaveAbout(ctx, row)
			return err
		})
}
