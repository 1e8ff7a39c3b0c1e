package page

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

const fieldLabel = "label"

// Statistic is a figure of the home page, e.g. "12000+ happy customers".
type Statistic struct {
	ID        string            `json:"id"`
	Group     string            `json:"group_key"`
	Lang      i18n.Lang         `json:"lang"`
	Label     string            `json:"label"`
	Value     int               `json:"value"`
	Suffix    string            `json:"suffix"`
	Position  int               `json:"position"`
	State     translation.State `json:"translation_state"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (s Statistic) GroupKey() string                    { return s.Group }
func (s Statistic) Language() i18n.Lang                 { return s.Lang }
func (s Statistic) TranslationState() translation.State { return s.State }

type LocalizedStatistic struct {
	Statistic
	FallbackUsed bool `json:"fallback_used"`
}

type NewStatistic struct {
	Label    string `json:"label" validate:"required,notblank,max=255"`
	Value    int    `json:"value" validate:"min=0"`
	Suffix   string `json:"suffix" validate:"max=16"`
	Position int    `json:"position" validate:"min=0"`
}

type UpdateStatistic struct {
	Label    *string `json:"label" validate:"omitempty,notblank,max=255"`
	Value    *int    `json:"value" validate:"omitempty,min=0"`
	Suffix   *string `json:"suffix" validate:"omitempty,max=16"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
}

type StatisticTranslation struct {
	Label string `json:"label" validate:"required,notblank,max=255"`
}

type StatisticRepository interface {
	SaveStatistic(ctx context.Context, s Statistic) (Statistic, error)
	UpdateStatisticShared(ctx context.Context, group string, value int, suffix string, position int) error
	GetStatistic(ctx context.Context, group string, lang i18n.Lang) (Statistic, error)
	GetStatisticTranslations(ctx context.Context, group string) ([]Statistic, error)
	// QueryStatistics returns the rows of `lang` ordered by position.
	QueryStatistics(ctx context.Context, lang i18n.Lang) ([]Statistic, error)
	DeleteStatistics(ctx context.Context, group string) (int, error)
	QueryStatisticsPending(ctx context.Context) ([]translation.PendingRow, error)
}

type StatisticManager struct {
	repo     StatisticRepository
	fanout   *translation.Fanout
	validate *validator.Validate
}

var _ translation.Source = (*StatisticManager)(nil)

func NewStatisticManager(repo StatisticRepository, fanout *translation.Fanout, validate *validator.Validate) *StatisticManager {
	return &StatisticManager{repo: repo, fanout: fanout, validate: validate}
}

func (m *StatisticManager) Name() string { return "statistics" }

func (m *StatisticManager) Create(ctx context.Context, ns NewStatistic, autoTranslate bool) (Statistic, translation.Report, error) {
	ns.Label = core.CleanString(ns.Label)
	ns.Suffix = core.CleanString(ns.Suffix)
	if err := m.validate.Struct(ns); err != nil {
		return Statistic{}, translation.Report{}, err
	}

	now := time.Now().UTC()
	src := Statistic{
		Group:     uuid.New().String(),
		Lang:      m.fanout.Source(),
		Label:     ns.Label,
		Value:     ns.Value,
		Suffix:    ns.Suffix,
		Position:  ns.Position,
		State:     translation.StateSource,
		CreatedAt: now,
		UpdatedAt: now,
	}
	src, err := m.repo.SaveStatistic(ctx, src)
	if err != nil {
		return Statistic{}, translation.Report{}, errors.Wrap(err, "saving statistic")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, nil, translation.SyncOptions{})
	return src, report, err
}

func (m *StatisticManager) Update(ctx context.Context, group string, us UpdateStatistic, autoTranslate, force bool) (Statistic, translation.Report, error) {
	rows, err := m.repo.GetStatisticTranslations(ctx, group)
	if err != nil {
		return Statistic{}, translation.Report{}, err
	}
	src, ok := translation.Find(rows, m.fanout.Source())
	if !ok {
		return Statistic{}, translation.Report{}, core.ErrNotFound
	}
	if us.Label != nil {
		label := core.CleanString(*us.Label)
		us.Label = &label
	}
	if err = m.validate.Struct(us); err != nil {
		return Statistic{}, translation.Report{}, err
	}

	if us.Label != nil {
		src.Label = *us.Label
	}
	if us.Value != nil {
		src.Value = *us.Value
	}
	if us.Suffix != nil {
		src.Suffix = core.CleanString(*us.Suffix)
	}
	if us.Position != nil {
		src.Position = *us.Position
	}
	src.UpdatedAt = time.Now().UTC()
	if src, err = m.repo.SaveStatistic(ctx, src); err != nil {
		return Statistic{}, translation.Report{}, errors.Wrap(err, "saving statistic")
	}
	if err = m.repo.UpdateStatisticShared(ctx, group, src.Value, src.Suffix, src.Position); err != nil {
		return Statistic{}, translation.Report{}, errors.Wrap(err, "updating statistic translations")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, translation.States(rows), translation.SyncOptions{Force: force})
	return src, report, err
}

func (m *StatisticManager) UpdateTranslation(ctx context.Context, group string, lang i18n.Lang, tr StatisticTranslation) (Statistic, error) {
	if err := translation.CheckTarget(lang, m.fanout.Source()); err != nil {
		return Statistic{}, err
	}
	tr.Label = core.CleanString(tr.Label)
	if err := m.validate.Struct(tr); err != nil {
		return Statistic{}, err
	}
	src, err := m.repo.GetStatistic(ctx, group, m.fanout.Source())
	if err != nil {
		return Statistic{}, err
	}

	row := src
	row.ID = ""
	row.Lang = lang
	row.Label = tr.Label
	row.State = translation.StateManual
	row.UpdatedAt = time.Now().UTC()
	return m.repo.SaveStatistic(ctx, row)
}

func (m *StatisticManager) Delete(ctx context.Context, group string) error {
	n, err := m.repo.DeleteStatistics(ctx, group)
	if err != nil {
		return errors.Wrap(err, "deleting statistic")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m *StatisticManager) Get(ctx context.Context, group string, lang i18n.Lang) (LocalizedStatistic, error) {
	row, err := m.repo.GetStatistic(ctx, group, lang)
	fallback := false
	if core.IsNotFound(err) && lang != m.fanout.Source() {
		row, err = m.repo.GetStatistic(ctx, group, m.fanout.Source())
		fallback = true
	}
	if err != nil {
		return LocalizedStatistic{}, err
	}
	return LocalizedStatistic{Statistic: row, FallbackUsed: fallback}, nil
}

func (m *StatisticManager) List(ctx context.Context, lang i18n.Lang) ([]LocalizedStatistic, error) {
	sources, err := m.repo.QueryStatistics(ctx, m.fanout.Source())
	if err != nil {
		return nil, err
	}

	localized := sources
	if lang != m.fanout.Source() {
		if localized, err = m.repo.QueryStatistics(ctx, lang); err != nil {
			return nil, err
		}
	}

	rows, fallbacks := translation.Pick(sources, localized)
	list := make([]LocalizedStatistic, 0, len(rows))
	for i, r := range rows {
		list = append(list, LocalizedStatistic{Statistic: r, FallbackUsed: fallbacks[i]})
	}
	return list, nil
}

func (m *StatisticManager) Translations(ctx context.Context, group string) ([]Statistic, error) {
	rows, err := m.repo.GetStatisticTranslations(ctx, group)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, core.ErrNotFound
	}
	return translation.SortByLang(rows), nil
}

func (m *StatisticManager) Pending(ctx context.Context) ([]translation.PendingRow, error) {
	return m.repo.QueryStatisticsPending(ctx)
}

func (m *StatisticManager) Retranslate(ctx context.Context, group string, lang i18n.Lang) (translation.LangReport, error) {
	rows, err := m.repo.GetStatisticTranslations(ctx, group)
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

func (m *StatisticManager) sync(ctx context.Context, src Statistic, existing map[i18n.Lang]translation.State, opts translation.SyncOptions) (translation.Report, error) {
	return translation.Sync(ctx, m.fanout, translation.Fields{fieldLabel: src.Label}, existing, opts,
		func(ctx context.Context, lang i18n.Lang, fields translation.Fields, state translation.State) error {
			row := src
			row.ID = ""
			row.Lang = lang
			row.State = state
			row.Label = fields[fieldLabel]
			_, err := m.repo.SaveStatistic(ctx, row)
			return err
		})
}
