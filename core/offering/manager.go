package offering

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

var ErrSlugExists = errors.New("a service with this slug already exists")

type Repository interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	// SaveOffering inserts the row of (Slug, Lang) or replaces it.
	SaveOffering(ctx context.Context, o Offering) (Offering, error)
	UpdateShared(ctx context.Context, slug string, shared Shared) error
	GetOffering(ctx context.Context, slug string, lang i18n.Lang) (Offering, error)
	// GetTranslations returns every language row of the service.
	GetTranslations(ctx context.Context, slug string) ([]Offering, error)
	QueryOfferings(ctx context.Context, lang i18n.Lang, filter *QueryFilter, ordering []core.DBOrdering) ([]Offering, error)
	DeleteOfferings(ctx context.Context, slug string) (int, error)
	// QueryPending returns the rows still in fallback state.
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

func (m *Manager) Name() string { return "services" }

// Create stores the English row of a new service.
// With autoTranslate, the other languages are translated and stored too; a fanout error is returned
// along with the created row and the report.
func (m *Manager) Create(ctx context.Context, no NewOffering, autoTranslate bool) (Offering, translation.Report, error) {
	if err := no.Validate(ctx, m.validate, m.repo); err != nil {
		return Offering{}, translation.Report{}, err
	}

	now := time.Now().UTC()
	src := Offering{
		Slug:            no.Slug,
		Lang:            m.fanout.Source(),
		Title:           no.Title,
		Summary:         no.Summary,
		Description:     no.Description,
		MetaTitle:       no.MetaTitle,
		MetaDescription: no.MetaDescription,
		Icon:            no.Icon,
		ImageURL:        no.ImageURL,
		Position:        no.Position,
		IsActive:        no.IsActive == nil || *no.IsActive,
		State:           translation.StateSource,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	src, err := m.repo.SaveOffering(ctx, src)
	if err != nil {
		return Offering{}, translation.Report{}, errors.Wrap(err, "saving service")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, nil, translation.SyncOptions{})
	return src, report, err
}

// Update changes the English row and the shared attributes of every language row.
// With autoTranslate, the rows not edited by an admin (all of them with force) are retranslated.
func (m *Manager) Update(ctx context.Context, slug string, uo UpdateOffering, autoTranslate, force bool) (Offering, translation.Report, error) {
	rows, err := m.repo.GetTranslations(ctx, slug)
	if err != nil {
		return Offering{}, translation.Report{}, err
	}
	src, ok := translation.Find(rows, m.fanout.Source())
	if !ok {
		return Offering{}, translation.Report{}, core.ErrNotFound
	}
	if err = uo.Validate(m.validate); err != nil {
		return Offering{}, translation.Report{}, err
	}

	uo.apply(&src)
	src.UpdatedAt = time.Now().UTC()
	if src, err = m.repo.SaveOffering(ctx, src); err != nil {
		return Offering{}, translation.Report{}, errors.Wrap(err, "saving service")
	}
	if err = m.repo.UpdateShared(ctx, slug, src.Shared()); err != nil {
		return Offering{}, translation.Report{}, errors.Wrap(err, "updating service translations")
	}
	if !autoTranslate {
		return src, translation.Report{}, nil
	}

	report, err := m.sync(ctx, src, translation.States(rows), translation.SyncOptions{Force: force})
	return src, report, err
}

// UpdateTranslation stores an admin edit of a non-English row, creating the row if needed.
func (m *Manager) UpdateTranslation(ctx context.Context, slug string, lang i18n.Lang, tr Translation) (Offering, error) {
	if err := translation.CheckTarget(lang, m.fanout.Source()); err != nil {
		return Offering{}, err
	}
	if err := m.validate.Struct(tr); err != nil {
		return Offering{}, err
	}
	src, err := m.repo.GetOffering(ctx, slug, m.fanout.Source())
	if err != nil {
		return Offering{}, err
	}

	row := src
	row.ID = ""
	row.Lang = lang
	row.State = translation.StateManual
	row.UpdatedAt = time.Now().UTC()
	row.SetFields(tr.Fields())
	return m.repo.SaveOffering(ctx, row)
}

func (m *Manager) Delete(ctx context.Context, slug string) error {
	n, err := m.repo.DeleteOfferings(ctx, slug)
	if err != nil {
		return errors.Wrap(err, "deleting service")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Get returns an active service in `lang`, or in English when that language row is missing.
func (m *Manager) Get(ctx context.Context, slug string, lang i18n.Lang) (Localized, error) {
	row, err := m.repo.GetOffering(ctx, slug, lang)
	fallback := false
	if core.IsNotFound(err) && lang != m.fanout.Source() {
		row, err = m.repo.GetOffering(ctx, slug, m.fanout.Source())
		fallback = true
	}
	if err != nil {
		return Localized{}, err
	}
	if !row.IsActive {
		return Localized{}, core.ErrNotFound
	}
	return Localized{Offering: row, FallbackUsed: fallback}, nil
}

// List returns the services in `lang`, ordered and filtered on their English rows.
func (m *Manager) List(ctx context.Context, lang i18n.Lang, filter *QueryFilter, ordering []core.DBOrdering) ([]Localized, error) {
	if filter != nil {
		filter.Clean()
	}
	ordering = core.AllowedOrderings(ordering, "position", "title", "created_at", "updated_at")
	sources, err := m.repo.QueryOfferings(ctx, m.fanout.Source(), filter, ordering)
	if err != nil {
		return nil, err
	}

	localized := sources
	if lang != m.fanout.Source() {
		if localized, err = m.repo.QueryOfferings(ctx, lang, nil, nil); err != nil {
			return nil, err
		}
	}

	rows, fallbacks := translation.Pick(sources, localized)
	list := make([]Localized, 0, len(rows))
	for i, r := range rows {
		list = append(list, Localized{Offering: r, FallbackUsed: fallbacks[i]})
	}
	return list, nil
}

// Translations returns every language row of a service, in language order.
func (m *Manager) Translations(ctx context.Context, slug string) ([]Offering, error) {
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

func (m *Manager) sync(ctx context.Context, src Offering, existing map[i18n.Lang]translation.State, opts translation.SyncOptions) (translation.Report, error) {
	return translation.Sync(ctx, m.fanout, src.Fields(), existing, opts,
		func(ctx context.Context, lang i18n.Lang, fields translation.Fields, state translation.State) error {
			row := src
			row.ID = ""
			row.Lang = lang
			row.State = state
			row.SetFields(fields)
			_, err := m.repo.SaveOffering(ctx, row)
			return err
		})
}
