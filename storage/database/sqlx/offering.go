package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/translation"
)

const offeringColumns = `id, slug, lang, title, summary, description, meta_title, meta_description, icon, image_url,
	position, is_active, translation_state, created_at, updated_at`

type offeringRow struct {
	ID              string      `db:"id"`
	Slug            string      `db:"slug"`
	Lang            string      `db:"lang"`
	Title           string      `db:"title"`
	Summary         string      `db:"summary"`
	Description     string      `db:"description"`
	MetaTitle       string      `db:"meta_title"`
	MetaDescription string      `db:"meta_description"`
	Icon            string      `db:"icon"`
	ImageURL        null.String `db:"image_url"`
	Position        int         `db:"position"`
	IsActive        bool        `db:"is_active"`
	State           string      `db:"translation_state"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func toOfferingRow(o offering.Offering) offeringRow {
	return offeringRow{
		ID:              o.ID,
		Slug:            o.Slug,
		Lang:            string(o.Lang),
		Title:           o.Title,
		Summary:         o.Summary,
		Description:     o.Description,
		MetaTitle:       o.MetaTitle,
		MetaDescription: o.MetaDescription,
		Icon:            o.Icon,
		ImageURL:        null.NewString(o.ImageURL, o.ImageURL != ""),
		Position:        o.Position,
		IsActive:        o.IsActive,
		State:           string(o.State),
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
	}
}

func (r offeringRow) offering() offering.Offering {
	return offering.Offering{
		ID:              r.ID,
		Slug:            r.Slug,
		Lang:            i18n.Lang(r.Lang),
		Title:           r.Title,
		Summary:         r.Summary,
		Description:     r.Description,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		Icon:            r.Icon,
		ImageURL:        r.ImageURL.String,
		Position:        r.Position,
		IsActive:        r.IsActive,
		State:           translation.State(r.State),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func offerings(rows []offeringRow) []offering.Offering {
	list := make([]offering.Offering, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.offering())
	}
	return list
}

type offeringRepository struct {
	db *sqlx.DB
}

var _ offering.Repository = (*offeringRepository)(nil)

func NewOfferingRepository(db *sqlx.DB) *offeringRepository {
	return &offeringRepository{db: db}
}

func (repo *offeringRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM services WHERE slug = $1)`, slug)
	return exists, errors.Wrap(err, "checking service slug")
}

// SaveOffering upserts on (slug, lang); an existing row keeps its id and created_at.
func (repo *offeringRepository) SaveOffering(ctx context.Context, o offering.Offering) (offering.Offering, error) {
	row := toOfferingRow(o)
	row.ID = uuid.New().String()

	q, args, err := repo.db.BindNamed(`INSERT INTO services (`+offeringColumns+`)
		VALUES (:id, :slug, :lang, :title, :summary, :description, :meta_title, :meta_description, :icon, :image_url,
			:position, :is_active, :translation_state, :created_at, :updated_at)
		ON CONFLICT (slug, lang) DO UPDATE SET
			title = EXCLUDED.title, summary = EXCLUDED.summary, description = EXCLUDED.description,
			meta_title = EXCLUDED.meta_title, meta_description = EXCLUDED.meta_description, icon = EXCLUDED.icon,
			image_url = EXCLUDED.image_url, position = EXCLUDED.position, is_active = EXCLUDED.is_active,
			translation_state = EXCLUDED.translation_state, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`, row)
	if err != nil {
		return offering.Offering{}, errors.Wrap(err, "binding service")
	}
	if err = repo.db.QueryRowxContext(ctx, q, args...).Scan(&row.ID, &row.CreatedAt); err != nil {
		return offering.Offering{}, errors.Wrap(err, "saving service")
	}
	return row.offering(), nil
}

func (repo *offeringRepository) UpdateShared(ctx context.Context, slug string, shared offering.Shared) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE services SET icon = $1, image_url = $2, position = $3, is_active = $4 WHERE slug = $5`,
		shared.Icon, null.NewString(shared.ImageURL, shared.ImageURL != ""), shared.Position, shared.IsActive, slug)
	return errors.Wrap(err, "updating service shared attributes")
}

func (repo *offeringRepository) GetOffering(ctx context.Context, slug string, lang i18n.Lang) (offering.Offering, error) {
	var row offeringRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+offeringColumns+` FROM services WHERE slug = $1 AND lang = $2`, slug, string(lang))
	if err != nil {
		return offering.Offering{}, trapNoRowsErr(err, "getting service")
	}
	return row.offering(), nil
}

func (repo *offeringRepository) GetTranslations(ctx context.Context, slug string) ([]offering.Offering, error) {
	var rows []offeringRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+offeringColumns+` FROM services WHERE slug = $1`, slug); err != nil {
		return nil, errors.Wrap(err, "getting service translations")
	}
	return offerings(rows), nil
}

func (repo *offeringRepository) QueryOfferings(ctx context.Context, lang i18n.Lang, filter *offering.QueryFilter, ordering []core.DBOrdering) ([]offering.Offering, error) {
	var w where
	w.add("lang = ?", string(lang))
	if filter != nil {
		w.search(filter.Search, "title", "summary")
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []offeringRow
	q := `SELECT ` + offeringColumns + ` FROM services` + w.String() + core.OrderBy(ordering, "position, slug")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying services")
	}
	return offerings(rows), nil
}

func (repo *offeringRepository) DeleteOfferings(ctx context.Context, slug string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM services WHERE slug = $1`, slug)
	return rowsAffected(res, err, "deleting service")
}

func (repo *offeringRepository) QueryPending(ctx context.Context) ([]translation.PendingRow, error) {
	var rows []pendingRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT slug AS group_key, lang FROM services WHERE translation_state = $1 ORDER BY slug, lang`, string(translation.StateFallback))
	if err != nil {
		return nil, errors.Wrap(err, "querying pending services")
	}
	return toPending(rows), nil
}
