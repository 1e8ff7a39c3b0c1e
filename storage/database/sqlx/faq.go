package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

const faqColumns = `id, group_key, lang, question, answer, position, is_active, translation_state, created_at, updated_at`

type faqRow struct {
	ID        string    `db:"id"`
	Group     string    `db:"group_key"`
	Lang      string    `db:"lang"`
	Question  string    `db:"question"`
	Answer    string    `db:"answer"`
	Position  int       `db:"position"`
	IsActive  bool      `db:"is_active"`
	State     string    `db:"translation_state"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r faqRow) faq() faq.FAQ {
	return faq.FAQ{
		ID:        r.ID,
		Group:     r.Group,
		Lang:      i18n.Lang(r.Lang),
		Question:  r.Question,
		Answer:    r.Answer,
		Position:  r.Position,
		IsActive:  r.IsActive,
		State:     translation.State(r.State),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func faqs(rows []faqRow) []faq.FAQ {
	list := make([]faq.FAQ, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.faq())
	}
	return list
}

type faqRepository struct {
	db *sqlx.DB
}

var _ faq.Repository = (*faqRepository)(nil)

func NewFAQRepository(db *sqlx.DB) *faqRepository {
	return &faqRepository{db: db}
}

func (repo *faqRepository) SaveFAQ(ctx context.Context, f faq.FAQ) (faq.FAQ, error) {
	if !validUUID(f.Group) {
		return faq.FAQ{}, errors.Errorf("invalid faq group %q", f.Group)
	}
	row := faqRow{
		ID:        uuid.New().String(),
		Group:     f.Group,
		Lang:      string(f.Lang),
		Question:  f.Question,
		Answer:    f.Answer,
		Position:  f.Position,
		IsActive:  f.IsActive,
		State:     string(f.State),
		CreatedAt: f.CreatedAt.UTC(),
		UpdatedAt: f.UpdatedAt.UTC(),
	}
	q, args, err := repo.db.BindNamed(`INSERT INTO faqs (`+faqColumns+`)
		VALUES (:id, :group_key, :lang, :question, :answer, :position, :is_active, :translation_state, :created_at, :updated_at)
		ON CONFLICT (group_key, lang) DO UPDATE SET
			question = EXCLUDED.question, answer = EXCLUDED.answer, position = EXCLUDED.position,
			is_active = EXCLUDED.is_active, translation_state = EXCLUDED.translation_state, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`, row)
	if err != nil {
		return faq.FAQ{}, errors.Wrap(err, "binding faq")
	}
	if err = repo.db.QueryRowxContext(ctx, q, args...).Scan(&row.ID, &row.CreatedAt); err != nil {
		return faq.FAQ{}, errors.Wrap(err, "saving faq")
	}
	return row.faq(), nil
}

func (repo *faqRepository) UpdateShared(ctx context.Context, group string, position int, active bool) error {
	if !validUUID(group) {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `UPDATE faqs SET position = $1, is_active = $2 WHERE group_key = $3`, position, active, group)
	return errors.Wrap(err, "updating faq shared attributes")
}

func (repo *faqRepository) GetFAQ(ctx context.Context, group string, lang i18n.Lang) (faq.FAQ, error) {
	if !validUUID(group) {
		return faq.FAQ{}, core.ErrNotFound
	}
	var row faqRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+faqColumns+` FROM faqs WHERE group_key = $1 AND lang = $2`, group, string(lang))
	if err != nil {
		return faq.FAQ{}, trapNoRowsErr(err, "getting faq")
	}
	return row.faq(), nil
}

func (repo *faqRepository) GetTranslations(ctx context.Context, group string) ([]faq.FAQ, error) {
	if !validUUID(group) {
		return nil, nil
	}
	var rows []faqRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+faqColumns+` FROM faqs WHERE group_key = $1`, group); err != nil {
		return nil, errors.Wrap(err, "getting faq translations")
	}
	return faqs(rows), nil
}

func (repo *faqRepository) QueryFAQs(ctx context.Context, lang i18n.Lang, filter *faq.QueryFilter, ordering []core.DBOrdering) ([]faq.FAQ, error) {
	var w where
	w.add("lang = ?", string(lang))
	if filter != nil {
		w.search(filter.Search, "question", "answer")
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []faqRow
	q := `SELECT ` + faqColumns + ` FROM faqs` + w.String() + core.OrderBy(ordering, "position, created_at")
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying faqs")
	}
	return faqs(rows), nil
}

func (repo *faqRepository) DeleteFAQs(ctx context.Context, group string) (int, error) {
	if !validUUID(group) {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM faqs WHERE group_key = $1`, group)
	return rowsAffected(res, err, "deleting faq")
}

func (repo *faqRepository) QueryPending(ctx context.Context) ([]translation.PendingRow, error) {
	var rows []pendingRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT group_key, lang FROM faqs WHERE translation_state = $1 ORDER BY group_key, lang`, string(translation.StateFallback))
	if err != nil {
		return nil, errors.Wrap(err, "querying pending faqs")
	}
	return toPending(rows), nil
}
