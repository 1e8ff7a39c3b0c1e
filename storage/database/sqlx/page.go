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
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/translation"
)

const (
	aboutColumns     = `lang, title, content, mission, vision, image_url, translation_state, updated_at`
	statisticColumns = `id, group_key, lang, label, value, suffix, position, translation_state, created_at, updated_at`
)

type aboutRow struct {
	Lang      string      `db:"lang"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	Mission   string      `db:"mission"`
	Vision    string      `db:"vision"`
	ImageURL  null.String `db:"image_url"`
	State     string      `db:"translation_state"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r aboutRow) about() page.About {
	return page.About{
		Lang:      i18n.Lang(r.Lang),
		Title:     r.Title,
		Content:   r.Content,
		Mission:   r.Mission,
		Vision:    r.Vision,
		ImageURL:  r.ImageURL.String,
		State:     translation.State(r.State),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type statisticRow struct {
	ID        string    `db:"id"`
	Group     string    `db:"group_key"`
	Lang      string    `db:"lang"`
	Label     string    `db:"label"`
	Value     int       `db:"value"`
	Suffix    string    `db:"suffix"`
	Position  int       `db:"position"`
	State     string    `db:"translation_state"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r statisticRow) statistic() page.Statistic {
	return page.Statistic{
		ID:        r.ID,
		Group:     r.Group,
		Lang:      i18n.Lang(r.Lang),
		Label:     r.Label,
		Value:     r.Value,
		Suffix:    r.Suffix,
		Position:  r.Position,
		State:     translation.State(r.State),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func statistics(rows []statisticRow) []page.Statistic {
	list := make([]page.Statistic, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.statistic())
	}
	return list
}

// pageRepository stores the about-us page and the statistics counters.
type pageRepository struct {
	db *sqlx.DB
}

var (
	_ page.AboutRepository     = (*pageRepository)(nil)
	_ page.StatisticRepository = (*pageRepository)(nil)
)

func NewPageRepository(db *sqlx.DB) *pageRepository {
	return &pageRepository{db: db}
}

func (repo *pageRepository) SaveAbout(ctx context.Context, a page.About) (page.About, error) {
	row := aboutRow{
		Lang:      string(a.Lang),
		Title:     a.Title,
		Content:   a.Content,
		Mission:   a.Mission,
		Vision:    a.Vision,
		ImageURL:  null.NewString(a.ImageURL, a.ImageURL != ""),
		State:     string(a.State),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO about_us (`+aboutColumns+`)
		VALUES (:lang, :title, :content, :mission, :vision, :image_url, :translation_state, :updated_at)
		ON CONFLICT (lang) DO UPDATE SET
			title = EXCLUDED.title, content = EXCLUDED.content, mission = EXCLUDED.mission, vision = EXCLUDED.vision,
			image_url = EXCLUDED.image_url, translation_state = EXCLUDED.translation_state, updated_at = EXCLUDED.updated_at`, row)
	if err != nil {
		return page.About{}, errors.Wrap(err, "saving about page")
	}
	return row.about(), nil
}

func (repo *pageRepository) SetAboutImage(ctx context.Context, imageURL string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE about_us SET image_url = $1`, null.NewString(imageURL, imageURL != ""))
	return errors.Wrap(err, "updating about page image")
}

func (repo *pageRepository) GetAbout(ctx context.Context, lang i18n.Lang) (page.About, error) {
	var row aboutRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+aboutColumns+` FROM about_us WHERE lang = $1`, string(lang)); err != nil {
		return page.About{}, trapNoRowsErr(err, "getting about page")
	}
	return row.about(), nil
}

func (repo *pageRepository) GetAboutTranslations(ctx context.Context) ([]page.About, error) {
	var rows []aboutRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+aboutColumns+` FROM about_us`); err != nil {
		return nil, errors.Wrap(err, "getting about page translations")
	}
	list := make([]page.About, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.about())
	}
	return list, nil
}

func (repo *pageRepository) QueryAboutPending(ctx context.Context) ([]translation.PendingRow, error) {
	var rows []pendingRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT '`+page.AboutGroup+`' AS group_key, lang FROM about_us WHERE translation_state = $1 ORDER BY lang`,
		string(translation.StateFallback))
	if err != nil {
		return nil, errors.Wrap(err, "querying pending about page")
	}
	return toPending(rows), nil
}

func (repo *pageRepository) SaveStatistic(ctx context.Context, s page.Statistic) (page.Statistic, error) {
	if !validUUID(s.Group) {
		return page.Statistic{}, errors.Errorf("invalid statistic group %q", s.Group)
	}
	row := statisticRow{
		ID:        uuid.New().String(),
		Group:     s.Group,
		Lang:      string(s.Lang),
		Label:     s.Label,
		Value:     s.Value,
		Suffix:    s.Suffix,
		Position:  s.Position,
		State:     string(s.State),
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
	q, args, err := repo.db.BindNamed(`INSERT INTO statistics (`+statisticColumns+`)
		VALUES (:id, :group_key, :lang, :label, :value, :suffix, :position, :translation_state, :created_at, :updated_at)
		ON CONFLICT (group_key, lang) DO UPDATE SET
			label = EXCLUDED.label, value = EXCLUDED.value, suffix = EXCLUDED.suffix, position = EXCLUDED.position,
			translation_state = EXCLUDED.translation_state, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`, row)
	if err != nil {
		return page.Statistic{}, errors.Wrap(err, "binding statistic")
	}
	if err = repo.db.QueryRowxContext(ctx, q, args...).Scan(&row.ID, &row.CreatedAt); err != nil {
		return page.Statistic{}, errors.Wrap(err, "saving statistic")
	}
	return row.statistic(), nil
}

func (repo *pageRepository) UpdateStatisticShared(ctx context.Context, group string, value int, suffix string, position int) error {
	if !validUUID(group) {
		return nil
	}
	_, err := repo.db.ExecContext(ctx,
		`UPDATE statistics SET value = $1, suffix = $2, position = $3 WHERE group_key = $4`, value, suffix, position, group)
	return errors.Wrap(err, "updating statistic shared attributes")
}

func (repo *pageRepository) GetStatistic(ctx context.Context, group string, lang i18n.Lang) (page.Statistic, error) {
	if !validUUID(group) {
		return page.Statistic{}, core.ErrNotFound
	}
	var row statisticRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+statisticColumns+` FROM statistics WHERE group_key = $1 AND lang = $2`, group, string(lang))
	if err != nil {
		return page.Statistic{}, trapNoRowsErr(err, "getting statistic")
	}
	return row.statistic(), nil
}

func (repo *pageRepository) GetStatisticTranslations(ctx context.Context, group string) ([]page.Statistic, error) {
	if !validUUID(group) {
		return nil, nil
	}
	var rows []statisticRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+statisticColumns+` FROM statistics WHERE group_key = $1`, group); err != nil {
		return nil, errors.Wrap(err, "getting statistic translations")
	}
	return statistics(rows), nil
}

func (repo *pageRepository) QueryStatistics(ctx context.Context, lang i18n.Lang) ([]page.Statistic, error) {
	var rows []statisticRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+statisticColumns+` FROM statistics WHERE lang = $1 ORDER BY position, created_at`, string(lang))
	if err != nil {
		return nil, errors.Wrap(err, "querying statistics")
	}
	return statistics(rows), nil
}

func (repo *pageRepository) DeleteStatistics(ctx context.Context, group string) (int, error) {
	if !validUUID(group) {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM statistics WHERE group_key = $1`, group)
	return rowsAffected(res, err, "deleting statistic")
}

func (repo *pageRepository) QueryStatisticsPending(ctx context.Context) ([]translation.PendingRow, error) {
	var rows []pendingRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT group_key, lang FROM statistics WHERE translation_state = $1 ORDER BY group_key, lang`, string(translation.StateFallback))
	if err != nil {
		return nil, errors.Wrap(err, "querying pending statistics")
	}
	return toPending(rows), nil
}
