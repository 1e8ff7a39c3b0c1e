package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/translation"
)

type pageRepository struct {
	about      *table[page.About]
	statistics *table[page.Statistic]
}

var (
	_ page.AboutRepository     = (*pageRepository)(nil)
	_ page.StatisticRepository = (*pageRepository)(nil)
)

func NewPageRepository(db *DB) *pageRepository {
	return &pageRepository{about: db.about, statistics: db.statistics}
}

func (repo *pageRepository) SaveAbout(_ context.Context, a page.About) (page.About, error) {
	repo.about.put(string(a.Lang), a)
	return a, nil
}

func (repo *pageRepository) SetAboutImage(_ context.Context, imageURL string) error {
	repo.about.updateWhere(
		func(page.About) bool { return true },
		func(a *page.About) { a.ImageURL = imageURL })
	return nil
}

func (repo *pageRepository) GetAbout(_ context.Context, lang i18n.Lang) (page.About, error) {
	if a, ok := repo.about.get(string(lang)); ok {
		return a, nil
	}
	return page.About{}, core.ErrNotFound
}

func (repo *pageRepository) GetAboutTranslations(_ context.Context) ([]page.About, error) {
	return repo.about.filter(nil), nil
}

func (repo *pageRepository) QueryAboutPending(_ context.Context) ([]translation.PendingRow, error) {
	return pending(repo.about.filter(nil)), nil
}

func (repo *pageRepository) SaveStatistic(_ context.Context, s page.Statistic) (page.Statistic, error) {
	key := rowKey(s.Group, s.Lang)
	if existing, ok := repo.statistics.get(key); ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	} else {
		s.ID = uuid.New().String()
	}
	repo.statistics.put(key, s)
	return s, nil
}

func (repo *pageRepository) UpdateStatisticShared(_ context.Context, group string, value int, suffix string, position int) error {
	repo.statistics.updateWhere(
		func(s page.Statistic) bool { return s.Group == group },
		func(s *page.Statistic) {
			s.Value = value
			s.Suffix = suffix
			s.Position = position
		})
	return nil
}

func (repo *pageRepository) GetStatistic(_ context.Context, group string, lang i18n.Lang) (page.Statistic, error) {
	if s, ok := repo.statistics.get(rowKey(group, lang)); ok {
		return s, nil
	}
	return page.Statistic{}, core.ErrNotFound
}

func (repo *pageRepository) GetStatisticTranslations(_ context.Context, group string) ([]page.Statistic, error) {
	return repo.statistics.filter(func(s page.Statistic) bool { return s.Group == group }), nil
}

func (repo *pageRepository) QueryStatistics(_ context.Context, lang i18n.Lang) ([]page.Statistic, error) {
	rows := repo.statistics.filter(func(s page.Statistic) bool { return s.Lang == lang })
	orderBy(rows, nil, nil, func(a, b page.Statistic) bool {
		if a.Position == b.Position {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Position < b.Position
	})
	return rows, nil
}

func (repo *pageRepository) DeleteStatistics(_ context.Context, group string) (int, error) {
	return repo.statistics.deleteWhere(func(s page.Statistic) bool { return s.Group == group }), nil
}

func (repo *pageRepository) QueryStatisticsPending(_ context.Context) ([]translation.PendingRow, error) {
	return pending(repo.statistics.filter(nil)), nil
}
